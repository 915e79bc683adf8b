// Package authz holds the capability predicates every operation applies
// uniformly, instead of ad hoc id comparisons at call sites. The item-author
// check needs storage and lives on the product repository
// (IsOrderItemAuthor); the pure predicates live here.
package authz

import (
	"foodDeliveryPlatform/internal/auth"
	"foodDeliveryPlatform/models"
)

// IsOwner reports whether the actor is the order's customer.
func IsOwner(o *models.Order, actor *auth.Principal) bool {
	return o != nil && actor != nil && o.CustomerID == actor.UserID
}

// IsAssignedAgent reports whether the agent is the one assigned to the order.
func IsAssignedAgent(o *models.Order, agent *models.DeliveryAgent) bool {
	return o != nil && agent != nil && o.DeliveryAgentID != nil && *o.DeliveryAgentID == agent.ID
}

// CanReadOrder reports whether the actor may fetch the order: the owner, the
// assigned agent (by linked user), or an admin.
func CanReadOrder(o *models.Order, actor *auth.Principal, actorAgent *models.DeliveryAgent) bool {
	if actor == nil || o == nil {
		return false
	}
	if actor.IsAdmin() || IsOwner(o, actor) {
		return true
	}
	return IsAssignedAgent(o, actorAgent)
}
