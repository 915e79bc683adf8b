package dispatch

import (
	"context"
	"errors"

	"foodDeliveryPlatform/internal/apperr"
	"foodDeliveryPlatform/internal/auth"
	"foodDeliveryPlatform/models"
	"foodDeliveryPlatform/repository"
)

// RegisterAgent creates a delivery agent profile for the caller. New agents
// start unverified and available; an admin must verify them before they can
// see or claim orders.
func (s *Service) RegisterAgent(ctx context.Context, actor *auth.Principal, vehicleType, vehicleNumber string) (*models.DeliveryAgent, error) {
	if vehicleType == "" {
		return nil, apperr.Validation("vehicle type is required")
	}
	agent, err := s.agents.Create(ctx, &models.DeliveryAgent{
		UserID:        actor.UserID,
		VehicleType:   vehicleType,
		VehicleNumber: vehicleNumber,
		IsAvailable:   true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateAgent) {
			return nil, apperr.Conflict("user %d already has an agent profile", actor.UserID)
		}
		return nil, apperr.Internal(err)
	}
	return agent, nil
}

// SetAvailability toggles the caller's own availability flag.
func (s *Service) SetAvailability(ctx context.Context, actor *auth.Principal, available bool) (*models.DeliveryAgent, error) {
	agent, err := s.agents.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if agent == nil {
		return nil, apperr.NotFound("no delivery agent registered for user %d", actor.UserID)
	}
	if err := s.agents.SetAvailability(ctx, agent.ID, available); err != nil {
		return nil, apperr.Internal(err)
	}
	agent.IsAvailable = available
	return agent, nil
}

// UpdateAgentLocation records the caller's current position. Proximity
// ranking in ListNearbyOrders reads whatever was last stored here.
func (s *Service) UpdateAgentLocation(ctx context.Context, actor *auth.Principal, lat, lng float64) error {
	agent, err := s.agents.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return apperr.Internal(err)
	}
	if agent == nil {
		return apperr.NotFound("no delivery agent registered for user %d", actor.UserID)
	}
	if err := s.agents.UpdateLocation(ctx, agent.ID, lat, lng); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// VerifyAgent flips the verification flag; admin only.
func (s *Service) VerifyAgent(ctx context.Context, actor *auth.Principal, agentID int64, verified bool) error {
	if !actor.IsAdmin() {
		return apperr.Authorization("agent verification requires admin")
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return apperr.Internal(err)
	}
	if agent == nil {
		return apperr.NotFound("agent %d not found", agentID)
	}
	if err := s.agents.SetVerified(ctx, agentID, verified); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// RateAgent lets the customer of a delivered order rate the agent who
// carried it. Ratings accumulate as a running sum and count.
func (s *Service) RateAgent(ctx context.Context, actor *auth.Principal, orderID int64, rating float64) error {
	if rating < 1 || rating > 5 {
		return apperr.Validation("rating must be between 1 and 5")
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return apperr.Internal(err)
	}
	if o == nil {
		return apperr.NotFound("order %d not found", orderID)
	}
	if o.CustomerID != actor.UserID {
		return apperr.Authorization("only the order's customer may rate the agent")
	}
	if o.Status != models.OrderStatusDelivered {
		return apperr.Conflict("order %d is not delivered", orderID)
	}
	if o.DeliveryAgentID == nil {
		return apperr.Conflict("order %d has no delivery agent", orderID)
	}
	if err := s.agents.AddRating(ctx, *o.DeliveryAgentID, rating); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
