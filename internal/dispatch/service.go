// Package dispatch orchestrates agent-facing queries and assignment
// transitions: nearby-order listing, accept/reject, delivery completion, and
// the administrative assignment override. Exclusive assignment rests entirely
// on the repository's conditional update; this layer never read-then-writes
// the agent column.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"foodDeliveryPlatform/internal/apperr"
	"foodDeliveryPlatform/internal/auth"
	"foodDeliveryPlatform/internal/geo"
	"foodDeliveryPlatform/internal/notify"
	"foodDeliveryPlatform/models"
	"foodDeliveryPlatform/repository"
)

// deliveryETA is the estimate stamped when an agent accepts an order.
const deliveryETA = 30 * time.Minute

// Distance annotates a candidate with its exact haversine distance.
type Distance struct {
	Value float64 `json:"value"` // meters
	Unit  string  `json:"unit"`
}

// Candidate is one order offered to (or in flight with) an agent.
type Candidate struct {
	Order               models.Order `json:"order"`
	Distance            Distance     `json:"distance"`
	WithinDeliveryRange bool         `json:"withinDeliveryRange"`
}

// Service is the dispatch coordinator.
type Service struct {
	orders   repository.OrderRepositoryI
	agents   repository.AgentRepositoryI
	products repository.ProductRepositoryI
	users    repository.UserRepositoryI
	fanout   *notify.Fanout
}

func NewService(orders repository.OrderRepositoryI, agents repository.AgentRepositoryI, products repository.ProductRepositoryI, users repository.UserRepositoryI, fanout *notify.Fanout) *Service {
	return &Service{orders: orders, agents: agents, products: products, users: users, fanout: fanout}
}

// requireDispatchAgent resolves the caller's agent profile and checks the
// verified+available gate shared by every agent-facing operation.
func (s *Service) requireDispatchAgent(ctx context.Context, actor *auth.Principal) (*models.DeliveryAgent, error) {
	agent, err := s.agents.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if agent == nil {
		return nil, apperr.NotFound("no delivery agent registered for user %d", actor.UserID)
	}
	if !agent.CanDispatch() {
		return nil, apperr.Authorization("agent must be verified and available")
	}
	return agent, nil
}

// pickupPointFor resolves an order's pickup point with the fallback chain:
// stored pickup coordinates, then the fulfilling restaurant's location, then
// the first item author's location.
func (s *Service) pickupPointFor(ctx context.Context, o *models.Order) (geo.Point, bool) {
	stored := geo.Point{Lng: o.PickupLng, Lat: o.PickupLat}
	var restaurant geo.Point
	if o.RestaurantID != nil {
		if u, err := s.users.GetByID(ctx, *o.RestaurantID); err == nil && u != nil {
			restaurant = geo.Point{Lng: u.Lng, Lat: u.Lat}
		}
	}
	var author geo.Point
	if lat, lng, ok, err := s.products.FirstItemAuthorLocation(ctx, o.ID); err == nil && ok {
		author = geo.Point{Lng: lng, Lat: lat}
	}
	return geo.Resolve(stored, restaurant, author)
}

// deliveryPointFor resolves an order's delivery point, falling back to the
// customer's stored location.
func (s *Service) deliveryPointFor(ctx context.Context, o *models.Order) (geo.Point, bool) {
	stored := geo.Point{Lng: o.DeliveryLng, Lat: o.DeliveryLat}
	var customer geo.Point
	if u, err := s.users.GetByID(ctx, o.CustomerID); err == nil && u != nil {
		customer = geo.Point{Lng: u.Lng, Lat: u.Lat}
	}
	return geo.Resolve(stored, customer)
}

// ListNearbyOrders returns unassigned confirmed orders for the agent, exact
// distance ascending, excluding anything the agent rejected. Outside the 2 km
// radius candidates are dropped unless includeAllConfirmed is set. The agent's
// own out-for-delivery orders are appended at the end, annotated but not
// merged into the sort.
func (s *Service) ListNearbyOrders(ctx context.Context, actor *auth.Principal, includeAllConfirmed bool) ([]Candidate, error) {
	agent, err := s.requireDispatchAgent(ctx, actor)
	if err != nil {
		return nil, err
	}
	origin := geo.Point{Lng: agent.Lng, Lat: agent.Lat}

	confirmed, err := s.orders.ListUnassignedConfirmed(ctx, agent.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	var out []Candidate
	for i := range confirmed {
		o := &confirmed[i]
		point, ok := s.pickupPointFor(ctx, o)
		if !ok {
			// No resolvable pickup location; the order cannot be ranked.
			log.Printf("dispatch: order %d has no resolvable pickup point, skipping", o.ID)
			continue
		}
		d := geo.DistanceMeters(origin, point)
		within := d <= geo.DeliveryRadiusMeters
		if !within && !includeAllConfirmed {
			continue
		}
		out = append(out, Candidate{
			Order:               *o,
			Distance:            Distance{Value: d, Unit: "m"},
			WithinDeliveryRange: within,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Distance.Value < out[j].Distance.Value
	})

	active, err := s.orders.ListOutForDeliveryByAgent(ctx, agent.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for i := range active {
		o := &active[i]
		var d float64
		if point, ok := s.pickupPointFor(ctx, o); ok {
			d = geo.DistanceMeters(origin, point)
		}
		out = append(out, Candidate{
			Order:               *o,
			Distance:            Distance{Value: d, Unit: "m"},
			WithinDeliveryRange: d <= geo.DeliveryRadiusMeters,
		})
	}
	return out, nil
}

// AcceptOrder claims an order for the agent. The write is a single atomic
// conditional update keyed on "assign iff currently unassigned and confirmed";
// losing the race returns a conflict and mutates nothing.
func (s *Service) AcceptOrder(ctx context.Context, actor *auth.Principal, orderID int64) (*models.Order, error) {
	agent, err := s.requireDispatchAgent(ctx, actor)
	if err != nil {
		return nil, err
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if o == nil {
		return nil, apperr.NotFound("order %d not found", orderID)
	}
	if o.DeliveryAgentID != nil {
		return nil, apperr.Conflict("order %d is already assigned", orderID)
	}
	if o.Status != models.OrderStatusConfirmed {
		return nil, apperr.Conflict("order %d is %s, not confirmed", orderID, o.Status)
	}

	eta := time.Now().UTC().Add(deliveryETA)
	won, err := s.orders.AssignAgent(ctx, orderID, agent.ID, eta)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !won {
		return nil, apperr.Conflict("order %d was assigned concurrently", orderID)
	}

	if err := s.agents.AddActive(ctx, agent.ID, orderID); err != nil {
		return nil, apperr.Internal(err)
	}
	note := fmt.Sprintf("Assigned to delivery agent %s", actor.Username)
	if err := s.orders.AppendHistory(ctx, orderID, models.OrderStatusOutForDelivery, note, nil, nil); err != nil {
		return nil, apperr.Internal(err)
	}

	updated, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if s.fanout != nil {
		s.fanout.Assigned(ctx, updated, actor.UserID)
	}
	return updated, nil
}

// RejectOrder idempotently records that the agent declined an unassigned
// order. A repeat call is a no-op; the order itself is never touched.
func (s *Service) RejectOrder(ctx context.Context, actor *auth.Principal, orderID int64) error {
	agent, err := s.requireDispatchAgent(ctx, actor)
	if err != nil {
		return err
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return apperr.Internal(err)
	}
	if o == nil {
		return apperr.NotFound("order %d not found", orderID)
	}
	if o.DeliveryAgentID != nil {
		return apperr.Conflict("order %d is already assigned", orderID)
	}
	if err := s.agents.AddRejected(ctx, agent.ID, orderID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// CompleteDelivery marks the agent's out-for-delivery order delivered, moves
// it from the active set to the delivery history, and notifies the customer.
func (s *Service) CompleteDelivery(ctx context.Context, actor *auth.Principal, orderID int64) (*models.Order, error) {
	agent, err := s.agents.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if agent == nil {
		return nil, apperr.NotFound("no delivery agent registered for user %d", actor.UserID)
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if o == nil {
		return nil, apperr.NotFound("order %d not found", orderID)
	}
	if o.DeliveryAgentID == nil || *o.DeliveryAgentID != agent.ID {
		return nil, apperr.Authorization("order %d is not assigned to this agent", orderID)
	}

	done, err := s.orders.CompleteDelivery(ctx, orderID, agent.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !done {
		return nil, apperr.Conflict("order %d is %s, not out for delivery", orderID, o.Status)
	}

	if err := s.orders.AppendHistory(ctx, orderID, models.OrderStatusDelivered, "Delivered by agent", nil, nil); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.agents.MoveActiveToHistory(ctx, agent.ID, orderID); err != nil {
		return nil, apperr.Internal(err)
	}

	updated, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if s.fanout != nil {
		s.fanout.Delivered(ctx, updated, actor.UserID)
	}
	return updated, nil
}

// AssignAgentByAdmin is the administrative escape hatch. It intentionally
// skips the agent-side verified/available gate but still runs through the
// conditional-update primitive, so an already-assigned order conflicts
// instead of being silently overwritten.
func (s *Service) AssignAgentByAdmin(ctx context.Context, actor *auth.Principal, orderID, agentID int64) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Authorization("admin assignment requires admin")
	}
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if agent == nil {
		return nil, apperr.NotFound("agent %d not found", agentID)
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if o == nil {
		return nil, apperr.NotFound("order %d not found", orderID)
	}

	eta := time.Now().UTC().Add(deliveryETA)
	won, err := s.orders.AssignAgentAdmin(ctx, orderID, agentID, eta)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !won {
		return nil, apperr.Conflict("order %d is assigned or terminal", orderID)
	}

	if err := s.agents.AddActive(ctx, agentID, orderID); err != nil {
		return nil, apperr.Internal(err)
	}
	note := fmt.Sprintf("Assigned to agent %d by admin", agentID)
	if err := s.orders.AppendHistory(ctx, orderID, models.OrderStatusOutForDelivery, note, nil, nil); err != nil {
		return nil, apperr.Internal(err)
	}

	updated, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if s.fanout != nil {
		s.fanout.Assigned(ctx, updated, actor.UserID)
	}
	return updated, nil
}
