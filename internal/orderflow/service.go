// Package orderflow owns the Order aggregate's lifecycle: creation, the
// status state machine, cancellation and reorder.
package orderflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodDeliveryPlatform/internal/apperr"
	"foodDeliveryPlatform/internal/auth"
	"foodDeliveryPlatform/internal/authz"
	"foodDeliveryPlatform/internal/geo"
	"foodDeliveryPlatform/internal/notify"
	"foodDeliveryPlatform/internal/pickup"
	"foodDeliveryPlatform/models"
	"foodDeliveryPlatform/repository"
)

// Totals parameters. Fees are flat per delivery method; pickup carries none.
const (
	taxRate          = 0.05
	standardFee      = 30.0
	expressFee       = 50.0
	firstHistoryNote = "Order received"
	cancelledByNote  = "Order cancelled by customer"
)

// ItemInput is one requested line item.
type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateRequest carries everything needed to place an order.
type CreateRequest struct {
	Items           []ItemInput           `json:"items"`
	DeliveryMethod  models.DeliveryMethod `json:"delivery_method"`
	PaymentMethod   string                `json:"payment_method"`
	DeliveryAddress string                `json:"delivery_address"`
	PickupPoint     geo.Point             `json:"pickup_point"`
	DeliveryPoint   geo.Point             `json:"delivery_point"`
	RestaurantID    *int64                `json:"restaurant_id,omitempty"`
	Discount        float64               `json:"discount"`
}

// Service implements the order lifecycle operations.
type Service struct {
	orders   repository.OrderRepositoryI
	products repository.ProductRepositoryI
	agents   repository.AgentRepositoryI
	fanout   *notify.Fanout
}

func NewService(orders repository.OrderRepositoryI, products repository.ProductRepositoryI, agents repository.AgentRepositoryI, fanout *notify.Fanout) *Service {
	return &Service{orders: orders, products: products, agents: agents, fanout: fanout}
}

// Create places a new order for the actor: validates items, snapshots product
// name/price, decrements stock, computes totals, and for pickup orders mints
// the one-time 4-digit credential. The first history entry is appended in the
// same transaction as the order row.
func (s *Service) Create(ctx context.Context, actor *auth.Principal, req CreateRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}
	if !models.IsValidDeliveryMethod(req.DeliveryMethod) {
		return nil, apperr.Validation("unknown delivery method %q", req.DeliveryMethod)
	}
	if req.Discount < 0 {
		return nil, apperr.Validation("discount cannot be negative")
	}

	o := &models.Order{
		CustomerID:      actor.UserID,
		RestaurantID:    req.RestaurantID,
		DeliveryMethod:  req.DeliveryMethod,
		Status:          models.OrderStatusProcessing,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
		DeliveryAddress: req.DeliveryAddress,
		PickupLat:       req.PickupPoint.Lat,
		PickupLng:       req.PickupPoint.Lng,
		DeliveryLat:     req.DeliveryPoint.Lat,
		DeliveryLng:     req.DeliveryPoint.Lng,
		Discount:        req.Discount,
	}

	for _, in := range req.Items {
		if in.Quantity <= 0 {
			return nil, apperr.Validation("quantity for product %d must be positive", in.ProductID)
		}
		p, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if p == nil {
			return nil, apperr.NotFound("product %d not found", in.ProductID)
		}
		o.Items = append(o.Items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  in.Quantity,
			UnitPrice: p.Price,
		})
		o.Subtotal += p.Price * float64(in.Quantity)
	}
	o.Tax = o.Subtotal * taxRate
	o.DeliveryFee = feeFor(req.DeliveryMethod)
	o.Total = o.Subtotal + o.Tax + o.DeliveryFee - o.Discount

	if req.DeliveryMethod == models.DeliveryMethodPickup {
		code, err := pickup.GenerateCode()
		if err != nil {
			return nil, apperr.Internal(err)
		}
		expiry := time.Now().UTC().Add(pickup.CodeTTL)
		o.PickupCode = &code
		o.PickupCodeExpiresAt = &expiry
	}

	created, err := s.orders.CreateWithItems(ctx, o, firstHistoryNote)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return nil, apperr.Validation("insufficient stock: %v", err)
		}
		return nil, apperr.Internal(err)
	}

	if s.fanout != nil {
		authors, err := s.products.AuthorIDsForOrder(ctx, created.ID)
		if err != nil {
			authors = nil
		}
		s.fanout.OrderCreated(ctx, created, authors)
	}
	return created, nil
}

func feeFor(m models.DeliveryMethod) float64 {
	switch m {
	case models.DeliveryMethodStandard:
		return standardFee
	case models.DeliveryMethodExpress:
		return expressFee
	default:
		return 0
	}
}

// GetByID returns the order when the actor is its owner, its assigned agent,
// or an admin.
func (s *Service) GetByID(ctx context.Context, actor *auth.Principal, id int64) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if o == nil {
		return nil, apperr.NotFound("order %d not found", id)
	}
	var actorAgent *models.DeliveryAgent
	if !actor.IsAdmin() && !authz.IsOwner(o, actor) {
		actorAgent, err = s.agents.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
	}
	if !authz.CanReadOrder(o, actor, actorAgent) {
		return nil, apperr.Authorization("not allowed to view order %d", id)
	}
	return o, nil
}

// ListMine returns a page of the actor's own orders.
func (s *Service) ListMine(ctx context.Context, actor *auth.Principal, pageSize int, afterSeconds, afterID int64) ([]models.Order, error) {
	out, err := s.orders.ListByCustomerPage(ctx, actor.UserID, pageSize, afterSeconds, afterID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// UpdateStatus is the administrative status override. It rejects unrecognized
// statuses and transitions out of terminal states, appends a history entry,
// and applies the entering side effects (delivered stamps the actual time,
// cancelled while paid refunds).
func (s *Service) UpdateStatus(ctx context.Context, actor *auth.Principal, id int64, newStatus models.OrderStatus, note string) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Authorization("status override requires admin")
	}
	if !models.IsValidOrderStatus(newStatus) {
		return nil, apperr.Validation("unknown status %q", newStatus)
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if o == nil {
		return nil, apperr.NotFound("order %d not found", id)
	}
	if o.Status.IsTerminal() {
		return nil, apperr.Conflict("order %d is already %s", id, o.Status)
	}
	if err := s.orders.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, apperr.Internal(err)
	}
	if note == "" {
		note = fmt.Sprintf("Status changed to %s", newStatus)
	}
	if err := s.orders.AppendHistory(ctx, id, newStatus, note, nil, nil); err != nil {
		return nil, apperr.Internal(err)
	}
	updated, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if s.fanout != nil {
		s.fanout.StatusChanged(ctx, updated, actor.UserID)
	}
	return updated, nil
}

// Cancel lets the owning customer cancel a non-terminal order, restoring the
// stock decremented at creation. Already-terminal orders return a conflict.
// A dispatched order is also removed from its agent's active set and the
// agent is notified.
func (s *Service) Cancel(ctx context.Context, actor *auth.Principal, id int64) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if o == nil {
		return nil, apperr.NotFound("order %d not found", id)
	}
	if !authz.IsOwner(o, actor) {
		return nil, apperr.Authorization("only the order's customer can cancel it")
	}
	ok, err := s.orders.CancelAndRestock(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, apperr.Conflict("order %d is already %s", id, o.Status)
	}
	if o.DeliveryAgentID != nil {
		if err := s.agents.RemoveActive(ctx, *o.DeliveryAgentID, id); err != nil {
			return nil, apperr.Internal(err)
		}
	}
	if err := s.orders.AppendHistory(ctx, id, models.OrderStatusCancelled, cancelledByNote, nil, nil); err != nil {
		return nil, apperr.Internal(err)
	}
	updated, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if s.fanout != nil {
		s.fanout.StatusChanged(ctx, updated, actor.UserID)
		if o.DeliveryAgentID != nil {
			if agent, err := s.agents.GetByID(ctx, *o.DeliveryAgentID); err == nil && agent != nil {
				s.fanout.AssignmentCancelled(ctx, updated, agent.UserID)
			}
		}
	}
	return updated, nil
}

// Reorder duplicates a prior order's items, amounts, method and addresses into
// a brand-new order: fresh id, fresh pickup credential when applicable, status
// reset to processing. History and agent assignment are never copied.
func (s *Service) Reorder(ctx context.Context, actor *auth.Principal, id int64) (*models.Order, error) {
	prior, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if prior == nil {
		return nil, apperr.NotFound("order %d not found", id)
	}
	if !authz.IsOwner(prior, actor) {
		return nil, apperr.Authorization("only the order's customer can reorder it")
	}

	req := CreateRequest{
		DeliveryMethod:  prior.DeliveryMethod,
		PaymentMethod:   prior.PaymentMethod,
		DeliveryAddress: prior.DeliveryAddress,
		PickupPoint:     geo.Point{Lng: prior.PickupLng, Lat: prior.PickupLat},
		DeliveryPoint:   geo.Point{Lng: prior.DeliveryLng, Lat: prior.DeliveryLat},
		RestaurantID:    prior.RestaurantID,
		Discount:        prior.Discount,
	}
	for _, it := range prior.Items {
		req.Items = append(req.Items, ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return s.Create(ctx, actor, req)
}
