package pickup

import (
	"context"
	"time"

	"foodDeliveryPlatform/internal/apperr"
	"foodDeliveryPlatform/internal/auth"
	"foodDeliveryPlatform/internal/notify"
	"foodDeliveryPlatform/models"
	"foodDeliveryPlatform/repository"
)

const completedHistoryNote = "Picked up by customer"

// CustomerContact is the summary handed to the verifier so they can confirm
// who is standing in front of them.
type CustomerContact struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Verification is the read-only result of a successful code check.
type Verification struct {
	OrderID  int64           `json:"order_id"`
	Customer CustomerContact `json:"customer"`
	Items    []models.OrderItem `json:"items"`
}

// Service verifies and completes in-person pickups. Only a user who authors
// at least one item on the order may verify its code.
type Service struct {
	orders   repository.OrderRepositoryI
	products repository.ProductRepositoryI
	users    repository.UserRepositoryI
	fanout   *notify.Fanout
}

func NewService(orders repository.OrderRepositoryI, products repository.ProductRepositoryI, users repository.UserRepositoryI, fanout *notify.Fanout) *Service {
	return &Service{orders: orders, products: products, users: users, fanout: fanout}
}

// check runs the shared precondition chain and returns the order when every
// gate passes. Completion state and expiry are checked before the code value
// so a stale or spent code never leaks whether it was correct.
func (s *Service) check(ctx context.Context, actor *auth.Principal, orderID int64, code string) (*models.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if o == nil {
		return nil, apperr.NotFound("order %d not found", orderID)
	}
	if o.DeliveryMethod != models.DeliveryMethodPickup {
		return nil, apperr.Validation("order %d is not a pickup order", orderID)
	}
	if !actor.IsAdmin() {
		ok, err := s.products.IsOrderItemAuthor(ctx, orderID, actor.UserID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if !ok {
			return nil, apperr.Authorization("only an item author may verify this pickup")
		}
	}
	if o.IsPickupCompleted {
		return nil, apperr.Conflict("order %d pickup is already completed", orderID)
	}
	if o.Status.IsTerminal() {
		return nil, apperr.Conflict("order %d is %s", orderID, o.Status)
	}
	if o.PickupCodeExpiresAt == nil || time.Now().UTC().After(*o.PickupCodeExpiresAt) {
		return nil, apperr.Expired("pickup code for order %d has expired", orderID)
	}
	if o.PickupCode == nil || *o.PickupCode != code {
		return nil, apperr.Validation("pickup code does not match")
	}
	return o, nil
}

// VerifyPickupCode checks a code without mutating anything and returns the
// customer contact summary for in-person confirmation.
func (s *Service) VerifyPickupCode(ctx context.Context, actor *auth.Principal, orderID int64, code string) (*Verification, error) {
	o, err := s.check(ctx, actor, orderID, code)
	if err != nil {
		return nil, err
	}
	contact := CustomerContact{UserID: o.CustomerID}
	if u, err := s.users.GetByID(ctx, o.CustomerID); err == nil && u != nil {
		contact.Username = u.Username
		contact.Email = u.Email
	}
	return &Verification{OrderID: o.ID, Customer: contact, Items: o.Items}, nil
}

// CompletePickup runs the same checks as VerifyPickupCode and then finishes
// the pickup with a conditional update on the completion flag, so two
// concurrent verifiers cannot both complete the same order.
func (s *Service) CompletePickup(ctx context.Context, actor *auth.Principal, orderID int64, code string) (*models.Order, error) {
	if _, err := s.check(ctx, actor, orderID, code); err != nil {
		return nil, err
	}
	done, err := s.orders.CompletePickup(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !done {
		return nil, apperr.Conflict("order %d pickup was completed concurrently", orderID)
	}
	if err := s.orders.AppendHistory(ctx, orderID, models.OrderStatusDelivered, completedHistoryNote, nil, nil); err != nil {
		return nil, apperr.Internal(err)
	}
	updated, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if s.fanout != nil {
		s.fanout.PickupCompleted(ctx, updated, actor.UserID)
	}
	return updated, nil
}
