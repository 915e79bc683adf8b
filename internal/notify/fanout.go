// Package notify fans lifecycle events out to interested parties: a durable
// notification record, a best-effort live push, an optional email, and the
// Kafka event stream. Fanout failures are logged and swallowed; they must
// never fail or roll back the operation that triggered them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"foodDeliveryPlatform/internal/events"
	"foodDeliveryPlatform/internal/live"
	"foodDeliveryPlatform/models"
	"foodDeliveryPlatform/repository"
)

// Sender identifies who an event is attributed to in the live payload.
type Sender struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// OrderSummary is the order slice mirrored into live events.
type OrderSummary struct {
	ID             int64   `json:"id"`
	Total          float64 `json:"total"`
	Status         string  `json:"status"`
	DeliveryMethod string  `json:"delivery_method"`
}

// Event is the structured real-time payload pushed to live connections. It
// mirrors the durable record's fields.
type Event struct {
	Type      string       `json:"type"`
	Sender    Sender       `json:"sender"`
	Recipient int64        `json:"recipient"`
	Order     OrderSummary `json:"order"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"createdAt"`
	Read      bool         `json:"read"`
}

// LiveChannel is the push side of the live-connection directory.
type LiveChannel interface {
	live.Directory
	Push(ctx context.Context, handle string, payload []byte) error
}

// Fanout delivers one logical event through every configured channel.
// All collaborators except the notification store are optional.
type Fanout struct {
	notifs   repository.NotificationRepositoryI
	users    repository.UserRepositoryI
	liveDir  LiveChannel      // nil disables live push
	email    *EmailService    // nil disables email
	stream   events.Publisher // nil disables the Kafka stream
	producer string
}

func NewFanout(notifs repository.NotificationRepositoryI, users repository.UserRepositoryI, liveDir LiveChannel, email *EmailService, stream events.Publisher, producer string) *Fanout {
	return &Fanout{
		notifs:   notifs,
		users:    users,
		liveDir:  liveDir,
		email:    email,
		stream:   stream,
		producer: producer,
	}
}

// OrderCreated notifies each distinct item author once.
func (f *Fanout) OrderCreated(ctx context.Context, o *models.Order, authorIDs []int64) {
	msg := fmt.Sprintf("New order #%d received", o.ID)
	seen := make(map[int64]bool, len(authorIDs))
	for _, author := range authorIDs {
		if seen[author] {
			continue
		}
		seen[author] = true
		f.deliver(ctx, models.NotificationOrderCreated, o.CustomerID, author, o, msg)
	}
	f.publish(events.TypeOrderCreated, o)
}

// StatusChanged notifies the order's customer. senderID attributes the change
// (admin, agent, or system actor).
func (f *Fanout) StatusChanged(ctx context.Context, o *models.Order, senderID int64) {
	msg := fmt.Sprintf("Order #%d is now %s", o.ID, o.Status)
	f.deliver(ctx, models.NotificationStatusUpdate, senderID, o.CustomerID, o, msg)
	f.publish(events.TypeStatusChanged, o)
}

// Assigned notifies the customer that an agent took the order.
func (f *Fanout) Assigned(ctx context.Context, o *models.Order, agentUserID int64) {
	msg := fmt.Sprintf("Order #%d is out for delivery", o.ID)
	f.deliver(ctx, models.NotificationStatusUpdate, agentUserID, o.CustomerID, o, msg)
	f.publish(events.TypeOrderAssigned, o)
}

// AssignmentCancelled notifies the assigned agent that a dispatched order was
// cancelled out from under them. The customer-facing notification and the
// stream publish are handled by StatusChanged.
func (f *Fanout) AssignmentCancelled(ctx context.Context, o *models.Order, agentUserID int64) {
	msg := fmt.Sprintf("Order #%d was cancelled", o.ID)
	f.deliver(ctx, models.NotificationStatusUpdate, o.CustomerID, agentUserID, o, msg)
}

// Delivered notifies the customer of a completed delivery.
func (f *Fanout) Delivered(ctx context.Context, o *models.Order, agentUserID int64) {
	msg := fmt.Sprintf("Order #%d has been delivered", o.ID)
	f.deliver(ctx, models.NotificationStatusUpdate, agentUserID, o.CustomerID, o, msg)
	f.publish(events.TypeOrderDelivered, o)
}

// PickupCompleted notifies the customer after an in-person handover.
func (f *Fanout) PickupCompleted(ctx context.Context, o *models.Order, verifierID int64) {
	msg := fmt.Sprintf("Order #%d was picked up", o.ID)
	f.deliver(ctx, models.NotificationPickupComplete, verifierID, o.CustomerID, o, msg)
	f.publish(events.TypePickupComplete, o)
}

// deliver writes the durable record, then attempts the live push and email.
// Each step is independent; any failure is logged and the rest proceed.
func (f *Fanout) deliver(ctx context.Context, typ string, senderID, recipientID int64, o *models.Order, msg string) {
	orderID := o.ID
	rec := &models.Notification{
		SenderID:    senderID,
		RecipientID: recipientID,
		Type:        typ,
		Message:     msg,
		OrderID:     &orderID,
	}
	if _, err := f.notifs.Create(ctx, rec); err != nil {
		log.Printf("notify: persist %s for user %d: %v", typ, recipientID, err)
	}

	sender := Sender{ID: senderID}
	var recipientEmail string
	if f.users != nil {
		if u, err := f.users.GetByID(ctx, senderID); err == nil && u != nil {
			sender.Username = u.Username
			sender.Avatar = u.Avatar
		}
		if u, err := f.users.GetByID(ctx, recipientID); err == nil && u != nil {
			recipientEmail = u.Email
		}
	}

	f.push(ctx, Event{
		Type:      typ,
		Sender:    sender,
		Recipient: recipientID,
		Order: OrderSummary{
			ID:             o.ID,
			Total:          o.Total,
			Status:         string(o.Status),
			DeliveryMethod: string(o.DeliveryMethod),
		},
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	})

	if f.email != nil && recipientEmail != "" {
		if err := f.email.Send(recipientEmail, fmt.Sprintf("Order #%d update", o.ID), msg); err != nil {
			log.Printf("notify: email user %d: %v", recipientID, err)
		}
	}
}

// push looks up the recipient's live connection and publishes the event when
// one exists. No connection is not an error; the durable record stands alone.
func (f *Fanout) push(ctx context.Context, ev Event) {
	if f.liveDir == nil {
		return
	}
	handle, ok, err := f.liveDir.Lookup(ctx, ev.Recipient)
	if err != nil {
		log.Printf("notify: live lookup user %d: %v", ev.Recipient, err)
		return
	}
	if !ok {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("notify: marshal live event: %v", err)
		return
	}
	if err := f.liveDir.Push(ctx, handle, payload); err != nil {
		log.Printf("notify: push to user %d: %v", ev.Recipient, err)
	}
}

func (f *Fanout) publish(eventType string, o *models.Order) {
	if f.stream == nil {
		return
	}
	env := events.NewEnvelope(eventType, f.producer, strconv.FormatInt(o.ID, 10), events.OrderEventPayload{
		OrderID:        o.ID,
		CustomerID:     o.CustomerID,
		AgentID:        o.DeliveryAgentID,
		Status:         string(o.Status),
		DeliveryMethod: string(o.DeliveryMethod),
		Total:          o.Total,
	})
	f.stream.Publish(env)
}
