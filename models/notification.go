package models

import "time"

// Notification types emitted by the fanout.
const (
	NotificationOrderCreated   = "order_created"
	NotificationStatusUpdate   = "status_update"
	NotificationPickupComplete = "pickup_complete"
)

// Notification is the durable record of one delivered event. The live push
// mirrors these fields; when the recipient has no live connection this row is
// the sole delivery path.
type Notification struct {
	ID          int64     `db:"id" json:"id"`
	SenderID    int64     `db:"sender_id" json:"sender_id"`
	RecipientID int64     `db:"recipient_id" json:"recipient_id"`
	Type        string    `db:"type" json:"type"`
	Message     string    `db:"message" json:"message"`
	OrderID     *int64    `db:"order_id" json:"order_id,omitempty"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
