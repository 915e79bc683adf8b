// Package events publishes order lifecycle events to Kafka for downstream
// consumers (analytics, search indexing). Publishing is fire-and-forget:
// a broker outage never fails the operation that produced the event.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeOrderCreated   = "OrderCreated"
	TypeStatusChanged  = "OrderStatusChanged"
	TypeOrderAssigned  = "OrderAssigned"
	TypeOrderDelivered = "OrderDelivered"
	TypePickupComplete = "OrderPickedUp"
)

// Envelope wraps every lifecycle event on the wire.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// OrderEventPayload is the shared payload for lifecycle events.
type OrderEventPayload struct {
	OrderID        int64   `json:"order_id"`
	CustomerID     int64   `json:"customer_id"`
	AgentID        *int64  `json:"agent_id,omitempty"`
	Status         string  `json:"status"`
	DeliveryMethod string  `json:"delivery_method"`
	Total          float64 `json:"total"`
}

// NewEnvelope builds a versioned envelope around the payload.
// Marshal failures panic; the payload types here are always marshalable.
func NewEnvelope(eventType, producer, correlationID string, payload any) Envelope {
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       b,
	}
}

// PartitionKey keeps all events of one order on one partition so consumers
// see them in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
