package repository

import (
	"context"
	"database/sql"
	"time"

	"foodDeliveryPlatform/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var method, status, paymentStatus string
	var restaurantID, agentID sql.NullInt64
	var eta, actual, codeExpiry sql.NullTime
	var code sql.NullString
	err := row.Scan(&o.ID, &o.CustomerID, &restaurantID, &method, &status,
		&o.Subtotal, &o.Tax, &o.DeliveryFee, &o.Discount, &o.Total,
		&o.PaymentMethod, &paymentStatus, &o.DeliveryAddress,
		&o.PickupLat, &o.PickupLng, &o.DeliveryLat, &o.DeliveryLng,
		&agentID, &eta, &actual, &code, &codeExpiry, &o.IsPickupCompleted,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.DeliveryMethod = models.DeliveryMethod(method)
	o.Status = models.OrderStatus(status)
	o.PaymentStatus = models.PaymentStatus(paymentStatus)
	if restaurantID.Valid {
		v := restaurantID.Int64
		o.RestaurantID = &v
	}
	if agentID.Valid {
		v := agentID.Int64
		o.DeliveryAgentID = &v
	}
	if eta.Valid {
		v := eta.Time
		o.EstimatedDeliveryTime = &v
	}
	if actual.Valid {
		v := actual.Time
		o.ActualDeliveryTime = &v
	}
	if code.Valid {
		v := code.String
		o.PickupCode = &v
	}
	if codeExpiry.Valid {
		v := codeExpiry.Time
		o.PickupCodeExpiresAt = &v
	}
	return &o, nil
}

func (r *OrderRepository) scanOrderRows(rows *sql.Rows) ([]models.Order, error) {
	var out []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// ListByCustomerPage returns a page of a customer's orders ordered by
// created_at desc, id desc. Uses keyset pagination with a numeric cursor
// (created unix seconds, id).
func (r *OrderRepository) ListByCustomerPage(ctx context.Context, customerID int64, pageSize int, afterSeconds, afterID int64) ([]models.Order, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var rows *sql.Rows
	var err error
	if afterSeconds > 0 && afterID > 0 {
		rows, err = r.db.QueryContext(ctx, `SELECT `+orderColumns+`
FROM orders
WHERE customer_id = ?
  AND (
        CAST(strftime('%s', created_at) AS INTEGER) < ?
        OR (CAST(strftime('%s', created_at) AS INTEGER) = ? AND id < ?)
      )
ORDER BY created_at DESC, id DESC
LIMIT ?`, customerID, afterSeconds, afterSeconds, afterID, pageSize)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+orderColumns+`
FROM orders
WHERE customer_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`, customerID, pageSize)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanOrderRows(rows)
}

// ListUnassignedConfirmed returns confirmed, unassigned orders excluding any
// the given agent has already rejected. Rejected orders are never re-surfaced
// to the same agent.
func (r *OrderRepository) ListUnassignedConfirmed(ctx context.Context, agentID int64) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+`
FROM orders o
WHERE o.status = ?
  AND o.delivery_agent_id IS NULL
  AND NOT EXISTS (
        SELECT 1 FROM agent_rejected_orders rej
        WHERE rej.agent_id = ? AND rej.order_id = o.id
      )
ORDER BY o.created_at ASC, o.id ASC`, string(models.OrderStatusConfirmed), agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanOrderRows(rows)
}

// ListOutForDeliveryByAgent returns the agent's own in-flight orders.
func (r *OrderRepository) ListOutForDeliveryByAgent(ctx context.Context, agentID int64) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+`
FROM orders
WHERE delivery_agent_id = ? AND status = ?
ORDER BY created_at ASC, id ASC`, agentID, string(models.OrderStatusOutForDelivery))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanOrderRows(rows)
}
