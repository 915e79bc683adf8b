package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foodDeliveryPlatform/models"
)

// Sentinel errors surfaced by repositories for domain conditions the service
// layer maps onto the public taxonomy.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
)

// OrderRepository is the core repository for Order aggregates. All
// single-aggregate writes that guard an invariant (exclusive assignment,
// single pickup completion, terminal states) are conditional updates checked
// via RowsAffected.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, customer_id, restaurant_id, delivery_method, status,
subtotal, tax, delivery_fee, discount, total, payment_method, payment_status,
delivery_address, pickup_lat, pickup_lng, delivery_lat, delivery_lng,
delivery_agent_id, estimated_delivery_time, actual_delivery_time,
pickup_code, pickup_code_expires_at, is_pickup_completed, created_at, updated_at`

// CreateWithItems inserts a new order, its line items, the first history entry
// and decrements product stock, all in one transaction. Status defaults to
// 'processing'. Returns ErrInsufficientStock when any product cannot cover its
// quantity; nothing is committed in that case.
func (r *OrderRepository) CreateWithItems(ctx context.Context, o *models.Order, firstNote string) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	if o.Status == "" {
		o.Status = models.OrderStatusProcessing
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = models.PaymentStatusPending
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, it := range o.Items {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`,
			it.Quantity, it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("product %d: %w", it.ProductID, ErrInsufficientStock)
		}
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO orders
(customer_id, restaurant_id, delivery_method, status, subtotal, tax, delivery_fee, discount, total,
 payment_method, payment_status, delivery_address, pickup_lat, pickup_lng, delivery_lat, delivery_lng,
 pickup_code, pickup_code_expires_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.CustomerID, o.RestaurantID, string(o.DeliveryMethod), string(o.Status),
		o.Subtotal, o.Tax, o.DeliveryFee, o.Discount, o.Total,
		o.PaymentMethod, string(o.PaymentStatus), o.DeliveryAddress,
		o.PickupLat, o.PickupLng, o.DeliveryLat, o.DeliveryLng,
		o.PickupCode, o.PickupCodeExpiresAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	for i := range o.Items {
		it := &o.Items[i]
		ires, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, name, quantity, unit_price) VALUES (?,?,?,?,?)`,
			id, it.ProductID, it.Name, it.Quantity, it.UnitPrice)
		if err != nil {
			return nil, err
		}
		it.OrderID = id
		it.ID, _ = ires.LastInsertId()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, status, note) VALUES (?,?,?)`,
		id, string(o.Status), firstNote); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches an order with its items and status history.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if o.Items, err = r.itemsFor(ctx, id); err != nil {
		return nil, err
	}
	if o.History, err = r.historyFor(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, name, quantity, unit_price FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *OrderRepository) historyFor(ctx context.Context, orderID int64) ([]models.StatusEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, status, note, lat, lng, created_at FROM order_status_history WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.StatusEntry
	for rows.Next() {
		var e models.StatusEntry
		var status string
		if err := rows.Scan(&e.ID, &e.OrderID, &status, &e.Note, &e.Lat, &e.Lng, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Status = models.OrderStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

// AppendHistory adds one append-only history row. History is never edited or
// truncated; there is deliberately no update/delete counterpart.
func (r *OrderRepository) AppendHistory(ctx context.Context, orderID int64, status models.OrderStatus, note string, lat, lng *float64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, status, note, lat, lng) VALUES (?,?,?,?,?)`,
		orderID, string(status), note, lat, lng)
	return err
}

// UpdateStatus moves an order to the given status and applies the entering
// side effects: delivered stamps actual_delivery_time; cancelled while paid
// flips payment_status to refunded. The caller validates the transition.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	now := time.Now().UTC()
	switch status {
	case models.OrderStatusDelivered:
		_, err := r.db.ExecContext(ctx,
			`UPDATE orders SET status = ?, actual_delivery_time = ?, updated_at = ? WHERE id = ?`,
			string(status), now, now, id)
		return err
	case models.OrderStatusCancelled:
		_, err := r.db.ExecContext(ctx, `UPDATE orders SET status = ?,
payment_status = CASE WHEN payment_status = 'paid' THEN 'refunded' ELSE payment_status END,
updated_at = ? WHERE id = ?`, string(status), now, id)
		return err
	default:
		_, err := r.db.ExecContext(ctx,
			`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, string(status), now, id)
		return err
	}
}

// AssignAgent performs the single atomic conditional update behind exclusive
// assignment: the agent wins iff the order is still unassigned and confirmed.
// Returns false (and mutates nothing) when the race is lost.
func (r *OrderRepository) AssignAgent(ctx context.Context, orderID, agentID int64, eta time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE orders
SET delivery_agent_id = ?, status = ?, estimated_delivery_time = ?, updated_at = ?
WHERE id = ? AND delivery_agent_id IS NULL AND status = ?`,
		agentID, string(models.OrderStatusOutForDelivery), eta.UTC(), time.Now().UTC(),
		orderID, string(models.OrderStatusConfirmed))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AssignAgentAdmin is the administrative assignment. It runs through the same
// conditional primitive as AssignAgent so the exclusivity invariant also holds
// on the admin path, except it accepts any non-terminal unassigned status.
func (r *OrderRepository) AssignAgentAdmin(ctx context.Context, orderID, agentID int64, eta time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE orders
SET delivery_agent_id = ?, status = ?, estimated_delivery_time = ?, updated_at = ?
WHERE id = ? AND delivery_agent_id IS NULL AND status NOT IN (?,?)`,
		agentID, string(models.OrderStatusOutForDelivery), eta.UTC(), time.Now().UTC(),
		orderID, string(models.OrderStatusDelivered), string(models.OrderStatusCancelled))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CompleteDelivery marks an out-for-delivery order delivered iff the given
// agent is the one assigned. Returns false when the guard does not match.
func (r *OrderRepository) CompleteDelivery(ctx context.Context, orderID, agentID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE orders
SET status = ?, actual_delivery_time = ?, updated_at = ?
WHERE id = ? AND delivery_agent_id = ? AND status = ?`,
		string(models.OrderStatusDelivered), now, now,
		orderID, agentID, string(models.OrderStatusOutForDelivery))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CompletePickup flips is_pickup_completed exactly once; the flag is the
// idempotency guard against concurrent in-person verification attempts.
// Terminal orders never match, so a pickup completion cannot move a
// cancelled order back to delivered.
func (r *OrderRepository) CompletePickup(ctx context.Context, orderID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE orders
SET is_pickup_completed = 1, status = ?, actual_delivery_time = ?, updated_at = ?
WHERE id = ? AND is_pickup_completed = 0 AND status NOT IN (?,?)`,
		string(models.OrderStatusDelivered), now, now, orderID,
		string(models.OrderStatusDelivered), string(models.OrderStatusCancelled))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CancelAndRestock cancels a non-terminal order and restores the stock
// decremented at creation, in one transaction. Returns false when the order
// was already terminal (nothing is mutated).
func (r *OrderRepository) CancelAndRestock(ctx context.Context, orderID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE orders SET status = ?,
payment_status = CASE WHEN payment_status = 'paid' THEN 'refunded' ELSE payment_status END,
updated_at = ?
WHERE id = ? AND status NOT IN (?,?)`,
		string(models.OrderStatusCancelled), time.Now().UTC(), orderID,
		string(models.OrderStatusDelivered), string(models.OrderStatusCancelled))
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE products SET stock = stock + (
SELECT oi.quantity FROM order_items oi WHERE oi.order_id = ? AND oi.product_id = products.id)
WHERE id IN (SELECT product_id FROM order_items WHERE order_id = ?)`, orderID, orderID); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
