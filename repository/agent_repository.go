package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"foodDeliveryPlatform/models"
)

// ErrDuplicateAgent is returned when a user already has an agent registration.
var ErrDuplicateAgent = errors.New("agent already registered for user")

// AgentRepository owns the DeliveryAgent aggregate, including the
// active/rejected/history order sets. The sets are mutated only through the
// named transition methods here, called by the dispatch coordinator.
type AgentRepository struct {
	db *sql.DB
}

func NewAgentRepository(db *sql.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

const agentColumns = `id, user_id, vehicle_type, vehicle_number, is_available, is_verified, lat, lng, rating_sum, rating_count`

// Create registers a new delivery agent: unverified, available. A second
// registration for the same user returns ErrDuplicateAgent.
func (r *AgentRepository) Create(ctx context.Context, a *models.DeliveryAgent) (*models.DeliveryAgent, error) {
	if a == nil {
		return nil, errors.New("agent is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO delivery_agents (user_id, vehicle_type, vehicle_number, is_available, is_verified, lat, lng) VALUES (?,?,?,1,0,?,?)`,
		a.UserID, a.VehicleType, a.VehicleNumber, a.Lat, a.Lng)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateAgent
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	a.ID = id
	a.IsAvailable = true
	a.IsVerified = false
	return a, nil
}

func (r *AgentRepository) scanAgent(row rowScanner) (*models.DeliveryAgent, error) {
	var a models.DeliveryAgent
	err := row.Scan(&a.ID, &a.UserID, &a.VehicleType, &a.VehicleNumber,
		&a.IsAvailable, &a.IsVerified, &a.Lat, &a.Lng, &a.RatingSum, &a.RatingCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AgentRepository) GetByID(ctx context.Context, id int64) (*models.DeliveryAgent, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.scanAgent(r.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM delivery_agents WHERE id = ?`, id))
}

func (r *AgentRepository) GetByUserID(ctx context.Context, userID int64) (*models.DeliveryAgent, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.scanAgent(r.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM delivery_agents WHERE user_id = ?`, userID))
}

func (r *AgentRepository) SetAvailability(ctx context.Context, id int64, available bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE delivery_agents SET is_available = ? WHERE id = ?`, available, id)
	return err
}

func (r *AgentRepository) UpdateLocation(ctx context.Context, id int64, lat, lng float64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE delivery_agents SET lat = ?, lng = ? WHERE id = ?`, lat, lng, id)
	return err
}

// SetVerified marks an agent verified (admin action).
func (r *AgentRepository) SetVerified(ctx context.Context, id int64, verified bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE delivery_agents SET is_verified = ? WHERE id = ?`, verified, id)
	return err
}

// AddRejected idempotently records that the agent declined an order.
// INSERT OR IGNORE keeps the set duplicate-free; a repeat call is a no-op.
func (r *AgentRepository) AddRejected(ctx context.Context, agentID, orderID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO agent_rejected_orders (agent_id, order_id) VALUES (?,?)`, agentID, orderID)
	return err
}

// RejectedOrderIDs returns the agent's rejected set, ordered by order id.
func (r *AgentRepository) RejectedOrderIDs(ctx context.Context, agentID int64) ([]int64, error) {
	return r.orderIDSet(ctx, `SELECT order_id FROM agent_rejected_orders WHERE agent_id = ? ORDER BY order_id`, agentID)
}

// AddActive records the order in the agent's active set after a won assignment.
func (r *AgentRepository) AddActive(ctx context.Context, agentID, orderID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO agent_active_orders (agent_id, order_id) VALUES (?,?)`, agentID, orderID)
	return err
}

// RemoveActive drops the order from the agent's active set without touching
// the delivery history. Used when a dispatched order is cancelled.
func (r *AgentRepository) RemoveActive(ctx context.Context, agentID, orderID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM agent_active_orders WHERE agent_id = ? AND order_id = ?`, agentID, orderID)
	return err
}

// ActiveOrderIDs returns the agent's active set, ordered by order id.
func (r *AgentRepository) ActiveOrderIDs(ctx context.Context, agentID int64) ([]int64, error) {
	return r.orderIDSet(ctx, `SELECT order_id FROM agent_active_orders WHERE agent_id = ? ORDER BY order_id`, agentID)
}

// MoveActiveToHistory removes the order from the active set and records it in
// the delivery history, in one transaction.
func (r *AgentRepository) MoveActiveToHistory(ctx context.Context, agentID, orderID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM agent_active_orders WHERE agent_id = ? AND order_id = ?`, agentID, orderID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO agent_delivery_history (agent_id, order_id, delivered_at) VALUES (?,?,?)`,
		agentID, orderID, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// DeliveryHistoryOrderIDs returns the agent's completed order set.
func (r *AgentRepository) DeliveryHistoryOrderIDs(ctx context.Context, agentID int64) ([]int64, error) {
	return r.orderIDSet(ctx, `SELECT order_id FROM agent_delivery_history WHERE agent_id = ? ORDER BY order_id`, agentID)
}

// AddRating folds one rating into the aggregate.
func (r *AgentRepository) AddRating(ctx context.Context, agentID int64, rating float64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`UPDATE delivery_agents SET rating_sum = rating_sum + ?, rating_count = rating_count + 1 WHERE id = ?`,
		rating, agentID)
	return err
}

func (r *AgentRepository) orderIDSet(ctx context.Context, query string, agentID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
