package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodDeliveryPlatform/models"
)

// NotificationRepository persists the durable half of the fanout. When the
// recipient has no live connection, these rows are the only delivery path.
type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n == nil {
		return nil, errors.New("notification is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (sender_id, recipient_id, type, message, order_id) VALUES (?,?,?,?,?)`,
		n.SenderID, n.RecipientID, n.Type, n.Message, n.OrderID)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	n.ID = id
	n.Read = false
	n.CreatedAt = time.Now().UTC()
	return n, nil
}

// ListByRecipient returns the recipient's notifications, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, sender_id, recipient_id, type, message, order_id, read, created_at
FROM notifications WHERE recipient_id = ? ORDER BY id DESC LIMIT ?`, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var orderID sql.NullInt64
		if err := rows.Scan(&n.ID, &n.SenderID, &n.RecipientID, &n.Type, &n.Message, &orderID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if orderID.Valid {
			v := orderID.Int64
			n.OrderID = &v
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification read for its recipient.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND recipient_id = ?`, id, recipientID)
	return err
}
