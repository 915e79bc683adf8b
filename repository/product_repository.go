package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodDeliveryPlatform/models"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p == nil {
		return nil, errors.New("product is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, price, stock, author_id, lat, lng) VALUES (?,?,?,?,?,?)`,
		p.Name, p.Price, p.Stock, p.AuthorID, p.Lat, p.Lng)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	p.ID = id
	return p, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var p models.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, price, stock, author_id, lat, lng FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.AuthorID, &p.Lat, &p.Lng)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// RestoreStock adds quantity back after a cancellation handled outside the
// order transaction.
func (r *ProductRepository) RestoreStock(ctx context.Context, id int64, quantity int) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE products SET stock = stock + ? WHERE id = ?`, quantity, id)
	return err
}

// AuthorIDsForOrder returns the distinct item authors of an order, via the
// item -> product -> author chain, ordered by author id.
func (r *ProductRepository) AuthorIDsForOrder(ctx context.Context, orderID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT p.author_id
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = ?
ORDER BY p.author_id`, orderID)
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

// IsOrderItemAuthor reports whether the user authors at least one product in
// the order. Backs the pickup-handover authorization check.
func (r *ProductRepository) IsOrderItemAuthor(ctx context.Context, orderID, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1)
FROM order_items oi
JOIN products p ON p.id = oi.product_id
WHERE oi.order_id = ? AND p.author_id = ?`, orderID, userID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FirstItemAuthorLocation returns the stored location of the first item's
// author, the last fallback for a missing pickup point.
func (r *ProductRepository) FirstItemAuthorLocation(ctx context.Context, orderID int64) (lat, lng float64, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = r.db.QueryRowContext(ctx, `SELECT u.lat, u.lng
FROM order_items oi
JOIN products p ON p.id = oi.product_id
JOIN users u ON u.id = p.author_id
WHERE oi.order_id = ?
ORDER BY oi.id ASC
LIMIT 1`, orderID).Scan(&lat, &lng)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	return lat, lng, true, nil
}
