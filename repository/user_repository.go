package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"foodDeliveryPlatform/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with the given username and email.
// Returns the created User with its generated ID. Role defaults to 'customer'.
func (r *UserRepository) Create(ctx context.Context, username, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO users (username, email) VALUES (?,?)`, username, email)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.User{ID: id, Username: username, Email: email, Role: models.RoleCustomer}, nil
}

func (r *UserRepository) scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Avatar, &u.Role, &u.Lat, &u.Lng)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, email, avatar, role, lat, lng FROM users WHERE id = ?`, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, email, avatar, role, lat, lng FROM users WHERE username = ?`, username))
}

// UpdateLocation sets the user's stored home/base location, the delivery-point
// fallback for orders without explicit coordinates.
func (r *UserRepository) UpdateLocation(ctx context.Context, id int64, lat, lng float64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE users SET lat = ?, lng = ? WHERE id = ?`, lat, lng, id)
	return err
}

func (r *UserRepository) SetRole(ctx context.Context, id int64, role string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, id)
	return err
}
