package models

// User roles. By convention, Role is "admin" for admins and defaults to
// "customer" for regular users. Item authors (restaurants, home cooks) are
// regular users who own products.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents an end user in the system.
// It maps to the `users` table in SQLite.
type User struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Email    string `db:"email" json:"email"`
	Avatar   string `db:"avatar" json:"avatar,omitempty"`
	Role     string `db:"role" json:"role"`
	// Stored home/base location; the delivery-point fallback when an order
	// carries no explicit delivery coordinates.
	Lat float64 `db:"lat" json:"lat"`
	Lng float64 `db:"lng" json:"lng"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
