package testutil

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	jwt "github.com/golang-jwt/jwt/v5"

	"foodDeliveryPlatform/internal/auth"
	"foodDeliveryPlatform/internal/db"
	"foodDeliveryPlatform/models"
	"foodDeliveryPlatform/repository"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// Caller is responsible for closing the DB, typically via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	// We use a shared cache memory database so that multiple connections share the same DB if needed.
	d, err := db.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// GenerateJWTHS256 returns a signed JWT string with the claims used by the app.
func GenerateJWTHS256(t *testing.T, secret string, uid int64, name, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"uid":  uid,
		"name": name,
		"role": role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// SetBearer sets the Authorization header on an HTTP request.
func SetBearer(r *http.Request, token string) {
	r.Header.Set("Authorization", "Bearer "+token)
}

// CtxWithPrincipal returns a context carrying the given principal, bypassing
// token parsing for service-level tests.
func CtxWithPrincipal(ctx context.Context, uid int64, name, role string) context.Context {
	return auth.WithPrincipal(ctx, &auth.Principal{UserID: uid, Username: name, Role: role})
}

// SeedUser inserts a user and fails the test on error.
func SeedUser(t *testing.T, users *repository.UserRepository, username string) *models.User {
	t.Helper()
	u, err := users.Create(context.Background(), username, username+"@example.com")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// SeedProduct inserts a product and fails the test on error.
func SeedProduct(t *testing.T, products *repository.ProductRepository, p *models.Product) *models.Product {
	t.Helper()
	created, err := products.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("create product %s: %v", p.Name, err)
	}
	return created
}
