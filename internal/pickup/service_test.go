package pickup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodDeliveryPlatform/internal/apperr"
	"foodDeliveryPlatform/internal/auth"
	"foodDeliveryPlatform/internal/testutil"
	"foodDeliveryPlatform/models"
	"foodDeliveryPlatform/repository"
)

type env struct {
	svc      *Service
	users    *repository.UserRepository
	products *repository.ProductRepository
	orders   *repository.OrderRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, t.Name())
	users := repository.NewUserRepository(d)
	products := repository.NewProductRepository(d)
	orders := repository.NewOrderRepository(d)
	return &env{
		svc:      NewService(orders, products, users, nil),
		users:    users,
		products: products,
		orders:   orders,
	}
}

// seedPickupOrder creates a pickup order with the code "1234" expiring at the
// given time, and returns the order plus principals for the item author and
// the customer.
func (e *env) seedPickupOrder(t *testing.T, ctx context.Context, name string, expiry time.Time) (*models.Order, *auth.Principal, *auth.Principal) {
	t.Helper()
	customer := testutil.SeedUser(t, e.users, name+"-customer")
	author := testutil.SeedUser(t, e.users, name+"-author")
	p := testutil.SeedProduct(t, e.products, &models.Product{Name: name + "-dish", Price: 100, Stock: 10, AuthorID: author.ID})

	code := "1234"
	o := &models.Order{
		CustomerID:          customer.ID,
		DeliveryMethod:      models.DeliveryMethodPickup,
		Status:              models.OrderStatusConfirmed,
		PaymentMethod:       "upi",
		PickupCode:          &code,
		PickupCodeExpiresAt: &expiry,
		Items:               []models.OrderItem{{ProductID: p.ID, Name: p.Name, Quantity: 1, UnitPrice: p.Price}},
	}
	o, err := e.orders.CreateWithItems(ctx, o, "Order received")
	require.NoError(t, err)
	authorActor := &auth.Principal{UserID: author.ID, Username: author.Username}
	customerActor := &auth.Principal{UserID: customer.ID, Username: customer.Username}
	return o, authorActor, customerActor
}

func TestVerifyPickupCode_ReturnsCustomerContact(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o, author, _ := e.seedPickupOrder(t, ctx, "verify", time.Now().UTC().Add(time.Hour))

	v, err := e.svc.VerifyPickupCode(ctx, author, o.ID, "1234")
	require.NoError(t, err)
	assert.Equal(t, o.ID, v.OrderID)
	assert.Equal(t, o.CustomerID, v.Customer.UserID)
	assert.Equal(t, "verify-customer", v.Customer.Username)
	require.Len(t, v.Items, 1)

	// Verification is read-only.
	got, err := e.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPickupCompleted)
	assert.Equal(t, models.OrderStatusConfirmed, got.Status)
}

func TestVerifyPickupCode_Preconditions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o, author, customer := e.seedPickupOrder(t, ctx, "precond", time.Now().UTC().Add(time.Hour))

	_, err := e.svc.VerifyPickupCode(ctx, author, 99999, "1234")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// The customer does not author the items; buying is not authoring.
	_, err = e.svc.VerifyPickupCode(ctx, customer, o.ID, "1234")
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	_, err = e.svc.VerifyPickupCode(ctx, author, o.ID, "0000")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestVerifyPickupCode_ExpiredEvenWhenCorrect(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o, author, _ := e.seedPickupOrder(t, ctx, "expired", time.Now().UTC().Add(-time.Minute))

	_, err := e.svc.VerifyPickupCode(ctx, author, o.ID, "1234")
	assert.Equal(t, apperr.KindExpired, apperr.KindOf(err))
}

func TestVerifyPickupCode_RejectsNonPickupOrders(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	customer := testutil.SeedUser(t, e.users, "standard-customer")
	author := testutil.SeedUser(t, e.users, "standard-author")
	p := testutil.SeedProduct(t, e.products, &models.Product{Name: "curry", Price: 100, Stock: 10, AuthorID: author.ID})
	o := &models.Order{
		CustomerID:     customer.ID,
		DeliveryMethod: models.DeliveryMethodStandard,
		PaymentMethod:  "cod",
		Items:          []models.OrderItem{{ProductID: p.ID, Name: p.Name, Quantity: 1, UnitPrice: p.Price}},
	}
	o, err := e.orders.CreateWithItems(ctx, o, "Order received")
	require.NoError(t, err)

	_, err = e.svc.VerifyPickupCode(ctx, &auth.Principal{UserID: author.ID}, o.ID, "1234")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCompletePickup_OnceAndOnlyOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o, author, _ := e.seedPickupOrder(t, ctx, "complete", time.Now().UTC().Add(time.Hour))

	done, err := e.svc.CompletePickup(ctx, author, o.ID, "1234")
	require.NoError(t, err)
	assert.True(t, done.IsPickupCompleted)
	assert.Equal(t, models.OrderStatusDelivered, done.Status)
	assert.NotNil(t, done.ActualDeliveryTime)
	require.NotEmpty(t, done.History)
	assert.Equal(t, "Picked up by customer", done.History[len(done.History)-1].Note)

	_, err = e.svc.CompletePickup(ctx, author, o.ID, "1234")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCompletePickup_RejectsCancelledOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o, author, _ := e.seedPickupOrder(t, ctx, "cancelled", time.Now().UTC().Add(time.Hour))

	done, err := e.orders.CancelAndRestock(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, done)

	// A valid code must not pull a cancelled order back to delivered.
	_, err = e.svc.VerifyPickupCode(ctx, author, o.ID, "1234")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = e.svc.CompletePickup(ctx, author, o.ID, "1234")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	got, err := e.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	assert.False(t, got.IsPickupCompleted)
}

func TestCompletePickup_AdminBypassesAuthorCheckOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o, _, _ := e.seedPickupOrder(t, ctx, "admin", time.Now().UTC().Add(time.Hour))
	admin := &auth.Principal{UserID: 777, Username: "ops", Role: "admin"}

	// Admin still needs the right code.
	_, err := e.svc.CompletePickup(ctx, admin, o.ID, "9999")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	done, err := e.svc.CompletePickup(ctx, admin, o.ID, "1234")
	require.NoError(t, err)
	assert.True(t, done.IsPickupCompleted)
}

func TestGenerateCode_FourDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 4 {
			t.Fatalf("code %q should be 4 digits", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit", code)
			}
		}
	}
}
