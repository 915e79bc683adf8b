package dispatch

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

// Agent base position and three pickup points: roughly 160 m, 1.6 km and
// 7.8 km away. The delivery radius is 2 km.
const (
	agentLat = 19.00
	agentLng = 72.80

	nearLat = 19.001
	nearLng = 72.801
	midLat  = 19.01
	midLng  = 72.81
	farLat  = 19.05
	farLng  = 72.85
)

type env struct {
	svc      *Service
	users    *repository.UserRepository
	products *repository.ProductRepository
	orders   *repository.OrderRepository
	agents   *repository.AgentRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, t.Name())
	users := repository.NewUserRepository(d)
	products := repository.NewProductRepository(d)
	orders := repository.NewOrderRepository(d)
	agents := repository.NewAgentRepository(d)
	return &env{
		svc:      NewService(orders, agents, products, users, nil),
		users:    users,
		products: products,
		orders:   orders,
		agents:   agents,
	}
}

// seedAgent creates a verified, available agent at the base position and
// returns it with its principal.
func (e *env) seedAgent(t *testing.T, ctx context.Context, name string) (*models.DeliveryAgent, *auth.Principal) {
	t.Helper()
	u := testutil.SeedUser(t, e.users, name)
	a, err := e.agents.Create(ctx, &models.DeliveryAgent{UserID: u.ID, VehicleType: "bike", IsAvailable: true})
	require.NoError(t, err)
	require.NoError(t, e.agents.SetVerified(ctx, a.ID, true))
	require.NoError(t, e.agents.UpdateLocation(ctx, a.ID, agentLat, agentLng))
	a, err = e.agents.GetByID(ctx, a.ID)
	require.NoError(t, err)
	return a, &auth.Principal{UserID: u.ID, Username: u.Username, Role: "customer"}
}

// seedConfirmedOrder creates a confirmed, unassigned order whose pickup point
// is stored directly on the order.
func (e *env) seedConfirmedOrder(t *testing.T, ctx context.Context, name string, lat, lng float64) *models.Order {
	t.Helper()
	customer := testutil.SeedUser(t, e.users, name+"-customer")
	author := testutil.SeedUser(t, e.users, name+"-author")
	p := testutil.SeedProduct(t, e.products, &models.Product{Name: name + "-dish", Price: 100, Stock: 10, AuthorID: author.ID})
	o := &models.Order{
		CustomerID:     customer.ID,
		DeliveryMethod: models.DeliveryMethodStandard,
		Status:         models.OrderStatusConfirmed,
		PaymentMethod:  "cod",
		PickupLat:      lat,
		PickupLng:      lng,
		DeliveryLat:    19.02,
		DeliveryLng:    72.82,
		Items:          []models.OrderItem{{ProductID: p.ID, Name: p.Name, Quantity: 1, UnitPrice: p.Price}},
	}
	o, err := e.orders.CreateWithItems(ctx, o, "Order received")
	require.NoError(t, err)
	return o
}

func TestListNearbyOrders_FiltersSortsAndAnnotates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, actor := e.seedAgent(t, ctx, "nearby-agent")

	far := e.seedConfirmedOrder(t, ctx, "far", farLat, farLng)
	near := e.seedConfirmedOrder(t, ctx, "near", nearLat, nearLng)
	mid := e.seedConfirmedOrder(t, ctx, "mid", midLat, midLng)

	got, err := e.svc.ListNearbyOrders(ctx, actor, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, near.ID, got[0].Order.ID)
	assert.Equal(t, mid.ID, got[1].Order.ID)
	assert.Less(t, got[0].Distance.Value, got[1].Distance.Value)
	assert.True(t, got[0].WithinDeliveryRange)
	assert.True(t, got[1].WithinDeliveryRange)

	all, err := e.svc.ListNearbyOrders(ctx, actor, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, far.ID, all[2].Order.ID)
	assert.False(t, all[2].WithinDeliveryRange)
	assert.Greater(t, all[2].Distance.Value, 2000.0)
}

func TestListNearbyOrders_ExcludesRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, actor := e.seedAgent(t, ctx, "rej-agent")

	near := e.seedConfirmedOrder(t, ctx, "keep", nearLat, nearLng)
	mid := e.seedConfirmedOrder(t, ctx, "drop", midLat, midLng)

	require.NoError(t, e.svc.RejectOrder(ctx, actor, mid.ID))

	got, err := e.svc.ListNearbyOrders(ctx, actor, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, near.ID, got[0].Order.ID)
}

func TestListNearbyOrders_AppendsOwnInFlightOrders(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, actor := e.seedAgent(t, ctx, "inflight-agent")

	near := e.seedConfirmedOrder(t, ctx, "claimed", nearLat, nearLng)
	mid := e.seedConfirmedOrder(t, ctx, "open", midLat, midLng)

	_, err := e.svc.AcceptOrder(ctx, actor, near.ID)
	require.NoError(t, err)

	got, err := e.svc.ListNearbyOrders(ctx, actor, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, mid.ID, got[0].Order.ID)
	// The agent's own out-for-delivery order sits at the end.
	assert.Equal(t, near.ID, got[1].Order.ID)
	assert.Equal(t, models.OrderStatusOutForDelivery, got[1].Order.Status)
	assert.Greater(t, got[1].Distance.Value, 0.0)
}

func TestListNearbyOrders_RequiresDispatchableAgent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// No agent profile at all.
	u := testutil.SeedUser(t, e.users, "no-profile")
	_, err := e.svc.ListNearbyOrders(ctx, &auth.Principal{UserID: u.ID, Username: u.Username}, false)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// Registered but unverified.
	u2 := testutil.SeedUser(t, e.users, "unverified")
	_, err = e.agents.Create(ctx, &models.DeliveryAgent{UserID: u2.ID, VehicleType: "bike", IsAvailable: true})
	require.NoError(t, err)
	_, err = e.svc.ListNearbyOrders(ctx, &auth.Principal{UserID: u2.ID, Username: u2.Username}, false)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	// Verified but unavailable.
	a3, actor3 := e.seedAgent(t, ctx, "unavailable")
	require.NoError(t, e.agents.SetAvailability(ctx, a3.ID, false))
	_, err = e.svc.ListNearbyOrders(ctx, actor3, false)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

func TestAcceptOrder_SecondAgentConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a1, actor1 := e.seedAgent(t, ctx, "accept-1")
	_, actor2 := e.seedAgent(t, ctx, "accept-2")

	o := e.seedConfirmedOrder(t, ctx, "contested", nearLat, nearLng)

	won, err := e.svc.AcceptOrder(ctx, actor1, o.ID)
	require.NoError(t, err)
	require.NotNil(t, won.DeliveryAgentID)
	assert.Equal(t, a1.ID, *won.DeliveryAgentID)
	assert.Equal(t, models.OrderStatusOutForDelivery, won.Status)
	assert.NotNil(t, won.EstimatedDeliveryTime)

	_, err = e.svc.AcceptOrder(ctx, actor2, o.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Winner's active set has the order; the loser's does not.
	active, err := e.agents.ActiveOrderIDs(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{o.ID}, active)

	// The assignment is recorded in the history trail.
	require.NotEmpty(t, won.History)
	last := won.History[len(won.History)-1]
	assert.Equal(t, models.OrderStatusOutForDelivery, last.Status)
}

func TestAcceptOrder_RequiresConfirmedOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, actor := e.seedAgent(t, ctx, "status-agent")

	o := e.seedConfirmedOrder(t, ctx, "not-ready", nearLat, nearLng)
	require.NoError(t, e.orders.UpdateStatus(ctx, o.ID, models.OrderStatusPreparing))

	_, err := e.svc.AcceptOrder(ctx, actor, o.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = e.svc.AcceptOrder(ctx, actor, 98765)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRejectOrder_IdempotentAndGuarded(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, actor := e.seedAgent(t, ctx, "rej-twice")
	_, actor2 := e.seedAgent(t, ctx, "rej-other")

	o := e.seedConfirmedOrder(t, ctx, "rejectable", nearLat, nearLng)

	require.NoError(t, e.svc.RejectOrder(ctx, actor, o.ID))
	require.NoError(t, e.svc.RejectOrder(ctx, actor, o.ID))

	// The order is untouched and still visible to other agents.
	got, err := e.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, got.Status)
	assert.Nil(t, got.DeliveryAgentID)

	// Once assigned, rejection conflicts.
	_, err = e.svc.AcceptOrder(ctx, actor2, o.ID)
	require.NoError(t, err)
	err = e.svc.RejectOrder(ctx, actor, o.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCompleteDelivery_MovesActiveToHistory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, actor := e.seedAgent(t, ctx, "deliver")
	_, other := e.seedAgent(t, ctx, "deliver-other")

	o := e.seedConfirmedOrder(t, ctx, "deliverable", nearLat, nearLng)
	_, err := e.svc.AcceptOrder(ctx, actor, o.ID)
	require.NoError(t, err)

	_, err = e.svc.CompleteDelivery(ctx, other, o.ID)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	done, err := e.svc.CompleteDelivery(ctx, actor, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, done.Status)
	assert.NotNil(t, done.ActualDeliveryTime)

	active, err := e.agents.ActiveOrderIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
	hist, err := e.agents.DeliveryHistoryOrderIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{o.ID}, hist)

	_, err = e.svc.CompleteDelivery(ctx, actor, o.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestAssignAgentByAdmin_ConflictsInsteadOfOverwriting(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a1, actor1 := e.seedAgent(t, ctx, "admin-target-1")
	a2, _ := e.seedAgent(t, ctx, "admin-target-2")
	admin := &auth.Principal{UserID: 1000, Username: "ops", Role: "admin"}

	o := e.seedConfirmedOrder(t, ctx, "forced", nearLat, nearLng)

	_, err := e.svc.AssignAgentByAdmin(ctx, actor1, o.ID, a1.ID)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	assigned, err := e.svc.AssignAgentByAdmin(ctx, admin, o.ID, a1.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.DeliveryAgentID)
	assert.Equal(t, a1.ID, *assigned.DeliveryAgentID)

	_, err = e.svc.AssignAgentByAdmin(ctx, admin, o.ID, a2.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	got, err := e.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, a1.ID, *got.DeliveryAgentID)
}

func TestRegisterAgent_DuplicateConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u := testutil.SeedUser(t, e.users, "register-rider")
	actor := &auth.Principal{UserID: u.ID, Username: u.Username}

	a, err := e.svc.RegisterAgent(ctx, actor, "scooter", "MH-12-3456")
	require.NoError(t, err)
	assert.False(t, a.IsVerified)
	assert.True(t, a.IsAvailable)

	_, err = e.svc.RegisterAgent(ctx, actor, "car", "MH-12-9999")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = e.svc.RegisterAgent(ctx, &auth.Principal{UserID: u.ID + 1}, "", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRateAgent_CustomerOfDeliveredOrderOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, actor := e.seedAgent(t, ctx, "rated")

	o := e.seedConfirmedOrder(t, ctx, "ratable", nearLat, nearLng)
	_, err := e.svc.AcceptOrder(ctx, actor, o.ID)
	require.NoError(t, err)

	customer := &auth.Principal{UserID: o.CustomerID, Username: "ratable-customer"}

	// Not delivered yet.
	err = e.svc.RateAgent(ctx, customer, o.ID, 5)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = e.svc.CompleteDelivery(ctx, actor, o.ID)
	require.NoError(t, err)

	err = e.svc.RateAgent(ctx, &auth.Principal{UserID: 54321}, o.ID, 5)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	err = e.svc.RateAgent(ctx, customer, o.ID, 9)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, e.svc.RateAgent(ctx, customer, o.ID, 4))
	got, err := e.agents.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.RatingCount)
	assert.Equal(t, 4.0, got.Rating())
}

func TestAcceptOrder_ETAWindow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, actor := e.seedAgent(t, ctx, "eta-agent")

	o := e.seedConfirmedOrder(t, ctx, "eta", nearLat, nearLng)
	won, err := e.svc.AcceptOrder(ctx, actor, o.ID)
	require.NoError(t, err)
	require.NotNil(t, won.EstimatedDeliveryTime)
	assert.WithinDuration(t, time.Now().UTC().Add(deliveryETA), *won.EstimatedDeliveryTime, time.Minute)
}
