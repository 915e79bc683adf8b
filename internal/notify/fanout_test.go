package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodDeliveryPlatform/internal/events"
	"foodDeliveryPlatform/models"
)

type mockNotifs struct {
	created []models.Notification
	fail    bool
}

func (m *mockNotifs) Create(_ context.Context, n *models.Notification) (*models.Notification, error) {
	if m.fail {
		return nil, errors.New("store down")
	}
	m.created = append(m.created, *n)
	return n, nil
}

func (m *mockNotifs) ListByRecipient(context.Context, int64, int) ([]models.Notification, error) {
	return nil, nil
}

func (m *mockNotifs) MarkRead(context.Context, int64, int64) error { return nil }

type mockUsers struct {
	byID map[int64]*models.User
}

func (m *mockUsers) Create(context.Context, string, string) (*models.User, error) { return nil, nil }

func (m *mockUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	return m.byID[id], nil
}

func (m *mockUsers) GetByUsername(context.Context, string) (*models.User, error) { return nil, nil }

func (m *mockUsers) UpdateLocation(context.Context, int64, float64, float64) error { return nil }

type mockLive struct {
	handles  map[int64]string
	pushed   [][]byte
	pushFail bool
}

func (m *mockLive) Register(_ context.Context, userID int64, handle string) error {
	m.handles[userID] = handle
	return nil
}

func (m *mockLive) Lookup(_ context.Context, userID int64) (string, bool, error) {
	h, ok := m.handles[userID]
	return h, ok, nil
}

func (m *mockLive) Unregister(_ context.Context, userID int64) error {
	delete(m.handles, userID)
	return nil
}

func (m *mockLive) Push(_ context.Context, _ string, payload []byte) error {
	if m.pushFail {
		return errors.New("connection gone")
	}
	m.pushed = append(m.pushed, payload)
	return nil
}

type mockStream struct {
	published []events.Envelope
}

func (m *mockStream) Publish(env events.Envelope) { m.published = append(m.published, env) }

func testOrder() *models.Order {
	return &models.Order{
		ID:             11,
		CustomerID:     5,
		Status:         models.OrderStatusProcessing,
		DeliveryMethod: models.DeliveryMethodStandard,
		Total:          420,
	}
}

func TestOrderCreated_NotifiesEachAuthorOnce(t *testing.T) {
	notifs := &mockNotifs{}
	stream := &mockStream{}
	f := NewFanout(notifs, &mockUsers{}, nil, nil, stream, "test")

	f.OrderCreated(context.Background(), testOrder(), []int64{7, 8, 7, 7, 8})

	require.Len(t, notifs.created, 2)
	assert.Equal(t, int64(7), notifs.created[0].RecipientID)
	assert.Equal(t, int64(8), notifs.created[1].RecipientID)
	assert.Equal(t, models.NotificationOrderCreated, notifs.created[0].Type)
	require.NotNil(t, notifs.created[0].OrderID)
	assert.Equal(t, int64(11), *notifs.created[0].OrderID)

	require.Len(t, stream.published, 1)
	assert.Equal(t, events.TypeOrderCreated, stream.published[0].EventType)
	assert.Equal(t, "11", stream.published[0].CorrelationID)
}

func TestDeliver_PushesToRegisteredRecipient(t *testing.T) {
	notifs := &mockNotifs{}
	liveDir := &mockLive{handles: map[int64]string{5: "conn-abc"}}
	users := &mockUsers{byID: map[int64]*models.User{
		3: {ID: 3, Username: "admin-user"},
		5: {ID: 5, Username: "buyer", Email: "buyer@example.com"},
	}}
	f := NewFanout(notifs, users, liveDir, nil, nil, "test")

	f.StatusChanged(context.Background(), testOrder(), 3)

	require.Len(t, liveDir.pushed, 1)
	var ev Event
	require.NoError(t, json.Unmarshal(liveDir.pushed[0], &ev))
	assert.Equal(t, models.NotificationStatusUpdate, ev.Type)
	assert.Equal(t, int64(5), ev.Recipient)
	assert.Equal(t, "admin-user", ev.Sender.Username)
	assert.Equal(t, int64(11), ev.Order.ID)
	assert.Equal(t, 420.0, ev.Order.Total)
	assert.False(t, ev.Read)
}

func TestDeliver_NoLiveConnectionIsSilent(t *testing.T) {
	notifs := &mockNotifs{}
	liveDir := &mockLive{handles: map[int64]string{}}
	f := NewFanout(notifs, &mockUsers{}, liveDir, nil, nil, "test")

	f.Delivered(context.Background(), testOrder(), 9)

	assert.Empty(t, liveDir.pushed)
	require.Len(t, notifs.created, 1)
}

func TestDeliver_FailuresAreIsolated(t *testing.T) {
	// A dead notification store must not stop the live push, and a dead
	// connection must not stop the stream publish.
	notifs := &mockNotifs{fail: true}
	liveDir := &mockLive{handles: map[int64]string{5: "conn-abc"}}
	stream := &mockStream{}
	f := NewFanout(notifs, &mockUsers{}, liveDir, nil, stream, "test")

	f.PickupCompleted(context.Background(), testOrder(), 7)
	require.Len(t, liveDir.pushed, 1)
	require.Len(t, stream.published, 1)

	liveDir.pushFail = true
	f.PickupCompleted(context.Background(), testOrder(), 7)
	require.Len(t, stream.published, 2)
	assert.Equal(t, events.TypePickupComplete, stream.published[1].EventType)
}
