package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"foodflow-backend/internal/models"
	"foodflow-backend/internal/tracking"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory Store
type memoryStore struct {
	mu       sync.Mutex
	carts    map[string]*models.Cart
	tracking map[string]*models.TrackingSnapshot
	loadErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		carts:    make(map[string]*models.Cart),
		tracking: make(map[string]*models.TrackingSnapshot),
	}
}

func (s *memoryStore) LoadCart(ctx context.Context, userID string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.carts[userID].Clone(), nil
}

func (s *memoryStore) SaveCart(ctx context.Context, userID string, c *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		delete(s.carts, userID)
		return nil
	}
	s.carts[userID] = c.Clone()
	return nil
}

func (s *memoryStore) LoadTracking(ctx context.Context, userID string) (*models.TrackingSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.tracking[userID], nil
}

func (s *memoryStore) SaveTracking(ctx context.Context, userID string, snap *models.TrackingSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap == nil {
		delete(s.tracking, userID)
		return nil
	}
	s.tracking[userID] = snap
	return nil
}

func item(price int64) models.CartLineInput {
	return models.CartLineInput{
		MenuItemID: "menu-1",
		Name:       "Beef Tehari",
		Price:      decimal.NewFromInt(price),
		Quantity:   1,
		Addons:     []models.CartAddon{},
	}
}

func TestManager_CartIsPerUser(t *testing.T) {
	m := NewManager(nil, nil, nil)
	ctx := context.Background()

	alice, err := m.Cart(ctx, "alice")
	require.NoError(t, err)
	bob, err := m.Cart(ctx, "bob")
	require.NoError(t, err)

	_, err = alice.AddItem("R1", "Rest1", item(100))
	require.NoError(t, err)

	assert.Equal(t, 1, alice.ItemCount())
	assert.Equal(t, 0, bob.ItemCount())

	again, err := m.Cart(ctx, "alice")
	require.NoError(t, err)
	assert.Same(t, alice, again)
}

func TestManager_CartSurvivesRelease(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, nil, nil)
	ctx := context.Background()

	engine, err := m.Cart(ctx, "alice")
	require.NoError(t, err)
	_, err = engine.AddItem("R1", "Rest1", item(200))
	require.NoError(t, err)
	require.NoError(t, m.SaveCart(ctx, "alice"))

	m.Release(ctx, "alice")
	assert.Equal(t, 0, m.Stats()["live_carts"])

	restored, err := m.Cart(ctx, "alice")
	require.NoError(t, err)
	assert.NotSame(t, engine, restored)

	c := restored.Cart()
	require.NotNil(t, c)
	assert.Equal(t, "R1", c.RestaurantID)
	assert.True(t, c.Total.Equal(decimal.NewFromInt(244)))
}

func TestManager_SaveClearedCartDeletesSnapshot(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, nil, nil)
	ctx := context.Background()

	engine, _ := m.Cart(ctx, "alice")
	_, err := engine.AddItem("R1", "Rest1", item(100))
	require.NoError(t, err)
	require.NoError(t, m.SaveCart(ctx, "alice"))
	require.Contains(t, store.carts, "alice")

	engine.ClearCart()
	require.NoError(t, m.SaveCart(ctx, "alice"))
	assert.NotContains(t, store.carts, "alice")
}

func TestManager_LoadErrorIsReturned(t *testing.T) {
	store := newMemoryStore()
	store.loadErr = errors.New("connection refused")
	m := NewManager(store, nil, nil)

	_, err := m.Cart(context.Background(), "alice")
	assert.Error(t, err)

	_, err = m.Tracker(context.Background(), "alice")
	assert.Error(t, err)
}

func TestManager_DispatchLocationReachesOnlyCustomerAndFleet(t *testing.T) {
	m := NewManager(nil, nil, nil)
	ctx := context.Background()

	bob, err := m.Tracker(ctx, "bob")
	require.NoError(t, err)
	bob.SetActiveTracking(&models.TrackingSession{OrderID: "bob-order", DeliveryPersonID: "rider-1"})

	alice, err := m.Tracker(ctx, "alice")
	require.NoError(t, err)
	admin, err := m.Tracker(ctx, "admin")
	require.NoError(t, err)
	m.SetFleetViewer("admin", true)

	loc := models.DeliveryLocation{Latitude: 23.78, Longitude: 90.4, Timestamp: 100}
	result, err := m.DispatchLocation(ctx, "bob-order", "bob", loc)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "bob"}, result.Updated)
	assert.Equal(t, []string{"bob"}, result.Watchers)

	got, ok := admin.Location("bob-order")
	require.True(t, ok)
	assert.Equal(t, loc, got)

	// Another customer's ledger never sees the order
	_, ok = alice.Location("bob-order")
	assert.False(t, ok)
	assert.Empty(t, alice.Locations())

	// An older sample is rejected everywhere
	stale := models.DeliveryLocation{Latitude: 1, Longitude: 1, Timestamp: 50}
	result, err = m.DispatchLocation(ctx, "bob-order", "bob", stale)
	require.NoError(t, err)
	assert.Empty(t, result.Updated)
	assert.Empty(t, result.Watchers)
}

func TestManager_DispatchLocationRestoresOfflineCustomer(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, nil, nil)
	ctx := context.Background()

	agg, _ := m.Tracker(ctx, "bob")
	agg.SetActiveTracking(&models.TrackingSession{OrderID: "bob-order"})
	m.Release(ctx, "bob")
	require.Equal(t, 0, m.Stats()["live_trackers"])

	result, err := m.DispatchLocation(ctx, "bob-order", "bob", models.DeliveryLocation{Latitude: 2, Longitude: 2, Timestamp: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, result.Watchers)
}

func TestManager_DispatchLocationLoadError(t *testing.T) {
	store := newMemoryStore()
	store.loadErr = errors.New("connection refused")
	m := NewManager(store, nil, nil)

	_, err := m.DispatchLocation(context.Background(), "order-1", "bob", models.DeliveryLocation{Latitude: 1, Longitude: 1})
	assert.Error(t, err)
}

func TestManager_TrackingSurvivesRelease(t *testing.T) {
	store := newMemoryStore()
	m := NewManager(store, nil, nil)
	ctx := context.Background()

	agg, _ := m.Tracker(ctx, "alice")
	agg.SetActiveTracking(&models.TrackingSession{OrderID: "order-1", DeliveryPersonID: "rider-1"})
	_, err := m.DispatchLocation(ctx, "order-1", "alice", models.DeliveryLocation{Latitude: 23.78, Longitude: 90.4, Timestamp: 1})
	require.NoError(t, err)

	m.Release(ctx, "alice")

	restored, err := m.Tracker(ctx, "alice")
	require.NoError(t, err)
	active := restored.ActiveTracking()
	require.NotNil(t, active)
	assert.Equal(t, "order-1", active.OrderID)
	require.NotNil(t, active.CurrentLocation)
	assert.Equal(t, 23.78, active.CurrentLocation.Latitude)
}

func TestManager_ForgetOrder(t *testing.T) {
	m := NewManager(nil, nil, nil)
	ctx := context.Background()

	agg, _ := m.Tracker(ctx, "alice")
	_, err := m.DispatchLocation(ctx, "order-1", "alice", models.DeliveryLocation{Latitude: 1, Longitude: 1, Timestamp: 1})
	require.NoError(t, err)

	m.ForgetOrder("order-1")
	_, ok := agg.Location("order-1")
	assert.False(t, ok)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(newMemoryStore(), nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			engine, err := m.Cart(ctx, "alice")
			if err != nil {
				return
			}
			engine.AddItem("R1", "Rest1", item(10))
			_, _ = m.DispatchLocation(ctx, "order-1", "alice", models.DeliveryLocation{Latitude: 1, Longitude: 1, Timestamp: int64(n)})
			_ = m.SaveCart(ctx, "alice")
		}(i)
	}
	wg.Wait()

	engine, err := m.Cart(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 20, engine.ItemCount())
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestManager_SweepReleasesIdleUsers(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemoryStore()
	m := NewManager(store, nil, nil, WithClock(clock.Now))
	ctx := context.Background()

	engine, _ := m.Cart(ctx, "alice")
	_, err := engine.AddItem("R1", "Rest1", item(100))
	require.NoError(t, err)
	_, _ = m.Tracker(ctx, "alice")
	m.SetFleetViewer("alice", true)

	clock.Advance(20 * time.Minute)
	_, _ = m.Cart(ctx, "bob")

	clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, m.Sweep(ctx, 30*time.Minute))

	stats := m.Stats()
	assert.Equal(t, 1, stats["live_carts"])
	assert.Equal(t, 0, stats["live_trackers"])
	assert.Equal(t, 0, stats["fleet_viewers"])

	// Released state was persisted on the way out
	require.Contains(t, store.carts, "alice")
	restored, err := m.Cart(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, restored.ItemCount())

	assert.Equal(t, 0, m.Sweep(ctx, 30*time.Minute))
}

func TestManager_SweepEvictsExpiredLedgerEntries(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(nil, nil, func() *tracking.Aggregator {
		return tracking.NewAggregator(tracking.WithClock(clock.Now), tracking.WithLedgerTTL(10*time.Minute))
	}, WithClock(clock.Now))
	ctx := context.Background()

	agg, _ := m.Tracker(ctx, "alice")
	_, err := m.DispatchLocation(ctx, "order-1", "alice", models.DeliveryLocation{Latitude: 1, Longitude: 1, Timestamp: 1})
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)
	assert.Equal(t, 0, m.Sweep(ctx, time.Hour))

	_, ok := agg.Location("order-1")
	assert.False(t, ok)
}
