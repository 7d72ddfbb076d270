// Package session keeps one cart engine and one tracking aggregator per user.
//
// Engines are created on first use, restored from the snapshot store if a
// snapshot exists, and written back through SaveCart/SaveTracking after each
// command. There is no process-wide engine; the Manager is passed explicitly.
package session

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"foodflow-backend/internal/cart"
	"foodflow-backend/internal/models"
	"foodflow-backend/internal/tracking"
)

// Store persists opaque per-user snapshots
// Load methods return nil, nil when nothing was stored
type Store interface {
	LoadCart(ctx context.Context, userID string) (*models.Cart, error)
	SaveCart(ctx context.Context, userID string, c *models.Cart) error
	LoadTracking(ctx context.Context, userID string) (*models.TrackingSnapshot, error)
	SaveTracking(ctx context.Context, userID string, snap *models.TrackingSnapshot) error
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the clock used for idle tracking
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager is the registry of live engines
type Manager struct {
	store      Store
	newCart    func() *cart.Engine
	newTracker func() *tracking.Aggregator
	now        func() time.Time

	mu       sync.RWMutex
	carts    map[string]*cart.Engine
	trackers map[string]*tracking.Aggregator
	lastUsed map[string]time.Time
	fleet    map[string]bool // users who see every order (superadmins)
}

// DispatchResult says which users a location sample reached
type DispatchResult struct {
	Updated  []string // aggregators that accepted the sample
	Watchers []string // the subset whose active session is the order
}

// NewManager creates a registry; a nil store keeps everything in memory
func NewManager(store Store, newCart func() *cart.Engine, newTracker func() *tracking.Aggregator, opts ...Option) *Manager {
	if newCart == nil {
		newCart = func() *cart.Engine { return cart.NewEngine() }
	}
	if newTracker == nil {
		newTracker = func() *tracking.Aggregator { return tracking.NewAggregator() }
	}

	m := &Manager{
		store:      store,
		newCart:    newCart,
		newTracker: newTracker,
		now:        time.Now,
		carts:      make(map[string]*cart.Engine),
		trackers:   make(map[string]*tracking.Aggregator),
		lastUsed:   make(map[string]time.Time),
		fleet:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cart returns the user's cart engine, restoring it from the store on first use
func (m *Manager) Cart(ctx context.Context, userID string) (*cart.Engine, error) {
	m.mu.Lock()
	engine, ok := m.carts[userID]
	if ok {
		m.lastUsed[userID] = m.now()
	}
	m.mu.Unlock()
	if ok {
		return engine, nil
	}

	engine = m.newCart()
	if m.store != nil {
		snapshot, err := m.store.LoadCart(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load cart for %s: %w", userID, err)
		}
		engine.Restore(snapshot)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastUsed[userID] = m.now()
	// Another request may have restored it meanwhile
	if existing, ok := m.carts[userID]; ok {
		return existing, nil
	}
	m.carts[userID] = engine
	return engine, nil
}

// SaveCart persists the user's current cart (deleting the record when there is none)
func (m *Manager) SaveCart(ctx context.Context, userID string) error {
	if m.store == nil {
		return nil
	}

	m.mu.RLock()
	engine, ok := m.carts[userID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	if err := m.store.SaveCart(ctx, userID, engine.Cart()); err != nil {
		return fmt.Errorf("failed to save cart for %s: %w", userID, err)
	}
	return nil
}

// Tracker returns the user's tracking aggregator, restoring it on first use
func (m *Manager) Tracker(ctx context.Context, userID string) (*tracking.Aggregator, error) {
	m.mu.Lock()
	agg, ok := m.trackers[userID]
	if ok {
		m.lastUsed[userID] = m.now()
	}
	m.mu.Unlock()
	if ok {
		return agg, nil
	}

	agg = m.newTracker()
	if m.store != nil {
		snapshot, err := m.store.LoadTracking(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load tracking for %s: %w", userID, err)
		}
		agg.Restore(snapshot)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastUsed[userID] = m.now()
	if existing, ok := m.trackers[userID]; ok {
		return existing, nil
	}
	m.trackers[userID] = agg
	return agg, nil
}

// SaveTracking persists the user's tracking state
func (m *Manager) SaveTracking(ctx context.Context, userID string) error {
	if m.store == nil {
		return nil
	}

	m.mu.RLock()
	agg, ok := m.trackers[userID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	if err := m.store.SaveTracking(ctx, userID, agg.Snapshot()); err != nil {
		return fmt.Errorf("failed to save tracking for %s: %w", userID, err)
	}
	return nil
}

// SetFleetViewer marks a user whose aggregator receives every order's samples
func (m *Manager) SetFleetViewer(userID string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if enabled {
		m.fleet[userID] = true
	} else {
		delete(m.fleet, userID)
	}
}

// DispatchLocation applies a location event to the order's customer and to live fleet viewers
// Nobody else's ledger sees the order. The customer's aggregator is restored if it is not live.
func (m *Manager) DispatchLocation(ctx context.Context, orderID, customerID string, loc models.DeliveryLocation) (*DispatchResult, error) {
	targets := make(map[string]*tracking.Aggregator)
	if customerID != "" {
		agg, err := m.Tracker(ctx, customerID)
		if err != nil {
			return nil, err
		}
		targets[customerID] = agg
	}

	m.mu.RLock()
	for userID := range m.fleet {
		if agg, ok := m.trackers[userID]; ok {
			targets[userID] = agg
		}
	}
	m.mu.RUnlock()

	result := &DispatchResult{}
	for userID, agg := range targets {
		if !agg.UpdateDeliveryLocation(orderID, loc) {
			continue
		}
		result.Updated = append(result.Updated, userID)
		if agg.IsWatching(orderID) {
			result.Watchers = append(result.Watchers, userID)
		}
	}
	sort.Strings(result.Updated)
	sort.Strings(result.Watchers)
	return result, nil
}

// ForgetOrder drops a finished order from every ledger
func (m *Manager) ForgetOrder(orderID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, agg := range m.trackers {
		agg.Forget(orderID)
	}
}

// Release drops a user's live engines (after persisting them)
func (m *Manager) Release(ctx context.Context, userID string) {
	if err := m.SaveCart(ctx, userID); err != nil {
		log.Printf("⚠️  Failed to persist cart on release: %v", err)
	}
	if err := m.SaveTracking(ctx, userID); err != nil {
		log.Printf("⚠️  Failed to persist tracking on release: %v", err)
	}

	m.mu.Lock()
	delete(m.carts, userID)
	delete(m.trackers, userID)
	delete(m.lastUsed, userID)
	delete(m.fleet, userID)
	m.mu.Unlock()
}

// Sweep releases users idle for longer than idle and applies ledger expiry to the rest
func (m *Manager) Sweep(ctx context.Context, idle time.Duration) int {
	now := m.now()

	m.mu.RLock()
	var stale []string
	for userID, used := range m.lastUsed {
		if now.Sub(used) > idle {
			stale = append(stale, userID)
		}
	}
	m.mu.RUnlock()

	for _, userID := range stale {
		m.Release(ctx, userID)
	}

	m.mu.RLock()
	live := make([]*tracking.Aggregator, 0, len(m.trackers))
	for _, agg := range m.trackers {
		live = append(live, agg)
	}
	m.mu.RUnlock()

	evicted := 0
	for _, agg := range live {
		evicted += agg.Evict()
	}

	if len(stale) > 0 || evicted > 0 {
		log.Printf("🧹 Session sweep: released %d idle user(s), evicted %d ledger entries", len(stale), evicted)
	}
	return len(stale)
}

// Run sweeps every interval until ctx is cancelled
func (m *Manager) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx, idle)
		}
	}
}

// Stats returns the number of live engines
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"live_carts":    len(m.carts),
		"live_trackers": len(m.trackers),
		"fleet_viewers": len(m.fleet),
	}
}
