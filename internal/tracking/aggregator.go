// Package tracking aggregates live delivery locations.
//
// An Aggregator keeps the latest known location per in-flight order (the ledger),
// one actively watched tracking session, and a set of map markers. It consumes
// discrete location events pushed by a transport and does no I/O itself.
package tracking

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"foodflow-backend/internal/models"
)

// ErrInvalidLocation is returned for samples with out of range coordinates
var ErrInvalidLocation = errors.New("invalid location")

// ValidateLocation checks a sample before it is handed to an aggregator
func ValidateLocation(loc models.DeliveryLocation) error {
	if math.IsNaN(loc.Latitude) || loc.Latitude < -90 || loc.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidLocation, loc.Latitude)
	}
	if math.IsNaN(loc.Longitude) || loc.Longitude < -180 || loc.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidLocation, loc.Longitude)
	}
	if loc.Accuracy != nil && *loc.Accuracy < 0 {
		return fmt.Errorf("%w: negative accuracy", ErrInvalidLocation)
	}
	if loc.Speed != nil && *loc.Speed < 0 {
		return fmt.Errorf("%w: negative speed", ErrInvalidLocation)
	}
	return nil
}

// IsStale reports whether a sample stamped incoming is older than the stored one
// A zero timestamp means the client sent none, so it is never stale
func IsStale(current, incoming int64) bool {
	return incoming != 0 && incoming < current
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock overrides the wall clock used for ledger expiry
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLedgerTTL drops ledger entries not refreshed within ttl (0 disables)
func WithLedgerTTL(ttl time.Duration) Option {
	return func(a *Aggregator) { a.ledger.ttl = ttl }
}

// WithLedgerMaxEntries caps the number of tracked orders (0 disables)
func WithLedgerMaxEntries(n int) Option {
	return func(a *Aggregator) { a.ledger.maxEntries = n }
}

// WithRouteFolder sets the policy that grows the active session's route
// A nil folder leaves routes untouched
func WithRouteFolder(folder RouteFolder) Option {
	return func(a *Aggregator) { a.folder = folder }
}

// WithStaleRejection toggles dropping samples older than the ledger entry
func WithStaleRejection(enabled bool) Option {
	return func(a *Aggregator) { a.rejectStale = enabled }
}

// Stats reports aggregator counters
type Stats struct {
	Applied       int64 `json:"applied"`
	RejectedStale int64 `json:"rejected_stale"`
	Evictions     int64 `json:"evictions"`
	TrackedOrders int   `json:"tracked_orders"`
}

// Aggregator holds one viewer's tracking state
type Aggregator struct {
	mu          sync.Mutex
	active      *models.TrackingSession
	ledger      *ledger
	markers     []models.MapMarker
	folder      RouteFolder
	rejectStale bool
	now         func() time.Time

	applied       int64
	rejectedStale int64
}

// NewAggregator creates an empty aggregator
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		ledger:      newLedger(DefaultLedgerTTL, DefaultLedgerMaxEntries),
		markers:     []models.MapMarker{},
		folder:      DeltaFolder{MinDistanceMeters: DefaultMinRouteDeltaMeters},
		rejectStale: true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetActiveTracking replaces the watched session wholesale (nil clears it)
func (a *Aggregator) SetActiveTracking(session *models.TrackingSession) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.active = session.Clone()
	if a.active != nil && a.active.Route == nil {
		a.active.Route = []models.Coordinates{}
	}
}

// ActiveTracking returns a copy of the watched session
func (a *Aggregator) ActiveTracking() *models.TrackingSession {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.active.Clone()
}

// IsWatching reports whether the active session is for orderID
func (a *Aggregator) IsWatching(orderID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.active != nil && a.active.OrderID == orderID
}

// UpdateDeliveryLocation records the latest sample for an order
// The ledger and the watched session always end up with the same sample.
// Returns false when the sample was rejected as older than what we already have.
func (a *Aggregator) UpdateDeliveryLocation(orderID string, loc models.DeliveryLocation) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rejectStale {
		if current, ok := a.ledger.get(orderID); ok && IsStale(current.Timestamp, loc.Timestamp) {
			a.rejectedStale++
			return false
		}
	}

	now := a.now()
	a.ledger.put(orderID, loc, now)

	if a.active != nil && a.active.OrderID == orderID {
		sample := loc
		a.active.CurrentLocation = &sample
		if a.folder != nil {
			a.active.Route = a.folder.Fold(a.active.Route, loc)
		}
	}

	a.applied++
	a.ledger.evict(now, a.watchedOrder(), orderID)
	return true
}

// Location returns the latest sample for an order
func (a *Aggregator) Location(orderID string) (models.DeliveryLocation, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.ledger.get(orderID)
}

// Locations returns a copy of the whole ledger
func (a *Aggregator) Locations() map[string]models.DeliveryLocation {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.ledger.snapshot()
}

// Forget drops an order that is no longer in flight
func (a *Aggregator) Forget(orderID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ledger.remove(orderID)
}

// Evict applies the expiry and capacity policy now
func (a *Aggregator) Evict() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.ledger.evict(a.now(), a.watchedOrder())
}

// ClearTracking resets the session, the ledger and the markers
func (a *Aggregator) ClearTracking() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.active = nil
	a.ledger.reset()
	a.markers = []models.MapMarker{}
}

// SetMarkers replaces all markers
func (a *Aggregator) SetMarkers(markers []models.MapMarker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.markers = cloneMarkers(markers)
}

// AddMarker adds a marker, replacing any marker with the same id
func (a *Aggregator) AddMarker(marker models.MapMarker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.markers {
		if a.markers[i].ID == marker.ID {
			a.markers[i] = marker
			return
		}
	}
	a.markers = append(a.markers, marker)
}

// RemoveMarker removes a marker by id
func (a *Aggregator) RemoveMarker(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	kept := a.markers[:0]
	for _, m := range a.markers {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	a.markers = kept
}

// UpdateMarkerPosition moves a marker; unknown ids are ignored
func (a *Aggregator) UpdateMarkerPosition(id string, coordinates models.Coordinates) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.markers {
		if a.markers[i].ID == id {
			a.markers[i].Coordinates = coordinates
		}
	}
}

// Markers returns a copy of the markers
func (a *Aggregator) Markers() []models.MapMarker {
	a.mu.Lock()
	defer a.mu.Unlock()

	return cloneMarkers(a.markers)
}

// Snapshot returns the persistable state
func (a *Aggregator) Snapshot() *models.TrackingSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &models.TrackingSnapshot{
		ActiveTracking: a.active.Clone(),
		Locations:      a.ledger.snapshot(),
		Markers:        cloneMarkers(a.markers),
	}
}

// Restore loads a persisted snapshot; ledger entries count as received now
func (a *Aggregator) Restore(snap *models.TrackingSnapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.active = nil
	a.ledger.reset()
	a.markers = []models.MapMarker{}

	if snap == nil {
		return
	}

	a.active = snap.ActiveTracking.Clone()
	now := a.now()
	for orderID, loc := range snap.Locations {
		a.ledger.put(orderID, loc, now)
	}
	a.markers = cloneMarkers(snap.Markers)
}

// Stats returns aggregator counters
func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Stats{
		Applied:       a.applied,
		RejectedStale: a.rejectedStale,
		Evictions:     a.ledger.evictions,
		TrackedOrders: len(a.ledger.entries),
	}
}

func (a *Aggregator) watchedOrder() string {
	if a.active == nil {
		return ""
	}
	return a.active.OrderID
}

func cloneMarkers(markers []models.MapMarker) []models.MapMarker {
	out := make([]models.MapMarker, len(markers))
	for i, m := range markers {
		out[i] = m
		if m.Label != nil {
			label := *m.Label
			out[i].Label = &label
		}
		if m.Icon != nil {
			icon := *m.Icon
			out[i].Icon = &icon
		}
	}
	return out
}
