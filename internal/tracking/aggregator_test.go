package tracking

import (
	"fmt"
	"testing"
	"time"

	"foodflow-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func sample(lat, lng float64, ts int64) models.DeliveryLocation {
	return models.DeliveryLocation{Latitude: lat, Longitude: lng, Timestamp: ts}
}

func session(orderID string) *models.TrackingSession {
	return &models.TrackingSession{
		OrderID:          orderID,
		DeliveryPersonID: "rider-1",
		Status:           string(models.OrderStatusInTransit),
	}
}

func TestUpdateDeliveryLocation_LedgerAndActiveSessionAgree(t *testing.T) {
	a := NewAggregator()
	a.SetActiveTracking(session("order-1"))

	heading := 90.0
	loc := models.DeliveryLocation{Latitude: 23.78, Longitude: 90.40, Heading: &heading, Timestamp: 1000}

	assert.True(t, a.UpdateDeliveryLocation("order-1", loc))

	got, ok := a.Location("order-1")
	require.True(t, ok)
	assert.Equal(t, loc, got)

	active := a.ActiveTracking()
	require.NotNil(t, active.CurrentLocation)
	assert.Equal(t, loc, *active.CurrentLocation)
}

func TestUpdateDeliveryLocation_OtherOrderLeavesSessionAlone(t *testing.T) {
	a := NewAggregator()
	a.SetActiveTracking(session("order-1"))

	a.UpdateDeliveryLocation("order-2", sample(23.7, 90.3, 1))

	_, ok := a.Location("order-2")
	assert.True(t, ok)
	assert.Nil(t, a.ActiveTracking().CurrentLocation)
	assert.Empty(t, a.ActiveTracking().Route)
}

func TestUpdateDeliveryLocation_WithoutSession(t *testing.T) {
	a := NewAggregator()

	for i := 0; i < 5; i++ {
		orderID := fmt.Sprintf("order-%d", i)
		loc := sample(23.7+float64(i)*0.01, 90.4, int64(i))
		require.True(t, a.UpdateDeliveryLocation(orderID, loc))

		got, ok := a.Location(orderID)
		require.True(t, ok)
		assert.Equal(t, loc, got)
	}

	assert.Len(t, a.Locations(), 5)
	assert.Nil(t, a.ActiveTracking())
}

func TestUpdateDeliveryLocation_RejectsStaleSamples(t *testing.T) {
	a := NewAggregator()
	a.SetActiveTracking(session("order-1"))

	newer := sample(23.80, 90.41, 2000)
	older := sample(23.70, 90.30, 1000)

	require.True(t, a.UpdateDeliveryLocation("order-1", newer))
	assert.False(t, a.UpdateDeliveryLocation("order-1", older))

	got, _ := a.Location("order-1")
	assert.Equal(t, newer, got)
	assert.Equal(t, newer, *a.ActiveTracking().CurrentLocation)
	assert.Equal(t, int64(1), a.Stats().RejectedStale)

	// Equal timestamps are applied
	same := sample(23.81, 90.42, 2000)
	assert.True(t, a.UpdateDeliveryLocation("order-1", same))
	got, _ = a.Location("order-1")
	assert.Equal(t, same, got)
}

func TestUpdateDeliveryLocation_CallOrderWhenStaleRejectionDisabled(t *testing.T) {
	a := NewAggregator(WithStaleRejection(false))

	require.True(t, a.UpdateDeliveryLocation("order-1", sample(1, 1, 2000)))
	require.True(t, a.UpdateDeliveryLocation("order-1", sample(2, 2, 1000)))

	got, _ := a.Location("order-1")
	assert.Equal(t, sample(2, 2, 1000), got)
}

func TestRouteGrowsWithDeltaFolder(t *testing.T) {
	a := NewAggregator(WithRouteFolder(DeltaFolder{MinDistanceMeters: 10}))
	a.SetActiveTracking(session("order-1"))

	a.UpdateDeliveryLocation("order-1", sample(23.780000, 90.400000, 1))
	// ~1 m north, jitter
	a.UpdateDeliveryLocation("order-1", sample(23.780009, 90.400000, 2))
	// ~111 m north
	a.UpdateDeliveryLocation("order-1", sample(23.781000, 90.400000, 3))

	route := a.ActiveTracking().Route
	require.Len(t, route, 2)
	assert.Equal(t, models.Coordinates{23.78, 90.4}, route[0])
	assert.Equal(t, models.Coordinates{23.781, 90.4}, route[1])

	// Latest location still follows every sample
	assert.Equal(t, int64(3), a.ActiveTracking().CurrentLocation.Timestamp)
}

func TestRouteUntouchedWithoutFolder(t *testing.T) {
	a := NewAggregator(WithRouteFolder(nil))
	s := session("order-1")
	s.Route = []models.Coordinates{{1, 1}}
	a.SetActiveTracking(s)

	a.UpdateDeliveryLocation("order-1", sample(2, 2, 1))
	assert.Equal(t, []models.Coordinates{{1, 1}}, a.ActiveTracking().Route)
}

func TestSetActiveTrackingReplacesSession(t *testing.T) {
	a := NewAggregator(WithRouteFolder(AppendFolder{}))
	a.SetActiveTracking(session("order-1"))
	a.UpdateDeliveryLocation("order-1", sample(1, 1, 1))
	require.Len(t, a.ActiveTracking().Route, 1)

	a.SetActiveTracking(session("order-2"))
	active := a.ActiveTracking()
	assert.Equal(t, "order-2", active.OrderID)
	assert.Empty(t, active.Route)
	assert.Nil(t, active.CurrentLocation)

	// Ledger is independent of the watched session
	_, ok := a.Location("order-1")
	assert.True(t, ok)

	a.SetActiveTracking(nil)
	assert.Nil(t, a.ActiveTracking())
	assert.False(t, a.IsWatching("order-2"))
}

func TestClearTracking(t *testing.T) {
	a := NewAggregator()
	a.SetActiveTracking(session("order-1"))
	a.UpdateDeliveryLocation("order-1", sample(1, 1, 1))
	a.AddMarker(models.MapMarker{ID: "m1", Type: models.MarkerTypeRestaurant})

	a.ClearTracking()

	assert.Nil(t, a.ActiveTracking())
	assert.Empty(t, a.Locations())
	assert.Empty(t, a.Markers())
}

func TestMarkers(t *testing.T) {
	a := NewAggregator()
	label := "Sultan's Dine"

	a.SetMarkers([]models.MapMarker{
		{ID: "restaurant", Type: models.MarkerTypeRestaurant, Coordinates: models.Coordinates{23.79, 90.41}, Label: &label},
		{ID: "home", Type: models.MarkerTypeDestination, Coordinates: models.Coordinates{23.75, 90.39}},
	})
	a.AddMarker(models.MapMarker{ID: "rider", Type: models.MarkerTypeDelivery, Coordinates: models.Coordinates{23.77, 90.40}})
	require.Len(t, a.Markers(), 3)

	a.UpdateMarkerPosition("rider", models.Coordinates{23.76, 90.395})
	a.UpdateMarkerPosition("ghost", models.Coordinates{0, 0})

	markers := a.Markers()
	require.Len(t, markers, 3)
	assert.Equal(t, models.Coordinates{23.76, 90.395}, markers[2].Coordinates)

	// Same id replaces instead of duplicating
	a.AddMarker(models.MapMarker{ID: "rider", Type: models.MarkerTypeDelivery, Coordinates: models.Coordinates{1, 1}})
	assert.Len(t, a.Markers(), 3)

	a.RemoveMarker("home")
	markers = a.Markers()
	require.Len(t, markers, 2)
	assert.Equal(t, "restaurant", markers[0].ID)
	assert.Equal(t, "rider", markers[1].ID)

	a.RemoveMarker("ghost")
	assert.Len(t, a.Markers(), 2)

	// Returned slices are copies
	markers[0].ID = "mutated"
	*markers[0].Label = "mutated"
	assert.Equal(t, "restaurant", a.Markers()[0].ID)
	assert.Equal(t, "Sultan's Dine", *a.Markers()[0].Label)
}

func TestLedgerTTLEviction(t *testing.T) {
	clock := newClock()
	a := NewAggregator(WithClock(clock.Now), WithLedgerTTL(10*time.Minute))
	a.SetActiveTracking(session("watched"))

	a.UpdateDeliveryLocation("watched", sample(1, 1, 1))
	a.UpdateDeliveryLocation("old", sample(2, 2, 1))

	clock.Advance(11 * time.Minute)
	a.UpdateDeliveryLocation("fresh", sample(3, 3, 1))

	locations := a.Locations()
	assert.Contains(t, locations, "watched")
	assert.Contains(t, locations, "fresh")
	assert.NotContains(t, locations, "old")

	clock.Advance(11 * time.Minute)
	assert.Equal(t, 1, a.Evict())
	assert.Equal(t, int64(2), a.Stats().Evictions)
	assert.Contains(t, a.Locations(), "watched")
}

func TestLedgerCapacityEviction(t *testing.T) {
	clock := newClock()
	a := NewAggregator(WithClock(clock.Now), WithLedgerMaxEntries(3), WithLedgerTTL(0))
	a.SetActiveTracking(session("order-0"))

	for i := 0; i < 5; i++ {
		a.UpdateDeliveryLocation(fmt.Sprintf("order-%d", i), sample(1, 1, 1))
		clock.Advance(time.Second)
	}

	locations := a.Locations()
	assert.Len(t, locations, 3)
	// The watched order survives even though it is the oldest
	assert.Contains(t, locations, "order-0")
	assert.Contains(t, locations, "order-3")
	assert.Contains(t, locations, "order-4")
}

func TestForget(t *testing.T) {
	a := NewAggregator()
	a.UpdateDeliveryLocation("order-1", sample(1, 1, 1))
	a.Forget("order-1")

	_, ok := a.Location("order-1")
	assert.False(t, ok)
}

func TestSnapshotRestore(t *testing.T) {
	a := NewAggregator(WithRouteFolder(AppendFolder{}))
	a.SetActiveTracking(session("order-1"))
	a.UpdateDeliveryLocation("order-1", sample(1, 1, 10))
	a.UpdateDeliveryLocation("order-2", sample(2, 2, 20))
	a.AddMarker(models.MapMarker{ID: "m1", Type: models.MarkerTypeUser, Coordinates: models.Coordinates{3, 3}})

	snap := a.Snapshot()

	b := NewAggregator()
	b.Restore(snap)

	assert.Equal(t, a.ActiveTracking(), b.ActiveTracking())
	assert.Equal(t, a.Locations(), b.Locations())
	assert.Equal(t, a.Markers(), b.Markers())

	b.Restore(nil)
	assert.Nil(t, b.ActiveTracking())
	assert.Empty(t, b.Locations())
}

func TestValidateLocation(t *testing.T) {
	neg := -1.0

	assert.NoError(t, ValidateLocation(sample(23.7, 90.4, 1)))
	assert.ErrorIs(t, ValidateLocation(sample(91, 0, 1)), ErrInvalidLocation)
	assert.ErrorIs(t, ValidateLocation(sample(0, -181, 1)), ErrInvalidLocation)
	assert.ErrorIs(t, ValidateLocation(models.DeliveryLocation{Accuracy: &neg}), ErrInvalidLocation)
	assert.ErrorIs(t, ValidateLocation(models.DeliveryLocation{Speed: &neg}), ErrInvalidLocation)
}

func TestLedgerCapacityKeepsNewestOnClockTie(t *testing.T) {
	// Every entry shares one ReceivedAt, so only the write itself can protect the new order
	for run := 0; run < 50; run++ {
		clock := newClock()
		a := NewAggregator(WithClock(clock.Now), WithLedgerMaxEntries(3), WithLedgerTTL(0))

		for i := 0; i < 6; i++ {
			orderID := fmt.Sprintf("order-%d", i)
			loc := sample(1, float64(i), int64(i+1))
			require.True(t, a.UpdateDeliveryLocation(orderID, loc))

			got, ok := a.Location(orderID)
			require.True(t, ok, "run %d: %s evicted by its own write", run, orderID)
			assert.Equal(t, loc, got)
			assert.LessOrEqual(t, len(a.Locations()), 3)
		}
	}
}

func TestIsStale(t *testing.T) {
	assert.True(t, IsStale(2000, 1000))
	assert.False(t, IsStale(2000, 2000))
	assert.False(t, IsStale(2000, 3000))
	assert.False(t, IsStale(2000, 0), "zero timestamp always applies")
	assert.False(t, IsStale(0, 0))
}

func TestUpdateDeliveryLocation_ZeroTimestampApplies(t *testing.T) {
	a := NewAggregator()
	require.True(t, a.UpdateDeliveryLocation("order-1", sample(1, 1, 2000)))
	require.True(t, a.UpdateDeliveryLocation("order-1", sample(2, 2, 0)))

	got, _ := a.Location("order-1")
	assert.Equal(t, sample(2, 2, 0), got)
}
