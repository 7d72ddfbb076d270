package cache

import (
	"context"
	"testing"
	"time"

	"foodflow-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisSnapshotStore_CartRoundTrip(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisSnapshotStore(client)
	ctx := context.Background()

	missing, err := store.LoadCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	code := "SAVE50"
	c := &models.Cart{
		RestaurantID:   "R1",
		RestaurantName: "Rest1",
		Items: []models.CartLine{{
			ID:       "item_1",
			Name:     "Kacchi",
			Price:    decimal.NewFromInt(100),
			Quantity: 2,
			Addons:   []models.CartAddon{},
		}},
		Subtotal:    decimal.NewFromInt(200),
		DeliveryFee: decimal.NewFromInt(30),
		ServiceFee:  decimal.NewFromInt(4),
		Tax:         decimal.NewFromInt(10),
		Discount:    decimal.NewFromInt(50),
		Total:       decimal.NewFromInt(194),
		CouponCode:  &code,
	}

	require.NoError(t, store.SaveCart(ctx, "user-1", c))
	assert.True(t, mr.Exists("foodflow:cart:user-1"))
	assert.Greater(t, mr.TTL("foodflow:cart:user-1"), time.Duration(0))

	loaded, err := store.LoadCart(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "R1", loaded.RestaurantID)
	require.Len(t, loaded.Items, 1)
	assert.True(t, loaded.Total.Equal(decimal.NewFromInt(194)))
	assert.Equal(t, "SAVE50", *loaded.CouponCode)

	// Absence of a cart removes the record
	require.NoError(t, store.SaveCart(ctx, "user-1", nil))
	assert.False(t, mr.Exists("foodflow:cart:user-1"))
}

func TestRedisSnapshotStore_TrackingRoundTrip(t *testing.T) {
	_, client := setupTestRedis(t)
	store := NewRedisSnapshotStore(client, WithPrefix("test:"), WithTTL(0))
	ctx := context.Background()

	snap := &models.TrackingSnapshot{
		ActiveTracking: &models.TrackingSession{
			OrderID:          "order-1",
			DeliveryPersonID: "rider-1",
			CurrentLocation:  &models.DeliveryLocation{Latitude: 23.78, Longitude: 90.4, Timestamp: 5},
			Route:            []models.Coordinates{{23.78, 90.4}},
			Status:           "in_transit",
		},
		Locations: map[string]models.DeliveryLocation{
			"order-1": {Latitude: 23.78, Longitude: 90.4, Timestamp: 5},
		},
		Markers: []models.MapMarker{{ID: "m1", Type: models.MarkerTypeRestaurant, Coordinates: models.Coordinates{23.79, 90.41}}},
	}

	require.NoError(t, store.SaveTracking(ctx, "user-1", snap))

	loaded, err := store.LoadTracking(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, snap, loaded)

	require.NoError(t, store.SaveTracking(ctx, "user-1", nil))
	loaded, err = store.LoadTracking(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisSnapshotStore_CorruptData(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisSnapshotStore(client)

	require.NoError(t, mr.Set("foodflow:cart:user-1", "{not json"))

	_, err := store.LoadCart(context.Background(), "user-1")
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr, _ := setupTestRedis(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()

	_, err = Connect(context.Background(), "not-a-url")
	assert.Error(t, err)
}
