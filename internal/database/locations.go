package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"foodflow-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// upsertDeliveryLocationQuery keeps the newest sample per order
// Same stale rule as tracking.IsStale: an older timestamp loses, a zero timestamp always wins
const upsertDeliveryLocationQuery = `
	INSERT INTO delivery_locations (
		order_id, agent_id, latitude, longitude, heading, speed, accuracy, timestamp, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, EXTRACT(EPOCH FROM NOW())::BIGINT)
	ON CONFLICT (order_id)
	DO UPDATE SET
		agent_id = EXCLUDED.agent_id,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		heading = EXCLUDED.heading,
		speed = EXCLUDED.speed,
		accuracy = EXCLUDED.accuracy,
		timestamp = EXCLUDED.timestamp,
		updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
	WHERE EXCLUDED.timestamp = 0 OR delivery_locations.timestamp <= EXCLUDED.timestamp
	RETURNING updated_at
`

// UpsertDeliveryLocation stores the latest sample for an order
// A sample older than the stored one leaves the row alone and returns false
func UpsertDeliveryLocation(ctx context.Context, db *sqlx.DB, orderID, agentID string, loc models.DeliveryLocation) (bool, int64, error) {
	var updatedAt int64
	err := db.QueryRowxContext(ctx, upsertDeliveryLocationQuery,
		orderID,
		agentID,
		loc.Latitude,
		loc.Longitude,
		loc.Heading,
		loc.Speed,
		loc.Accuracy,
		loc.Timestamp,
	).Scan(&updatedAt)

	// The WHERE guard suppressed the update
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to upsert delivery location: %w", err)
	}
	return true, updatedAt, nil
}

// GetDeliveryLocation returns the stored position of one order
func GetDeliveryLocation(ctx context.Context, db *sqlx.DB, orderID string) (*models.OrderLocation, error) {
	var loc models.OrderLocation
	err := db.GetContext(ctx, &loc, `
		SELECT order_id, agent_id, latitude, longitude, heading, speed, accuracy, timestamp, updated_at
		FROM delivery_locations
		WHERE order_id = $1
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery location: %w", err)
	}
	return &loc, nil
}

// ListDeliveryLocations returns every stored position, newest first
func ListDeliveryLocations(ctx context.Context, db *sqlx.DB) ([]models.OrderLocation, error) {
	locations := []models.OrderLocation{}
	err := db.SelectContext(ctx, &locations, `
		SELECT order_id, agent_id, latitude, longitude, heading, speed, accuracy, timestamp, updated_at
		FROM delivery_locations
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery locations: %w", err)
	}
	return locations, nil
}

// DeleteDeliveryLocation drops the row of a finished order
func DeleteDeliveryLocation(ctx context.Context, db *sqlx.DB, orderID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM delivery_locations WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("failed to delete delivery location: %w", err)
	}
	return nil
}
