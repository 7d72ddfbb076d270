package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"foodflow-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// SnapshotStore keeps per-user cart and tracking snapshots as JSONB rows
type SnapshotStore struct {
	db *sqlx.DB
}

// NewSnapshotStore wraps a connected pool
func NewSnapshotStore(db *sqlx.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// LoadCart returns the stored cart or nil
func (s *SnapshotStore) LoadCart(ctx context.Context, userID string) (*models.Cart, error) {
	var c models.Cart
	found, err := s.load(ctx, "cart_snapshots", userID, &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

// SaveCart upserts the cart; a nil cart deletes the row
func (s *SnapshotStore) SaveCart(ctx context.Context, userID string, c *models.Cart) error {
	if c == nil {
		return s.delete(ctx, "cart_snapshots", userID)
	}
	return s.save(ctx, "cart_snapshots", userID, c)
}

// LoadTracking returns the stored tracking snapshot or nil
func (s *SnapshotStore) LoadTracking(ctx context.Context, userID string) (*models.TrackingSnapshot, error) {
	var snap models.TrackingSnapshot
	found, err := s.load(ctx, "tracking_snapshots", userID, &snap)
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

// SaveTracking upserts the tracking snapshot; nil deletes the row
func (s *SnapshotStore) SaveTracking(ctx context.Context, userID string, snap *models.TrackingSnapshot) error {
	if snap == nil {
		return s.delete(ctx, "tracking_snapshots", userID)
	}
	return s.save(ctx, "tracking_snapshots", userID, snap)
}

// table is always one of the two constants above, never user input
func (s *SnapshotStore) load(ctx context.Context, table, userID string, dest interface{}) (bool, error) {
	var payload []byte
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE user_id = $1`, table)

	err := s.db.GetContext(ctx, &payload, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", table, err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", table, err)
	}
	return true, nil
}

func (s *SnapshotStore) save(ctx context.Context, table, userID string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", table, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, payload, updated_at)
		VALUES ($1, $2, EXTRACT(EPOCH FROM NOW())::BIGINT)
		ON CONFLICT (user_id)
		DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
	`, table)

	if _, err := s.db.ExecContext(ctx, query, userID, payload); err != nil {
		return fmt.Errorf("failed to write %s: %w", table, err)
	}
	return nil
}

func (s *SnapshotStore) delete(ctx context.Context, table, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, table)
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}
