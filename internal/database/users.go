package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"foodflow-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetUserByEmail returns the user or nil
func GetUserByEmail(ctx context.Context, db *sqlx.DB, email string) (*models.User, error) {
	var user models.User
	err := db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a user whose password is already hashed
func CreateUser(ctx context.Context, db *sqlx.DB, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password, name, role)
		VALUES (:id, :email, :password, :name, :role)
	`
	if _, err := db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpsertFCMToken registers a device token, moving it to userID if it was owned by someone else
func UpsertFCMToken(ctx context.Context, db *sqlx.DB, userID, token, deviceType string) error {
	query := `
		INSERT INTO fcm_tokens (user_id, token, device_type, created_at, updated_at)
		VALUES ($1, $2, $3, EXTRACT(EPOCH FROM NOW())::BIGINT, EXTRACT(EPOCH FROM NOW())::BIGINT)
		ON CONFLICT (token)
		DO UPDATE SET
			user_id = EXCLUDED.user_id,
			device_type = EXCLUDED.device_type,
			updated_at = EXTRACT(EPOCH FROM NOW())::BIGINT
	`
	if _, err := db.ExecContext(ctx, query, userID, token, deviceType); err != nil {
		return fmt.Errorf("failed to save FCM token: %w", err)
	}
	return nil
}

// GetFCMTokens returns every token registered for a user
func GetFCMTokens(ctx context.Context, db *sqlx.DB, userID string) ([]models.FCMToken, error) {
	tokens := []models.FCMToken{}
	err := db.SelectContext(ctx, &tokens, `SELECT * FROM fcm_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get FCM tokens: %w", err)
	}
	return tokens, nil
}
