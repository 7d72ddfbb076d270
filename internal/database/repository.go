package database

import (
	"context"

	"foodflow-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// Repository binds the delivery queries to a pool so services can take them as interfaces
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps a connected pool
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// RecordLocation stores the latest sample of an order; false means a newer one was already stored
func (r *Repository) RecordLocation(ctx context.Context, orderID, agentID string, loc models.DeliveryLocation) (bool, error) {
	applied, _, err := UpsertDeliveryLocation(ctx, r.db, orderID, agentID, loc)
	return applied, err
}

// ForgetLocation drops the stored location of a finished order
func (r *Repository) ForgetLocation(ctx context.Context, orderID string) error {
	return DeleteDeliveryLocation(ctx, r.db, orderID)
}

// Location returns the stored position of one order, nil when there is none
func (r *Repository) Location(ctx context.Context, orderID string) (*models.OrderLocation, error) {
	return GetDeliveryLocation(ctx, r.db, orderID)
}

// ListLocations returns every stored order location
func (r *Repository) ListLocations(ctx context.Context) ([]models.OrderLocation, error) {
	return ListDeliveryLocations(ctx, r.db)
}

func (r *Repository) StartAssignment(ctx context.Context, a *models.DeliveryAssignment) error {
	return StartAssignment(ctx, r.db, a)
}

func (r *Repository) GetAssignment(ctx context.Context, orderID string) (*models.DeliveryAssignment, error) {
	return GetAssignment(ctx, r.db, orderID)
}

func (r *Repository) CompleteAssignment(ctx context.Context, orderID, status string) error {
	return CompleteAssignment(ctx, r.db, orderID, status)
}

// FCMTokens returns the raw device tokens of a user
func (r *Repository) FCMTokens(ctx context.Context, userID string) ([]string, error) {
	tokens, err := GetFCMTokens(ctx, r.db, userID)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Token)
	}
	return out, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return GetUserByEmail(ctx, r.db, email)
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return CreateUser(ctx, r.db, user)
}

func (r *Repository) SaveFCMToken(ctx context.Context, userID, token, deviceType string) error {
	return UpsertFCMToken(ctx, r.db, userID, token, deviceType)
}
