package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"foodflow-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// ErrAssignmentTaken is returned when another agent is still delivering the order
var ErrAssignmentTaken = errors.New("order is being delivered by another agent")

// StartAssignment records that an agent picked up an order
// Restarting clears any completion, but an in-flight order stays with its agent
func StartAssignment(ctx context.Context, db *sqlx.DB, a *models.DeliveryAssignment) error {
	query := `
		INSERT INTO delivery_assignments (order_id, agent_id, customer_id, status, estimated_arrival, started_at)
		VALUES ($1, $2, $3, $4, $5, EXTRACT(EPOCH FROM NOW())::BIGINT)
		ON CONFLICT (order_id)
		DO UPDATE SET
			agent_id = EXCLUDED.agent_id,
			customer_id = EXCLUDED.customer_id,
			status = EXCLUDED.status,
			estimated_arrival = EXCLUDED.estimated_arrival,
			started_at = EXCLUDED.started_at,
			completed_at = NULL
		WHERE delivery_assignments.agent_id = EXCLUDED.agent_id
		   OR delivery_assignments.status NOT IN ('picked_up', 'in_transit')
		RETURNING started_at
	`

	err := db.QueryRowxContext(ctx, query,
		a.OrderID, a.AgentID, a.CustomerID, a.Status, a.EstimatedArrival,
	).Scan(&a.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAssignmentTaken
	}
	if err != nil {
		return fmt.Errorf("failed to start assignment: %w", err)
	}
	a.CompletedAt = nil
	return nil
}

// GetAssignment returns the assignment of an order or nil
func GetAssignment(ctx context.Context, db *sqlx.DB, orderID string) (*models.DeliveryAssignment, error) {
	var a models.DeliveryAssignment
	err := db.GetContext(ctx, &a, `SELECT * FROM delivery_assignments WHERE order_id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

// CompleteAssignment marks the order with its final status
func CompleteAssignment(ctx context.Context, db *sqlx.DB, orderID, status string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE delivery_assignments
		SET status = $2,
		    completed_at = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE order_id = $1
	`, orderID, status)
	if err != nil {
		return fmt.Errorf("failed to complete assignment: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("assignment for order %s not found", orderID)
	}
	return nil
}
