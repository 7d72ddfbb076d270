package services

import (
	"context"
	"fmt"
	"log"

	"foodflow-backend/internal/models"
	"foodflow-backend/internal/session"
	"foodflow-backend/internal/tracking"
)

// Broadcaster pushes messages to connected websocket clients
type Broadcaster interface {
	BroadcastToUser(userID string, data interface{})
	BroadcastToRole(role string, data interface{})
}

// AssignmentReader looks up who delivers an order and to whom
type AssignmentReader interface {
	GetAssignment(ctx context.Context, orderID string) (*models.DeliveryAssignment, error)
}

// LocationRecorder keeps the durable latest location per order
type LocationRecorder interface {
	RecordLocation(ctx context.Context, orderID, agentID string, loc models.DeliveryLocation) (bool, error)
}

// IngestResult describes what happened to one location sample
type IngestResult struct {
	Watchers  []string `json:"watchers"`
	Persisted bool     `json:"persisted"`
}

// LocationService turns agent GPS samples into tracking updates
type LocationService struct {
	sessions    *session.Manager
	assignments AssignmentReader
	recorder    LocationRecorder
	broadcaster Broadcaster
}

// NewLocationService wires the service; recorder and broadcaster may be nil
func NewLocationService(sessions *session.Manager, assignments AssignmentReader, recorder LocationRecorder, broadcaster Broadcaster) *LocationService {
	return &LocationService{
		sessions:    sessions,
		assignments: assignments,
		recorder:    recorder,
		broadcaster: broadcaster,
	}
}

// Ingest validates a sample from the order's own agent, applies it to the order's
// customer and fleet viewers, and fans it out to watchers
func (s *LocationService) Ingest(ctx context.Context, agentID, orderID string, loc models.DeliveryLocation) (*IngestResult, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", tracking.ErrInvalidLocation)
	}
	if err := tracking.ValidateLocation(loc); err != nil {
		return nil, err
	}

	assignment, err := s.assignments.GetAssignment(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment for order %s: %w", orderID, err)
	}
	switch {
	case assignment == nil:
		return nil, ErrAssignmentNotFound
	case assignment.AgentID != agentID:
		log.Printf("❌ Agent %s sent a location for order %s assigned to %s", agentID, orderID, assignment.AgentID)
		return nil, ErrNotAssigned
	case !models.OrderStatus(assignment.Status).IsInFlight():
		return nil, fmt.Errorf("%w: status is %s", ErrNotInFlight, assignment.Status)
	}

	result := &IngestResult{}

	// Websocket fan-out is the primary path, the DB row is the fallback for reconnects
	if s.recorder != nil {
		persisted, err := s.recorder.RecordLocation(ctx, orderID, agentID, loc)
		if err != nil {
			log.Printf("❌ Error saving location for order %s: %v", orderID, err)
		}
		result.Persisted = persisted
	}

	dispatch, err := s.sessions.DispatchLocation(ctx, orderID, assignment.CustomerID, loc)
	if err != nil {
		return nil, err
	}
	result.Watchers = dispatch.Watchers
	for _, userID := range dispatch.Updated {
		if err := s.sessions.SaveTracking(ctx, userID); err != nil {
			log.Printf("⚠️  %v", err)
		}
	}

	if s.broadcaster != nil {
		update := map[string]interface{}{
			"type": "delivery_location_update",
			"data": map[string]interface{}{
				"order_id":  orderID,
				"agent_id":  agentID,
				"latitude":  loc.Latitude,
				"longitude": loc.Longitude,
				"heading":   loc.Heading,
				"speed":     loc.Speed,
				"accuracy":  loc.Accuracy,
				"timestamp": loc.Timestamp,
			},
		}

		for _, userID := range result.Watchers {
			s.broadcaster.BroadcastToUser(userID, update)
		}
		s.broadcaster.BroadcastToRole(models.RoleSuperadmin, update)
	}

	log.Printf("📍 Location for order %s from agent %s: %d watcher(s), persisted=%v",
		orderID, agentID, len(result.Watchers), result.Persisted)
	return result, nil
}

// IngestLocation adapts Ingest for the websocket transport
func (s *LocationService) IngestLocation(ctx context.Context, agentID, orderID string, loc models.DeliveryLocation) error {
	_, err := s.Ingest(ctx, agentID, orderID, loc)
	return err
}
