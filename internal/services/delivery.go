package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"foodflow-backend/internal/database"
	"foodflow-backend/internal/models"
	"foodflow-backend/internal/session"
)

var (
	// ErrAssignmentNotFound is returned when completing an order nobody started
	ErrAssignmentNotFound = errors.New("delivery assignment not found")

	// ErrNotAssigned is returned when an agent acts on someone else's order
	ErrNotAssigned = errors.New("order is assigned to another agent")

	// ErrNotInFlight is returned for location samples of orders that are not out for delivery
	ErrNotInFlight = errors.New("order is not in flight")
)

// AssignmentStore persists which agent delivers which order
type AssignmentStore interface {
	StartAssignment(ctx context.Context, a *models.DeliveryAssignment) error
	GetAssignment(ctx context.Context, orderID string) (*models.DeliveryAssignment, error)
	CompleteAssignment(ctx context.Context, orderID, status string) error
	Location(ctx context.Context, orderID string) (*models.OrderLocation, error)
	ForgetLocation(ctx context.Context, orderID string) error
}

// TokenSource looks up push tokens of a user
type TokenSource interface {
	FCMTokens(ctx context.Context, userID string) ([]string, error)
}

// DeliveryService runs the start/complete lifecycle of a delivery
type DeliveryService struct {
	store       AssignmentStore
	sessions    *session.Manager
	broadcaster Broadcaster
	notifier    Notifier
	tokens      TokenSource
}

// NewDeliveryService wires the service; broadcaster, notifier and tokens may be nil
func NewDeliveryService(store AssignmentStore, sessions *session.Manager, broadcaster Broadcaster, notifier Notifier, tokens TokenSource) *DeliveryService {
	return &DeliveryService{
		store:       store,
		sessions:    sessions,
		broadcaster: broadcaster,
		notifier:    notifier,
		tokens:      tokens,
	}
}

// Start assigns the order to the agent and points the customer's tracking at it
func (s *DeliveryService) Start(ctx context.Context, agentID, orderID, customerID string, eta *string) (*models.DeliveryAssignment, error) {
	if orderID == "" || customerID == "" {
		return nil, errors.New("order_id and customer_id are required")
	}

	existing, err := s.store.GetAssignment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.AgentID != agentID && models.OrderStatus(existing.Status).IsInFlight() {
		return nil, ErrNotAssigned
	}

	assignment := &models.DeliveryAssignment{
		OrderID:          orderID,
		AgentID:          agentID,
		CustomerID:       customerID,
		Status:           string(models.OrderStatusInTransit),
		EstimatedArrival: eta,
	}
	if err := s.store.StartAssignment(ctx, assignment); err != nil {
		if errors.Is(err, database.ErrAssignmentTaken) {
			return nil, ErrNotAssigned
		}
		return nil, err
	}

	tracker, err := s.sessions.Tracker(ctx, customerID)
	if err != nil {
		return nil, err
	}

	sess := assignment.Session()
	loc, known := tracker.Location(orderID)
	if known {
		sess.CurrentLocation = &loc
	}
	tracker.SetActiveTracking(sess)

	// After a restart the live ledger is empty; fall back to the stored row
	if !known {
		stored, err := s.store.Location(ctx, orderID)
		if err != nil {
			log.Printf("⚠️  Failed to load stored location for order %s: %v", orderID, err)
		} else if stored != nil {
			tracker.UpdateDeliveryLocation(orderID, stored.DeliveryLocation)
		}
	}

	if err := s.sessions.SaveTracking(ctx, customerID); err != nil {
		log.Printf("⚠️  %v", err)
	}

	s.broadcast(customerID, "tracking_started", tracker.ActiveTracking())
	s.notify(ctx, customerID, func(tokens []string) error {
		return s.notifier.SendDeliveryStarted(ctx, tokens, orderID, eta)
	})

	log.Printf("✅ Delivery started: order %s, agent %s, customer %s", orderID, agentID, customerID)
	return assignment, nil
}

// Complete marks the order delivered and drops it from every ledger
func (s *DeliveryService) Complete(ctx context.Context, agentID, orderID string) (*models.DeliveryAssignment, error) {
	assignment, err := s.store.GetAssignment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, ErrAssignmentNotFound
	}
	if assignment.AgentID != agentID {
		return nil, ErrNotAssigned
	}

	delivered := string(models.OrderStatusDelivered)
	if err := s.store.CompleteAssignment(ctx, orderID, delivered); err != nil {
		return nil, err
	}
	assignment.Status = delivered

	tracker, err := s.sessions.Tracker(ctx, assignment.CustomerID)
	if err != nil {
		return nil, err
	}
	if active := tracker.ActiveTracking(); active != nil && active.OrderID == orderID {
		active.Status = delivered
		tracker.SetActiveTracking(active)
	}

	s.sessions.ForgetOrder(orderID)
	if err := s.sessions.SaveTracking(ctx, assignment.CustomerID); err != nil {
		log.Printf("⚠️  %v", err)
	}
	if err := s.store.ForgetLocation(ctx, orderID); err != nil {
		log.Printf("⚠️  Failed to drop stored location for order %s: %v", orderID, err)
	}

	s.broadcast(assignment.CustomerID, "tracking_completed", map[string]interface{}{
		"order_id": orderID,
		"status":   delivered,
		"progress": models.GetOrderProgress(delivered),
	})
	s.notify(ctx, assignment.CustomerID, func(tokens []string) error {
		return s.notifier.SendDeliveryCompleted(ctx, tokens, orderID)
	})

	log.Printf("✅ Delivery completed: order %s by agent %s", orderID, agentID)
	return assignment, nil
}

func (s *DeliveryService) broadcast(userID, messageType string, data interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToUser(userID, map[string]interface{}{
		"type": messageType,
		"data": data,
	})
	log.Printf("📤 Sent %s to %s", messageType, userID)
}

// notify failures never fail the lifecycle call
func (s *DeliveryService) notify(ctx context.Context, userID string, send func(tokens []string) error) {
	if s.notifier == nil || s.tokens == nil {
		return
	}

	tokens, err := s.tokens.FCMTokens(ctx, userID)
	if err != nil {
		log.Printf("⚠️  Failed to load FCM tokens for %s: %v", userID, err)
		return
	}
	if err := send(tokens); err != nil {
		log.Printf("⚠️  %v", fmt.Errorf("push to %s failed: %w", userID, err))
	}
}
