package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Notifier sends delivery lifecycle pushes to a customer's devices
type Notifier interface {
	SendDeliveryStarted(ctx context.Context, tokens []string, orderID string, eta *string) error
	SendDeliveryCompleted(ctx context.Context, tokens []string, orderID string) error
}

// FCMService handles Firebase Cloud Messaging
type FCMService struct {
	client *messaging.Client
}

// NewFCMService creates a new FCM service instance from a credentials file
func NewFCMService(ctx context.Context, credentialsFile string) (*FCMService, error) {
	return newFCMService(ctx, option.WithCredentialsFile(credentialsFile))
}

// NewFCMServiceFromBase64 creates a new FCM service instance from base64-encoded credentials
// Used on hosts where the service account can't be shipped as a file
func NewFCMServiceFromBase64(ctx context.Context, credentialsBase64 string) (*FCMService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newFCMService(ctx, option.WithCredentialsJSON(credentialsJSON))
}

func newFCMService(ctx context.Context, opt option.ClientOption) (*FCMService, error) {
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// SendDeliveryStarted tells the customer their order is on the way
func (s *FCMService) SendDeliveryStarted(ctx context.Context, tokens []string, orderID string, eta *string) error {
	body := "Your rider has picked up your order. Tap to follow it live."
	if eta != nil && *eta != "" {
		body = fmt.Sprintf("Your rider has picked up your order. Estimated arrival: %s", *eta)
	}

	return s.send(ctx, tokens, "Order on the way!", body, map[string]string{
		"type":     "tracking_started",
		"order_id": orderID,
	})
}

// SendDeliveryCompleted tells the customer the order was delivered
func (s *FCMService) SendDeliveryCompleted(ctx context.Context, tokens []string, orderID string) error {
	return s.send(ctx, tokens, "Order delivered", "Enjoy your meal!", map[string]string{
		"type":     "tracking_completed",
		"order_id": orderID,
	})
}

func (s *FCMService) send(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		log.Printf("⚠️  No FCM tokens for %s notification, skipping", data["type"])
		return nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					ContentAvailable: true,
					Sound:            "default",
				},
			},
		},
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	log.Printf("✅ FCM %s sent: %d success, %d failures", data["type"], response.SuccessCount, response.FailureCount)
	return nil
}
