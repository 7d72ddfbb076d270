// Package handlers implements the HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"foodflow-backend/internal/middleware"
	"foodflow-backend/internal/models"
	"foodflow-backend/pkg/utils"

	"github.com/shopspring/decimal"
)

// UserStore is the user/account persistence the auth handlers need
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveFCMToken(ctx context.Context, userID, token, deviceType string) error
}

// AssignmentLookup finds who an order is being delivered to
type AssignmentLookup interface {
	GetAssignment(ctx context.Context, orderID string) (*models.DeliveryAssignment, error)
}

// LocationLister lists durable order locations
type LocationLister interface {
	ListLocations(ctx context.Context) ([]models.OrderLocation, error)
}

// Display holds how amounts are formatted for clients
type Display struct {
	Currency string
	Locale   string
}

// FormatMoney formats an amount with the configured currency and locale
func (d Display) FormatMoney(amount decimal.Decimal) string {
	return utils.FormatCurrency(amount, d.Currency, d.Locale)
}

var errBadBody = errors.New("invalid request body")

func decodeBody(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		log.Printf("❌ Invalid request body: %v", err)
		return errBadBody
	}
	return nil
}

func currentUser(w http.ResponseWriter, r *http.Request) (middleware.UserClaims, bool) {
	claims, ok := middleware.GetUserFromContext(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return claims, ok
}
