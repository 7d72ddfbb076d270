package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"foodflow-backend/internal/cart"
	"foodflow-backend/internal/models"
	"foodflow-backend/internal/session"
	"foodflow-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CartResponse is the cart view returned by every cart endpoint
// Cart is null when the user has no active cart
type CartResponse struct {
	Cart           *models.Cart `json:"cart"`
	ItemCount      int          `json:"item_count"`
	FormattedTotal string       `json:"formatted_total"`
}

type AddItemRequest struct {
	RestaurantID   string               `json:"restaurant_id"`
	RestaurantName string               `json:"restaurant_name"`
	Item           models.CartLineInput `json:"item"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type UpdateInstructionsRequest struct {
	Instructions string `json:"instructions"`
}

type SetRestaurantRequest struct {
	RestaurantID   string `json:"restaurant_id"`
	RestaurantName string `json:"restaurant_name"`
}

type ApplyCouponRequest struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

// cartCommand runs fn against the caller's cart engine, persists the result and replies with the cart
func cartCommand(sessions *session.Manager, display Display, fn func(r *http.Request, engine *cart.Engine) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		engine, err := sessions.Cart(r.Context(), userClaims.UserID)
		if err != nil {
			log.Printf("❌ %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to load cart")
			return
		}

		if fn != nil {
			if err := fn(r, engine); err != nil {
				switch {
				case errors.Is(err, errBadBody):
					utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
				case errors.Is(err, cart.ErrInvalidInput):
					utils.RespondError(w, http.StatusBadRequest, err.Error())
				default:
					log.Printf("❌ Cart command failed for %s: %v", userClaims.UserID, err)
					utils.RespondError(w, http.StatusInternalServerError, "Cart update failed")
				}
				return
			}

			if err := sessions.SaveCart(r.Context(), userClaims.UserID); err != nil {
				log.Printf("❌ %v", err)
				utils.RespondError(w, http.StatusInternalServerError, "Failed to save cart")
				return
			}
		}

		utils.RespondSuccess(w, newCartResponse(engine, display))
	}
}

func newCartResponse(engine *cart.Engine, display Display) CartResponse {
	c := engine.Cart()
	total := decimal.Zero
	if c != nil {
		total = c.Total
	}

	return CartResponse{
		Cart:           c,
		ItemCount:      engine.ItemCount(),
		FormattedTotal: display.FormatMoney(total),
	}
}

// GetCart returns the caller's cart
func GetCart(sessions *session.Manager, display Display) http.HandlerFunc {
	return cartCommand(sessions, display, nil)
}

// AddCartItem adds a line, replacing the cart when the restaurant differs
func AddCartItem(sessions *session.Manager, display Display) http.HandlerFunc {
	return cartCommand(sessions, display, func(r *http.Request, engine *cart.Engine) error {
		var req AddItemRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		_, err := engine.AddItem(req.RestaurantID, req.RestaurantName, req.Item)
		return err
	})
}

// RemoveCartItem drops a line by id
func RemoveCartItem(sessions *session.Manager, display Display) http.HandlerFunc {
	return cartCommand(sessions, display, func(r *http.Request, engine *cart.Engine) error {
		engine.RemoveItem(chi.URLParam(r, "id"))
		return nil
	})
}

// UpdateCartItemQuantity sets a line's quantity (0 or less removes it)
func UpdateCartItemQuantity(sessions *session.Manager, display Display) http.HandlerFunc {
	return cartCommand(sessions, display, func(r *http.Request, engine *cart.Engine) error {
		var req UpdateQuantityRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		engine.UpdateQuantity(chi.URLParam(r, "id"), req.Quantity)
		return nil
	})
}

// UpdateCartItemInstructions replaces a line's special instructions
func UpdateCartItemInstructions(sessions *session.Manager, display Display) http.HandlerFunc {
	return cartCommand(sessions, display, func(r *http.Request, engine *cart.Engine) error {
		var req UpdateInstructionsRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		engine.UpdateSpecialInstructions(chi.URLParam(r, "id"), req.Instructions)
		return nil
	})
}

// SetCartRestaurant targets the cart at a restaurant
func SetCartRestaurant(sessions *session.Manager, display Display) http.HandlerFunc {
	return cartCommand(sessions, display, func(r *http.Request, engine *cart.Engine) error {
		var req SetRestaurantRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		if req.RestaurantID == "" {
			return fmt.Errorf("%w: restaurant_id is required", cart.ErrInvalidInput)
		}
		engine.SetRestaurant(req.RestaurantID, req.RestaurantName)
		return nil
	})
}

// ApplyCartCoupon applies a flat discount
func ApplyCartCoupon(sessions *session.Manager, display Display) http.HandlerFunc {
	return cartCommand(sessions, display, func(r *http.Request, engine *cart.Engine) error {
		var req ApplyCouponRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		_, err := engine.ApplyCoupon(req.Code, req.Discount)
		return err
	})
}

// RemoveCartCoupon clears the discount
func RemoveCartCoupon(sessions *session.Manager, display Display) http.HandlerFunc {
	return cartCommand(sessions, display, func(r *http.Request, engine *cart.Engine) error {
		engine.RemoveCoupon()
		return nil
	})
}

// ClearCart destroys the caller's cart
func ClearCart(sessions *session.Manager, display Display) http.HandlerFunc {
	return cartCommand(sessions, display, func(r *http.Request, engine *cart.Engine) error {
		engine.ClearCart()
		return nil
	})
}
