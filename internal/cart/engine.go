// Package cart implements the single-restaurant shopping cart and its pricing.
//
// An Engine owns exactly one buyer's cart. Every command recomputes the derived
// money fields from the lines, so totals can never drift from the items. The
// engine does no I/O; persisting snapshots is up to the caller.
package cart

import (
	"errors"
	"fmt"
	"sync"

	"foodflow-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned when a command carries negative prices,
// non-positive quantities or a negative discount
var ErrInvalidInput = errors.New("invalid input")

// Option configures an Engine
type Option func(*Engine)

// WithDeliveryFee sets the flat delivery fee applied to non-empty carts
func WithDeliveryFee(fee decimal.Decimal) Option {
	return func(e *Engine) { e.fees.DeliveryFee = fee }
}

// WithServiceFeeRate sets the service fee as a fraction of the subtotal
func WithServiceFeeRate(rate decimal.Decimal) Option {
	return func(e *Engine) { e.fees.ServiceFeeRate = rate }
}

// WithTaxRate sets the tax as a fraction of the subtotal
func WithTaxRate(rate decimal.Decimal) Option {
	return func(e *Engine) { e.fees.TaxRate = rate }
}

// WithFees replaces the whole fee configuration
func WithFees(fees Fees) Option {
	return func(e *Engine) { e.fees = fees }
}

// WithIDGenerator overrides how cart line identities are minted
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// Engine holds one buyer's active cart
type Engine struct {
	mu    sync.Mutex
	cart  *models.Cart
	fees  Fees
	newID func() string
}

// NewEngine creates an engine with no active cart
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		fees:  DefaultFees(),
		newID: generateLineID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func generateLineID() string {
	return "item_" + uuid.New().String()
}

// Fees returns the fee configuration used by this engine
func (e *Engine) Fees() Fees {
	return e.fees
}

// Cart returns a copy of the active cart, nil when there is none
func (e *Engine) Cart() *models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cart.Clone()
}

// ItemCount returns the sum of line quantities (0 without a cart)
func (e *Engine) ItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cart == nil {
		return 0
	}
	return e.cart.ItemCount()
}

// Subtotal returns the cart subtotal (0 without a cart)
func (e *Engine) Subtotal() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cart == nil {
		return decimal.Zero
	}
	return e.cart.Subtotal
}

// AddItem adds a new line to the cart
// A different restaurant replaces the cart instead of merging into it
func (e *Engine) AddItem(restaurantID, restaurantName string, item models.CartLineInput) (*models.Cart, error) {
	if err := validateLine(restaurantID, item); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	line := item.ToLine(e.newID())

	if e.cart == nil || e.cart.RestaurantID != restaurantID {
		e.cart = &models.Cart{
			RestaurantID:   restaurantID,
			RestaurantName: restaurantName,
			Items:          []models.CartLine{line},
			Discount:       decimal.Zero,
		}
		e.recalculate()
		return e.cart.Clone(), nil
	}

	e.cart.RestaurantName = restaurantName
	e.cart.Items = append(e.cart.Items, line)
	e.recalculate()
	return e.cart.Clone(), nil
}

// RemoveItem drops a line; removing the last line destroys the cart
func (e *Engine) RemoveItem(lineID string) *models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.removeLocked(lineID)
	return e.cart.Clone()
}

func (e *Engine) removeLocked(lineID string) {
	if e.cart == nil {
		return
	}

	idx := e.indexOf(lineID)
	if idx < 0 {
		return
	}

	items := make([]models.CartLine, 0, len(e.cart.Items)-1)
	items = append(items, e.cart.Items[:idx]...)
	items = append(items, e.cart.Items[idx+1:]...)

	if len(items) == 0 {
		e.cart = nil
		return
	}

	e.cart.Items = items
	e.recalculate()
}

// UpdateQuantity replaces a line's quantity; quantity <= 0 removes the line
func (e *Engine) UpdateQuantity(lineID string, quantity int) *models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()

	if quantity <= 0 {
		e.removeLocked(lineID)
		return e.cart.Clone()
	}

	if e.cart == nil {
		return nil
	}

	idx := e.indexOf(lineID)
	if idx < 0 {
		return e.cart.Clone()
	}

	e.cart.Items[idx].Quantity = quantity
	e.recalculate()
	return e.cart.Clone()
}

// UpdateSpecialInstructions replaces the free-text instructions of one line
func (e *Engine) UpdateSpecialInstructions(lineID, instructions string) *models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cart == nil {
		return nil
	}

	if idx := e.indexOf(lineID); idx >= 0 {
		e.cart.Items[idx].SpecialInstructions = &instructions
	}
	return e.cart.Clone()
}

// SetRestaurant targets the cart at a restaurant
// Same restaurant is a no-op, anything else starts an empty cart
func (e *Engine) SetRestaurant(restaurantID, restaurantName string) *models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cart != nil && e.cart.RestaurantID == restaurantID {
		return e.cart.Clone()
	}

	e.cart = &models.Cart{
		RestaurantID:   restaurantID,
		RestaurantName: restaurantName,
		Items:          []models.CartLine{},
		Subtotal:       decimal.Zero,
		DeliveryFee:    decimal.Zero,
		ServiceFee:     decimal.Zero,
		Tax:            decimal.Zero,
		Discount:       decimal.Zero,
		Total:          decimal.Zero,
	}
	return e.cart.Clone()
}

// ApplyCoupon sets a flat discount and its code
func (e *Engine) ApplyCoupon(code string, discount decimal.Decimal) (*models.Cart, error) {
	if discount.IsNegative() {
		return nil, fmt.Errorf("%w: discount must not be negative", ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cart == nil {
		return nil, nil
	}

	e.cart.Discount = discount
	e.cart.CouponCode = &code
	e.recalculate()
	return e.cart.Clone(), nil
}

// RemoveCoupon clears the discount and coupon code
func (e *Engine) RemoveCoupon() *models.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cart == nil {
		return nil
	}

	e.cart.Discount = decimal.Zero
	e.cart.CouponCode = nil
	e.recalculate()
	return e.cart.Clone()
}

// ClearCart destroys the active cart
func (e *Engine) ClearCart() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cart = nil
}

// Restore replaces the engine state with a persisted cart
// Totals are recomputed so a snapshot taken under other fee settings is repriced
func (e *Engine) Restore(c *models.Cart) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c == nil {
		e.cart = nil
		return
	}

	e.cart = c.Clone()
	if len(e.cart.Items) > 0 {
		e.recalculate()
	}
}

// recalculate must be called with mu held and a non-nil cart
func (e *Engine) recalculate() {
	e.cart.ApplyTotals(CalculateTotals(e.cart.Items, e.cart.Discount, e.fees))
}

func (e *Engine) indexOf(lineID string) int {
	for i := range e.cart.Items {
		if e.cart.Items[i].ID == lineID {
			return i
		}
	}
	return -1
}

func validateLine(restaurantID string, item models.CartLineInput) error {
	if restaurantID == "" {
		return fmt.Errorf("%w: restaurant id is required", ErrInvalidInput)
	}
	if item.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1, got %d", ErrInvalidInput, item.Quantity)
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	for _, addon := range item.Addons {
		if addon.Price.IsNegative() {
			return fmt.Errorf("%w: addon %q has a negative price", ErrInvalidInput, addon.Name)
		}
		if addon.Quantity < 0 {
			return fmt.Errorf("%w: addon %q has a negative quantity", ErrInvalidInput, addon.Name)
		}
	}
	return nil
}
