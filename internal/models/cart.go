package models

import "github.com/shopspring/decimal"

// CartVariant is the selected size/option of a menu item
type CartVariant struct {
	Name          string          `json:"name"`
	PriceModifier decimal.Decimal `json:"price_modifier"` // Signed, added to the unit price
}

// CartAddon is an extra attached to a cart line (extra cheese, drinks, ...)
type CartAddon struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// CartLine represents one ordered product instance in the cart
type CartLine struct {
	ID                  string          `json:"id"`
	MenuItemID          string          `json:"menu_item_id"`
	Name                string          `json:"name"`
	Price               decimal.Decimal `json:"price"`
	Quantity            int             `json:"quantity"` // Always >= 1, zero removes the line
	Variant             *CartVariant    `json:"variant,omitempty"`
	Addons              []CartAddon     `json:"addons"`
	SpecialInstructions *string         `json:"special_instructions,omitempty"`
	Image               *string         `json:"image,omitempty"`
}

// UnitTotal returns the price of a single unit including variant and addons
func (l *CartLine) UnitTotal() decimal.Decimal {
	total := l.Price
	if l.Variant != nil {
		total = total.Add(l.Variant.PriceModifier)
	}
	for _, addon := range l.Addons {
		total = total.Add(addon.Price.Mul(decimal.NewFromInt(int64(addon.Quantity))))
	}
	return total
}

// LineTotal returns the line's contribution to the subtotal
func (l *CartLine) LineTotal() decimal.Decimal {
	return l.UnitTotal().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartLineInput is the request body for adding an item (a CartLine without identity)
type CartLineInput struct {
	MenuItemID          string          `json:"menu_item_id"`
	Name                string          `json:"name"`
	Price               decimal.Decimal `json:"price"`
	Quantity            int             `json:"quantity"`
	Variant             *CartVariant    `json:"variant,omitempty"`
	Addons              []CartAddon     `json:"addons"`
	SpecialInstructions *string         `json:"special_instructions,omitempty"`
	Image               *string         `json:"image,omitempty"`
}

// ToLine assigns an identity to the input
func (in CartLineInput) ToLine(id string) CartLine {
	addons := make([]CartAddon, len(in.Addons))
	copy(addons, in.Addons)

	var variant *CartVariant
	if in.Variant != nil {
		v := *in.Variant
		variant = &v
	}

	return CartLine{
		ID:                  id,
		MenuItemID:          in.MenuItemID,
		Name:                in.Name,
		Price:               in.Price,
		Quantity:            in.Quantity,
		Variant:             variant,
		Addons:              addons,
		SpecialInstructions: cloneString(in.SpecialInstructions),
		Image:               cloneString(in.Image),
	}
}

// Cart is the buyer's single-restaurant order in progress
type Cart struct {
	RestaurantID   string          `json:"restaurant_id"`
	RestaurantName string          `json:"restaurant_name"`
	Items          []CartLine      `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	ServiceFee     decimal.Decimal `json:"service_fee"`
	Tax            decimal.Decimal `json:"tax"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	CouponCode     *string         `json:"coupon_code,omitempty"`
}

// CartTotals holds the derived money fields of a cart
type CartTotals struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	ServiceFee  decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

// ApplyTotals copies derived totals onto the cart
func (c *Cart) ApplyTotals(t CartTotals) {
	c.Subtotal = t.Subtotal
	c.DeliveryFee = t.DeliveryFee
	c.ServiceFee = t.ServiceFee
	c.Tax = t.Tax
	c.Total = t.Total
}

// ItemCount returns the sum of line quantities
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Clone returns a deep copy so callers can't mutate engine state
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}

	out := *c
	out.Items = make([]CartLine, len(c.Items))
	for i, item := range c.Items {
		line := item
		line.Addons = make([]CartAddon, len(item.Addons))
		copy(line.Addons, item.Addons)
		if item.Variant != nil {
			v := *item.Variant
			line.Variant = &v
		}
		line.SpecialInstructions = cloneString(item.SpecialInstructions)
		line.Image = cloneString(item.Image)
		out.Items[i] = line
	}
	out.CouponCode = cloneString(c.CouponCode)
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
