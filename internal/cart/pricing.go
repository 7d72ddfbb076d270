package cart

import (
	"foodflow-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Default fee configuration
var (
	DefaultDeliveryFee    = decimal.NewFromInt(30)
	DefaultServiceFeeRate = decimal.RequireFromString("0.02")
	DefaultTaxRate        = decimal.RequireFromString("0.05")
)

// Fees holds the flat delivery fee and the subtotal-based rates
type Fees struct {
	DeliveryFee    decimal.Decimal
	ServiceFeeRate decimal.Decimal
	TaxRate        decimal.Decimal
}

// DefaultFees returns the platform default fee configuration
func DefaultFees() Fees {
	return Fees{
		DeliveryFee:    DefaultDeliveryFee,
		ServiceFeeRate: DefaultServiceFeeRate,
		TaxRate:        DefaultTaxRate,
	}
}

var half = decimal.RequireFromString("0.5")

// roundUnit rounds to the nearest whole currency unit, halves toward +infinity
func roundUnit(d decimal.Decimal) decimal.Decimal {
	return d.Add(half).Floor()
}

// CalculateTotals derives every money field of a cart from its lines
// The discount only affects the total, which is floored at zero
func CalculateTotals(items []models.CartLine, discount decimal.Decimal, fees Fees) models.CartTotals {
	subtotal := decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(items[i].LineTotal())
	}

	deliveryFee := decimal.Zero
	if subtotal.IsPositive() {
		deliveryFee = fees.DeliveryFee
	}

	serviceFee := roundUnit(subtotal.Mul(fees.ServiceFeeRate))
	tax := roundUnit(subtotal.Mul(fees.TaxRate))

	total := subtotal.Add(deliveryFee).Add(serviceFee).Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return models.CartTotals{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		ServiceFee:  serviceFee,
		Tax:         tax,
		Total:       total,
	}
}
