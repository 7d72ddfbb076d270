package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	t.Run("whole amount has no fraction digits", func(t *testing.T) {
		s := FormatCurrency(decimal.NewFromInt(1234), "USD", "en-US")
		assert.Contains(t, s, "1,234")
		assert.NotContains(t, s, ".")
	})

	t.Run("trailing fraction zeros are dropped", func(t *testing.T) {
		assert.Contains(t, FormatCurrency(decimal.RequireFromString("12.5"), "USD", "en-US"), "12.5")
		assert.NotContains(t, FormatCurrency(decimal.RequireFromString("12.5"), "USD", "en-US"), "12.50")
		assert.Contains(t, FormatCurrency(decimal.RequireFromString("1.50"), "USD", "en-US"), "1.5")
		assert.NotContains(t, FormatCurrency(decimal.RequireFromString("1.50"), "USD", "en-US"), "1.50")
		assert.NotContains(t, FormatCurrency(decimal.RequireFromString("3.00"), "USD", "en-US"), ".")
	})

	t.Run("rounds to two fraction digits", func(t *testing.T) {
		s := FormatCurrency(decimal.RequireFromString("19.999"), "USD", "en-US")
		assert.Contains(t, s, "20")
		assert.NotContains(t, s, ".")

		assert.Contains(t, FormatCurrency(decimal.RequireFromString("0.125"), "USD", "en-US"), "0.13")
	})

	t.Run("amounts beyond int64 keep every digit", func(t *testing.T) {
		s := FormatCurrency(decimal.RequireFromString("10000000000000000000000000.25"), "USD", "en-US")
		assert.Contains(t, s, "10,000,000,000,000,000,000,000,000.25")
	})

	t.Run("negative amount", func(t *testing.T) {
		s := FormatCurrency(decimal.NewFromInt(-50), "USD", "en-US")
		assert.True(t, len(s) > 0 && s[0] == '-', "got %q", s)
		assert.Contains(t, s, "50")
	})

	t.Run("negative amount that rounds to zero has no sign", func(t *testing.T) {
		s := FormatCurrency(decimal.RequireFromString("-0.001"), "USD", "en-US")
		assert.NotContains(t, s, "-")
	})

	t.Run("defaults", func(t *testing.T) {
		s := FormatCurrency(decimal.NewFromInt(244), "", "")
		assert.Contains(t, s, "244")
	})

	t.Run("unknown currency falls back to code", func(t *testing.T) {
		s := FormatCurrency(decimal.NewFromInt(7), "zzz", "en-US")
		assert.Contains(t, s, "7")
	})
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "850m", FormatDistance(0.85))
	assert.Equal(t, "0m", FormatDistance(0))
	assert.Equal(t, "1.0km", FormatDistance(1))
	assert.Equal(t, "12.3km", FormatDistance(12.34))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45 min", FormatDuration(45))
	assert.Equal(t, "2h", FormatDuration(120))
	assert.Equal(t, "1h 30min", FormatDuration(90))
}
