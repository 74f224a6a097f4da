package utils

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestFormatIndianCurrency(t *testing.T) {
	cases := map[float64]string{
		0:         "₹0.00",
		200:       "₹200.00",
		5999.94:   "₹5,999.94",
		490000:    "₹4,90,000.00",
		12345678:  "₹1,23,45,678.00",
		-250:      "-₹250.00",
		-0.001:    "₹0.00",
		100000.5:  "₹1,00,000.50",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatIndianCurrency(in), "amount %v", in)
	}
	assert.Equal(t, "₹-", FormatIndianCurrency(math.NaN()))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "+1.25%", FormatDrift(1.25))
	assert.Equal(t, "-0.50%", FormatDrift(-0.5))
	assert.Equal(t, "60.00%", FormatPercent(60))
	assert.Equal(t, "1,00,000", FormatQuantity(100000))
	assert.Equal(t, "-1,000", FormatQuantity(-1000))
	assert.Equal(t, "4.90 L", FormatCompact(490000))
	assert.Equal(t, "1.50 Cr", FormatCompact(15000000))
}

// Property: stripping the currency symbol and separators from a formatted
// amount gives back the amount rounded to paise.
func TestProperty_IndianCurrencyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("formatted amount parses back to the same paise", prop.ForAll(
		func(amount float64) bool {
			formatted := FormatIndianCurrency(amount)
			raw := strings.NewReplacer("₹", "", ",", "").Replace(formatted)
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				t.Logf("unparsable %q", formatted)
				return false
			}
			return math.Abs(parsed-amount) <= 0.005+1e-9
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.TestingRun(t)
}
