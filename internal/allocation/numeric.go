// Package allocation converts a desired portfolio split into whole-share
// orders that fit the available funds.
//
// Every entry point is a pure function: drafts are read, never mutated, and
// problems are reported as models.Issue values instead of errors.
package allocation

import (
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// Tolerances shared by the normalizer, the engine and the outlier pass.
const (
	// PctEpsilon is the tolerance for percentage comparisons.
	PctEpsilon = 1e-6
	// CurrencyEpsilon is the tolerance for rupee comparisons.
	CurrencyEpsilon = 0.01
	// TieEpsilon separates genuine differences from float noise.
	TieEpsilon = 1e-9
	// WeightSumTolerancePct is how far the weight total may stray from 100
	// before weights_not_100 is raised.
	WeightSumTolerancePct = 0.01
	// MaxOptimizerSteps bounds the greedy remaining-funds pass.
	MaxOptimizerSteps = 50000
	// MaxPlannedQty caps a row's share count so qty*price stays exact in a float64.
	MaxPlannedQty = 1 << 53
	// OutlierFenceMultiplier widens the IQR fence used for outliers.
	OutlierFenceMultiplier = 2.5
	// DefaultDecimals is the normalizer precision when none is given.
	DefaultDecimals = 2
)

// RoundTo rounds value to the given number of decimals, half away from zero.
// Non-finite input yields 0.
func RoundTo(value float64, decimals int) float64 {
	if !isFinite(value) {
		return 0
	}
	factor := math.Pow(10, float64(decimals))
	out := math.Round(value*factor) / factor
	if !isFinite(out) {
		return 0
	}
	return out
}

// SafeNumber coerces value to a finite float64. The second return is false
// when the value is absent (nil, blank, unparsable, NaN or infinite).
// Strings may carry Indian digit grouping ("1,00,000.50").
func SafeNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case *float64:
		if v == nil {
			return 0, false
		}
		value = *v
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		s = strings.TrimPrefix(s, "₹")
		if s == "" {
			return 0, false
		}
		value = s
	}

	f, err := cast.ToFloat64E(value)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

// Quantile returns the q-th quantile of a non-decreasing slice using linear
// interpolation between closest ranks (R-7). It reports false on empty input.
func Quantile(sorted []float64, q float64) (float64, bool) {
	n := len(sorted)
	if n == 0 {
		return 0, false
	}
	if n == 1 {
		return sorted[0], true
	}
	q = math.Max(0, math.Min(1, q))

	h := float64(n-1) * q
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo]), true
}

func sortedCopy(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// orZero maps NaN and infinities to zero.
func orZero(v float64) float64 {
	if !isFinite(v) {
		return 0
	}
	return v
}
