package allocation

import (
	"math"

	"zerodha-allocator/internal/models"
)

// Field selects the draft column a normalizer call operates on.
type Field string

const (
	FieldWeightPct Field = "weightPct"
	FieldAmountInr Field = "amountInr"
	FieldQty       Field = "qty"
)

// ParseField maps CLI spellings to a Field.
func ParseField(s string) (Field, bool) {
	switch s {
	case "weight", "weightPct", "weight_pct":
		return FieldWeightPct, true
	case "amount", "amountInr", "amount_inr":
		return FieldAmountInr, true
	case "qty", "quantity":
		return FieldQty, true
	}
	return "", false
}

type normalizeConfig struct {
	field     Field
	decimals  int
	target    float64
	targetSet bool
}

// NormalizeOption configures ClearUnlocked, EqualizeUnlocked and NormalizeUnlocked.
type NormalizeOption func(*normalizeConfig)

// WithDecimals sets the rounding precision. Quantities always use 0.
func WithDecimals(decimals int) NormalizeOption {
	return func(c *normalizeConfig) {
		if decimals >= 0 {
			c.decimals = decimals
		}
	}
}

// WithField selects the column to redistribute.
func WithField(field Field) NormalizeOption {
	return func(c *normalizeConfig) {
		c.field = field
	}
}

// WithTargetTotal sets the total the column should reconcile to.
func WithTargetTotal(total float64) NormalizeOption {
	return func(c *normalizeConfig) {
		c.target = orZero(total)
		c.targetSet = true
	}
}

func newNormalizeConfig(opts []NormalizeOption) normalizeConfig {
	cfg := normalizeConfig{field: FieldWeightPct, decimals: DefaultDecimals}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.targetSet && cfg.field == FieldWeightPct {
		cfg.target = 100
	}
	if cfg.field == FieldQty {
		cfg.decimals = 0
	}
	return cfg
}

func (c normalizeConfig) get(r models.RowDraft) float64 {
	switch c.field {
	case FieldAmountInr:
		return orZero(r.AmountInr)
	case FieldQty:
		return float64(r.Qty)
	default:
		return orZero(r.WeightPct)
	}
}

func (c normalizeConfig) set(r *models.RowDraft, v float64) {
	switch c.field {
	case FieldAmountInr:
		r.AmountInr = v
	case FieldQty:
		r.Qty = int64(math.Round(v))
	default:
		r.WeightPct = v
	}
}

// split copies rows and returns the indices of unlocked rows and the locked total.
func (c normalizeConfig) split(rows []models.RowDraft) ([]models.RowDraft, []int, float64) {
	out := append([]models.RowDraft(nil), rows...)
	var unlocked []int
	var lockedSum float64
	for i, r := range out {
		if r.Locked {
			lockedSum += c.get(r)
			continue
		}
		unlocked = append(unlocked, i)
	}
	return out, unlocked, lockedSum
}

// ClearUnlocked zeroes the selected field on every unlocked row.
func ClearUnlocked(rows []models.RowDraft, opts ...NormalizeOption) []models.RowDraft {
	cfg := newNormalizeConfig(opts)
	out, unlocked, _ := cfg.split(rows)
	for _, i := range unlocked {
		cfg.set(&out[i], 0)
	}
	return out
}

// EqualizeUnlocked gives every unlocked row an equal share of what the locked
// rows leave of the target total. The last unlocked row absorbs rounding drift.
func EqualizeUnlocked(rows []models.RowDraft, opts ...NormalizeOption) []models.RowDraft {
	cfg := newNormalizeConfig(opts)
	out, unlocked, lockedSum := cfg.split(rows)
	if len(unlocked) == 0 {
		return out
	}

	remaining := math.Max(0, cfg.target-lockedSum)
	each := RoundTo(remaining/float64(len(unlocked)), cfg.decimals)
	for _, i := range unlocked {
		cfg.set(&out[i], each)
	}
	cfg.reconcile(out, unlocked, lockedSum+remaining)
	return out
}

// NormalizeUnlocked scales unlocked rows proportionally so the column sums to
// the target total. All-zero unlocked rows cannot be scaled and are equalized.
func NormalizeUnlocked(rows []models.RowDraft, opts ...NormalizeOption) []models.RowDraft {
	cfg := newNormalizeConfig(opts)
	out, unlocked, lockedSum := cfg.split(rows)
	if len(unlocked) == 0 {
		return out
	}

	var unlockedSum float64
	for _, i := range unlocked {
		unlockedSum += cfg.get(out[i])
	}
	if unlockedSum <= PctEpsilon {
		return EqualizeUnlocked(rows, opts...)
	}

	remaining := math.Max(0, cfg.target-lockedSum)
	factor := remaining / unlockedSum
	for _, i := range unlocked {
		cfg.set(&out[i], RoundTo(cfg.get(out[i])*factor, cfg.decimals))
	}
	cfg.reconcile(out, unlocked, lockedSum+remaining)
	return out
}

// reconcile pushes the rounded residual onto the last unlocked row. When
// locked values carry more precision than decimals, the rounded residual
// cannot close the gap and the last row takes the exact remainder instead.
func (c normalizeConfig) reconcile(rows []models.RowDraft, unlocked []int, desired float64) {
	last := &rows[unlocked[len(unlocked)-1]]
	drift := RoundTo(desired-c.sum(rows), c.decimals)
	if math.Abs(drift) > PctEpsilon {
		c.set(last, RoundTo(c.get(*last)+drift, c.decimals))
	}

	if c.field == FieldQty {
		return
	}
	if residual := desired - c.sum(rows); math.Abs(residual) > PctEpsilon {
		c.set(last, c.get(*last)+residual)
	}
}

func (c normalizeConfig) sum(rows []models.RowDraft) float64 {
	var total float64
	for _, r := range rows {
		total += c.get(r)
	}
	return total
}
