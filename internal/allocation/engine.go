package allocation

import (
	"math"

	"zerodha-allocator/internal/models"
)

// Request is the input to one allocation.
type Request struct {
	Mode    models.Mode
	Funds   float64
	Rows    []models.RowDraft
	Prices  models.PriceMap
	Options models.AllocationOptions
}

// DefaultOptions returns weight-mode options with the optimizer enabled.
func DefaultOptions() models.AllocationOptions {
	return models.AllocationOptions{OptimizeWithRemainingFunds: true}
}

// Allocate dispatches on req.Mode. An empty mode means weight mode.
func Allocate(req Request) *models.AllocationResult {
	switch req.Mode {
	case models.AmountDriven:
		return AllocateByAmount(req.Funds, req.Rows, req.Prices)
	case models.QtyDriven:
		return AllocateByQty(req.Funds, req.Rows, req.Prices)
	default:
		return AllocateByWeight(req.Funds, req.Rows, req.Prices, req.Options)
	}
}

// AllocateByWeight buys floor(funds*weight/100/price) shares per row, then
// optionally enforces a minimum quantity, spends leftover cash and flags
// rows whose realised weight strays abnormally from target.
func AllocateByWeight(funds float64, drafts []models.RowDraft, prices models.PriceMap, opts models.AllocationOptions) *models.AllocationResult {
	res, ok := begin(models.WeightDriven, funds, drafts, prices)
	if !ok {
		return res
	}

	// weights holds the effective weight per row; invalid weights count as 0.
	weights := make([]float64, len(res.Rows))
	var weightSum, lockedSum float64
	for i, r := range res.Rows {
		w := r.WeightPct
		if w < 0 || w > 100 {
			continue
		}
		weights[i] = w
		weightSum += w
		if r.Locked {
			lockedSum += w
		}
	}
	res.Totals.WeightSumPct = weightSum
	res.Totals.LockedWeightSumPct = lockedSum

	if lockedSum > 100+PctEpsilon {
		addIssue(res, models.LevelError, models.CodeLockedOver100,
			"Locked weights total %.2f%%, which exceeds 100%%", lockedSum)
	}
	if opts.RequireWeightsSumTo100 && math.Abs(weightSum-100) > WeightSumTolerancePct {
		addIssue(res, models.LevelError, models.CodeWeightsNot100,
			"Weights total %.2f%%; they must add up to 100%%", weightSum)
	}

	for i := range res.Rows {
		r := &res.Rows[i]
		if r.WeightPct < 0 || r.WeightPct > 100 {
			addRowIssue(res, i, models.LevelError, models.CodeWeightInvalid,
				"%s: weight %.2f%% must be between 0 and 100", label(*r), r.WeightPct)
			continue
		}
		w := weights[i]
		r.TargetAmount = funds * w / 100
		if w <= 0 {
			continue
		}
		if r.Price == nil {
			addRowIssue(res, i, models.LevelError, models.CodePriceMissing,
				"%s: no price available", label(*r))
			continue
		}
		setQty(r, floorQty(r.TargetAmount, *r.Price))
	}

	blocked := false
	if opts.MinQtyPerRow > 0 {
		blocked = enforceMinQty(res, weights, funds, opts.MinQtyPerRow)
	}
	if opts.OptimizeWithRemainingFunds && !blocked {
		spendRemaining(res.Rows, weights, funds, MaxOptimizerSteps)
	}

	for i, r := range res.Rows {
		if weights[i] > 0 && r.Price != nil && r.PlannedQty == 0 {
			addRowIssue(res, i, models.LevelWarning, models.CodeQtyZero,
				"%s: target %s buys no shares at %s", label(r), inr(r.TargetAmount), inr(*r.Price))
		}
	}

	summarize(res)
	detectOutliers(res, weights)
	return res
}

// AllocateByAmount buys floor(amount/price) shares per row. Weights are
// derived from amounts for display only.
func AllocateByAmount(funds float64, drafts []models.RowDraft, prices models.PriceMap) *models.AllocationResult {
	res, ok := begin(models.AmountDriven, funds, drafts, prices)
	if !ok {
		return res
	}

	var requested float64
	for i := range res.Rows {
		r := &res.Rows[i]
		amount := r.AmountInr
		if amount < 0 {
			addRowIssue(res, i, models.LevelError, models.CodeAmountInvalid,
				"%s: amount %s cannot be negative", label(*r), inr(amount))
			amount = 0
		}
		r.TargetAmount = amount
		r.WeightPct = amount / funds * 100
		requested += amount
		if amount == 0 {
			continue
		}
		if r.Price == nil {
			addRowIssue(res, i, models.LevelError, models.CodePriceMissing,
				"%s: no price available", label(*r))
			continue
		}
		setQty(r, floorQty(amount, *r.Price))
		if r.PlannedQty == 0 {
			addRowIssue(res, i, models.LevelWarning, models.CodeQtyZero,
				"%s: amount %s buys no shares at %s", label(*r), inr(amount), inr(*r.Price))
		}
	}

	summarize(res)
	if requested > funds+CurrencyEpsilon {
		shortfall := RoundTo(requested-funds, 2)
		res.Totals.AdditionalFundsRequired = shortfall
		addIssue(res, models.LevelError, models.CodeAmountOverFunds,
			"Requested %s exceeds available funds %s by %s", inr(requested), inr(funds), inr(shortfall))
	}
	return res
}

// AllocateByQty prices explicit share counts. Weights are derived from cost.
func AllocateByQty(funds float64, drafts []models.RowDraft, prices models.PriceMap) *models.AllocationResult {
	res, ok := begin(models.QtyDriven, funds, drafts, prices)
	if !ok {
		return res
	}

	for i := range res.Rows {
		r := &res.Rows[i]
		r.WeightPct = 0
		qty := r.Qty
		if qty < 0 {
			addRowIssue(res, i, models.LevelError, models.CodeQtyInvalid,
				"%s: quantity %d cannot be negative", label(*r), qty)
			continue
		}
		if qty == 0 {
			continue
		}
		if r.Price == nil {
			addRowIssue(res, i, models.LevelError, models.CodePriceMissing,
				"%s: no price available", label(*r))
			continue
		}
		setQty(r, qty)
		r.TargetAmount = r.PlannedCost
		r.WeightPct = r.PlannedCost / funds * 100
	}

	summarize(res)
	if res.Totals.TotalCost > funds+CurrencyEpsilon {
		shortfall := RoundTo(res.Totals.TotalCost-funds, 2)
		res.Totals.AdditionalFundsRequired = shortfall
		addIssue(res, models.LevelError, models.CodeCostOverFunds,
			"Order cost %s exceeds available funds %s by %s", inr(res.Totals.TotalCost), inr(funds), inr(shortfall))
	}
	return res
}

// begin copies drafts into result rows and validates funds. It reports
// false when funds are invalid; the returned result is then final.
func begin(mode models.Mode, funds float64, drafts []models.RowDraft, prices models.PriceMap) (*models.AllocationResult, bool) {
	res := &models.AllocationResult{
		Mode:   mode,
		Rows:   make([]models.RowResult, len(drafts)),
		Issues: []models.Issue{},
	}
	for i, d := range drafts {
		d.WeightPct = orZero(d.WeightPct)
		d.AmountInr = orZero(d.AmountInr)
		row := models.RowResult{RowDraft: d}
		if price, ok := prices.Lookup(d.ID); ok {
			row.Price = &price
		}
		res.Rows[i] = row
	}

	res.Totals.Funds = orZero(funds)
	if !isFinite(funds) || funds <= 0 {
		addIssue(res, models.LevelError, models.CodeFundsInvalid,
			"Available funds must be greater than zero")
		return res, false
	}
	return res, true
}

func floorQty(amount, price float64) int64 {
	if amount <= 0 || price <= 0 {
		return 0
	}
	q := math.Floor(amount / price)
	if q >= MaxPlannedQty {
		return MaxPlannedQty
	}
	return int64(q)
}

// setQty keeps PlannedCost equal to PlannedQty * Price.
func setQty(r *models.RowResult, qty int64) {
	r.PlannedQty = qty
	r.PlannedCost = float64(qty) * *r.Price
}

func summarize(res *models.AllocationResult) {
	var total float64
	for _, r := range res.Rows {
		total += r.PlannedCost
	}
	res.Totals.TotalCost = total
	res.Totals.Remaining = res.Totals.Funds - total
	if res.Mode != models.WeightDriven {
		var weightSum, lockedSum float64
		for _, r := range res.Rows {
			weightSum += r.WeightPct
			if r.Locked {
				lockedSum += r.WeightPct
			}
		}
		res.Totals.WeightSumPct = weightSum
		res.Totals.LockedWeightSumPct = lockedSum
	}
}

// enforceMinQty computes the funds needed for every weighted row to reach
// minQty shares. It reports true when funds fall short, which blocks the
// optimizer.
func enforceMinQty(res *models.AllocationResult, weights []float64, funds float64, minQty int64) bool {
	required := make([]float64, len(res.Rows))
	var maxRequired float64
	found := false
	for i, r := range res.Rows {
		if weights[i] <= 0 || r.Price == nil {
			continue
		}
		required[i] = *r.Price * float64(minQty) * 100 / weights[i]
		if !found || required[i] > maxRequired {
			maxRequired = required[i]
			found = true
		}
	}
	if !found {
		return false
	}

	minFunds := RoundTo(maxRequired, 2)
	res.Totals.MinFundsRequired = &minFunds
	res.Totals.AdditionalFundsRequired = math.Max(0, RoundTo(maxRequired-funds, 2))
	if maxRequired <= funds+CurrencyEpsilon {
		return false
	}

	addIssue(res, models.LevelError, models.CodeMinQtyFundsInsufficient,
		"Buying at least %d share(s) of every row needs %s; add %s",
		minQty, inr(maxRequired), inr(res.Totals.AdditionalFundsRequired))
	for i, r := range res.Rows {
		if required[i] > funds+CurrencyEpsilon {
			addRowIssue(res, i, models.LevelError, models.CodeMinQtyUnmet,
				"%s: %d share(s) at %.2f%% weight needs funds of %s",
				label(r), minQty, weights[i], inr(required[i]))
		}
	}
	return true
}
