package models

import "math"

// Mode selects which draft field drives an allocation.
type Mode string

const (
	WeightDriven Mode = "weight"
	AmountDriven Mode = "amount"
	QtyDriven    Mode = "qty"
)

// IssueLevel is the severity of an allocation issue.
type IssueLevel string

const (
	LevelError   IssueLevel = "error"
	LevelWarning IssueLevel = "warning"
)

// IssueCode identifies the kind of allocation issue.
type IssueCode string

// Blocking codes.
const (
	CodeFundsInvalid            IssueCode = "funds_invalid"
	CodeLockedOver100           IssueCode = "locked_over_100"
	CodeWeightsNot100           IssueCode = "weights_not_100"
	CodeWeightInvalid           IssueCode = "weight_invalid"
	CodePriceMissing            IssueCode = "price_missing"
	CodeMinQtyFundsInsufficient IssueCode = "min_qty_funds_insufficient"
	CodeMinQtyUnmet             IssueCode = "min_qty_unmet"
	CodeAmountInvalid           IssueCode = "amount_invalid"
	CodeAmountOverFunds         IssueCode = "amount_over_funds"
	CodeQtyInvalid              IssueCode = "qty_invalid"
	CodeCostOverFunds           IssueCode = "cost_over_funds"
)

// Informational codes.
const (
	CodeQtyZero            IssueCode = "qty_zero"
	CodeAllocationOutliers IssueCode = "allocation_outliers"
	CodeAllocationOutlier  IssueCode = "allocation_outlier"
)

// Issue is a structured validation finding. Errors block saving; warnings don't.
type Issue struct {
	Level   IssueLevel `json:"level"`
	Code    IssueCode  `json:"code"`
	Message string     `json:"message"`
	RowID   string     `json:"rowId,omitempty"`
}

// IsBlocking reports whether the issue should prevent the result from being saved.
func (i Issue) IsBlocking() bool {
	return i.Level == LevelError
}

// RowDraft is one tradable line as entered by the user.
type RowDraft struct {
	ID        string   `json:"id"`
	Symbol    string   `json:"symbol"`
	Exchange  Exchange `json:"exchange"`
	WeightPct float64  `json:"weightPct"`
	AmountInr float64  `json:"amountInr"`
	Qty       int64    `json:"qty"`
	Locked    bool     `json:"locked"`
}

// Instrument returns the EXCHANGE:SYMBOL key used by quote providers.
func (r RowDraft) Instrument() string {
	ex := r.Exchange
	if ex == "" {
		ex = NSE
	}
	return string(ex) + ":" + r.Symbol
}

// PriceMap maps row id to last traded price. Absent ids have no live quote.
type PriceMap map[string]float64

// Lookup returns the price for id when it is present, finite and positive.
func (p PriceMap) Lookup(id string) (float64, bool) {
	price, ok := p[id]
	if !ok || math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, false
	}
	return price, true
}

// RowResult is a draft together with the computed allocation for it.
type RowResult struct {
	RowDraft
	Price        *float64 `json:"price,omitempty"`
	TargetAmount float64  `json:"targetAmount"`
	PlannedQty   int64    `json:"plannedQty"`
	PlannedCost  float64  `json:"plannedCost"`
	ActualPct    *float64 `json:"actualPct,omitempty"`
	DriftPct     *float64 `json:"driftPct,omitempty"`
	Issues       []Issue  `json:"issues,omitempty"`
}

// Totals aggregates a whole allocation.
type Totals struct {
	Funds                   float64  `json:"funds"`
	WeightSumPct            float64  `json:"weightSumPct"`
	LockedWeightSumPct      float64  `json:"lockedWeightSumPct"`
	TotalCost               float64  `json:"totalCost"`
	Remaining               float64  `json:"remaining"`
	MinFundsRequired        *float64 `json:"minFundsRequired,omitempty"`
	AdditionalFundsRequired float64  `json:"additionalFundsRequired"`
	MaxAbsDeviationPct      *float64 `json:"maxAbsDeviationPct,omitempty"`
}

// AllocationResult is the output of one engine call.
type AllocationResult struct {
	Mode   Mode        `json:"mode"`
	Rows   []RowResult `json:"rows"`
	Totals Totals      `json:"totals"`
	Issues []Issue     `json:"issues"`
}

// HasBlockingIssues reports whether any top-level issue is an error.
func (r *AllocationResult) HasBlockingIssues() bool {
	for _, issue := range r.Issues {
		if issue.IsBlocking() {
			return true
		}
	}
	return false
}

// Errors returns the blocking issues.
func (r *AllocationResult) Errors() []Issue {
	return r.filter(LevelError)
}

// Warnings returns the informational issues.
func (r *AllocationResult) Warnings() []Issue {
	return r.filter(LevelWarning)
}

func (r *AllocationResult) filter(level IssueLevel) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Level == level {
			out = append(out, issue)
		}
	}
	return out
}

// Row returns the result row with the given id.
func (r *AllocationResult) Row(id string) (RowResult, bool) {
	for _, row := range r.Rows {
		if row.ID == id {
			return row, true
		}
	}
	return RowResult{}, false
}
