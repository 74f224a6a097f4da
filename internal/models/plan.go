package models

import "time"

// AllocationOptions are the mode-specific knobs of an allocation request.
// MinQtyPerRow, RequireWeightsSumTo100 and OptimizeWithRemainingFunds only
// apply to weight mode.
type AllocationOptions struct {
	RequireWeightsSumTo100     bool  `json:"requireWeightsSumTo100"`
	MinQtyPerRow               int64 `json:"minQtyPerRow"`
	OptimizeWithRemainingFunds bool  `json:"optimizeWithRemainingFunds"`
}

// Plan is a saved allocation: the inputs it was computed from and the result.
type Plan struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Mode      Mode              `json:"mode"`
	Funds     float64           `json:"funds"`
	Options   AllocationOptions `json:"options"`
	Drafts    []RowDraft        `json:"drafts"`
	Prices    PriceMap          `json:"prices"`
	Result    *AllocationResult `json:"result"`
	CreatedAt time.Time         `json:"createdAt"`
}

// PlanSummary is the listing view of a saved plan.
type PlanSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mode      Mode      `json:"mode"`
	Funds     float64   `json:"funds"`
	TotalCost float64   `json:"totalCost"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"createdAt"`
}
