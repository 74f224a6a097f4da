package allocation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"zerodha-allocator/internal/models"
)

const maxNamedOutliers = 3

type deviation struct {
	row int
	dev float64
}

// detectOutliers attaches realised weight and drift to every row and flags
// weighted rows whose absolute drift lies above median + 2.5*IQR.
func detectOutliers(res *models.AllocationResult, weights []float64) {
	total := res.Totals.TotalCost
	if total <= 0 {
		return
	}

	var devs []deviation
	for i := range res.Rows {
		r := &res.Rows[i]
		actual := r.PlannedCost / total * 100
		drift := actual - weights[i]
		r.ActualPct = &actual
		r.DriftPct = &drift
		if weights[i] > 0 {
			devs = append(devs, deviation{row: i, dev: math.Abs(drift)})
		}
	}
	if len(devs) == 0 {
		return
	}

	values := make([]float64, len(devs))
	maxDev := 0.0
	for i, d := range devs {
		values[i] = d.dev
		maxDev = math.Max(maxDev, d.dev)
	}
	res.Totals.MaxAbsDeviationPct = &maxDev

	sorted := sortedCopy(values)
	q1, _ := Quantile(sorted, 0.25)
	q3, _ := Quantile(sorted, 0.75)
	iqr := q3 - q1
	if iqr <= TieEpsilon {
		return
	}
	median, _ := Quantile(sorted, 0.5)
	upper := median + OutlierFenceMultiplier*iqr

	var offenders []deviation
	for _, d := range devs {
		if d.dev > upper+TieEpsilon {
			offenders = append(offenders, d)
		}
	}
	if len(offenders) == 0 {
		return
	}

	for _, d := range offenders {
		r := res.Rows[d.row]
		addRowIssue(res, d.row, models.LevelWarning, models.CodeAllocationOutlier,
			"%s: allocated %.2f%% against a target of %.2f%%", label(r), *r.ActualPct, weights[d.row])
	}

	sort.SliceStable(offenders, func(i, j int) bool {
		return offenders[i].dev > offenders[j].dev
	})
	named := make([]string, 0, maxNamedOutliers)
	for _, d := range offenders {
		if len(named) == maxNamedOutliers {
			break
		}
		named = append(named, fmt.Sprintf("%s (%+.2f%%)", label(res.Rows[d.row]), *res.Rows[d.row].DriftPct))
	}
	addIssue(res, models.LevelWarning, models.CodeAllocationOutliers,
		"%d row(s) deviate unusually from target weight: %s", len(offenders), strings.Join(named, ", "))
}
