package allocation

import (
	"math"

	"zerodha-allocator/internal/models"
)

// spendRemaining buys one share at a time for the affordable row furthest
// below its target amount. It stops when no affordable row is still under
// target or after maxSteps purchases. Locked, unpriced and zero-weight rows
// are never touched. Ties go to the earlier row. It returns the number of
// shares bought.
func spendRemaining(rows []models.RowResult, weights []float64, funds float64, maxSteps int) int {
	var candidates []int
	minPrice := math.Inf(1)
	for i, r := range rows {
		if r.Locked || r.Price == nil || weights[i] <= 0 {
			continue
		}
		candidates = append(candidates, i)
		minPrice = math.Min(minPrice, *r.Price)
	}
	if len(candidates) == 0 {
		return 0
	}

	var spent float64
	for _, r := range rows {
		spent += r.PlannedCost
	}

	steps := 0
	for ; steps < maxSteps; steps++ {
		remaining := funds - spent
		if remaining+TieEpsilon < minPrice {
			break
		}

		best := -1
		var bestDeficit float64
		for _, i := range candidates {
			if *rows[i].Price > remaining+TieEpsilon || rows[i].PlannedQty >= MaxPlannedQty {
				continue
			}
			deficit := rows[i].TargetAmount - rows[i].PlannedCost
			if deficit <= TieEpsilon {
				continue
			}
			if best == -1 || deficit > bestDeficit+TieEpsilon {
				best = i
				bestDeficit = deficit
			}
		}
		if best == -1 {
			break
		}

		r := &rows[best]
		before := r.PlannedCost
		setQty(r, r.PlannedQty+1)
		spent += r.PlannedCost - before
	}
	return steps
}
