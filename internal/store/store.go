// Package store provides persistence for saved allocation plans.
package store

import (
	"context"

	"zerodha-allocator/internal/models"
)

// PlanStore defines the interface for plan persistence.
type PlanStore interface {
	// SavePlan assigns an id and creation time when missing and stores the plan.
	SavePlan(ctx context.Context, plan *models.Plan) error
	// GetPlan returns the plan with the given id, or the newest plan with that name.
	GetPlan(ctx context.Context, ref string) (*models.Plan, error)
	// ListPlans returns summaries, newest first. limit <= 0 means no limit.
	ListPlans(ctx context.Context, limit int) ([]models.PlanSummary, error)
	DeletePlan(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}
