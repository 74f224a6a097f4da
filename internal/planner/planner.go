// Package planner ties price resolution, the allocation engine and the plan
// store together.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"zerodha-allocator/internal/allocation"
	apperrors "zerodha-allocator/internal/errors"
	"zerodha-allocator/internal/logging"
	"zerodha-allocator/internal/models"
	"zerodha-allocator/internal/prices"
	"zerodha-allocator/internal/store"
)

// Planner recomputes allocations and persists the ones worth keeping.
type Planner struct {
	resolver prices.Resolver
	store    store.PlanStore
	logger   zerolog.Logger
}

// New creates a planner. resolver and store may be nil: without a resolver
// only prices supplied on the request are used, and without a store Save
// and the plan lookups fail.
func New(resolver prices.Resolver, planStore store.PlanStore, logger zerolog.Logger) *Planner {
	return &Planner{
		resolver: resolver,
		store:    planStore,
		logger:   logger,
	}
}

// log prefers the request-scoped logger a caller put on ctx.
func (p *Planner) log(ctx context.Context) zerolog.Logger {
	return logging.FromContext(ctx, p.logger).With().Str("component", "planner").Logger()
}

// Preview resolves prices for rows that lack one and runs the engine.
// Prices already on the request take precedence over resolved ones.
func (p *Planner) Preview(ctx context.Context, req allocation.Request) (*models.AllocationResult, models.PriceMap, error) {
	priceMap, err := p.resolve(ctx, req.Rows, req.Prices)
	if err != nil {
		return nil, nil, err
	}
	req.Prices = priceMap

	res := allocation.Allocate(req)
	logging.LogAllocation(logging.WithMode(p.log(ctx), res.Mode), res)
	return res, priceMap, nil
}

// Save recomputes the request and stores it under name. A result with
// blocking errors is returned alongside ErrBlockingIssues and not stored.
func (p *Planner) Save(ctx context.Context, name string, req allocation.Request) (*models.Plan, error) {
	if p.store == nil {
		return nil, fmt.Errorf("plan store not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name", name, "plan name is required")
	}

	res, priceMap, err := p.Preview(ctx, req)
	if err != nil {
		return nil, err
	}

	plan := &models.Plan{
		Name:    name,
		Mode:    res.Mode,
		Funds:   req.Funds,
		Options: req.Options,
		Drafts:  req.Rows,
		Prices:  priceMap,
		Result:  res,
	}

	if res.HasBlockingIssues() {
		codes := make([]string, 0, len(res.Errors()))
		for _, issue := range res.Errors() {
			codes = append(codes, string(issue.Code))
		}
		return plan, fmt.Errorf("%w: %s", apperrors.ErrBlockingIssues, strings.Join(codes, ", "))
	}

	if err := p.store.SavePlan(ctx, plan); err != nil {
		return nil, err
	}

	logger := logging.WithPlan(p.log(ctx), plan.ID, plan.Name)
	logger.Info().
		Str("mode", string(plan.Mode)).
		Float64("total_cost", res.Totals.TotalCost).
		Msg("Plan saved")
	return plan, nil
}

// Recompute reloads a saved plan, re-resolves prices for its rows and runs
// the engine again with the stored funds and options. Stored prices are
// only used for rows the resolver cannot price.
func (p *Planner) Recompute(ctx context.Context, ref string) (*models.Plan, error) {
	plan, err := p.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	fresh, err := p.resolve(ctx, plan.Drafts, nil)
	if err != nil {
		return nil, err
	}
	for id, price := range plan.Prices {
		if _, ok := fresh.Lookup(id); !ok {
			fresh[id] = price
		}
	}

	plan.Prices = fresh
	plan.Result = allocation.Allocate(allocation.Request{
		Mode:    plan.Mode,
		Funds:   plan.Funds,
		Rows:    plan.Drafts,
		Prices:  fresh,
		Options: plan.Options,
	})
	logging.LogAllocation(logging.WithPlan(p.log(ctx), plan.ID, plan.Name), plan.Result)
	return plan, nil
}

// Get returns a saved plan by id or name.
func (p *Planner) Get(ctx context.Context, ref string) (*models.Plan, error) {
	if p.store == nil {
		return nil, fmt.Errorf("plan store not configured")
	}
	return p.store.GetPlan(ctx, ref)
}

// List returns saved plan summaries, newest first.
func (p *Planner) List(ctx context.Context, limit int) ([]models.PlanSummary, error) {
	if p.store == nil {
		return nil, fmt.Errorf("plan store not configured")
	}
	return p.store.ListPlans(ctx, limit)
}

// Delete removes a saved plan by id or name.
func (p *Planner) Delete(ctx context.Context, ref string) error {
	plan, err := p.Get(ctx, ref)
	if err != nil {
		return err
	}
	if err := p.store.DeletePlan(ctx, plan.ID); err != nil {
		return err
	}
	logger := logging.WithPlan(p.log(ctx), plan.ID, plan.Name)
	logger.Info().Msg("Plan deleted")
	return nil
}

func (p *Planner) resolve(ctx context.Context, rows []models.RowDraft, known models.PriceMap) (models.PriceMap, error) {
	out := make(models.PriceMap, len(rows))
	var pending []models.RowDraft
	for _, r := range rows {
		if price, ok := known.Lookup(r.ID); ok {
			out[r.ID] = price
			continue
		}
		pending = append(pending, r)
	}
	if p.resolver == nil || len(pending) == 0 {
		return out, nil
	}

	found, err := p.resolver.Resolve(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("resolving prices: %w", err)
	}
	for _, r := range pending {
		if price, ok := found.Lookup(r.ID); ok {
			out[r.ID] = price
		}
	}

	logger := p.log(ctx)
	logger.Debug().
		Int("requested", len(pending)).
		Int("resolved", len(found)).
		Msg("Prices resolved")
	return out, nil
}
