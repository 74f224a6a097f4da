// Package prices resolves last traded prices for allocation rows.
package prices

import (
	"context"

	"zerodha-allocator/internal/models"
)

// Resolver maps rows to prices. Rows without a quote are left out of the
// returned map; the allocation engine reports them as price_missing.
type Resolver interface {
	Resolve(ctx context.Context, rows []models.RowDraft) (models.PriceMap, error)
}

// StaticResolver serves fixed prices keyed by row id or EXCHANGE:SYMBOL.
type StaticResolver struct {
	prices map[string]float64
}

// NewStaticResolver creates a resolver over a fixed price table.
func NewStaticResolver(prices map[string]float64) *StaticResolver {
	table := make(map[string]float64, len(prices))
	for k, v := range prices {
		table[k] = v
	}
	return &StaticResolver{prices: table}
}

// Resolve looks each row up by id first, then by instrument.
func (s *StaticResolver) Resolve(ctx context.Context, rows []models.RowDraft) (models.PriceMap, error) {
	out := make(models.PriceMap, len(rows))
	for _, r := range rows {
		if p, ok := s.prices[r.ID]; ok {
			out[r.ID] = p
			continue
		}
		if p, ok := s.prices[r.Instrument()]; ok {
			out[r.ID] = p
		}
	}
	return out, nil
}

// ChainResolver asks each resolver in turn for the rows still unpriced.
type ChainResolver struct {
	resolvers []Resolver
}

// NewChainResolver creates a resolver where earlier resolvers take precedence.
func NewChainResolver(resolvers ...Resolver) *ChainResolver {
	return &ChainResolver{resolvers: resolvers}
}

// Resolve implements Resolver.
func (c *ChainResolver) Resolve(ctx context.Context, rows []models.RowDraft) (models.PriceMap, error) {
	out := make(models.PriceMap, len(rows))
	pending := rows
	for _, r := range c.resolvers {
		if len(pending) == 0 {
			break
		}
		found, err := r.Resolve(ctx, pending)
		if err != nil {
			return nil, err
		}

		var next []models.RowDraft
		for _, row := range pending {
			if _, ok := found.Lookup(row.ID); ok {
				out[row.ID] = found[row.ID]
				continue
			}
			next = append(next, row)
		}
		pending = next
	}
	return out, nil
}
