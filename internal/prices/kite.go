package prices

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "zerodha-allocator/internal/errors"
	"zerodha-allocator/internal/models"
)

// maxLTPInstruments caps the instruments sent in one LTP request.
const maxLTPInstruments = 500

// LTPClient is the part of the Kite Connect client used for quotes.
type LTPClient interface {
	GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error)
}

// KiteResolver fetches last traded prices from Zerodha Kite Connect.
type KiteResolver struct {
	client LTPClient
	retry  RetryConfig
	logger zerolog.Logger
}

// KiteConfig holds Kite Connect credentials.
type KiteConfig struct {
	APIKey      string
	AccessToken string
}

// NewKiteResolver creates a resolver backed by a Kite Connect session.
func NewKiteResolver(cfg KiteConfig, logger zerolog.Logger) (*KiteResolver, error) {
	if cfg.APIKey == "" || cfg.AccessToken == "" {
		return nil, apperrors.Wrap(apperrors.ErrNotAuthenticated, "kite api_key and access_token are required")
	}
	client := kiteconnect.New(cfg.APIKey)
	client.SetAccessToken(cfg.AccessToken)
	return NewKiteResolverWithClient(client, logger), nil
}

// NewKiteResolverWithClient wraps an existing client.
func NewKiteResolverWithClient(client LTPClient, logger zerolog.Logger) *KiteResolver {
	return &KiteResolver{
		client: client,
		retry:  DefaultRetryConfig(),
		logger: logger.With().Str("component", "kite_prices").Logger(),
	}
}

// WithRetry replaces the retry policy for quote requests.
func (k *KiteResolver) WithRetry(cfg RetryConfig) *KiteResolver {
	k.retry = cfg
	return k
}

// Resolve fetches LTPs in batches. Instruments Kite does not return, or
// returns with a non-positive price, stay unpriced.
func (k *KiteResolver) Resolve(ctx context.Context, rows []models.RowDraft) (models.PriceMap, error) {
	byInstrument := make(map[string][]string)
	var instruments []string
	for _, r := range rows {
		key := r.Instrument()
		if _, seen := byInstrument[key]; !seen {
			instruments = append(instruments, key)
		}
		byInstrument[key] = append(byInstrument[key], r.ID)
	}

	out := make(models.PriceMap, len(rows))
	for start := 0; start < len(instruments); start += maxLTPInstruments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + maxLTPInstruments
		if end > len(instruments) {
			end = len(instruments)
		}
		batch := instruments[start:end]

		quotes, err := retryWithResult(ctx, k.retry, func() (kiteconnect.QuoteLTP, error) {
			return k.client.GetLTP(batch...)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, apperrors.Wrap(apperrors.ErrPriceUnavailable, fmt.Sprintf("kite ltp: %v", err))
		}

		for _, key := range batch {
			q, ok := quotes[key]
			if !ok || q.LastPrice <= 0 {
				k.logger.Warn().Str("instrument", key).Msg("No LTP returned")
				continue
			}
			for _, id := range byInstrument[key] {
				out[id] = q.LastPrice
			}
		}
		k.logger.Debug().Int("instruments", len(batch)).Msg("Fetched LTP batch")
	}
	return out, nil
}
