// Package portfolio aggregates positions, quotes, and recommendations
// into a cached portfolio summary.
package portfolio

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/prakhar82/stock-analyzer/internal/cache"
	"github.com/prakhar82/stock-analyzer/internal/common"
	"github.com/prakhar82/stock-analyzer/internal/interfaces"
	"github.com/prakhar82/stock-analyzer/internal/models"
	"github.com/prakhar82/stock-analyzer/internal/services/position"
	"github.com/prakhar82/stock-analyzer/internal/services/recommend"
)

const (
	// DefaultSummaryTTL is the aggregate cache window. The cache is
	// additionally invalidated on every ledger mutation.
	DefaultSummaryTTL = 2 * time.Minute

	// DefaultSummaryEntries bounds the aggregate cache. The summary is
	// keyed by a constant, so this is a single-slot cache with headroom.
	DefaultSummaryEntries = 10

	summaryCacheKey = "portfolio"
)

// Service implements PortfolioService.
type Service struct {
	ledger interfaces.LedgerStore
	oracle interfaces.PriceOracle
	rng    recommend.Rand
	cache  *cache.Cache[*models.PortfolioSummary]
	logger *common.Logger
	now    func() time.Time // injectable clock for testing
}

// ServiceOption configures the portfolio service.
type ServiceOption func(*options)

type options struct {
	summaryTTL     time.Duration
	summaryEntries int
	rng            recommend.Rand
	clock          cache.Clock
}

// WithSummaryTTL overrides the aggregate cache TTL.
func WithSummaryTTL(ttl time.Duration) ServiceOption {
	return func(o *options) {
		o.summaryTTL = ttl
	}
}

// WithSummaryEntries overrides the aggregate cache size.
func WithSummaryEntries(n int) ServiceOption {
	return func(o *options) {
		o.summaryEntries = n
	}
}

// WithRand overrides the projection randomness source.
func WithRand(rng recommend.Rand) ServiceOption {
	return func(o *options) {
		o.rng = rng
	}
}

// WithClock overrides the time source.
func WithClock(now cache.Clock) ServiceOption {
	return func(o *options) {
		o.clock = now
	}
}

// NewService creates a new portfolio service.
func NewService(ledger interfaces.LedgerStore, oracle interfaces.PriceOracle, logger *common.Logger, opts ...ServiceOption) *Service {
	o := &options{
		summaryTTL:     DefaultSummaryTTL,
		summaryEntries: DefaultSummaryEntries,
		rng:            recommend.SystemRand{},
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Service{
		ledger: ledger,
		oracle: oracle,
		rng:    o.rng,
		cache:  cache.New(o.summaryTTL, o.summaryEntries, cache.WithClock[*models.PortfolioSummary](o.clock)),
		logger: logger,
		now:    o.clock,
	}
}

// BuildSummary returns the cached summary, recomputing on a miss.
// Concurrent cold-cache callers share one computation.
func (s *Service) BuildSummary(ctx context.Context) (*models.PortfolioSummary, error) {
	return s.cache.GetOrCompute(ctx, summaryCacheKey, s.compute)
}

// OnLedgerMutated invalidates the summary cache. The invalidation
// completes before this returns, so a read issued afterwards cannot
// observe the pre-mutation summary.
func (s *Service) OnLedgerMutated() {
	s.cache.InvalidateAll()
	s.logger.Debug().Msg("Summary cache invalidated after ledger mutation")
}

// compute rebuilds the whole summary: replay each holding's ledger,
// join with the oracle quote, attach the recommendation and
// projections, and accumulate totals over the included instruments.
func (s *Service) compute(ctx context.Context) (*models.PortfolioSummary, error) {
	holdings, err := s.ledger.ReadBaseHoldings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read base holdings: %w", err)
	}

	summary := &models.PortfolioSummary{
		Stocks:      make([]models.StockView, 0, len(holdings)),
		GeneratedAt: s.now(),
	}

	for _, base := range holdings {
		txs, err := s.ledger.ReadTransactions(ctx, base.Symbol)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", base.Symbol).Msg("Failed to read ledger, replaying base holding only")
			txs = nil
		}

		pos := position.Replay(base, txs)
		if pos.Quantity < 0 {
			s.logger.Warn().
				Str("symbol", base.Symbol).
				Int("quantity", pos.Quantity).
				Msg("Position oversold beyond recorded holdings")
		}

		quote, err := s.oracle.Fetch(ctx, base.Symbol)
		if err != nil {
			if models.IsSymbolNotFound(err) {
				s.logger.Warn().Str("symbol", base.Symbol).Msg("No quote available, excluding from summary")
				continue
			}
			return nil, fmt.Errorf("quote fetch for %s: %w", base.Symbol, err)
		}

		view := s.buildView(pos, quote, txs)

		summary.Stocks = append(summary.Stocks, view)
		summary.TotalInvestment = round2(summary.TotalInvestment + view.Investment)
		summary.TotalBestCase = round2(summary.TotalBestCase + view.BestCaseValue)
		summary.TotalWorstCase = round2(summary.TotalWorstCase + view.WorstCaseValue)
	}

	s.logger.Info().
		Int("stocks", len(summary.Stocks)).
		Float64("total_investment", summary.TotalInvestment).
		Msg("Portfolio summary rebuilt")

	return summary, nil
}

// buildView merges one position with its quote. Every ratio is
// zero-guarded: no NaN or Inf may reach the summary.
func (s *Service) buildView(pos models.Position, quote *models.PriceQuote, txs []models.Transaction) models.StockView {
	price := quote.CurrentPrice

	investment := float64(pos.Quantity) * pos.AveragePrice
	currentValue := float64(pos.Quantity) * price

	change := 0.0
	changePercent := 0.0
	if pos.AveragePrice != 0 {
		change = price - pos.AveragePrice
		changePercent = change / pos.AveragePrice * 100
	}

	bestCase, worstCase := recommend.Project(s.rng, currentValue)

	enriched := make([]models.EnrichedTransaction, 0, len(txs))
	for _, tx := range txs {
		gainLoss := 0.0
		if tx.Price != 0 {
			gainLoss = round2((price - tx.Price) / tx.Price * 100)
		}
		enriched = append(enriched, models.EnrichedTransaction{
			Transaction:     tx,
			GainLossPercent: gainLoss,
		})
	}

	return models.StockView{
		PriceQuote:     *quote,
		Quantity:       pos.Quantity,
		AveragePrice:   round2(pos.AveragePrice),
		Investment:     round2(investment),
		CurrentValue:   round2(currentValue),
		Change:         round2(change),
		ChangePercent:  round2(changePercent),
		Recommendation: recommend.Recommend(quote.Valuation, price, pos.AveragePrice),
		BestCaseValue:  round2(bestCase),
		WorstCaseValue: round2(worstCase),
		Transactions:   enriched,
	}
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Ensure Service implements PortfolioService
var _ interfaces.PortfolioService = (*Service)(nil)
