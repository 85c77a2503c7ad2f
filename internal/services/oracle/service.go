// Package oracle resolves market snapshots through an ordered chain of
// quote sources, memoized by a long-expiry cache.
package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/prakhar82/stock-analyzer/internal/cache"
	"github.com/prakhar82/stock-analyzer/internal/common"
	"github.com/prakhar82/stock-analyzer/internal/interfaces"
	"github.com/prakhar82/stock-analyzer/internal/models"
)

const (
	// DefaultCacheTTL is the quote memoization window. A cache hit
	// bypasses every source call.
	DefaultCacheTTL = 30 * time.Minute

	// DefaultSourceTimeout bounds each source attempt. A timeout
	// advances the chain instead of hanging the whole fetch.
	DefaultSourceTimeout = 10 * time.Second
)

// Source tags recorded on the winning quote.
const (
	SourceDerivative     = "nse_fno"
	SourceEquity         = "nse_eq"
	SourceEquitySuffixed = "nse_eq_with_NS"
)

// Service implements PriceOracle with a derivative-first source chain.
type Service struct {
	nse           interfaces.NSEClient
	screener      interfaces.ScreenerClient
	cache         *cache.Cache[*models.PriceQuote]
	logger        *common.Logger
	sourceTimeout time.Duration
	now           func() time.Time // injectable clock for testing
}

// ServiceOption configures the oracle service.
type ServiceOption func(*options)

type options struct {
	cacheTTL      time.Duration
	sourceTimeout time.Duration
	clock         cache.Clock
}

// WithCacheTTL overrides the quote cache TTL.
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

// WithSourceTimeout overrides the per-source fetch timeout.
func WithSourceTimeout(d time.Duration) ServiceOption {
	return func(o *options) {
		o.sourceTimeout = d
	}
}

// WithClock overrides the time source for cache expiry and FetchedAt.
func WithClock(now cache.Clock) ServiceOption {
	return func(o *options) {
		o.clock = now
	}
}

// NewService creates a new oracle service. screener may be nil, in
// which case enrichment is skipped and defaults are used.
func NewService(nse interfaces.NSEClient, screener interfaces.ScreenerClient, logger *common.Logger, opts ...ServiceOption) *Service {
	o := &options{
		cacheTTL:      DefaultCacheTTL,
		sourceTimeout: DefaultSourceTimeout,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Service{
		nse:           nse,
		screener:      screener,
		cache:         cache.New(o.cacheTTL, 0, cache.WithClock[*models.PriceQuote](o.clock)),
		logger:        logger,
		sourceTimeout: o.sourceTimeout,
		now:           o.clock,
	}
}

// Fetch returns the quote for a symbol, from cache when fresh. The raw
// symbol string is the cache key.
func (s *Service) Fetch(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	return s.cache.GetOrCompute(ctx, symbol, func(ctx context.Context) (*models.PriceQuote, error) {
		s.logger.Info().Str("symbol", symbol).Msg("Cache miss, fetching live quote")
		return s.fetchLive(ctx, symbol)
	})
}

// quoteSource is one element of the fallback chain.
type quoteSource struct {
	tag   string
	fetch func(ctx context.Context) (*models.ProviderQuote, error)
}

// fetchLive walks the source chain until one yields a non-zero price.
// Fundamentals come from whichever source supplied the price.
func (s *Service) fetchLive(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	sources := []quoteSource{
		{SourceDerivative, func(ctx context.Context) (*models.ProviderQuote, error) {
			return s.nse.FetchDerivativeQuote(ctx, symbol)
		}},
		{SourceEquity, func(ctx context.Context) (*models.ProviderQuote, error) {
			return s.nse.FetchEquityQuote(ctx, symbol)
		}},
		{SourceEquitySuffixed, func(ctx context.Context) (*models.ProviderQuote, error) {
			return s.nse.FetchEquityQuote(ctx, withNSSuffix(symbol))
		}},
	}

	var winner *models.ProviderQuote
	var sourceTag string

	for _, src := range sources {
		srcCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
		quote, err := src.fetch(srcCtx)
		cancel()

		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Str("source", src.tag).Msg("Quote source failed")
			continue
		}
		if quote == nil || quote.Price == 0 {
			s.logger.Debug().Str("symbol", symbol).Str("source", src.tag).Msg("Quote source empty")
			continue
		}

		winner = quote
		sourceTag = src.tag
		break
	}

	if winner == nil {
		return nil, &models.SymbolNotFoundError{Symbol: symbol}
	}

	result := &models.PriceQuote{
		Symbol:       symbol,
		CurrentPrice: winner.Price,
		PERatio:      winner.PERatio,
		EPS:          winner.EPS,
		Valuation:    models.ClassifyValuation(winner.PERatio),
		Trend:        models.NeutralTrend(),
		SourceTag:    sourceTag,
		FetchedAt:    s.now(),
	}

	s.enrich(ctx, result)

	s.logger.Info().
		Str("symbol", symbol).
		Str("source", sourceTag).
		Float64("price", winner.Price).
		Str("valuation", string(result.Valuation)).
		Msg("Quote resolved")

	return result, nil
}

// enrich adds the company name and institutional trend. Both lookups
// are best-effort: a failure leaves the default in place.
func (s *Service) enrich(ctx context.Context, quote *models.PriceQuote) {
	if s.screener == nil {
		return
	}

	trendCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
	trend, err := s.screener.FetchInstitutionalTrend(trendCtx, quote.Symbol)
	cancel()
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", quote.Symbol).Msg("Institutional trend unavailable")
	} else {
		quote.Trend = *trend
	}

	nameCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
	name, err := s.screener.FetchCompanyName(nameCtx, quote.Symbol)
	cancel()
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", quote.Symbol).Msg("Company name unavailable")
	} else {
		quote.CompanyName = name
	}
}

// Invalidate drops the cached quote for one symbol.
func (s *Service) Invalidate(symbol string) {
	s.cache.Invalidate(symbol)
}

// InvalidateAll drops every cached quote.
func (s *Service) InvalidateAll() {
	s.cache.InvalidateAll()
}

// withNSSuffix appends the .NS suffix unless already present.
func withNSSuffix(symbol string) string {
	if strings.HasSuffix(symbol, ".NS") {
		return symbol
	}
	return symbol + ".NS"
}

// Ensure Service implements PriceOracle
var _ interfaces.PriceOracle = (*Service)(nil)
