package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prakhar82/stock-analyzer/internal/common"
	"github.com/prakhar82/stock-analyzer/internal/interfaces"
	"github.com/prakhar82/stock-analyzer/internal/models"
)

// --- Mocks ---

type mockNSEClient struct {
	derivative    *models.ProviderQuote
	derivativeErr error
	equity        map[string]*models.ProviderQuote // keyed by symbol as passed
	equityErr     error

	derivativeCalls int
	equityCalls     []string
}

func (m *mockNSEClient) FetchDerivativeQuote(_ context.Context, _ string) (*models.ProviderQuote, error) {
	m.derivativeCalls++
	return m.derivative, m.derivativeErr
}

func (m *mockNSEClient) FetchEquityQuote(_ context.Context, symbol string) (*models.ProviderQuote, error) {
	m.equityCalls = append(m.equityCalls, symbol)
	if m.equityErr != nil {
		return nil, m.equityErr
	}
	if q, ok := m.equity[symbol]; ok {
		return q, nil
	}
	return &models.ProviderQuote{}, nil
}

func (m *mockNSEClient) FetchDailyHistory(_ context.Context, _ string, _ int) ([]models.DailyBar, error) {
	return nil, nil
}

type mockScreenerClient struct {
	name     string
	nameErr  error
	trend    *models.InstitutionalTrend
	trendErr error
}

func (m *mockScreenerClient) FetchCompanyName(_ context.Context, _ string) (string, error) {
	return m.name, m.nameErr
}

func (m *mockScreenerClient) FetchInstitutionalTrend(_ context.Context, _ string) (*models.InstitutionalTrend, error) {
	return m.trend, m.trendErr
}

func newTestService(nse *mockNSEClient, scr *mockScreenerClient, opts ...ServiceOption) *Service {
	var screener interfaces.ScreenerClient
	if scr != nil {
		screener = scr
	}
	return NewService(nse, screener, common.NewSilentLogger(), opts...)
}

// --- Tests ---

func TestFetchDerivativeWins(t *testing.T) {
	nse := &mockNSEClient{
		derivative: &models.ProviderQuote{Price: 1520.5, PERatio: 18, EPS: 80},
	}
	svc := newTestService(nse, nil)

	quote, err := svc.Fetch(context.Background(), "RELIANCE")
	require.NoError(t, err)

	assert.Equal(t, SourceDerivative, quote.SourceTag)
	assert.Equal(t, 1520.5, quote.CurrentPrice)
	assert.Equal(t, models.ValuationUndervalued, quote.Valuation)
	assert.Empty(t, nse.equityCalls, "equity source should not be tried when derivative wins")
}

func TestFetchZeroPriceFallsThrough(t *testing.T) {
	nse := &mockNSEClient{
		derivative: &models.ProviderQuote{Price: 0},
		equity: map[string]*models.ProviderQuote{
			"ABC": {Price: 110, PERatio: 25, EPS: 4},
		},
	}
	svc := newTestService(nse, nil)

	quote, err := svc.Fetch(context.Background(), "ABC")
	require.NoError(t, err)

	assert.Equal(t, SourceEquity, quote.SourceTag, "source tag must reflect the fallback, not the primary")
	assert.Equal(t, 110.0, quote.CurrentPrice)
	assert.Equal(t, models.ValuationFair, quote.Valuation)
}

func TestFetchSuffixedFallback(t *testing.T) {
	nse := &mockNSEClient{
		derivativeErr: errors.New("source down"),
		equity: map[string]*models.ProviderQuote{
			"ABC.NS": {Price: 95, PERatio: 40, EPS: 2},
		},
	}
	svc := newTestService(nse, nil)

	quote, err := svc.Fetch(context.Background(), "ABC")
	require.NoError(t, err)

	assert.Equal(t, SourceEquitySuffixed, quote.SourceTag)
	assert.Equal(t, models.ValuationOvervalued, quote.Valuation)
	assert.Equal(t, []string{"ABC", "ABC.NS"}, nse.equityCalls)
}

func TestFetchChainExhausted(t *testing.T) {
	nse := &mockNSEClient{
		derivativeErr: errors.New("down"),
		equityErr:     errors.New("also down"),
	}
	svc := newTestService(nse, nil)

	_, err := svc.Fetch(context.Background(), "GHOST")
	require.Error(t, err)

	var nf *models.SymbolNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "GHOST", nf.Symbol)
}

func TestFetchMissingPEIsUnknown(t *testing.T) {
	nse := &mockNSEClient{
		derivative: &models.ProviderQuote{Price: 50, PERatio: 0},
	}
	svc := newTestService(nse, nil)

	quote, err := svc.Fetch(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, models.ValuationUnknown, quote.Valuation)
}

func TestFetchCacheHitBypassesSources(t *testing.T) {
	nse := &mockNSEClient{
		derivative: &models.ProviderQuote{Price: 100, PERatio: 22},
	}
	svc := newTestService(nse, nil)

	first, err := svc.Fetch(context.Background(), "ABC")
	require.NoError(t, err)

	second, err := svc.Fetch(context.Background(), "ABC")
	require.NoError(t, err)

	assert.Equal(t, 1, nse.derivativeCalls, "cache hit must not touch any source")
	assert.Equal(t, first, second)
}

func TestFetchCacheExpires(t *testing.T) {
	current := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	nse := &mockNSEClient{
		derivative: &models.ProviderQuote{Price: 100, PERatio: 22},
	}
	svc := newTestService(nse, nil,
		WithCacheTTL(30*time.Minute),
		WithClock(func() time.Time { return current }),
	)

	_, err := svc.Fetch(context.Background(), "ABC")
	require.NoError(t, err)

	current = current.Add(31 * time.Minute)
	_, err = svc.Fetch(context.Background(), "ABC")
	require.NoError(t, err)

	assert.Equal(t, 2, nse.derivativeCalls, "expired entry must trigger a live fetch")
}

func TestInvalidateForcesRefetch(t *testing.T) {
	nse := &mockNSEClient{
		derivative: &models.ProviderQuote{Price: 100, PERatio: 22},
	}
	svc := newTestService(nse, nil)

	_, err := svc.Fetch(context.Background(), "ABC")
	require.NoError(t, err)

	svc.Invalidate("ABC")

	_, err = svc.Fetch(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, 2, nse.derivativeCalls)
}

func TestEnrichmentBestEffort(t *testing.T) {
	nse := &mockNSEClient{
		derivative: &models.ProviderQuote{Price: 100, PERatio: 22},
	}
	scr := &mockScreenerClient{
		nameErr:  errors.New("blocked"),
		trendErr: errors.New("blocked"),
	}
	svc := newTestService(nse, scr)

	quote, err := svc.Fetch(context.Background(), "ABC")
	require.NoError(t, err)

	assert.Empty(t, quote.CompanyName, "name failure degrades to empty")
	assert.Equal(t, "stable", quote.Trend.Status, "trend failure degrades to neutral")
}

func TestEnrichmentApplied(t *testing.T) {
	nse := &mockNSEClient{
		derivative: &models.ProviderQuote{Price: 100, PERatio: 22},
	}
	scr := &mockScreenerClient{
		name: "Acme Industries Ltd",
		trend: &models.InstitutionalTrend{
			Quarters: []string{"Mar 25", "Dec 24"},
			FII:      []float64{22.5, 21.9},
			DII:      []float64{17.2, 17.4},
			Status:   "increase",
		},
	}
	svc := newTestService(nse, scr)

	quote, err := svc.Fetch(context.Background(), "ACME")
	require.NoError(t, err)

	assert.Equal(t, "Acme Industries Ltd", quote.CompanyName)
	assert.Equal(t, "increase", quote.Trend.Status)
}
