package chart

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prakhar82/stock-analyzer/internal/common"
	"github.com/prakhar82/stock-analyzer/internal/models"
)

// --- Mocks ---

type mockNSEClient struct {
	bars []models.DailyBar
	err  error
}

func (m *mockNSEClient) FetchDerivativeQuote(_ context.Context, _ string) (*models.ProviderQuote, error) {
	return nil, errors.New("not implemented")
}

func (m *mockNSEClient) FetchEquityQuote(_ context.Context, _ string) (*models.ProviderQuote, error) {
	return nil, errors.New("not implemented")
}

func (m *mockNSEClient) FetchDailyHistory(_ context.Context, _ string, _ int) ([]models.DailyBar, error) {
	return m.bars, m.err
}

type mockOracle struct {
	eps float64
	err error
}

func (m *mockOracle) Fetch(_ context.Context, symbol string) (*models.PriceQuote, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.PriceQuote{Symbol: symbol, CurrentPrice: 100, EPS: m.eps}, nil
}

func (m *mockOracle) Invalidate(string) {}
func (m *mockOracle) InvalidateAll()    {}

// flatBars returns n consecutive daily bars all closing at the same price.
func flatBars(n int, close float64) []models.DailyBar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.DailyBar, n)
	for i := range bars {
		bars[i] = models.DailyBar{Date: start.AddDate(0, 0, i), Close: close}
	}
	return bars
}

func newTestService(nse *mockNSEClient, oracle *mockOracle) *Service {
	return NewService(nse, oracle, common.NewSilentLogger())
}

// --- Tests ---

func TestChartDataFlatSeries(t *testing.T) {
	svc := newTestService(&mockNSEClient{bars: flatBars(250, 300)}, &mockOracle{eps: 20})

	data, err := svc.ChartData(context.Background(), "ABC", 3)
	require.NoError(t, err)

	// 250 bars trim to the 51 rows where the 200-day mean is defined.
	require.Len(t, data.Dates, 51)
	require.Len(t, data.PEEPS, 51)
	require.Len(t, data.DMA50, 51)
	require.Len(t, data.DMA200, 51)

	assert.Equal(t, 300.0, data.DMA50[0])
	assert.Equal(t, 300.0, data.DMA200[0])
	assert.Equal(t, 15.0, data.PEEPS[0]) // 300 / 20

	// First row is the 200th bar.
	assert.Equal(t, "2025-07-19", data.Dates[0])
}

func TestChartDataMovingAverageWindows(t *testing.T) {
	// Ramp: close = i+1 for bar i, so window means are exact midpoints.
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.DailyBar, 200)
	for i := range bars {
		bars[i] = models.DailyBar{Date: start.AddDate(0, 0, i), Close: float64(i + 1)}
	}
	svc := newTestService(&mockNSEClient{bars: bars}, &mockOracle{eps: 10})

	data, err := svc.ChartData(context.Background(), "ABC", 1)
	require.NoError(t, err)
	require.Len(t, data.Dates, 1)

	// Mean of 151..200 and of 1..200 respectively.
	assert.Equal(t, 175.5, data.DMA50[0])
	assert.Equal(t, 100.5, data.DMA200[0])
	assert.Equal(t, 20.0, data.PEEPS[0])
}

func TestChartDataInsufficientHistory(t *testing.T) {
	svc := newTestService(&mockNSEClient{bars: flatBars(150, 100)}, &mockOracle{eps: 10})

	_, err := svc.ChartData(context.Background(), "ABC", 1)
	assert.ErrorContains(t, err, "insufficient history")
}

func TestChartDataHistoryFetchError(t *testing.T) {
	svc := newTestService(&mockNSEClient{err: errors.New("upstream down")}, &mockOracle{eps: 10})

	_, err := svc.ChartData(context.Background(), "ABC", 1)
	assert.Error(t, err)
}

func TestChartDataEPSFallback(t *testing.T) {
	// Oracle failure and zero EPS both degrade to the default.
	for name, oracle := range map[string]*mockOracle{
		"fetch error": {err: &models.SymbolNotFoundError{Symbol: "ABC"}},
		"zero eps":    {eps: 0},
	} {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(&mockNSEClient{bars: flatBars(200, 300)}, oracle)

			data, err := svc.ChartData(context.Background(), "ABC", 1)
			require.NoError(t, err)
			assert.Equal(t, 20.0, data.PEEPS[0]) // 300 / DefaultEPS
		})
	}
}

func TestRenderPNGProducesImage(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.DailyBar, 260)
	for i := range bars {
		bars[i] = models.DailyBar{Date: start.AddDate(0, 0, i), Close: 300 + float64(i)}
	}
	svc := newTestService(&mockNSEClient{bars: bars}, &mockOracle{eps: 20})

	data, err := svc.RenderPNG(context.Background(), "ABC", 3)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "output should be a PNG image")
}
