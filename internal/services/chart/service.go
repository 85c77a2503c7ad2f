// Package chart computes moving-average and valuation series from
// daily price history and renders them as charts.
package chart

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/prakhar82/stock-analyzer/internal/common"
	"github.com/prakhar82/stock-analyzer/internal/interfaces"
	"github.com/prakhar82/stock-analyzer/internal/models"
)

const (
	shortWindow = 50
	longWindow  = 200

	// DefaultEPS is used for the P/E series when no EPS can be
	// resolved for the symbol.
	DefaultEPS = 15.0
)

// Service builds chart series from NSE daily history. EPS for the P/E
// series comes from the price oracle and degrades to DefaultEPS.
type Service struct {
	nse    interfaces.NSEClient
	oracle interfaces.PriceOracle
	logger *common.Logger
}

var _ interfaces.ChartService = (*Service)(nil)

func NewService(nse interfaces.NSEClient, oracle interfaces.PriceOracle, logger *common.Logger) *Service {
	return &Service{
		nse:    nse,
		oracle: oracle,
		logger: logger,
	}
}

// chartSeries is the computed result before formatting. All slices are
// index-aligned and start at the first bar with a defined 200-day mean.
type chartSeries struct {
	dates  []time.Time
	peEPS  []float64
	dma50  []float64
	dma200 []float64
}

// ChartData returns the P/E and moving-average series for a symbol over
// the last N years of daily closes.
func (s *Service) ChartData(ctx context.Context, symbol string, years int) (*models.ChartData, error) {
	series, err := s.compute(ctx, symbol, years)
	if err != nil {
		return nil, err
	}

	data := &models.ChartData{
		Dates:  make([]string, len(series.dates)),
		PEEPS:  series.peEPS,
		DMA50:  series.dma50,
		DMA200: series.dma200,
	}
	for i, d := range series.dates {
		data.Dates[i] = d.Format("2006-01-02")
	}
	return data, nil
}

// RenderPNG renders the chart series as a PNG line chart.
func (s *Service) RenderPNG(ctx context.Context, symbol string, years int) ([]byte, error) {
	series, err := s.compute(ctx, symbol, years)
	if err != nil {
		return nil, err
	}

	peSeries := chart.TimeSeries{
		Name: "P/E",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"),
			StrokeWidth: 2.0,
		},
		XValues: series.dates,
		YValues: series.peEPS,
	}

	dma50Series := chart.TimeSeries{
		Name: "50 DMA",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("16a34a"),
			StrokeWidth: 1.5,
		},
		XValues: series.dates,
		YValues: series.dma50,
	}

	dma200Series := chart.TimeSeries{
		Name: "200 DMA",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"),
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: series.dates,
		YValues: series.dma200,
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s Price Analysis", symbol),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		Series: []chart.Series{
			peSeries,
			dma50Series,
			dma200Series,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *Service) compute(ctx context.Context, symbol string, years int) (*chartSeries, error) {
	bars, err := s.nse.FetchDailyHistory(ctx, symbol, years)
	if err != nil {
		return nil, fmt.Errorf("fetching history for %s: %w", symbol, err)
	}
	if len(bars) < longWindow {
		return nil, fmt.Errorf("insufficient history for %s: need %d bars, got %d", symbol, longWindow, len(bars))
	}

	eps := s.resolveEPS(ctx, symbol)

	// Prefix sums keep the rolling means linear in the bar count.
	sums := make([]float64, len(bars)+1)
	for i, b := range bars {
		sums[i+1] = sums[i] + b.Close
	}
	windowMean := func(end, window int) float64 {
		return (sums[end+1] - sums[end+1-window]) / float64(window)
	}

	n := len(bars) - longWindow + 1
	series := &chartSeries{
		dates:  make([]time.Time, n),
		peEPS:  make([]float64, n),
		dma50:  make([]float64, n),
		dma200: make([]float64, n),
	}
	for i := longWindow - 1; i < len(bars); i++ {
		j := i - longWindow + 1
		series.dates[j] = bars[i].Date
		series.peEPS[j] = round2(bars[i].Close / eps)
		series.dma50[j] = round2(windowMean(i, shortWindow))
		series.dma200[j] = round2(windowMean(i, longWindow))
	}
	return series, nil
}

// resolveEPS looks up the symbol's EPS through the oracle. Failures and
// non-positive values fall back to DefaultEPS so the chart still renders.
func (s *Service) resolveEPS(ctx context.Context, symbol string) float64 {
	quote, err := s.oracle.Fetch(ctx, symbol)
	if err != nil {
		s.logger.Debug().Str("symbol", symbol).Err(err).Msg("EPS lookup failed, using default")
		return DefaultEPS
	}
	if quote.EPS <= 0 {
		return DefaultEPS
	}
	return quote.EPS
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
