// Package interfaces defines service contracts for the stock analyzer
package interfaces

import (
	"context"

	"github.com/prakhar82/stock-analyzer/internal/models"
)

// PriceOracle resolves cached market snapshots for symbols.
type PriceOracle interface {
	// Fetch returns the quote for a symbol, trying each source in the
	// chain until one yields a non-zero price. Returns
	// *models.SymbolNotFoundError when the chain is exhausted.
	// Results are cached; a cache hit bypasses all source calls.
	Fetch(ctx context.Context, symbol string) (*models.PriceQuote, error)

	// Invalidate drops the cached quote for one symbol.
	Invalidate(symbol string)

	// InvalidateAll drops every cached quote.
	InvalidateAll()
}

// PortfolioService aggregates positions, quotes, and recommendations
// into a portfolio summary.
type PortfolioService interface {
	// BuildSummary returns the cached or freshly computed summary.
	// Instruments whose symbol cannot be quoted are excluded.
	BuildSummary(ctx context.Context) (*models.PortfolioSummary, error)

	// OnLedgerMutated invalidates the summary cache. Must be called
	// after every transaction append or base-holdings replacement.
	OnLedgerMutated()
}

// ReportService builds the date-filtered top-up report.
type ReportService interface {
	// TopUpReport returns transactions across all symbols whose date
	// falls within [startDate, endDate], enriched with current-price
	// gain/loss and signed investment.
	TopUpReport(ctx context.Context, startDate, endDate string) ([]models.ReportRow, error)

	// RenderPDF renders the report for the date range as a PDF document.
	RenderPDF(ctx context.Context, startDate, endDate string) ([]byte, error)
}

// ChartService computes price-history chart series.
type ChartService interface {
	// ChartData returns moving-average and P/E series for a symbol
	// over the last N years.
	ChartData(ctx context.Context, symbol string, years int) (*models.ChartData, error)

	// RenderPNG renders the chart series as a PNG image.
	RenderPNG(ctx context.Context, symbol string, years int) ([]byte, error)
}
