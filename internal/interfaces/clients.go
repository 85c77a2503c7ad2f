// Package interfaces defines service contracts for the stock analyzer
package interfaces

import (
	"context"

	"github.com/prakhar82/stock-analyzer/internal/models"
)

// NSEClient provides access to the NSE quote API
type NSEClient interface {
	// FetchDerivativeQuote retrieves a quote from the derivatives segment
	FetchDerivativeQuote(ctx context.Context, symbol string) (*models.ProviderQuote, error)

	// FetchEquityQuote retrieves a quote from the equity segment
	FetchEquityQuote(ctx context.Context, symbol string) (*models.ProviderQuote, error)

	// FetchDailyHistory retrieves daily close bars for the last N years,
	// oldest first
	FetchDailyHistory(ctx context.Context, symbol string, years int) ([]models.DailyBar, error)
}

// ScreenerClient scrapes supplementary company data from screener.in.
// Both lookups are best-effort: callers degrade to defaults on error.
type ScreenerClient interface {
	// FetchCompanyName retrieves the display name for a symbol
	FetchCompanyName(ctx context.Context, symbol string) (string, error)

	// FetchInstitutionalTrend retrieves quarterly FII/DII holding data
	FetchInstitutionalTrend(ctx context.Context, symbol string) (*models.InstitutionalTrend, error)
}
