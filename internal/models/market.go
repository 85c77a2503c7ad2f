// Package models defines data structures for the stock analyzer
package models

import (
	"math"
	"time"
)

// Valuation is a coarse P/E-derived bucket used by the recommendation engine.
type Valuation string

const (
	ValuationUndervalued Valuation = "Undervalued"
	ValuationOvervalued  Valuation = "Overvalued"
	ValuationFair        Valuation = "Fair"
	ValuationUnknown     Valuation = "Unknown"
)

// ClassifyValuation maps a P/E ratio to a valuation bucket.
// A zero P/E means the source did not supply one ("N/A"), so the
// valuation is Unknown rather than Undervalued.
func ClassifyValuation(pe float64) Valuation {
	switch {
	case pe == 0 || math.IsNaN(pe):
		return ValuationUnknown
	case pe < 20:
		return ValuationUndervalued
	case pe > 35:
		return ValuationOvervalued
	default:
		return ValuationFair
	}
}

// ProviderQuote is the raw result from a single quote source, before
// enrichment. Price 0 means the source had no usable quote.
type ProviderQuote struct {
	Price   float64 `json:"price"`
	PERatio float64 `json:"pe_ratio"`
	EPS     float64 `json:"eps"`
}

// InstitutionalTrend captures quarterly FII/DII holding percentages
// scraped from screener.in.
type InstitutionalTrend struct {
	Quarters []string  `json:"quarters"`
	FII      []float64 `json:"fii"`
	DII      []float64 `json:"dii"`
	Status   string    `json:"status"` // increase, decrease, stable
}

// NeutralTrend returns the default trend used when the scrape fails.
func NeutralTrend() InstitutionalTrend {
	return InstitutionalTrend{
		Quarters: []string{},
		FII:      []float64{},
		DII:      []float64{},
		Status:   "stable",
	}
}

// PriceQuote is the fully resolved market snapshot for a symbol.
// A PriceQuote is always complete: callers never see a partial quote,
// a failed fetch surfaces as SymbolNotFoundError instead.
type PriceQuote struct {
	Symbol       string             `json:"symbol"`
	CompanyName  string             `json:"company_name"`
	CurrentPrice float64            `json:"current_price"`
	PERatio      float64            `json:"pe_ratio"`
	EPS          float64            `json:"eps"`
	Valuation    Valuation          `json:"valuation"`
	Trend        InstitutionalTrend `json:"fiidi_trend"`
	SourceTag    string             `json:"data_source"`
	FetchedAt    time.Time          `json:"fetched_at"`
}

// DailyBar is one day of close-price history used by the chart service.
type DailyBar struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// ChartData holds the series rendered by the chart endpoint. All slices
// are index-aligned and trimmed to the window where both moving
// averages are defined.
type ChartData struct {
	Dates  []string  `json:"date"`
	PEEPS  []float64 `json:"pe_eps"`
	DMA50  []float64 `json:"50dma"`
	DMA200 []float64 `json:"200dma"`
}
