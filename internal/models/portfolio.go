package models

import (
	"strings"
	"time"
)

// EntryType distinguishes buy and sell ledger entries.
type EntryType string

const (
	EntryTypeBuy  EntryType = "Buy"
	EntryTypeSell EntryType = "Sell"
)

// NormalizeEntryType canonicalizes a raw entry type string. Anything
// that is not recognizably a sell is treated as a buy, matching the
// replay semantics.
func NormalizeEntryType(raw string) EntryType {
	s := strings.TrimSpace(raw)
	if s == "" {
		return EntryTypeBuy
	}
	s = strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	if s == string(EntryTypeSell) {
		return EntryTypeSell
	}
	return EntryTypeBuy
}

// BaseHolding is the starting position for an instrument as recorded in
// the primary holdings file, before any top-up/sell transactions.
type BaseHolding struct {
	Symbol       string  `json:"symbol"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"averageprice"`
}

// Transaction is one append-only ledger row for a symbol. Date may be
// empty; replay order is insertion order, never date order.
type Transaction struct {
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	EntryType EntryType `json:"entry_type"`
	Date      string    `json:"date"` // "YYYY-MM-DD" or ""
}

// EnrichedTransaction is a ledger row annotated with gain/loss against
// the current market price.
type EnrichedTransaction struct {
	Transaction
	GainLossPercent float64 `json:"gain_loss_percent"`
}

// Position is the derived current holding after replaying the ledger
// over the base holding. Quantity may go negative when oversold; the
// average price is zero in that case and the position is excluded from
// valuation ratios.
type Position struct {
	Symbol       string  `json:"symbol"`
	Quantity     int     `json:"quantity"`
	TotalCost    float64 `json:"total_cost"`
	AveragePrice float64 `json:"average_price"`
}

// Signal is the per-instrument action recommendation.
type Signal string

const (
	SignalStrongBuy   Signal = "Strong Buy"
	SignalBuy         Signal = "Buy"
	SignalStrongSell  Signal = "Strong Sell"
	SignalSell        Signal = "Sell"
	SignalExit        Signal = "EXIT"
	SignalPartialExit Signal = "PARTIAL EXIT"
	SignalTopUp       Signal = "TOP-UP"
	SignalHold        Signal = "HOLD"
)

// StockView is the fully merged per-instrument output combining
// position, price, and recommendation data. Rebuilt per aggregation
// cycle, never persisted.
type StockView struct {
	PriceQuote

	Quantity       int                   `json:"quantity"`
	AveragePrice   float64               `json:"average_price"`
	Investment     float64               `json:"investment"`
	CurrentValue   float64               `json:"current_value"`
	Change         float64               `json:"change"`
	ChangePercent  float64               `json:"change_percent"`
	Recommendation Signal                `json:"recommendation"`
	BestCaseValue  float64               `json:"3yr_best_case_value"`
	WorstCaseValue float64               `json:"3yr_worst_case_value"`
	Transactions   []EnrichedTransaction `json:"topups"`
}

// PortfolioSummary is the root aggregate returned to callers. Totals
// cover exactly the instruments present in Stocks.
type PortfolioSummary struct {
	Stocks          []StockView `json:"stocks"`
	TotalBestCase   float64     `json:"3yr_total_best"`
	TotalWorstCase  float64     `json:"3yr_total_worst"`
	TotalInvestment float64     `json:"total_investment"`
	GeneratedAt     time.Time   `json:"generated_at"`
}

// ReportRow is one date-filtered transaction enriched for the top-up
// report. Investment is signed: sells contribute negatively.
type ReportRow struct {
	Symbol          string    `json:"symbol"`
	Date            string    `json:"date"`
	Quantity        int       `json:"quantity"`
	Price           float64   `json:"price"`
	EntryType       EntryType `json:"entry_type"`
	GainLossPercent float64   `json:"gain_loss_percent"`
	Investment      float64   `json:"investment"`
}
