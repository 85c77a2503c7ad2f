// Package report builds the date-filtered top-up history report
package report

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/prakhar82/stock-analyzer/internal/common"
	"github.com/prakhar82/stock-analyzer/internal/interfaces"
	"github.com/prakhar82/stock-analyzer/internal/models"
)

const dateLayout = "2006-01-02"

// Service implements ReportService.
type Service struct {
	ledger interfaces.LedgerStore
	oracle interfaces.PriceOracle
	logger *common.Logger
}

// NewService creates a new report service.
func NewService(ledger interfaces.LedgerStore, oracle interfaces.PriceOracle, logger *common.Logger) *Service {
	return &Service{
		ledger: ledger,
		oracle: oracle,
		logger: logger,
	}
}

// TopUpReport returns every transaction dated within [startDate,
// endDate] across all symbols, enriched with gain/loss against the
// current price. Rows with missing or unparseable dates are excluded.
// When a symbol cannot be quoted, its rows fall back to the transaction
// price, yielding a flat gain/loss rather than failing the report.
func (s *Service) TopUpReport(ctx context.Context, startDate, endDate string) ([]models.ReportRow, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}

	all, err := s.ledger.ReadAllTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledgers: %w", err)
	}

	// Resolve current prices once per symbol, best-effort.
	prices := make(map[string]float64)
	for symbol := range all {
		quote, err := s.oracle.Fetch(ctx, symbol)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("No current price for report, using transaction price")
			continue
		}
		prices[symbol] = quote.CurrentPrice
	}

	var rows []models.ReportRow
	for symbol, txs := range all {
		for _, tx := range txs {
			txDate, err := time.Parse(dateLayout, tx.Date)
			if err != nil {
				continue
			}
			if txDate.Before(start) || txDate.After(end) {
				continue
			}

			currentPrice, ok := prices[symbol]
			if !ok {
				currentPrice = tx.Price
			}

			gainLoss := 0.0
			if tx.Price != 0 {
				gainLoss = (currentPrice - tx.Price) / tx.Price * 100
			}

			investment := tx.Price * float64(tx.Quantity)
			if tx.EntryType == models.EntryTypeSell {
				investment = -investment
			}

			rows = append(rows, models.ReportRow{
				Symbol:          symbol,
				Date:            tx.Date,
				Quantity:        tx.Quantity,
				Price:           tx.Price,
				EntryType:       tx.EntryType,
				GainLossPercent: gainLoss,
				Investment:      investment,
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Symbol < rows[j].Symbol
	})

	return rows, nil
}

// RenderPDF renders the report as a PDF table with a net-investment
// summary line. Buys are green, sells red, matching the sign of the
// investment column.
func (s *Service) RenderPDF(ctx context.Context, startDate, endDate string) ([]byte, error) {
	rows, err := s.TopUpReport(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Top-up History Report (%s to %s)", startDate, endDate), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	headers := []string{"Stock", "Date", "Type", "Quantity", "Avg Price", "Gain/Loss %"}
	colWidth := 31.0

	pdf.SetFont("Arial", "B", 11)
	for _, h := range headers {
		pdf.CellFormat(colWidth, 10, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	totalInvested := 0.0

	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.CellFormat(colWidth, 10, row.Symbol, "1", 0, "", false, 0, "")
		pdf.CellFormat(colWidth, 10, row.Date, "1", 0, "", false, 0, "")

		if row.EntryType == models.EntryTypeBuy {
			pdf.SetTextColor(0, 128, 0)
		} else {
			pdf.SetTextColor(255, 0, 0)
		}
		pdf.CellFormat(colWidth, 10, string(row.EntryType), "1", 0, "", false, 0, "")
		pdf.SetTextColor(0, 0, 0)

		pdf.CellFormat(colWidth, 10, fmt.Sprintf("%d", row.Quantity), "1", 0, "", false, 0, "")
		pdf.CellFormat(colWidth, 10, fmt.Sprintf("%.2f", row.Price), "1", 0, "", false, 0, "")

		if row.GainLossPercent >= 0 {
			pdf.SetTextColor(0, 128, 0)
		} else {
			pdf.SetTextColor(255, 0, 0)
		}
		pdf.CellFormat(colWidth, 10, fmt.Sprintf("%.2f%%", row.GainLossPercent), "1", 0, "", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(-1)

		totalInvested += row.Investment
	}

	pdf.Ln(10)
	if totalInvested >= 0 {
		pdf.SetTextColor(0, 128, 0)
	} else {
		pdf.SetTextColor(255, 0, 0)
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, fmt.Sprintf("Net Investment (Buy - Sell): Rs. %.2f", totalInvested), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}

	return buf.Bytes(), nil
}

// Ensure Service implements ReportService
var _ interfaces.ReportService = (*Service)(nil)
