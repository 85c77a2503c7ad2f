package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prakhar82/stock-analyzer/internal/common"
	"github.com/prakhar82/stock-analyzer/internal/models"
)

const maxUploadBytes = 5 << 20 // 5MB holdings file limit

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
		"version": common.GetVersion(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// --- Portfolio handlers ---

// handleStocks handles GET /api/stocks.
func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	s.writeSummary(w, r)
}

// handleStocksUpload handles POST /api/stocks/upload. The multipart
// "file" field replaces the base holdings CSV and invalidates the
// summary cache.
func (s *Server) handleStocksUpload(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid multipart form: %v", err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Missing 'file' field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Error reading upload: %v", err))
		return
	}

	if err := s.app.Ledger.ReplaceBaseHoldings(r.Context(), data); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error saving holdings: %v", err))
		return
	}

	s.app.PortfolioService.OnLedgerMutated()
	s.logger.Info().Int("bytes", len(data)).Msg("Base holdings replaced")

	s.writeSummary(w, r)
}

// topupRequest is the POST /api/stocks/topup body.
type topupRequest struct {
	Symbol    string  `json:"symbol"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	EntryType string  `json:"entry_type"`
	Date      string  `json:"date"`
}

// handleStocksTopup handles POST /api/stocks/topup. The symbol must
// already exist in the base holdings.
func (s *Server) handleStocksTopup(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req topupRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		WriteError(w, http.StatusBadRequest, "Symbol is required")
		return
	}
	if req.Quantity <= 0 {
		WriteError(w, http.StatusBadRequest, "Quantity must be positive")
		return
	}
	if req.Price < 0 {
		WriteError(w, http.StatusBadRequest, "Price must not be negative")
		return
	}

	holdings, err := s.app.Ledger.ReadBaseHoldings(r.Context())
	if err != nil {
		if errors.Is(err, models.ErrBaseHoldingsMissing) {
			WriteError(w, http.StatusNotFound, "No holdings uploaded")
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error reading holdings: %v", err))
		return
	}

	known := false
	for _, h := range holdings {
		if strings.EqualFold(h.Symbol, req.Symbol) {
			known = true
			break
		}
	}
	if !known {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Symbol %s not in holdings", req.Symbol))
		return
	}

	tx := models.Transaction{
		Quantity:  req.Quantity,
		Price:     req.Price,
		EntryType: models.NormalizeEntryType(req.EntryType),
		Date:      strings.TrimSpace(req.Date),
	}
	if err := s.app.Ledger.AppendTransaction(r.Context(), req.Symbol, tx); err != nil {
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error appending transaction: %v", err))
		return
	}

	s.app.PortfolioService.OnLedgerMutated()
	s.logger.Info().
		Str("symbol", req.Symbol).
		Int("quantity", tx.Quantity).
		Str("entry_type", string(tx.EntryType)).
		Msg("Transaction appended")

	s.writeSummary(w, r)
}

// handleReportPDF handles GET /api/stocks/report.pdf?start_date&end_date.
func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")
	if startDate == "" || endDate == "" {
		WriteError(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}

	pdf, err := s.app.ReportService.RenderPDF(r.Context(), startDate, endDate)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Error building report: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=topup_report_%s_%s.pdf", startDate, endDate))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// --- Chart handlers ---

// routeCharts dispatches /api/charts/{symbol}/{years} where years may
// carry a .png suffix for an image render.
func (s *Server) routeCharts(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/charts/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		WriteError(w, http.StatusNotFound, "Expected /api/charts/{symbol}/{years}")
		return
	}

	symbol := strings.ToUpper(parts[0])
	yearsPart := parts[1]
	asPNG := strings.HasSuffix(yearsPart, ".png")
	yearsPart = strings.TrimSuffix(yearsPart, ".png")

	years, err := strconv.Atoi(yearsPart)
	if err != nil || years < 1 || years > 20 {
		WriteError(w, http.StatusBadRequest, "Years must be an integer between 1 and 20")
		return
	}

	if asPNG {
		png, err := s.app.ChartService.RenderPNG(r.Context(), symbol, years)
		if err != nil {
			WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error rendering chart: %v", err))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		w.Write(png)
		return
	}

	data, err := s.app.ChartService.ChartData(r.Context(), symbol, years)
	if err != nil {
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error building chart data: %v", err))
		return
	}
	WriteJSON(w, http.StatusOK, data)
}

// writeSummary builds and writes the portfolio summary, mapping missing
// holdings to 404.
func (s *Server) writeSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.app.PortfolioService.BuildSummary(r.Context())
	if err != nil {
		if errors.Is(err, models.ErrBaseHoldingsMissing) {
			WriteError(w, http.StatusNotFound, "No holdings uploaded")
			return
		}
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error building summary: %v", err))
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}
