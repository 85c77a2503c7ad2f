package nse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchDerivativeQuote_ParsesResponse(t *testing.T) {
	var capturedSymbol string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote-derivative" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		capturedSymbol = r.URL.Query().Get("symbol")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"lastPrice":1520.5,"pE":18.2,"eps":83.5}]}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	quote, err := client.FetchDerivativeQuote(context.Background(), "RELIANCE")
	if err != nil {
		t.Fatalf("FetchDerivativeQuote failed: %v", err)
	}

	if capturedSymbol != "RELIANCE" {
		t.Errorf("expected symbol RELIANCE, got %s", capturedSymbol)
	}
	if quote.Price != 1520.5 {
		t.Errorf("expected price 1520.5, got %.2f", quote.Price)
	}
	if quote.PERatio != 18.2 {
		t.Errorf("expected pe 18.2, got %.2f", quote.PERatio)
	}
	if quote.EPS != 83.5 {
		t.Errorf("expected eps 83.5, got %.2f", quote.EPS)
	}
}

func TestFetchDerivativeQuote_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	quote, err := client.FetchDerivativeQuote(context.Background(), "SMALLCO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Price != 0 {
		t.Errorf("expected zero price for empty data, got %.2f", quote.Price)
	}
}

func TestFetchEquityQuote_StringPE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"priceInfo":{"lastPrice":"842.10"},"metadata":{"pdSectorPe":"N/A","eps":12.4}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	quote, err := client.FetchEquityQuote(context.Background(), "SMALLCO")
	if err != nil {
		t.Fatalf("FetchEquityQuote failed: %v", err)
	}

	if quote.Price != 842.10 {
		t.Errorf("expected price 842.10, got %.2f", quote.Price)
	}
	if quote.PERatio != 0 {
		t.Errorf("expected N/A pe to parse as 0, got %.2f", quote.PERatio)
	}
	if quote.EPS != 12.4 {
		t.Errorf("expected eps 12.4, got %.2f", quote.EPS)
	}
}

func TestFetchEquityQuote_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.FetchEquityQuote(context.Background(), "NOPE")
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", apiErr.StatusCode)
	}
}

func TestFetchDailyHistory_SortsAscending(t *testing.T) {
	resp := map[string]interface{}{
		"data": []map[string]interface{}{
			{"CH_TIMESTAMP": "2026-02-03", "CH_CLOSING_PRICE": 105.0},
			{"CH_TIMESTAMP": "2026-02-01", "CH_CLOSING_PRICE": 100.0},
			{"CH_TIMESTAMP": "not-a-date", "CH_CLOSING_PRICE": 1.0},
			{"CH_TIMESTAMP": "2026-02-02", "CH_CLOSING_PRICE": 102.0},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	bars, err := client.FetchDailyHistory(context.Background(), "ABC", 1)
	if err != nil {
		t.Fatalf("FetchDailyHistory failed: %v", err)
	}

	if len(bars) != 3 {
		t.Fatalf("expected 3 bars (bad date dropped), got %d", len(bars))
	}
	if bars[0].Close != 100.0 || bars[2].Close != 105.0 {
		t.Errorf("bars not sorted ascending by date: %+v", bars)
	}
}
