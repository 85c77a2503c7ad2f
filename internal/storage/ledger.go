// Package storage provides flat-file persistence for holdings and ledgers.
package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/prakhar82/stock-analyzer/internal/common"
	"github.com/prakhar82/stock-analyzer/internal/interfaces"
	"github.com/prakhar82/stock-analyzer/internal/models"
)

const (
	holdingsFile = "stocks.csv"
	ledgerDir    = "topups"
)

var ledgerHeader = []string{"quantity", "price", "entry_type", "date"}

// FileLedgerStore stores base holdings in a single CSV file and each
// symbol's transaction ledger in an append-only CSV under topups/.
// A single RWMutex orders appends and replacements against reads, so a
// reader sees either the pre-write or post-write state of a file.
type FileLedgerStore struct {
	basePath string
	logger   *common.Logger
	mu       sync.RWMutex
}

// NewFileLedgerStore creates the store and ensures the ledger directory exists.
func NewFileLedgerStore(logger *common.Logger, basePath string) (*FileLedgerStore, error) {
	if err := os.MkdirAll(filepath.Join(basePath, ledgerDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	s := &FileLedgerStore{
		basePath: basePath,
		logger:   logger,
	}

	logger.Debug().Str("path", basePath).Msg("Ledger store opened")
	return s, nil
}

// sanitizeSymbol makes a symbol safe for use as a filename.
func sanitizeSymbol(symbol string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(symbol)
}

func (s *FileLedgerStore) holdingsPath() string {
	return filepath.Join(s.basePath, holdingsFile)
}

func (s *FileLedgerStore) ledgerPath(symbol string) string {
	return filepath.Join(s.basePath, ledgerDir, sanitizeSymbol(symbol)+".csv")
}

// ReadBaseHoldings reads stocks.csv. Malformed rows are skipped with a
// diagnostic; a missing or empty file is ErrBaseHoldingsMissing.
func (s *FileLedgerStore) ReadBaseHoldings(ctx context.Context) ([]models.BaseHolding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.holdingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.ErrBaseHoldingsMissing
		}
		return nil, fmt.Errorf("failed to open holdings file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse holdings file: %w", err)
	}
	if len(records) == 0 {
		return nil, models.ErrBaseHoldingsMissing
	}

	cols := headerIndex(records[0])
	holdings := make([]models.BaseHolding, 0, len(records)-1)
	skipped := 0

	for _, rec := range records[1:] {
		symbol := fieldAt(rec, cols, "symbol")
		qty, qtyErr := strconv.Atoi(strings.TrimSpace(fieldAt(rec, cols, "quantity")))
		avg, avgErr := strconv.ParseFloat(strings.TrimSpace(fieldAt(rec, cols, "averageprice")), 64)
		if symbol == "" || qtyErr != nil || avgErr != nil {
			skipped++
			s.logger.Warn().Strs("row", rec).Msg("Skipping malformed holdings row")
			continue
		}
		holdings = append(holdings, models.BaseHolding{
			Symbol:       symbol,
			Quantity:     qty,
			AveragePrice: avg,
		})
	}

	if skipped > 0 {
		s.logger.Warn().Int("skipped", skipped).Msg("Holdings file contained malformed rows")
	}

	return holdings, nil
}

// ReadTransactions reads a symbol's ledger in insertion order. Rows are
// never reordered by date: the running average is defined over arrival
// order. Malformed rows are skipped; replay continues.
func (s *FileLedgerStore) ReadTransactions(ctx context.Context, symbol string) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readLedgerLocked(symbol)
}

// readLedgerLocked reads one ledger file. Caller holds s.mu.
func (s *FileLedgerStore) readLedgerLocked(symbol string) ([]models.Transaction, error) {
	f, err := os.Open(s.ledgerPath(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Transaction{}, nil
		}
		return nil, fmt.Errorf("failed to open ledger for %s: %w", symbol, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger for %s: %w", symbol, err)
	}
	if len(records) == 0 {
		return []models.Transaction{}, nil
	}

	cols := headerIndex(records[0])
	txs := make([]models.Transaction, 0, len(records)-1)

	for _, rec := range records[1:] {
		qty, qtyErr := strconv.Atoi(strings.TrimSpace(fieldAt(rec, cols, "quantity")))
		price, priceErr := strconv.ParseFloat(strings.TrimSpace(fieldAt(rec, cols, "price")), 64)
		if qtyErr != nil || priceErr != nil {
			s.logger.Warn().Str("symbol", symbol).Strs("row", rec).Msg("Skipping malformed ledger row")
			continue
		}
		txs = append(txs, models.Transaction{
			Quantity:  qty,
			Price:     price,
			EntryType: models.NormalizeEntryType(fieldAt(rec, cols, "entry_type")),
			Date:      strings.TrimSpace(fieldAt(rec, cols, "date")),
		})
	}

	return txs, nil
}

// ReadAllTransactions reads every ledger file under topups/.
func (s *FileLedgerStore) ReadAllTransactions(ctx context.Context) (map[string][]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Join(s.basePath, ledgerDir)
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger directory: %w", err)
	}

	all := make(map[string][]models.Transaction)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".csv") {
			continue
		}
		symbol := strings.TrimSuffix(f.Name(), ".csv")
		txs, err := s.readLedgerLocked(symbol)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read ledger, skipping")
			continue
		}
		all[symbol] = txs
	}

	return all, nil
}

// AppendTransaction appends one row to a symbol's ledger, writing the
// header first when the file is new. The write lock makes the append
// atomic with respect to concurrent reads.
func (s *FileLedgerStore) AppendTransaction(ctx context.Context, symbol string, tx models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.ledgerPath(symbol)
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger for %s: %w", symbol, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(ledgerHeader); err != nil {
			return fmt.Errorf("failed to write ledger header: %w", err)
		}
	}

	row := []string{
		strconv.Itoa(tx.Quantity),
		strconv.FormatFloat(tx.Price, 'f', -1, 64),
		string(models.NormalizeEntryType(string(tx.EntryType))),
		tx.Date,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write ledger row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush ledger for %s: %w", symbol, err)
	}

	s.logger.Info().
		Str("symbol", symbol).
		Int("quantity", tx.Quantity).
		Float64("price", tx.Price).
		Str("entry_type", string(tx.EntryType)).
		Msg("Transaction appended")

	return nil
}

// ReplaceBaseHoldings atomically replaces stocks.csv: the new content is
// written to a temp file in the same directory and renamed over the
// target, so readers see the old or new file, never a partial write.
func (s *FileLedgerStore) ReplaceBaseHoldings(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmpFile, err := os.CreateTemp(s.basePath, ".tmp-holdings-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.holdingsPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace holdings file: %w", err)
	}

	s.logger.Info().Int("bytes", len(data)).Msg("Base holdings replaced")
	return nil
}

// headerIndex maps lowercased column names to their positions.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

// fieldAt returns the named field from a record, or "" if absent.
func fieldAt(rec []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

// Ensure FileLedgerStore implements LedgerStore
var _ interfaces.LedgerStore = (*FileLedgerStore)(nil)
