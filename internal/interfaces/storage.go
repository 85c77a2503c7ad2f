// Package interfaces defines service contracts for the stock analyzer
package interfaces

import (
	"context"

	"github.com/prakhar82/stock-analyzer/internal/models"
)

// LedgerStore persists the base holdings file and the per-symbol
// transaction ledgers. Appends are atomic with respect to concurrent
// reads: a reader sees either the pre-write or post-write ledger.
type LedgerStore interface {
	// ReadBaseHoldings returns the tracked instruments. Returns
	// models.ErrBaseHoldingsMissing when no holdings file is loaded.
	ReadBaseHoldings(ctx context.Context) ([]models.BaseHolding, error)

	// ReadTransactions returns the ordered ledger for a symbol.
	// A symbol with no ledger file yields an empty slice, not an error.
	ReadTransactions(ctx context.Context, symbol string) ([]models.Transaction, error)

	// ReadAllTransactions returns every symbol's ledger, keyed by symbol.
	ReadAllTransactions(ctx context.Context) (map[string][]models.Transaction, error)

	// AppendTransaction appends one row to a symbol's ledger.
	AppendTransaction(ctx context.Context, symbol string, tx models.Transaction) error

	// ReplaceBaseHoldings atomically replaces the base holdings file.
	ReplaceBaseHoldings(ctx context.Context, data []byte) error
}
