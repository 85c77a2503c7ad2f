// Package position folds a transaction ledger into a current position
package position

import (
	"github.com/prakhar82/stock-analyzer/internal/models"
)

// Replay folds the ordered transaction ledger for a symbol into a
// Position, starting from the base holding. Transactions are applied in
// arrival order; the ledger is never re-sorted by date, so the running
// average reflects the order rows were appended.
func Replay(base models.BaseHolding, txs []models.Transaction) models.Position {
	return ReplayFrom(base.Symbol, base.Quantity, float64(base.Quantity)*base.AveragePrice, txs)
}

// ReplayFrom continues a replay from an intermediate (quantity, cost)
// state. Replay([t1..tn]) equals ReplayFrom applied to any split of the
// ledger, which keeps incremental recomputation honest.
func ReplayFrom(symbol string, quantity int, totalCost float64, txs []models.Transaction) models.Position {
	for _, tx := range txs {
		if tx.EntryType == models.EntryTypeSell {
			quantity -= tx.Quantity
			totalCost -= float64(tx.Quantity) * tx.Price
		} else {
			// Buy, and any unrecognized entry type.
			quantity += tx.Quantity
			totalCost += float64(tx.Quantity) * tx.Price
		}
	}

	avg := 0.0
	if quantity > 0 {
		avg = totalCost / float64(quantity)
	}

	return models.Position{
		Symbol:       symbol,
		Quantity:     quantity,
		TotalCost:    totalCost,
		AveragePrice: avg,
	}
}
