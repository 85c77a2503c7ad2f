package position

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prakhar82/stock-analyzer/internal/models"
)

func buy(qty int, price float64) models.Transaction {
	return models.Transaction{Quantity: qty, Price: price, EntryType: models.EntryTypeBuy}
}

func sell(qty int, price float64) models.Transaction {
	return models.Transaction{Quantity: qty, Price: price, EntryType: models.EntryTypeSell}
}

func TestReplayBaseOnly(t *testing.T) {
	pos := Replay(models.BaseHolding{Symbol: "ABC", Quantity: 10, AveragePrice: 100}, nil)

	assert.Equal(t, 10, pos.Quantity)
	assert.Equal(t, 1000.0, pos.TotalCost)
	assert.Equal(t, 100.0, pos.AveragePrice)
}

func TestReplayBuyAveragesUp(t *testing.T) {
	base := models.BaseHolding{Symbol: "ABC", Quantity: 10, AveragePrice: 100}
	pos := Replay(base, []models.Transaction{buy(5, 120)})

	assert.Equal(t, 15, pos.Quantity)
	assert.Equal(t, 1600.0, pos.TotalCost)
	assert.InDelta(t, 106.67, pos.AveragePrice, 0.01)
}

func TestReplaySellToZero(t *testing.T) {
	base := models.BaseHolding{Symbol: "ABC", Quantity: 10, AveragePrice: 100}
	pos := Replay(base, []models.Transaction{sell(10, 150)})

	assert.Equal(t, 0, pos.Quantity)
	assert.Equal(t, -500.0, pos.TotalCost)
	assert.Equal(t, 0.0, pos.AveragePrice, "average price is defined only for positive quantity")
}

func TestReplayOversellGoesNegative(t *testing.T) {
	base := models.BaseHolding{Symbol: "ABC", Quantity: 5, AveragePrice: 100}
	pos := Replay(base, []models.Transaction{sell(8, 110)})

	assert.Equal(t, -3, pos.Quantity)
	assert.Equal(t, 0.0, pos.AveragePrice)
}

func TestReplayUnrecognizedEntryTypeTreatedAsBuy(t *testing.T) {
	base := models.BaseHolding{Symbol: "ABC", Quantity: 0, AveragePrice: 0}
	pos := Replay(base, []models.Transaction{
		{Quantity: 4, Price: 25, EntryType: models.EntryType("Hold")},
	})

	assert.Equal(t, 4, pos.Quantity)
	assert.Equal(t, 100.0, pos.TotalCost)
}

func TestReplayInsertionOrderNotDateOrder(t *testing.T) {
	// The later-dated row arrives first; replay must follow arrival
	// order, so both orderings give the same end state but the ledger
	// is never re-sorted.
	base := models.BaseHolding{Symbol: "ABC", Quantity: 10, AveragePrice: 100}
	txs := []models.Transaction{
		{Quantity: 5, Price: 120, EntryType: models.EntryTypeBuy, Date: "2026-03-01"},
		{Quantity: 5, Price: 80, EntryType: models.EntryTypeBuy, Date: "2026-01-01"},
	}
	pos := Replay(base, txs)

	assert.Equal(t, 20, pos.Quantity)
	assert.Equal(t, 2000.0, pos.TotalCost)
}

func TestReplaySplitAssociativity(t *testing.T) {
	base := models.BaseHolding{Symbol: "ABC", Quantity: 10, AveragePrice: 100}
	txs := []models.Transaction{
		buy(5, 120), sell(3, 130), buy(2, 90), sell(10, 105), buy(1, 200),
	}

	whole := Replay(base, txs)

	for k := 0; k <= len(txs); k++ {
		mid := Replay(base, txs[:k])
		resumed := ReplayFrom(mid.Symbol, mid.Quantity, mid.TotalCost, txs[k:])

		assert.Equal(t, whole.Quantity, resumed.Quantity, "split at %d", k)
		assert.InDelta(t, whole.TotalCost, resumed.TotalCost, 1e-9, "split at %d", k)
		assert.InDelta(t, whole.AveragePrice, resumed.AveragePrice, 1e-9, "split at %d", k)
	}
}

func TestAveragePriceConsistency(t *testing.T) {
	base := models.BaseHolding{Symbol: "ABC", Quantity: 7, AveragePrice: 33.5}
	txs := []models.Transaction{buy(3, 40), sell(2, 45)}

	pos := Replay(base, txs)
	if pos.Quantity > 0 {
		assert.InDelta(t, pos.TotalCost/float64(pos.Quantity), pos.AveragePrice, 1e-9)
	} else {
		assert.Equal(t, 0.0, pos.AveragePrice)
	}
}
