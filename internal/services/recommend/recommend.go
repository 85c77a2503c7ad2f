// Package recommend maps valuation and price data to action signals
package recommend

import (
	"math/rand"

	"github.com/prakhar82/stock-analyzer/internal/models"
)

// Recommend evaluates the signal rule table for a holding. Rules are
// checked in fixed priority order; the first match wins. A zero or
// absent price or cost always yields HOLD.
func Recommend(valuation models.Valuation, price, avgCost float64) models.Signal {
	if avgCost == 0 || price == 0 {
		return models.SignalHold
	}

	switch {
	case valuation == models.ValuationUndervalued && price < 0.8*avgCost:
		return models.SignalStrongBuy
	case valuation == models.ValuationUndervalued && price < avgCost:
		return models.SignalBuy
	case valuation == models.ValuationOvervalued && price > 1.3*avgCost:
		return models.SignalStrongSell
	case valuation == models.ValuationOvervalued && price > avgCost:
		return models.SignalSell
	case price > 2*avgCost:
		return models.SignalExit
	case price > 1.5*avgCost:
		return models.SignalPartialExit
	case price < 0.85*avgCost:
		return models.SignalTopUp
	default:
		return models.SignalHold
	}
}

// Projection multiplier bounds for the 3-year best/worst-case draw.
// The draw is a placeholder projection, not a forecast.
const (
	BestCaseMin  = 2.0
	BestCaseMax  = 3.5
	WorstCaseMin = 0.5
	WorstCaseMax = 1.2
)

// Rand draws a value uniformly from [min, max). Injectable so tests can
// pin the projection multipliers.
type Rand interface {
	Float64InRange(min, max float64) float64
}

// SystemRand draws from math/rand.
type SystemRand struct{}

// Float64InRange returns a uniform draw from [min, max).
func (SystemRand) Float64InRange(min, max float64) float64 {
	return min + rand.Float64()*(max-min)
}

// FixedRand always returns its configured values in sequence, cycling.
// Test stub for deterministic projections.
type FixedRand struct {
	Values []float64
	next   int
}

// Float64InRange returns the next configured value, ignoring the range.
func (f *FixedRand) Float64InRange(min, max float64) float64 {
	if len(f.Values) == 0 {
		return min
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}

// Project draws best- and worst-case multipliers and applies them to
// the current value.
func Project(rng Rand, currentValue float64) (bestCase, worstCase float64) {
	bestCase = currentValue * rng.Float64InRange(BestCaseMin, BestCaseMax)
	worstCase = currentValue * rng.Float64InRange(WorstCaseMin, WorstCaseMax)
	return bestCase, worstCase
}
