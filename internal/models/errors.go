package models

import (
	"errors"
	"fmt"
)

// ErrBaseHoldingsMissing indicates no base-holdings file has been
// loaded. Aggregation fails as a whole, since there is nothing to
// aggregate.
var ErrBaseHoldingsMissing = errors.New("base holdings not loaded")

// SymbolNotFoundError indicates every source in the quote chain was
// exhausted for a symbol. The instrument is excluded from aggregation,
// never substituted with a synthetic price.
type SymbolNotFoundError struct {
	Symbol string
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol '%s' not found in any quote source", e.Symbol)
}

// IsSymbolNotFound reports whether err is a SymbolNotFoundError.
func IsSymbolNotFound(err error) bool {
	var nf *SymbolNotFoundError
	return errors.As(err, &nf)
}
