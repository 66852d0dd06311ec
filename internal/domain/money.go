package domain

import "github.com/shopspring/decimal"

// Amounts are encoded as JSON numbers, e.g. "price":15.5.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}
