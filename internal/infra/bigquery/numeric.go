package bigquery

import (
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
)

// numericScale is the number of fractional digits a NUMERIC column keeps.
const numericScale = 9

// ratFromDecimal converts an amount to the *big.Rat BigQuery uses for
// NUMERIC parameters and columns.
func ratFromDecimal(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

// decimalFromRat converts a NUMERIC value back to a decimal. A nil value
// (NULL column) yields zero.
func decimalFromRat(r *big.Rat) (decimal.Decimal, error) {
	if r == nil {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(r.FloatString(numericScale))
	if err != nil {
		return decimal.Zero, fmt.Errorf("decimalFromRat: %w", err)
	}
	return d, nil
}

// str reads a NULLABLE STRING column, mapping NULL to "".
func str(n bigquery.NullString) string {
	if !n.Valid {
		return ""
	}
	return n.StringVal
}
