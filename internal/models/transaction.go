package models

import "github.com/shopspring/decimal"

// Transaction is a single statement line as extracted by the model.
// Fields are taken verbatim from the statement text, no validation beyond
// schema shape.
type Transaction struct {
	Date        string
	Description string
	Amount      decimal.Decimal
}
