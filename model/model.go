package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrencyPrecision is the number of decimal places money is kept to.
const CurrencyPrecision = 2

// AmountLimit is the first amount that no longer fits the NUMERIC(20,2)
// money columns. Accepted amounts are strictly below it.
const AmountLimit = 1e18

// MaxAmount is the largest storable amount, AmountLimit less one cent.
var MaxAmount = decimal.New(1, 18).Sub(decimal.New(1, -CurrencyPrecision))

// GenerateUUIDWithSuffix generates a UUID prefixed with the module name,
// e.g. dep_1b4e28ba-2fa1-11d2-883f-0016d3cca427.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// RoundMoney rounds an amount to CurrencyPrecision, halves away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPrecision)
}
