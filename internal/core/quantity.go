package core

import "github.com/shopspring/decimal"

// Quantities and stock are persisted as NUMERIC(14,4).
const (
	QuantityScale         = 4
	QuantityIntegerDigits = 10
)

var quantityLimit = decimal.New(1, QuantityIntegerDigits)

// checkQuantity rejects values the store would round or overflow.
func checkQuantity(field string, q decimal.Decimal) error {
	if q.Exponent() < -QuantityScale && !q.Equal(q.Truncate(QuantityScale)) {
		return Invalid(field, "at most %d decimal places allowed, got %s", QuantityScale, q)
	}
	if q.Abs().GreaterThanOrEqual(quantityLimit) {
		return Invalid(field, "must be below %s, got %s", quantityLimit, q)
	}
	return nil
}
