package roastery

import "github.com/shopspring/decimal"

// DefaultCurrencyPlaces is the number of decimal places money is rounded to
// when nothing else is configured. Pesos have no minor unit in practice.
const DefaultCurrencyPlaces int32 = 0

// RoundMoney rounds d half away from zero to the given number of places.
func RoundMoney(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// SumMoney adds up amounts.
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
