/*
payment.go - Payment reconciliation

PURPOSE:
  Keeps is_paid, amount_paid and paid_at consistent with a sale's total.

INVARIANTS (after every write):
  0 <= amount_paid <= total_price
  is_paid  <=> amount_paid >= total_price
  paid_at is set <=> is_paid

RESOLUTION:
  Explicit amount      -> must lie in [0, total]; is_paid follows the amount,
                          whatever flag the client sent.
  Flag only            -> paid means amount = total, unpaid means amount = 0.
  Total changed alone  -> ReclampPayment: an amount above the new total is cut
                          down to it (and the sale becomes paid); an amount
                          below it leaves the sale unpaid.
*/
package roastery

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a resolved payment state.
type Payment struct {
	IsPaid     bool
	AmountPaid decimal.Decimal
}

// ResolvePayment derives the payment state for a sale total from the client
// input. amount may be nil when the client sent none.
func ResolvePayment(total decimal.Decimal, isPaid bool, amount *decimal.Decimal) (Payment, error) {
	if amount == nil {
		if isPaid {
			return Payment{IsPaid: true, AmountPaid: total}, nil
		}
		return Payment{IsPaid: false, AmountPaid: decimal.Zero}, nil
	}

	if amount.IsNegative() {
		return Payment{}, Invalid("amount_paid", "cannot be negative")
	}
	if amount.GreaterThan(total) {
		return Payment{}, Invalid("amount_paid", "cannot exceed the sale total")
	}

	return Payment{IsPaid: amount.GreaterThanOrEqual(total), AmountPaid: *amount}, nil
}

// ReclampPayment re-fits an existing amount to a new total.
func ReclampPayment(total, amountPaid decimal.Decimal) Payment {
	if amountPaid.IsNegative() {
		amountPaid = decimal.Zero
	}
	if amountPaid.GreaterThanOrEqual(total) {
		return Payment{IsPaid: true, AmountPaid: total}
	}
	return Payment{IsPaid: false, AmountPaid: amountPaid}
}

// ApplyPayment writes p onto the sale and settles paid_at. paidAt is the
// client's explicit payment date, if any; it wins over an existing one.
// A sale becoming paid without a date gets its sale date.
func (s *Sale) ApplyPayment(p Payment, paidAt *time.Time) {
	s.IsPaid = p.IsPaid
	s.AmountPaid = p.AmountPaid

	if !p.IsPaid {
		s.PaidAt = nil
		return
	}
	if paidAt != nil {
		t := *paidAt
		s.PaidAt = &t
		return
	}
	if s.PaidAt == nil {
		t := s.SaleDate
		s.PaidAt = &t
	}
}
