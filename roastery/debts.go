package roastery

import "fmt"

// DebtStatus filters sales that still have money owed.
type DebtStatus string

const (
	DebtAny     DebtStatus = ""
	DebtPartial DebtStatus = "partial" // something paid, not all
	DebtPending DebtStatus = "pending" // nothing paid
)

// ParseDebtStatus accepts "", "partial" or "pending".
func ParseDebtStatus(s string) (DebtStatus, error) {
	switch st := DebtStatus(s); st {
	case DebtAny, DebtPartial, DebtPending:
		return st, nil
	}
	return "", Invalid("status", fmt.Sprintf("unknown debt status %q", s))
}

// FilterDebts keeps the sales with an outstanding balance matching status.
// Input order is preserved.
func FilterDebts(sales []Sale, status DebtStatus) []Sale {
	out := make([]Sale, 0)
	for _, s := range sales {
		if !s.Outstanding().IsPositive() {
			continue
		}
		paidSome := s.AmountPaid.IsPositive()
		switch status {
		case DebtPartial:
			if !paidSome {
				continue
			}
		case DebtPending:
			if paidSome {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}
