package roastery_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roastsync/roastery/roastery"
)

func TestFilterDebts(t *testing.T) {
	sales := []roastery.Sale{
		{ID: 1, TotalPrice: money("100"), AmountPaid: money("100"), IsPaid: true},
		{ID: 2, TotalPrice: money("100"), AmountPaid: money("30")},
		{ID: 3, TotalPrice: money("100"), AmountPaid: money("0")},
		{ID: 4, TotalPrice: money("50"), AmountPaid: money("0")},
	}

	ids := func(ss []roastery.Sale) []int64 {
		out := make([]int64, 0, len(ss))
		for _, s := range ss {
			out = append(out, s.ID)
		}
		return out
	}

	assert.Equal(t, []int64{2, 3, 4}, ids(roastery.FilterDebts(sales, roastery.DebtAny)))
	assert.Equal(t, []int64{2}, ids(roastery.FilterDebts(sales, roastery.DebtPartial)))
	assert.Equal(t, []int64{3, 4}, ids(roastery.FilterDebts(sales, roastery.DebtPending)))
}

func TestParseDebtStatus(t *testing.T) {
	st, err := roastery.ParseDebtStatus("partial")
	require.NoError(t, err)
	assert.Equal(t, roastery.DebtPartial, st)

	_, err = roastery.ParseDebtStatus("overdue")
	assert.True(t, roastery.IsClientError(err))
}

func TestSale_Outstanding(t *testing.T) {
	s := roastery.Sale{TotalPrice: money("100"), AmountPaid: money("40")}
	assertMoney(t, "60", s.Outstanding())

	over := roastery.Sale{TotalPrice: money("100"), AmountPaid: money("120")}
	assertMoney(t, "0", over.Outstanding())
}
