package roastery_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roastsync/roastery/roastery"
)

func TestResolvePayment(t *testing.T) {
	tests := []struct {
		name       string
		total      string
		isPaid     bool
		amount     *decimal.Decimal
		wantPaid   bool
		wantAmount string
		wantErr    bool
	}{
		{name: "flag paid, no amount", total: "100", isPaid: true, wantPaid: true, wantAmount: "100"},
		{name: "flag unpaid, no amount", total: "100", isPaid: false, wantPaid: false, wantAmount: "0"},
		{name: "partial amount", total: "100", isPaid: false, amount: moneyPtr("40"), wantPaid: false, wantAmount: "40"},
		{name: "partial amount ignores paid flag", total: "100", isPaid: true, amount: moneyPtr("40"), wantPaid: false, wantAmount: "40"},
		{name: "exact amount ignores unpaid flag", total: "100", isPaid: false, amount: moneyPtr("100"), wantPaid: true, wantAmount: "100"},
		{name: "zero amount", total: "100", amount: moneyPtr("0"), wantPaid: false, wantAmount: "0"},
		{name: "amount above total", total: "100", amount: moneyPtr("150"), wantErr: true},
		{name: "negative amount", total: "100", amount: moneyPtr("-1"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := roastery.ResolvePayment(money(tt.total), tt.isPaid, tt.amount)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, roastery.IsClientError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPaid, p.IsPaid)
			assertMoney(t, tt.wantAmount, p.AmountPaid)
		})
	}
}

func TestReclampPayment(t *testing.T) {
	tests := []struct {
		name       string
		total      string
		amount     string
		wantPaid   bool
		wantAmount string
	}{
		{name: "amount above new total is clamped", total: "80", amount: "100", wantPaid: true, wantAmount: "80"},
		{name: "amount equal to total", total: "100", amount: "100", wantPaid: true, wantAmount: "100"},
		{name: "amount below new total", total: "120", amount: "100", wantPaid: false, wantAmount: "100"},
		{name: "nothing paid", total: "120", amount: "0", wantPaid: false, wantAmount: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := roastery.ReclampPayment(money(tt.total), money(tt.amount))
			assert.Equal(t, tt.wantPaid, p.IsPaid)
			assertMoney(t, tt.wantAmount, p.AmountPaid)
		})
	}
}

func TestSale_ApplyPayment_PaidAt(t *testing.T) {
	saleDay := day(2024, 5, 1)
	earlier := day(2024, 5, 3)
	explicit := day(2024, 5, 9)

	t.Run("becoming paid uses the sale date", func(t *testing.T) {
		s := roastery.Sale{SaleDate: saleDay}
		s.ApplyPayment(roastery.Payment{IsPaid: true, AmountPaid: money("10")}, nil)
		require.NotNil(t, s.PaidAt)
		assert.Equal(t, saleDay, *s.PaidAt)
	})

	t.Run("explicit date wins", func(t *testing.T) {
		s := roastery.Sale{SaleDate: saleDay, PaidAt: &earlier}
		s.ApplyPayment(roastery.Payment{IsPaid: true, AmountPaid: money("10")}, &explicit)
		require.NotNil(t, s.PaidAt)
		assert.Equal(t, explicit, *s.PaidAt)
	})

	t.Run("staying paid keeps the old date", func(t *testing.T) {
		s := roastery.Sale{SaleDate: saleDay, PaidAt: &earlier}
		s.ApplyPayment(roastery.Payment{IsPaid: true, AmountPaid: money("10")}, nil)
		require.NotNil(t, s.PaidAt)
		assert.Equal(t, earlier, *s.PaidAt)
	})

	t.Run("unpaid clears the date", func(t *testing.T) {
		s := roastery.Sale{SaleDate: saleDay, PaidAt: &earlier}
		s.ApplyPayment(roastery.Payment{IsPaid: false, AmountPaid: money("5")}, &explicit)
		assert.Nil(t, s.PaidAt)
		assertMoney(t, "5", s.AmountPaid)
	})
}
