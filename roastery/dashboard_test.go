package roastery_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roastsync/roastery/roastery"
)

func TestDashboard_Summary_Figures(t *testing.T) {
	// GIVEN: One 10kg lot at 30000/kg, two roasts, one part-paid sale,
	//        a write-off and an expense
	// THEN: Every figure follows from those records

	f := newFixture(t)
	roastA := f.roast(t, 1000, 850, day(2024, 2, 1))
	f.roast(t, 2000, 1700, day(2024, 2, 2))
	f.adjust(t, roastA, -50, day(2024, 2, 3))

	_, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate:   day(2024, 2, 4),
		Items:      []roastery.SaleItem{item(roastA, 250, 2, 20000)},
		AmountPaid: moneyPtr("10000"),
	})
	require.NoError(t, err)

	require.NoError(t, f.store.InsertExpense(f.ctx, &roastery.Expense{
		ExpenseDate: day(2024, 2, 5),
		Category:    "gas",
		Amount:      decimal.NewFromInt(5000),
	}))

	sum, err := roastery.NewDashboard(f.store, 0).Summary(f.ctx)
	require.NoError(t, err)

	assert.InDelta(t, 10000, sum.GreenPurchased.Float64(), 1e-9)
	assert.InDelta(t, 3000, sum.GreenConsumed.Float64(), 1e-9)
	assert.InDelta(t, 7000, sum.GreenAvailable.Float64(), 1e-9)
	assert.InDelta(t, 2550, sum.RoastedProduced.Float64(), 1e-9)
	assert.InDelta(t, 500, sum.RoastedSold.Float64(), 1e-9)
	assert.InDelta(t, -50, sum.RoastedAdjusted.Float64(), 1e-9)
	assert.InDelta(t, 2050, sum.RoastedAvailable.Float64(), 1e-9)

	assertMoney(t, "300000", sum.PurchaseCost)
	assertMoney(t, "40000", sum.SalesRevenue)
	assertMoney(t, "5000", sum.Expenses)
	assertMoney(t, "-265000", sum.ExpectedCash)
	assertMoney(t, "10000", sum.CashCollected)
	assertMoney(t, "30000", sum.Receivables)

	assertMoney(t, "210000", sum.GreenInventoryValue)
	assertMoney(t, "80", sum.AvgPricePerGram)
	assertMoney(t, "164000", sum.RoastedInventoryValue)
	assertMoney(t, "374000", sum.CoffeeInventoryValue)
	assertMoney(t, "164000", sum.ProjectedFullSale)
	assertMoney(t, "82000", sum.ProjectedHalfSale)
}

func TestDashboard_Summary_NothingSold(t *testing.T) {
	f := newFixture(t)
	f.roast(t, 1000, 850, day(2024, 2, 1))

	sum, err := roastery.NewDashboard(f.store, 0).Summary(f.ctx)
	require.NoError(t, err)

	assertMoney(t, "0", sum.AvgPricePerGram)
	assertMoney(t, "0", sum.RoastedInventoryValue)
	assert.InDelta(t, 850, sum.RoastedAvailable.Float64(), 1e-9)
}

func TestDashboard_Summary_AdjustmentsDoNotReduceAvailable(t *testing.T) {
	// GIVEN: One roast of 850g and a -50g write-off, nothing sold
	f := newFixture(t)
	roastID := f.roast(t, 1000, 850, day(2024, 2, 1))
	f.adjust(t, roastID, -50, day(2024, 2, 2))

	// WHEN: Summarizing
	sum, err := roastery.NewDashboard(f.store, 0).Summary(f.ctx)
	require.NoError(t, err)

	// THEN: Roasted available is produced minus sold; the write-off shows separately
	assert.InDelta(t, 850, sum.RoastedProduced.Float64(), 1e-9)
	assert.InDelta(t, -50, sum.RoastedAdjusted.Float64(), 1e-9)
	assert.InDelta(t, 850, sum.RoastedAvailable.Float64(), 1e-9)
}

func TestDashboard_Summary_RecentIsNewestFive(t *testing.T) {
	f := newFixture(t)

	// Seven expenses; the last two share a date
	for i := 1; i <= 7; i++ {
		d := day(2024, 3, i)
		if i == 7 {
			d = day(2024, 3, 6)
		}
		require.NoError(t, f.store.InsertExpense(f.ctx, &roastery.Expense{
			ExpenseDate: d,
			Category:    "misc",
			Amount:      decimal.NewFromInt(int64(i)),
		}))
	}

	sum, err := roastery.NewDashboard(f.store, 0).Summary(f.ctx)
	require.NoError(t, err)

	require.Len(t, sum.RecentExpenses, roastery.RecentLimit)
	var got []int64
	for _, e := range sum.RecentExpenses {
		got = append(got, e.ID)
	}
	assert.Equal(t, []int64{7, 6, 5, 4, 3}, got)
	require.Len(t, sum.RecentLots, 1)
}

func TestDashboard_Summary_Idempotent(t *testing.T) {
	f := newFixture(t)
	roastID := f.roast(t, 1000, 850, day(2024, 2, 1))
	_, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 4),
		Items:    []roastery.SaleItem{item(roastID, 250, 1, 19999)},
	})
	require.NoError(t, err)

	dash := roastery.NewDashboard(f.store, 0)
	first, err := dash.Summary(f.ctx)
	require.NoError(t, err)
	second, err := dash.Summary(f.ctx)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestDashboard_Snapshot_Persists(t *testing.T) {
	f := newFixture(t)
	dash := roastery.NewDashboard(f.store, 0)
	at := time.Date(2024, 4, 1, 23, 0, 0, 0, time.UTC)

	snap, err := dash.Snapshot(f.ctx, f.store, at)
	require.NoError(t, err)
	assert.NotZero(t, snap.ID)

	list, err := f.store.ListSnapshots(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, at, list[0].TakenAt)
	assert.InDelta(t, 10000, list[0].Summary.GreenPurchased.Float64(), 1e-9)
}
