package roastery_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roastsync/roastery/roastery"
)

// =============================================================================
// OVERSELL PROTECTION
// =============================================================================

func TestSaleService_SequentialSales_StopAtRemainingStock(t *testing.T) {
	// GIVEN: A roast of 1000g green that produced 850g
	// WHEN: Selling 500g, then 300g, then 100g
	// THEN: The first two succeed, the third fails reporting 50g available

	f := newFixture(t)
	roastID := f.roast(t, 1000, 850, day(2024, 2, 1))

	_, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 2),
		Items:    []roastery.SaleItem{item(roastID, 250, 2, 20000)},
	})
	require.NoError(t, err)

	_, err = f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 3),
		Items:    []roastery.SaleItem{item(roastID, 300, 1, 22000)},
	})
	require.NoError(t, err)

	_, err = f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 4),
		Items:    []roastery.SaleItem{item(roastID, 100, 1, 8000)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, roastery.ErrInsufficientInventory)
	assert.True(t, roastery.IsClientError(err), "shortfall is a validation error")
	assert.Contains(t, err.Error(), "available: 50g")

	var short *roastery.InsufficientInventoryError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, roastID, short.RoastBatchID)
	assert.InDelta(t, 50, short.Available.Float64(), 1e-9)
	assert.InDelta(t, 100, short.Requested.Float64(), 1e-9)

	sales, err := f.store.ListSales(f.ctx)
	require.NoError(t, err)
	assert.Len(t, sales, 2, "rejected sale must not be written")
}

func TestSaleService_LinesAggregatePerBatch(t *testing.T) {
	// GIVEN: A batch with 1000g roasted
	// WHEN: One sale has two 600g lines from that batch
	// THEN: Rejected, although each line alone would fit

	f := newFixture(t)
	roastID := f.roast(t, 1200, 1000, day(2024, 2, 1))

	_, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 2),
		Items: []roastery.SaleItem{
			item(roastID, 600, 1, 40000),
			item(roastID, 600, 1, 40000),
		},
	})

	var short *roastery.InsufficientInventoryError
	require.ErrorAs(t, err, &short)
	assert.InDelta(t, 1000, short.Available.Float64(), 1e-9)
	assert.InDelta(t, 1200, short.Requested.Float64(), 1e-9)
}

func TestSaleService_AdjustmentsCountTowardsStock(t *testing.T) {
	// GIVEN: 500g roasted, then 100g written off
	// WHEN: Selling 450g
	// THEN: Rejected with 400g available

	f := newFixture(t)
	roastID := f.roast(t, 600, 500, day(2024, 2, 1))
	f.adjust(t, roastID, -100, day(2024, 2, 2))

	_, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 3),
		Items:    []roastery.SaleItem{item(roastID, 450, 1, 30000)},
	})
	require.ErrorIs(t, err, roastery.ErrInsufficientInventory)
	assert.Contains(t, err.Error(), "available: 400g")
}

func TestSaleService_ConcurrentSales_NeverOversell(t *testing.T) {
	// GIVEN: 1000g roasted
	// WHEN: Ten 250g sales race
	// THEN: Exactly four are accepted

	f := newFixture(t)
	roastID := f.roast(t, 1200, 1000, day(2024, 2, 1))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sales.Create(f.ctx, roastery.SaleInput{
				SaleDate: day(2024, 2, 2),
				Items:    []roastery.SaleItem{item(roastID, 250, 1, 20000)},
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, accepted)
	sold, err := f.store.SoldGrams(f.ctx, roastID, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1000, sold.Float64(), 1e-9)
}

// =============================================================================
// CREATE
// =============================================================================

func TestSaleService_Create_DerivesTotals(t *testing.T) {
	f := newFixture(t)
	roastID := f.roast(t, 3000, 2500, day(2024, 2, 1))

	sale, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 2),
		Notes:    "market",
		Items: []roastery.SaleItem{
			item(roastID, 250, 2, 20000),
			item(roastID, 500, 1, 38000),
		},
	})
	require.NoError(t, err)

	assert.NotZero(t, sale.ID)
	assertMoney(t, "78000", sale.TotalPrice)
	assert.InDelta(t, 1000, sale.TotalQuantity.Float64(), 1e-9)
	assert.False(t, sale.IsPaid)
	assertMoney(t, "0", sale.AmountPaid)
	assert.Nil(t, sale.PaidAt)

	stored, err := f.store.GetSale(f.ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	for _, it := range stored.Items {
		assert.Equal(t, sale.ID, it.SaleID)
		assert.NotZero(t, it.ID)
	}
}

func TestSaleService_Create_PaidFlagSettlesInFull(t *testing.T) {
	f := newFixture(t)
	roastID := f.roast(t, 1200, 1000, day(2024, 2, 1))

	sale, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 5),
		Items:    []roastery.SaleItem{item(roastID, 250, 1, 20000)},
		IsPaid:   true,
	})
	require.NoError(t, err)

	assert.True(t, sale.IsPaid)
	assertMoney(t, "20000", sale.AmountPaid)
	require.NotNil(t, sale.PaidAt)
	assert.Equal(t, day(2024, 2, 5), *sale.PaidAt, "paid_at defaults to the sale date")
}

func TestSaleService_Create_AmountBeatsFlag(t *testing.T) {
	f := newFixture(t)
	roastID := f.roast(t, 1200, 1000, day(2024, 2, 1))

	sale, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate:   day(2024, 2, 5),
		Items:      []roastery.SaleItem{item(roastID, 250, 1, 20000)},
		IsPaid:     true,
		AmountPaid: moneyPtr("5000"),
	})
	require.NoError(t, err)

	assert.False(t, sale.IsPaid, "a partial amount cannot be paid")
	assertMoney(t, "5000", sale.AmountPaid)
	assert.Nil(t, sale.PaidAt)
}

func TestSaleService_Create_Rejections(t *testing.T) {
	f := newFixture(t)
	roastID := f.roast(t, 1200, 1000, day(2024, 2, 1))
	missingCustomer := int64(99)

	tests := []struct {
		name    string
		input   roastery.SaleInput
		checkFn func(t *testing.T, err error)
	}{
		{
			name:  "no items",
			input: roastery.SaleInput{SaleDate: day(2024, 2, 2)},
			checkFn: func(t *testing.T, err error) {
				assert.True(t, roastery.IsClientError(err))
			},
		},
		{
			name: "amount above total",
			input: roastery.SaleInput{
				SaleDate:   day(2024, 2, 2),
				Items:      []roastery.SaleItem{item(roastID, 250, 1, 20000)},
				AmountPaid: moneyPtr("20001"),
			},
			checkFn: func(t *testing.T, err error) {
				var verr *roastery.ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "amount_paid", verr.Field)
			},
		},
		{
			name: "negative amount",
			input: roastery.SaleInput{
				SaleDate:   day(2024, 2, 2),
				Items:      []roastery.SaleItem{item(roastID, 250, 1, 20000)},
				AmountPaid: moneyPtr("-1"),
			},
			checkFn: func(t *testing.T, err error) {
				assert.True(t, roastery.IsClientError(err))
			},
		},
		{
			name: "unknown roast batch",
			input: roastery.SaleInput{
				SaleDate: day(2024, 2, 2),
				Items:    []roastery.SaleItem{item(roastID+100, 250, 1, 20000)},
			},
			checkFn: func(t *testing.T, err error) {
				assert.True(t, roastery.IsNotFound(err))
			},
		},
		{
			name: "unknown customer",
			input: roastery.SaleInput{
				CustomerID: &missingCustomer,
				SaleDate:   day(2024, 2, 2),
				Items:      []roastery.SaleItem{item(roastID, 250, 1, 20000)},
			},
			checkFn: func(t *testing.T, err error) {
				assert.True(t, roastery.IsNotFound(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sales.Create(f.ctx, tt.input)
			require.Error(t, err)
			tt.checkFn(t, err)
		})
	}

	sales, err := f.store.ListSales(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

// =============================================================================
// UPDATE
// =============================================================================

func TestSaleService_Update_OwnItemsDoNotCount(t *testing.T) {
	// GIVEN: 1000g roasted, a sale holding 800g
	// WHEN: Editing the sale to 900g
	// THEN: Accepted, because the old 800g are returned first

	f := newFixture(t)
	roastID := f.roast(t, 1200, 1000, day(2024, 2, 1))

	sale, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 2),
		Items:    []roastery.SaleItem{item(roastID, 400, 2, 30000)},
	})
	require.NoError(t, err)

	updated, err := f.sales.Update(f.ctx, sale.ID, roastery.SaleUpdate{
		Items: []roastery.SaleItem{item(roastID, 300, 3, 22000)},
	})
	require.NoError(t, err)
	assert.InDelta(t, 900, updated.TotalQuantity.Float64(), 1e-9)
	assertMoney(t, "66000", updated.TotalPrice)

	stored, err := f.store.GetSale(f.ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1, "items are replaced, not appended")
	assert.Equal(t, 3, stored.Items[0].Bags)
}

func TestSaleService_Update_FailureLeavesSaleUntouched(t *testing.T) {
	f := newFixture(t)
	roastID := f.roast(t, 1200, 1000, day(2024, 2, 1))

	sale, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 2),
		Items:    []roastery.SaleItem{item(roastID, 400, 2, 30000)},
	})
	require.NoError(t, err)

	notes := "too much"
	_, err = f.sales.Update(f.ctx, sale.ID, roastery.SaleUpdate{
		Notes: &notes,
		Items: []roastery.SaleItem{item(roastID, 600, 2, 40000)},
	})
	require.ErrorIs(t, err, roastery.ErrInsufficientInventory)

	stored, err := f.store.GetSale(f.ctx, sale.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Notes)
	assert.InDelta(t, 800, stored.TotalQuantity.Float64(), 1e-9)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 400, stored.Items[0].BagSizeG)
}

func TestSaleService_Update_LowerTotalClampsPayment(t *testing.T) {
	// GIVEN: A 60000 sale with 45000 paid
	// WHEN: Items are edited down to 40000 with no payment fields
	// THEN: amount_paid is clamped to 40000 and the sale becomes paid

	f := newFixture(t)
	roastID := f.roast(t, 1200, 1000, day(2024, 2, 1))

	sale, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate:   day(2024, 2, 2),
		Items:      []roastery.SaleItem{item(roastID, 250, 3, 20000)},
		AmountPaid: moneyPtr("45000"),
	})
	require.NoError(t, err)
	require.False(t, sale.IsPaid)

	updated, err := f.sales.Update(f.ctx, sale.ID, roastery.SaleUpdate{
		Items: []roastery.SaleItem{item(roastID, 250, 2, 20000)},
	})
	require.NoError(t, err)

	assertMoney(t, "40000", updated.TotalPrice)
	assertMoney(t, "40000", updated.AmountPaid)
	assert.True(t, updated.IsPaid)
	require.NotNil(t, updated.PaidAt)
	assert.Equal(t, day(2024, 2, 2), *updated.PaidAt)
}

func TestSaleService_Update_HigherTotalReopensSale(t *testing.T) {
	f := newFixture(t)
	roastID := f.roast(t, 1200, 1000, day(2024, 2, 1))

	sale, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 2),
		Items:    []roastery.SaleItem{item(roastID, 250, 1, 20000)},
		IsPaid:   true,
	})
	require.NoError(t, err)
	require.True(t, sale.IsPaid)

	updated, err := f.sales.Update(f.ctx, sale.ID, roastery.SaleUpdate{
		Items: []roastery.SaleItem{item(roastID, 250, 2, 20000)},
	})
	require.NoError(t, err)

	assert.False(t, updated.IsPaid)
	assertMoney(t, "20000", updated.AmountPaid)
	assert.Nil(t, updated.PaidAt)
}

func TestSaleService_Update_PaymentFields(t *testing.T) {
	f := newFixture(t)
	roastID := f.roast(t, 1200, 1000, day(2024, 2, 1))

	sale, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 2),
		Items:    []roastery.SaleItem{item(roastID, 250, 1, 20000)},
	})
	require.NoError(t, err)

	// Pay in full on a given date
	paid := true
	paidOn := day(2024, 3, 1)
	updated, err := f.sales.Update(f.ctx, sale.ID, roastery.SaleUpdate{IsPaid: &paid, PaidAt: &paidOn})
	require.NoError(t, err)
	assert.True(t, updated.IsPaid)
	assertMoney(t, "20000", updated.AmountPaid)
	require.NotNil(t, updated.PaidAt)
	assert.Equal(t, paidOn, *updated.PaidAt)

	// Unmark: amount back to zero, paid_at cleared
	unpaid := false
	updated, err = f.sales.Update(f.ctx, sale.ID, roastery.SaleUpdate{IsPaid: &unpaid})
	require.NoError(t, err)
	assert.False(t, updated.IsPaid)
	assertMoney(t, "0", updated.AmountPaid)
	assert.Nil(t, updated.PaidAt)

	// Exact amount settles regardless of flag
	updated, err = f.sales.Update(f.ctx, sale.ID, roastery.SaleUpdate{IsPaid: &unpaid, AmountPaid: moneyPtr("20000")})
	require.NoError(t, err)
	assert.True(t, updated.IsPaid)
	require.NotNil(t, updated.PaidAt)
	assert.Equal(t, day(2024, 2, 2), *updated.PaidAt)
}

func TestSaleService_Update_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.sales.Update(f.ctx, 42, roastery.SaleUpdate{})
	assert.True(t, roastery.IsNotFound(err))
}

// =============================================================================
// DELETE
// =============================================================================

func TestSaleService_Delete_ReturnsStock(t *testing.T) {
	f := newFixture(t)
	roastID := f.roast(t, 1200, 1000, day(2024, 2, 1))
	inv := roastery.NewInventory(f.store)

	sale, err := f.sales.Create(f.ctx, roastery.SaleInput{
		SaleDate: day(2024, 2, 2),
		Items:    []roastery.SaleItem{item(roastID, 250, 4, 20000)},
	})
	require.NoError(t, err)

	available, err := inv.Available(f.ctx, roastID, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, available.Float64(), 1e-9)

	require.NoError(t, f.sales.Delete(f.ctx, sale.ID))

	available, err = inv.Available(f.ctx, roastID, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1000, available.Float64(), 1e-9)

	assert.True(t, roastery.IsNotFound(f.sales.Delete(f.ctx, sale.ID)))
}
