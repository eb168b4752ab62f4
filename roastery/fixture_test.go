package roastery_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roastsync/roastery/roastery"
	"github.com/roastsync/roastery/roastery/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	ctx   context.Context
	store *store.Memory
	sales *roastery.SaleService

	farmID    int64
	varietyID int64
	lotID     int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	farm := roastery.Farm{Name: "La Esperanza", Location: "Huila"}
	require.NoError(t, mem.InsertFarm(ctx, &farm))
	variety := roastery.Variety{Name: "Caturra"}
	require.NoError(t, mem.InsertVariety(ctx, &variety))
	lot := roastery.CoffeeLot{
		FarmID:       farm.ID,
		VarietyID:    variety.ID,
		Process:      "washed",
		PurchaseDate: day(2024, 1, 10),
		GreenWeight:  10000,
		PricePerKg:   decimal.NewFromInt(30000),
	}
	require.NoError(t, mem.InsertLot(ctx, &lot))

	return &fixture{
		ctx:       ctx,
		store:     mem,
		sales:     roastery.NewSaleService(mem, nil, 0, nil),
		farmID:    farm.ID,
		varietyID: variety.ID,
		lotID:     lot.ID,
	}
}

// roast adds a batch of the fixture lot with the given output.
func (f *fixture) roast(t *testing.T, green, roasted roastery.Grams, date time.Time) int64 {
	t.Helper()
	r := roastery.RoastBatch{LotID: f.lotID, RoastDate: date, GreenInput: green, RoastedOutput: roasted}
	require.NoError(t, roastery.PrepareRoast(&r))
	require.NoError(t, f.store.InsertRoast(f.ctx, &r))
	return r.ID
}

func (f *fixture) adjust(t *testing.T, roastID int64, grams roastery.Grams, date time.Time) {
	t.Helper()
	a := roastery.RoastAdjustment{RoastBatchID: roastID, Adjustment: grams, Reason: "recount", AdjustmentDate: date}
	require.NoError(t, roastery.ValidateAdjustment(a))
	require.NoError(t, f.store.InsertAdjustment(f.ctx, &a))
}

func item(roastID int64, bagSize, bags int, price int64) roastery.SaleItem {
	return roastery.SaleItem{
		RoastBatchID: roastID,
		BagSizeG:     bagSize,
		Bags:         bags,
		BagPrice:     decimal.NewFromInt(price),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func moneyPtr(s string) *decimal.Decimal {
	d := money(s)
	return &d
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, money(want).Equal(got), "want %s, got %s", want, got.String())
}
