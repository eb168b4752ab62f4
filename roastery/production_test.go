package roastery_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roastsync/roastery/roastery"
)

func TestShrinkage(t *testing.T) {
	assert.InDelta(t, 15.0, roastery.Shrinkage(1000, 850), 1e-9)
	assert.InDelta(t, 0.0, roastery.Shrinkage(0, 100), 1e-9, "no green input")
	assert.InDelta(t, 0.0, roastery.Shrinkage(-5, 100), 1e-9)
	assert.InDelta(t, 100.0, roastery.Shrinkage(500, 0), 1e-9)
}

func TestPrepareRoast(t *testing.T) {
	r := roastery.RoastBatch{LotID: 1, GreenInput: 2000, RoastedOutput: 1640}
	require.NoError(t, roastery.PrepareRoast(&r))
	assert.InDelta(t, 18.0, r.ShrinkagePct, 1e-9)

	bad := roastery.RoastBatch{LotID: 1, GreenInput: 0, RoastedOutput: 100}
	err := roastery.PrepareRoast(&bad)
	var verr *roastery.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "green_input_g", verr.Field)
}

func TestValidateLot(t *testing.T) {
	ok := roastery.CoffeeLot{FarmID: 1, VarietyID: 1, GreenWeight: 1, PricePerKg: decimal.NewFromInt(10)}
	assert.NoError(t, roastery.ValidateLot(ok))

	noWeight := ok
	noWeight.GreenWeight = 0
	assert.True(t, roastery.IsClientError(roastery.ValidateLot(noWeight)))

	noFarm := ok
	noFarm.FarmID = 0
	assert.True(t, roastery.IsClientError(roastery.ValidateLot(noFarm)))
}

func TestValidateAdjustment(t *testing.T) {
	tests := []struct {
		name    string
		grams   roastery.Grams
		wantErr bool
	}{
		{name: "loss", grams: -25},
		{name: "gain", grams: 10.5},
		{name: "zero", grams: 0, wantErr: true},
		{name: "float noise", grams: 1e-9, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := roastery.ValidateAdjustment(roastery.RoastAdjustment{RoastBatchID: 1, Adjustment: tt.grams})
			if tt.wantErr {
				assert.True(t, roastery.IsClientError(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCoffeeLot_Cost(t *testing.T) {
	lot := roastery.CoffeeLot{GreenWeight: 2500, PricePerKg: decimal.NewFromInt(32000)}
	assertMoney(t, "80000", lot.Cost())
	assertMoney(t, "16000", lot.ValueOf(500))
}
