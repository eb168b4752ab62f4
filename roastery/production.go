package roastery

import (
	"math"
	"strings"
)

// Shrinkage is the weight lost in roasting, in percent of green input.
// Zero when there was no green input.
func Shrinkage(green, roasted Grams) float64 {
	if green <= 0 {
		return 0
	}
	return float64((green - roasted) / green * 100)
}

// ValidateLot checks a lot before it is written.
func ValidateLot(l CoffeeLot) error {
	switch {
	case l.FarmID <= 0:
		return Invalid("farm_id", "is required")
	case l.VarietyID <= 0:
		return Invalid("variety_id", "is required")
	case l.GreenWeight <= 0:
		return Invalid("green_weight_g", "must be greater than zero")
	case l.PricePerKg.IsNegative():
		return Invalid("price_per_kg", "cannot be negative")
	}
	return nil
}

// PrepareRoast validates a roast batch and fills in its shrinkage.
func PrepareRoast(r *RoastBatch) error {
	switch {
	case r.LotID <= 0:
		return Invalid("lot_id", "is required")
	case r.GreenInput <= 0:
		return Invalid("green_input_g", "must be greater than zero")
	case r.RoastedOutput < 0:
		return Invalid("roasted_output_g", "cannot be negative")
	}
	r.ShrinkagePct = Shrinkage(r.GreenInput, r.RoastedOutput)
	return nil
}

// ValidateAdjustment rejects zero (or float-noise) adjustments.
func ValidateAdjustment(a RoastAdjustment) error {
	if a.RoastBatchID <= 0 {
		return Invalid("roast_batch_id", "is required")
	}
	if math.Abs(a.Adjustment.Float64()) < gramsEpsilon {
		return Invalid("adjustment_g", "must not be zero")
	}
	return nil
}

// ValidateName rejects blank required names.
func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return Invalid(field, "is required")
	}
	return nil
}
