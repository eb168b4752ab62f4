package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roastsync/roastery/roastery"
)

const dateLayout = "2006-01-02"

// =============================================================================
// PARSING
// =============================================================================

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, roastery.Invalid(field, "must be a date (YYYY-MM-DD)")
	}
	return t, nil
}

func parseDatePtr(field string, s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func money(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func moneyPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

func toSaleItems(reqs []SaleItemRequest) []roastery.SaleItem {
	items := make([]roastery.SaleItem, len(reqs))
	for i, r := range reqs {
		bags := 1
		if r.Bags != nil {
			bags = *r.Bags
		}
		items[i] = roastery.SaleItem{
			RoastBatchID: r.RoastBatchID,
			BagSizeG:     r.BagSizeG,
			Bags:         bags,
			BagPrice:     money(r.BagPrice),
			Notes:        r.Notes,
		}
	}
	return items
}

// =============================================================================
// RECORD -> DTO
// =============================================================================

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toFarmDTO(f roastery.Farm) FarmDTO {
	return FarmDTO{ID: f.ID, Name: f.Name, Location: f.Location, Notes: f.Notes}
}

func toVarietyDTO(v roastery.Variety) VarietyDTO {
	return VarietyDTO{ID: v.ID, Name: v.Name, Description: v.Description}
}

func toCustomerDTO(c roastery.Customer) CustomerDTO {
	return CustomerDTO{ID: c.ID, Name: c.Name, ContactInfo: c.ContactInfo}
}

func toExpenseDTO(e roastery.Expense) ExpenseDTO {
	return ExpenseDTO{
		ID:          e.ID,
		ExpenseDate: formatDate(e.ExpenseDate),
		Category:    e.Category,
		Amount:      toFloat(e.Amount),
		Notes:       e.Notes,
	}
}

func toPriceReferenceDTO(p roastery.PriceReference) PriceReferenceDTO {
	return PriceReferenceDTO{
		ID:        p.ID,
		VarietyID: p.VarietyID,
		Process:   p.Process,
		BagSizeG:  p.BagSizeG,
		Price:     toFloat(p.Price),
		Notes:     p.Notes,
	}
}

func toLotDTO(l roastery.CoffeeLot) LotDTO {
	return LotDTO{
		ID:            l.ID,
		FarmID:        l.FarmID,
		VarietyID:     l.VarietyID,
		Process:       l.Process,
		PurchaseDate:  formatDate(l.PurchaseDate),
		GreenWeightG:  l.GreenWeight.Float64(),
		PricePerKg:    toFloat(l.PricePerKg),
		MoistureLevel: l.MoistureLevel,
		Notes:         l.Notes,
	}
}

func toRoastDTO(r roastery.RoastBatch) RoastDTO {
	return RoastDTO{
		ID:             r.ID,
		LotID:          r.LotID,
		RoastDate:      formatDate(r.RoastDate),
		GreenInputG:    r.GreenInput.Float64(),
		RoastedOutputG: r.RoastedOutput.Float64(),
		RoastLevel:     r.RoastLevel,
		Notes:          r.Notes,
		ShrinkagePct:   r.ShrinkagePct,
	}
}

func toAdjustmentDTO(a roastery.RoastAdjustment) AdjustmentDTO {
	return AdjustmentDTO{
		ID:             a.ID,
		RoastBatchID:   a.RoastBatchID,
		AdjustmentG:    a.Adjustment.Float64(),
		Reason:         a.Reason,
		AdjustmentDate: formatDate(a.AdjustmentDate),
		CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toRoastedInventoryDTO(s roastery.RoastStock) RoastedInventoryDTO {
	return RoastedInventoryDTO{
		RoastID:        s.Roast.ID,
		RoastDate:      formatDate(s.Roast.RoastDate),
		RoastLevel:     s.Roast.RoastLevel,
		LotID:          s.Roast.LotID,
		LotProcess:     s.LotProcess,
		FarmName:       s.FarmName,
		VarietyName:    s.VarietyName,
		GreenInputG:    s.Roast.GreenInput.Float64(),
		RoastedOutputG: s.Roast.RoastedOutput.Float64(),
		SoldG:          s.Sold.Float64(),
		AdjustmentsG:   s.Adjusted.Float64(),
		AvailableG:     s.Available().Float64(),
		ShrinkagePct:   s.Roast.ShrinkagePct,
		Notes:          s.Roast.Notes,
	}
}

func toSaleDTO(s roastery.Sale) SaleDTO {
	dto := SaleDTO{
		ID:             s.ID,
		CustomerID:     s.CustomerID,
		SaleDate:       formatDate(s.SaleDate),
		Notes:          s.Notes,
		TotalPrice:     toFloat(s.TotalPrice),
		TotalQuantityG: s.TotalQuantity.Float64(),
		IsPaid:         s.IsPaid,
		AmountPaid:     toFloat(s.AmountPaid),
		Outstanding:    toFloat(s.Outstanding()),
		Items:          make([]SaleItemDTO, len(s.Items)),
	}
	if s.PaidAt != nil {
		paid := formatDate(*s.PaidAt)
		dto.PaidAt = &paid
	}
	for i, it := range s.Items {
		dto.Items[i] = SaleItemDTO{
			ID:           it.ID,
			SaleID:       it.SaleID,
			RoastBatchID: it.RoastBatchID,
			BagSizeG:     it.BagSizeG,
			Bags:         it.Bags,
			BagPrice:     toFloat(it.BagPrice),
			Notes:        it.Notes,
		}
	}
	return dto
}

func toUserDTO(u roastery.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
	}
}

func toDashboardDTO(s roastery.DashboardSummary) DashboardDTO {
	return DashboardDTO{
		GreenPurchasedG:   s.GreenPurchased.Float64(),
		GreenConsumedG:    s.GreenConsumed.Float64(),
		GreenAvailableG:   s.GreenAvailable.Float64(),
		RoastedProducedG:  s.RoastedProduced.Float64(),
		RoastedSoldG:      s.RoastedSold.Float64(),
		RoastedAdjustedG:  s.RoastedAdjusted.Float64(),
		RoastedAvailableG: s.RoastedAvailable.Float64(),

		PurchaseCost:  toFloat(s.PurchaseCost),
		SalesRevenue:  toFloat(s.SalesRevenue),
		Expenses:      toFloat(s.Expenses),
		ExpectedCash:  toFloat(s.ExpectedCash),
		CashCollected: toFloat(s.CashCollected),
		Receivables:   toFloat(s.Receivables),

		GreenInventoryValue:   toFloat(s.GreenInventoryValue),
		RoastedInventoryValue: toFloat(s.RoastedInventoryValue),
		CoffeeInventoryValue:  toFloat(s.CoffeeInventoryValue),
		AvgPricePerG:          toFloat(s.AvgPricePerGram),
		ProjectedFullSale:     toFloat(s.ProjectedFullSale),
		ProjectedHalfSale:     toFloat(s.ProjectedHalfSale),

		RecentLots:     mapSlice(s.RecentLots, toLotDTO),
		RecentExpenses: mapSlice(s.RecentExpenses, toExpenseDTO),
		RecentSales:    mapSlice(s.RecentSales, toSaleDTO),
	}
}

func toSnapshotDTO(s roastery.DashboardSnapshot) SnapshotDTO {
	return SnapshotDTO{
		ID:      s.ID,
		TakenAt: s.TakenAt.UTC().Format(time.RFC3339),
		Summary: toDashboardDTO(s.Summary),
	}
}

// mapSlice converts every record; the result is never nil so lists encode
// as [].
func mapSlice[T, D any](records []T, conv func(T) D) []D {
	out := make([]D, len(records))
	for i, r := range records {
		out[i] = conv(r)
	}
	return out
}
