/*
validator.go - Sale line-item validation

PURPOSE:
  Checks a proposed list of sale items against the business rules and the
  roasted stock before anything is written, and computes the sale totals.

RULES:
  1. At least one item.
  2. Every item: bag_size_g > 0, bags > 0, bag_price > 0 and not zero once
     rounded to the currency unit.
  3. Per roast batch, the SUM of requested grams across all lines must fit
     in what the batch has left (excluding the sale being edited).

  Rule 3 aggregates first: two lines of 600g each against a 1000g batch fail
  even though each line fits on its own.

OUTPUT:
  total_price    = Σ bag_price × bags, rounded to the currency unit
  total_quantity = Σ bag_size_g × bags

No writes. The caller is expected to hold the batch locks (see sales.go) so
the answer is still true when the sale is written.
*/
package roastery

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// SaleTotals are the derived totals of a validated item list.
type SaleTotals struct {
	TotalPrice    decimal.Decimal
	TotalQuantity Grams
}

// SaleValidator validates sale items against roasted stock.
type SaleValidator struct {
	inventory *Inventory
	places    int32
}

// NewSaleValidator creates a validator rounding totals to places decimals.
func NewSaleValidator(inventory *Inventory, places int32) *SaleValidator {
	return &SaleValidator{inventory: inventory, places: places}
}

// Validate checks items and returns the sale totals. excludeSaleID is the
// sale being edited (0 for a new sale).
func (v *SaleValidator) Validate(ctx context.Context, items []SaleItem, excludeSaleID int64) (SaleTotals, error) {
	if len(items) == 0 {
		return SaleTotals{}, Invalid("items", "a sale needs at least one item")
	}

	requested := make(map[int64]Grams)
	totalPrice := decimal.Zero
	var totalQty Grams

	for i, item := range items {
		if err := validateItemShape(i, item); err != nil {
			return SaleTotals{}, err
		}
		if !RoundMoney(item.BagPrice, v.places).IsPositive() {
			return SaleTotals{}, Invalid(fmt.Sprintf("items[%d].bag_price", i), "rounds to zero in the sale currency")
		}
		requested[item.RoastBatchID] += item.Grams()
		totalPrice = totalPrice.Add(item.Subtotal())
		totalQty += item.Grams()
	}

	for _, roastID := range roastBatchIDs(items) {
		available, err := v.inventory.Available(ctx, roastID, excludeSaleID)
		if err != nil {
			return SaleTotals{}, err
		}
		if want := requested[roastID]; want > available+gramsEpsilon {
			return SaleTotals{}, &InsufficientInventoryError{
				RoastBatchID: roastID,
				Available:    available,
				Requested:    want,
			}
		}
	}

	rounded := RoundMoney(totalPrice, v.places)
	if !rounded.IsPositive() {
		return SaleTotals{}, Invalid("items", "total price rounds to zero in the sale currency")
	}

	return SaleTotals{
		TotalPrice:    rounded,
		TotalQuantity: totalQty,
	}, nil
}

func validateItemShape(i int, item SaleItem) error {
	field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

	switch {
	case item.RoastBatchID <= 0:
		return Invalid(field("roast_batch_id"), "is required")
	case item.BagSizeG <= 0:
		return Invalid(field("bag_size_g"), "must be greater than zero")
	case item.Bags <= 0:
		return Invalid(field("bags"), "must be greater than zero")
	case !item.BagPrice.IsPositive():
		return Invalid(field("bag_price"), "must be greater than zero")
	}
	return nil
}

// roastBatchIDs returns the distinct batch IDs of items, ascending.
func roastBatchIDs(items []SaleItem) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.RoastBatchID]; ok {
			continue
		}
		seen[item.RoastBatchID] = struct{}{}
		ids = append(ids, item.RoastBatchID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
