/*
inventory.go - Roasted inventory accounting

PURPOSE:
  Answers "how much roasted coffee is left in this roast batch?".

FORMULA:
  available = roasted_output - sold + adjustments

  sold        = Σ bag_size_g × bags over every sale item of the batch,
                optionally ignoring the items of one sale (the sale being
                edited, so its old lines don't count against its new ones)
  adjustments = Σ signed manual corrections

TWO READINGS:
  Available  - validation path, floored at zero. Used before accepting a sale.
  Listing    - reporting path, NOT floored. A negative figure tells the
               operator that stock was oversold or miscounted.

All methods are pure reads.
*/
package roastery

import (
	"context"
	"fmt"
)

// RoastStock is one batch with its running totals.
type RoastStock struct {
	Roast       RoastBatch
	LotProcess  string
	FarmName    string
	VarietyName string

	Sold     Grams
	Adjusted Grams
}

// Available is output - sold + adjusted, unfloored.
func (s RoastStock) Available() Grams {
	return s.Roast.RoastedOutput - s.Sold + s.Adjusted
}

// Inventory computes roasted stock from the store.
type Inventory struct {
	reader InventoryReader
}

func NewInventory(reader InventoryReader) *Inventory {
	return &Inventory{reader: reader}
}

// Stock returns the raw figures for one batch. Items of excludeSaleID are
// not counted as sold; pass 0 to count everything.
func (inv *Inventory) Stock(ctx context.Context, roastBatchID, excludeSaleID int64) (RoastStock, error) {
	roast, err := inv.reader.GetRoastBatch(ctx, roastBatchID)
	if err != nil {
		return RoastStock{}, err
	}

	sold, err := inv.reader.SoldGrams(ctx, roastBatchID, excludeSaleID)
	if err != nil {
		return RoastStock{}, fmt.Errorf("sum sold grams for roast %d: %w", roastBatchID, err)
	}

	adjusted, err := inv.reader.AdjustedGrams(ctx, roastBatchID)
	if err != nil {
		return RoastStock{}, fmt.Errorf("sum adjustments for roast %d: %w", roastBatchID, err)
	}

	return RoastStock{Roast: roast, Sold: sold, Adjusted: adjusted}, nil
}

// Available returns the grams a new or edited sale may still draw from the
// batch, never negative. Returns ErrNotFound when the batch doesn't exist.
func (inv *Inventory) Available(ctx context.Context, roastBatchID, excludeSaleID int64) (Grams, error) {
	stock, err := inv.Stock(ctx, roastBatchID, excludeSaleID)
	if err != nil {
		return 0, err
	}
	return stock.Available().Max(0), nil
}

// Listing returns every batch with lot, farm and variety names, newest roast
// first. Available figures are not floored.
func (inv *Inventory) Listing(ctx context.Context) ([]RoastStock, error) {
	return inv.reader.ListRoastStock(ctx)
}
