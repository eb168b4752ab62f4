/*
sales.go - Sale writes

PURPOSE:
  Creates, edits and deletes sales as single units of work. This is the only
  place sale totals and payment fields are set.

FLOW (create / update with new items):
  1. Take application locks on every roast batch the items draw from
     (Locker: in-process or Redis, keys "roast:<id>" in ascending order)
  2. Open a store transaction
  3. Lock the batch rows inside the transaction (LockRoastBatches)
  4. Validate items against stock, excluding the sale being edited
  5. Resolve payment against the new total
  6. Write the sale and its items
  7. Commit; any error rolls everything back

  Steps 1 and 3 close the window in which two concurrent sales could both
  pass step 4 against the same remaining stock.

USAGE:
  svc := roastery.NewSaleService(store, lock.NewLocal(), 0, logger)
  sale, err := svc.Create(ctx, roastery.SaleInput{
      SaleDate: day,
      Items:    []roastery.SaleItem{{RoastBatchID: 3, BagSizeG: 250, Bags: 2, BagPrice: price}},
  })
*/
package roastery

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// LOCKING
// =============================================================================

// Locker serializes work on named resources. Lock blocks until every key is
// held or ctx is done; the returned func releases them.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// NopLocker never blocks. Store-level locking still applies.
type NopLocker struct{}

func (NopLocker) Lock(context.Context, ...string) (func(), error) { return func() {}, nil }

// RoastLockKey names the lock guarding one roast batch's stock.
func RoastLockKey(roastBatchID int64) string {
	return fmt.Sprintf("roast:%d", roastBatchID)
}

// SaleLockKey names the lock guarding one sale row.
func SaleLockKey(saleID int64) string {
	return fmt.Sprintf("sale:%d", saleID)
}

func roastLockKeys(items []SaleItem) []string {
	ids := roastBatchIDs(items)
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = RoastLockKey(id)
	}
	return keys
}

// =============================================================================
// INPUTS
// =============================================================================

// SaleInput is a new sale as the client describes it.
type SaleInput struct {
	CustomerID *int64
	SaleDate   time.Time
	Notes      string
	Items      []SaleItem

	IsPaid     bool
	AmountPaid *decimal.Decimal
	PaidAt     *time.Time
}

// SaleUpdate carries the fields to change. Nil means keep.
// A non-nil Items replaces every existing item.
type SaleUpdate struct {
	CustomerID    *int64
	ClearCustomer bool
	SaleDate      *time.Time
	Notes         *string
	Items         []SaleItem

	IsPaid     *bool
	AmountPaid *decimal.Decimal
	PaidAt     *time.Time
}

// =============================================================================
// SERVICE
// =============================================================================

// SaleService owns sale writes.
type SaleService struct {
	store  Store
	locker Locker
	places int32
	logger *zap.Logger
}

// NewSaleService wires the service. places is the number of decimals money
// is rounded to. A nil locker means NopLocker, a nil logger means no logs.
func NewSaleService(store Store, locker Locker, places int32, logger *zap.Logger) *SaleService {
	if locker == nil {
		locker = NopLocker{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SaleService{store: store, locker: locker, places: places, logger: logger}
}

// Create validates and writes a new sale.
func (s *SaleService) Create(ctx context.Context, in SaleInput) (Sale, error) {
	unlock, err := s.locker.Lock(ctx, roastLockKeys(in.Items)...)
	if err != nil {
		return Sale{}, fmt.Errorf("lock roast batches: %w", err)
	}
	defer unlock()

	var sale Sale
	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := checkCustomer(ctx, tx, in.CustomerID); err != nil {
			return err
		}

		totals, err := s.validate(ctx, tx, in.Items, 0)
		if err != nil {
			return err
		}

		payment, err := ResolvePayment(totals.TotalPrice, in.IsPaid, in.AmountPaid)
		if err != nil {
			return err
		}

		sale = Sale{
			CustomerID:    in.CustomerID,
			SaleDate:      in.SaleDate,
			Notes:         in.Notes,
			TotalPrice:    totals.TotalPrice,
			TotalQuantity: totals.TotalQuantity,
			Items:         cloneItems(in.Items),
		}
		sale.ApplyPayment(payment, in.PaidAt)

		return tx.InsertSale(ctx, &sale)
	})
	if err != nil {
		return Sale{}, err
	}

	s.logger.Info("sale created",
		zap.Int64("sale_id", sale.ID),
		zap.String("total_price", sale.TotalPrice.String()),
		zap.Float64("total_quantity_g", sale.TotalQuantity.Float64()),
		zap.Bool("is_paid", sale.IsPaid),
	)
	return sale, nil
}

// Update applies changes to an existing sale. The sale's own items never
// count against its new items.
func (s *SaleService) Update(ctx context.Context, id int64, upd SaleUpdate) (Sale, error) {
	keys := append([]string{SaleLockKey(id)}, roastLockKeys(upd.Items)...)
	unlock, err := s.locker.Lock(ctx, keys...)
	if err != nil {
		return Sale{}, fmt.Errorf("lock sale %d: %w", id, err)
	}
	defer unlock()

	var sale Sale
	err = s.store.WithTx(ctx, func(tx Store) error {
		current, err := tx.GetSale(ctx, id)
		if err != nil {
			return err
		}
		sale = current

		switch {
		case upd.ClearCustomer:
			sale.CustomerID = nil
		case upd.CustomerID != nil:
			if err := checkCustomer(ctx, tx, upd.CustomerID); err != nil {
				return err
			}
			sale.CustomerID = upd.CustomerID
		}
		if upd.SaleDate != nil {
			sale.SaleDate = *upd.SaleDate
		}
		if upd.Notes != nil {
			sale.Notes = *upd.Notes
		}

		replaceItems := upd.Items != nil
		if replaceItems {
			totals, err := s.validate(ctx, tx, upd.Items, id)
			if err != nil {
				return err
			}
			sale.TotalPrice = totals.TotalPrice
			sale.TotalQuantity = totals.TotalQuantity
			sale.Items = cloneItems(upd.Items)
		}

		payment, err := s.resolveUpdatePayment(sale, upd)
		if err != nil {
			return err
		}
		sale.ApplyPayment(payment, upd.PaidAt)

		return tx.UpdateSale(ctx, &sale, replaceItems)
	})
	if err != nil {
		return Sale{}, err
	}

	s.logger.Info("sale updated",
		zap.Int64("sale_id", sale.ID),
		zap.Bool("items_replaced", upd.Items != nil),
		zap.String("amount_paid", sale.AmountPaid.String()),
	)
	return sale, nil
}

// Delete removes a sale and its items, returning their stock to the batches.
func (s *SaleService) Delete(ctx context.Context, id int64) error {
	unlock, err := s.locker.Lock(ctx, SaleLockKey(id))
	if err != nil {
		return fmt.Errorf("lock sale %d: %w", id, err)
	}
	defer unlock()

	if err := s.store.WithTx(ctx, func(tx Store) error {
		return tx.DeleteSale(ctx, id)
	}); err != nil {
		return err
	}

	s.logger.Info("sale deleted", zap.Int64("sale_id", id))
	return nil
}

func (s *SaleService) validate(ctx context.Context, tx Store, items []SaleItem, excludeSaleID int64) (SaleTotals, error) {
	if err := tx.LockRoastBatches(ctx, roastBatchIDs(items)); err != nil {
		return SaleTotals{}, fmt.Errorf("lock roast batch rows: %w", err)
	}
	return NewSaleValidator(NewInventory(tx), s.places).Validate(ctx, items, excludeSaleID)
}

// resolveUpdatePayment picks the payment rule for an update: an explicit
// amount wins, then an explicit flag, else the old amount is re-fitted.
func (s *SaleService) resolveUpdatePayment(sale Sale, upd SaleUpdate) (Payment, error) {
	switch {
	case upd.AmountPaid != nil:
		isPaid := sale.IsPaid
		if upd.IsPaid != nil {
			isPaid = *upd.IsPaid
		}
		return ResolvePayment(sale.TotalPrice, isPaid, upd.AmountPaid)
	case upd.IsPaid != nil:
		return ResolvePayment(sale.TotalPrice, *upd.IsPaid, nil)
	default:
		return ReclampPayment(sale.TotalPrice, sale.AmountPaid), nil
	}
}

func checkCustomer(ctx context.Context, tx Store, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := tx.GetCustomer(ctx, *id)
	return err
}

func cloneItems(items []SaleItem) []SaleItem {
	out := make([]SaleItem, len(items))
	copy(out, items)
	return out
}
