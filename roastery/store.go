/*
store.go - Persistence interfaces for the roastery core

PURPOSE:
  Defines the boundary between the domain logic and the database. Core
  components depend on the narrow interfaces (InventoryReader, SaleStore,
  DashboardReader); the HTTP layer depends on the full Store.

CONTRACT:
  - Get* returns a *NotFoundError (errors.Is(err, ErrNotFound)) when the
    record is missing.
  - Insert* assigns the new ID on the passed record (and on sale items).
  - Constraint violations surface as ErrConflict.
  - List* results are ordered by date descending, then ID descending, unless
    noted otherwise.

UNIT OF WORK:
  WithTx runs fn against a Store bound to one transaction. If fn returns an
  error the transaction is rolled back; otherwise it is committed. Calling
  WithTx on a Store that is already inside a transaction reuses it.

IMPLEMENTATIONS:
  - store/sqlstore: SQLite (default) and MySQL
  - roastery/store: in-memory, for tests
*/
package roastery

import "context"

// InventoryReader is what inventory accounting needs from the store.
type InventoryReader interface {
	GetRoastBatch(ctx context.Context, id int64) (RoastBatch, error)

	// SoldGrams sums bag_size_g × bags over sale items of the batch,
	// skipping items of excludeSaleID (0 excludes nothing).
	SoldGrams(ctx context.Context, roastBatchID, excludeSaleID int64) (Grams, error)

	// AdjustedGrams sums the signed adjustments of the batch.
	AdjustedGrams(ctx context.Context, roastBatchID int64) (Grams, error)

	// ListRoastStock returns every batch with its sold and adjusted totals
	// and the names of its lot's farm and variety.
	ListRoastStock(ctx context.Context) ([]RoastStock, error)
}

// SaleStore persists sales together with their items.
type SaleStore interface {
	InventoryReader

	ListSales(ctx context.Context) ([]Sale, error)
	GetSale(ctx context.Context, id int64) (Sale, error)
	InsertSale(ctx context.Context, sale *Sale) error

	// UpdateSale writes the sale row. With replaceItems the existing items
	// are deleted and sale.Items inserted in their place.
	UpdateSale(ctx context.Context, sale *Sale, replaceItems bool) error

	// DeleteSale removes the sale and its items.
	DeleteSale(ctx context.Context, id int64) error

	// LockRoastBatches holds the given batches until the surrounding
	// transaction ends, so availability checks and the write that follows
	// see the same stock. Outside a transaction it is a no-op.
	LockRoastBatches(ctx context.Context, ids []int64) error
}

// CatalogStore holds the pass-through records.
type CatalogStore interface {
	ListFarms(ctx context.Context) ([]Farm, error)
	GetFarm(ctx context.Context, id int64) (Farm, error)
	InsertFarm(ctx context.Context, f *Farm) error
	UpdateFarm(ctx context.Context, f Farm) error
	DeleteFarm(ctx context.Context, id int64) error

	ListVarieties(ctx context.Context) ([]Variety, error)
	GetVariety(ctx context.Context, id int64) (Variety, error)
	InsertVariety(ctx context.Context, v *Variety) error
	UpdateVariety(ctx context.Context, v Variety) error
	DeleteVariety(ctx context.Context, id int64) error

	ListCustomers(ctx context.Context) ([]Customer, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	InsertCustomer(ctx context.Context, c *Customer) error
	UpdateCustomer(ctx context.Context, c Customer) error
	DeleteCustomer(ctx context.Context, id int64) error

	ListExpenses(ctx context.Context) ([]Expense, error)
	GetExpense(ctx context.Context, id int64) (Expense, error)
	InsertExpense(ctx context.Context, e *Expense) error
	UpdateExpense(ctx context.Context, e Expense) error
	DeleteExpense(ctx context.Context, id int64) error

	// ListPriceReferences is ordered by bag size, then ID.
	ListPriceReferences(ctx context.Context) ([]PriceReference, error)
	GetPriceReference(ctx context.Context, id int64) (PriceReference, error)
	InsertPriceReference(ctx context.Context, p *PriceReference) error
	UpdatePriceReference(ctx context.Context, p PriceReference) error
	DeletePriceReference(ctx context.Context, id int64) error
}

// ProductionStore holds lots, roast batches and adjustments.
type ProductionStore interface {
	ListLots(ctx context.Context) ([]CoffeeLot, error)
	GetLot(ctx context.Context, id int64) (CoffeeLot, error)
	InsertLot(ctx context.Context, l *CoffeeLot) error
	UpdateLot(ctx context.Context, l CoffeeLot) error
	DeleteLot(ctx context.Context, id int64) error

	ListRoasts(ctx context.Context) ([]RoastBatch, error)
	InsertRoast(ctx context.Context, r *RoastBatch) error
	UpdateRoast(ctx context.Context, r RoastBatch) error
	DeleteRoast(ctx context.Context, id int64) error

	// ListAdjustments filters by batch when roastBatchID is non-zero.
	ListAdjustments(ctx context.Context, roastBatchID int64) ([]RoastAdjustment, error)
	GetAdjustment(ctx context.Context, id int64) (RoastAdjustment, error)
	InsertAdjustment(ctx context.Context, a *RoastAdjustment) error
	UpdateAdjustment(ctx context.Context, a RoastAdjustment) error
	DeleteAdjustment(ctx context.Context, id int64) error
}

// DashboardReader is the read set the dashboard aggregates over.
type DashboardReader interface {
	ListLots(ctx context.Context) ([]CoffeeLot, error)
	ListRoasts(ctx context.Context) ([]RoastBatch, error)
	ListSales(ctx context.Context) ([]Sale, error)
	ListExpenses(ctx context.Context) ([]Expense, error)
	ListAdjustments(ctx context.Context, roastBatchID int64) ([]RoastAdjustment, error)
}

type UserStore interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	InsertUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, id int64) error
}

type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *DashboardSnapshot) error
	// ListSnapshots returns the newest snapshots first, at most limit.
	ListSnapshots(ctx context.Context, limit int) ([]DashboardSnapshot, error)
}

// Store is the full persistence surface.
type Store interface {
	CatalogStore
	ProductionStore
	SaleStore
	UserStore
	SnapshotStore

	WithTx(ctx context.Context, fn func(Store) error) error
}
