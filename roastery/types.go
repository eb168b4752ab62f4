/*
Package roastery provides the inventory and accounting core of the roastery
back office.

PURPOSE:
  Holds the records the business tracks (farms, varieties, green-coffee lots,
  roast batches, roasted-stock adjustments, customers, sales, expenses) and
  the few pieces of real logic that sit on top of them:
  - Inventory accounting: how much roasted coffee is left per roast batch
  - Sale validation: line items may never oversell a roast batch
  - Payment reconciliation: is_paid / amount_paid / paid_at stay consistent
  - Dashboard aggregation: cash position and inventory valuation

UNITS:
  All weights are grams (Grams). Lot prices are per kilogram. Money is
  decimal.Decimal, rounded to the currency's smallest unit when a sale total
  is finalized (see money.go).

RECORDS ARE INERT:
  Types in this file carry data only. Persistence goes through the Store
  interfaces in store.go; the SQL implementation lives in store/sqlstore and
  an in-memory one in roastery/store.

SEE ALSO:
  - inventory.go: Available / Listing
  - validator.go: SaleValidator
  - payment.go: ResolvePayment / ReclampPayment
  - dashboard.go: Dashboard summary
*/
package roastery

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// UNITS
// =============================================================================

// Grams is a weight in grams. Roast output and adjustments may be fractional.
type Grams float64

// Float64 returns g as a plain float64.
func (g Grams) Float64() float64 { return float64(g) }

// Max returns the larger of g and o.
func (g Grams) Max(o Grams) Grams {
	if g > o {
		return g
	}
	return o
}

// gramsEpsilon absorbs float noise when comparing weights.
const gramsEpsilon = 1e-6

// =============================================================================
// CATALOG
// =============================================================================

// Farm is where green coffee is bought from.
type Farm struct {
	ID       int64
	Name     string
	Location string
	Notes    string
}

// Variety is a coffee cultivar.
type Variety struct {
	ID          int64
	Name        string
	Description string
}

// Customer is a buyer of roasted coffee.
type Customer struct {
	ID          int64
	Name        string
	ContactInfo string
}

// Expense is an operating cost outside green-coffee purchases.
type Expense struct {
	ID          int64
	ExpenseDate time.Time
	Category    string
	Amount      decimal.Decimal
	Notes       string
}

// PriceReference is a list price for a bag size, optionally tied to a
// variety and process.
type PriceReference struct {
	ID        int64
	VarietyID *int64
	Process   string
	BagSizeG  int
	Price     decimal.Decimal
	Notes     string
}

// =============================================================================
// PRODUCTION
// =============================================================================

// CoffeeLot is one purchase of green coffee.
type CoffeeLot struct {
	ID            int64
	FarmID        int64
	VarietyID     int64
	Process       string
	PurchaseDate  time.Time
	GreenWeight   Grams
	PricePerKg    decimal.Decimal
	MoistureLevel *float64
	Notes         string
}

// Cost is what the lot cost to buy: weight (kg) × price per kg.
func (l CoffeeLot) Cost() decimal.Decimal {
	return pricePerGram(l.PricePerKg).Mul(decimal.NewFromFloat(l.GreenWeight.Float64()))
}

// ValueOf prices a weight of this lot's green coffee at the lot's own price.
func (l CoffeeLot) ValueOf(g Grams) decimal.Decimal {
	return pricePerGram(l.PricePerKg).Mul(decimal.NewFromFloat(g.Float64()))
}

func pricePerGram(perKg decimal.Decimal) decimal.Decimal {
	return perKg.Div(decimal.NewFromInt(1000))
}

// RoastBatch is the product of roasting (part of) a lot.
type RoastBatch struct {
	ID            int64
	LotID         int64
	RoastDate     time.Time
	GreenInput    Grams
	RoastedOutput Grams
	RoastLevel    string
	Notes         string

	// Derived from GreenInput and RoastedOutput. See Shrinkage.
	ShrinkagePct float64
}

// RoastAdjustment is a signed manual correction to a batch's roasted stock
// (spillage, samples, recount).
type RoastAdjustment struct {
	ID             int64
	RoastBatchID   int64
	Adjustment     Grams
	Reason         string
	AdjustmentDate time.Time
	CreatedAt      time.Time
}

// =============================================================================
// SALES
// =============================================================================

// Sale is one sales transaction. TotalPrice, TotalQuantity and the payment
// fields are derived; see SaleService.
type Sale struct {
	ID         int64
	CustomerID *int64
	SaleDate   time.Time
	Notes      string

	TotalPrice    decimal.Decimal
	TotalQuantity Grams

	IsPaid     bool
	AmountPaid decimal.Decimal
	PaidAt     *time.Time

	Items []SaleItem
}

// Outstanding is what the customer still owes, never negative.
func (s Sale) Outstanding() decimal.Decimal {
	rest := s.TotalPrice.Sub(s.AmountPaid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// RoastBatchIDs returns the distinct roast batches the sale draws from,
// in ascending order.
func (s Sale) RoastBatchIDs() []int64 {
	return roastBatchIDs(s.Items)
}

// SaleItem is one line of a sale: Bags bags of BagSizeG grams from one batch.
type SaleItem struct {
	ID           int64
	SaleID       int64
	RoastBatchID int64
	BagSizeG     int
	Bags         int
	BagPrice     decimal.Decimal
	Notes        string
}

// Grams is the roasted weight the line draws from its batch.
func (i SaleItem) Grams() Grams {
	return Grams(float64(i.BagSizeG) * float64(i.Bags))
}

// Subtotal is bag price × bags, unrounded.
func (i SaleItem) Subtotal() decimal.Decimal {
	return i.BagPrice.Mul(decimal.NewFromInt(int64(i.Bags)))
}

// =============================================================================
// USERS
// =============================================================================

// User is a staff account. HashedPassword is a bcrypt hash.
type User struct {
	ID             int64
	Email          string
	FullName       string
	IsActive       bool
	IsSuperuser    bool
	HashedPassword string
}

// DashboardSnapshot is a persisted copy of a dashboard summary.
type DashboardSnapshot struct {
	ID      int64
	TakenAt time.Time
	Summary DashboardSummary
}
