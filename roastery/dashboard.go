/*
dashboard.go - Business summary

PURPOSE:
  Aggregates the whole record set into the figures the owner looks at:
  how much coffee is where, what it cost, what came in, and what the stock
  is worth.

FIGURES:
  Weights
    green purchased   = Σ lot green weight
    green consumed    = Σ roast green input
    green available   = max(purchased - consumed, 0)
    roasted produced  = Σ roast output
    roasted sold      = Σ sale total quantity
    roasted adjusted  = Σ adjustments (reported only)
    roasted available = max(produced - sold, 0)

  Cash
    purchase cost   = Σ lot weight / 1000 × price per kg
    sales revenue   = Σ sale total price
    expenses        = Σ expense amount
    expected cash   = revenue - (expenses + purchase cost)
    cash collected  = Σ amount paid
    receivables     = Σ outstanding balance

  Valuation
    green value     = Σ per lot: remaining green × that lot's price per gram
    avg price / g   = revenue / grams sold (0 when nothing sold)
    roasted value   = roasted available × avg price / g
    coffee value    = green value + roasted value
    projected full  = roasted value, projected half = roasted value / 2

  Recent: the 5 newest lots, expenses and sales (date desc, then id desc).

Summary is a pure function of the store contents: two calls with no write in
between return equal results.
*/
package roastery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RecentLimit is how many recent records the summary carries per kind.
const RecentLimit = 5

// DashboardSummary is the aggregated view. The JSON form is what snapshots
// persist.
type DashboardSummary struct {
	GreenPurchased   Grams `json:"green_purchased_g"`
	GreenConsumed    Grams `json:"green_consumed_g"`
	GreenAvailable   Grams `json:"green_available_g"`
	RoastedProduced  Grams `json:"roasted_produced_g"`
	RoastedSold      Grams `json:"roasted_sold_g"`
	RoastedAdjusted  Grams `json:"roasted_adjusted_g"`
	RoastedAvailable Grams `json:"roasted_available_g"`

	PurchaseCost  decimal.Decimal `json:"purchase_cost"`
	SalesRevenue  decimal.Decimal `json:"sales_revenue"`
	Expenses      decimal.Decimal `json:"expenses"`
	ExpectedCash  decimal.Decimal `json:"expected_cash"`
	CashCollected decimal.Decimal `json:"cash_collected"`
	Receivables   decimal.Decimal `json:"receivables"`

	GreenInventoryValue   decimal.Decimal `json:"green_inventory_value"`
	RoastedInventoryValue decimal.Decimal `json:"roasted_inventory_value"`
	CoffeeInventoryValue  decimal.Decimal `json:"coffee_inventory_value"`
	AvgPricePerGram       decimal.Decimal `json:"avg_price_per_g"`
	ProjectedFullSale     decimal.Decimal `json:"projected_full_sale_value"`
	ProjectedHalfSale     decimal.Decimal `json:"projected_half_sale_value"`

	RecentLots     []CoffeeLot `json:"recent_lots"`
	RecentExpenses []Expense   `json:"recent_expenses"`
	RecentSales    []Sale      `json:"recent_sales"`
}

// Dashboard computes summaries from a store.
type Dashboard struct {
	reader DashboardReader
	places int32
}

// NewDashboard creates a dashboard rounding money to places decimals.
func NewDashboard(reader DashboardReader, places int32) *Dashboard {
	return &Dashboard{reader: reader, places: places}
}

// Summary reads every lot, roast, sale, expense and adjustment and
// aggregates them.
func (d *Dashboard) Summary(ctx context.Context) (DashboardSummary, error) {
	lots, err := d.reader.ListLots(ctx)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("list lots: %w", err)
	}
	roasts, err := d.reader.ListRoasts(ctx)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("list roasts: %w", err)
	}
	sales, err := d.reader.ListSales(ctx)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("list sales: %w", err)
	}
	expenses, err := d.reader.ListExpenses(ctx)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("list expenses: %w", err)
	}
	adjustments, err := d.reader.ListAdjustments(ctx, 0)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("list adjustments: %w", err)
	}

	return d.aggregate(lots, roasts, sales, expenses, adjustments), nil
}

// Snapshot computes the summary and saves it, stamped with at.
func (d *Dashboard) Snapshot(ctx context.Context, sink SnapshotStore, at time.Time) (DashboardSnapshot, error) {
	summary, err := d.Summary(ctx)
	if err != nil {
		return DashboardSnapshot{}, err
	}
	snap := DashboardSnapshot{TakenAt: at, Summary: summary}
	if err := sink.SaveSnapshot(ctx, &snap); err != nil {
		return DashboardSnapshot{}, fmt.Errorf("save dashboard snapshot: %w", err)
	}
	return snap, nil
}

func (d *Dashboard) aggregate(lots []CoffeeLot, roasts []RoastBatch, sales []Sale, expenses []Expense, adjustments []RoastAdjustment) DashboardSummary {
	var sum DashboardSummary

	// Weights
	consumedByLot := make(map[int64]Grams)
	for _, l := range lots {
		sum.GreenPurchased += l.GreenWeight
	}
	for _, r := range roasts {
		sum.GreenConsumed += r.GreenInput
		sum.RoastedProduced += r.RoastedOutput
		consumedByLot[r.LotID] += r.GreenInput
	}
	for _, s := range sales {
		sum.RoastedSold += s.TotalQuantity
	}
	for _, a := range adjustments {
		sum.RoastedAdjusted += a.Adjustment
	}
	sum.GreenAvailable = (sum.GreenPurchased - sum.GreenConsumed).Max(0)
	// Adjustments are reported on their own; they do not reduce roasted available.
	sum.RoastedAvailable = (sum.RoastedProduced - sum.RoastedSold).Max(0)

	// Cash
	purchaseCost, greenValue := decimal.Zero, decimal.Zero
	for _, l := range lots {
		purchaseCost = purchaseCost.Add(l.Cost())
		remaining := (l.GreenWeight - consumedByLot[l.ID]).Max(0)
		greenValue = greenValue.Add(l.ValueOf(remaining))
	}
	revenue, collected, receivables := decimal.Zero, decimal.Zero, decimal.Zero
	for _, s := range sales {
		revenue = revenue.Add(s.TotalPrice)
		collected = collected.Add(s.AmountPaid)
		receivables = receivables.Add(s.Outstanding())
	}
	spent := decimal.Zero
	for _, e := range expenses {
		spent = spent.Add(e.Amount)
	}

	sum.PurchaseCost = RoundMoney(purchaseCost, d.places)
	sum.SalesRevenue = revenue
	sum.Expenses = spent
	sum.ExpectedCash = revenue.Sub(spent.Add(sum.PurchaseCost))
	sum.CashCollected = collected
	sum.Receivables = receivables

	// Valuation
	avg := decimal.Zero
	if sum.RoastedSold > 0 {
		avg = revenue.Div(decimal.NewFromFloat(sum.RoastedSold.Float64()))
	}
	roastedValue := avg.Mul(decimal.NewFromFloat(sum.RoastedAvailable.Float64()))

	sum.AvgPricePerGram = avg.Round(4)
	sum.GreenInventoryValue = RoundMoney(greenValue, d.places)
	sum.RoastedInventoryValue = RoundMoney(roastedValue, d.places)
	sum.CoffeeInventoryValue = sum.GreenInventoryValue.Add(sum.RoastedInventoryValue)
	sum.ProjectedFullSale = sum.RoastedInventoryValue
	sum.ProjectedHalfSale = RoundMoney(roastedValue.Div(decimal.NewFromInt(2)), d.places)

	// Recent
	sum.RecentLots = recent(lots, func(l CoffeeLot) (time.Time, int64) { return l.PurchaseDate, l.ID })
	sum.RecentExpenses = recent(expenses, func(e Expense) (time.Time, int64) { return e.ExpenseDate, e.ID })
	sum.RecentSales = recent(sales, func(s Sale) (time.Time, int64) { return s.SaleDate, s.ID })

	return sum
}

// recent returns up to RecentLimit records, newest first, ties broken by
// higher ID. The input is not modified.
func recent[T any](records []T, key func(T) (time.Time, int64)) []T {
	sorted := make([]T, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, idi := key(sorted[i])
		tj, idj := key(sorted[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})
	if len(sorted) > RecentLimit {
		sorted = sorted[:RecentLimit]
	}
	return sorted
}
