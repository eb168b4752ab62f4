/*
scenarios.go - Demo data loaders for trials and demonstrations

PURPOSE:
  Populates an empty database with realistic roastery records so the
  dashboard, inventory listing and debts views have something to show.

AVAILABLE SCENARIOS:
  first-harvest:  two farms, three lots, roasts, paid/partial/pending sales,
                  expenses and list prices
  stock-recount:  one roast batch with a sale and a negative recount that
                  leaves the listing overdrawn

HOW SCENARIOS WORK:
  1. Refuse unless the database has no lots, roasts or sales
  2. Create catalog records through the store
  3. Create sales through SaleService, so stock checks and payment rules
     apply exactly as for API clients

USAGE VIA API (superuser):
  GET  /api/v1/scenarios
  POST /api/v1/scenarios/load  {"scenario_id": "first-harvest"}

SEE ALSO:
  - cmd/server/main.go: -seed flag
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/roastsync/roastery/roastery"
)

// ScenarioDTO describes a loadable demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "first-harvest",
		Name:        "First Harvest",
		Description: "Two farms, three lots, roasts and a mix of paid, partial and pending sales",
	},
	{
		ID:          "stock-recount",
		Name:        "Stock Recount",
		Description: "A negative recount leaves one roast batch overdrawn in the listing",
	},
}

// ListScenarios returns the available demo data sets.
// GET /api/v1/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a demo data set into an empty database.
// POST /api/v1/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, "invalid scenario", err)
		return
	}
	if err := h.LoadDemo(r.Context(), req.ScenarioID); err != nil {
		h.handleError(w, r, "failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario_id": req.ScenarioID})
}

// LoadDemo loads the named scenario. The database must not hold any lots,
// roasts or sales yet.
func (h *Handler) LoadDemo(ctx context.Context, id string) error {
	var load func(context.Context) error
	switch id {
	case "first-harvest":
		load = h.loadFirstHarvest
	case "stock-recount":
		load = h.loadStockRecount
	default:
		return roastery.Invalid("scenario_id", fmt.Sprintf("unknown scenario %q", id))
	}

	if err := h.ensureEmpty(ctx); err != nil {
		return err
	}
	if err := load(ctx); err != nil {
		return fmt.Errorf("load scenario %s: %w", id, err)
	}
	h.logger.Info("demo scenario loaded", zap.String("scenario_id", id))
	return nil
}

func (h *Handler) ensureEmpty(ctx context.Context) error {
	lots, err := h.Store.ListLots(ctx)
	if err != nil {
		return err
	}
	roasts, err := h.Store.ListRoasts(ctx)
	if err != nil {
		return err
	}
	sales, err := h.Store.ListSales(ctx)
	if err != nil {
		return err
	}
	if len(lots)+len(roasts)+len(sales) > 0 {
		return &roastery.ConflictError{Reason: "demo data can only be loaded into an empty database"}
	}
	return nil
}

// =============================================================================
// LOADERS
// =============================================================================

// seeder keeps the first error so loaders read top to bottom.
type seeder struct {
	h   *Handler
	ctx context.Context
	err error
}

func (s *seeder) farm(name, location string) int64 {
	f := roastery.Farm{Name: name, Location: location}
	if s.err == nil {
		s.err = s.h.Store.InsertFarm(s.ctx, &f)
	}
	return f.ID
}

func (s *seeder) variety(name, description string) int64 {
	v := roastery.Variety{Name: name, Description: description}
	if s.err == nil {
		s.err = s.h.Store.InsertVariety(s.ctx, &v)
	}
	return v.ID
}

func (s *seeder) customer(name, contact string) int64 {
	c := roastery.Customer{Name: name, ContactInfo: contact}
	if s.err == nil {
		s.err = s.h.Store.InsertCustomer(s.ctx, &c)
	}
	return c.ID
}

func (s *seeder) lot(farmID, varietyID int64, process string, date time.Time, grams, perKg int64) int64 {
	l := roastery.CoffeeLot{
		FarmID: farmID, VarietyID: varietyID, Process: process, PurchaseDate: date,
		GreenWeight: roastery.Grams(grams), PricePerKg: decimal.NewFromInt(perKg),
	}
	if s.err == nil {
		s.err = s.h.Store.InsertLot(s.ctx, &l)
	}
	return l.ID
}

func (s *seeder) roast(lotID int64, date time.Time, green, roasted float64, level string) int64 {
	rb := roastery.RoastBatch{
		LotID: lotID, RoastDate: date, GreenInput: roastery.Grams(green),
		RoastedOutput: roastery.Grams(roasted), RoastLevel: level,
	}
	if s.err == nil {
		if s.err = roastery.PrepareRoast(&rb); s.err == nil {
			s.err = s.h.Store.InsertRoast(s.ctx, &rb)
		}
	}
	return rb.ID
}

func (s *seeder) expense(date time.Time, category string, amount int64) {
	if s.err != nil {
		return
	}
	e := roastery.Expense{ExpenseDate: date, Category: category, Amount: decimal.NewFromInt(amount)}
	s.err = s.h.Store.InsertExpense(s.ctx, &e)
}

func (s *seeder) price(varietyID *int64, process string, bagSize int, price int64) {
	if s.err != nil {
		return
	}
	p := roastery.PriceReference{VarietyID: varietyID, Process: process, BagSizeG: bagSize, Price: decimal.NewFromInt(price)}
	s.err = s.h.Store.InsertPriceReference(s.ctx, &p)
}

func (s *seeder) adjust(roastID int64, grams float64, reason string, date time.Time) {
	if s.err != nil {
		return
	}
	a := roastery.RoastAdjustment{
		RoastBatchID: roastID, Adjustment: roastery.Grams(grams), Reason: reason,
		AdjustmentDate: date, CreatedAt: date,
	}
	s.err = s.h.Store.InsertAdjustment(s.ctx, &a)
}

func (s *seeder) sale(in roastery.SaleInput) {
	if s.err != nil {
		return
	}
	_, s.err = s.h.sales.Create(s.ctx, in)
}

func bag(roastID int64, size, bags int, price int64) roastery.SaleItem {
	return roastery.SaleItem{RoastBatchID: roastID, BagSizeG: size, Bags: bags, BagPrice: decimal.NewFromInt(price)}
}

func onDay(month time.Month, day int) time.Time {
	return time.Date(time.Now().Year(), month, day, 0, 0, 0, 0, time.UTC)
}

func (h *Handler) loadFirstHarvest(ctx context.Context) error {
	s := &seeder{h: h, ctx: ctx}

	esperanza := s.farm("La Esperanza", "Huila")
	cumbre := s.farm("La Cumbre", "Nariño")
	caturra := s.variety("Caturra", "Dwarf Bourbon mutation")
	geisha := s.variety("Geisha", "Floral, tea-like")
	cafeCentral := s.customer("Café Central", "pedidos@cafecentral.test")
	mercado := s.customer("Mercado Orgánico", "+57 300 000 0000")

	washed := s.lot(esperanza, caturra, "washed", onDay(1, 10), 20000, 30000)
	honey := s.lot(cumbre, geisha, "honey", onDay(1, 20), 8000, 65000)
	natural := s.lot(esperanza, caturra, "natural", onDay(2, 2), 10000, 32000)

	r1 := s.roast(washed, onDay(1, 15), 6000, 5000, "medium")
	r2 := s.roast(honey, onDay(1, 25), 3000, 2500, "light")
	r3 := s.roast(natural, onDay(2, 5), 4000, 3300, "medium-dark")

	s.price(nil, "washed", 250, 22000)
	s.price(nil, "washed", 500, 42000)
	s.price(&geisha, "honey", 250, 45000)

	s.expense(onDay(1, 5), "packaging", 180000)
	s.expense(onDay(1, 31), "gas", 95000)
	s.expense(onDay(2, 3), "transport", 60000)

	s.sale(roastery.SaleInput{
		CustomerID: &cafeCentral, SaleDate: onDay(1, 18), IsPaid: true,
		Items: []roastery.SaleItem{bag(r1, 500, 4, 42000), bag(r1, 250, 4, 22000)},
	})
	partial := decimal.NewFromInt(50000)
	s.sale(roastery.SaleInput{
		CustomerID: &mercado, SaleDate: onDay(1, 28), AmountPaid: &partial,
		Items: []roastery.SaleItem{bag(r2, 250, 4, 45000)},
	})
	s.sale(roastery.SaleInput{
		SaleDate: onDay(2, 8), Notes: "walk-in",
		Items: []roastery.SaleItem{bag(r3, 250, 2, 24000), bag(r1, 250, 1, 22000)},
	})

	return s.err
}

func (h *Handler) loadStockRecount(ctx context.Context) error {
	s := &seeder{h: h, ctx: ctx}

	farm := s.farm("El Mirador", "Cauca")
	variety := s.variety("Castillo", "Rust resistant")
	cust := s.customer("Tienda de la Esquina", "")

	lot := s.lot(farm, variety, "washed", onDay(3, 1), 5000, 28000)
	r := s.roast(lot, onDay(3, 3), 1200, 1000, "medium")

	s.sale(roastery.SaleInput{
		CustomerID: &cust, SaleDate: onDay(3, 4), IsPaid: true,
		Items: []roastery.SaleItem{bag(r, 250, 3, 21000)},
	})
	// The recount found less than the books say, and more than was left.
	s.adjust(r, -300, "recount: bags missing", onDay(3, 6))

	return s.err
}
