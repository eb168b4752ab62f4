// Package store provides an in-memory roastery.Store.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roastsync/roastery/roastery"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps every record in maps guarded by one mutex. References are
// checked the way the SQL schema's foreign keys would, and violations come
// back as roastery.ErrConflict.
type Memory struct {
	mu   *sync.RWMutex
	data *dataset
	inTx bool
}

var _ roastery.Store = (*Memory)(nil)

type table[T any] struct {
	rows map[int64]T
	next int64
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[int64]T)}
}

func (t *table[T]) nextID() int64 {
	t.next++
	return t.next
}

func (t table[T]) clone() table[T] {
	rows := make(map[int64]T, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	return table[T]{rows: rows, next: t.next}
}

func (t table[T]) values() []T {
	out := make([]T, 0, len(t.rows))
	for _, v := range t.rows {
		out = append(out, v)
	}
	return out
}

type dataset struct {
	farms       table[roastery.Farm]
	varieties   table[roastery.Variety]
	customers   table[roastery.Customer]
	expenses    table[roastery.Expense]
	prices      table[roastery.PriceReference]
	lots        table[roastery.CoffeeLot]
	roasts      table[roastery.RoastBatch]
	adjustments table[roastery.RoastAdjustment]
	sales       table[roastery.Sale]
	users       table[roastery.User]
	snapshots   table[roastery.DashboardSnapshot]
	nextItemID  int64
}

func (d *dataset) clone() dataset {
	return dataset{
		farms:       d.farms.clone(),
		varieties:   d.varieties.clone(),
		customers:   d.customers.clone(),
		expenses:    d.expenses.clone(),
		prices:      d.prices.clone(),
		lots:        d.lots.clone(),
		roasts:      d.roasts.clone(),
		adjustments: d.adjustments.clone(),
		sales:       d.sales.clone(),
		users:       d.users.clone(),
		snapshots:   d.snapshots.clone(),
		nextItemID:  d.nextItemID,
	}
}

func NewMemory() *Memory {
	return &Memory{
		mu: &sync.RWMutex{},
		data: &dataset{
			farms:       newTable[roastery.Farm](),
			varieties:   newTable[roastery.Variety](),
			customers:   newTable[roastery.Customer](),
			expenses:    newTable[roastery.Expense](),
			prices:      newTable[roastery.PriceReference](),
			lots:        newTable[roastery.CoffeeLot](),
			roasts:      newTable[roastery.RoastBatch](),
			adjustments: newTable[roastery.RoastAdjustment](),
			sales:       newTable[roastery.Sale](),
			users:       newTable[roastery.User](),
			snapshots:   newTable[roastery.DashboardSnapshot](),
		},
	}
}

// read and write take the mutex unless this view already runs inside WithTx,
// which holds it for the whole transaction.
func (m *Memory) read() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

func (m *Memory) write() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// WithTx executes fn within a transaction.
// Simulated with a snapshot of every table + restore on error.
func (m *Memory) WithTx(_ context.Context, fn func(roastery.Store) error) error {
	if m.inTx {
		return fn(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	view := &Memory{mu: m.mu, data: m.data, inTx: true}
	if err := fn(view); err != nil {
		*m.data = snapshot
		return err
	}
	return nil
}

// LockRoastBatches is a no-op: a transaction already holds the store mutex.
func (m *Memory) LockRoastBatches(context.Context, []int64) error { return nil }

func conflict(format string, args ...any) error {
	return &roastery.ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// sortNewestFirst orders by date desc, then ID desc.
func sortNewestFirst[T any](rows []T, key func(T) (time.Time, int64)) {
	sort.Slice(rows, func(i, j int) bool {
		ti, idi := key(rows[i])
		tj, idj := key(rows[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})
}

func sortByID[T any](rows []T, id func(T) int64) {
	sort.Slice(rows, func(i, j int) bool { return id(rows[i]) < id(rows[j]) })
}

// =============================================================================
// CATALOG
// =============================================================================

func (m *Memory) ListFarms(context.Context) ([]roastery.Farm, error) {
	defer m.read()()
	out := m.data.farms.values()
	sortByID(out, func(f roastery.Farm) int64 { return f.ID })
	return out, nil
}

func (m *Memory) GetFarm(_ context.Context, id int64) (roastery.Farm, error) {
	defer m.read()()
	f, ok := m.data.farms.rows[id]
	if !ok {
		return roastery.Farm{}, roastery.NotFound("farm", id)
	}
	return f, nil
}

func (m *Memory) InsertFarm(_ context.Context, f *roastery.Farm) error {
	defer m.write()()
	f.ID = m.data.farms.nextID()
	m.data.farms.rows[f.ID] = *f
	return nil
}

func (m *Memory) UpdateFarm(_ context.Context, f roastery.Farm) error {
	defer m.write()()
	if _, ok := m.data.farms.rows[f.ID]; !ok {
		return roastery.NotFound("farm", f.ID)
	}
	m.data.farms.rows[f.ID] = f
	return nil
}

func (m *Memory) DeleteFarm(_ context.Context, id int64) error {
	defer m.write()()
	if _, ok := m.data.farms.rows[id]; !ok {
		return roastery.NotFound("farm", id)
	}
	for _, l := range m.data.lots.rows {
		if l.FarmID == id {
			return conflict("farm %d still has coffee lots", id)
		}
	}
	delete(m.data.farms.rows, id)
	return nil
}

func (m *Memory) ListVarieties(context.Context) ([]roastery.Variety, error) {
	defer m.read()()
	out := m.data.varieties.values()
	sortByID(out, func(v roastery.Variety) int64 { return v.ID })
	return out, nil
}

func (m *Memory) GetVariety(_ context.Context, id int64) (roastery.Variety, error) {
	defer m.read()()
	v, ok := m.data.varieties.rows[id]
	if !ok {
		return roastery.Variety{}, roastery.NotFound("variety", id)
	}
	return v, nil
}

func (m *Memory) InsertVariety(_ context.Context, v *roastery.Variety) error {
	defer m.write()()
	v.ID = m.data.varieties.nextID()
	m.data.varieties.rows[v.ID] = *v
	return nil
}

func (m *Memory) UpdateVariety(_ context.Context, v roastery.Variety) error {
	defer m.write()()
	if _, ok := m.data.varieties.rows[v.ID]; !ok {
		return roastery.NotFound("variety", v.ID)
	}
	m.data.varieties.rows[v.ID] = v
	return nil
}

func (m *Memory) DeleteVariety(_ context.Context, id int64) error {
	defer m.write()()
	if _, ok := m.data.varieties.rows[id]; !ok {
		return roastery.NotFound("variety", id)
	}
	for _, l := range m.data.lots.rows {
		if l.VarietyID == id {
			return conflict("variety %d still has coffee lots", id)
		}
	}
	for _, p := range m.data.prices.rows {
		if p.VarietyID != nil && *p.VarietyID == id {
			return conflict("variety %d still has price references", id)
		}
	}
	delete(m.data.varieties.rows, id)
	return nil
}

func (m *Memory) ListCustomers(context.Context) ([]roastery.Customer, error) {
	defer m.read()()
	out := m.data.customers.values()
	sortByID(out, func(c roastery.Customer) int64 { return c.ID })
	return out, nil
}

func (m *Memory) GetCustomer(_ context.Context, id int64) (roastery.Customer, error) {
	defer m.read()()
	c, ok := m.data.customers.rows[id]
	if !ok {
		return roastery.Customer{}, roastery.NotFound("customer", id)
	}
	return c, nil
}

func (m *Memory) InsertCustomer(_ context.Context, c *roastery.Customer) error {
	defer m.write()()
	c.ID = m.data.customers.nextID()
	m.data.customers.rows[c.ID] = *c
	return nil
}

func (m *Memory) UpdateCustomer(_ context.Context, c roastery.Customer) error {
	defer m.write()()
	if _, ok := m.data.customers.rows[c.ID]; !ok {
		return roastery.NotFound("customer", c.ID)
	}
	m.data.customers.rows[c.ID] = c
	return nil
}

func (m *Memory) DeleteCustomer(_ context.Context, id int64) error {
	defer m.write()()
	if _, ok := m.data.customers.rows[id]; !ok {
		return roastery.NotFound("customer", id)
	}
	for _, s := range m.data.sales.rows {
		if s.CustomerID != nil && *s.CustomerID == id {
			return conflict("customer %d still has sales", id)
		}
	}
	delete(m.data.customers.rows, id)
	return nil
}

func (m *Memory) ListExpenses(context.Context) ([]roastery.Expense, error) {
	defer m.read()()
	out := m.data.expenses.values()
	sortNewestFirst(out, func(e roastery.Expense) (time.Time, int64) { return e.ExpenseDate, e.ID })
	return out, nil
}

func (m *Memory) GetExpense(_ context.Context, id int64) (roastery.Expense, error) {
	defer m.read()()
	e, ok := m.data.expenses.rows[id]
	if !ok {
		return roastery.Expense{}, roastery.NotFound("expense", id)
	}
	return e, nil
}

func (m *Memory) InsertExpense(_ context.Context, e *roastery.Expense) error {
	defer m.write()()
	e.ID = m.data.expenses.nextID()
	m.data.expenses.rows[e.ID] = *e
	return nil
}

func (m *Memory) UpdateExpense(_ context.Context, e roastery.Expense) error {
	defer m.write()()
	if _, ok := m.data.expenses.rows[e.ID]; !ok {
		return roastery.NotFound("expense", e.ID)
	}
	m.data.expenses.rows[e.ID] = e
	return nil
}

func (m *Memory) DeleteExpense(_ context.Context, id int64) error {
	defer m.write()()
	if _, ok := m.data.expenses.rows[id]; !ok {
		return roastery.NotFound("expense", id)
	}
	delete(m.data.expenses.rows, id)
	return nil
}

func (m *Memory) ListPriceReferences(context.Context) ([]roastery.PriceReference, error) {
	defer m.read()()
	out := m.data.prices.values()
	sort.Slice(out, func(i, j int) bool {
		if out[i].BagSizeG != out[j].BagSizeG {
			return out[i].BagSizeG < out[j].BagSizeG
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetPriceReference(_ context.Context, id int64) (roastery.PriceReference, error) {
	defer m.read()()
	p, ok := m.data.prices.rows[id]
	if !ok {
		return roastery.PriceReference{}, roastery.NotFound("price reference", id)
	}
	return p, nil
}

func (m *Memory) InsertPriceReference(_ context.Context, p *roastery.PriceReference) error {
	defer m.write()()
	if err := m.checkOptionalVariety(p.VarietyID); err != nil {
		return err
	}
	p.ID = m.data.prices.nextID()
	m.data.prices.rows[p.ID] = *p
	return nil
}

func (m *Memory) UpdatePriceReference(_ context.Context, p roastery.PriceReference) error {
	defer m.write()()
	if _, ok := m.data.prices.rows[p.ID]; !ok {
		return roastery.NotFound("price reference", p.ID)
	}
	if err := m.checkOptionalVariety(p.VarietyID); err != nil {
		return err
	}
	m.data.prices.rows[p.ID] = p
	return nil
}

func (m *Memory) DeletePriceReference(_ context.Context, id int64) error {
	defer m.write()()
	if _, ok := m.data.prices.rows[id]; !ok {
		return roastery.NotFound("price reference", id)
	}
	delete(m.data.prices.rows, id)
	return nil
}

func (m *Memory) checkOptionalVariety(id *int64) error {
	if id == nil {
		return nil
	}
	if _, ok := m.data.varieties.rows[*id]; !ok {
		return conflict("variety %d does not exist", *id)
	}
	return nil
}

// =============================================================================
// PRODUCTION
// =============================================================================

func (m *Memory) ListLots(context.Context) ([]roastery.CoffeeLot, error) {
	defer m.read()()
	out := m.data.lots.values()
	sortNewestFirst(out, func(l roastery.CoffeeLot) (time.Time, int64) { return l.PurchaseDate, l.ID })
	return out, nil
}

func (m *Memory) GetLot(_ context.Context, id int64) (roastery.CoffeeLot, error) {
	defer m.read()()
	l, ok := m.data.lots.rows[id]
	if !ok {
		return roastery.CoffeeLot{}, roastery.NotFound("coffee lot", id)
	}
	return l, nil
}

func (m *Memory) InsertLot(_ context.Context, l *roastery.CoffeeLot) error {
	defer m.write()()
	if err := m.checkLotRefs(*l); err != nil {
		return err
	}
	l.ID = m.data.lots.nextID()
	m.data.lots.rows[l.ID] = *l
	return nil
}

func (m *Memory) UpdateLot(_ context.Context, l roastery.CoffeeLot) error {
	defer m.write()()
	if _, ok := m.data.lots.rows[l.ID]; !ok {
		return roastery.NotFound("coffee lot", l.ID)
	}
	if err := m.checkLotRefs(l); err != nil {
		return err
	}
	m.data.lots.rows[l.ID] = l
	return nil
}

func (m *Memory) DeleteLot(_ context.Context, id int64) error {
	defer m.write()()
	if _, ok := m.data.lots.rows[id]; !ok {
		return roastery.NotFound("coffee lot", id)
	}
	for _, r := range m.data.roasts.rows {
		if r.LotID == id {
			return conflict("coffee lot %d still has roast batches", id)
		}
	}
	delete(m.data.lots.rows, id)
	return nil
}

func (m *Memory) checkLotRefs(l roastery.CoffeeLot) error {
	if _, ok := m.data.farms.rows[l.FarmID]; !ok {
		return conflict("farm %d does not exist", l.FarmID)
	}
	if _, ok := m.data.varieties.rows[l.VarietyID]; !ok {
		return conflict("variety %d does not exist", l.VarietyID)
	}
	return nil
}

func (m *Memory) ListRoasts(context.Context) ([]roastery.RoastBatch, error) {
	defer m.read()()
	out := m.data.roasts.values()
	sortNewestFirst(out, func(r roastery.RoastBatch) (time.Time, int64) { return r.RoastDate, r.ID })
	return out, nil
}

func (m *Memory) GetRoastBatch(_ context.Context, id int64) (roastery.RoastBatch, error) {
	defer m.read()()
	r, ok := m.data.roasts.rows[id]
	if !ok {
		return roastery.RoastBatch{}, roastery.NotFound("roast batch", id)
	}
	return r, nil
}

func (m *Memory) InsertRoast(_ context.Context, r *roastery.RoastBatch) error {
	defer m.write()()
	if _, ok := m.data.lots.rows[r.LotID]; !ok {
		return conflict("coffee lot %d does not exist", r.LotID)
	}
	r.ID = m.data.roasts.nextID()
	m.data.roasts.rows[r.ID] = *r
	return nil
}

func (m *Memory) UpdateRoast(_ context.Context, r roastery.RoastBatch) error {
	defer m.write()()
	if _, ok := m.data.roasts.rows[r.ID]; !ok {
		return roastery.NotFound("roast batch", r.ID)
	}
	if _, ok := m.data.lots.rows[r.LotID]; !ok {
		return conflict("coffee lot %d does not exist", r.LotID)
	}
	m.data.roasts.rows[r.ID] = r
	return nil
}

func (m *Memory) DeleteRoast(_ context.Context, id int64) error {
	defer m.write()()
	if _, ok := m.data.roasts.rows[id]; !ok {
		return roastery.NotFound("roast batch", id)
	}
	for _, s := range m.data.sales.rows {
		for _, item := range s.Items {
			if item.RoastBatchID == id {
				return conflict("roast batch %d has been sold from", id)
			}
		}
	}
	for _, a := range m.data.adjustments.rows {
		if a.RoastBatchID == id {
			return conflict("roast batch %d still has adjustments", id)
		}
	}
	delete(m.data.roasts.rows, id)
	return nil
}

func (m *Memory) ListAdjustments(_ context.Context, roastBatchID int64) ([]roastery.RoastAdjustment, error) {
	defer m.read()()
	out := make([]roastery.RoastAdjustment, 0)
	for _, a := range m.data.adjustments.rows {
		if roastBatchID == 0 || a.RoastBatchID == roastBatchID {
			out = append(out, a)
		}
	}
	sortNewestFirst(out, func(a roastery.RoastAdjustment) (time.Time, int64) { return a.AdjustmentDate, a.ID })
	return out, nil
}

func (m *Memory) GetAdjustment(_ context.Context, id int64) (roastery.RoastAdjustment, error) {
	defer m.read()()
	a, ok := m.data.adjustments.rows[id]
	if !ok {
		return roastery.RoastAdjustment{}, roastery.NotFound("adjustment", id)
	}
	return a, nil
}

func (m *Memory) InsertAdjustment(_ context.Context, a *roastery.RoastAdjustment) error {
	defer m.write()()
	if _, ok := m.data.roasts.rows[a.RoastBatchID]; !ok {
		return conflict("roast batch %d does not exist", a.RoastBatchID)
	}
	a.ID = m.data.adjustments.nextID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.data.adjustments.rows[a.ID] = *a
	return nil
}

func (m *Memory) UpdateAdjustment(_ context.Context, a roastery.RoastAdjustment) error {
	defer m.write()()
	old, ok := m.data.adjustments.rows[a.ID]
	if !ok {
		return roastery.NotFound("adjustment", a.ID)
	}
	if _, ok := m.data.roasts.rows[a.RoastBatchID]; !ok {
		return conflict("roast batch %d does not exist", a.RoastBatchID)
	}
	a.CreatedAt = old.CreatedAt
	m.data.adjustments.rows[a.ID] = a
	return nil
}

func (m *Memory) DeleteAdjustment(_ context.Context, id int64) error {
	defer m.write()()
	if _, ok := m.data.adjustments.rows[id]; !ok {
		return roastery.NotFound("adjustment", id)
	}
	delete(m.data.adjustments.rows, id)
	return nil
}

// =============================================================================
// INVENTORY
// =============================================================================

func (m *Memory) SoldGrams(_ context.Context, roastBatchID, excludeSaleID int64) (roastery.Grams, error) {
	defer m.read()()
	return m.soldLocked(roastBatchID, excludeSaleID), nil
}

func (m *Memory) soldLocked(roastBatchID, excludeSaleID int64) roastery.Grams {
	var sold roastery.Grams
	for id, s := range m.data.sales.rows {
		if excludeSaleID != 0 && id == excludeSaleID {
			continue
		}
		for _, item := range s.Items {
			if item.RoastBatchID == roastBatchID {
				sold += item.Grams()
			}
		}
	}
	return sold
}

func (m *Memory) AdjustedGrams(_ context.Context, roastBatchID int64) (roastery.Grams, error) {
	defer m.read()()
	return m.adjustedLocked(roastBatchID), nil
}

func (m *Memory) adjustedLocked(roastBatchID int64) roastery.Grams {
	var adjusted roastery.Grams
	for _, a := range m.data.adjustments.rows {
		if a.RoastBatchID == roastBatchID {
			adjusted += a.Adjustment
		}
	}
	return adjusted
}

func (m *Memory) ListRoastStock(context.Context) ([]roastery.RoastStock, error) {
	defer m.read()()

	roasts := m.data.roasts.values()
	sortNewestFirst(roasts, func(r roastery.RoastBatch) (time.Time, int64) { return r.RoastDate, r.ID })

	out := make([]roastery.RoastStock, 0, len(roasts))
	for _, r := range roasts {
		lot := m.data.lots.rows[r.LotID]
		out = append(out, roastery.RoastStock{
			Roast:       r,
			LotProcess:  lot.Process,
			FarmName:    m.data.farms.rows[lot.FarmID].Name,
			VarietyName: m.data.varieties.rows[lot.VarietyID].Name,
			Sold:        m.soldLocked(r.ID, 0),
			Adjusted:    m.adjustedLocked(r.ID),
		})
	}
	return out, nil
}

// =============================================================================
// SALES
// =============================================================================

func (m *Memory) ListSales(context.Context) ([]roastery.Sale, error) {
	defer m.read()()
	out := make([]roastery.Sale, 0, len(m.data.sales.rows))
	for _, s := range m.data.sales.rows {
		out = append(out, cloneSale(s))
	}
	sortNewestFirst(out, func(s roastery.Sale) (time.Time, int64) { return s.SaleDate, s.ID })
	return out, nil
}

func (m *Memory) GetSale(_ context.Context, id int64) (roastery.Sale, error) {
	defer m.read()()
	s, ok := m.data.sales.rows[id]
	if !ok {
		return roastery.Sale{}, roastery.NotFound("sale", id)
	}
	return cloneSale(s), nil
}

func (m *Memory) InsertSale(_ context.Context, sale *roastery.Sale) error {
	defer m.write()()
	if err := m.checkSaleRefs(*sale); err != nil {
		return err
	}
	sale.ID = m.data.sales.nextID()
	m.assignItemIDs(sale)
	m.data.sales.rows[sale.ID] = cloneSale(*sale)
	return nil
}

func (m *Memory) UpdateSale(_ context.Context, sale *roastery.Sale, replaceItems bool) error {
	defer m.write()()
	old, ok := m.data.sales.rows[sale.ID]
	if !ok {
		return roastery.NotFound("sale", sale.ID)
	}
	if err := m.checkSaleRefs(*sale); err != nil {
		return err
	}
	if replaceItems {
		m.assignItemIDs(sale)
	} else {
		sale.Items = cloneSale(old).Items
	}
	m.data.sales.rows[sale.ID] = cloneSale(*sale)
	return nil
}

func (m *Memory) DeleteSale(_ context.Context, id int64) error {
	defer m.write()()
	if _, ok := m.data.sales.rows[id]; !ok {
		return roastery.NotFound("sale", id)
	}
	delete(m.data.sales.rows, id)
	return nil
}

func (m *Memory) checkSaleRefs(s roastery.Sale) error {
	if s.CustomerID != nil {
		if _, ok := m.data.customers.rows[*s.CustomerID]; !ok {
			return conflict("customer %d does not exist", *s.CustomerID)
		}
	}
	for _, item := range s.Items {
		if _, ok := m.data.roasts.rows[item.RoastBatchID]; !ok {
			return conflict("roast batch %d does not exist", item.RoastBatchID)
		}
	}
	return nil
}

func (m *Memory) assignItemIDs(sale *roastery.Sale) {
	for i := range sale.Items {
		m.data.nextItemID++
		sale.Items[i].ID = m.data.nextItemID
		sale.Items[i].SaleID = sale.ID
	}
}

func cloneSale(s roastery.Sale) roastery.Sale {
	items := make([]roastery.SaleItem, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	return s
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) ListUsers(context.Context) ([]roastery.User, error) {
	defer m.read()()
	out := m.data.users.values()
	sortByID(out, func(u roastery.User) int64 { return u.ID })
	return out, nil
}

func (m *Memory) GetUser(_ context.Context, id int64) (roastery.User, error) {
	defer m.read()()
	u, ok := m.data.users.rows[id]
	if !ok {
		return roastery.User{}, roastery.NotFound("user", id)
	}
	return u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (roastery.User, error) {
	defer m.read()()
	for _, u := range m.data.users.rows {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return roastery.User{}, &roastery.NotFoundError{Entity: "user"}
}

func (m *Memory) InsertUser(_ context.Context, u *roastery.User) error {
	defer m.write()()
	if err := m.checkEmailFree(u.Email, 0); err != nil {
		return err
	}
	u.ID = m.data.users.nextID()
	m.data.users.rows[u.ID] = *u
	return nil
}

func (m *Memory) UpdateUser(_ context.Context, u roastery.User) error {
	defer m.write()()
	if _, ok := m.data.users.rows[u.ID]; !ok {
		return roastery.NotFound("user", u.ID)
	}
	if err := m.checkEmailFree(u.Email, u.ID); err != nil {
		return err
	}
	m.data.users.rows[u.ID] = u
	return nil
}

func (m *Memory) DeleteUser(_ context.Context, id int64) error {
	defer m.write()()
	if _, ok := m.data.users.rows[id]; !ok {
		return roastery.NotFound("user", id)
	}
	delete(m.data.users.rows, id)
	return nil
}

func (m *Memory) checkEmailFree(email string, self int64) error {
	for id, u := range m.data.users.rows {
		if id != self && strings.EqualFold(u.Email, email) {
			return conflict("email %s is already registered", email)
		}
	}
	return nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

func (m *Memory) SaveSnapshot(_ context.Context, snap *roastery.DashboardSnapshot) error {
	defer m.write()()
	snap.ID = m.data.snapshots.nextID()
	m.data.snapshots.rows[snap.ID] = *snap
	return nil
}

func (m *Memory) ListSnapshots(_ context.Context, limit int) ([]roastery.DashboardSnapshot, error) {
	defer m.read()()
	out := m.data.snapshots.values()
	sortNewestFirst(out, func(s roastery.DashboardSnapshot) (time.Time, int64) { return s.TakenAt, s.ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
