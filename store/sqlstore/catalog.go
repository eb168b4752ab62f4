package sqlstore

import (
	"context"
	"database/sql"

	"github.com/roastsync/roastery/roastery"
)

// =============================================================================
// FARMS
// =============================================================================

const farmColumns = "id, name, location, notes"

func scanFarm(row scanner) (roastery.Farm, error) {
	var f roastery.Farm
	err := row.Scan(&f.ID, &f.Name, &f.Location, &f.Notes)
	return f, err
}

func (s *Store) ListFarms(ctx context.Context) ([]roastery.Farm, error) {
	return queryList(ctx, s.q, "farms", scanFarm, "SELECT "+farmColumns+" FROM farms ORDER BY id")
}

func (s *Store) GetFarm(ctx context.Context, id int64) (roastery.Farm, error) {
	var f roastery.Farm
	err := s.get(ctx, "farm", id, "SELECT "+farmColumns+" FROM farms WHERE id = ?", func(row scanner) (err error) {
		f, err = scanFarm(row)
		return err
	})
	return f, err
}

func (s *Store) InsertFarm(ctx context.Context, f *roastery.Farm) error {
	id, err := s.insert(ctx, "farm",
		"INSERT INTO farms (name, location, notes) VALUES (?, ?, ?)",
		f.Name, f.Location, f.Notes)
	if err != nil {
		return err
	}
	f.ID = id
	return nil
}

func (s *Store) UpdateFarm(ctx context.Context, f roastery.Farm) error {
	return s.mutate(ctx, "update", "farm", f.ID,
		"UPDATE farms SET name = ?, location = ?, notes = ? WHERE id = ?",
		f.Name, f.Location, f.Notes, f.ID)
}

func (s *Store) DeleteFarm(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", "farm", id, "DELETE FROM farms WHERE id = ?", id)
}

// =============================================================================
// VARIETIES
// =============================================================================

const varietyColumns = "id, name, description"

func scanVariety(row scanner) (roastery.Variety, error) {
	var v roastery.Variety
	err := row.Scan(&v.ID, &v.Name, &v.Description)
	return v, err
}

func (s *Store) ListVarieties(ctx context.Context) ([]roastery.Variety, error) {
	return queryList(ctx, s.q, "varieties", scanVariety, "SELECT "+varietyColumns+" FROM varieties ORDER BY id")
}

func (s *Store) GetVariety(ctx context.Context, id int64) (roastery.Variety, error) {
	var v roastery.Variety
	err := s.get(ctx, "variety", id, "SELECT "+varietyColumns+" FROM varieties WHERE id = ?", func(row scanner) (err error) {
		v, err = scanVariety(row)
		return err
	})
	return v, err
}

func (s *Store) InsertVariety(ctx context.Context, v *roastery.Variety) error {
	id, err := s.insert(ctx, "variety",
		"INSERT INTO varieties (name, description) VALUES (?, ?)",
		v.Name, v.Description)
	if err != nil {
		return err
	}
	v.ID = id
	return nil
}

func (s *Store) UpdateVariety(ctx context.Context, v roastery.Variety) error {
	return s.mutate(ctx, "update", "variety", v.ID,
		"UPDATE varieties SET name = ?, description = ? WHERE id = ?",
		v.Name, v.Description, v.ID)
}

func (s *Store) DeleteVariety(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", "variety", id, "DELETE FROM varieties WHERE id = ?", id)
}

// =============================================================================
// CUSTOMERS
// =============================================================================

const customerColumns = "id, name, contact_info"

func scanCustomer(row scanner) (roastery.Customer, error) {
	var c roastery.Customer
	err := row.Scan(&c.ID, &c.Name, &c.ContactInfo)
	return c, err
}

func (s *Store) ListCustomers(ctx context.Context) ([]roastery.Customer, error) {
	return queryList(ctx, s.q, "customers", scanCustomer, "SELECT "+customerColumns+" FROM customers ORDER BY id")
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (roastery.Customer, error) {
	var c roastery.Customer
	err := s.get(ctx, "customer", id, "SELECT "+customerColumns+" FROM customers WHERE id = ?", func(row scanner) (err error) {
		c, err = scanCustomer(row)
		return err
	})
	return c, err
}

func (s *Store) InsertCustomer(ctx context.Context, c *roastery.Customer) error {
	id, err := s.insert(ctx, "customer",
		"INSERT INTO customers (name, contact_info) VALUES (?, ?)",
		c.Name, c.ContactInfo)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c roastery.Customer) error {
	return s.mutate(ctx, "update", "customer", c.ID,
		"UPDATE customers SET name = ?, contact_info = ? WHERE id = ?",
		c.Name, c.ContactInfo, c.ID)
}

func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", "customer", id, "DELETE FROM customers WHERE id = ?", id)
}

// =============================================================================
// EXPENSES
// =============================================================================

const expenseColumns = "id, expense_date, category, amount, notes"

func scanExpense(row scanner) (roastery.Expense, error) {
	var (
		e    roastery.Expense
		date string
	)
	if err := row.Scan(&e.ID, &date, &e.Category, &e.Amount, &e.Notes); err != nil {
		return e, err
	}
	var err error
	e.ExpenseDate, err = parseDate(date)
	return e, err
}

func (s *Store) ListExpenses(ctx context.Context) ([]roastery.Expense, error) {
	return queryList(ctx, s.q, "expenses", scanExpense,
		"SELECT "+expenseColumns+" FROM expenses ORDER BY expense_date DESC, id DESC")
}

func (s *Store) GetExpense(ctx context.Context, id int64) (roastery.Expense, error) {
	var e roastery.Expense
	err := s.get(ctx, "expense", id, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", func(row scanner) (err error) {
		e, err = scanExpense(row)
		return err
	})
	return e, err
}

func (s *Store) InsertExpense(ctx context.Context, e *roastery.Expense) error {
	id, err := s.insert(ctx, "expense",
		"INSERT INTO expenses (expense_date, category, amount, notes) VALUES (?, ?, ?, ?)",
		formatDate(e.ExpenseDate), e.Category, e.Amount, e.Notes)
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (s *Store) UpdateExpense(ctx context.Context, e roastery.Expense) error {
	return s.mutate(ctx, "update", "expense", e.ID,
		"UPDATE expenses SET expense_date = ?, category = ?, amount = ?, notes = ? WHERE id = ?",
		formatDate(e.ExpenseDate), e.Category, e.Amount, e.Notes, e.ID)
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", "expense", id, "DELETE FROM expenses WHERE id = ?", id)
}

// =============================================================================
// PRICE REFERENCES
// =============================================================================

const priceColumns = "id, variety_id, process, bag_size_g, price, notes"

func scanPriceReference(row scanner) (roastery.PriceReference, error) {
	var (
		p         roastery.PriceReference
		varietyID sql.NullInt64
	)
	err := row.Scan(&p.ID, &varietyID, &p.Process, &p.BagSizeG, &p.Price, &p.Notes)
	p.VarietyID = int64Ptr(varietyID)
	return p, err
}

func (s *Store) ListPriceReferences(ctx context.Context) ([]roastery.PriceReference, error) {
	return queryList(ctx, s.q, "price references", scanPriceReference,
		"SELECT "+priceColumns+" FROM price_references ORDER BY bag_size_g, id")
}

func (s *Store) GetPriceReference(ctx context.Context, id int64) (roastery.PriceReference, error) {
	var p roastery.PriceReference
	err := s.get(ctx, "price reference", id, "SELECT "+priceColumns+" FROM price_references WHERE id = ?", func(row scanner) (err error) {
		p, err = scanPriceReference(row)
		return err
	})
	return p, err
}

func (s *Store) InsertPriceReference(ctx context.Context, p *roastery.PriceReference) error {
	id, err := s.insert(ctx, "price reference",
		"INSERT INTO price_references (variety_id, process, bag_size_g, price, notes) VALUES (?, ?, ?, ?, ?)",
		nullInt64(p.VarietyID), p.Process, p.BagSizeG, p.Price, p.Notes)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (s *Store) UpdatePriceReference(ctx context.Context, p roastery.PriceReference) error {
	return s.mutate(ctx, "update", "price reference", p.ID,
		"UPDATE price_references SET variety_id = ?, process = ?, bag_size_g = ?, price = ?, notes = ? WHERE id = ?",
		nullInt64(p.VarietyID), p.Process, p.BagSizeG, p.Price, p.Notes, p.ID)
}

func (s *Store) DeletePriceReference(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", "price reference", id, "DELETE FROM price_references WHERE id = ?", id)
}
