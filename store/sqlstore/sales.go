package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roastsync/roastery/roastery"
)

const saleColumns = "id, customer_id, sale_date, notes, total_price, total_quantity_g, is_paid, amount_paid, paid_at"

func scanSale(row scanner) (roastery.Sale, error) {
	var (
		s          roastery.Sale
		customerID sql.NullInt64
		date       string
		paidAt     sql.NullString
	)
	err := row.Scan(&s.ID, &customerID, &date, &s.Notes, &s.TotalPrice, &s.TotalQuantity,
		&s.IsPaid, &s.AmountPaid, &paidAt)
	if err != nil {
		return s, err
	}
	s.CustomerID = int64Ptr(customerID)
	if s.SaleDate, err = parseDate(date); err != nil {
		return s, err
	}
	if paidAt.Valid {
		t, err := parseDate(paidAt.String)
		if err != nil {
			return s, err
		}
		s.PaidAt = &t
	}
	return s, nil
}

const itemColumns = "id, sale_id, roast_batch_id, bag_size_g, bags, bag_price, notes"

func scanItem(row scanner) (roastery.SaleItem, error) {
	var it roastery.SaleItem
	err := row.Scan(&it.ID, &it.SaleID, &it.RoastBatchID, &it.BagSizeG, &it.Bags, &it.BagPrice, &it.Notes)
	return it, err
}

// ListSales returns every sale with its items, newest first. Items are read
// in a second query once the sale rows are closed, so a single-connection
// pool never waits on itself.
func (s *Store) ListSales(ctx context.Context) ([]roastery.Sale, error) {
	sales, err := queryList(ctx, s.q, "sales", scanSale,
		"SELECT "+saleColumns+" FROM sales ORDER BY sale_date DESC, id DESC")
	if err != nil {
		return nil, err
	}

	items, err := queryList(ctx, s.q, "sale items", scanItem,
		"SELECT "+itemColumns+" FROM sale_items ORDER BY sale_id, id")
	if err != nil {
		return nil, err
	}

	bySale := make(map[int64][]roastery.SaleItem)
	for _, it := range items {
		bySale[it.SaleID] = append(bySale[it.SaleID], it)
	}
	for i := range sales {
		sales[i].Items = bySale[sales[i].ID]
		if sales[i].Items == nil {
			sales[i].Items = []roastery.SaleItem{}
		}
	}
	return sales, nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (roastery.Sale, error) {
	var sale roastery.Sale
	err := s.get(ctx, "sale", id, "SELECT "+saleColumns+" FROM sales WHERE id = ?", func(row scanner) (err error) {
		sale, err = scanSale(row)
		return err
	})
	if err != nil {
		return roastery.Sale{}, err
	}

	sale.Items, err = queryList(ctx, s.q, "sale items", scanItem,
		"SELECT "+itemColumns+" FROM sale_items WHERE sale_id = ? ORDER BY id", id)
	if err != nil {
		return roastery.Sale{}, err
	}
	return sale, nil
}

// InsertSale writes the sale and its items. Callers wrap it in WithTx so
// both land together.
func (s *Store) InsertSale(ctx context.Context, sale *roastery.Sale) error {
	id, err := s.insert(ctx, "sale",
		`INSERT INTO sales
		 (customer_id, sale_date, notes, total_price, total_quantity_g, is_paid, amount_paid, paid_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(sale.CustomerID), formatDate(sale.SaleDate), sale.Notes, sale.TotalPrice,
		sale.TotalQuantity.Float64(), sale.IsPaid, sale.AmountPaid, paidAtValue(sale))
	if err != nil {
		return err
	}
	sale.ID = id

	return s.insertItems(ctx, sale)
}

func (s *Store) UpdateSale(ctx context.Context, sale *roastery.Sale, replaceItems bool) error {
	err := s.mutate(ctx, "update", "sale", sale.ID,
		`UPDATE sales SET customer_id = ?, sale_date = ?, notes = ?, total_price = ?,
		 total_quantity_g = ?, is_paid = ?, amount_paid = ?, paid_at = ?
		 WHERE id = ?`,
		nullInt64(sale.CustomerID), formatDate(sale.SaleDate), sale.Notes, sale.TotalPrice,
		sale.TotalQuantity.Float64(), sale.IsPaid, sale.AmountPaid, paidAtValue(sale), sale.ID)
	if err != nil {
		return err
	}
	if !replaceItems {
		return nil
	}

	if _, err := s.q.ExecContext(ctx, "DELETE FROM sale_items WHERE sale_id = ?", sale.ID); err != nil {
		return writeError("replace sale items", err)
	}
	return s.insertItems(ctx, sale)
}

func (s *Store) insertItems(ctx context.Context, sale *roastery.Sale) error {
	for i := range sale.Items {
		it := &sale.Items[i]
		it.SaleID = sale.ID
		id, err := s.insert(ctx, "sale item",
			`INSERT INTO sale_items (sale_id, roast_batch_id, bag_size_g, bags, bag_price, notes)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			it.SaleID, it.RoastBatchID, it.BagSizeG, it.Bags, it.BagPrice, it.Notes)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		it.ID = id
	}
	return nil
}

// DeleteSale removes the sale; its items go with it (ON DELETE CASCADE).
func (s *Store) DeleteSale(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", "sale", id, "DELETE FROM sales WHERE id = ?", id)
}

func paidAtValue(sale *roastery.Sale) sql.NullString {
	if sale.PaidAt == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*sale.PaidAt), Valid: true}
}
