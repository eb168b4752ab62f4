package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roastsync/roastery/roastery"
)

// =============================================================================
// COFFEE LOTS
// =============================================================================

const lotColumns = "id, farm_id, variety_id, process, purchase_date, green_weight_g, price_per_kg, moisture_level, notes"

func scanLot(row scanner) (roastery.CoffeeLot, error) {
	var (
		l        roastery.CoffeeLot
		date     string
		moisture sql.NullFloat64
	)
	err := row.Scan(&l.ID, &l.FarmID, &l.VarietyID, &l.Process, &date,
		&l.GreenWeight, &l.PricePerKg, &moisture, &l.Notes)
	if err != nil {
		return l, err
	}
	l.MoistureLevel = floatPtr(moisture)
	l.PurchaseDate, err = parseDate(date)
	return l, err
}

func (s *Store) ListLots(ctx context.Context) ([]roastery.CoffeeLot, error) {
	return queryList(ctx, s.q, "coffee lots", scanLot,
		"SELECT "+lotColumns+" FROM coffee_lots ORDER BY purchase_date DESC, id DESC")
}

func (s *Store) GetLot(ctx context.Context, id int64) (roastery.CoffeeLot, error) {
	var l roastery.CoffeeLot
	err := s.get(ctx, "coffee lot", id, "SELECT "+lotColumns+" FROM coffee_lots WHERE id = ?", func(row scanner) (err error) {
		l, err = scanLot(row)
		return err
	})
	return l, err
}

func (s *Store) InsertLot(ctx context.Context, l *roastery.CoffeeLot) error {
	id, err := s.insert(ctx, "coffee lot",
		`INSERT INTO coffee_lots
		 (farm_id, variety_id, process, purchase_date, green_weight_g, price_per_kg, moisture_level, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.FarmID, l.VarietyID, l.Process, formatDate(l.PurchaseDate),
		l.GreenWeight.Float64(), l.PricePerKg, nullFloat(l.MoistureLevel), l.Notes)
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

func (s *Store) UpdateLot(ctx context.Context, l roastery.CoffeeLot) error {
	return s.mutate(ctx, "update", "coffee lot", l.ID,
		`UPDATE coffee_lots SET farm_id = ?, variety_id = ?, process = ?, purchase_date = ?,
		 green_weight_g = ?, price_per_kg = ?, moisture_level = ?, notes = ?
		 WHERE id = ?`,
		l.FarmID, l.VarietyID, l.Process, formatDate(l.PurchaseDate),
		l.GreenWeight.Float64(), l.PricePerKg, nullFloat(l.MoistureLevel), l.Notes, l.ID)
}

func (s *Store) DeleteLot(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", "coffee lot", id, "DELETE FROM coffee_lots WHERE id = ?", id)
}

// =============================================================================
// ROAST BATCHES
// =============================================================================

const roastColumns = "id, lot_id, roast_date, green_input_g, roasted_output_g, roast_level, notes, shrinkage_pct"

func scanRoast(row scanner) (roastery.RoastBatch, error) {
	var (
		r    roastery.RoastBatch
		date string
	)
	err := row.Scan(&r.ID, &r.LotID, &date, &r.GreenInput, &r.RoastedOutput,
		&r.RoastLevel, &r.Notes, &r.ShrinkagePct)
	if err != nil {
		return r, err
	}
	r.RoastDate, err = parseDate(date)
	return r, err
}

func (s *Store) ListRoasts(ctx context.Context) ([]roastery.RoastBatch, error) {
	return queryList(ctx, s.q, "roast batches", scanRoast,
		"SELECT "+roastColumns+" FROM roast_batches ORDER BY roast_date DESC, id DESC")
}

func (s *Store) GetRoastBatch(ctx context.Context, id int64) (roastery.RoastBatch, error) {
	var r roastery.RoastBatch
	err := s.get(ctx, "roast batch", id, "SELECT "+roastColumns+" FROM roast_batches WHERE id = ?", func(row scanner) (err error) {
		r, err = scanRoast(row)
		return err
	})
	return r, err
}

func (s *Store) InsertRoast(ctx context.Context, r *roastery.RoastBatch) error {
	id, err := s.insert(ctx, "roast batch",
		`INSERT INTO roast_batches
		 (lot_id, roast_date, green_input_g, roasted_output_g, roast_level, notes, shrinkage_pct)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.LotID, formatDate(r.RoastDate), r.GreenInput.Float64(), r.RoastedOutput.Float64(),
		r.RoastLevel, r.Notes, r.ShrinkagePct)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

func (s *Store) UpdateRoast(ctx context.Context, r roastery.RoastBatch) error {
	return s.mutate(ctx, "update", "roast batch", r.ID,
		`UPDATE roast_batches SET lot_id = ?, roast_date = ?, green_input_g = ?, roasted_output_g = ?,
		 roast_level = ?, notes = ?, shrinkage_pct = ?
		 WHERE id = ?`,
		r.LotID, formatDate(r.RoastDate), r.GreenInput.Float64(), r.RoastedOutput.Float64(),
		r.RoastLevel, r.Notes, r.ShrinkagePct, r.ID)
}

func (s *Store) DeleteRoast(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", "roast batch", id, "DELETE FROM roast_batches WHERE id = ?", id)
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

const adjustmentColumns = "id, roast_batch_id, adjustment_g, reason, adjustment_date, created_at"

func scanAdjustment(row scanner) (roastery.RoastAdjustment, error) {
	var (
		a                 roastery.RoastAdjustment
		date, createdAtTS string
	)
	err := row.Scan(&a.ID, &a.RoastBatchID, &a.Adjustment, &a.Reason, &date, &createdAtTS)
	if err != nil {
		return a, err
	}
	if a.AdjustmentDate, err = parseDate(date); err != nil {
		return a, err
	}
	a.CreatedAt, err = parseTime(createdAtTS)
	return a, err
}

func (s *Store) ListAdjustments(ctx context.Context, roastBatchID int64) ([]roastery.RoastAdjustment, error) {
	query := "SELECT " + adjustmentColumns + " FROM roast_adjustments"
	var args []any
	if roastBatchID != 0 {
		query += " WHERE roast_batch_id = ?"
		args = append(args, roastBatchID)
	}
	query += " ORDER BY adjustment_date DESC, id DESC"
	return queryList(ctx, s.q, "adjustments", scanAdjustment, query, args...)
}

func (s *Store) GetAdjustment(ctx context.Context, id int64) (roastery.RoastAdjustment, error) {
	var a roastery.RoastAdjustment
	err := s.get(ctx, "adjustment", id, "SELECT "+adjustmentColumns+" FROM roast_adjustments WHERE id = ?", func(row scanner) (err error) {
		a, err = scanAdjustment(row)
		return err
	})
	return a, err
}

func (s *Store) InsertAdjustment(ctx context.Context, a *roastery.RoastAdjustment) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	id, err := s.insert(ctx, "adjustment",
		`INSERT INTO roast_adjustments (roast_batch_id, adjustment_g, reason, adjustment_date, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.RoastBatchID, a.Adjustment.Float64(), a.Reason, formatDate(a.AdjustmentDate), formatTime(a.CreatedAt))
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// UpdateAdjustment leaves created_at as first written.
func (s *Store) UpdateAdjustment(ctx context.Context, a roastery.RoastAdjustment) error {
	return s.mutate(ctx, "update", "adjustment", a.ID,
		`UPDATE roast_adjustments SET roast_batch_id = ?, adjustment_g = ?, reason = ?, adjustment_date = ?
		 WHERE id = ?`,
		a.RoastBatchID, a.Adjustment.Float64(), a.Reason, formatDate(a.AdjustmentDate), a.ID)
}

func (s *Store) DeleteAdjustment(ctx context.Context, id int64) error {
	return s.mutate(ctx, "delete", "adjustment", id, "DELETE FROM roast_adjustments WHERE id = ?", id)
}

// =============================================================================
// INVENTORY READS
// =============================================================================

func (s *Store) SoldGrams(ctx context.Context, roastBatchID, excludeSaleID int64) (roastery.Grams, error) {
	var sold roastery.Grams
	err := s.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(bag_size_g * bags), 0) FROM sale_items
		 WHERE roast_batch_id = ? AND sale_id <> ?`,
		roastBatchID, excludeSaleID,
	).Scan(&sold)
	if err != nil {
		return 0, fmt.Errorf("failed to sum sold grams: %w", err)
	}
	return sold, nil
}

func (s *Store) AdjustedGrams(ctx context.Context, roastBatchID int64) (roastery.Grams, error) {
	var adjusted roastery.Grams
	err := s.q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(adjustment_g), 0) FROM roast_adjustments WHERE roast_batch_id = ?",
		roastBatchID,
	).Scan(&adjusted)
	if err != nil {
		return 0, fmt.Errorf("failed to sum adjustments: %w", err)
	}
	return adjusted, nil
}

func (s *Store) ListRoastStock(ctx context.Context) ([]roastery.RoastStock, error) {
	query := `
		SELECT r.id, r.lot_id, r.roast_date, r.green_input_g, r.roasted_output_g,
		       r.roast_level, r.notes, r.shrinkage_pct,
		       COALESCE(l.process, ''), COALESCE(f.name, ''), COALESCE(v.name, ''),
		       COALESCE((SELECT SUM(si.bag_size_g * si.bags) FROM sale_items si
		                 WHERE si.roast_batch_id = r.id), 0),
		       COALESCE((SELECT SUM(a.adjustment_g) FROM roast_adjustments a
		                 WHERE a.roast_batch_id = r.id), 0)
		FROM roast_batches r
		LEFT JOIN coffee_lots l ON l.id = r.lot_id
		LEFT JOIN farms f ON f.id = l.farm_id
		LEFT JOIN varieties v ON v.id = l.variety_id
		ORDER BY r.roast_date DESC, r.id DESC
	`

	return queryList(ctx, s.q, "roast stock", func(row scanner) (roastery.RoastStock, error) {
		var (
			st   roastery.RoastStock
			date string
		)
		r := &st.Roast
		err := row.Scan(&r.ID, &r.LotID, &date, &r.GreenInput, &r.RoastedOutput,
			&r.RoastLevel, &r.Notes, &r.ShrinkagePct,
			&st.LotProcess, &st.FarmName, &st.VarietyName, &st.Sold, &st.Adjusted)
		if err != nil {
			return st, err
		}
		r.RoastDate, err = parseDate(date)
		return st, err
	}, query)
}
