package sqlstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// migration is one schema version. Statements use %TYPE% tokens that the
// dialect expands (see dialectFor).
type migration struct {
	version    int
	name       string
	statements []string
}

// migrations are applied in order and never edited once released.
var migrations = []migration{
	{
		version: 1,
		name:    "catalog",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS farms (
				id %PK%,
				name %STR% NOT NULL,
				location %STR% NOT NULL,
				notes %TEXT% NOT NULL
			)%ENGINE%`,
			`CREATE TABLE IF NOT EXISTS varieties (
				id %PK%,
				name %STR% NOT NULL,
				description %TEXT% NOT NULL
			)%ENGINE%`,
			`CREATE TABLE IF NOT EXISTS customers (
				id %PK%,
				name %STR% NOT NULL,
				contact_info %STR% NOT NULL
			)%ENGINE%`,
			`CREATE TABLE IF NOT EXISTS expenses (
				id %PK%,
				expense_date %DATE% NOT NULL,
				category %STR% NOT NULL,
				amount %MONEY% NOT NULL,
				notes %TEXT% NOT NULL
			)%ENGINE%`,
			`CREATE INDEX idx_expenses_date ON expenses(expense_date)`,
			`CREATE TABLE IF NOT EXISTS price_references (
				id %PK%,
				variety_id %REF% NULL,
				process %STR% NOT NULL,
				bag_size_g INTEGER NOT NULL,
				price %MONEY% NOT NULL,
				notes %TEXT% NOT NULL,
				FOREIGN KEY (variety_id) REFERENCES varieties(id)
			)%ENGINE%`,
		},
	},
	{
		version: 2,
		name:    "production",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS coffee_lots (
				id %PK%,
				farm_id %REF% NOT NULL,
				variety_id %REF% NOT NULL,
				process %STR% NOT NULL,
				purchase_date %DATE% NOT NULL,
				green_weight_g %REAL% NOT NULL,
				price_per_kg %MONEY% NOT NULL,
				moisture_level %REAL% NULL,
				notes %TEXT% NOT NULL,
				FOREIGN KEY (farm_id) REFERENCES farms(id),
				FOREIGN KEY (variety_id) REFERENCES varieties(id)
			)%ENGINE%`,
			`CREATE INDEX idx_lots_purchase_date ON coffee_lots(purchase_date)`,
			`CREATE TABLE IF NOT EXISTS roast_batches (
				id %PK%,
				lot_id %REF% NOT NULL,
				roast_date %DATE% NOT NULL,
				green_input_g %REAL% NOT NULL,
				roasted_output_g %REAL% NOT NULL,
				roast_level %STR% NOT NULL,
				notes %TEXT% NOT NULL,
				shrinkage_pct %REAL% NOT NULL,
				FOREIGN KEY (lot_id) REFERENCES coffee_lots(id)
			)%ENGINE%`,
			`CREATE INDEX idx_roasts_date ON roast_batches(roast_date)`,
			`CREATE TABLE IF NOT EXISTS roast_adjustments (
				id %PK%,
				roast_batch_id %REF% NOT NULL,
				adjustment_g %REAL% NOT NULL,
				reason %STR% NOT NULL,
				adjustment_date %DATE% NOT NULL,
				created_at %DATE% NOT NULL,
				FOREIGN KEY (roast_batch_id) REFERENCES roast_batches(id)
			)%ENGINE%`,
		},
	},
	{
		version: 3,
		name:    "sales",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS sales (
				id %PK%,
				customer_id %REF% NULL,
				sale_date %DATE% NOT NULL,
				notes %TEXT% NOT NULL,
				total_price %MONEY% NOT NULL,
				total_quantity_g %REAL% NOT NULL,
				is_paid %BOOL% NOT NULL,
				amount_paid %MONEY% NOT NULL,
				paid_at %DATE% NULL,
				FOREIGN KEY (customer_id) REFERENCES customers(id)
			)%ENGINE%`,
			`CREATE INDEX idx_sales_date ON sales(sale_date)`,
			`CREATE TABLE IF NOT EXISTS sale_items (
				id %PK%,
				sale_id %REF% NOT NULL,
				roast_batch_id %REF% NOT NULL,
				bag_size_g INTEGER NOT NULL,
				bags INTEGER NOT NULL,
				bag_price %MONEY% NOT NULL,
				notes %TEXT% NOT NULL,
				FOREIGN KEY (sale_id) REFERENCES sales(id) ON DELETE CASCADE,
				FOREIGN KEY (roast_batch_id) REFERENCES roast_batches(id)
			)%ENGINE%`,
			// Hot path: sold grams per roast batch
			`CREATE INDEX idx_sale_items_roast ON sale_items(roast_batch_id)`,
			`CREATE INDEX idx_sale_items_sale ON sale_items(sale_id)`,
		},
	},
	{
		version: 4,
		name:    "users",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id %PK%,
				email %STR% NOT NULL UNIQUE,
				full_name %STR% NOT NULL,
				is_active %BOOL% NOT NULL,
				is_superuser %BOOL% NOT NULL,
				hashed_password %STR% NOT NULL
			)%ENGINE%`,
		},
	},
	{
		version: 5,
		name:    "dashboard_snapshots",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS dashboard_snapshots (
				id %PK%,
				taken_at %DATE% NOT NULL,
				summary_json %TEXT% NOT NULL
			)%ENGINE%`,
			`CREATE INDEX idx_snapshots_taken_at ON dashboard_snapshots(taken_at)`,
		},
	},
}

// migrate applies every migration newer than the recorded version, each in
// its own transaction.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		applied_at VARCHAR(40) NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		s.logger.Info("applied migration",
			zap.Int("version", m.version),
			zap.String("name", m.name),
			zap.String("driver", s.dialect.name),
		)
	}
	return nil
}

func (s *Store) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// apply runs one migration. MySQL commits DDL implicitly, so a migration
// that fails halfway there needs manual cleanup before the next start.
func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, s.dialect.types.Replace(stmt)); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, formatTime(time.Now()),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	return v, err
}
