/*
Package sqlstore provides the relational implementation of roastery.Store.

PURPOSE:
  Persists every roastery record in SQLite (default, single file or
  in-memory) or MySQL. Both dialects share one set of queries; only the
  DDL and row locking differ.

DRIVERS:
  sqlite3  github.com/mattn/go-sqlite3
           DSN is a file path or ":memory:". Opened with foreign keys on,
           a busy timeout, WAL for files and BEGIN IMMEDIATE transactions.
  mysql    github.com/go-sql-driver/mysql
           DSN in the driver's format (user:pass@tcp(host:3306)/roastery).
           clientFoundRows is forced on so UPDATE reports matched rows.

STORAGE FORMATS:
  Dates        TEXT "2006-01-02"
  Timestamps   TEXT RFC3339, UTC
  Money        TEXT decimal string (shopspring/decimal Scanner/Valuer)
  Weights      REAL / DOUBLE grams

CONCURRENCY:
  WithTx binds a Store to one *sql.Tx. Sale writes call LockRoastBatches
  inside it: on MySQL this is SELECT ... FOR UPDATE on the batch rows, on
  SQLite the IMMEDIATE transaction already holds the database write lock.

MIGRATION:
  Schema changes are versioned (schema.go) and applied on Open. Applied
  versions are recorded in schema_migrations.

USAGE:
  store, err := sqlstore.Open("sqlite3", "./data/roastery.db", logger)
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - roastery/store.go: Interface definitions
  - roastery/store/memory.go: In-memory implementation for testing
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/roastsync/roastery/roastery"
)

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Store implements roastery.Store on database/sql.
type Store struct {
	db      *sql.DB
	q       queryer
	tx      *sql.Tx
	dialect dialect
	logger  *zap.Logger
}

var _ roastery.Store = (*Store)(nil)

// Open connects, configures the driver and migrates the schema.
func Open(driver, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	connStr, err := d.dsn(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if d.name == DriverSQLite && isMemoryDSN(dsn) {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, q: db, dialect: d, logger: logger}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// New opens a SQLite store at path. Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	return Open(DriverSQLite, path, nil)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// =============================================================================
// DIALECTS
// =============================================================================

type dialect struct {
	name     string
	types    *strings.Replacer
	lockRows bool
	dsn      func(string) (string, error)
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{
			name: DriverSQLite,
			types: strings.NewReplacer(
				"%PK%", "INTEGER PRIMARY KEY AUTOINCREMENT",
				"%REF%", "INTEGER",
				"%STR%", "TEXT",
				"%TEXT%", "TEXT",
				"%DATE%", "TEXT",
				"%REAL%", "REAL",
				"%BOOL%", "INTEGER",
				"%MONEY%", "TEXT",
				"%ENGINE%", "",
			),
			dsn: sqliteDSN,
		}, nil
	case DriverMySQL:
		return dialect{
			name: DriverMySQL,
			types: strings.NewReplacer(
				"%PK%", "BIGINT AUTO_INCREMENT PRIMARY KEY",
				"%REF%", "BIGINT",
				"%STR%", "VARCHAR(255)",
				"%TEXT%", "LONGTEXT",
				"%DATE%", "VARCHAR(40)",
				"%REAL%", "DOUBLE",
				"%BOOL%", "TINYINT(1)",
				"%MONEY%", "VARCHAR(64)",
				"%ENGINE%", " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
			),
			lockRows: true,
			dsn:      mysqlDSN,
		}, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q (want %s or %s)", driver, DriverSQLite, DriverMySQL)
}

func sqliteDSN(path string) (string, error) {
	params := "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if !isMemoryDSN(path) {
		params += "&_journal_mode=WAL"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + params, nil
}

func isMemoryDSN(path string) bool {
	return strings.Contains(path, ":memory:") || strings.Contains(path, "mode=memory")
}

func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	cfg.MultiStatements = false
	return cfg.FormatDSN(), nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(roastery.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	txStore := &Store{db: s.db, q: sqlTx, tx: sqlTx, dialect: s.dialect, logger: s.logger}
	if err := fn(txStore); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LockRoastBatches row-locks the given batches on MySQL. SQLite write
// transactions are already exclusive.
func (s *Store) LockRoastBatches(ctx context.Context, ids []int64) error {
	if s.tx == nil || !s.dialect.lockRows || len(ids) == 0 {
		return nil
	}

	query := "SELECT id FROM roast_batches WHERE id IN (" + placeholders(len(ids)) + ") ORDER BY id FOR UPDATE"
	rows, err := s.q.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("failed to lock roast batches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}

// =============================================================================
// QUERY HELPERS
// =============================================================================

func (s *Store) get(ctx context.Context, entity string, id int64, query string, scan func(scanner) error) error {
	err := scan(s.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return roastery.NotFound(entity, id)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s %d: %w", entity, id, err)
	}
	return nil
}

func queryList[T any](ctx context.Context, q queryer, entity string, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", entity, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", entity, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) insert(ctx context.Context, entity, query string, args ...any) (int64, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, writeError("insert "+entity, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read new %s id: %w", entity, err)
	}
	return id, nil
}

// mutate runs an UPDATE or DELETE of one row by id.
func (s *Store) mutate(ctx context.Context, op, entity string, id int64, query string, args ...any) error {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return writeError(op+" "+entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s %s %d: %w", op, entity, id, err)
	}
	if n == 0 {
		return roastery.NotFound(entity, id)
	}
	return nil
}

// writeError turns constraint violations into roastery.ErrConflict.
func writeError(op string, err error) error {
	if isConstraintError(err) {
		return &roastery.ConflictError{Reason: "cannot " + op, Err: err}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isConstraintError(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrConstraint
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062, 1216, 1217, 1451, 1452:
			return true
		}
	}
	return false
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(timeLayout, s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
