package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Dialect names the SQL flavour spoken by a SQLStore.
type Dialect string

const (
	DialectPostgres Dialect = DriverPostgres
	DialectLibSQL   Dialect = DriverLibSQL
	DialectSQLite   Dialect = DriverSQLite
)

// driverName maps a dialect to its database/sql driver. The pgx and libsql
// drivers are registered by the binary; sqlite3 is always available.
func (d Dialect) driverName() (string, error) {
	switch d {
	case DialectPostgres:
		return "pgx", nil
	case DialectLibSQL:
		return "libsql", nil
	case DialectSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported SQL dialect %q", d)
	}
}

// timeLayout is fixed-width so created_at sorts lexically in SQLite.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var sqlOpen = sql.Open

// SQLStore stores rows in one SQL table per collection.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect

	// tables are created on the first call that reaches the database.
	tables  []string
	readyMu sync.Mutex
	ready   bool
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore prepares a connection pool for the database at dsn. Nothing
// is dialed here: the first operation connects and creates tables, so an
// unreachable server surfaces as an ordinary per-call error.
func NewSQLStore(dialect Dialect, dsn string, tables ...string) (*SQLStore, error) {
	driver, err := dialect.driverName()
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("remote %s store requires a DSN", dialect)
	}
	for _, table := range tables {
		if err := ValidateTable(table); err != nil {
			return nil, err
		}
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", dialect, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &SQLStore{db: db, dialect: dialect, tables: tables}, nil
}

// NewSQLStoreFromDB wraps an already open database.
func NewSQLStoreFromDB(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// DB exposes the underlying connection pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Configured() bool { return true }

func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close remote store: %w", err)
	}
	return nil
}

// EnsureTables creates the given collection tables if they are missing.
func (s *SQLStore) EnsureTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if err := ValidateTable(table); err != nil {
			return err
		}

		var ddl string
		if s.dialect == DialectPostgres {
			ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
				id TEXT PRIMARY KEY,
				data JSONB NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, table)
		} else {
			ddl = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
				id TEXT PRIMARY KEY,
				data TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`, table)
		}
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// prepare creates the configured tables once. A failure is returned to
// the caller and retried on the next call.
func (s *SQLStore) prepare(ctx context.Context) error {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.EnsureTables(ctx, s.tables...); err != nil {
		return err
	}
	s.ready = true
	return nil
}

// ph returns the n-th (1-based) bind placeholder.
func (s *SQLStore) ph(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) timeArg(t time.Time) any {
	if s.dialect == DialectPostgres {
		return t.UTC()
	}
	return t.UTC().Format(timeLayout)
}

func (s *SQLStore) SelectAll(ctx context.Context, table string) ([]Row, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, data, created_at FROM %q ORDER BY created_at ASC`, table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", table, err)
	}
	return result, nil
}

func (s *SQLStore) SelectOne(ctx context.Context, table, id string) (Row, error) {
	if err := ValidateTable(table); err != nil {
		return Row{}, err
	}
	if err := s.prepare(ctx); err != nil {
		return Row{}, err
	}

	query := fmt.Sprintf(`SELECT id, data, created_at FROM %q WHERE id = %s`, table, s.ph(1))
	row, err := scanRow(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, fmt.Errorf("%s/%s: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return Row{}, fmt.Errorf("failed to select %s/%s: %w", table, id, err)
	}
	return row, nil
}

func (s *SQLStore) Upsert(ctx context.Context, table string, rows []Row) error {
	if err := ValidateTable(table); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.prepare(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
	INSERT INTO %q (id, data, created_at) VALUES (%s, %s, %s)
	ON CONFLICT(id) DO UPDATE SET
		data = excluded.data,
		created_at = excluded.created_at
	`, table, s.ph(1), s.ph(2), s.ph(3))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert into %s: %w", table, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ID, string(row.Data), s.timeArg(row.CreatedAt)); err != nil {
			return fmt.Errorf("failed to upsert %s/%s: %w", table, row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert into %s: %w", table, err)
	}
	return nil
}

func (s *SQLStore) DeleteAll(ctx context.Context, table string) error {
	if err := ValidateTable(table); err != nil {
		return err
	}
	if err := s.prepare(ctx); err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %q WHERE id <> ''`, table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	return nil
}

func (s *SQLStore) DeleteOne(ctx context.Context, table, id string) error {
	if err := ValidateTable(table); err != nil {
		return err
	}
	if err := s.prepare(ctx); err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %q WHERE id = %s`, table, s.ph(1))
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", table, id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (Row, error) {
	var (
		row       Row
		data      []byte
		createdAt any
	)
	if err := sc.Scan(&row.ID, &data, &createdAt); err != nil {
		return Row{}, err
	}
	row.Data = append([]byte(nil), data...)

	t, err := parseTime(createdAt)
	if err != nil {
		return Row{}, err
	}
	row.CreatedAt = t
	return row, nil
}

// parseTime accepts the created_at representations returned by the
// supported drivers.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported created_at type %T", v)
	}
}

func parseTimeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable created_at %q", s)
}
