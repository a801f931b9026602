// Package remote adapts the row-oriented cloud stores that mirror the local
// cache.
//
// Every logical collection maps to one table of rows shaped
// (id, data, created_at): data is the record's JSON document, id is its
// primary key and created_at orders SelectAll results. The configuration
// singleton lives in its own table under the id "main".
//
// Backends:
//   - Disabled: no remote configured; Configured reports false.
//   - SQLStore: Postgres (pgx), Turso (go-libsql) or SQLite (ncruces).
//   - DynamoStore: AWS DynamoDB, or DynamoDB Local through a custom endpoint.
//   - Memory: in-process store with failure injection for tests.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned by SelectOne when no row has the given id.
	ErrNotFound = errors.New("remote: row not found")

	// ErrNotConfigured is returned by every operation of a Disabled store.
	ErrNotConfigured = errors.New("remote: not configured")
)

// Operation names, used for logging, metrics and failure injection.
const (
	OpSelectAll = "select_all"
	OpSelectOne = "select_one"
	OpUpsert    = "upsert"
	OpDeleteAll = "delete_all"
	OpDeleteOne = "delete_one"
)

// Row is one remote record.
type Row struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store is the remote row store contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Configured reports whether a real backend is attached.
	Configured() bool

	// SelectAll returns every row of table ordered by created_at ascending.
	SelectAll(ctx context.Context, table string) ([]Row, error)

	// SelectOne returns the row with the given id, or ErrNotFound.
	SelectOne(ctx context.Context, table, id string) (Row, error)

	// Upsert inserts rows, replacing existing rows with the same id.
	Upsert(ctx context.Context, table string, rows []Row) error

	// DeleteAll removes every row with a non-empty id.
	DeleteAll(ctx context.Context, table string) error

	// DeleteOne removes the row with the given id. Missing rows are ignored.
	DeleteOne(ctx context.Context, table, id string) error

	// Close releases the backend's resources.
	Close() error
}

// Drivers accepted by Open.
const (
	DriverNone     = ""
	DriverPostgres = "postgres"
	DriverLibSQL   = "libsql"
	DriverSQLite   = "sqlite3"
	DriverDynamoDB = "dynamodb"
)

// Config selects and parameterises a backend.
type Config struct {
	Driver string
	DSN    string
	Tables []string
	Dynamo DynamoConfig
}

// Open builds the Store described by cfg. An empty driver yields Disabled.
// Only configuration mistakes fail here; an unreachable server is reported
// by the individual calls.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (Store, error) {
	log := logger.With().Str("component", "remote").Str("driver", cfg.Driver).Logger()

	switch cfg.Driver {
	case DriverNone:
		log.Debug().Msg("remote store disabled, running local-only")
		return Disabled{}, nil
	case DriverPostgres, DriverLibSQL, DriverSQLite:
		s, err := NewSQLStore(Dialect(cfg.Driver), cfg.DSN, cfg.Tables...)
		if err != nil {
			return nil, err
		}
		log.Info().Strs("tables", cfg.Tables).Msg("remote SQL store configured")
		return s, nil
	case DriverDynamoDB:
		s, err := NewDynamoStore(ctx, cfg.Dynamo)
		if err != nil {
			return nil, err
		}
		log.Info().Str("prefix", cfg.Dynamo.TablePrefix).Msg("remote DynamoDB store ready")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown remote driver %q", cfg.Driver)
	}
}

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidateTable rejects table names that cannot be safely interpolated.
func ValidateTable(table string) error {
	if !tableNameRe.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// Disabled is the Store used when no remote backend is configured.
type Disabled struct{}

var _ Store = Disabled{}

func (Disabled) Configured() bool { return false }

func (Disabled) SelectAll(context.Context, string) ([]Row, error) {
	return nil, ErrNotConfigured
}

func (Disabled) SelectOne(context.Context, string, string) (Row, error) {
	return Row{}, ErrNotConfigured
}

func (Disabled) Upsert(context.Context, string, []Row) error { return ErrNotConfigured }

func (Disabled) DeleteAll(context.Context, string) error { return ErrNotConfigured }

func (Disabled) DeleteOne(context.Context, string, string) error { return ErrNotConfigured }

func (Disabled) Close() error { return nil }
