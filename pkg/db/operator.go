// Package db defines the tabular-store contract used by every pipeline
// stage. Implementations live in internal/iodb: a pgx-backed PostgreSQL
// operator for deployments and a SQLite operator for local mode and tests.
//
// Identifiers that originate from user input (table and column names) are
// always passed through Dialect.QuoteIdent by the implementations, so
// user-chosen names cannot inject SQL.
package db

import (
	"context"

	"github.com/horizonml/horizon/pkg/config"
	"github.com/horizonml/horizon/pkg/frame"
	"gorm.io/gorm"
)

// ColumnDef describes one column of a dynamically created table.
type ColumnDef struct {
	Name string
	Type frame.Type
}

// Progress reports rows written so far during a bulk insert. May be nil.
type Progress func(rows int)

// Operator is the tabular store: connection lifecycle plus the small set
// of operations the pipeline needs. Kept minimal on purpose; stages that
// need raw SQL (target construction, feature materialization) go through
// Exec/QueryFrame with dialect-built statements.
type Operator interface {
	// Connect establishes the store connection.
	Connect(ctx context.Context, cfg *config.DatabaseConfig) error

	// Close releases the connection.
	Close() error

	// Gorm returns a gorm handle bound to the same database, used by the
	// metadata registry.
	Gorm() (*gorm.DB, error)

	// Dialect exposes identifier quoting, type names and date arithmetic
	// for the backend.
	Dialect() Dialect

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// QueryFrame runs a query and materializes the full result as a
	// typed frame.
	QueryFrame(ctx context.Context, sql string, args ...any) (*frame.Frame, error)

	// CreateTable creates a table with the given column definitions.
	CreateTable(ctx context.Context, name string, cols []ColumnDef) error

	// BulkInsert writes rows into table in batches of batchSize,
	// reporting progress after each batch. Returns rows written.
	BulkInsert(
		ctx context.Context,
		table string,
		columns []string,
		rows [][]any,
		batchSize int,
		progress Progress,
	) (int, error)

	// DropTable removes a table if it exists.
	DropTable(ctx context.Context, name string) error

	// TableExists checks if a table exists.
	TableExists(ctx context.Context, name string) (bool, error)

	// TableColumns returns the column names of a table in definition
	// order.
	TableColumns(ctx context.Context, name string) ([]string, error)
}

// Dialect isolates the SQL differences between backends.
type Dialect interface {
	// QuoteIdent quotes a table or column identifier.
	QuoteIdent(name string) string

	// TypeName maps a frame type to the backend's column type.
	TypeName(t frame.Type) string

	// DayDiff returns an SQL expression computing whole days between
	// two date expressions (later minus earlier).
	DayDiff(later, earlier string) string

	// Placeholder returns the positional parameter marker for 1-based
	// index n ("$1" for postgres, "?" for sqlite).
	Placeholder(n int) string
}
