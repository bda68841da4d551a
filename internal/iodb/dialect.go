package iodb

import (
	"fmt"
	"strings"

	"github.com/horizonml/horizon/pkg/frame"
)

// pgDialect implements db.Dialect for PostgreSQL.
type pgDialect struct{}

func (pgDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (pgDialect) TypeName(t frame.Type) string {
	switch t {
	case frame.Integer:
		return "BIGINT"
	case frame.Float:
		return "DOUBLE PRECISION"
	case frame.Timestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (pgDialect) DayDiff(later, earlier string) string {
	return fmt.Sprintf("%s::date - %s::date", later, earlier)
}

func (pgDialect) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// liteDialect implements db.Dialect for SQLite.
type liteDialect struct{}

func (liteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (liteDialect) TypeName(t frame.Type) string {
	switch t {
	case frame.Integer:
		return "INTEGER"
	case frame.Float:
		return "REAL"
	case frame.Timestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (liteDialect) DayDiff(later, earlier string) string {
	return fmt.Sprintf(
		"CAST(julianday(%s) - julianday(%s) AS INTEGER)", later, earlier)
}

func (liteDialect) Placeholder(int) string {
	return "?"
}
