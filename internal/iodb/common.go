package iodb

import (
	"errors"
	"strings"

	"github.com/horizonml/horizon/pkg/db"
)

var errNotConnected = errors.New("database operator is not connected")

// createTableSQL renders a CREATE TABLE statement from column
// definitions, quoting every identifier.
func createTableSQL(d db.Dialect, name string, cols []db.ColumnDef) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = d.QuoteIdent(c.Name) + " " + d.TypeName(c.Type)
	}
	return "CREATE TABLE " + d.QuoteIdent(name) +
		" (" + strings.Join(parts, ", ") + ")"
}
