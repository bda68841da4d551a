package iodb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/horizonml/horizon/pkg/config"
	"github.com/horizonml/horizon/pkg/db"
	"github.com/horizonml/horizon/pkg/frame"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// liteOperator implements db.Operator on SQLite. It backs local mode
// and the store-level tests that run without PostgreSQL.
type liteOperator struct {
	db   *sql.DB
	file string
}

// NewLiteOperator creates a SQLite operator (without connecting).
func NewLiteOperator() db.Operator {
	return &liteOperator{}
}

func (l *liteOperator) Connect(ctx context.Context, cfg *config.DatabaseConfig) error {
	file := cfg.File
	if file == "" {
		file = ":memory:"
	}
	conn, err := sql.Open("sqlite", file)
	if err != nil {
		return fmt.Errorf("opening sqlite store %s: %w", file, err)
	}
	// SQLite handles one writer; a single connection avoids lock
	// contention between gorm and raw statements.
	conn.SetMaxOpenConns(1)
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("opening sqlite store %s: %w", file, err)
	}
	l.db = conn
	l.file = file
	return nil
}

func (l *liteOperator) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

func (l *liteOperator) Gorm() (*gorm.DB, error) {
	if l.db == nil {
		return nil, errNotConnected
	}
	gormDB, err := gorm.Open(
		sqlite.Dialector{Conn: l.db},
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return nil, fmt.Errorf("opening gorm over sqlite: %w", err)
	}
	return gormDB, nil
}

func (l *liteOperator) Dialect() db.Dialect {
	return liteDialect{}
}

func (l *liteOperator) Exec(ctx context.Context, query string, args ...any) error {
	if l.db == nil {
		return errNotConnected
	}
	_, err := l.db.ExecContext(ctx, query, args...)
	return err
}

func (l *liteOperator) QueryFrame(
	ctx context.Context, query string, args ...any,
) (*frame.Frame, error) {
	if l.db == nil {
		return nil, errNotConnected
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]frame.Column, len(types))
	for i, ct := range types {
		cols[i] = frame.Column{
			Name: ct.Name(),
			Type: typeFromDecl(ct.DatabaseTypeName()),
		}
	}
	f := &frame.Frame{Columns: cols}

	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]any, len(cols))
		for i, v := range raw {
			row[i] = liteCell(v, cols[i].Type)
		}
		f.Rows = append(f.Rows, row)
	}
	return f, rows.Err()
}

func typeFromDecl(decl string) frame.Type {
	switch strings.ToUpper(decl) {
	case "INTEGER", "INT", "BIGINT":
		return frame.Integer
	case "REAL", "FLOAT", "DOUBLE", "NUMERIC", "DOUBLE PRECISION":
		return frame.Float
	case "TIMESTAMP", "DATETIME", "DATE":
		return frame.Timestamp
	default:
		return frame.Varchar
	}
}

// liteCell normalizes a SQLite driver value. Timestamps come back as
// text, so they are re-parsed for TIMESTAMP columns.
func liteCell(v any, t frame.Type) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		v = string(x)
	}
	if t == frame.Timestamp {
		if s, ok := v.(string); ok {
			if ts, ok := parseStoredTime(s); ok {
				return ts
			}
			return s
		}
		return v
	}
	switch x := v.(type) {
	case int64, float64, string, time.Time:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

func parseStoredTime(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, l := range layouts {
		if ts, err := time.Parse(l, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func (l *liteOperator) CreateTable(
	ctx context.Context, name string, cols []db.ColumnDef,
) error {
	return l.Exec(ctx, createTableSQL(liteDialect{}, name, cols))
}

func (l *liteOperator) BulkInsert(
	ctx context.Context,
	table string,
	columns []string,
	rows [][]any,
	batchSize int,
	progress db.Progress,
) (int, error) {
	if l.db == nil {
		return 0, errNotConnected
	}
	if batchSize <= 0 {
		batchSize = len(rows)
	}
	d := liteDialect{}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
	}
	marks := make([]string, len(columns))
	for i := range marks {
		marks[i] = "?"
	}
	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(marks, ", "),
	)

	var total int
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return total, err
		}
		prepared, err := tx.PrepareContext(ctx, stmt)
		if err != nil {
			tx.Rollback()
			return total, err
		}
		for _, row := range rows[start:end] {
			if _, err := prepared.ExecContext(ctx, row...); err != nil {
				prepared.Close()
				tx.Rollback()
				return total, fmt.Errorf("bulk insert into %s: %w", table, err)
			}
		}
		prepared.Close()
		if err := tx.Commit(); err != nil {
			return total, err
		}
		total += end - start
		if progress != nil {
			progress(total)
		}
	}
	return total, nil
}

func (l *liteOperator) DropTable(ctx context.Context, name string) error {
	d := liteDialect{}
	return l.Exec(ctx, "DROP TABLE IF EXISTS "+d.QuoteIdent(name))
}

func (l *liteOperator) TableExists(ctx context.Context, name string) (bool, error) {
	if l.db == nil {
		return false, errNotConnected
	}
	var count int
	err := l.db.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		name,
	).Scan(&count)
	return count > 0, err
}

func (l *liteOperator) TableColumns(ctx context.Context, name string) ([]string, error) {
	if l.db == nil {
		return nil, errNotConnected
	}
	rows, err := l.db.QueryContext(ctx,
		"SELECT name FROM pragma_table_info("+quoteLiteral(name)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
