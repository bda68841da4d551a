// Package iodb implements the db.Operator contract for PostgreSQL via
// pgxpool and for SQLite via database/sql. These are impure I/O packages
// implementing contracts defined in pkg/.
package iodb

import (
	"context"
	"fmt"
	"time"

	"github.com/horizonml/horizon/pkg/config"
	"github.com/horizonml/horizon/pkg/db"
	"github.com/horizonml/horizon/pkg/frame"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// pgxOperator implements db.Operator using pgxpool for connection
// pooling.
type pgxOperator struct {
	pool *pgxpool.Pool
}

// NewPgxOperator creates a PostgreSQL operator (without connecting).
func NewPgxOperator() db.Operator {
	return &pgxOperator{}
}

func (p *pgxOperator) Connect(ctx context.Context, cfg *config.DatabaseConfig) error {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return connErr(cfg, err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return connErr(cfg, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return connErr(cfg, err)
	}

	p.pool = pool
	return nil
}

func connErr(cfg *config.DatabaseConfig, err error) error {
	return fmt.Errorf("connecting to %s:%d/%s: %w",
		cfg.Host, cfg.Port, cfg.Database, err)
}

func (p *pgxOperator) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func (p *pgxOperator) Gorm() (*gorm.DB, error) {
	if p.pool == nil {
		return nil, errNotConnected
	}
	sqlDB := stdlib.OpenDBFromPool(p.pool)
	gormDB, err := gorm.Open(
		gormpg.New(gormpg.Config{Conn: sqlDB}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	if err != nil {
		return nil, fmt.Errorf("opening gorm over pgx pool: %w", err)
	}
	return gormDB, nil
}

func (p *pgxOperator) Dialect() db.Dialect {
	return pgDialect{}
}

func (p *pgxOperator) Exec(ctx context.Context, sql string, args ...any) error {
	if p.pool == nil {
		return errNotConnected
	}
	_, err := p.pool.Exec(ctx, sql, args...)
	return err
}

func (p *pgxOperator) QueryFrame(
	ctx context.Context, sql string, args ...any,
) (*frame.Frame, error) {
	if p.pool == nil {
		return nil, errNotConnected
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := columnsFromDescriptions(rows.FieldDescriptions())
	f := &frame.Frame{Columns: cols}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make([]any, len(vals))
		for i, v := range vals {
			row[i] = normalizeCell(v)
		}
		f.Rows = append(f.Rows, row)
	}
	return f, rows.Err()
}

func columnsFromDescriptions(descs []pgconn.FieldDescription) []frame.Column {
	cols := make([]frame.Column, len(descs))
	for i, d := range descs {
		cols[i] = frame.Column{
			Name: string(d.Name),
			Type: typeFromOID(d.DataTypeOID),
		}
	}
	return cols
}

func typeFromOID(oid uint32) frame.Type {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		return frame.Integer
	case pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return frame.Float
	case pgtype.TimestampOID, pgtype.TimestamptzOID, pgtype.DateOID:
		return frame.Timestamp
	default:
		return frame.Varchar
	}
}

// normalizeCell maps driver values onto the frame cell types.
func normalizeCell(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case float32:
		return float64(x)
	case float64:
		return x
	case time.Time:
		return x
	case string:
		return x
	case []byte:
		return string(x)
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return fmt.Sprintf("%v", x)
	}
}

func (p *pgxOperator) CreateTable(
	ctx context.Context, name string, cols []db.ColumnDef,
) error {
	return p.Exec(ctx, createTableSQL(pgDialect{}, name, cols))
}

func (p *pgxOperator) BulkInsert(
	ctx context.Context,
	table string,
	columns []string,
	rows [][]any,
	batchSize int,
	progress db.Progress,
) (int, error) {
	if p.pool == nil {
		return 0, errNotConnected
	}
	if batchSize <= 0 {
		batchSize = len(rows)
	}

	var total int
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := p.pool.CopyFrom(
			ctx,
			pgx.Identifier{table},
			columns,
			pgx.CopyFromRows(rows[start:end]),
		)
		if err != nil {
			return total, fmt.Errorf("bulk insert into %s: %w", table, err)
		}
		total += int(n)
		if progress != nil {
			progress(total)
		}
	}
	return total, nil
}

func (p *pgxOperator) DropTable(ctx context.Context, name string) error {
	d := pgDialect{}
	return p.Exec(ctx, "DROP TABLE IF EXISTS "+d.QuoteIdent(name))
}

func (p *pgxOperator) TableExists(ctx context.Context, name string) (bool, error) {
	if p.pool == nil {
		return false, errNotConnected
	}
	query := `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`
	var exists bool
	err := p.pool.QueryRow(ctx, query, name).Scan(&exists)
	return exists, err
}

func (p *pgxOperator) TableColumns(ctx context.Context, name string) ([]string, error) {
	if p.pool == nil {
		return nil, errNotConnected
	}
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`
	rows, err := p.pool.Query(ctx, query, name)
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
