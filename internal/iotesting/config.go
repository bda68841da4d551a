// Package iotesting provides shared helpers for store-level and
// integration tests. Internal test infrastructure only.
package iotesting

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/horizonml/horizon/internal/iodb"
	"github.com/horizonml/horizon/internal/ioschema"
	"github.com/horizonml/horizon/pkg/config"
	"github.com/horizonml/horizon/pkg/db"
)

// TestDatabaseName is the PostgreSQL database used by integration
// tests, so tests never touch a production database.
const TestDatabaseName = "horizon_test"

// TestConfig returns defaults pointed at the test database and an
// in-memory sqlite store, with training shrunk to sizes that fit unit
// tests.
func TestConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Database.Database = TestDatabaseName
	cfg.Database.File = ":memory:"
	cfg.Training.MaxRounds = 50
	cfg.Training.EarlyStopping = 10
	cfg.Selection.TreeCount = 25
	return cfg
}

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LiteOperator connects an in-memory sqlite operator with the metadata
// schema migrated, and closes it when the test finishes.
func LiteOperator(t *testing.T) db.Operator {
	t.Helper()

	op := iodb.NewLiteOperator()
	cfg := TestConfig()
	if err := op.Connect(context.Background(), &cfg.Database); err != nil {
		t.Fatalf("connecting sqlite store: %v", err)
	}
	t.Cleanup(func() { op.Close() })

	if err := ioschema.Migrate(op); err != nil {
		t.Fatalf("migrating metadata schema: %v", err)
	}
	return op
}
