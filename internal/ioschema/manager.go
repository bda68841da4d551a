// Package ioschema manages the metadata schema with GORM AutoMigrate.
// Migration is idempotent and safe to run on every startup.
package ioschema

import (
	"fmt"

	"github.com/horizonml/horizon/pkg/db"
	"github.com/horizonml/horizon/pkg/schema"
)

// Migrate brings the metadata tables (projects, datasets, feature
// stores, models, predictions, jobs) up to the current model
// definitions. Backing data tables are created dynamically by the
// pipeline and are not part of this schema.
func Migrate(op db.Operator) error {
	gormDB, err := op.Gorm()
	if err != nil {
		return fmt.Errorf("preparing metadata schema: %w", err)
	}
	if err := schema.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrating metadata schema: %w", err)
	}
	return nil
}
