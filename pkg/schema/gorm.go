package schema

import (
	"gorm.io/gorm"
)

// AllModels returns all metadata models for GORM AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Project{},
		&Dataset{},
		&DatasetColumn{},
		&FeatureStore{},
		&FeatureStoreColumn{},
		&Model{},
		&SelectedFeature{},
		&Prediction{},
		&Job{},
	}
}

// Migrate runs GORM AutoMigrate to create or update the metadata schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
