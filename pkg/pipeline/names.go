package pipeline

import (
	"strings"

	"github.com/google/uuid"
)

// Derived table name prefixes. They double as markers during project
// cleanup: every backing table a project owns carries one of them or is
// referenced from a metadata row.
const (
	RawTablePrefix        = "raw_"
	TargetTablePrefix     = "target_table__"
	FeatureTablePrefix    = "feature_store_"
	ScoringFeaturesPrefix = "prediction_features__"
	ResultTablePrefix     = "pred_res_"
	TestFilePrefix        = "test_file__"
)

func uuidSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "_")
}

// RawTableName derives the raw table name for a dataset id.
func RawTableName(datasetID string) string {
	return RawTablePrefix + strings.ReplaceAll(datasetID, "-", "_")
}

// TargetTableName derives the target table name for a source table.
// Deterministic so that re-running role assignment drops and recreates
// the same table.
func TargetTableName(sourceTable string) string {
	return TargetTablePrefix + sourceTable
}

// NewFeatureTableName generates a unique feature-table name.
func NewFeatureTableName() string {
	return FeatureTablePrefix + uuidSuffix()
}

// NewScoringFeaturesName generates a unique feature-table name for a
// scoring run.
func NewScoringFeaturesName() string {
	return ScoringFeaturesPrefix + uuidSuffix()
}

// NewResultTableName generates a unique prediction-result table name.
func NewResultTableName() string {
	return ResultTablePrefix + uuidSuffix()
}

// TestFileTableName derives a raw table name for a scoring upload.
func TestFileTableName(datasetID string) string {
	return TestFilePrefix + strings.ReplaceAll(datasetID, "-", "_")
}
