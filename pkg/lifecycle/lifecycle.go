// Package lifecycle defines the pipeline-stage contracts. Each stage is
// an interface implemented under internal/io*, so stages can be exercised
// and replaced independently; pkg code never imports the implementations.
package lifecycle

import (
	"context"

	"github.com/horizonml/horizon/pkg/frame"
	"github.com/horizonml/horizon/pkg/pipeline"
	"github.com/horizonml/horizon/pkg/schema"
)

// Ingestor turns an uploaded tabular file into a populated store table
// plus a registered Dataset. The contract is strictly table created,
// then populated, then Dataset registered; a failed population must not
// leave a registered Dataset behind.
type Ingestor interface {
	// Ingest parses content (extension decides the parser), creates
	// the backing table, bulk-inserts all rows and registers the
	// Dataset with its inferred columns.
	Ingest(ctx context.Context, projectID, filename string, content []byte) (*schema.Dataset, error)

	// IngestScoring ingests a scoring upload for an existing dataset,
	// enforcing that its columns match the training dataset's schema.
	IngestScoring(ctx context.Context, datasetID, filename string, content []byte) (string, error)
}

// TargetBuilder assigns column roles and materializes the temporal
// target table. Re-running on the same dataset drops and recreates the
// target table, so role changes are idempotent per dataset.
type TargetBuilder interface {
	Build(ctx context.Context, datasetID string, roles pipeline.RoleAssignment, horizonWeeks int) (*schema.Dataset, error)
}

// MaterializeResult describes one successfully materialized feature
// store.
type MaterializeResult struct {
	FeatureStore *schema.FeatureStore

	// Columns discovered in the destination table, the lineage rows.
	Columns []string
}

// FeatureStoreList is a partial-result listing: stores whose metadata
// loaded cleanly plus the ids of records that could not be hydrated.
type FeatureStoreList struct {
	Items   []schema.FeatureStore
	Skipped []string
}

// Materializer executes a feature definition against the store and
// records lineage.
type Materializer interface {
	// Materialize renders def against source/destination, executes it,
	// samples the destination's columns and registers the FeatureStore.
	Materialize(ctx context.Context, projectID, datasetID string, def pipeline.FeatureDefinition, sourceTable, destTable string) (*MaterializeResult, error)

	// List returns the project's feature stores, skipping records whose
	// backing table has gone missing instead of failing the listing.
	List(ctx context.Context, projectID string) (*FeatureStoreList, error)
}

// TrainResult is the payload a completed training run returns.
type TrainResult struct {
	Model *schema.Model

	// SelectedFeatures in selection order.
	SelectedFeatures []string

	TrainingMetrics map[string]float64
	TestingMetrics  map[string]float64
}

// Trainer runs feature selection and model fitting over a materialized
// feature store, persists the artifact and registers the Model.
type Trainer interface {
	Train(ctx context.Context, featureStoreID, targetColumn string) (*TrainResult, error)
}

// PredictResult is the payload of a completed scoring run.
type PredictResult struct {
	Prediction *schema.Prediction

	// Rows is the assembled output: key columns, actual target when
	// present, and the predicted column.
	Rows *frame.Frame
}

// Predictor replays the stored feature definition against a scoring
// dataset and scores it with a trained model.
type Predictor interface {
	Predict(ctx context.Context, modelID, scoringTable string) (*PredictResult, error)
}
