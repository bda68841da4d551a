// Package schema provides metadata models for the Horizon pipeline.
// These tables track lineage only; the tables holding actual rows (raw
// uploads, target tables, feature tables, prediction results) are created
// dynamically by the pipeline stages and referenced here by name.
package schema

import (
	"time"
)

// Project owns all downstream entities. Deleting a project cascades to
// every dependent metadata row and drops every backing table.
type Project struct {
	// ID is a UUID assigned at creation.
	ID string `gorm:"primaryKey;type:uuid"`

	// Name is the user-facing project name.
	Name string `gorm:"not null"`

	// Description summarizes the project's purpose.
	Description string

	CreatedAt time.Time
}

// Dataset registers one uploaded file and the raw table built from it.
type Dataset struct {
	// ID is a UUID assigned at ingestion.
	ID string `gorm:"primaryKey;type:uuid"`

	ProjectID string `gorm:"index;not null"`

	// SourceTable is the name of the dynamically created raw table.
	SourceTable string `gorm:"uniqueIndex;not null"`

	// TargetTable is the derived temporal-label table; empty until roles
	// are assigned.
	TargetTable string

	// HorizonWeeks is the forecast horizon used when deriving the target
	// table.
	HorizonWeeks int

	// IsTestFile marks scoring uploads that should not appear in
	// training dataset listings.
	IsTestFile bool

	// Filename is the original upload name, kept for display.
	Filename string

	CreatedAt time.Time

	Columns []DatasetColumn `gorm:"foreignKey:DatasetID"`
}

// DatasetColumn records one inferred column and its role annotation.
// The role flags are a caller contract: the pipeline is well-formed when
// exactly one column is key, one is date and one is target.
type DatasetColumn struct {
	ID        uint   `gorm:"primaryKey"`
	DatasetID string `gorm:"index;not null"`

	// Name is the sanitized column name.
	Name string `gorm:"not null"`

	// ColumnType is one of INTEGER, FLOAT, TIMESTAMP, VARCHAR.
	ColumnType string `gorm:"not null"`

	IsForecastKey bool
	IsDate        bool
	IsTarget      bool
	IsFeature     bool
}

// FeatureStore records a materialized feature table together with the
// SQL definition that produced it. The definition is the replayable
// source of truth: scoring runs re-render the same statement against a
// new source table.
type FeatureStore struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	ProjectID string `gorm:"index;not null"`
	DatasetID string `gorm:"index;not null"`

	// TablePath is the materialized feature table; globally unique.
	TablePath string `gorm:"uniqueIndex;not null"`

	// Statement is the feature definition template with source and
	// destination placeholders.
	Statement string `gorm:"not null"`

	CreatedAt time.Time

	Columns []FeatureStoreColumn `gorm:"foreignKey:FeatureStoreID"`
}

// FeatureStoreColumn is one lineage record per column discovered in a
// materialized feature table.
type FeatureStoreColumn struct {
	ID             uint   `gorm:"primaryKey"`
	FeatureStoreID string `gorm:"index;not null"`
	Name           string `gorm:"not null"`
}

// Model is an immutable record of a finished training run.
type Model struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	ProjectID      string `gorm:"index;not null"`
	DatasetID      string `gorm:"not null"`
	FeatureStoreID string `gorm:"not null"`

	// Algorithm identifies the learner; currently always "gbdt".
	Algorithm string `gorm:"not null"`

	// TaskType is "regression" or "classification".
	TaskType string `gorm:"not null"`

	// TargetColumn is the original target the model predicts.
	TargetColumn string `gorm:"not null"`

	// TrainingMetrics and TestingMetrics are JSON-encoded metric maps
	// computed on the chronological split.
	TrainingMetrics string
	TestingMetrics  string

	// ArtifactRef locates the serialized model in the blob store; a
	// "local:" prefix marks a cache-only artifact after a remote
	// upload failure.
	ArtifactRef string `gorm:"not null"`

	// TrainingPredictionsRef locates the exported training predictions.
	TrainingPredictionsRef string

	CreatedAt time.Time

	SelectedFeatures []SelectedFeature `gorm:"foreignKey:ModelID"`
}

// SelectedFeature is one ordered entry of a model's selected-feature
// list. Position preserves the selector's first-seen union order.
type SelectedFeature struct {
	ID       uint   `gorm:"primaryKey"`
	ModelID  string `gorm:"index;not null"`
	Name     string `gorm:"not null"`
	Position int    `gorm:"not null"`
}

// Prediction is an append-only record of one scoring run.
type Prediction struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	ProjectID      string `gorm:"index;not null"`
	DatasetID      string `gorm:"not null"`
	FeatureStoreID string `gorm:"not null"`
	ModelID        string `gorm:"not null"`

	// OutputTable is the result table holding one predicted value per
	// scoring row.
	OutputTable string `gorm:"not null"`

	// OutputRef locates the CSV export in the blob store, when made.
	OutputRef string

	CreatedAt time.Time
}

// Job tracks a potentially slow pipeline run (training or scoring).
// RunSeq is monotonic so retries are distinguishable.
type Job struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	ProjectID string `gorm:"index;not null"`

	// Kind is "train" or "predict".
	Kind string `gorm:"not null"`

	// Status is one of queued, running, completed, failed.
	Status string `gorm:"not null"`

	// RunSeq is assigned by the registry, one past the highest seen.
	RunSeq uint `gorm:"uniqueIndex"`

	// Error holds the failure reason for failed jobs.
	Error string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Job status values.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)
