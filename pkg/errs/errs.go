// Package errs defines the error taxonomy shared by all pipeline stages.
// Each stage wraps its failures into one of these types so callers can
// branch with errors.As without inspecting message text.
package errs

import "fmt"

// SchemaError reports a problem with an uploaded file or inferred schema:
// unparseable content, a type-mapping failure, or a column-name collision
// after sanitization.
type SchemaError struct {
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema: %s: %v", e.Reason, e.Err)
	}
	return "schema: " + e.Reason
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ValidationError reports a caller-contract violation: missing role
// columns, or feature/target columns absent from a materialized table.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// MaterializationError reports that a feature-store SQL statement failed
// to execute against the tabular store.
type MaterializationError struct {
	Table string
	Err   error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("materialization into %q failed: %v", e.Table, e.Err)
}

func (e *MaterializationError) Unwrap() error { return e.Err }

// ArtifactError reports a blob-store read or write failure for a model
// artifact or exported result.
type ArtifactError struct {
	Ref string
	Op  string // "put", "get" or "delete"
	Err error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact %s %q: %v", e.Op, e.Ref, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// TrainingError reports that model training cannot proceed: too few rows
// after the temporal join, a degenerate target, or a fit failure.
type TrainingError struct {
	Reason string
	Err    error
}

func (e *TrainingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("training: %s: %v", e.Reason, e.Err)
	}
	return "training: " + e.Reason
}

func (e *TrainingError) Unwrap() error { return e.Err }

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Kind string // "project", "dataset", "feature store", "model", "prediction"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NotFound is a convenience constructor for NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}
