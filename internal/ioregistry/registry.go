// Package ioregistry is the metadata registry: GORM-backed CRUD over
// projects, datasets, feature stores, models, predictions and jobs.
// Backing data tables are touched only during cascade deletion; all
// other table work happens in the pipeline stages.
package ioregistry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/horizonml/horizon/pkg/db"
	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/schema"
	"gorm.io/gorm"
)

// Registry persists pipeline metadata.
type Registry struct {
	db  *gorm.DB
	op  db.Operator
	log *slog.Logger
}

// New creates a registry over the operator's gorm handle.
func New(op db.Operator, log *slog.Logger) (*Registry, error) {
	gormDB, err := op.Gorm()
	if err != nil {
		return nil, err
	}
	return &Registry{db: gormDB, op: op, log: log}, nil
}

func notFoundOr(kind, id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(kind, id)
	}
	return err
}

// CreateProject registers a new project.
func (r *Registry) CreateProject(ctx context.Context, name, description string) (*schema.Project, error) {
	p := &schema.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject loads one project.
func (r *Registry) GetProject(ctx context.Context, id string) (*schema.Project, error) {
	var p schema.Project
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("project", id, err)
	}
	return &p, nil
}

// ListProjects returns all projects, newest first.
func (r *Registry) ListProjects(ctx context.Context) ([]schema.Project, error) {
	var res []schema.Project
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&res).Error
	return res, err
}

// CreateDataset registers a dataset together with its column rows.
func (r *Registry) CreateDataset(ctx context.Context, ds *schema.Dataset) error {
	return r.db.WithContext(ctx).Create(ds).Error
}

// GetDataset loads a dataset with its columns.
func (r *Registry) GetDataset(ctx context.Context, id string) (*schema.Dataset, error) {
	var ds schema.Dataset
	err := r.db.WithContext(ctx).Preload("Columns").First(&ds, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("dataset", id, err)
	}
	return &ds, nil
}

// ListDatasets returns a project's datasets with columns.
func (r *Registry) ListDatasets(ctx context.Context, projectID string) ([]schema.Dataset, error) {
	var res []schema.Dataset
	err := r.db.WithContext(ctx).
		Preload("Columns").
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&res).Error
	return res, err
}

// UpdateDatasetTarget records the target table and horizon produced by
// role assignment, and rewrites the per-column role flags.
func (r *Registry) UpdateDatasetTarget(
	ctx context.Context,
	ds *schema.Dataset,
	targetTable string,
	horizonWeeks int,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&schema.Dataset{}).
			Where("id = ?", ds.ID).
			Updates(map[string]any{
				"target_table":  targetTable,
				"horizon_weeks": horizonWeeks,
			}).Error
		if err != nil {
			return err
		}
		for _, c := range ds.Columns {
			err := tx.Model(&schema.DatasetColumn{}).
				Where("id = ?", c.ID).
				Updates(map[string]any{
					"is_forecast_key": c.IsForecastKey,
					"is_date":         c.IsDate,
					"is_target":       c.IsTarget,
					"is_feature":      c.IsFeature,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateFeatureStore registers a feature store with its lineage columns.
func (r *Registry) CreateFeatureStore(ctx context.Context, fs *schema.FeatureStore) error {
	return r.db.WithContext(ctx).Create(fs).Error
}

// GetFeatureStore loads a feature store with lineage.
func (r *Registry) GetFeatureStore(ctx context.Context, id string) (*schema.FeatureStore, error) {
	var fs schema.FeatureStore
	err := r.db.WithContext(ctx).Preload("Columns").First(&fs, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("feature store", id, err)
	}
	return &fs, nil
}

// ListFeatureStores returns a project's feature stores with lineage.
func (r *Registry) ListFeatureStores(ctx context.Context, projectID string) ([]schema.FeatureStore, error) {
	var res []schema.FeatureStore
	err := r.db.WithContext(ctx).
		Preload("Columns").
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&res).Error
	return res, err
}

// CreateModel registers a trained model with its selected features.
func (r *Registry) CreateModel(ctx context.Context, m *schema.Model) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// GetModel loads a model with its selected features in selection order.
func (r *Registry) GetModel(ctx context.Context, id string) (*schema.Model, error) {
	var m schema.Model
	err := r.db.WithContext(ctx).
		Preload("SelectedFeatures", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		First(&m, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("model", id, err)
	}
	return &m, nil
}

// ListModels returns a project's models.
func (r *Registry) ListModels(ctx context.Context, projectID string) ([]schema.Model, error) {
	var res []schema.Model
	err := r.db.WithContext(ctx).
		Preload("SelectedFeatures", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&res).Error
	return res, err
}

// CreatePrediction registers a scoring run's output.
func (r *Registry) CreatePrediction(ctx context.Context, p *schema.Prediction) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// ListPredictions returns a project's scoring runs in run order.
func (r *Registry) ListPredictions(ctx context.Context, projectID string) ([]schema.Prediction, error) {
	var res []schema.Prediction
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&res).Error
	return res, err
}

// GetPrediction loads one prediction record.
func (r *Registry) GetPrediction(ctx context.Context, id string) (*schema.Prediction, error) {
	var p schema.Prediction
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr("prediction", id, err)
	}
	return &p, nil
}
