package ioregistry

import (
	"context"

	"github.com/horizonml/horizon/pkg/schema"
	"gorm.io/gorm"
)

// DeleteProject removes a project, all dependent metadata rows and
// every backing table the project created. A failed table drop is
// logged and skipped; metadata removal proceeds so the project never
// remains half-visible.
func (r *Registry) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := r.GetProject(ctx, projectID); err != nil {
		return err
	}

	datasets, err := r.ListDatasets(ctx, projectID)
	if err != nil {
		return err
	}
	stores, err := r.ListFeatureStores(ctx, projectID)
	if err != nil {
		return err
	}
	var predictions []schema.Prediction
	err = r.db.WithContext(ctx).Where("project_id = ?", projectID).Find(&predictions).Error
	if err != nil {
		return err
	}

	var tables []string
	for _, ds := range datasets {
		tables = append(tables, ds.SourceTable)
		if ds.TargetTable != "" {
			tables = append(tables, ds.TargetTable)
		}
	}
	for _, fs := range stores {
		tables = append(tables, fs.TablePath)
	}
	for _, p := range predictions {
		tables = append(tables, p.OutputTable)
	}

	for _, table := range tables {
		if err := r.op.DropTable(ctx, table); err != nil {
			r.log.Warn("could not drop backing table during project delete",
				"project", projectID, "table", table, "error", err)
		}
	}

	datasetIDs := make([]string, len(datasets))
	for i, ds := range datasets {
		datasetIDs[i] = ds.ID
	}
	storeIDs := make([]string, len(stores))
	for i, fs := range stores {
		storeIDs[i] = fs.ID
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var modelIDs []string
		err := tx.Model(&schema.Model{}).
			Where("project_id = ?", projectID).
			Pluck("id", &modelIDs).Error
		if err != nil {
			return err
		}

		if len(modelIDs) > 0 {
			if err := tx.Where("model_id IN ?", modelIDs).
				Delete(&schema.SelectedFeature{}).Error; err != nil {
				return err
			}
		}
		if len(storeIDs) > 0 {
			if err := tx.Where("feature_store_id IN ?", storeIDs).
				Delete(&schema.FeatureStoreColumn{}).Error; err != nil {
				return err
			}
		}
		if len(datasetIDs) > 0 {
			if err := tx.Where("dataset_id IN ?", datasetIDs).
				Delete(&schema.DatasetColumn{}).Error; err != nil {
				return err
			}
		}

		for _, model := range []any{
			&schema.Prediction{},
			&schema.Model{},
			&schema.FeatureStore{},
			&schema.Dataset{},
			&schema.Job{},
		} {
			if err := tx.Where("project_id = ?", projectID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&schema.Project{}, "id = ?", projectID).Error
	})
}
