package ioregistry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/horizonml/horizon/internal/ioregistry"
	"github.com/horizonml/horizon/internal/iotesting"
	"github.com/horizonml/horizon/pkg/db"
	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/frame"
	"github.com/horizonml/horizon/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*ioregistry.Registry, db.Operator) {
	t.Helper()
	op := iotesting.LiteOperator(t)
	reg, err := ioregistry.New(op, iotesting.Logger())
	require.NoError(t, err)
	return reg, op
}

func TestProjectCRUD(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	p, err := reg.CreateProject(ctx, "demand", "weekly demand forecasting")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	got, err := reg.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "demand", got.Name)
	assert.Equal(t, "weekly demand forecasting", got.Description)

	all, err := reg.ListProjects(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, len(all))

	_, err = reg.GetProject(ctx, uuid.NewString())
	var nf *errs.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "project", nf.Kind)
}

func TestDatasetRoundTrip(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	p, err := reg.CreateProject(ctx, "demand", "")
	require.NoError(t, err)

	ds := &schema.Dataset{
		ID:          uuid.NewString(),
		ProjectID:   p.ID,
		SourceTable: "raw_abc123",
		Filename:    "sales.csv",
		CreatedAt:   time.Now().UTC(),
		Columns: []schema.DatasetColumn{
			{Name: "store_id", ColumnType: "INTEGER"},
			{Name: "sale_date", ColumnType: "TIMESTAMP"},
			{Name: "revenue", ColumnType: "FLOAT"},
		},
	}
	require.NoError(t, reg.CreateDataset(ctx, ds))

	got, err := reg.GetDataset(ctx, ds.ID)
	require.NoError(t, err)
	require.Equal(t, 3, len(got.Columns))
	assert.Equal(t, "sales.csv", got.Filename)
	assert.Empty(t, got.TargetTable)

	// Assign roles and record the derived target table.
	got.Columns[0].IsForecastKey = true
	got.Columns[1].IsDate = true
	got.Columns[2].IsTarget = true
	err = reg.UpdateDatasetTarget(ctx, got, "target_table__raw_abc123", 2)
	require.NoError(t, err)

	got, err = reg.GetDataset(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "target_table__raw_abc123", got.TargetTable)
	assert.Equal(t, 2, got.HorizonWeeks)
	byName := map[string]schema.DatasetColumn{}
	for _, c := range got.Columns {
		byName[c.Name] = c
	}
	assert.True(t, byName["store_id"].IsForecastKey)
	assert.True(t, byName["sale_date"].IsDate)
	assert.True(t, byName["revenue"].IsTarget)
	assert.False(t, byName["revenue"].IsForecastKey)
}

func TestModelSelectedFeatureOrder(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	p, err := reg.CreateProject(ctx, "demand", "")
	require.NoError(t, err)

	m := &schema.Model{
		ID:             uuid.NewString(),
		ProjectID:      p.ID,
		DatasetID:      uuid.NewString(),
		FeatureStoreID: uuid.NewString(),
		Algorithm:      "gbdt",
		TaskType:       "regression",
		TargetColumn:   "revenue",
		ArtifactRef:    "local:models/x.gob",
		CreatedAt:      time.Now().UTC(),
		SelectedFeatures: []schema.SelectedFeature{
			{Name: "lag_1", Position: 2},
			{Name: "revenue_ma", Position: 0},
			{Name: "dow", Position: 1},
		},
	}
	require.NoError(t, reg.CreateModel(ctx, m))

	got, err := reg.GetModel(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 3, len(got.SelectedFeatures))
	assert.Equal(t, "revenue_ma", got.SelectedFeatures[0].Name)
	assert.Equal(t, "dow", got.SelectedFeatures[1].Name)
	assert.Equal(t, "lag_1", got.SelectedFeatures[2].Name)
}

func TestListPredictions(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	p, err := reg.CreateProject(ctx, "demand", "")
	require.NoError(t, err)

	first := &schema.Prediction{
		ID:             uuid.NewString(),
		ProjectID:      p.ID,
		DatasetID:      uuid.NewString(),
		FeatureStoreID: uuid.NewString(),
		ModelID:        uuid.NewString(),
		OutputTable:    "pred_res_a",
		CreatedAt:      time.Now().Add(-time.Minute),
	}
	second := &schema.Prediction{
		ID:             uuid.NewString(),
		ProjectID:      p.ID,
		DatasetID:      first.DatasetID,
		FeatureStoreID: first.FeatureStoreID,
		ModelID:        first.ModelID,
		OutputTable:    "pred_res_b",
		OutputRef:      "predictions/" + uuid.NewString() + ".csv",
	}
	require.NoError(t, reg.CreatePrediction(ctx, first))
	require.NoError(t, reg.CreatePrediction(ctx, second))

	preds, err := reg.ListPredictions(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 2, len(preds))
	assert.Equal(t, "pred_res_a", preds[0].OutputTable)
	assert.Equal(t, "pred_res_b", preds[1].OutputTable)
	assert.NotEmpty(t, preds[1].OutputRef)

	empty, err := reg.ListPredictions(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestJobSequencing(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()

	p, err := reg.CreateProject(ctx, "demand", "")
	require.NoError(t, err)

	j1, err := reg.StartJob(ctx, p.ID, "train")
	require.NoError(t, err)
	assert.Equal(t, schema.JobRunning, j1.Status)
	assert.Equal(t, uint(1), j1.RunSeq)

	j2, err := reg.StartJob(ctx, p.ID, "predict")
	require.NoError(t, err)
	assert.Equal(t, uint(2), j2.RunSeq)

	require.NoError(t, reg.FinishJob(ctx, j1.ID, nil))
	require.NoError(t, reg.FinishJob(ctx, j2.ID, errors.New("feature table vanished")))

	jobs, err := reg.ListJobs(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 2, len(jobs))
	assert.Equal(t, schema.JobCompleted, jobs[0].Status)
	assert.Equal(t, schema.JobFailed, jobs[1].Status)
	assert.Equal(t, "feature table vanished", jobs[1].Error)
}

func TestDeleteProjectCascade(t *testing.T) {
	reg, op := newRegistry(t)
	ctx := context.Background()

	p, err := reg.CreateProject(ctx, "demand", "")
	require.NoError(t, err)

	// Backing tables that the cascade must drop.
	cols := []db.ColumnDef{{Name: "v", Type: frame.Integer}}
	for _, table := range []string{"raw_src", "target_table__raw_src", "feat_store", "pred_res_1"} {
		require.NoError(t, op.CreateTable(ctx, table, cols))
	}

	ds := &schema.Dataset{
		ID:          uuid.NewString(),
		ProjectID:   p.ID,
		SourceTable: "raw_src",
		TargetTable: "target_table__raw_src",
		Columns:     []schema.DatasetColumn{{Name: "v", ColumnType: "INTEGER"}},
	}
	require.NoError(t, reg.CreateDataset(ctx, ds))

	fs := &schema.FeatureStore{
		ID:        uuid.NewString(),
		ProjectID: p.ID,
		DatasetID: ds.ID,
		TablePath: "feat_store",
		Statement: "SELECT * FROM {{source}}",
		Columns:   []schema.FeatureStoreColumn{{Name: "v"}},
	}
	require.NoError(t, reg.CreateFeatureStore(ctx, fs))

	m := &schema.Model{
		ID:               uuid.NewString(),
		ProjectID:        p.ID,
		DatasetID:        ds.ID,
		FeatureStoreID:   fs.ID,
		Algorithm:        "gbdt",
		TaskType:         "regression",
		TargetColumn:     "v",
		ArtifactRef:      "local:models/m.gob",
		SelectedFeatures: []schema.SelectedFeature{{Name: "v", Position: 0}},
	}
	require.NoError(t, reg.CreateModel(ctx, m))

	pred := &schema.Prediction{
		ID:             uuid.NewString(),
		ProjectID:      p.ID,
		DatasetID:      ds.ID,
		FeatureStoreID: fs.ID,
		ModelID:        m.ID,
		OutputTable:    "pred_res_1",
	}
	require.NoError(t, reg.CreatePrediction(ctx, pred))

	job, err := reg.StartJob(ctx, p.ID, "train")
	require.NoError(t, err)
	require.NoError(t, reg.FinishJob(ctx, job.ID, nil))

	require.NoError(t, reg.DeleteProject(ctx, p.ID))

	var nf *errs.NotFoundError
	_, err = reg.GetProject(ctx, p.ID)
	assert.True(t, errors.As(err, &nf))
	_, err = reg.GetDataset(ctx, ds.ID)
	assert.True(t, errors.As(err, &nf))
	_, err = reg.GetFeatureStore(ctx, fs.ID)
	assert.True(t, errors.As(err, &nf))
	_, err = reg.GetModel(ctx, m.ID)
	assert.True(t, errors.As(err, &nf))
	_, err = reg.GetPrediction(ctx, pred.ID)
	assert.True(t, errors.As(err, &nf))

	jobs, err := reg.ListJobs(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	for _, table := range []string{"raw_src", "target_table__raw_src", "feat_store", "pred_res_1"} {
		exists, err := op.TableExists(ctx, table)
		require.NoError(t, err)
		assert.False(t, exists, table)
	}

	// Deleting twice reports the project as missing.
	err = reg.DeleteProject(ctx, p.ID)
	assert.True(t, errors.As(err, &nf))
}
