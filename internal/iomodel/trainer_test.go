package iomodel_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/horizonml/horizon/internal/ioblob"
	"github.com/horizonml/horizon/internal/iomodel"
	"github.com/horizonml/horizon/internal/ioregistry"
	"github.com/horizonml/horizon/internal/iotesting"
	"github.com/horizonml/horizon/pkg/blob"
	"github.com/horizonml/horizon/pkg/db"
	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/frame"
	"github.com/horizonml/horizon/pkg/lifecycle"
	"github.com/horizonml/horizon/pkg/ml"
	"github.com/horizonml/horizon/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	op    db.Operator
	reg   *ioregistry.Registry
	store blob.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	op := iotesting.LiteOperator(t)
	reg, err := ioregistry.New(op, iotesting.Logger())
	require.NoError(t, err)
	store, err := ioblob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return &fixture{op: op, reg: reg, store: store}
}

func (fx *fixture) trainer(t *testing.T, fallback blob.Store) lifecycle.Trainer {
	t.Helper()
	return iomodel.New(fx.op, fx.reg, fx.store, fallback, iotesting.TestConfig(), iotesting.Logger())
}

// seedFeatureStore creates a populated feature table plus its metadata
// record, bypassing the materializer.
func (fx *fixture) seedFeatureStore(
	t *testing.T, cols []db.ColumnDef, rows [][]any,
) *schema.FeatureStore {
	t.Helper()
	ctx := context.Background()

	p, err := fx.reg.CreateProject(ctx, "p", "")
	require.NoError(t, err)

	table := "feat_" + uuid.NewString()[:8]
	require.NoError(t, fx.op.CreateTable(ctx, table, cols))
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	_, err = fx.op.BulkInsert(ctx, table, names, rows, 500, nil)
	require.NoError(t, err)

	fs := &schema.FeatureStore{
		ID:        uuid.NewString(),
		ProjectID: p.ID,
		DatasetID: uuid.NewString(),
		TablePath: table,
		Statement: `CREATE TABLE {{destination}} AS SELECT * FROM {{source}}`,
	}
	require.NoError(t, fx.reg.CreateFeatureStore(ctx, fs))
	return fs
}

func regressionRows(n int) ([]db.ColumnDef, [][]any) {
	cols := []db.ColumnDef{
		{Name: "x1", Type: frame.Float},
		{Name: "x2", Type: frame.Float},
		{Name: "y", Type: frame.Float},
	}
	rng := rand.New(rand.NewSource(7))
	rows := make([][]any, n)
	for i := range rows {
		x1 := rng.Float64() * 10
		x2 := rng.NormFloat64()
		rows[i] = []any{x1, x2, 3*x1 + rng.NormFloat64()*0.1}
	}
	return cols, rows
}

func TestTrainRegression(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	cols, rows := regressionRows(120)
	fs := fx.seedFeatureStore(t, cols, rows)

	res, err := fx.trainer(t, nil).Train(ctx, fs.ID, "y")
	require.NoError(t, err)

	assert.Equal(t, "regression", res.Model.TaskType)
	assert.Equal(t, "gbdt", res.Model.Algorithm)
	assert.Contains(t, res.SelectedFeatures, "x1")
	assert.GreaterOrEqual(t, res.TestingMetrics["rmse"], 0.0)
	assert.Less(t, res.TestingMetrics["rmse"], 5.0)
	assert.Greater(t, res.TrainingMetrics["r2"], 0.8)

	// Metrics are stored as JSON on the model record.
	var stored map[string]float64
	require.NoError(t, json.Unmarshal([]byte(res.Model.TestingMetrics), &stored))
	assert.InDelta(t, res.TestingMetrics["rmse"], stored["rmse"], 1e-9)

	// The artifact round-trips into a usable model.
	data, err := fx.store.Get(ctx, res.Model.ArtifactRef)
	require.NoError(t, err)
	gbdt, err := ml.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, ml.TaskRegression, gbdt.Task)

	got, err := fx.reg.GetModel(ctx, res.Model.ID)
	require.NoError(t, err)
	assert.Equal(t, len(res.SelectedFeatures), len(got.SelectedFeatures))
}

func TestTrainClassification(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	cols := []db.ColumnDef{
		{Name: "x1", Type: frame.Float},
		{Name: "label", Type: frame.Varchar},
	}
	rng := rand.New(rand.NewSource(11))
	var rows [][]any
	for i := 0; i < 100; i++ {
		x1 := rng.NormFloat64()
		label := "low"
		if x1 > 0 {
			label = "high"
		}
		rows = append(rows, []any{x1, label})
	}
	fs := fx.seedFeatureStore(t, cols, rows)

	res, err := fx.trainer(t, nil).Train(ctx, fs.ID, "label")
	require.NoError(t, err)
	assert.Equal(t, "classification", res.Model.TaskType)
	assert.Greater(t, res.TrainingMetrics["accuracy"], 0.85)
	assert.GreaterOrEqual(t, res.TestingMetrics["f1"], 0.0)
}

func TestTrainLowCardinalityIntegerTarget(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	cols := []db.ColumnDef{
		{Name: "x1", Type: frame.Float},
		{Name: "grade", Type: frame.Integer},
	}
	rng := rand.New(rand.NewSource(3))
	var rows [][]any
	for i := 0; i < 80; i++ {
		x1 := rng.Float64()
		grade := int64(0)
		if x1 > 0.5 {
			grade = 1
		}
		rows = append(rows, []any{x1, grade})
	}
	fs := fx.seedFeatureStore(t, cols, rows)

	res, err := fx.trainer(t, nil).Train(ctx, fs.ID, "grade")
	require.NoError(t, err)
	assert.Equal(t, "classification", res.Model.TaskType)
}

func TestTrainErrorPaths(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	tr := fx.trainer(t, nil)

	t.Run("unknown feature store", func(t *testing.T) {
		_, err := tr.Train(ctx, "absent", "y")
		var nf *errs.NotFoundError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("missing target column", func(t *testing.T) {
		cols, rows := regressionRows(30)
		fs := fx.seedFeatureStore(t, cols, rows)
		_, err := tr.Train(ctx, fs.ID, "nope")
		var ve *errs.ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("too few rows", func(t *testing.T) {
		cols, rows := regressionRows(5)
		fs := fx.seedFeatureStore(t, cols, rows)
		_, err := tr.Train(ctx, fs.ID, "y")
		var te *errs.TrainingError
		require.True(t, errors.As(err, &te))
		assert.Contains(t, te.Reason, "usable rows")
	})

	t.Run("nil targets are dropped before the row check", func(t *testing.T) {
		cols, rows := regressionRows(20)
		for i := 8; i < 20; i++ {
			rows[i][2] = nil
		}
		fs := fx.seedFeatureStore(t, cols, rows)
		_, err := tr.Train(ctx, fs.ID, "y")
		var te *errs.TrainingError
		require.True(t, errors.As(err, &te))
	})

	t.Run("degenerate target", func(t *testing.T) {
		cols := []db.ColumnDef{
			{Name: "x1", Type: frame.Float},
			{Name: "label", Type: frame.Varchar},
		}
		var rows [][]any
		for i := 0; i < 30; i++ {
			rows = append(rows, []any{float64(i), "same"})
		}
		fs := fx.seedFeatureStore(t, cols, rows)
		_, err := tr.Train(ctx, fs.ID, "label")
		var te *errs.TrainingError
		require.True(t, errors.As(err, &te))
		assert.Contains(t, te.Reason, "degenerate")
	})
}

// failingStore rejects every write, standing in for an unreachable
// remote artifact store.
type failingStore struct{}

func (failingStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	return "", fmt.Errorf("remote store unavailable")
}

func (failingStore) Get(ctx context.Context, ref string) ([]byte, error) {
	return nil, fmt.Errorf("remote store unavailable")
}

func (failingStore) Delete(ctx context.Context, ref string) error {
	return fmt.Errorf("remote store unavailable")
}

func TestTrainArtifactFallback(t *testing.T) {
	op := iotesting.LiteOperator(t)
	reg, err := ioregistry.New(op, iotesting.Logger())
	require.NoError(t, err)
	local, err := ioblob.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	fx := &fixture{op: op, reg: reg, store: failingStore{}}
	cols, rows := regressionRows(60)
	fs := fx.seedFeatureStore(t, cols, rows)

	tr := iomodel.New(op, reg, failingStore{}, local, iotesting.TestConfig(), iotesting.Logger())
	res, err := tr.Train(context.Background(), fs.ID, "y")
	require.NoError(t, err)

	// The artifact landed in the fallback store and still decodes.
	data, err := local.Get(context.Background(), res.Model.ArtifactRef)
	require.NoError(t, err)
	gbdt, err := ml.Decode(data)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(gbdt.PredictValue(make([]float64, len(res.SelectedFeatures)))))
}

func TestTrainFailedJobIsRecorded(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	cols, rows := regressionRows(5)
	fs := fx.seedFeatureStore(t, cols, rows)
	_, err := fx.trainer(t, nil).Train(ctx, fs.ID, "y")
	require.Error(t, err)

	jobs, err := fx.reg.ListJobs(ctx, fs.ProjectID)
	require.NoError(t, err)
	require.Equal(t, 1, len(jobs))
	assert.Equal(t, schema.JobFailed, jobs[0].Status)
	assert.NotEmpty(t, jobs[0].Error)
}
