package iopredict_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/horizonml/horizon/internal/ioblob"
	"github.com/horizonml/horizon/internal/iofeature"
	"github.com/horizonml/horizon/internal/ioingest"
	"github.com/horizonml/horizon/internal/iomodel"
	"github.com/horizonml/horizon/internal/iopredict"
	"github.com/horizonml/horizon/internal/ioregistry"
	"github.com/horizonml/horizon/internal/iotarget"
	"github.com/horizonml/horizon/internal/iotesting"
	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/frame"
	"github.com/horizonml/horizon/pkg/pipeline"
	"github.com/horizonml/horizon/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// weeklyCSV renders an id,ts,value upload: two entities observed weekly
// from start, with a per-entity level plus a linear trend.
func weeklyCSV(start time.Time, weeks int) []byte {
	var b strings.Builder
	b.WriteString("id,ts,value\n")
	for id := 1; id <= 2; id++ {
		for w := 0; w < weeks; w++ {
			day := start.AddDate(0, 0, 7*w)
			value := float64(id)*10 + 1.5*float64(w)
			fmt.Fprintf(&b, "%d,%s,%.2f\n", id, day.Format("2006-01-02"), value)
		}
	}
	return []byte(b.String())
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	op := iotesting.LiteOperator(t)
	cfg := iotesting.TestConfig()
	log := iotesting.Logger()

	reg, err := ioregistry.New(op, log)
	require.NoError(t, err)
	store, err := ioblob.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ing := ioingest.New(op, reg, cfg, log, false)
	project, err := reg.CreateProject(ctx, "weekly-demand", "")
	require.NoError(t, err)

	// Ingest: 2 entities, 14 weekly observations each.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ds, err := ing.Ingest(ctx, project.ID, "sales.csv", weeklyCSV(start, 14))
	require.NoError(t, err)
	types := map[string]string{}
	for _, c := range ds.Columns {
		types[c.Name] = c.ColumnType
	}
	assert.Equal(t, "INTEGER", types["id"])
	assert.Equal(t, "TIMESTAMP", types["ts"])
	assert.Equal(t, "FLOAT", types["value"])

	// Target construction at a one-week horizon. The last observation
	// of each entity has no row seven days ahead, so it yields no label.
	roles, err := pipeline.NewRoleAssignment("id", "ts", "value", nil)
	require.NoError(t, err)
	ds, err = iotarget.New(op, reg, log).Build(ctx, ds.ID, roles, 1)
	require.NoError(t, err)
	require.NotEmpty(t, ds.TargetTable)

	tf, err := op.QueryFrame(ctx, `SELECT * FROM "`+ds.TargetTable+`"`)
	require.NoError(t, err)
	assert.Equal(t, 2*13, len(tf.Rows))
	assert.Equal(t,
		[]string{"id", "ts", "forecasting_date", "forecasting_target_value"},
		tf.ColumnNames())

	// Materialize a feature table straight off the raw upload, so the
	// same statement replays against scoring uploads.
	def := pipeline.NewFeatureDefinition(
		`CREATE TABLE {{destination}} AS SELECT "id", "ts", "value" FROM {{source}}`)
	mat := iofeature.New(op, reg, cfg, log)
	matRes, err := mat.Materialize(ctx, project.ID, ds.ID, def,
		ds.SourceTable, pipeline.NewFeatureTableName())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "ts", "value"}, matRes.Columns)
	assert.Equal(t, def.Template, matRes.FeatureStore.Statement)

	// Train a regression model on the materialized table.
	trainer := iomodel.New(op, reg, store, nil, cfg, log)
	trainRes, err := trainer.Train(ctx, matRes.FeatureStore.ID, "value")
	require.NoError(t, err)
	assert.Equal(t, "regression", trainRes.Model.TaskType)
	assert.Equal(t, []string{"id"}, trainRes.SelectedFeatures)
	assert.GreaterOrEqual(t, trainRes.TestingMetrics["rmse"], 0.0)
	assert.NotEmpty(t, trainRes.Model.ArtifactRef)

	// Scoring upload: same schema, shifted 30 days later.
	scoringTable, err := ing.IngestScoring(ctx, ds.ID, "sales_new.csv",
		weeklyCSV(start.AddDate(0, 0, 30), 5))
	require.NoError(t, err)

	predictor := iopredict.New(op, reg, store, cfg, log)
	predRes, err := predictor.Predict(ctx, trainRes.Model.ID, scoringTable)
	require.NoError(t, err)

	// One predicted value per scoring row, none dropped.
	require.Equal(t, 2*5, len(predRes.Rows.Rows))
	predIdx := predRes.Rows.ColumnIndex("predicted_value")
	require.GreaterOrEqual(t, predIdx, 0)
	assert.Equal(t, frame.Float, predRes.Rows.Columns[predIdx].Type)
	for _, row := range predRes.Rows.Rows {
		_, ok := row[predIdx].(float64)
		assert.True(t, ok, "every scoring row gets a numeric prediction")
	}

	// The output table is persisted and the run is recorded.
	exists, err := op.TableExists(ctx, predRes.Prediction.OutputTable)
	require.NoError(t, err)
	assert.True(t, exists)
	got, err := reg.GetPrediction(ctx, predRes.Prediction.ID)
	require.NoError(t, err)
	assert.Equal(t, trainRes.Model.ID, got.ModelID)

	// The CSV export landed in the artifact store.
	require.NotEmpty(t, got.OutputRef)
	data, err := store.Get(ctx, got.OutputRef)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,ts,value,predicted_value\n"))

	// Both slow stages left completed job records in run order.
	jobs, err := reg.ListJobs(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, 2, len(jobs))
	assert.Equal(t, "train", jobs[0].Kind)
	assert.Equal(t, "predict", jobs[1].Kind)
	for _, j := range jobs {
		assert.Equal(t, schema.JobCompleted, j.Status)
	}
}

func TestPredictScoringSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	op := iotesting.LiteOperator(t)
	cfg := iotesting.TestConfig()
	log := iotesting.Logger()

	reg, err := ioregistry.New(op, log)
	require.NoError(t, err)
	ing := ioingest.New(op, reg, cfg, log, false)

	project, err := reg.CreateProject(ctx, "weekly-demand", "")
	require.NoError(t, err)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ds, err := ing.Ingest(ctx, project.ID, "sales.csv", weeklyCSV(start, 4))
	require.NoError(t, err)

	// A scoring upload missing the value column is rejected up front.
	_, err = ing.IngestScoring(ctx, ds.ID, "bad.csv",
		[]byte("id,ts\n1,2024-02-01\n"))
	var ve *errs.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Reason, "value")
}

func TestPredictUnknownModel(t *testing.T) {
	ctx := context.Background()
	op := iotesting.LiteOperator(t)
	cfg := iotesting.TestConfig()
	log := iotesting.Logger()

	reg, err := ioregistry.New(op, log)
	require.NoError(t, err)
	store, err := ioblob.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = iopredict.New(op, reg, store, cfg, log).
		Predict(ctx, "nope", "some_table")
	var nf *errs.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "model", nf.Kind)
}
