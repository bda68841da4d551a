// Package iomodel runs the train/evaluate/persist lifecycle: feature
// selection, chronological split, boosted-tree fit, metric evaluation
// and artifact storage.
package iomodel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/horizonml/horizon/internal/ioregistry"
	"github.com/horizonml/horizon/pkg/blob"
	"github.com/horizonml/horizon/pkg/config"
	"github.com/horizonml/horizon/pkg/db"
	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/frame"
	"github.com/horizonml/horizon/pkg/lifecycle"
	"github.com/horizonml/horizon/pkg/ml"
	"github.com/horizonml/horizon/pkg/schema"
	"github.com/horizonml/horizon/pkg/selection"
)

// minTrainingRows guards against degenerate fits after the temporal
// join has dropped tail rows.
const minTrainingRows = 10

// classificationCardinality is the distinct-value cutoff below which an
// integer target is treated as categorical.
const classificationCardinality = 10

type trainer struct {
	op       db.Operator
	registry *ioregistry.Registry
	store    blob.Store
	fallback blob.Store
	cfg      *config.Config
	log      *slog.Logger
}

// New creates a Trainer. fallback is the local-only store used when
// the primary artifact store rejects a write; pass nil to disable the
// fallback (the write error then surfaces directly).
func New(
	op db.Operator,
	registry *ioregistry.Registry,
	store blob.Store,
	fallback blob.Store,
	cfg *config.Config,
	log *slog.Logger,
) lifecycle.Trainer {
	return &trainer{
		op:       op,
		registry: registry,
		store:    store,
		fallback: fallback,
		cfg:      cfg,
		log:      log,
	}
}

func (t *trainer) Train(
	ctx context.Context, featureStoreID, targetColumn string,
) (*lifecycle.TrainResult, error) {
	fs, err := t.registry.GetFeatureStore(ctx, featureStoreID)
	if err != nil {
		return nil, err
	}

	job, err := t.registry.StartJob(ctx, fs.ProjectID, "train")
	if err != nil {
		return nil, err
	}
	res, err := t.train(ctx, fs, targetColumn)
	if finishErr := t.registry.FinishJob(ctx, job.ID, err); finishErr != nil {
		t.log.Warn("could not finalize job record",
			"job", job.ID, "error", finishErr)
	}
	return res, err
}

func (t *trainer) train(
	ctx context.Context, fs *schema.FeatureStore, targetColumn string,
) (*lifecycle.TrainResult, error) {
	d := t.op.Dialect()
	f, err := t.op.QueryFrame(ctx,
		"SELECT * FROM "+d.QuoteIdent(fs.TablePath))
	if err != nil {
		return nil, &errs.TrainingError{
			Reason: "loading feature table " + fs.TablePath, Err: err,
		}
	}

	targetIdx := f.ColumnIndex(targetColumn)
	if targetIdx < 0 {
		return nil, &errs.ValidationError{
			Reason: fmt.Sprintf(
				"target column %q is not in feature table %s",
				targetColumn, fs.TablePath),
		}
	}

	// Chronological ordering before the split; without it the holdout
	// would leak future rows into training.
	if f.ColumnIndex("date") >= 0 {
		if err := f.SortByColumn("date"); err != nil {
			return nil, err
		}
	}
	dropRowsWithNilTarget(f, targetIdx)
	if len(f.Rows) < minTrainingRows {
		return nil, &errs.TrainingError{
			Reason: fmt.Sprintf(
				"only %d usable rows after the temporal join, need at least %d",
				len(f.Rows), minTrainingRows),
		}
	}

	task, classes, y, err := targetVector(f, targetIdx)
	if err != nil {
		return nil, err
	}

	var featureCols []string
	for _, c := range f.NumericColumns() {
		if c != targetColumn {
			featureCols = append(featureCols, c)
		}
	}

	x, err := f.Matrix(featureCols)
	if err != nil {
		return nil, err
	}
	fillMissing(x)

	sel, err := selection.Select(x, featureCols, y, t.cfg.Selection)
	if err != nil {
		return nil, err
	}
	xSel, err := f.Matrix(sel.Features)
	if err != nil {
		return nil, err
	}
	fillMissing(xSel)

	split := int(float64(len(xSel)) * (1 - t.cfg.Training.ValidationFraction))
	if split < 1 || split >= len(xSel) {
		return nil, &errs.TrainingError{
			Reason: "validation fraction leaves an empty fold",
		}
	}
	xTrain, yTrain := xSel[:split], y[:split]
	xVal, yVal := xSel[split:], y[split:]

	model, err := ml.FitGBDT(task, classes, xTrain, yTrain, xVal, yVal, ml.GBDTConfig{
		MaxRounds:     t.cfg.Training.MaxRounds,
		LearningRate:  t.cfg.Training.LearningRate,
		MaxDepth:      t.cfg.Training.MaxDepth,
		Subsample:     t.cfg.Training.Subsample,
		ColSample:     t.cfg.Training.ColSample,
		EarlyStopping: t.cfg.Training.EarlyStopping,
		Seed:          t.cfg.Training.Seed,
	})
	if err != nil {
		return nil, err
	}

	trainMetrics := evaluate(model, task, xTrain, yTrain, len(classes))
	testMetrics := evaluate(model, task, xVal, yVal, len(classes))

	modelID := uuid.NewString()
	artifactRef, err := t.putArtifact(ctx, "models/"+modelID+".gob", model)
	if err != nil {
		return nil, err
	}
	predictionsRef := t.putTrainingPredictions(ctx, modelID, model, sel.Features, xSel, y)

	rec := &schema.Model{
		ID:                     modelID,
		ProjectID:              fs.ProjectID,
		DatasetID:              fs.DatasetID,
		FeatureStoreID:         fs.ID,
		Algorithm:              "gbdt",
		TaskType:               task,
		TargetColumn:           targetColumn,
		TrainingMetrics:        marshalMetrics(trainMetrics),
		TestingMetrics:         marshalMetrics(testMetrics),
		ArtifactRef:            artifactRef,
		TrainingPredictionsRef: predictionsRef,
		CreatedAt:              time.Now().UTC(),
	}
	for i, name := range sel.Features {
		rec.SelectedFeatures = append(rec.SelectedFeatures, schema.SelectedFeature{
			ModelID:  modelID,
			Name:     name,
			Position: i,
		})
	}
	if err := t.registry.CreateModel(ctx, rec); err != nil {
		return nil, err
	}

	t.log.Info("model trained",
		"model", modelID,
		"task", task,
		"rounds", model.NumRounds(),
		"features", len(sel.Features),
		"artifact", artifactRef,
	)
	return &lifecycle.TrainResult{
		Model:            rec,
		SelectedFeatures: sel.Features,
		TrainingMetrics:  trainMetrics,
		TestingMetrics:   testMetrics,
	}, nil
}

// putArtifact stores the encoded model, falling back to the local store
// when the primary write fails. Returns the reference of whichever
// store took the artifact; the failure is never silently dropped.
func (t *trainer) putArtifact(
	ctx context.Context, key string, model *ml.GBDT,
) (string, error) {
	data, err := ml.Encode(model)
	if err != nil {
		return "", err
	}
	ref, err := t.store.Put(ctx, key, data)
	if err == nil {
		return ref, nil
	}
	if t.fallback == nil {
		return "", err
	}
	t.log.Warn("artifact store write failed, keeping a local-only copy",
		"key", key, "error", err)
	return t.fallback.Put(ctx, key, data)
}

func (t *trainer) putTrainingPredictions(
	ctx context.Context,
	modelID string,
	model *ml.GBDT,
	features []string,
	x [][]float64,
	y []float64,
) string {
	data, err := trainingPredictionsCSV(model, features, x, y)
	if err != nil {
		t.log.Warn("could not assemble training predictions export",
			"model", modelID, "error", err)
		return ""
	}
	key := "models/" + modelID + "_training_predictions.csv"
	ref, err := t.store.Put(ctx, key, data)
	if err != nil && t.fallback != nil {
		ref, err = t.fallback.Put(ctx, key, data)
	}
	if err != nil {
		t.log.Warn("could not store training predictions export",
			"model", modelID, "error", err)
		return ""
	}
	return ref
}

// targetVector decides the task type and encodes y. VARCHAR targets and
// low-cardinality integer targets are classification; everything else
// regresses. Class labels are sorted for a stable encoding.
func targetVector(f *frame.Frame, targetIdx int) (string, []string, []float64, error) {
	col := f.Columns[targetIdx]

	if col.Type == frame.Float {
		return ml.TaskRegression, nil, floatTarget(f, targetIdx), nil
	}

	labels := make([]string, len(f.Rows))
	distinct := make(map[string]bool)
	for i, row := range f.Rows {
		labels[i] = fmt.Sprintf("%v", row[targetIdx])
		distinct[labels[i]] = true
	}

	if col.Type == frame.Integer && len(distinct) > classificationCardinality {
		return ml.TaskRegression, nil, floatTarget(f, targetIdx), nil
	}
	if col.Type == frame.Timestamp {
		return "", nil, nil, &errs.TrainingError{
			Reason: "target column is a timestamp",
		}
	}
	if len(distinct) < 2 {
		return "", nil, nil, &errs.TrainingError{
			Reason: "target column is degenerate, every row has the same value",
		}
	}

	classes := make([]string, 0, len(distinct))
	for label := range distinct {
		classes = append(classes, label)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, label := range classes {
		index[label] = i
	}
	y := make([]float64, len(labels))
	for i, label := range labels {
		y[i] = float64(index[label])
	}
	return ml.TaskClassification, classes, y, nil
}

func floatTarget(f *frame.Frame, idx int) []float64 {
	y := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		switch v := row[idx].(type) {
		case float64:
			y[i] = v
		case int64:
			y[i] = float64(v)
		}
	}
	return y
}

func dropRowsWithNilTarget(f *frame.Frame, targetIdx int) {
	kept := f.Rows[:0]
	for _, row := range f.Rows {
		if row[targetIdx] != nil {
			kept = append(kept, row)
		}
	}
	f.Rows = kept
}

// fillMissing replaces NaN cells with zero, the pipeline's documented
// missing-value policy.
func fillMissing(x [][]float64) {
	for _, row := range x {
		for j, v := range row {
			if math.IsNaN(v) {
				row[j] = 0
			}
		}
	}
}

func evaluate(
	model *ml.GBDT, task string, x [][]float64, y []float64, nClasses int,
) map[string]float64 {
	pred := model.Predict(x)
	if task == ml.TaskClassification {
		m := ml.EvaluateClassification(pred, y, nClasses)
		return map[string]float64{
			"accuracy":  m.Accuracy,
			"f1":        m.F1,
			"precision": m.Precision,
			"recall":    m.Recall,
		}
	}
	m := ml.EvaluateRegression(pred, y)
	return map[string]float64{
		"rmse": m.RMSE,
		"r2":   m.R2,
	}
}

func marshalMetrics(m map[string]float64) string {
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}
