// Package iopredict replays a stored feature definition against a
// scoring dataset and scores it with a trained model. The run is a
// fixed sequence: materialize features, load the artifact, check the
// selected columns, score, persist the output with lineage.
package iopredict

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
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
	"github.com/horizonml/horizon/pkg/pipeline"
	"github.com/horizonml/horizon/pkg/schema"
)

type predictor struct {
	op       db.Operator
	registry *ioregistry.Registry
	store    blob.Store
	cfg      *config.Config
	log      *slog.Logger
}

// New creates a Predictor.
func New(
	op db.Operator,
	registry *ioregistry.Registry,
	store blob.Store,
	cfg *config.Config,
	log *slog.Logger,
) lifecycle.Predictor {
	return &predictor{op: op, registry: registry, store: store, cfg: cfg, log: log}
}

func (p *predictor) Predict(
	ctx context.Context, modelID, scoringTable string,
) (*lifecycle.PredictResult, error) {
	model, err := p.registry.GetModel(ctx, modelID)
	if err != nil {
		return nil, err
	}

	job, err := p.registry.StartJob(ctx, model.ProjectID, "predict")
	if err != nil {
		return nil, err
	}
	res, err := p.predict(ctx, model, scoringTable)
	if finishErr := p.registry.FinishJob(ctx, job.ID, err); finishErr != nil {
		p.log.Warn("could not finalize job record",
			"job", job.ID, "error", finishErr)
	}
	return res, err
}

func (p *predictor) predict(
	ctx context.Context, model *schema.Model, scoringTable string,
) (*lifecycle.PredictResult, error) {
	fs, err := p.registry.GetFeatureStore(ctx, model.FeatureStoreID)
	if err != nil {
		return nil, err
	}

	// Replay the stored definition with the source rewritten to the
	// scoring table. This is what guarantees feature parity between
	// training and scoring.
	featTable := pipeline.NewScoringFeaturesName()
	def := pipeline.NewFeatureDefinition(fs.Statement)
	sql, err := def.Render(scoringTable, featTable)
	if err != nil {
		return nil, err
	}
	if err := p.op.Exec(ctx, sql); err != nil {
		return nil, &errs.MaterializationError{Table: featTable, Err: err}
	}

	d := p.op.Dialect()
	f, err := p.op.QueryFrame(ctx, "SELECT * FROM "+d.QuoteIdent(featTable))
	if err != nil {
		return nil, &errs.MaterializationError{Table: featTable, Err: err}
	}

	selected := make([]string, len(model.SelectedFeatures))
	for i, sf := range model.SelectedFeatures {
		selected[i] = sf.Name
	}
	if missing := missingColumns(f, selected); len(missing) > 0 {
		return nil, &errs.ValidationError{
			Reason: fmt.Sprintf(
				"scoring features are missing selected columns: %s",
				strings.Join(missing, ", ")),
		}
	}

	gbdt, err := p.loadArtifact(ctx, model.ArtifactRef)
	if err != nil {
		return nil, err
	}

	x, err := f.Matrix(selected)
	if err != nil {
		return nil, err
	}
	fillMissing(x)
	pred := gbdt.Predict(x)

	out := assembleOutput(f, gbdt, model.TargetColumn, pred)
	resultTable, err := p.persistOutput(ctx, out)
	if err != nil {
		return nil, err
	}

	predictionID := uuid.NewString()
	rec := &schema.Prediction{
		ID:             predictionID,
		ProjectID:      model.ProjectID,
		DatasetID:      model.DatasetID,
		FeatureStoreID: model.FeatureStoreID,
		ModelID:        model.ID,
		OutputTable:    resultTable,
		OutputRef:      p.exportOutput(ctx, predictionID, out),
		CreatedAt:      time.Now().UTC(),
	}
	if err := p.registry.CreatePrediction(ctx, rec); err != nil {
		return nil, err
	}

	p.log.Info("prediction completed",
		"prediction", rec.ID,
		"model", model.ID,
		"rows", len(out.Rows),
		"table", resultTable,
	)
	return &lifecycle.PredictResult{Prediction: rec, Rows: out}, nil
}

// exportOutput stores a CSV rendering of the output so results survive
// the result table being dropped. A failed export never fails the run,
// it just leaves OutputRef empty.
func (p *predictor) exportOutput(
	ctx context.Context, predictionID string, out *frame.Frame,
) string {
	data, err := outputCSV(out)
	if err != nil {
		p.log.Warn("could not assemble prediction export",
			"prediction", predictionID, "error", err)
		return ""
	}
	ref, err := p.store.Put(ctx, "predictions/"+predictionID+".csv", data)
	if err != nil {
		p.log.Warn("could not store prediction export",
			"prediction", predictionID, "error", err)
		return ""
	}
	return ref
}

func outputCSV(f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(f.ColumnNames()); err != nil {
		return nil, err
	}
	for _, row := range f.Rows {
		rec := make([]string, len(row))
		for i, cell := range row {
			if cell == nil {
				continue
			}
			switch v := cell.(type) {
			case time.Time:
				rec[i] = v.Format(time.RFC3339)
			case float64:
				rec[i] = strconv.FormatFloat(v, 'g', -1, 64)
			default:
				rec[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// loadArtifact fetches and decodes the model artifact. The store
// already falls back to the local cache on remote failure; an error
// here means neither copy resolved.
func (p *predictor) loadArtifact(ctx context.Context, ref string) (*ml.GBDT, error) {
	data, err := p.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return ml.Decode(data)
}

// assembleOutput keeps every scoring feature column, an actual column
// when the original target is present, and the predicted column. One
// output row per scoring row; nothing is dropped.
func assembleOutput(
	f *frame.Frame, gbdt *ml.GBDT, targetColumn string, pred []float64,
) *frame.Frame {
	predType := frame.Float
	if gbdt.Task == ml.TaskClassification {
		predType = frame.Varchar
	}

	out := &frame.Frame{
		Columns: append(
			append([]frame.Column{}, f.Columns...),
			frame.Column{Name: "predicted_" + targetColumn, Type: predType},
		),
	}
	for i, row := range f.Rows {
		var cell any
		if gbdt.Task == ml.TaskClassification {
			cell = gbdt.Classes[int(pred[i])]
		} else {
			cell = pred[i]
		}
		out.Rows = append(out.Rows, append(append([]any{}, row...), cell))
	}
	return out
}

func (p *predictor) persistOutput(ctx context.Context, out *frame.Frame) (string, error) {
	table := pipeline.NewResultTableName()

	cols := make([]db.ColumnDef, len(out.Columns))
	names := make([]string, len(out.Columns))
	for i, c := range out.Columns {
		cols[i] = db.ColumnDef{Name: c.Name, Type: c.Type}
		names[i] = c.Name
	}
	if err := p.op.CreateTable(ctx, table, cols); err != nil {
		return "", &errs.MaterializationError{Table: table, Err: err}
	}
	_, err := p.op.BulkInsert(
		ctx, table, names, out.Rows, p.cfg.Database.BatchSize, nil)
	if err != nil {
		return "", &errs.MaterializationError{Table: table, Err: err}
	}
	return table, nil
}

func missingColumns(f *frame.Frame, wanted []string) []string {
	var missing []string
	for _, c := range wanted {
		if f.ColumnIndex(c) < 0 {
			missing = append(missing, c)
		}
	}
	return missing
}

func fillMissing(x [][]float64) {
	for _, row := range x {
		for j, v := range row {
			if math.IsNaN(v) {
				row[j] = 0
			}
		}
	}
}
