// Package ioingest implements dataset ingestion: parse, create table,
// bulk insert, then register. The ordering is the contract; a failed
// insert drops the table and registers nothing.
package ioingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/horizonml/horizon/internal/ioparse"
	"github.com/horizonml/horizon/internal/ioregistry"
	"github.com/horizonml/horizon/pkg/config"
	"github.com/horizonml/horizon/pkg/db"
	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/frame"
	"github.com/horizonml/horizon/pkg/lifecycle"
	"github.com/horizonml/horizon/pkg/pipeline"
	"github.com/horizonml/horizon/pkg/schema"
)

type ingestor struct {
	op       db.Operator
	registry *ioregistry.Registry
	cfg      *config.Config
	log      *slog.Logger

	// withProgress draws a terminal progress bar during bulk insert.
	withProgress bool
}

// New creates an Ingestor. withProgress enables the terminal progress
// bar; servers and tests keep it off.
func New(
	op db.Operator,
	registry *ioregistry.Registry,
	cfg *config.Config,
	log *slog.Logger,
	withProgress bool,
) lifecycle.Ingestor {
	return &ingestor{
		op:           op,
		registry:     registry,
		cfg:          cfg,
		log:          log,
		withProgress: withProgress,
	}
}

func (ing *ingestor) Ingest(
	ctx context.Context, projectID, filename string, content []byte,
) (*schema.Dataset, error) {
	if _, err := ing.registry.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	f, err := ioparse.Parse(filename, content)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	table := pipeline.RawTableName(id)

	if err := ing.populate(ctx, table, f); err != nil {
		return nil, err
	}

	ds := &schema.Dataset{
		ID:          id,
		ProjectID:   projectID,
		SourceTable: table,
		Filename:    filename,
		CreatedAt:   time.Now().UTC(),
	}
	for _, c := range f.Columns {
		ds.Columns = append(ds.Columns, schema.DatasetColumn{
			DatasetID:  id,
			Name:       c.Name,
			ColumnType: string(c.Type),
		})
	}
	if err := ing.registry.CreateDataset(ctx, ds); err != nil {
		// The table is populated but unregistered; remove it so a
		// retry starts clean.
		if dropErr := ing.op.DropTable(ctx, table); dropErr != nil {
			ing.log.Warn("could not drop table after failed registration",
				"table", table, "error", dropErr)
		}
		return nil, err
	}

	ing.log.Info("dataset ingested",
		"dataset", id,
		"table", table,
		"rows", humanize.Comma(int64(len(f.Rows))),
	)
	return ds, nil
}

func (ing *ingestor) IngestScoring(
	ctx context.Context, datasetID, filename string, content []byte,
) (string, error) {
	training, err := ing.registry.GetDataset(ctx, datasetID)
	if err != nil {
		return "", err
	}

	f, err := ioparse.Parse(filename, content)
	if err != nil {
		return "", err
	}
	if err := matchSchema(training, f); err != nil {
		return "", err
	}

	id := uuid.NewString()
	table := pipeline.TestFileTableName(id)

	if err := ing.populate(ctx, table, f); err != nil {
		return "", err
	}

	ds := &schema.Dataset{
		ID:          id,
		ProjectID:   training.ProjectID,
		SourceTable: table,
		Filename:    filename,
		IsTestFile:  true,
		CreatedAt:   time.Now().UTC(),
	}
	for _, c := range f.Columns {
		ds.Columns = append(ds.Columns, schema.DatasetColumn{
			DatasetID:  id,
			Name:       c.Name,
			ColumnType: string(c.Type),
		})
	}
	if err := ing.registry.CreateDataset(ctx, ds); err != nil {
		if dropErr := ing.op.DropTable(ctx, table); dropErr != nil {
			ing.log.Warn("could not drop table after failed registration",
				"table", table, "error", dropErr)
		}
		return "", err
	}
	return table, nil
}

// populate creates the table and bulk-inserts all rows, dropping the
// table again if the insert fails partway.
func (ing *ingestor) populate(ctx context.Context, table string, f *frame.Frame) error {
	cols := make([]db.ColumnDef, len(f.Columns))
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		cols[i] = db.ColumnDef{Name: c.Name, Type: c.Type}
		names[i] = c.Name
	}

	if err := ing.op.CreateTable(ctx, table, cols); err != nil {
		return &errs.SchemaError{
			Reason: fmt.Sprintf("creating table %s", table), Err: err,
		}
	}

	var progress db.Progress
	var bar *pb.ProgressBar
	if ing.withProgress && len(f.Rows) > 0 {
		bar = pb.Full.Start(len(f.Rows))
		bar.Set("prefix", "inserting rows ")
		bar.Set(pb.CleanOnFinish, true)
		progress = func(rows int) { bar.SetCurrent(int64(rows)) }
	}

	_, err := ing.op.BulkInsert(
		ctx, table, names, f.Rows, ing.cfg.Database.BatchSize, progress)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		if dropErr := ing.op.DropTable(ctx, table); dropErr != nil {
			ing.log.Warn("could not drop table after failed insert",
				"table", table, "error", dropErr)
		}
		return &errs.SchemaError{
			Reason: fmt.Sprintf("populating table %s", table), Err: err,
		}
	}
	return nil
}

// matchSchema verifies a scoring upload has every column of the
// training dataset with the same inferred type. Extra columns are
// allowed; the stored feature SQL simply ignores them.
func matchSchema(training *schema.Dataset, f *frame.Frame) error {
	byName := make(map[string]frame.Type, len(f.Columns))
	for _, c := range f.Columns {
		byName[c.Name] = c.Type
	}
	for _, c := range training.Columns {
		t, ok := byName[c.Name]
		if !ok {
			return &errs.ValidationError{
				Reason: fmt.Sprintf(
					"scoring file is missing training column %q", c.Name),
			}
		}
		if string(t) != c.ColumnType {
			return &errs.ValidationError{
				Reason: fmt.Sprintf(
					"scoring column %q is %s, training expects %s",
					c.Name, t, c.ColumnType),
			}
		}
	}
	return nil
}
