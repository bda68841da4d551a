// Package iofeature executes feature definitions against the store and
// records lineage for replay during scoring.
package iofeature

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/horizonml/horizon/internal/ioregistry"
	"github.com/horizonml/horizon/pkg/config"
	"github.com/horizonml/horizon/pkg/db"
	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/lifecycle"
	"github.com/horizonml/horizon/pkg/pipeline"
	"github.com/horizonml/horizon/pkg/schema"
	"golang.org/x/sync/errgroup"
)

type materializer struct {
	op       db.Operator
	registry *ioregistry.Registry
	cfg      *config.Config
	log      *slog.Logger
}

// New creates a Materializer.
func New(
	op db.Operator,
	registry *ioregistry.Registry,
	cfg *config.Config,
	log *slog.Logger,
) lifecycle.Materializer {
	return &materializer{op: op, registry: registry, cfg: cfg, log: log}
}

func (m *materializer) Materialize(
	ctx context.Context,
	projectID, datasetID string,
	def pipeline.FeatureDefinition,
	sourceTable, destTable string,
) (*lifecycle.MaterializeResult, error) {
	sql, err := def.Render(sourceTable, destTable)
	if err != nil {
		return nil, err
	}

	if err := m.op.Exec(ctx, sql); err != nil {
		return nil, &errs.MaterializationError{Table: destTable, Err: err}
	}

	cols, err := m.sampleColumns(ctx, destTable)
	if err != nil {
		return nil, &errs.MaterializationError{Table: destTable, Err: err}
	}

	fs := &schema.FeatureStore{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		DatasetID: datasetID,
		TablePath: destTable,
		Statement: def.Template,
		CreatedAt: time.Now().UTC(),
	}
	for _, c := range cols {
		fs.Columns = append(fs.Columns, schema.FeatureStoreColumn{
			FeatureStoreID: fs.ID,
			Name:           c,
		})
	}
	if err := m.registry.CreateFeatureStore(ctx, fs); err != nil {
		return nil, err
	}

	m.log.Info("feature store materialized",
		"feature_store", fs.ID,
		"table", destTable,
		"columns", len(cols),
	)
	return &lifecycle.MaterializeResult{FeatureStore: fs, Columns: cols}, nil
}

// sampleColumns reads one row from the destination to discover its
// column set. An empty table still yields its field names.
func (m *materializer) sampleColumns(ctx context.Context, table string) ([]string, error) {
	d := m.op.Dialect()
	f, err := m.op.QueryFrame(ctx, "SELECT * FROM "+d.QuoteIdent(table)+" LIMIT 1")
	if err != nil {
		return nil, err
	}
	return f.ColumnNames(), nil
}

// List returns the project's feature stores whose backing tables still
// exist. A store with a missing table goes into Skipped instead of
// failing the whole listing.
func (m *materializer) List(
	ctx context.Context, projectID string,
) (*lifecycle.FeatureStoreList, error) {
	stores, err := m.registry.ListFeatureStores(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	res := &lifecycle.FeatureStoreList{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.JobsNumber)
	for _, fs := range stores {
		fs := fs
		g.Go(func() error {
			exists, err := m.op.TableExists(gctx, fs.TablePath)
			mu.Lock()
			defer mu.Unlock()
			if err != nil || !exists {
				if err != nil {
					m.log.Warn("could not check feature table",
						"feature_store", fs.ID, "table", fs.TablePath, "error", err)
				}
				res.Skipped = append(res.Skipped, fs.ID)
				return nil
			}
			res.Items = append(res.Items, fs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Parallel checks scramble the order; restore creation order.
	sort.Slice(res.Items, func(i, j int) bool {
		return res.Items[i].CreatedAt.Before(res.Items[j].CreatedAt)
	})
	sort.Strings(res.Skipped)
	return res, nil
}
