// Package iotarget materializes the temporal target table from a raw
// dataset and its role assignment.
package iotarget

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/horizonml/horizon/internal/ioregistry"
	"github.com/horizonml/horizon/pkg/db"
	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/lifecycle"
	"github.com/horizonml/horizon/pkg/pipeline"
	"github.com/horizonml/horizon/pkg/schema"
)

type builder struct {
	op       db.Operator
	registry *ioregistry.Registry
	log      *slog.Logger
}

// New creates a TargetBuilder.
func New(op db.Operator, registry *ioregistry.Registry, log *slog.Logger) lifecycle.TargetBuilder {
	return &builder{op: op, registry: registry, log: log}
}

func (b *builder) Build(
	ctx context.Context,
	datasetID string,
	roles pipeline.RoleAssignment,
	horizonWeeks int,
) (*schema.Dataset, error) {
	ds, err := b.registry.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if err := checkRoleColumns(ds, roles); err != nil {
		return nil, err
	}

	targetTable := pipeline.TargetTableName(ds.SourceTable)
	sql, err := pipeline.TargetJoinSQL(
		b.op.Dialect(), roles, ds.SourceTable, targetTable, horizonWeeks)
	if err != nil {
		return nil, err
	}

	// Drop first so re-running with different roles is idempotent.
	if err := b.op.DropTable(ctx, targetTable); err != nil {
		return nil, fmt.Errorf("dropping previous target table %s: %w", targetTable, err)
	}
	if err := b.op.Exec(ctx, sql); err != nil {
		return nil, &errs.MaterializationError{Table: targetTable, Err: err}
	}

	applyRoles(ds, roles)
	if err := b.registry.UpdateDatasetTarget(ctx, ds, targetTable, horizonWeeks); err != nil {
		return nil, err
	}
	ds.TargetTable = targetTable
	ds.HorizonWeeks = horizonWeeks

	b.log.Info("target table built",
		"dataset", datasetID,
		"table", targetTable,
		"horizon_weeks", horizonWeeks,
	)
	return ds, nil
}

func checkRoleColumns(ds *schema.Dataset, roles pipeline.RoleAssignment) error {
	names := make(map[string]bool, len(ds.Columns))
	for _, c := range ds.Columns {
		names[c.Name] = true
	}
	for _, col := range append([]string{roles.Key, roles.Date, roles.Target}, roles.Features...) {
		if !names[col] {
			return &errs.ValidationError{
				Reason: fmt.Sprintf("role column %q is not in dataset %s", col, ds.ID),
			}
		}
	}
	return nil
}

func applyRoles(ds *schema.Dataset, roles pipeline.RoleAssignment) {
	features := make(map[string]bool, len(roles.Features))
	for _, f := range roles.Features {
		features[f] = true
	}
	for i := range ds.Columns {
		c := &ds.Columns[i]
		c.IsForecastKey = c.Name == roles.Key
		c.IsDate = c.Name == roles.Date
		c.IsTarget = c.Name == roles.Target
		c.IsFeature = features[c.Name]
	}
}
