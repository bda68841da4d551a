package main

import (
	"context"
	"fmt"

	"github.com/horizonml/horizon/internal/iotarget"
	"github.com/horizonml/horizon/pkg/pipeline"
	"github.com/spf13/cobra"
)

var (
	roleKey      string
	roleDate     string
	roleTarget   string
	roleFeatures []string
	horizonWeeks int
)

func getRolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles <dataset-id>",
		Short: "Assign column roles and build the target table",
		Long: `Assign the key, date and target roles to a dataset's columns and
derive the temporal target table.

The target table is built by self-joining the raw table on equal key,
keeping row pairs exactly horizon*7 days apart. Each pair emits one
labeled row (key, date, forecasting_date, forecasting_target_value).
Rows near the end of the observed range have no pair and produce no
label.

Re-running with different roles or horizon drops and rebuilds the
target table.

Examples:
  horizon roles 9c1b... --key store_id --date sale_date --target revenue --horizon 1
  horizon roles 9c1b... --key id --date ts --target value --horizon 4 --feature price`,
		Args: cobra.ExactArgs(1),
		RunE: runRoles,
	}

	cmd.Flags().StringVar(&roleKey, "key", "", "forecast key column (required)")
	cmd.Flags().StringVar(&roleDate, "date", "", "date column (required)")
	cmd.Flags().StringVar(&roleTarget, "target", "", "target column (required)")
	cmd.Flags().StringSliceVar(&roleFeatures, "feature", nil,
		"feature column, repeatable")
	cmd.Flags().IntVar(&horizonWeeks, "horizon", 1, "forecast horizon in weeks")
	return cmd
}

func runRoles(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	roles, err := pipeline.NewRoleAssignment(roleKey, roleDate, roleTarget, roleFeatures)
	if err != nil {
		return err
	}

	op, reg, err := connectRegistry(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	ds, err := iotarget.New(op, reg, log).Build(ctx, args[0], roles, horizonWeeks)
	if err != nil {
		return fmt.Errorf("target construction failed: %w", err)
	}

	fmt.Printf("\n✓ Target table built\n  table:   %s\n  horizon: %d week(s)\n",
		ds.TargetTable, ds.HorizonWeeks)
	fmt.Println("\nNext step:")
	fmt.Println("  horizon materialize " + ds.ProjectID + " " + ds.ID +
		` --sql 'CREATE TABLE {{destination}} AS SELECT ... FROM {{source}}'`)
	return nil
}
