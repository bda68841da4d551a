package main

import (
	"context"
	"fmt"

	"github.com/horizonml/horizon/internal/ioschema"
	"github.com/spf13/cobra"
)

func getInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or update the metadata schema",
		Long: `Create the Horizon metadata schema.

This command:
  1. Connects to the configured tabular store
  2. Creates or updates the metadata tables (projects, datasets,
     feature stores, models, predictions, jobs) with GORM AutoMigrate

Pipeline data tables (raw uploads, target tables, feature tables,
prediction results) are created dynamically by the pipeline stages and
are not touched here. Re-running init is safe.

Examples:
  horizon init
  horizon init --driver sqlite --db-file ./horizon.db`,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	op, err := connectOperator(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	fmt.Println("Creating metadata schema using GORM AutoMigrate...")
	if err := ioschema.Migrate(op); err != nil {
		return fmt.Errorf("failed to create metadata schema: %w", err)
	}

	fmt.Println("\n✓ Metadata schema ready!")
	fmt.Println("\nNext steps:")
	fmt.Println("  - Run 'horizon project create <name>' to start a project")
	fmt.Println("  - Run 'horizon ingest <project-id> <file>' to upload data")
	return nil
}
