package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/horizonml/horizon/internal/ioingest"
	"github.com/spf13/cobra"
)

func getIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <project-id> <file>",
		Short: "Upload a tabular file and register it as a dataset",
		Long: `Ingest a tabular file into a project.

The file extension picks the parser (.csv, .xlsx or .xls). Column names
are sanitized, column types are inferred (INTEGER, FLOAT, TIMESTAMP or
VARCHAR), a backing table is created and bulk-loaded, and the dataset
is registered with its inferred schema.

Examples:
  horizon ingest 3f2a... sales.csv
  horizon ingest 3f2a... quarterly.xlsx`,
		Args: cobra.ExactArgs(2),
		RunE: runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	projectID, path := args[0], args[1]

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	op, reg, err := connectRegistry(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	ing := ioingest.New(op, reg, getConfig(), log, true)
	ds, err := ing.Ingest(ctx, projectID, filepath.Base(path), content)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\n✓ Dataset ingested\n  id:    %s\n  table: %s\n\nColumns:\n",
		ds.ID, ds.SourceTable)
	for _, c := range ds.Columns {
		fmt.Printf("  %-24s %s\n", c.Name, c.ColumnType)
	}
	fmt.Println("\nNext step:")
	fmt.Println("  horizon roles " + ds.ID +
		" --key <col> --date <col> --target <col> --horizon 1")
	return nil
}
