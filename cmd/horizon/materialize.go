package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/horizonml/horizon/internal/iofeature"
	"github.com/horizonml/horizon/internal/iooracle"
	"github.com/horizonml/horizon/pkg/db"
	"github.com/horizonml/horizon/pkg/pipeline"
	"github.com/horizonml/horizon/pkg/schema"
	"github.com/spf13/cobra"
)

var (
	featureSQL     string
	featureSQLFile string
	draftPrompt    string
	useTargetTable bool
)

func getMaterializeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materialize <project-id> <dataset-id>",
		Short: "Execute a feature SQL definition and register the feature store",
		Long: `Materialize a feature table from an SQL definition.

The statement must read from {{source}} and create {{destination}}
(CREATE TABLE ... AS SELECT semantics). The definition is stored
verbatim and replayed at scoring time with the source rewritten to the
scoring upload, which is what guarantees feature parity.

The statement comes from --sql, --sql-file, or --draft. With --draft
the prompt goes to the configured text-to-SQL oracle and the returned
statement is printed for review before anything executes; you confirm
by re-running with --sql.

By default the statement runs against the dataset's raw table. Use
--from-target to run it against the derived target table instead.

Examples:
  horizon materialize 3f2a... 9c1b... --sql 'CREATE TABLE {{destination}} AS SELECT id, ts, value FROM {{source}}'
  horizon materialize 3f2a... 9c1b... --sql-file features.sql --from-target
  horizon materialize 3f2a... 9c1b... --draft 'weekly average of value per id'`,
		Args: cobra.ExactArgs(2),
		RunE: runMaterialize,
	}

	cmd.Flags().StringVar(&featureSQL, "sql", "",
		"feature statement with {{source}} and {{destination}} placeholders")
	cmd.Flags().StringVar(&featureSQLFile, "sql-file", "",
		"read the feature statement from a file")
	cmd.Flags().StringVar(&draftPrompt, "draft", "",
		"ask the text-to-SQL oracle to draft the statement")
	cmd.Flags().BoolVar(&useTargetTable, "from-target", false,
		"run the statement against the target table instead of the raw table")
	return cmd
}

func runMaterialize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	projectID, datasetID := args[0], args[1]

	statement := featureSQL
	if statement == "" && featureSQLFile != "" {
		data, err := os.ReadFile(featureSQLFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", featureSQLFile, err)
		}
		statement = string(data)
	}

	if statement == "" && draftPrompt == "" {
		return fmt.Errorf("one of --sql, --sql-file or --draft is required")
	}

	op, reg, err := connectRegistry(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	ds, err := reg.GetDataset(ctx, datasetID)
	if err != nil {
		return err
	}

	if statement == "" {
		return runDraft(ctx, op, ds, draftPrompt)
	}
	sourceTable := ds.SourceTable
	if useTargetTable {
		if ds.TargetTable == "" {
			return fmt.Errorf("dataset %s has no target table yet, run 'horizon roles' first", datasetID)
		}
		sourceTable = ds.TargetTable
	}

	def := pipeline.NewFeatureDefinition(statement)
	mat := iofeature.New(op, reg, getConfig(), log)
	res, err := mat.Materialize(ctx, projectID, datasetID, def,
		sourceTable, pipeline.NewFeatureTableName())
	if err != nil {
		return fmt.Errorf("materialization failed: %w", err)
	}

	fmt.Printf("\n✓ Feature store materialized\n  id:    %s\n  table: %s\n\nColumns:\n",
		res.FeatureStore.ID, res.FeatureStore.TablePath)
	for _, c := range res.Columns {
		fmt.Printf("  %s\n", c)
	}
	fmt.Println("\nNext step:")
	fmt.Println("  horizon train " + res.FeatureStore.ID + " <target-column>")
	return nil
}

func runDraft(ctx context.Context, op db.Operator, ds *schema.Dataset, prompt string) error {
	drafter := iooracle.New(getConfig().Oracle)
	if drafter == nil {
		return fmt.Errorf("no oracle configured: set oracle.url in the config")
	}

	draft, err := drafter.DraftSQL(ctx, draftContext(ctx, op, ds)+prompt, "")
	if err != nil {
		return fmt.Errorf("drafting failed: %w", err)
	}

	fmt.Println("\nDrafted statement (review before running):")
	fmt.Println(draft.Text)
	fmt.Println("\nRun it with:")
	fmt.Println("  horizon materialize <project-id> <dataset-id> --sql '<statement>'")
	return nil
}

// draftContext prefixes the user's prompt with the dataset schema, its
// role annotations, a few sample rows and the placeholder contract, so
// drafted statements come back replayable.
func draftContext(ctx context.Context, op db.Operator, ds *schema.Dataset) string {
	var b strings.Builder
	b.WriteString("Write a single SQL statement of the form " +
		"CREATE TABLE {{destination}} AS SELECT ... FROM {{source}}.\n" +
		"Refer to the source table only as {{source}}.\n\nColumns:\n")
	for _, c := range ds.Columns {
		fmt.Fprintf(&b, "  %s %s", c.Name, c.ColumnType)
		switch {
		case c.IsForecastKey:
			b.WriteString(" (forecast key)")
		case c.IsDate:
			b.WriteString(" (date)")
		case c.IsTarget:
			b.WriteString(" (target)")
		}
		b.WriteString("\n")
	}

	d := op.Dialect()
	f, err := op.QueryFrame(ctx,
		"SELECT * FROM "+d.QuoteIdent(ds.SourceTable)+" LIMIT 5")
	if err == nil && len(f.Rows) > 0 {
		b.WriteString("\nSample rows:\n")
		for _, row := range f.Rows {
			fmt.Fprintf(&b, "  %v\n", row)
		}
	}
	b.WriteString("\nTask: ")
	return b.String()
}
