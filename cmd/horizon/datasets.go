package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var showTestFiles bool

func getDatasetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets <project-id>",
		Short: "List a project's datasets",
		Long: `List the datasets of a project with their columns and roles.

Scoring uploads are hidden by default; show them with --all.`,
		Args: cobra.ExactArgs(1),
		RunE: runDatasets,
	}
	cmd.Flags().BoolVar(&showTestFiles, "all", false,
		"include scoring uploads")
	return cmd
}

func runDatasets(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	op, reg, err := connectRegistry(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	datasets, err := reg.ListDatasets(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}

	shown := 0
	for _, ds := range datasets {
		if ds.IsTestFile && !showTestFiles {
			continue
		}
		shown++
		kind := ""
		if ds.IsTestFile {
			kind = "  (scoring upload)"
		}
		fmt.Printf("%s  %s  %s%s\n",
			ds.ID, ds.CreatedAt.Format("2006-01-02"), ds.Filename, kind)
		for _, c := range ds.Columns {
			var roles []string
			if c.IsForecastKey {
				roles = append(roles, "key")
			}
			if c.IsDate {
				roles = append(roles, "date")
			}
			if c.IsTarget {
				roles = append(roles, "target")
			}
			if c.IsFeature {
				roles = append(roles, "feature")
			}
			suffix := ""
			if len(roles) > 0 {
				suffix = "  [" + strings.Join(roles, ",") + "]"
			}
			fmt.Printf("    %-24s %s%s\n", c.Name, c.ColumnType, suffix)
		}
		if ds.TargetTable != "" {
			fmt.Printf("    target table: %s (horizon %d week(s))\n",
				ds.TargetTable, ds.HorizonWeeks)
		}
	}
	if shown == 0 {
		fmt.Println("No datasets yet.")
	}
	return nil
}
