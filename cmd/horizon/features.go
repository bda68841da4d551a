package main

import (
	"context"
	"fmt"

	"github.com/horizonml/horizon/internal/iofeature"
	"github.com/spf13/cobra"
)

func getFeaturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features <project-id>",
		Short: "List a project's feature stores",
		Long: `List the feature stores of a project.

Stores whose backing table has gone missing are reported separately
instead of failing the listing.`,
		Args: cobra.ExactArgs(1),
		RunE: runFeatures,
	}
}

func runFeatures(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	op, reg, err := connectRegistry(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	mat := iofeature.New(op, reg, getConfig(), log)
	list, err := mat.List(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list feature stores: %w", err)
	}

	if len(list.Items) == 0 && len(list.Skipped) == 0 {
		fmt.Println("No feature stores yet.")
		return nil
	}
	for _, fs := range list.Items {
		fmt.Printf("%s  %s  %s (%d columns)\n",
			fs.ID, fs.CreatedAt.Format("2006-01-02"), fs.TablePath, len(fs.Columns))
	}
	if len(list.Skipped) > 0 {
		fmt.Printf("\nSkipped (backing table missing): %d\n", len(list.Skipped))
		for _, id := range list.Skipped {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}
