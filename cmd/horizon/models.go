package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func getModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models <project-id>",
		Short: "List a project's trained models",
		Args:  cobra.ExactArgs(1),
		RunE:  runModels,
	}
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	op, reg, err := connectRegistry(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	models, err := reg.ListModels(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	if len(models) == 0 {
		fmt.Println("No models yet.")
		return nil
	}
	for _, m := range models {
		fmt.Printf("%s  %s  %s on %q (%d features)\n",
			m.ID, m.CreatedAt.Format("2006-01-02"),
			m.TaskType, m.TargetColumn, len(m.SelectedFeatures))
		fmt.Printf("    testing:  %s\n", m.TestingMetrics)
		fmt.Printf("    artifact: %s\n", m.ArtifactRef)
	}

	preds, err := reg.ListPredictions(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list predictions: %w", err)
	}
	if len(preds) > 0 {
		fmt.Println("\nScoring runs:")
		for _, p := range preds {
			fmt.Printf("%s  %s  model %s -> %s\n",
				p.ID, p.CreatedAt.Format("2006-01-02"), p.ModelID, p.OutputTable)
			if p.OutputRef != "" {
				fmt.Printf("    export: %s\n", p.OutputRef)
			}
		}
	}
	return nil
}
