package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/horizonml/horizon/internal/iomodel"
	"github.com/spf13/cobra"
)

func getTrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train <feature-store-id> <target-column>",
		Short: "Select features and train a model",
		Long: `Train a gradient-boosted model on a materialized feature table.

Feature selection combines three rankers: mutual information, random
forest importance, and correlation pruning. Their picks are united in
first-seen order and the model trains on that subset, evaluated on a
chronological holdout.

FLOAT targets and high-cardinality INTEGER targets train a regressor
(RMSE, R²); VARCHAR and low-cardinality INTEGER targets train a
classifier (accuracy, weighted F1/precision/recall).

The fitted model is stored in the artifact store; if a remote store is
configured and rejects the write, a local copy is kept and flagged.

Examples:
  horizon train 71d0... forecasting_target_value
  horizon train 71d0... revenue`,
		Args: cobra.ExactArgs(2),
		RunE: runTrain,
	}
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	op, reg, err := connectRegistry(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	store, fallback, err := artifactStores()
	if err != nil {
		return err
	}

	trainer := iomodel.New(op, reg, store, fallback, getConfig(), log)
	res, err := trainer.Train(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Printf("\n✓ Model trained\n  id:       %s\n  task:     %s\n  artifact: %s\n",
		res.Model.ID, res.Model.TaskType, res.Model.ArtifactRef)
	fmt.Println("\nSelected features:")
	for _, f := range res.SelectedFeatures {
		fmt.Printf("  %s\n", f)
	}
	printMetrics("Training metrics", res.TrainingMetrics)
	printMetrics("Testing metrics", res.TestingMetrics)
	fmt.Println("\nNext step:")
	fmt.Println("  horizon predict " + res.Model.ID + " <scoring-file>")
	return nil
}

func printMetrics(title string, m map[string]float64) {
	fmt.Println("\n" + title + ":")
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-10s %.4f\n", k, m[k])
	}
}
