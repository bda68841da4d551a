package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/horizonml/horizon/internal/ioingest"
	"github.com/horizonml/horizon/internal/iopredict"
	"github.com/horizonml/horizon/pkg/frame"
	"github.com/spf13/cobra"
)

var predictOut string

func getPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict <model-id> <scoring-file>",
		Short: "Score a new upload with a trained model",
		Long: `Score new data with a trained model.

The scoring file must match the training dataset's schema (same
columns and types; extra columns are allowed). The stored feature
definition is replayed against the upload, the model's selected
features are checked to all be present, and one prediction per row is
written into a result table.

Examples:
  horizon predict be31... new_sales.csv
  horizon predict be31... new_sales.csv --out predictions.csv`,
		Args: cobra.ExactArgs(2),
		RunE: runPredict,
	}
	cmd.Flags().StringVar(&predictOut, "out", "",
		"also export the predictions to a CSV file")
	return cmd
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	modelID, path := args[0], args[1]

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	op, reg, err := connectRegistry(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	model, err := reg.GetModel(ctx, modelID)
	if err != nil {
		return err
	}

	ing := ioingest.New(op, reg, getConfig(), log, true)
	scoringTable, err := ing.IngestScoring(ctx, model.DatasetID, filepath.Base(path), content)
	if err != nil {
		return fmt.Errorf("scoring ingestion failed: %w", err)
	}

	store, _, err := artifactStores()
	if err != nil {
		return err
	}

	predictor := iopredict.New(op, reg, store, getConfig(), log)
	res, err := predictor.Predict(ctx, modelID, scoringTable)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	fmt.Printf("\n✓ Prediction completed\n  id:    %s\n  table: %s\n  rows:  %d\n",
		res.Prediction.ID, res.Prediction.OutputTable, len(res.Rows.Rows))

	if predictOut != "" {
		if err := writeFrameCSV(predictOut, res.Rows); err != nil {
			return fmt.Errorf("failed to export predictions: %w", err)
		}
		fmt.Printf("  export: %s\n", predictOut)
	}
	return nil
}

func writeFrameCSV(path string, f *frame.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(f.ColumnNames()); err != nil {
		return err
	}
	for _, row := range f.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			if cell != nil {
				record[i] = fmt.Sprintf("%v", cell)
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
