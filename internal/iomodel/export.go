package iomodel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/horizonml/horizon/pkg/ml"
)

// trainingPredictionsCSV exports the full training frame's actual and
// predicted target values, one row per training row, for offline
// inspection of the fit.
func trainingPredictionsCSV(
	model *ml.GBDT,
	features []string,
	x [][]float64,
	y []float64,
) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := append(append([]string{}, features...), "actual", "predicted")
	if err := w.Write(header); err != nil {
		return nil, err
	}

	pred := model.Predict(x)
	for i := range x {
		rec := make([]string, 0, len(features)+2)
		for _, v := range x[i] {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		rec = append(rec, renderTarget(model, y[i]), renderTarget(model, pred[i]))
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderTarget(model *ml.GBDT, v float64) string {
	if model.Task == ml.TaskClassification {
		idx := int(v)
		if idx >= 0 && idx < len(model.Classes) {
			return model.Classes[idx]
		}
		return fmt.Sprintf("%d", idx)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
