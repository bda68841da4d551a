package ml

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RegressionMetrics are computed once on the held-out fold.
type RegressionMetrics struct {
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// ClassificationMetrics are computed once on the held-out fold. The
// precision, recall and F1 values are class-weighted averages.
type ClassificationMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	F1        float64 `json:"f1"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// EvaluateRegression computes RMSE and R2 of predictions against truth.
func EvaluateRegression(pred, y []float64) RegressionMetrics {
	return RegressionMetrics{
		RMSE: rmseOf(pred, y),
		R2:   stat.RSquaredFrom(pred, y, nil),
	}
}

// EvaluateClassification computes accuracy and weighted precision,
// recall and F1. pred and y hold class indices; nClasses bounds them.
func EvaluateClassification(pred, y []float64, nClasses int) ClassificationMetrics {
	n := len(y)
	if n == 0 {
		return ClassificationMetrics{}
	}

	// Confusion counts per class.
	tp := make([]float64, nClasses)
	fp := make([]float64, nClasses)
	fn := make([]float64, nClasses)
	support := make([]float64, nClasses)

	var correct float64
	for i := range y {
		actual, predicted := int(y[i]), int(pred[i])
		support[actual]++
		if actual == predicted {
			correct++
			tp[actual]++
		} else {
			fp[predicted]++
			fn[actual]++
		}
	}

	var precision, recall, f1 float64
	for k := 0; k < nClasses; k++ {
		w := support[k] / float64(n)
		p := safeDiv(tp[k], tp[k]+fp[k])
		r := safeDiv(tp[k], tp[k]+fn[k])
		precision += w * p
		recall += w * r
		f1 += w * safeDiv(2*p*r, p+r)
	}

	return ClassificationMetrics{
		Accuracy:  correct / float64(n),
		F1:        f1,
		Precision: precision,
		Recall:    recall,
	}
}

func safeDiv(a, b float64) float64 {
	if b == 0 || math.IsNaN(b) {
		return 0
	}
	return a / b
}
