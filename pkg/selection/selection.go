// Package selection implements the ensemble feature-selection procedure:
// three independent rankers whose outputs are unioned preserving
// first-seen order. The union is deliberately not re-ranked; downstream
// reproducibility tests depend on the exact ordering.
package selection

import (
	"sort"

	"github.com/horizonml/horizon/pkg/config"
	"github.com/horizonml/horizon/pkg/errs"
	"github.com/horizonml/horizon/pkg/ml"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Result is the outcome of one selection run. The per-ranker lists are
// kept for inspection and logging; Features is what models train on.
type Result struct {
	// Features is the final ordered, de-duplicated union.
	Features []string

	// MIRanked is the mutual-information top-K.
	MIRanked []string

	// TreeRanked is the tree-importance top-K.
	TreeRanked []string

	// CorrKept are the columns surviving correlation pruning, in
	// original order.
	CorrKept []string
}

// Select runs the three rankers over the numeric feature matrix x
// (row-major, columns named by cols) against target y.
func Select(x [][]float64, cols []string, y []float64, cfg config.SelectionConfig) (Result, error) {
	var res Result
	if len(cols) == 0 {
		return res, &errs.TrainingError{Reason: "no numeric feature columns to select from"}
	}
	if len(x) != len(y) {
		return res, &errs.TrainingError{Reason: "feature matrix and target length mismatch"}
	}
	if len(x) == 0 {
		return res, &errs.TrainingError{Reason: "empty feature matrix"}
	}

	res.MIRanked = topKByScore(cols, miScores(x, y), cfg.MITopK)

	forest := ml.FitForest(x, y, ml.ForestConfig{
		Trees: cfg.TreeCount,
		Seed:  cfg.Seed,
	})
	res.TreeRanked = topKByScore(cols, forest.Importances(), cfg.TreeTopK)

	res.CorrKept = pruneCorrelated(x, cols, cfg.CorrThreshold)

	seen := make(map[string]bool)
	for _, list := range [][]string{res.MIRanked, res.TreeRanked, res.CorrKept} {
		for _, c := range list {
			if !seen[c] {
				seen[c] = true
				res.Features = append(res.Features, c)
			}
		}
	}
	return res, nil
}

// topKByScore orders columns by descending score, stable on the original
// column order, and keeps the top k.
func topKByScore(cols []string, scores []float64, k int) []string {
	idx := make([]int, len(cols))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	if k > len(idx) {
		k = len(idx)
	}
	res := make([]string, k)
	for i := 0; i < k; i++ {
		res[i] = cols[idx[i]]
	}
	return res
}

// pruneCorrelated drops, for every upper-triangular pair with absolute
// correlation above threshold, the column appearing later in the matrix
// ordering. Returns the surviving columns in original order.
func pruneCorrelated(x [][]float64, cols []string, threshold float64) []string {
	n, p := len(x), len(cols)
	flat := make([]float64, 0, n*p)
	for _, row := range x {
		flat = append(flat, row...)
	}
	dense := mat.NewDense(n, p, flat)

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, dense, nil)

	dropped := make([]bool, p)
	for j := 1; j < p; j++ {
		for i := 0; i < j; i++ {
			c := corr.At(i, j)
			if c < 0 {
				c = -c
			}
			if c > threshold {
				dropped[j] = true
				break
			}
		}
	}

	var kept []string
	for i, c := range cols {
		if !dropped[i] {
			kept = append(kept, c)
		}
	}
	return kept
}
