package ml

import (
	"math"
	"math/rand"
)

// Forest is a random forest of regression trees. The pipeline uses it
// only for feature importances during selection, so it keeps just the
// importance vector, not the trees.
type Forest struct {
	importances []float64
}

// ForestConfig controls a forest fit.
type ForestConfig struct {
	Trees          int
	MaxDepth       int
	MinSamplesLeaf int
	Seed           int64
}

// FitForest fits cfg.Trees trees on bootstrap samples, each split drawn
// from a sqrt(features) candidate subset, accumulating impurity-decrease
// importances.
func FitForest(x [][]float64, y []float64, cfg ForestConfig) *Forest {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 8
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = 2
	}

	nFeatures := 0
	if len(x) > 0 {
		nFeatures = len(x[0])
	}
	imp := make([]float64, nFeatures)
	if len(x) == 0 || nFeatures == 0 {
		return &Forest{importances: imp}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	k := int(math.Ceil(math.Sqrt(float64(nFeatures))))

	for t := 0; t < cfg.Trees; t++ {
		rows := make([]int, len(x))
		for i := range rows {
			rows[i] = rng.Intn(len(x))
		}
		fitTree(x, y, rows, treeParams{
			maxDepth:       cfg.MaxDepth,
			minSamplesLeaf: cfg.MinSamplesLeaf,
			features:       sampleFeatures(rng, nFeatures, k),
			importances:    imp,
		})
	}

	var total float64
	for _, v := range imp {
		total += v
	}
	if total > 0 {
		for i := range imp {
			imp[i] /= total
		}
	}
	return &Forest{importances: imp}
}

// Importances returns the normalized per-feature importance vector.
func (f *Forest) Importances() []float64 {
	return f.importances
}
