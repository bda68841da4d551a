// Package ml implements the models the pipeline trains: regression trees,
// a random forest used for feature importances, and gradient-boosted
// trees for the final model. Everything is deterministic given a seed.
//
// Inputs are dense row-major float64 matrices. Callers fill missing
// values before fitting; NaN cells are not handled here.
package ml

import (
	"math"
	"math/rand"
	"sort"
)

// Node is one node of a fitted tree. Exported fields so a tree survives
// gob encoding inside a model artifact.
type Node struct {
	// Leaf nodes carry only Value.
	Leaf  bool
	Value float64

	// Split nodes route rows with x[Feature] <= Threshold to Left.
	Feature   int
	Threshold float64
	Left      *Node
	Right     *Node
}

// Tree is a regression tree fitted by variance reduction.
type Tree struct {
	Root *Node
}

// treeParams control a single tree fit.
type treeParams struct {
	maxDepth       int
	minSamplesLeaf int

	// features is the candidate feature subset for splits; nil means
	// all features.
	features []int

	// importances, when non-nil, accumulates impurity decrease per
	// feature across splits.
	importances []float64
}

// fitTree grows a tree on the given row subset. targets are the values
// the tree regresses on (raw y for a forest tree, residuals for a
// boosting round).
func fitTree(x [][]float64, targets []float64, rows []int, p treeParams) *Tree {
	return &Tree{Root: growNode(x, targets, rows, 0, p)}
}

func growNode(x [][]float64, targets []float64, rows []int, depth int, p treeParams) *Node {
	mean, sse := meanSSE(targets, rows)
	if depth >= p.maxDepth || len(rows) < 2*p.minSamplesLeaf || sse == 0 {
		return &Node{Leaf: true, Value: mean}
	}

	feat, thr, gain, ok := bestSplit(x, targets, rows, sse, p)
	if !ok {
		return &Node{Leaf: true, Value: mean}
	}
	if p.importances != nil {
		p.importances[feat] += gain
	}

	var left, right []int
	for _, i := range rows {
		if x[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &Node{
		Feature:   feat,
		Threshold: thr,
		Left:      growNode(x, targets, left, depth+1, p),
		Right:     growNode(x, targets, right, depth+1, p),
	}
}

// bestSplit scans candidate features for the threshold with the largest
// SSE reduction. Returns ok=false when no split improves on the parent.
func bestSplit(
	x [][]float64, targets []float64, rows []int, parentSSE float64, p treeParams,
) (feat int, thr, gain float64, ok bool) {
	features := p.features
	if features == nil {
		features = make([]int, len(x[0]))
		for i := range features {
			features[i] = i
		}
	}

	bestGain := 0.0
	order := make([]int, len(rows))

	for _, f := range features {
		copy(order, rows)
		sort.Slice(order, func(i, j int) bool {
			return x[order[i]][f] < x[order[j]][f]
		})

		// Prefix sums over the sorted order let each threshold be
		// evaluated in O(1).
		var sumL, sqL float64
		var sumT, sqT float64
		for _, i := range order {
			sumT += targets[i]
			sqT += targets[i] * targets[i]
		}

		n := len(order)
		for k := 0; k < n-1; k++ {
			v := targets[order[k]]
			sumL += v
			sqL += v * v

			// Cannot split between equal feature values.
			if x[order[k]][f] == x[order[k+1]][f] {
				continue
			}
			nl, nr := float64(k+1), float64(n-k-1)
			if int(nl) < p.minSamplesLeaf || int(nr) < p.minSamplesLeaf {
				continue
			}

			sseL := sqL - sumL*sumL/nl
			sumR, sqR := sumT-sumL, sqT-sqL
			sseR := sqR - sumR*sumR/nr

			g := parentSSE - sseL - sseR
			if g > bestGain {
				bestGain = g
				feat = f
				thr = (x[order[k]][f] + x[order[k+1]][f]) / 2
				ok = true
			}
		}
	}
	return feat, thr, bestGain, ok
}

func meanSSE(targets []float64, rows []int) (mean, sse float64) {
	if len(rows) == 0 {
		return 0, 0
	}
	var sum, sq float64
	for _, i := range rows {
		sum += targets[i]
		sq += targets[i] * targets[i]
	}
	n := float64(len(rows))
	mean = sum / n
	sse = sq - sum*sum/n
	if sse < 0 {
		sse = 0
	}
	return mean, sse
}

// Predict routes one row to its leaf value.
func (t *Tree) Predict(row []float64) float64 {
	n := t.Root
	for !n.Leaf {
		if row[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// leaves collects, for each input row index, a pointer to its leaf.
// Used by boosting to overwrite leaf values with Newton steps.
func (t *Tree) leaves(x [][]float64, rows []int) map[*Node][]int {
	res := make(map[*Node][]int)
	for _, i := range rows {
		n := t.Root
		for !n.Leaf {
			if x[i][n.Feature] <= n.Threshold {
				n = n.Left
			} else {
				n = n.Right
			}
		}
		res[n] = append(res[n], i)
	}
	return res
}

// sampleFeatures draws a random subset of k feature indices.
func sampleFeatures(rng *rand.Rand, total, k int) []int {
	if k >= total {
		return nil // nil means all features
	}
	perm := rng.Perm(total)
	feats := append([]int(nil), perm[:k]...)
	sort.Ints(feats)
	return feats
}

// sampleRows draws floor(fraction*n) row indices without replacement.
func sampleRows(rng *rand.Rand, n int, fraction float64) []int {
	k := int(math.Floor(fraction * float64(n)))
	if k >= n || k <= 0 {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	perm := rng.Perm(n)
	rows := append([]int(nil), perm[:k]...)
	sort.Ints(rows)
	return rows
}
