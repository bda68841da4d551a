package selection

import "math"

// miBins is the histogram resolution for the mutual-information
// estimate. Both the feature and the target are discretized into
// equal-width bins before computing MI, which keeps the estimate
// deterministic for identical input.
const miBins = 16

// miScores estimates the mutual information of every feature column
// with y. Constant columns score zero.
func miScores(x [][]float64, y []float64) []float64 {
	p := len(x[0])
	yBinned := discretize(y)

	scores := make([]float64, p)
	col := make([]float64, len(x))
	for j := 0; j < p; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		scores[j] = mutualInfo(discretize(col), yBinned)
	}
	return scores
}

// discretize maps values into miBins equal-width bins over their range.
// A constant vector maps everything to bin 0.
func discretize(vals []float64) []int {
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	res := make([]int, len(vals))
	width := maxV - minV
	if width == 0 {
		return res
	}
	for i, v := range vals {
		b := int(float64(miBins) * (v - minV) / width)
		if b >= miBins {
			b = miBins - 1
		}
		res[i] = b
	}
	return res
}

func mutualInfo(a, b []int) float64 {
	n := float64(len(a))
	joint := make(map[[2]int]float64)
	pa := make(map[int]float64)
	pb := make(map[int]float64)
	for i := range a {
		joint[[2]int{a[i], b[i]}]++
		pa[a[i]]++
		pb[b[i]]++
	}

	var mi float64
	for k, c := range joint {
		pxy := c / n
		px := pa[k[0]] / n
		py := pb[k[1]] / n
		mi += pxy * math.Log(pxy/(px*py))
	}
	if mi < 0 {
		mi = 0
	}
	return mi
}
