package ml

import (
	"math"
	"math/rand"

	"github.com/horizonml/horizon/pkg/errs"
)

// Task types a boosted model can be fitted for.
const (
	TaskRegression     = "regression"
	TaskClassification = "classification"
)

// GBDTConfig carries the boosting hyper-parameters.
type GBDTConfig struct {
	MaxRounds      int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int

	// Subsample is the row fraction drawn per round, ColSample the
	// feature fraction per tree.
	Subsample float64
	ColSample float64

	// EarlyStopping stops after this many rounds without validation
	// improvement; 0 disables it.
	EarlyStopping int

	Seed int64
}

// GBDT is a gradient-boosted tree ensemble. For regression each round
// holds one tree; for classification one tree per class (softmax
// objective). All fields are exported so the model survives gob
// encoding.
type GBDT struct {
	Task string

	// Classes are the label values for classification, in encoding
	// order. Class i corresponds to tree slot i of each round.
	Classes []string

	// Base is the initial raw score: one element for regression (the
	// training mean), one per class for classification (log priors).
	Base []float64

	LearningRate float64

	// Rounds[r][k] is the k-th class tree of round r.
	Rounds [][]*Tree
}

// FitGBDT trains a boosted ensemble on the training block, monitoring
// loss on the validation block for early stopping. For classification,
// y holds class indices into classes. Returns TrainingError on
// degenerate input.
func FitGBDT(
	task string,
	classes []string,
	xTrain [][]float64, yTrain []float64,
	xVal [][]float64, yVal []float64,
	cfg GBDTConfig,
) (*GBDT, error) {
	if len(xTrain) == 0 {
		return nil, &errs.TrainingError{Reason: "no training rows"}
	}
	if task == TaskClassification && len(classes) < 2 {
		return nil, &errs.TrainingError{Reason: "target has fewer than two classes"}
	}
	if cfg.MaxRounds <= 0 {
		return nil, &errs.TrainingError{Reason: "boosting rounds must be positive"}
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = 1
	}

	m := &GBDT{
		Task:         task,
		Classes:      classes,
		LearningRate: cfg.LearningRate,
	}

	var err error
	if task == TaskClassification {
		err = m.fitClassification(xTrain, yTrain, xVal, yVal, cfg)
	} else {
		err = m.fitRegression(xTrain, yTrain, xVal, yVal, cfg)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *GBDT) fitRegression(
	xTrain [][]float64, yTrain []float64,
	xVal [][]float64, yVal []float64,
	cfg GBDTConfig,
) error {
	n := len(xTrain)
	nFeatures := len(xTrain[0])
	rng := rand.New(rand.NewSource(cfg.Seed))

	var base float64
	for _, v := range yTrain {
		base += v
	}
	base /= float64(n)
	m.Base = []float64{base}

	f := make([]float64, n)
	for i := range f {
		f[i] = base
	}
	fVal := make([]float64, len(xVal))
	for i := range fVal {
		fVal[i] = base
	}

	residual := make([]float64, n)
	bestLoss := math.Inf(1)
	bestRound := -1
	colK := int(math.Ceil(cfg.ColSample * float64(nFeatures)))

	for r := 0; r < cfg.MaxRounds; r++ {
		for i := range residual {
			residual[i] = yTrain[i] - f[i]
		}
		rows := sampleRows(rng, n, cfg.Subsample)
		tree := fitTree(xTrain, residual, rows, treeParams{
			maxDepth:       cfg.MaxDepth,
			minSamplesLeaf: cfg.MinSamplesLeaf,
			features:       sampleFeatures(rng, nFeatures, colK),
		})
		m.Rounds = append(m.Rounds, []*Tree{tree})

		for i := range f {
			f[i] += cfg.LearningRate * tree.Predict(xTrain[i])
		}
		for i := range fVal {
			fVal[i] += cfg.LearningRate * tree.Predict(xVal[i])
		}

		if len(xVal) > 0 && cfg.EarlyStopping > 0 {
			loss := rmseOf(fVal, yVal)
			if loss < bestLoss {
				bestLoss = loss
				bestRound = r
			} else if r-bestRound >= cfg.EarlyStopping {
				m.Rounds = m.Rounds[:bestRound+1]
				return nil
			}
		}
	}
	if bestRound >= 0 {
		m.Rounds = m.Rounds[:bestRound+1]
	}
	return nil
}

func (m *GBDT) fitClassification(
	xTrain [][]float64, yTrain []float64,
	xVal [][]float64, yVal []float64,
	cfg GBDTConfig,
) error {
	n := len(xTrain)
	nFeatures := len(xTrain[0])
	nClasses := len(m.Classes)
	rng := rand.New(rand.NewSource(cfg.Seed))

	// Log priors as base scores.
	counts := make([]float64, nClasses)
	for _, v := range yTrain {
		k := int(v)
		if k < 0 || k >= nClasses {
			return &errs.TrainingError{Reason: "class index out of range"}
		}
		counts[k]++
	}
	m.Base = make([]float64, nClasses)
	for k, c := range counts {
		if c == 0 {
			c = 1
		}
		m.Base[k] = math.Log(c / float64(n))
	}

	f := newScoreMatrix(n, m.Base)
	fVal := newScoreMatrix(len(xVal), m.Base)

	grad := make([]float64, n)
	bestLoss := math.Inf(1)
	bestRound := -1
	colK := int(math.Ceil(cfg.ColSample * float64(nFeatures)))

	for r := 0; r < cfg.MaxRounds; r++ {
		probs := softmaxRows(f)
		rows := sampleRows(rng, n, cfg.Subsample)
		round := make([]*Tree, nClasses)

		for k := 0; k < nClasses; k++ {
			for i := 0; i < n; i++ {
				ind := 0.0
				if int(yTrain[i]) == k {
					ind = 1.0
				}
				grad[i] = ind - probs[i][k]
			}
			tree := fitTree(xTrain, grad, rows, treeParams{
				maxDepth:       cfg.MaxDepth,
				minSamplesLeaf: cfg.MinSamplesLeaf,
				features:       sampleFeatures(rng, nFeatures, colK),
			})
			newtonLeaves(tree, xTrain, grad, probs, k, rows, nClasses)
			round[k] = tree

			for i := 0; i < n; i++ {
				f[i][k] += cfg.LearningRate * tree.Predict(xTrain[i])
			}
			for i := range xVal {
				fVal[i][k] += cfg.LearningRate * tree.Predict(xVal[i])
			}
		}
		m.Rounds = append(m.Rounds, round)

		if len(xVal) > 0 && cfg.EarlyStopping > 0 {
			loss := logLoss(fVal, yVal)
			if loss < bestLoss {
				bestLoss = loss
				bestRound = r
			} else if r-bestRound >= cfg.EarlyStopping {
				m.Rounds = m.Rounds[:bestRound+1]
				return nil
			}
		}
	}
	if bestRound >= 0 {
		m.Rounds = m.Rounds[:bestRound+1]
	}
	return nil
}

// newtonLeaves replaces each leaf's mean-gradient value with the
// Friedman multiclass Newton step.
func newtonLeaves(
	t *Tree, x [][]float64, grad []float64, probs [][]float64,
	class int, rows []int, nClasses int,
) {
	scale := float64(nClasses-1) / float64(nClasses)
	for leaf, members := range t.leaves(x, rows) {
		var num, den float64
		for _, i := range members {
			num += grad[i]
			p := probs[i][class]
			den += p * (1 - p)
		}
		if den < 1e-10 {
			leaf.Value = 0
			continue
		}
		leaf.Value = scale * num / den
	}
}

func newScoreMatrix(n int, base []float64) [][]float64 {
	res := make([][]float64, n)
	for i := range res {
		res[i] = append([]float64(nil), base...)
	}
	return res
}

func softmaxRows(f [][]float64) [][]float64 {
	res := make([][]float64, len(f))
	for i, row := range f {
		maxV := math.Inf(-1)
		for _, v := range row {
			if v > maxV {
				maxV = v
			}
		}
		var sum float64
		p := make([]float64, len(row))
		for k, v := range row {
			p[k] = math.Exp(v - maxV)
			sum += p[k]
		}
		for k := range p {
			p[k] /= sum
		}
		res[i] = p
	}
	return res
}

func logLoss(f [][]float64, y []float64) float64 {
	probs := softmaxRows(f)
	var loss float64
	for i, row := range probs {
		p := row[int(y[i])]
		if p < 1e-15 {
			p = 1e-15
		}
		loss -= math.Log(p)
	}
	return loss / float64(len(y))
}

func rmseOf(pred, y []float64) float64 {
	var sum float64
	for i := range pred {
		d := pred[i] - y[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(pred)))
}

// NumRounds reports the number of boosting rounds kept after early
// stopping.
func (m *GBDT) NumRounds() int {
	return len(m.Rounds)
}

// PredictValue returns the raw regression prediction for one row.
func (m *GBDT) PredictValue(row []float64) float64 {
	f := m.Base[0]
	for _, round := range m.Rounds {
		f += m.LearningRate * round[0].Predict(row)
	}
	return f
}

// PredictScores returns per-class raw scores for one row.
func (m *GBDT) PredictScores(row []float64) []float64 {
	f := append([]float64(nil), m.Base...)
	for _, round := range m.Rounds {
		for k, tree := range round {
			f[k] += m.LearningRate * tree.Predict(row)
		}
	}
	return f
}

// PredictClass returns the class index with the highest score.
func (m *GBDT) PredictClass(row []float64) int {
	scores := m.PredictScores(row)
	best := 0
	for k, v := range scores {
		if v > scores[best] {
			best = k
		}
	}
	return best
}

// Predict scores a full matrix. Regression rows yield raw values;
// classification rows yield class indices as float64 for uniform
// downstream handling.
func (m *GBDT) Predict(x [][]float64) []float64 {
	res := make([]float64, len(x))
	for i, row := range x {
		if m.Task == TaskClassification {
			res[i] = float64(m.PredictClass(row))
		} else {
			res[i] = m.PredictValue(row)
		}
	}
	return res
}

// PredictLabels scores a classification matrix and decodes class
// indices back to their label strings.
func (m *GBDT) PredictLabels(x [][]float64) []string {
	res := make([]string, len(x))
	for i, row := range x {
		res[i] = m.Classes[m.PredictClass(row)]
	}
	return res
}
