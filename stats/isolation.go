package stats

import (
	"math"
	"math/rand/v2"

	"github.com/cockroachdb/errors"
)

var ErrNoSamples = errors.New("no finite samples to fit isolation forest")

// eulerGamma is the Euler–Mascheroni constant used by the average path length
const eulerGamma = 0.5772156649015329

// IsolationForestOptions configures the one dimensional isolation forest
type IsolationForestOptions struct {
	Trees      int    `json:"trees"`
	SampleSize int    `json:"sample_size"`
	Seed       uint64 `json:"seed"`

	// Contamination is the expected fraction of anomalies in the data
	Contamination float64 `json:"contamination"`
}

// NewDefaultIsolationForestOptions returns 100 trees of up to 256 samples
// flagging the most isolated 10% of points.
func NewDefaultIsolationForestOptions() *IsolationForestOptions {
	return &IsolationForestOptions{
		Trees:         100,
		SampleSize:    256,
		Contamination: 0.1,
		Seed:          42,
	}
}

// Validate fills any unset option with its default
func (o *IsolationForestOptions) Validate() *IsolationForestOptions {
	if o == nil {
		return NewDefaultIsolationForestOptions()
	}
	def := NewDefaultIsolationForestOptions()
	if o.Trees <= 0 {
		o.Trees = def.Trees
	}
	if o.SampleSize <= 0 {
		o.SampleSize = def.SampleSize
	}
	if o.Contamination <= 0 || o.Contamination > 0.5 {
		o.Contamination = def.Contamination
	}
	return o
}

type isolationNode struct {
	split       float64
	size        int
	left, right *isolationNode
}

func (n *isolationNode) leaf() bool {
	return n.left == nil
}

// IsolationForest scores how easily each value is separated from the rest by
// random splits. Fewer splits means more anomalous.
type IsolationForest struct {
	opt       *IsolationForestOptions
	trees     []*isolationNode
	samples   int
	threshold float64
}

// NewIsolationForest fits a forest on the finite values of y and sets the anomaly
// threshold so that a Contamination fraction of the training values lie above it.
func NewIsolationForest(y []float64, opt *IsolationForestOptions) (*IsolationForest, error) {
	opt = opt.Validate()
	vals, _ := finite(y)
	if len(vals) == 0 {
		return nil, ErrNoSamples
	}

	rng := rand.New(rand.NewPCG(opt.Seed, opt.Seed))
	samples := min(opt.SampleSize, len(vals))
	maxDepth := int(math.Ceil(math.Log2(math.Max(float64(samples), 2))))

	f := &IsolationForest{
		opt:     opt,
		trees:   make([]*isolationNode, opt.Trees),
		samples: samples,
	}
	for i := range f.trees {
		perm := rng.Perm(len(vals))
		sample := make([]float64, samples)
		for j := 0; j < samples; j++ {
			sample[j] = vals[perm[j]]
		}
		f.trees[i] = growIsolationTree(sample, 0, maxDepth, rng)
	}

	scores := make([]float64, len(vals))
	for i, v := range vals {
		scores[i] = f.Score(v)
	}
	f.threshold = Percentile(scores, 1.0-opt.Contamination)
	return f, nil
}

func growIsolationTree(sample []float64, depth, maxDepth int, rng *rand.Rand) *isolationNode {
	node := &isolationNode{size: len(sample)}
	if depth >= maxDepth || len(sample) <= 1 {
		return node
	}
	lo, hi := sample[0], sample[0]
	for _, v := range sample[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return node
	}

	node.split = lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range sample {
		if v < node.split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	node.left = growIsolationTree(left, depth+1, maxDepth, rng)
	node.right = growIsolationTree(right, depth+1, maxDepth, rng)
	return node
}

// averagePathLength is the expected path length of an unsuccessful search in a
// binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2.0*(math.Log(fn-1.0)+eulerGamma) - 2.0*(fn-1.0)/fn
}

func pathLength(node *isolationNode, v float64) float64 {
	var depth float64
	for !node.leaf() {
		if v < node.split {
			node = node.left
		} else {
			node = node.right
		}
		depth++
	}
	return depth + averagePathLength(node.size)
}

// Score returns the anomaly score of v in (0, 1]. Scores near 1 are anomalies,
// scores well below 0.5 are normal.
func (f *IsolationForest) Score(v float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(t, v)
	}
	mean := total / float64(len(f.trees))
	norm := averagePathLength(f.samples)
	if norm == 0 {
		return 0.5
	}
	return math.Pow(2, -mean/norm)
}

// Threshold returns the score above which a value is anomalous
func (f *IsolationForest) Threshold() float64 {
	return f.threshold
}

// Anomalies returns the indices of finite values of y scoring above the threshold
func (f *IsolationForest) Anomalies(y []float64) []int {
	var anomalies []int
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if f.Score(v) > f.threshold {
			anomalies = append(anomalies, i)
		}
	}
	return anomalies
}
