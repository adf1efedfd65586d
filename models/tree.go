package models

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/cockroachdb/errors"
	mat_ "github.com/srirammulukuntla11/forecastpro-app/mat"
	"gonum.org/v1/gonum/mat"
)

// TreeOptions configures a CART regression tree
type TreeOptions struct {
	// MaxDepth limits the depth of the tree; the root is at depth 0.
	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	MinSamplesLeaf  int `json:"min_samples_leaf"`
}

func NewDefaultTreeOptions() *TreeOptions {
	return &TreeOptions{
		MaxDepth:        10,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

func (o *TreeOptions) Validate() (*TreeOptions, error) {
	if o == nil {
		return NewDefaultTreeOptions(), nil
	}
	if o.MaxDepth < 1 {
		return nil, errors.Newf("max depth must be at least 1, got %d", o.MaxDepth)
	}
	if o.MinSamplesSplit < 2 {
		o.MinSamplesSplit = 2
	}
	if o.MinSamplesLeaf < 1 {
		o.MinSamplesLeaf = 1
	}
	return o, nil
}

// treeNode is a node of a fitted tree. Leaves have Left == -1.
type treeNode struct {
	Feature   int
	Threshold float64
	Value     float64
	Samples   int
	Left      int
	Right     int
}

type splitInfo struct {
	feature   int
	threshold float64
	gain      float64
	found     bool
}

// RegressionTree is a CART tree minimizing squared error. Candidate features are
// visited in an order drawn from rng so ties between equally good splits are
// broken reproducibly for a given seed.
type RegressionTree struct {
	opt      *TreeOptions
	rng      *rand.Rand
	nodes    []treeNode
	features int

	x [][]float64
	y []float64
}

func NewRegressionTree(opt *TreeOptions, rng *rand.Rand) (*RegressionTree, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(0, 0))
	}
	return &RegressionTree{opt: opt, rng: rng}, nil
}

func (t *RegressionTree) Fit(x mat.Matrix, y []float64) error {
	m, n, err := checkTraining(x, y)
	if err != nil {
		return err
	}
	t.fitRows(mat_.Rows(x), y, n, allIndices(m))
	return nil
}

// fitRows grows the tree on the listed rows. Indices may repeat, which is how
// bootstrap samples are passed in.
func (t *RegressionTree) fitRows(x [][]float64, y []float64, features int, indices []int) {
	t.x, t.y = x, y
	t.features = features
	t.nodes = t.nodes[:0]
	t.buildNode(indices, 0)
	t.x, t.y = nil, nil
}

func allIndices(m int) []int {
	idx := make([]int, m)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func (t *RegressionTree) leafValue(indices []int) float64 {
	var sum float64
	for _, idx := range indices {
		sum += t.y[idx]
	}
	return sum / float64(len(indices))
}

func (t *RegressionTree) constantTarget(indices []int) bool {
	first := t.y[indices[0]]
	for _, idx := range indices[1:] {
		if t.y[idx] != first {
			return false
		}
	}
	return true
}

// buildNode recursively builds tree nodes and returns the index of the new node
func (t *RegressionTree) buildNode(indices []int, depth int) int {
	nodeIdx := len(t.nodes)
	t.nodes = append(t.nodes, treeNode{
		Value:   t.leafValue(indices),
		Samples: len(indices),
		Left:    -1,
		Right:   -1,
	})

	if depth >= t.opt.MaxDepth ||
		len(indices) < t.opt.MinSamplesSplit ||
		len(indices) < 2*t.opt.MinSamplesLeaf ||
		t.constantTarget(indices) {
		return nodeIdx
	}

	best := t.findBestSplit(indices)
	if !best.found {
		return nodeIdx
	}

	var leftIndices, rightIndices []int
	for _, idx := range indices {
		if t.x[idx][best.feature] <= best.threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}

	if len(leftIndices) == 0 || len(rightIndices) == 0 {
		return nodeIdx
	}

	left := t.buildNode(leftIndices, depth+1)
	right := t.buildNode(rightIndices, depth+1)

	t.nodes[nodeIdx].Feature = best.feature
	t.nodes[nodeIdx].Threshold = best.threshold
	t.nodes[nodeIdx].Left = left
	t.nodes[nodeIdx].Right = right
	return nodeIdx
}

// findBestSplit maximizes the reduction in squared error over every feature
func (t *RegressionTree) findBestSplit(indices []int) splitInfo {
	var total float64
	for _, idx := range indices {
		total += t.y[idx]
	}
	parentScore := total * total / float64(len(indices))

	best := splitInfo{gain: 0}
	for _, feature := range t.rng.Perm(t.features) {
		split := t.findBestSplitForFeature(indices, feature, total)
		if !split.found {
			continue
		}
		split.gain -= parentScore
		if split.gain > best.gain+1e-12*math.Abs(parentScore) {
			best = split
		}
	}
	return best
}

// findBestSplitForFeature scans the sorted values of one feature. The score of a
// split is sumL^2/nL + sumR^2/nR, which grows as the squared error of the two
// children shrinks.
func (t *RegressionTree) findBestSplitForFeature(indices []int, feature int, total float64) splitInfo {
	sorted := make([]int, len(indices))
	copy(sorted, indices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return t.x[sorted[i]][feature] < t.x[sorted[j]][feature]
	})

	best := splitInfo{feature: feature, gain: math.Inf(-1)}
	var leftSum float64
	n := len(sorted)
	for i := 0; i < n-1; i++ {
		leftSum += t.y[sorted[i]]
		leftCount := i + 1
		rightCount := n - leftCount

		curr := t.x[sorted[i]][feature]
		next := t.x[sorted[i+1]][feature]
		if curr == next {
			continue
		}
		if leftCount < t.opt.MinSamplesLeaf || rightCount < t.opt.MinSamplesLeaf {
			continue
		}

		rightSum := total - leftSum
		score := leftSum*leftSum/float64(leftCount) + rightSum*rightSum/float64(rightCount)
		if score > best.gain {
			best.gain = score
			best.threshold = curr + (next-curr)/2
			if best.threshold >= next {
				best.threshold = curr
			}
			best.found = true
		}
	}
	return best
}

// predictRow walks the tree for a single observation
func (t *RegressionTree) predictRow(row []float64) float64 {
	node := t.nodes[0]
	for node.Left >= 0 {
		if row[node.Feature] <= node.Threshold {
			node = t.nodes[node.Left]
		} else {
			node = t.nodes[node.Right]
		}
	}
	return node.Value
}

func (t *RegressionTree) Predict(x mat.Matrix) ([]float64, error) {
	if len(t.nodes) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkDesign(x, t.features); err != nil {
		return nil, err
	}
	rows := mat_.Rows(x)
	pred := make([]float64, len(rows))
	for i, row := range rows {
		pred[i] = t.predictRow(row)
	}
	return pred, nil
}

// Depth returns the depth of the deepest leaf
func (t *RegressionTree) Depth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	var walk func(idx, depth int) int
	walk = func(idx, depth int) int {
		node := t.nodes[idx]
		if node.Left < 0 {
			return depth
		}
		return max(walk(node.Left, depth+1), walk(node.Right, depth+1))
	}
	return walk(0, 0)
}

// Leaves returns the number of leaf nodes
func (t *RegressionTree) Leaves() int {
	var leaves int
	for _, node := range t.nodes {
		if node.Left < 0 {
			leaves++
		}
	}
	return leaves
}
