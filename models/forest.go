package models

import (
	"math/rand/v2"

	"github.com/cockroachdb/errors"
	mat_ "github.com/srirammulukuntla11/forecastpro-app/mat"
	"gonum.org/v1/gonum/mat"
)

// RandomForestOptions configures a bootstrap aggregated ensemble of regression
// trees
type RandomForestOptions struct {
	Trees           int    `json:"trees"`
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	Seed            uint64 `json:"seed"`
}

func NewDefaultRandomForestOptions() *RandomForestOptions {
	return &RandomForestOptions{
		Trees:           100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		Seed:            42,
	}
}

func (o *RandomForestOptions) Validate() (*RandomForestOptions, error) {
	if o == nil {
		return NewDefaultRandomForestOptions(), nil
	}
	if o.Trees < 1 {
		return nil, errors.Newf("forest needs at least 1 tree, got %d", o.Trees)
	}
	if o.MaxDepth < 1 {
		return nil, errors.Newf("max depth must be at least 1, got %d", o.MaxDepth)
	}
	return o, nil
}

// RandomForest averages trees grown on bootstrap samples of the training rows.
// Every split considers all features; the randomness is in the samples.
type RandomForest struct {
	opt      *RandomForestOptions
	trees    []*RegressionTree
	features int
}

func NewRandomForest(opt *RandomForestOptions) (*RandomForest, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &RandomForest{opt: opt}, nil
}

func (f *RandomForest) Fit(x mat.Matrix, y []float64) error {
	m, n, err := checkTraining(x, y)
	if err != nil {
		return err
	}
	rows := mat_.Rows(x)
	rng := rand.New(rand.NewPCG(f.opt.Seed, f.opt.Seed))
	treeOpt := &TreeOptions{
		MaxDepth:        f.opt.MaxDepth,
		MinSamplesSplit: f.opt.MinSamplesSplit,
		MinSamplesLeaf:  1,
	}

	f.features = n
	f.trees = make([]*RegressionTree, f.opt.Trees)
	for i := range f.trees {
		sample := make([]int, m)
		for j := range sample {
			sample[j] = rng.IntN(m)
		}
		tree, err := NewRegressionTree(treeOpt, rng)
		if err != nil {
			return err
		}
		tree.fitRows(rows, y, n, sample)
		f.trees[i] = tree
	}
	return nil
}

func (f *RandomForest) Predict(x mat.Matrix) ([]float64, error) {
	if len(f.trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkDesign(x, f.features); err != nil {
		return nil, err
	}
	rows := mat_.Rows(x)
	pred := make([]float64, len(rows))
	for i, row := range rows {
		var sum float64
		for _, tree := range f.trees {
			sum += tree.predictRow(row)
		}
		pred[i] = sum / float64(len(f.trees))
	}
	return pred, nil
}

// Len returns the number of fitted trees
func (f *RandomForest) Len() int {
	return len(f.trees)
}
