package models

import (
	"math/rand/v2"

	"github.com/cockroachdb/errors"
	mat_ "github.com/srirammulukuntla11/forecastpro-app/mat"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GradientBoostingOptions configures least squares gradient boosting
type GradientBoostingOptions struct {
	Stages          int     `json:"stages"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	LearningRate    float64 `json:"learning_rate"`
	Seed            uint64  `json:"seed"`
}

func NewDefaultGradientBoostingOptions() *GradientBoostingOptions {
	return &GradientBoostingOptions{
		Stages:          100,
		MaxDepth:        5,
		MinSamplesSplit: 2,
		LearningRate:    0.1,
		Seed:            42,
	}
}

func (o *GradientBoostingOptions) Validate() (*GradientBoostingOptions, error) {
	if o == nil {
		return NewDefaultGradientBoostingOptions(), nil
	}
	if o.Stages < 1 {
		return nil, errors.Newf("boosting needs at least 1 stage, got %d", o.Stages)
	}
	if o.MaxDepth < 1 {
		return nil, errors.Newf("max depth must be at least 1, got %d", o.MaxDepth)
	}
	if o.LearningRate <= 0 || o.LearningRate > 1 {
		return nil, errors.Newf("learning rate must be in (0, 1], got %f", o.LearningRate)
	}
	return o, nil
}

// GradientBoosting starts from the mean target and adds one shrunken regression
// tree per stage, each fitted to the residuals of the ensemble so far.
type GradientBoosting struct {
	opt      *GradientBoostingOptions
	init     float64
	stages   []*RegressionTree
	features int
}

func NewGradientBoosting(opt *GradientBoostingOptions) (*GradientBoosting, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &GradientBoosting{opt: opt}, nil
}

func (g *GradientBoosting) Fit(x mat.Matrix, y []float64) error {
	m, n, err := checkTraining(x, y)
	if err != nil {
		return err
	}
	rows := mat_.Rows(x)
	rng := rand.New(rand.NewPCG(g.opt.Seed, g.opt.Seed))
	treeOpt := &TreeOptions{
		MaxDepth:        g.opt.MaxDepth,
		MinSamplesSplit: g.opt.MinSamplesSplit,
		MinSamplesLeaf:  1,
	}

	g.features = n
	g.init = stat.Mean(y, nil)

	current := make([]float64, m)
	for i := range current {
		current[i] = g.init
	}
	residuals := make([]float64, m)
	indices := allIndices(m)

	g.stages = make([]*RegressionTree, g.opt.Stages)
	for s := range g.stages {
		for i := range residuals {
			residuals[i] = y[i] - current[i]
		}
		tree, err := NewRegressionTree(treeOpt, rng)
		if err != nil {
			return err
		}
		tree.fitRows(rows, residuals, n, indices)
		for i, row := range rows {
			current[i] += g.opt.LearningRate * tree.predictRow(row)
		}
		g.stages[s] = tree
	}
	return nil
}

func (g *GradientBoosting) Predict(x mat.Matrix) ([]float64, error) {
	if len(g.stages) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkDesign(x, g.features); err != nil {
		return nil, err
	}
	rows := mat_.Rows(x)
	pred := make([]float64, len(rows))
	for i, row := range rows {
		p := g.init
		for _, tree := range g.stages {
			p += g.opt.LearningRate * tree.predictRow(row)
		}
		pred[i] = p
	}
	return pred, nil
}

// Init returns the initial prediction, the mean of the training target
func (g *GradientBoosting) Init() float64 {
	return g.init
}

// Len returns the number of fitted stages
func (g *GradientBoosting) Len() int {
	return len(g.stages)
}
