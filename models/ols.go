package models

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type OLSOptions struct {
	FitIntercept bool `json:"fit_intercept"`

	// Rcond is the relative cutoff below which singular values of the training
	// matrix are treated as zero. Zero uses machine epsilon scaled by the larger
	// matrix dimension.
	Rcond float64 `json:"rcond"`
}

func NewDefaultOLSOptions() *OLSOptions {
	return &OLSOptions{
		FitIntercept: true,
	}
}

func (o *OLSOptions) Validate() (*OLSOptions, error) {
	if o == nil {
		return NewDefaultOLSOptions(), nil
	}
	if o.Rcond < 0 || math.IsNaN(o.Rcond) {
		return nil, errors.Newf("rcond must be non-negative, got %f", o.Rcond)
	}
	return o, nil
}

// OLSRegression computes ordinary least squares. The intercept is recovered from
// centered data and the coefficients are the minimum norm least squares solution
// from a singular value decomposition, so collinear features such as lags of a
// linear trend still produce a stable fit.
type OLSRegression struct {
	opt       *OLSOptions
	coef      []float64
	intercept float64
	rank      int
	fitted    bool
}

func NewOLSRegression(opt *OLSOptions) (*OLSRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &OLSRegression{
		opt: opt,
	}, nil
}

func (o *OLSRegression) Fit(x mat.Matrix, y []float64) error {
	if o.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetArray
	}
	m, n := x.Dims()
	if m == 0 || n == 0 {
		return ErrNoTrainingMatrix
	}
	if len(y) != m {
		return errors.Wrapf(ErrTargetLenMismatch, "training data has %d rows and target has %d", m, len(y))
	}

	xc := mat.DenseCopyOf(x)
	yc := make([]float64, m)
	copy(yc, y)

	xMean := make([]float64, n)
	var yMean float64
	if o.opt.FitIntercept {
		for j := 0; j < n; j++ {
			col := mat.Col(nil, j, xc)
			xMean[j] = stat.Mean(col, nil)
			floats.AddConst(-xMean[j], col)
			xc.SetCol(j, col)
		}
		yMean = stat.Mean(yc, nil)
		floats.AddConst(-yMean, yc)
	}

	var svd mat.SVD
	if ok := svd.Factorize(xc, mat.SVDThin); !ok {
		return ErrFactorization
	}

	rcond := o.opt.Rcond
	if rcond == 0 {
		rcond = float64(max(m, n)) * eps
	}
	o.rank = svd.Rank(rcond)

	o.coef = make([]float64, n)
	if o.rank > 0 {
		var beta mat.VecDense
		svd.SolveVecTo(&beta, mat.NewVecDense(m, yc), o.rank)
		for j := 0; j < n; j++ {
			o.coef[j] = beta.AtVec(j)
		}
	}

	o.intercept = 0
	if o.opt.FitIntercept {
		o.intercept = yMean - floats.Dot(xMean, o.coef)
	}
	o.fitted = true
	return nil
}

func (o *OLSRegression) Predict(x mat.Matrix) ([]float64, error) {
	if o.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if !o.fitted {
		return nil, ErrNotFitted
	}

	m, n := x.Dims()
	if n != len(o.coef) {
		return nil, errors.Wrapf(ErrFeatureLenMismatch, "got %d features in design matrix, but expected %d", n, len(o.coef))
	}

	var res mat.VecDense
	res.MulVec(x, mat.NewVecDense(n, o.coef))

	pred := make([]float64, m)
	for i := 0; i < m; i++ {
		pred[i] = res.AtVec(i) + o.intercept
	}
	return pred, nil
}

func (o *OLSRegression) Intercept() float64 {
	return o.intercept
}

func (o *OLSRegression) Coef() []float64 {
	c := make([]float64, len(o.coef))
	copy(c, o.coef)
	return c
}

// Rank returns the numerical rank of the centered training matrix
func (o *OLSRegression) Rank() int {
	return o.rank
}
