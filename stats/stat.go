// Package stats holds the descriptive statistics, outlier filters and anomaly
// detectors used across the forecasting pipeline.
package stats

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/srirammulukuntla11/forecastpro-app/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrMinimumFeatures    = errors.New("need at least 2 features to compute VIF")
	ErrFeatureLenMismatch = errors.New("some feature length is not consistent")
	ErrFeatureLen         = errors.New("must have at least 2 points per feature")
)

// finite returns the finite values of y and their positions
func finite(y []float64) ([]float64, []int) {
	vals := make([]float64, 0, len(y))
	idx := make([]int, 0, len(y))
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		vals = append(vals, v)
		idx = append(idx, i)
	}
	return vals, idx
}

// Percentile returns the p-th quantile (0 <= p <= 1) of y using linear
// interpolation between the closest ranks. NaN for empty input.
func Percentile(y []float64, p float64) float64 {
	vals, _ := finite(y)
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	p = math.Min(math.Max(p, 0.0), 1.0)

	pos := p * float64(len(vals)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	frac := pos - float64(lower)
	return vals[lower] + (vals[upper]-vals[lower])*frac
}

// PopulationStdDev returns the standard deviation normalized by n
func PopulationStdDev(y []float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	_, variance := stat.PopMeanVariance(y, nil)
	return math.Sqrt(variance)
}

// ThreeSigmaMask reports which values lie within mean +/- sigma standard
// deviations, using the sample standard deviation. Non-finite values are never
// kept. When fewer than two finite values exist or they are all equal every
// finite value is kept.
func ThreeSigmaMask(y []float64, sigma float64) []bool {
	keep := make([]bool, len(y))
	vals, idx := finite(y)
	for _, i := range idx {
		keep[i] = true
	}
	if len(vals) < 2 {
		return keep
	}

	mean, std := stat.MeanStdDev(vals, nil)
	if std == 0 || math.IsNaN(std) {
		return keep
	}
	lower := mean - sigma*std
	upper := mean + sigma*std
	for j, v := range vals {
		if v < lower || v > upper {
			keep[idx[j]] = false
		}
	}
	return keep
}

// DetectOutliers returns the indices of values outside the Tukey fence built from
// the lowerPerc and upperPerc quantiles widened by tukeyFactor times their range.
// Values on the fence are not outliers.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	if len(y) == 0 {
		return nil
	}

	lower := Percentile(y, lowerPerc)
	upper := Percentile(y, upperPerc)
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if y[i] > upper || y[i] < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}

// VarianceInflationFactor regresses every feature on the others and reports
// 1/(1-R2). A feature that is an exact linear combination of the others reports
// +Inf.
func VarianceInflationFactor(features map[string][]float64) (map[string]float64, error) {
	if len(features) < 2 {
		return nil, ErrMinimumFeatures
	}
	labels := make([]string, 0, len(features))
	var m int
	for label, feature := range features {
		if len(feature) < 2 {
			return nil, ErrFeatureLen
		}
		if m == 0 {
			m = len(feature)
		}
		if m != len(feature) {
			return nil, ErrFeatureLenMismatch
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	n := len(labels)

	vif := make(map[string]float64, n)
	x := mat.NewDense(m, n-1, nil)
	for _, label := range labels {
		c := 0
		for _, other := range labels {
			if other == label {
				continue
			}
			x.SetCol(c, features[other])
			c++
		}

		ols, err := models.NewOLSRegression(nil)
		if err != nil {
			return nil, err
		}
		if err := ols.Fit(x, features[label]); err != nil {
			return nil, errors.Wrapf(err, "unable to regress feature %q", label)
		}
		predicted, err := ols.Predict(x)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to predict feature %q", label)
		}
		r2 := stat.RSquaredFrom(predicted, features[label], nil)
		switch {
		case math.IsNaN(r2):
			vif[label] = 1.0
		case r2 >= 1.0-1e-9:
			vif[label] = math.Inf(1)
		default:
			vif[label] = 1.0 / (1.0 - r2)
		}
	}
	return vif, nil
}
