package forecast

import (
	"log/slog"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/srirammulukuntla11/forecastpro-app/feature"
	mat_ "github.com/srirammulukuntla11/forecastpro-app/mat"
	"github.com/srirammulukuntla11/forecastpro-app/metrics"
	"github.com/srirammulukuntla11/forecastpro-app/models"
	"github.com/srirammulukuntla11/forecastpro-app/stats"
	"github.com/srirammulukuntla11/forecastpro-app/timedataset"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUntrainedModel      = errors.New("model has not been trained")
	ErrFeatureLen          = errors.New("feature vector width does not match the model inputs")
	ErrNonFiniteFeature    = errors.New("feature vector has a non-finite value")
	ErrNonFinitePrediction = errors.New("prediction is not finite")
)

// DefaultPolynomialDegree is the degree of the polynomial model's expansion
const DefaultPolynomialDegree = 2

// TrainOptions holds the fit parameters of every model kind. Only the entry for
// the trained kind is used.
type TrainOptions struct {
	OLS              *models.OLSOptions              `json:"ols"`
	PolynomialDegree int                             `json:"polynomial_degree"`
	RandomForest     *models.RandomForestOptions     `json:"random_forest"`
	GradientBoosting *models.GradientBoostingOptions `json:"gradient_boosting"`

	// Metrics receives training and fallback counts. Nil records nothing.
	Metrics *metrics.Collector `json:"-"`
}

func NewDefaultTrainOptions() *TrainOptions {
	return &TrainOptions{
		OLS:              models.NewDefaultOLSOptions(),
		PolynomialDegree: DefaultPolynomialDegree,
		RandomForest:     models.NewDefaultRandomForestOptions(),
		GradientBoosting: models.NewDefaultGradientBoostingOptions(),
	}
}

func (o *TrainOptions) Validate() (*TrainOptions, error) {
	if o == nil {
		return NewDefaultTrainOptions(), nil
	}
	var err error
	if o.OLS, err = o.OLS.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid ols options")
	}
	if o.PolynomialDegree == 0 {
		o.PolynomialDegree = DefaultPolynomialDegree
	}
	if o.RandomForest, err = o.RandomForest.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid random forest options")
	}
	if o.GradientBoosting, err = o.GradientBoosting.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid gradient boosting options")
	}
	return o, nil
}

// TrainedModel is a fitted regressor over the four model inputs. The polynomial
// kind carries the expansion applied at training time and reapplies it on every
// prediction. A one feature trend regression on the period index is fitted next
// to every model and serves forecast steps whose features cannot be used.
//
// A TrainedModel is read-only after Train returns.
type TrainedModel struct {
	kind      models.Kind
	opt       *TrainOptions
	inputs    *feature.Labels
	expansion *feature.PolynomialExpansion
	regressor models.Regressor
	trend     *models.OLSRegression
	scores    *Scores
	vif       map[string]float64

	trainEnd  time.Time
	lastIndex int
}

// Train fits a model of the given kind on every record of the series. The
// returned scores are in-sample.
func Train(series *timedataset.MonthlySeries, kind models.Kind, opt *TrainOptions) (*TrainedModel, error) {
	if !kind.Valid() {
		return nil, models.NewUnknownModelKindError(kind.String())
	}
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if series.Len() == 0 {
		return nil, timedataset.NewInsufficientDataError("train", 0)
	}

	start := time.Now()
	rows, y := series.FeatureMatrix()

	tm := &TrainedModel{
		kind:   kind,
		opt:    opt,
		inputs: feature.ModelInputs(),
	}

	design := rows
	if kind == models.KindPolynomial {
		tm.expansion, err = feature.NewPolynomialExpansion(tm.inputs, opt.PolynomialDegree)
		if err != nil {
			return nil, err
		}
		design, err = tm.expansion.TransformRows(rows)
		if err != nil {
			return nil, err
		}
	}

	x, err := mat_.NewDenseFromArray(design)
	if err != nil {
		return nil, err
	}

	tm.regressor, err = newRegressor(kind, opt)
	if err != nil {
		return nil, err
	}
	if err := tm.regressor.Fit(x, y); err != nil {
		return nil, errors.Wrapf(err, "unable to fit %s model", kind)
	}

	tm.trend, err = fitTrend(series, opt.OLS)
	if err != nil {
		return nil, errors.Wrap(err, "unable to fit trend model")
	}

	predicted, err := tm.regressor.Predict(x)
	if err != nil {
		return nil, err
	}
	tm.scores, err = NewScores(predicted, y)
	if err != nil {
		return nil, err
	}

	if series.Len() > 2 {
		cols := make(map[string][]float64, tm.inputs.Len())
		for j, name := range tm.inputs.Strings() {
			col := make([]float64, len(rows))
			for i, row := range rows {
				col[i] = row[j]
			}
			cols[name] = col
		}
		if tm.vif, err = stats.VarianceInflationFactor(cols); err != nil {
			slog.Warn("unable to compute variance inflation factors", "kind", kind.String(), "error", err)
		}
	}

	last, _ := series.Last()
	tm.trainEnd = last.Period
	tm.lastIndex = last.PeriodIndex

	opt.Metrics.ObserveTraining(kind.String(), time.Since(start))
	slog.Debug("trained model",
		"kind", kind.String(),
		"rows", len(y),
		"features", len(design[0]),
		"r2", tm.scores.R2,
		"mae", tm.scores.MAE,
		"rmse", tm.scores.RMSE,
	)
	return tm, nil
}

func newRegressor(kind models.Kind, opt *TrainOptions) (models.Regressor, error) {
	switch kind {
	case models.KindLinear, models.KindPolynomial:
		return models.NewOLSRegression(opt.OLS)
	case models.KindRandomForest:
		return models.NewRandomForest(opt.RandomForest)
	case models.KindGradientBoosting:
		return models.NewGradientBoosting(opt.GradientBoosting)
	}
	return nil, models.NewUnknownModelKindError(kind.String())
}

func fitTrend(series *timedataset.MonthlySeries, opt *models.OLSOptions) (*models.OLSRegression, error) {
	idx := make([]float64, series.Len())
	for i, r := range series.Records {
		idx[i] = float64(r.PeriodIndex)
	}
	trend, err := models.NewOLSRegression(opt)
	if err != nil {
		return nil, err
	}
	if err := trend.Fit(mat.NewDense(len(idx), 1, idx), series.Values()); err != nil {
		return nil, err
	}
	return trend, nil
}

// Predict returns the model output for one input vector of
// period index, lag1, lag2 and the trailing 3 month mean.
func (tm *TrainedModel) Predict(features []float64) (float64, error) {
	if tm == nil || tm.regressor == nil {
		return 0, ErrUntrainedModel
	}
	if len(features) != tm.inputs.Len() {
		return 0, errors.Wrapf(ErrFeatureLen, "got %d features, expected %d", len(features), tm.inputs.Len())
	}
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, errors.Wrapf(ErrNonFiniteFeature, "%s is %f", tm.inputs.Strings()[i], v)
		}
	}

	row := features
	if tm.expansion != nil {
		expanded, err := tm.expansion.Transform(features)
		if err != nil {
			return 0, err
		}
		row = expanded
	}

	pred, err := tm.regressor.Predict(mat.NewDense(1, len(row), row))
	if err != nil {
		return 0, err
	}
	if math.IsNaN(pred[0]) || math.IsInf(pred[0], 0) {
		return 0, ErrNonFinitePrediction
	}
	return pred[0], nil
}

// PredictTrend returns the one feature trend model output for a period index
func (tm *TrainedModel) PredictTrend(periodIndex int) (float64, error) {
	if tm == nil || tm.trend == nil {
		return 0, ErrUntrainedModel
	}
	pred, err := tm.trend.Predict(mat.NewDense(1, 1, []float64{float64(periodIndex)}))
	if err != nil {
		return 0, err
	}
	if math.IsNaN(pred[0]) || math.IsInf(pred[0], 0) {
		return 0, ErrNonFinitePrediction
	}
	return pred[0], nil
}

func (tm *TrainedModel) Kind() models.Kind {
	if tm == nil {
		return models.KindUnknown
	}
	return tm.kind
}

// Scores returns the in-sample fit scores
func (tm *TrainedModel) Scores() Scores {
	if tm == nil || tm.scores == nil {
		return Scores{}
	}
	return *tm.scores
}

// Expansion returns the stored polynomial expansion, nil for other kinds
func (tm *TrainedModel) Expansion() *feature.PolynomialExpansion {
	if tm == nil {
		return nil
	}
	return tm.expansion
}

// FeatureLabels returns the regressor inputs in coefficient order
func (tm *TrainedModel) FeatureLabels() []feature.Feature {
	if tm == nil {
		return nil
	}
	if tm.expansion != nil {
		return tm.expansion.Labels().Labels()
	}
	return tm.inputs.Labels()
}

// VIF returns the variance inflation factor of each model input over the
// training rows. It is empty for series of fewer than 3 months.
func (tm *TrainedModel) VIF() map[string]float64 {
	if tm == nil {
		return nil
	}
	out := make(map[string]float64, len(tm.vif))
	for k, v := range tm.vif {
		out[k] = v
	}
	return out
}

// LastPeriodIndex returns the period index of the final training record
func (tm *TrainedModel) LastPeriodIndex() int {
	if tm == nil {
		return 0
	}
	return tm.lastIndex
}

// TrainEndTime returns the period of the final training record
func (tm *TrainedModel) TrainEndTime() time.Time {
	if tm == nil {
		return time.Time{}
	}
	return tm.trainEnd
}
