// Package forecaster runs the monthly forecasting pipeline end to end: it builds
// the monthly series from a raw table, trains one or every model kind and
// forecasts the months that follow the last observed period.
package forecaster

import (
	"log/slog"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/srirammulukuntla11/forecastpro-app/forecast"
	"github.com/srirammulukuntla11/forecastpro-app/infer"
	"github.com/srirammulukuntla11/forecastpro-app/models"
	"github.com/srirammulukuntla11/forecastpro-app/stats"
	"github.com/srirammulukuntla11/forecastpro-app/table"
	"github.com/srirammulukuntla11/forecastpro-app/timedataset"
)

var (
	ErrInsufficientHistory = errors.New("insufficient history to train a model")
	ErrHorizonTooLarge     = errors.New("forecast horizon exceeds the maximum")
	ErrUnknownColumn       = errors.New("column does not exist")
	ErrNonNumericColumn    = errors.New("column is not numeric")
)

const (
	// MinTrainingPeriods is the fewest months a model is trained on
	MinTrainingPeriods = 3

	// MaxHorizon is the longest forecast served by the command line and the server
	MaxHorizon = 36
)

// CheckHorizon validates a caller supplied horizon against 1..MaxHorizon
func CheckHorizon(h int) error {
	if h < 1 {
		return errors.Wrapf(forecast.ErrInvalidHorizon, "got %d", h)
	}
	if h > MaxHorizon {
		return errors.Wrapf(ErrHorizonTooLarge, "got %d, maximum is %d", h, MaxHorizon)
	}
	return nil
}

// Forecaster runs the pipeline with a fixed set of options. It holds no state
// between calls and is safe for concurrent use.
type Forecaster struct {
	opt *Options
}

// New creates a new instance of a Forecaster using the provided options. If no
// options are provided a default is used.
func New(opt *Options) (*Forecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Forecaster{opt: opt}, nil
}

// Options returns the validated options
func (f *Forecaster) Options() *Options {
	return f.opt
}

// Build derives the monthly series from tbl and records the rows each stage
// dropped.
func (f *Forecaster) Build(tbl *table.Table) (*timedataset.MonthlySeries, *timedataset.BuildReport, error) {
	series, report, err := timedataset.Build(tbl, f.opt.Build)
	if report != nil {
		for stage, n := range report.Dropped() {
			f.opt.Metrics.ObserveDropped(stage, n)
		}
		f.opt.Metrics.ObserveClamped(report.Clamped)
	}
	if err != nil {
		return nil, report, err
	}
	return series, report, nil
}

// Train fits a model of the given kind. Series shorter than MinTrainingPeriods
// are refused before any model is fitted.
func (f *Forecaster) Train(series *timedataset.MonthlySeries, kind models.Kind) (*forecast.TrainedModel, error) {
	if n := series.Len(); n < MinTrainingPeriods {
		return nil, errors.Wrapf(
			errors.Mark(timedataset.NewInsufficientDataError("train", n), ErrInsufficientHistory),
			"need at least %d months", MinTrainingPeriods,
		)
	}
	return forecast.Train(series, kind, f.opt.Train)
}

// Predict forecasts horizon months after the series with a trained model and
// pairs every value with its calendar month.
func (f *Forecaster) Predict(series *timedataset.MonthlySeries, model *forecast.TrainedModel, horizon int) (*Results, error) {
	last, ok := series.Last()
	if !ok {
		return nil, timedataset.NewInsufficientDataError("forecast", 0)
	}
	res, err := forecast.Forecast(model, last.PeriodIndex, horizon, series)
	if err != nil {
		return nil, err
	}
	m, err := model.Model()
	if err != nil {
		return nil, err
	}
	return &Results{
		Kind:      model.Kind(),
		T:         series.NextPeriods(horizon),
		Forecast:  res.Values,
		Steps:     res.Steps,
		Fallbacks: res.Fallbacks,
		Scores:    model.Scores(),
		Model:     m,
	}, nil
}

// Run builds the series from tbl, trains a model of the given kind and
// forecasts horizon months.
func (f *Forecaster) Run(tbl *table.Table, kind models.Kind, horizon int) (*Results, error) {
	series, report, err := f.Build(tbl)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build monthly series")
	}
	model, err := f.Train(series, kind)
	if err != nil {
		return nil, err
	}
	res, err := f.Predict(series, model, horizon)
	if err != nil {
		return nil, err
	}
	res.Report = report
	return res, nil
}

// Compare trains and forecasts every model kind on the same series. Results are
// sorted by in-sample R2, best first. A kind that fails reports its error and a
// zero forecast instead of aborting the comparison.
func (f *Forecaster) Compare(tbl *table.Table, horizon int) (*Comparison, error) {
	if horizon < 1 {
		return nil, errors.Wrapf(forecast.ErrInvalidHorizon, "got %d", horizon)
	}
	series, report, err := f.Build(tbl)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build monthly series")
	}
	if n := series.Len(); n < MinTrainingPeriods {
		return nil, errors.Wrapf(
			errors.Mark(timedataset.NewInsufficientDataError("compare", n), ErrInsufficientHistory),
			"need at least %d months", MinTrainingPeriods,
		)
	}

	cmp := &Comparison{
		T:      series.NextPeriods(horizon),
		Report: report,
	}
	var firstErr error
	for _, kind := range models.Kinds() {
		kr := KindResult{Kind: kind}

		res, err := f.runKind(series, kind, horizon)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			slog.Warn("model failed during comparison", "kind", kind.String(), "error", err)
			kr.Forecast = make([]float64, horizon)
			kr.Error = err.Error()
		} else {
			kr.Forecast = res.Forecast
			kr.Scores = res.Scores
			kr.Fallbacks = res.Fallbacks
		}
		cmp.Results = append(cmp.Results, kr)
	}

	sort.SliceStable(cmp.Results, func(i, j int) bool {
		a, b := cmp.Results[i], cmp.Results[j]
		if (a.Error == "") != (b.Error == "") {
			return a.Error == ""
		}
		return a.Scores.R2 > b.Scores.R2
	})
	if cmp.Results[0].Error != "" {
		return nil, errors.Wrap(firstErr, "every model kind failed")
	}
	cmp.Best = cmp.Results[0].Kind
	return cmp, nil
}

func (f *Forecaster) runKind(series *timedataset.MonthlySeries, kind models.Kind, horizon int) (*Results, error) {
	model, err := f.Train(series, kind)
	if err != nil {
		return nil, err
	}
	return f.Predict(series, model, horizon)
}

// Anomalies flags rows of a numeric column with the given method. An empty
// column selects the inferred value column.
func (f *Forecaster) Anomalies(tbl *table.Table, method stats.AnomalyMethod, column string) (*AnomalyReport, error) {
	res, err := infer.Columns(tbl, f.opt.Build.Infer)
	if err != nil {
		return nil, err
	}
	work := res.Table

	if column == "" {
		column = res.Value.Column
	} else {
		column = infer.NormalizeColumnName(column)
		if !work.Has(column) {
			return nil, errors.Wrapf(ErrUnknownColumn, "%q", column)
		}
		if work.Kind(column) != table.KindNumeric {
			return nil, errors.Wrapf(ErrNonNumericColumn, "%q is %s", column, work.Kind(column))
		}
	}

	vals, rows := work.Floats(column)
	idx, err := stats.Detect(method, vals, f.opt.Anomaly)
	if err != nil {
		return nil, err
	}

	report := &AnomalyReport{
		Method:  method,
		Column:  column,
		Samples: len(vals),
		Rows:    make([]int, 0, len(idx)),
		Values:  make([]float64, 0, len(idx)),
	}
	for _, i := range idx {
		report.Rows = append(report.Rows, rows[i])
		report.Values = append(report.Values, vals[i])
	}
	slog.Debug("detected anomalies", "method", string(method), "column", column, "samples", len(vals), "anomalies", len(idx))
	return report, nil
}
