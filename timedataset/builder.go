package timedataset

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/srirammulukuntla11/forecastpro-app/infer"
	"github.com/srirammulukuntla11/forecastpro-app/stats"
	"github.com/srirammulukuntla11/forecastpro-app/table"
	"gonum.org/v1/gonum/stat"
)

const (
	StageInference = "inference"
	StageDateParse = "date_parse"
	StageValue     = "value_coerce"
	StageOutlier   = "outlier_filter"
	StageAggregate = "aggregate"

	// RollingWindow is the trailing window of the rolling mean and std features
	RollingWindow = 3
)

// DefaultCutoff is the latest date a row may carry. Later dates are clamped to it
// so corrupt future timestamps cannot dominate the final month.
var DefaultCutoff = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

// BuildOptions configures Build
type BuildOptions struct {
	Infer *infer.Options `json:"-"`

	// DateColumn and ValueColumn force a column instead of inferring it
	DateColumn  string `json:"date_column,omitempty"`
	ValueColumn string `json:"value_column,omitempty"`

	Cutoff       time.Time `json:"cutoff"`
	OutlierSigma float64   `json:"outlier_sigma"`

	// Holidays are excluded from the working day count of each month
	Holidays []*cal.Holiday `json:"-"`
}

// NewDefaultBuildOptions returns the default builder options
func NewDefaultBuildOptions() *BuildOptions {
	return &BuildOptions{
		Infer:        infer.NewDefaultOptions(),
		Cutoff:       DefaultCutoff,
		OutlierSigma: 3.0,
		Holidays:     us.Holidays,
	}
}

// Validate fills any unset option with its default
func (o *BuildOptions) Validate() *BuildOptions {
	if o == nil {
		return NewDefaultBuildOptions()
	}
	def := NewDefaultBuildOptions()
	o.Infer = o.Infer.Validate()
	if o.Cutoff.IsZero() {
		o.Cutoff = def.Cutoff
	}
	if o.OutlierSigma <= 0 {
		o.OutlierSigma = def.OutlierSigma
	}
	if o.Holidays == nil {
		o.Holidays = def.Holidays
	}
	return o
}

// BuildReport describes what the builder did with the input rows
type BuildReport struct {
	Columns *infer.Result `json:"columns"`

	InputRows      int `json:"input_rows"`
	DroppedDate    int `json:"dropped_date"`
	Clamped        int `json:"clamped"`
	DroppedValue   int `json:"dropped_value"`
	DroppedOutlier int `json:"dropped_outlier"`
	Months         int `json:"months"`
}

// Dropped returns the rows dropped by each stage keyed by stage name
func (r *BuildReport) Dropped() map[string]int {
	return map[string]int{
		StageDateParse: r.DroppedDate,
		StageValue:     r.DroppedValue,
		StageOutlier:   r.DroppedOutlier,
	}
}

type observation struct {
	t time.Time
	y float64
}

// Build derives the monthly series from a raw table. Rows whose date or value
// cannot be read are dropped, dates beyond the cutoff are clamped to it, 3-sigma
// outliers are removed and the rest is summed per calendar month. The only error
// returned for data reasons is an InsufficientDataError when nothing survives.
func Build(tbl *table.Table, opt *BuildOptions) (*MonthlySeries, *BuildReport, error) {
	opt = opt.Validate()

	cols, err := resolveColumns(tbl, opt)
	if err != nil {
		return nil, nil, err
	}
	work := cols.Table
	report := &BuildReport{Columns: cols, InputRows: work.Len()}

	obs := make([]observation, 0, work.Len())
	for i := 0; i < work.Len(); i++ {
		t, ok := table.ParseDate(work.Value(i, cols.Date.Column))
		if !ok {
			report.DroppedDate++
			continue
		}
		if t.After(opt.Cutoff) {
			t = opt.Cutoff
			report.Clamped++
		}
		y, ok := table.ToFloat(work.Value(i, cols.Value.Column))
		if !ok {
			report.DroppedValue++
			continue
		}
		obs = append(obs, observation{t: t, y: y})
	}
	if len(obs) == 0 {
		logReport(report)
		return nil, report, NewInsufficientDataError(StageValue, 0)
	}

	vals := make([]float64, len(obs))
	for i, o := range obs {
		vals[i] = o.y
	}
	keep := stats.ThreeSigmaMask(vals, opt.OutlierSigma)
	filtered := obs[:0]
	for i, o := range obs {
		if !keep[i] {
			report.DroppedOutlier++
			continue
		}
		filtered = append(filtered, o)
	}
	obs = filtered
	if len(obs) == 0 {
		logReport(report)
		return nil, report, NewInsufficientDataError(StageOutlier, 0)
	}

	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].t.Before(obs[j].t)
	})

	series := aggregate(obs)
	series.fillFeatures()
	series.setWorkingDays(opt.Holidays)
	report.Months = series.Len()
	logReport(report)

	if series.Len() == 0 {
		return nil, report, NewInsufficientDataError(StageAggregate, 0)
	}
	return series, report, nil
}

func resolveColumns(tbl *table.Table, opt *BuildOptions) (*infer.Result, error) {
	if tbl == nil {
		return nil, NewInsufficientDataError(StageInference, 0)
	}
	res, err := infer.Columns(tbl, opt.Infer)
	if err != nil {
		return nil, errors.Wrap(err, "unable to infer columns")
	}
	if opt.DateColumn != "" {
		name := infer.NormalizeColumnName(opt.DateColumn)
		if !res.Table.Has(name) {
			return nil, errors.Wrapf(table.ErrUnknownColumn, "date column %q", opt.DateColumn)
		}
		res.Date = infer.Selection{Column: name, Rule: "forced"}
	}
	if opt.ValueColumn != "" {
		name := infer.NormalizeColumnName(opt.ValueColumn)
		if !res.Table.Has(name) {
			return nil, errors.Wrapf(table.ErrUnknownColumn, "value column %q", opt.ValueColumn)
		}
		res.Value = infer.Selection{Column: name, Rule: "forced"}
	}
	return res, nil
}

func logReport(r *BuildReport) {
	slog.Debug("built monthly series",
		"input_rows", r.InputRows,
		"dropped_date", r.DroppedDate,
		"clamped", r.Clamped,
		"dropped_value", r.DroppedValue,
		"dropped_outlier", r.DroppedOutlier,
		"months", r.Months,
	)
}

// aggregate sums date sorted observations per calendar month
func aggregate(obs []observation) *MonthlySeries {
	series := &MonthlySeries{}
	for _, o := range obs {
		period := time.Date(o.t.Year(), o.t.Month(), 1, 0, 0, 0, 0, time.UTC)
		n := len(series.Records)
		if n > 0 && series.Records[n-1].Period.Equal(period) {
			series.Records[n-1].Value += o.y
			continue
		}
		series.Records = append(series.Records, Record{
			Period:      period,
			PeriodIndex: n + 1,
			Value:       o.y,
		})
	}
	return series
}

// fillFeatures computes lags and trailing rolling statistics. The rolling mean
// and std are only defined once a full window is available. Values that are
// undefined at the start of the series are backward filled then forward filled; a
// feature with no defined value at all is set to zero.
func (m *MonthlySeries) fillFeatures() {
	vals := m.Values()
	n := len(vals)

	lag1 := shift(vals, 1)
	lag2 := shift(vals, 2)
	lag3 := shift(vals, 3)
	mean := make([]float64, n)
	std := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < RollingWindow-1 {
			mean[i], std[i] = math.NaN(), math.NaN()
			continue
		}
		window := vals[i-RollingWindow+1 : i+1]
		mean[i] = stat.Mean(window, nil)
		std[i] = stat.StdDev(window, nil)
	}

	for _, col := range [][]float64{lag1, lag2, lag3, mean, std} {
		fill(col)
	}
	for i := range m.Records {
		r := &m.Records[i]
		r.Lag1, r.Lag2, r.Lag3 = lag1[i], lag2[i], lag3[i]
		r.RollingMean3, r.RollingStd3 = mean[i], std[i]
	}
}

func (m *MonthlySeries) setWorkingDays(holidays []*cal.Holiday) {
	for i := range m.Records {
		m.Records[i].WorkingDays = WorkingDays(m.Records[i].Period, holidays)
	}
}

func shift(vals []float64, k int) []float64 {
	out := make([]float64, len(vals))
	for i := range vals {
		if i < k {
			out[i] = math.NaN()
			continue
		}
		out[i] = vals[i-k]
	}
	return out
}

// fill replaces NaN with the nearest later value, then with the nearest earlier
// value, then with zero.
func fill(vals []float64) {
	next := math.NaN()
	for i := len(vals) - 1; i >= 0; i-- {
		if math.IsNaN(vals[i]) {
			vals[i] = next
			continue
		}
		next = vals[i]
	}
	prev := math.NaN()
	for i := range vals {
		if math.IsNaN(vals[i]) {
			vals[i] = prev
			continue
		}
		prev = vals[i]
	}
	for i := range vals {
		if math.IsNaN(vals[i]) {
			vals[i] = 0
		}
	}
}
