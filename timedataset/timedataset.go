// Package timedataset holds the monthly aggregated series the forecasting models
// are trained on and the builder that derives it from a raw table.
package timedataset

import (
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrNonContiguous    = errors.New("period index is not contiguous")
	ErrNonMonotonic     = errors.New("periods are not strictly increasing")
	ErrUndefinedFeature = errors.New("series has an undefined feature value")
)

// InsufficientDataError reports that a pipeline stage ended with too few rows
type InsufficientDataError struct {
	Stage string
	Rows  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data after %s: %d rows remain", e.Stage, e.Rows)
}

// Is lets errors.Is match ErrInsufficientData
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (e *InsufficientDataError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("stage", e.Stage).Int("rows", e.Rows)
}

// NewInsufficientDataError returns an InsufficientDataError carrying a stack trace
func NewInsufficientDataError(stage string, rows int) error {
	return errors.WithStack(&InsufficientDataError{Stage: stage, Rows: rows})
}

// Record is one calendar month of the series. Lag and rolling features at the
// start of the series are filled from neighbouring records so every field is
// defined.
type Record struct {
	Period       time.Time `json:"period"`
	PeriodIndex  int       `json:"period_index"`
	Value        float64   `json:"value"`
	Lag1         float64   `json:"lag1"`
	Lag2         float64   `json:"lag2"`
	Lag3         float64   `json:"lag3"`
	RollingMean3 float64   `json:"rolling_mean_3"`
	RollingStd3  float64   `json:"rolling_std_3"`
	WorkingDays  int       `json:"working_days"`
}

// Features returns the model input vector of the record:
// period index, lag1, lag2 and the trailing 3 month mean.
func (r Record) Features() []float64 {
	return []float64{float64(r.PeriodIndex), r.Lag1, r.Lag2, r.RollingMean3}
}

// MonthlySeries is an ordered sequence of month records with a gap-free period
// index starting at 1.
type MonthlySeries struct {
	Records []Record `json:"records"`
}

// Len returns the number of months
func (m *MonthlySeries) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Records)
}

// Values returns the monthly totals in period order
func (m *MonthlySeries) Values() []float64 {
	vals := make([]float64, m.Len())
	for i := 0; i < m.Len(); i++ {
		vals[i] = m.Records[i].Value
	}
	return vals
}

// Periods returns the first day of every month in the series
func (m *MonthlySeries) Periods() []time.Time {
	p := make([]time.Time, m.Len())
	for i := 0; i < m.Len(); i++ {
		p[i] = m.Records[i].Period
	}
	return p
}

// Last returns the final record. ok is false for an empty series.
func (m *MonthlySeries) Last() (Record, bool) {
	if m.Len() == 0 {
		return Record{}, false
	}
	return m.Records[m.Len()-1], true
}

// FeatureMatrix returns the row-major model inputs and the target values
func (m *MonthlySeries) FeatureMatrix() ([][]float64, []float64) {
	x := make([][]float64, m.Len())
	for i := 0; i < m.Len(); i++ {
		x[i] = m.Records[i].Features()
	}
	return x, m.Values()
}

// NextPeriods returns the h calendar months following the last period
func (m *MonthlySeries) NextPeriods(h int) []time.Time {
	last, ok := m.Last()
	if !ok || h <= 0 {
		return nil
	}
	periods := make([]time.Time, h)
	for i := 0; i < h; i++ {
		periods[i] = last.Period.AddDate(0, i+1, 0)
	}
	return periods
}

// Validate checks the series invariants: index 1..K with no gaps, strictly
// increasing months and finite feature values. Months missing from the input are
// not required to be present.
func (m *MonthlySeries) Validate() error {
	if m.Len() == 0 {
		return NewInsufficientDataError("validate", 0)
	}
	for i, r := range m.Records {
		if r.PeriodIndex != i+1 {
			return errors.Wrapf(ErrNonContiguous, "record %d has period index %d", i, r.PeriodIndex)
		}
		if i > 0 && !r.Period.After(m.Records[i-1].Period) {
			return errors.Wrapf(ErrNonMonotonic, "period %s follows %s",
				r.Period.Format("2006-01"), m.Records[i-1].Period.Format("2006-01"))
		}
		for _, f := range []float64{r.Value, r.Lag1, r.Lag2, r.Lag3, r.RollingMean3, r.RollingStd3} {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return errors.Wrapf(ErrUndefinedFeature, "period index %d", r.PeriodIndex)
			}
		}
	}
	return nil
}
