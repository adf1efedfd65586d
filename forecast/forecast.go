// Package forecast trains the monthly models and produces recursive multi-step
// forecasts, feeding every predicted month back in as a lag of the next.
package forecast

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/srirammulukuntla11/forecastpro-app/timedataset"
)

var ErrInvalidHorizon = errors.New("forecast horizon must be at least 1")

// StepStatus describes one forecast step. Raw is the unclamped model output.
// Fallback is set when the step was predicted by the trend model, with Reason
// holding the error that forced it.
type StepStatus struct {
	PeriodIndex int     `json:"period_index"`
	Value       float64 `json:"value"`
	Raw         float64 `json:"raw"`
	Fallback    bool    `json:"fallback"`
	Reason      string  `json:"reason,omitempty"`
}

// Result holds the forecast values in chronological order. Every value is
// non-negative.
type Result struct {
	Values    []float64    `json:"values"`
	Steps     []StepStatus `json:"steps"`
	Fallbacks int          `json:"fallbacks"`
}

// Forecast predicts horizon months following lastPeriodIndex. The window of
// recent values starts from the last three values of series and each prediction
// is pushed onto it before the next step.
func Forecast(model *TrainedModel, lastPeriodIndex, horizon int, series *timedataset.MonthlySeries) (*Result, error) {
	if model == nil || model.regressor == nil {
		return nil, ErrUntrainedModel
	}
	if horizon < 1 {
		return nil, errors.Wrapf(ErrInvalidHorizon, "got %d", horizon)
	}

	res := &Result{
		Values: make([]float64, 0, horizon),
		Steps:  make([]StepStatus, 0, horizon),
	}
	w := NewWindow(series.Values())
	periodIndex := lastPeriodIndex
	for i := 0; i < horizon; i++ {
		periodIndex++
		step := model.step(w, periodIndex)
		if step.Fallback {
			res.Fallbacks++
		}
		res.Values = append(res.Values, step.Value)
		res.Steps = append(res.Steps, step)
		w = w.Push(step.Value)
	}

	kind := model.kind.String()
	model.opt.Metrics.ObserveForecast(kind)
	model.opt.Metrics.ObserveFallback(kind, res.Fallbacks)
	if res.Fallbacks > 0 {
		slog.Warn("forecast steps fell back to the trend model",
			"kind", kind,
			"fallbacks", res.Fallbacks,
			"horizon", horizon,
			"reason", res.firstReason(),
		)
	}
	return res, nil
}

// step predicts one period from the window. When the full feature vector
// cannot be used the trend model predicts from the period index alone, and
// if that fails too the most recent value is carried forward.
func (tm *TrainedModel) step(w Window, periodIndex int) StepStatus {
	status := StepStatus{PeriodIndex: periodIndex}

	raw, err := tm.Predict(w.Features(periodIndex))
	if err != nil {
		status.Fallback = true
		status.Reason = err.Error()

		var trendErr error
		raw, trendErr = tm.PredictTrend(periodIndex)
		if trendErr != nil {
			status.Reason += "; trend: " + trendErr.Error()
			raw = w.Lag(1)
		}
	}

	status.Raw = raw
	status.Value = max(0, raw)
	return status
}

func (r *Result) firstReason() string {
	for _, s := range r.Steps {
		if s.Fallback {
			return s.Reason
		}
	}
	return ""
}
