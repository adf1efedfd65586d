package forecaster

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/srirammulukuntla11/forecastpro-app/forecast"
	"github.com/srirammulukuntla11/forecastpro-app/forecast/util"
	"github.com/srirammulukuntla11/forecastpro-app/models"
	"github.com/srirammulukuntla11/forecastpro-app/stats"
	"github.com/srirammulukuntla11/forecastpro-app/timedataset"
)

const periodLayout = "2006-01"

// Results is the forecast of one model kind. T holds the calendar month of every
// forecast value.
type Results struct {
	Kind      models.Kind              `json:"kind"`
	T         []time.Time              `json:"time"`
	Forecast  []float64                `json:"forecast"`
	Steps     []forecast.StepStatus    `json:"steps"`
	Fallbacks int                      `json:"fallbacks"`
	Scores    forecast.Scores          `json:"scores"`
	Model     forecast.Model           `json:"model"`
	Report    *timedataset.BuildReport `json:"report,omitempty"`
}

func (r *Results) TablePrint(w io.Writer, prefix, indent string) error {
	if err := r.Model.TablePrint(w, prefix, indent); err != nil {
		return err
	}
	if err := util.Line(w, prefix, indent, 0, "Forecast Values:"); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sMonth\tValue\tFallback\t\n", prefix, util.IndentExpand(indent, 1)); err != nil {
		return err
	}
	for i, v := range r.Forecast {
		var month string
		if i < len(r.T) {
			month = r.T[i].Format(periodLayout)
		}
		var fallback string
		if i < len(r.Steps) && r.Steps[i].Fallback {
			fallback = "yes"
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%.2f\t%s\t\n", prefix, util.IndentExpand(indent, 1), month, v, fallback); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// KindResult is one row of a model comparison
type KindResult struct {
	Kind      models.Kind     `json:"kind"`
	Scores    forecast.Scores `json:"scores"`
	Forecast  []float64       `json:"forecast"`
	Fallbacks int             `json:"fallbacks"`
	Error     string          `json:"error,omitempty"`
}

// Comparison holds the forecast of every model kind sorted by in-sample R2
type Comparison struct {
	T       []time.Time              `json:"time"`
	Results []KindResult             `json:"results"`
	Best    models.Kind              `json:"best"`
	Report  *timedataset.BuildReport `json:"report,omitempty"`
}

func (c *Comparison) TablePrint(w io.Writer, prefix, indent string) error {
	if err := util.Line(w, prefix, indent, 0, "Comparison:"); err != nil {
		return err
	}
	if err := util.Line(w, prefix, indent, 1, "Best: %s", c.Best); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sKind\tR2\tMAE\tRMSE\tNext\tError\t\n", prefix, util.IndentExpand(indent, 1)); err != nil {
		return err
	}
	for _, kr := range c.Results {
		var next float64
		if len(kr.Forecast) > 0 {
			next = kr.Forecast[0]
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%.3f\t%.3f\t%.3f\t%.2f\t%s\t\n",
			prefix, util.IndentExpand(indent, 1),
			kr.Kind, kr.Scores.R2, kr.Scores.MAE, kr.Scores.RMSE, next, kr.Error); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// AnomalyReport lists the flagged rows of a column. Rows index the input table
// and Samples counts the numeric cells examined.
type AnomalyReport struct {
	Method  stats.AnomalyMethod `json:"method"`
	Column  string              `json:"column"`
	Samples int                 `json:"samples"`
	Rows    []int               `json:"rows"`
	Values  []float64           `json:"values"`
}

func (a *AnomalyReport) TablePrint(w io.Writer, prefix, indent string) error {
	if err := util.Line(w, prefix, indent, 0, "Anomalies:"); err != nil {
		return err
	}
	if err := util.Line(w, prefix, indent, 1, "Method: %s    Column: %s    Samples: %d    Flagged: %d",
		a.Method, a.Column, a.Samples, len(a.Rows)); err != nil {
		return err
	}
	if len(a.Rows) == 0 {
		return nil
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sRow\tValue\t\n", prefix, util.IndentExpand(indent, 1)); err != nil {
		return err
	}
	for i, row := range a.Rows {
		if _, err := fmt.Fprintf(tbl, "%s%s%d\t%.3f\t\n", prefix, util.IndentExpand(indent, 1), row, a.Values[i]); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// SeriesTablePrint writes one line per month of the series
func SeriesTablePrint(w io.Writer, series *timedataset.MonthlySeries, prefix, indent string) error {
	if err := util.Line(w, prefix, indent, 0, "Series:"); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sIndex\tMonth\tValue\tLag1\tLag2\tLag3\tMean3\tStd3\tWorking Days\t\n",
		prefix, util.IndentExpand(indent, 1)); err != nil {
		return err
	}
	for _, r := range series.Records {
		if _, err := fmt.Fprintf(tbl, "%s%s%d\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t\n",
			prefix, util.IndentExpand(indent, 1),
			r.PeriodIndex, r.Period.Format(periodLayout), r.Value,
			r.Lag1, r.Lag2, r.Lag3, r.RollingMean3, r.RollingStd3, r.WorkingDays); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
