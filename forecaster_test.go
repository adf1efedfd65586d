package forecaster

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/srirammulukuntla11/forecastpro-app/forecast"
	"github.com/srirammulukuntla11/forecastpro-app/metrics"
	"github.com/srirammulukuntla11/forecastpro-app/models"
	"github.com/srirammulukuntla11/forecastpro-app/stats"
	"github.com/srirammulukuntla11/forecastpro-app/table"
	"github.com/srirammulukuntla11/forecastpro-app/timedataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seriesStart = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func salesTable(t testing.TB, y timedataset.Series) *table.Table {
	t.Helper()
	tbl, err := timedataset.SalesTable(timedataset.GenerateMonths(seriesStart, len(y)), y)
	require.Nil(t, err)
	return tbl
}

func seasonalTable(t testing.TB, n int) *table.Table {
	y := timedataset.GenerateTrendY(n, 500, 15).
		Add(timedataset.GenerateSeasonalY(n, 60, 12)).
		Add(timedataset.GenerateNoise(n, 5, 3))
	return salesTable(t, y)
}

func TestNew(t *testing.T) {
	f, err := New(nil)
	require.Nil(t, err)
	opt := f.Options()
	assert.Equal(t, timedataset.DefaultCutoff, opt.Build.Cutoff)
	assert.Equal(t, forecast.DefaultPolynomialDegree, opt.Train.PolynomialDegree)
	assert.Equal(t, 3.0, opt.Anomaly.ZThreshold)

	collector := metrics.New(prometheus.NewRegistry())
	f, err = New(&Options{Metrics: collector})
	require.Nil(t, err)
	assert.Same(t, collector, f.Options().Train.Metrics)

	_, err = New(&Options{Train: &forecast.TrainOptions{RandomForest: &models.RandomForestOptions{}}})
	assert.NotNil(t, err)
}

func TestOptionsValidateKeepsCallerTrainOptions(t *testing.T) {
	collector := metrics.New(prometheus.NewRegistry())
	train := forecast.NewDefaultTrainOptions()
	opt := &Options{Train: train, Metrics: collector}

	validated, err := opt.Validate()
	require.Nil(t, err)
	assert.Same(t, collector, validated.Train.Metrics)
	assert.Nil(t, train.Metrics)
	assert.Same(t, train, opt.Train)
	assert.Nil(t, opt.Build)

	own := metrics.New(prometheus.NewRegistry())
	train.Metrics = own
	validated, err = opt.Validate()
	require.Nil(t, err)
	assert.Same(t, own, validated.Train.Metrics)
}

func TestCheckHorizon(t *testing.T) {
	testData := map[string]struct {
		horizon  int
		expected error
	}{
		"zero":     {0, forecast.ErrInvalidHorizon},
		"negative": {-3, forecast.ErrInvalidHorizon},
		"one":      {1, nil},
		"maximum":  {MaxHorizon, nil},
		"too long": {MaxHorizon + 1, ErrHorizonTooLarge},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := CheckHorizon(td.horizon)
			if td.expected == nil {
				assert.Nil(t, err)
				return
			}
			assert.ErrorIs(t, err, td.expected)
		})
	}
}

func TestRunLinearProgression(t *testing.T) {
	f, err := New(nil)
	require.Nil(t, err)

	res, err := f.Run(salesTable(t, timedataset.GenerateTrendY(12, 100, 10)), models.KindLinear, 3)
	require.Nil(t, err)

	assert.Equal(t, models.KindLinear, res.Kind)
	assert.InDeltaSlice(t, []float64{220, 230, 240}, res.Forecast, 0.5)
	assert.Equal(t, []time.Time{
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
	}, res.T)
	assert.Equal(t, 0, res.Fallbacks)
	assert.InDelta(t, 1.0, res.Scores.R2, 1e-6)
	assert.Equal(t, 12, res.Model.LastPeriodIndex)

	require.NotNil(t, res.Report)
	assert.Equal(t, 12, res.Report.InputRows)
	assert.Equal(t, 12, res.Report.Months)
	assert.Equal(t, "Date", res.Report.Columns.Date.Column)
	assert.Equal(t, "Sales", res.Report.Columns.Value.Column)
}

func TestRunMonthlyStringDates(t *testing.T) {
	rows := make([]table.Row, 12)
	for i := range rows {
		rows[i] = table.Row{"Date": fmt.Sprintf("2023-%02d-01", i+1), "Sales": 100 + 10*float64(i)}
	}
	tbl, err := table.New([]string{"Date", "Sales"}, rows)
	require.Nil(t, err)

	f, err := New(nil)
	require.Nil(t, err)
	res, err := f.Run(tbl, models.KindLinear, 3)
	require.Nil(t, err)

	require.Len(t, res.Forecast, 3)
	assert.InDeltaSlice(t, []float64{220, 230, 240}, res.Forecast, 1e-6)
	assert.Less(t, res.Forecast[0], res.Forecast[1])
	assert.Less(t, res.Forecast[1], res.Forecast[2])
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), res.T[0])
	assert.Equal(t, 0, res.Fallbacks)
}

func TestRunAllKinds(t *testing.T) {
	f, err := New(nil)
	require.Nil(t, err)
	tbl := seasonalTable(t, 24)

	for _, kind := range models.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			res, err := f.Run(tbl, kind, MaxHorizon)
			require.Nil(t, err)
			require.Len(t, res.Forecast, MaxHorizon)
			require.Len(t, res.T, MaxHorizon)
			for _, v := range res.Forecast {
				assert.GreaterOrEqual(t, v, 0.0)
			}
			assert.Equal(t, kind, res.Model.Kind)
		})
	}
}

func TestRunErrors(t *testing.T) {
	empty, err := table.New([]string{"Date", "Sales"}, nil)
	require.Nil(t, err)

	testData := map[string]struct {
		tbl      *table.Table
		kind     models.Kind
		horizon  int
		expected []error
	}{
		"no rows": {
			tbl:      empty,
			kind:     models.KindLinear,
			horizon:  3,
			expected: []error{timedataset.ErrInsufficientData},
		},
		"one month": {
			tbl:      salesTable(t, timedataset.GenerateConstY(1, 10)),
			kind:     models.KindLinear,
			horizon:  3,
			expected: []error{ErrInsufficientHistory, timedataset.ErrInsufficientData},
		},
		"two months": {
			tbl:      salesTable(t, timedataset.GenerateConstY(2, 10)),
			kind:     models.KindRandomForest,
			horizon:  3,
			expected: []error{ErrInsufficientHistory, timedataset.ErrInsufficientData},
		},
		"unknown kind": {
			tbl:      salesTable(t, timedataset.GenerateTrendY(6, 10, 1)),
			kind:     models.KindUnknown,
			horizon:  3,
			expected: []error{models.ErrUnknownModelKind},
		},
		"zero horizon": {
			tbl:      salesTable(t, timedataset.GenerateTrendY(6, 10, 1)),
			kind:     models.KindLinear,
			horizon:  0,
			expected: []error{forecast.ErrInvalidHorizon},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := New(nil)
			require.Nil(t, err)

			res, err := f.Run(td.tbl, td.kind, td.horizon)
			require.NotNil(t, err)
			assert.Nil(t, res)
			for _, target := range td.expected {
				assert.ErrorIs(t, err, target)
			}
		})
	}
}

func TestRunInsufficientHistoryNeverTrains(t *testing.T) {
	collector := metrics.New(prometheus.NewRegistry())
	f, err := New(&Options{Metrics: collector})
	require.Nil(t, err)

	_, err = f.Run(salesTable(t, timedataset.GenerateConstY(2, 10)), models.KindLinear, 3)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.Trainings.WithLabelValues("linear")))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.Forecasts.WithLabelValues("linear")))
}

func TestRunMetrics(t *testing.T) {
	collector := metrics.New(prometheus.NewRegistry())
	f, err := New(&Options{Metrics: collector})
	require.Nil(t, err)

	_, err = f.Run(salesTable(t, timedataset.GenerateTrendY(12, 100, 10)), models.KindGradientBoosting, 6)
	require.Nil(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Trainings.WithLabelValues("gradient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Forecasts.WithLabelValues("gradient")))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.RowsDropped.WithLabelValues(timedataset.StageDateParse)))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.DatesClamped))
}

func TestRunClampsFutureDates(t *testing.T) {
	collector := metrics.New(prometheus.NewRegistry())
	f, err := New(&Options{
		Build: &timedataset.BuildOptions{
			Cutoff: time.Date(2022, 6, 30, 0, 0, 0, 0, time.UTC),
		},
		Metrics: collector,
	})
	require.Nil(t, err)

	res, err := f.Run(salesTable(t, timedataset.GenerateConstY(9, 10)), models.KindLinear, 1)
	require.Nil(t, err)
	assert.Equal(t, 3, res.Report.Clamped)
	assert.Equal(t, 6, res.Report.Months)
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.DatesClamped))
	assert.Equal(t, time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC), res.T[0])
}

func TestCompare(t *testing.T) {
	f, err := New(nil)
	require.Nil(t, err)

	cmp, err := f.Compare(seasonalTable(t, 24), 6)
	require.Nil(t, err)
	require.Len(t, cmp.Results, len(models.Kinds()))
	require.Len(t, cmp.T, 6)
	assert.Equal(t, cmp.Results[0].Kind, cmp.Best)

	seen := make(map[models.Kind]bool)
	for i, kr := range cmp.Results {
		seen[kr.Kind] = true
		assert.Empty(t, kr.Error)
		assert.Len(t, kr.Forecast, 6)
		if i > 0 {
			assert.GreaterOrEqual(t, cmp.Results[i-1].Scores.R2, kr.Scores.R2)
		}
	}
	assert.Len(t, seen, len(models.Kinds()))
}

func TestCompareErrors(t *testing.T) {
	f, err := New(nil)
	require.Nil(t, err)

	_, err = f.Compare(salesTable(t, timedataset.GenerateConstY(2, 10)), 6)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = f.Compare(seasonalTable(t, 12), 0)
	assert.ErrorIs(t, err, forecast.ErrInvalidHorizon)
}

func TestAnomalies(t *testing.T) {
	y := make(timedataset.Series, 24)
	for i := range y {
		y[i] = 100 + float64(i%3)
	}
	y[10] = 1000
	tbl := salesTable(t, y)

	f, err := New(nil)
	require.Nil(t, err)

	testData := map[string]struct {
		method stats.AnomalyMethod
		column string
		exact  bool
	}{
		"zscore inferred column": {stats.MethodZScore, "", true},
		"iqr named column":       {stats.MethodIQR, "Sales", true},
		"isolation forest":       {stats.MethodIsolation, " Sales\r", false},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			report, err := f.Anomalies(tbl, td.method, td.column)
			require.Nil(t, err)
			assert.Equal(t, "Sales", report.Column)
			assert.Equal(t, 24, report.Samples)
			assert.Equal(t, td.method, report.Method)
			assert.Contains(t, report.Rows, 10)
			if td.exact {
				assert.Equal(t, []int{10}, report.Rows)
				assert.Equal(t, []float64{1000}, report.Values)
			}
		})
	}
}

func TestAnomaliesErrors(t *testing.T) {
	tbl := seasonalTable(t, 12)
	f, err := New(nil)
	require.Nil(t, err)

	_, err = f.Anomalies(tbl, stats.MethodZScore, "Profit")
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = f.Anomalies(tbl, stats.MethodZScore, "Date")
	assert.ErrorIs(t, err, ErrNonNumericColumn)

	_, err = f.Anomalies(tbl, stats.AnomalyMethod("dbscan"), "")
	assert.ErrorIs(t, err, stats.ErrUnknownAnomalyMethod)
}

func TestResultsTablePrint(t *testing.T) {
	f, err := New(nil)
	require.Nil(t, err)

	res, err := f.Run(salesTable(t, timedataset.GenerateTrendY(12, 100, 10)), models.KindPolynomial, 2)
	require.Nil(t, err)

	var buf bytes.Buffer
	require.Nil(t, res.TablePrint(&buf, "", "  "))
	out := buf.String()
	assert.Contains(t, out, "Kind: polynomial")
	assert.Contains(t, out, "Forecast Values:")
	assert.Contains(t, out, "2023-01")
	assert.Contains(t, out, "2023-02")

	b, err := json.Marshal(res)
	require.Nil(t, err)
	var decoded Results
	require.Nil(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, models.KindPolynomial, decoded.Kind)
	assert.Equal(t, res.T, decoded.T)
}

func TestComparisonTablePrint(t *testing.T) {
	cmp := &Comparison{
		Best: models.KindLinear,
		Results: []KindResult{
			{Kind: models.KindLinear, Scores: forecast.Scores{R2: 0.9}, Forecast: []float64{12}},
			{Kind: models.KindRandomForest, Forecast: []float64{0}, Error: "boom"},
		},
	}
	var buf bytes.Buffer
	require.Nil(t, cmp.TablePrint(&buf, "", "  "))
	out := buf.String()
	assert.Contains(t, out, "Best: linear")
	assert.Contains(t, out, "0.900")
	assert.Contains(t, out, "boom")
}

func TestSeriesTablePrint(t *testing.T) {
	f, err := New(nil)
	require.Nil(t, err)
	series, _, err := f.Build(salesTable(t, timedataset.GenerateTrendY(4, 100, 10)))
	require.Nil(t, err)

	var buf bytes.Buffer
	require.Nil(t, SeriesTablePrint(&buf, series, "", "  "))
	out := buf.String()
	assert.Contains(t, out, "Working Days")
	assert.Contains(t, out, "2022-04")
	assert.Contains(t, out, "130.00")
}
