package timedataset

import (
	"testing"
	"time"

	"github.com/rickar/cal/v2/us"
	"github.com/srirammulukuntla11/forecastpro-app/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesTable(t *testing.T, rows ...table.Row) *table.Table {
	t.Helper()
	tbl, err := table.New([]string{"Date", "Sales"}, rows)
	require.Nil(t, err)
	return tbl
}

func TestBuildLinearSeries(t *testing.T) {
	months := GenerateMonths(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 12)
	tbl, err := SalesTable(months, GenerateTrendY(12, 100, 10))
	require.Nil(t, err)

	series, report, err := Build(tbl, nil)
	require.Nil(t, err)
	require.Nil(t, series.Validate())
	require.Equal(t, 12, series.Len())
	assert.Equal(t, 12, report.Months)
	assert.Equal(t, "Date", report.Columns.Date.Column)
	assert.Equal(t, "Sales", report.Columns.Value.Column)

	for i, r := range series.Records {
		assert.Equal(t, i+1, r.PeriodIndex)
		assert.Equal(t, months[i], r.Period)
		assert.Equal(t, 100+10*float64(i), r.Value)
	}

	first := series.Records[0]
	assert.Equal(t, 100.0, first.Lag1)
	assert.Equal(t, 100.0, first.Lag2)
	assert.Equal(t, 100.0, first.Lag3)
	assert.Equal(t, 110.0, first.RollingMean3)
	assert.InDelta(t, 10.0, first.RollingStd3, 1e-9)

	second := series.Records[1]
	assert.Equal(t, 100.0, second.Lag1)
	assert.Equal(t, 110.0, second.RollingMean3)

	third := series.Records[2]
	assert.Equal(t, 110.0, third.RollingMean3)
	assert.InDelta(t, 10.0, third.RollingStd3, 1e-9)

	fifth := series.Records[4]
	assert.Equal(t, 130.0, fifth.Lag1)
	assert.Equal(t, 120.0, fifth.Lag2)
	assert.Equal(t, 110.0, fifth.Lag3)
	assert.Equal(t, 130.0, fifth.RollingMean3)
	assert.InDelta(t, 10.0, fifth.RollingStd3, 1e-9)

	assert.Equal(t, []float64{5, 130, 120, 130}, fifth.Features())
}

func TestBuild(t *testing.T) {
	testData := map[string]struct {
		rows     []table.Row
		values   []float64
		periods  []time.Time
		expected BuildReport
	}{
		"sum per month": {
			rows: []table.Row{
				{"Date": "2023-01-05", "Sales": 10.0},
				{"Date": "2023-01-20", "Sales": 20.0},
				{"Date": "2023-02-01", "Sales": 5.0},
			},
			values: []float64{30, 5},
			periods: []time.Time{
				time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
			},
			expected: BuildReport{InputRows: 3, Months: 2},
		},
		"unsorted input": {
			rows: []table.Row{
				{"Date": "2023-03-01", "Sales": 3.0},
				{"Date": "2023-01-01", "Sales": 1.0},
				{"Date": "2023-02-01", "Sales": 2.0},
			},
			values: []float64{1, 2, 3},
			periods: []time.Time{
				time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
			},
			expected: BuildReport{InputRows: 3, Months: 3},
		},
		"unparseable rows dropped": {
			rows: []table.Row{
				{"Date": "2023-01-01", "Sales": 1.0},
				{"Date": "2023-02-01", "Sales": nil},
				{"Date": "2023-03-01", "Sales": 3.0},
				{"Date": "2023-04-01", "Sales": 4.0},
				{"Date": "garbage", "Sales": 9.0},
			},
			values: []float64{1, 3, 4},
			periods: []time.Time{
				time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
			},
			expected: BuildReport{InputRows: 5, DroppedDate: 1, DroppedValue: 1, Months: 3},
		},
		"future dates clamped to cutoff": {
			rows: []table.Row{
				{"Date": "2025-11-01", "Sales": 5.0},
				{"Date": "2025-12-15", "Sales": 7.0},
				{"Date": "2030-05-01", "Sales": 3.0},
			},
			values: []float64{5, 10},
			periods: []time.Time{
				time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			},
			expected: BuildReport{InputRows: 3, Clamped: 1, Months: 2},
		},
		"missing month keeps index contiguous": {
			rows: []table.Row{
				{"Date": "2023-01-01", "Sales": 1.0},
				{"Date": "2023-03-01", "Sales": 3.0},
			},
			values: []float64{1, 3},
			periods: []time.Time{
				time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
			},
			expected: BuildReport{InputRows: 2, Months: 2},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			series, report, err := Build(salesTable(t, td.rows...), nil)
			require.Nil(t, err)
			require.Nil(t, series.Validate())

			assert.Equal(t, td.values, series.Values())
			assert.Equal(t, td.periods, series.Periods())

			report.Columns = nil
			assert.Equal(t, td.expected, *report)
		})
	}
}

func TestBuildOutlierFilter(t *testing.T) {
	months := GenerateMonths(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), 21)
	y := GenerateConstY(21, 100)
	y[10] = 10000

	tbl, err := SalesTable(months, y)
	require.Nil(t, err)

	series, report, err := Build(tbl, nil)
	require.Nil(t, err)
	assert.Equal(t, 1, report.DroppedOutlier)
	assert.Equal(t, 20, series.Len())
	for _, v := range series.Values() {
		assert.Equal(t, 100.0, v)
	}
	assert.Equal(t, 1, report.Dropped()[StageOutlier])
}

func TestBuildRollingBackfill(t *testing.T) {
	testData := map[string]struct {
		values []float64
		mean   float64
		std    float64
	}{
		"trend":    {values: []float64{100, 110, 120, 130, 140}, mean: 110, std: 10},
		"level":    {values: []float64{50, 50, 50, 50}, mean: 50, std: 0},
		"seasonal": {values: []float64{10, 40, 10, 40, 10, 40}, mean: 20, std: 17.3205081},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			months := GenerateMonths(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), len(td.values))
			tbl, err := SalesTable(months, td.values)
			require.Nil(t, err)

			series, _, err := Build(tbl, nil)
			require.Nil(t, err)
			require.Equal(t, len(td.values), series.Len())

			full := series.Records[RollingWindow-1]
			assert.InDelta(t, td.mean, full.RollingMean3, 1e-6)
			assert.InDelta(t, td.std, full.RollingStd3, 1e-6)
			for _, r := range series.Records[:RollingWindow-1] {
				assert.Equal(t, full.RollingMean3, r.RollingMean3)
				assert.Equal(t, full.RollingStd3, r.RollingStd3)
			}
		})
	}
}

func TestBuildShortSeries(t *testing.T) {
	series, _, err := Build(salesTable(t,
		table.Row{"Date": "2023-01-01", "Sales": 10.0},
		table.Row{"Date": "2023-02-01", "Sales": 20.0},
	), nil)
	require.Nil(t, err)
	require.Nil(t, series.Validate())
	require.Equal(t, 2, series.Len())

	for _, r := range series.Records {
		assert.Equal(t, 10.0, r.Lag1)
		assert.Equal(t, 0.0, r.Lag2)
		assert.Equal(t, 0.0, r.Lag3)
		assert.Equal(t, 0.0, r.RollingMean3)
		assert.Equal(t, 0.0, r.RollingStd3)
	}

	series, _, err = Build(salesTable(t, table.Row{"Date": "2023-01-01", "Sales": 10.0}), nil)
	require.Nil(t, err)
	require.Nil(t, series.Validate())
	assert.Equal(t, 1, series.Len())
}

func TestBuildInsufficientData(t *testing.T) {
	testData := map[string]struct {
		tbl *table.Table
		opt *BuildOptions
	}{
		"no rows": {
			tbl: salesTable(t),
		},
		"nil table": {},
		"no coercible values": {
			tbl: salesTable(t,
				table.Row{"Date": "2023-01-01", "Sales": "abc"},
				table.Row{"Date": "2023-02-01", "Sales": "def"},
			),
			opt: &BuildOptions{ValueColumn: "Sales"},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, _, err := Build(td.tbl, td.opt)
			require.NotNil(t, err)
			assert.ErrorIs(t, err, ErrInsufficientData)

			var insufficient *InsufficientDataError
			assert.ErrorAs(t, err, &insufficient)
		})
	}
}

func TestBuildForcedColumns(t *testing.T) {
	tbl, err := table.New([]string{"when", "units", "Sales"}, []table.Row{
		{"when": "2023-01-01", "units": 1.0, "Sales": 100.0},
		{"when": "2023-02-01", "units": 2.0, "Sales": 200.0},
	})
	require.Nil(t, err)

	series, report, err := Build(tbl, &BuildOptions{DateColumn: "when", ValueColumn: " units "})
	require.Nil(t, err)
	assert.Equal(t, []float64{1, 2}, series.Values())
	assert.Equal(t, "forced", report.Columns.Value.Rule)

	_, _, err = Build(tbl, &BuildOptions{ValueColumn: "missing"})
	assert.ErrorIs(t, err, table.ErrUnknownColumn)
}

func TestMonthlySeries(t *testing.T) {
	months := GenerateMonths(time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), 3)
	tbl, err := SalesTable(months, Series{1, 2, 3})
	require.Nil(t, err)

	series, _, err := Build(tbl, nil)
	require.Nil(t, err)

	last, ok := series.Last()
	require.True(t, ok)
	assert.Equal(t, 3, last.PeriodIndex)

	assert.Equal(t, []time.Time{
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}, series.NextPeriods(2))
	assert.Nil(t, series.NextPeriods(0))

	x, y := series.FeatureMatrix()
	assert.Len(t, x, 3)
	assert.Equal(t, []float64{1, 2, 3}, y)
	assert.Equal(t, 3.0, x[2][0])

	var empty *MonthlySeries
	_, ok = empty.Last()
	assert.False(t, ok)
	assert.ErrorIs(t, empty.Validate(), ErrInsufficientData)

	broken := &MonthlySeries{Records: []Record{{PeriodIndex: 1, Period: months[0]}, {PeriodIndex: 3, Period: months[1]}}}
	assert.ErrorIs(t, broken.Validate(), ErrNonContiguous)

	broken = &MonthlySeries{Records: []Record{{PeriodIndex: 1, Period: months[1]}, {PeriodIndex: 2, Period: months[0]}}}
	assert.ErrorIs(t, broken.Validate(), ErrNonMonotonic)
}

func TestWorkingDays(t *testing.T) {
	testData := map[string]struct {
		month    time.Time
		holidays bool
		expected int
	}{
		"january without holidays": {time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false, 23},
		"january with holidays":    {time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true, 21},
		"july with holidays":       {time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), true, 20},
		"february without":         {time.Date(2023, 2, 14, 0, 0, 0, 0, time.UTC), false, 20},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			if td.holidays {
				assert.Equal(t, td.expected, WorkingDays(td.month, us.Holidays))
				return
			}
			assert.Equal(t, td.expected, WorkingDays(td.month, nil))
		})
	}
}
