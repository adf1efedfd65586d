package forecaster

import (
	"fmt"
	"os"
	"time"

	"github.com/srirammulukuntla11/forecastpro-app/models"
	"github.com/srirammulukuntla11/forecastpro-app/stats"
	"github.com/srirammulukuntla11/forecastpro-app/table"
	"github.com/srirammulukuntla11/forecastpro-app/timedataset"
)

func generateExampleTable() (*table.Table, error) {
	// three years of monthly sales with a yearly season on top of a trend
	months := 36
	t := timedataset.GenerateMonths(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), months)
	y := timedataset.GenerateTrendY(months, 1200, 25).
		Add(timedataset.GenerateSeasonalY(months, 150, 12)).
		Add(timedataset.GenerateNoise(months, 20, 11))
	return timedataset.SalesTable(t, y)
}

func ExampleForecaster() {
	t := timedataset.GenerateMonths(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 12)
	y := timedataset.GenerateTrendY(12, 100, 10)
	tbl, err := timedataset.SalesTable(t, y)
	if err != nil {
		panic(err)
	}

	f, err := New(nil)
	if err != nil {
		panic(err)
	}
	res, err := f.Run(tbl, models.KindLinear, 3)
	if err != nil {
		panic(err)
	}
	for i, v := range res.Forecast {
		fmt.Printf("%s %.0f\n", res.T[i].Format("2006-01"), v)
	}
	// Output:
	// 2025-01 220
	// 2025-02 230
	// 2025-03 240
}

func ExampleForecaster_Compare() {
	tbl, err := generateExampleTable()
	if err != nil {
		panic(err)
	}

	f, err := New(nil)
	if err != nil {
		panic(err)
	}
	cmp, err := f.Compare(tbl, 6)
	if err != nil {
		panic(err)
	}
	if err := cmp.TablePrint(os.Stderr, "", "  "); err != nil {
		panic(err)
	}
	fmt.Println(len(cmp.Results))
	// Output:
	// 4
}

func ExampleForecaster_Anomalies() {
	tbl, err := generateExampleTable()
	if err != nil {
		panic(err)
	}
	if err := tbl.AddColumn("Profit", profitWithSpike(tbl.Len(), 20)); err != nil {
		panic(err)
	}

	f, err := New(nil)
	if err != nil {
		panic(err)
	}
	report, err := f.Anomalies(tbl, stats.MethodIQR, "Profit")
	if err != nil {
		panic(err)
	}
	fmt.Println(report.Rows)
	// Output:
	// [20]
}

func profitWithSpike(n, at int) []any {
	vals := make([]any, n)
	for i := range vals {
		vals[i] = 40.0 + float64(i%4)
	}
	vals[at] = 400.0
	return vals
}
