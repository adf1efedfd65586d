package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/srirammulukuntla11/forecastpro-app/table"
	"gonum.org/v1/gonum/floats"
)

// GenerateMonths returns n consecutive first-of-month dates starting at the month
// containing start.
func GenerateMonths(start time.Time, n int) []time.Time {
	t := make([]time.Time, 0, n)
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		t = append(t, first.AddDate(0, i, 0))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// Clamp raises every value below min to min
func (s Series) Clamp(min float64) Series {
	for i := range s {
		s[i] = math.Max(s[i], min)
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

// GenerateTrendY returns base + slope*i for i in [0, n)
func GenerateTrendY(n int, base, slope float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, base+slope*float64(i))
	}
	return Series(y)
}

// GenerateSeasonalY returns a sine wave with the given amplitude repeating every
// period months.
func GenerateSeasonalY(n int, amp float64, period int) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, amp*math.Sin(2.0*math.Pi*float64(i)/float64(period)))
	}
	return Series(y)
}

// GenerateNoise returns normally distributed noise drawn from a seeded source
func GenerateNoise(n int, scale float64, seed uint64) Series {
	rng := rand.New(rand.NewPCG(seed, seed))
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, rng.NormFloat64()*scale)
	}
	return Series(y)
}

// SalesTable returns a raw table with a "Date" text column and a "Sales" numeric
// column, one row per point.
func SalesTable(t []time.Time, y Series) (*table.Table, error) {
	if len(t) != len(y) {
		return nil, table.ErrMismatchedDataLen
	}
	rows := make([]table.Row, len(t))
	for i := range t {
		rows[i] = table.Row{
			"Date":  t[i].Format("2006-01-02"),
			"Sales": y[i],
		}
	}
	return table.New([]string{"Date", "Sales"}, rows)
}
