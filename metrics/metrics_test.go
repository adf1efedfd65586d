package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveDropped("date_parse", 3)
	c.ObserveDropped("date_parse", 0)
	c.ObserveDropped("outlier_filter", 1)
	c.ObserveClamped(2)
	c.ObserveFallback("polynomial", 4)
	c.ObserveTraining("linear", 10*time.Millisecond)
	c.ObserveTraining("linear", 20*time.Millisecond)
	c.ObserveForecast("linear")
	c.ObserveCache(true)
	c.ObserveCache(false)
	c.ObserveCache(false)
	c.ObserveRateLimited()

	assert.Equal(t, 3.0, testutil.ToFloat64(c.RowsDropped.WithLabelValues("date_parse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RowsDropped.WithLabelValues("outlier_filter")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.DatesClamped))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.FallbackSteps.WithLabelValues("polynomial")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Trainings.WithLabelValues("linear")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Forecasts.WithLabelValues("linear")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.CacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RateLimited))

	families, err := reg.Gather()
	require.Nil(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["forecastpro_train_duration_seconds"])
	assert.True(t, names["forecastpro_rows_dropped_total"])
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveDropped("date_parse", 1)
		c.ObserveClamped(1)
		c.ObserveFallback("linear", 1)
		c.ObserveTraining("linear", time.Second)
		c.ObserveForecast("linear")
		c.ObserveCache(true)
		c.ObserveRateLimited()
	})
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
