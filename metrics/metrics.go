// Package metrics holds the Prometheus collectors for the forecasting pipeline.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forecastpro"

// Collector holds every counter and histogram the pipeline reports
type Collector struct {
	RowsDropped   *prometheus.CounterVec
	DatesClamped  prometheus.Counter
	FallbackSteps *prometheus.CounterVec
	Trainings     *prometheus.CounterVec
	TrainDuration *prometheus.HistogramVec
	Forecasts     *prometheus.CounterVec
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	RateLimited   prometheus.Counter
}

// New creates all collectors and registers them with reg. A nil reg registers
// with the default registerer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		RowsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_dropped_total",
				Help:      "Number of input rows dropped while building a monthly series",
			},
			[]string{"stage"},
		),
		DatesClamped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dates_clamped_total",
			Help:      "Number of dates clamped to the data horizon cutoff",
		}),
		FallbackSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_fallback_steps_total",
				Help:      "Number of forecast steps predicted by the trend fallback",
			},
			[]string{"kind"},
		),
		Trainings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trainings_total",
				Help:      "Number of trained models",
			},
			[]string{"kind"},
		),
		TrainDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "train_duration_seconds",
				Help:      "Time spent fitting a model",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"kind"},
		),
		Forecasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecasts_total",
				Help:      "Number of forecasts produced",
			},
			[]string{"kind"},
		),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_cache_hits_total",
			Help:      "Number of trained models served from the cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_cache_misses_total",
			Help:      "Number of model lookups that required training",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Number of requests rejected by the rate limiter",
		}),
	}
}

// ObserveDropped adds n dropped rows for the named builder stage
func (c *Collector) ObserveDropped(stage string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.RowsDropped.WithLabelValues(stage).Add(float64(n))
}

func (c *Collector) ObserveClamped(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.DatesClamped.Add(float64(n))
}

// ObserveFallback adds n fallback steps for a model kind
func (c *Collector) ObserveFallback(kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.FallbackSteps.WithLabelValues(kind).Add(float64(n))
}

func (c *Collector) ObserveTraining(kind string, d time.Duration) {
	if c == nil {
		return
	}
	c.Trainings.WithLabelValues(kind).Inc()
	c.TrainDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (c *Collector) ObserveForecast(kind string) {
	if c == nil {
		return
	}
	c.Forecasts.WithLabelValues(kind).Inc()
}

func (c *Collector) ObserveCache(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.CacheHits.Inc()
		return
	}
	c.CacheMisses.Inc()
}

func (c *Collector) ObserveRateLimited() {
	if c == nil {
		return
	}
	c.RateLimited.Inc()
}
