package forecaster

import (
	"github.com/cockroachdb/errors"
	"github.com/srirammulukuntla11/forecastpro-app/forecast"
	"github.com/srirammulukuntla11/forecastpro-app/metrics"
	"github.com/srirammulukuntla11/forecastpro-app/stats"
	"github.com/srirammulukuntla11/forecastpro-app/timedataset"
)

// Options configures every stage of the pipeline
type Options struct {
	Build   *timedataset.BuildOptions `json:"build"`
	Train   *forecast.TrainOptions    `json:"train"`
	Anomaly *stats.AnomalyOptions     `json:"anomaly"`

	// Metrics is shared with the trainer. Nil records nothing.
	Metrics *metrics.Collector `json:"-"`
}

func NewDefaultOptions() *Options {
	return &Options{
		Build:   timedataset.NewDefaultBuildOptions(),
		Train:   forecast.NewDefaultTrainOptions(),
		Anomaly: stats.NewDefaultAnomalyOptions(),
	}
}

// Validate fills unset options with their defaults. The returned options share
// the metrics collector with the trainer without modifying the caller's
// TrainOptions.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	v := *o
	v.Build = o.Build.Validate()

	train, err := o.Train.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid train options")
	}
	if train.Metrics == nil && v.Metrics != nil {
		shared := *train
		shared.Metrics = v.Metrics
		train = &shared
	}
	v.Train = train
	v.Anomaly = o.Anomaly.Validate()
	return &v, nil
}
