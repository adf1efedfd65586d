package stats

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

var ErrUnknownAnomalyMethod = errors.New("unknown anomaly method")

// UnknownAnomalyMethodError reports an anomaly method name that cannot be parsed
type UnknownAnomalyMethodError struct {
	Method string
}

func (e *UnknownAnomalyMethodError) Error() string {
	return fmt.Sprintf("unknown anomaly method %q, expected one of zscore, iqr, isolation", e.Method)
}

func (e *UnknownAnomalyMethodError) Is(target error) bool {
	return target == ErrUnknownAnomalyMethod
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (e *UnknownAnomalyMethodError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("method", e.Method)
}

// AnomalyMethod selects an anomaly detector
type AnomalyMethod string

const (
	MethodZScore    AnomalyMethod = "zscore"
	MethodIQR       AnomalyMethod = "iqr"
	MethodIsolation AnomalyMethod = "isolation"
)

// AnomalyMethods lists every supported method
func AnomalyMethods() []AnomalyMethod {
	return []AnomalyMethod{MethodZScore, MethodIQR, MethodIsolation}
}

// ParseAnomalyMethod accepts a method name case-insensitively along with the
// common spellings "z-score" and "isolation_forest".
func ParseAnomalyMethod(s string) (AnomalyMethod, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "", " ", "").Replace(norm)
	switch norm {
	case "zscore":
		return MethodZScore, nil
	case "iqr":
		return MethodIQR, nil
	case "isolation", "isolationforest":
		return MethodIsolation, nil
	}
	return "", errors.WithStack(&UnknownAnomalyMethodError{Method: s})
}

// AnomalyOptions configures Detect
type AnomalyOptions struct {
	ZThreshold float64                 `json:"z_threshold"`
	IQRFactor  float64                 `json:"iqr_factor"`
	Isolation  *IsolationForestOptions `json:"isolation"`
}

// NewDefaultAnomalyOptions returns a z-score threshold of 3, an IQR factor of
// 1.5 and the default isolation forest.
func NewDefaultAnomalyOptions() *AnomalyOptions {
	return &AnomalyOptions{
		ZThreshold: 3.0,
		IQRFactor:  1.5,
		Isolation:  NewDefaultIsolationForestOptions(),
	}
}

// Validate fills any unset option with its default
func (o *AnomalyOptions) Validate() *AnomalyOptions {
	if o == nil {
		return NewDefaultAnomalyOptions()
	}
	def := NewDefaultAnomalyOptions()
	if o.ZThreshold <= 0 {
		o.ZThreshold = def.ZThreshold
	}
	if o.IQRFactor <= 0 {
		o.IQRFactor = def.IQRFactor
	}
	o.Isolation = o.Isolation.Validate()
	return o
}

// Detect returns the ascending indices of y flagged as anomalous by the method
func Detect(method AnomalyMethod, y []float64, opt *AnomalyOptions) ([]int, error) {
	opt = opt.Validate()
	switch method {
	case MethodZScore:
		return ZScoreAnomalies(y, opt.ZThreshold), nil
	case MethodIQR:
		return IQRAnomalies(y, opt.IQRFactor), nil
	case MethodIsolation:
		forest, err := NewIsolationForest(y, opt.Isolation)
		if err != nil {
			return nil, err
		}
		return forest.Anomalies(y), nil
	}
	return nil, errors.WithStack(&UnknownAnomalyMethodError{Method: string(method)})
}

// ZScoreAnomalies flags values whose distance from the mean exceeds threshold
// population standard deviations. Non-finite values are ignored.
func ZScoreAnomalies(y []float64, threshold float64) []int {
	vals, idx := finite(y)
	if len(vals) == 0 {
		return nil
	}
	mean := stat.Mean(vals, nil)
	std := PopulationStdDev(vals)
	if std == 0 || math.IsNaN(std) {
		return nil
	}

	var anomalies []int
	for j, v := range vals {
		if math.Abs(v-mean)/std > threshold {
			anomalies = append(anomalies, idx[j])
		}
	}
	return anomalies
}

// IQRAnomalies flags values outside [Q1 - factor*IQR, Q3 + factor*IQR]
func IQRAnomalies(y []float64, factor float64) []int {
	vals, idx := finite(y)
	if len(vals) == 0 {
		return nil
	}
	outliers := DetectOutliers(vals, 0.25, 0.75, factor)
	anomalies := make([]int, len(outliers))
	for j, o := range outliers {
		anomalies[j] = idx[o]
	}
	return anomalies
}
