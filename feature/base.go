package feature

import (
	"strings"
)

const (
	NamePeriodIndex  = "period_index"
	NameLag1         = "lag1"
	NameLag2         = "lag2"
	NameRollingMean3 = "rolling_mean_3"
)

// Base is a raw model input read directly from a series record
type Base struct {
	Name string `json:"name"`
}

func NewBase(name string) *Base {
	return &Base{name}
}

func (b Base) String() string {
	return b.Name
}

func (b Base) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return b.Name, true
	}
	return "", false
}

func (b Base) Type() FeatureType {
	return FeatureTypeBase
}

// ModelInputs returns the labels of the four model inputs in vector order
func ModelInputs() *Labels {
	return NewLabels([]Feature{
		NewBase(NamePeriodIndex),
		NewBase(NameLag1),
		NewBase(NameLag2),
		NewBase(NameRollingMean3),
	})
}

// TrendInputs returns the single input of the trend model used when a forecast
// step falls back
func TrendInputs() *Labels {
	return NewLabels([]Feature{NewBase(NamePeriodIndex)})
}
