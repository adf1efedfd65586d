// Package feature names the model inputs and derives the degree-2 polynomial
// expansion used by the polynomial model.
package feature

type FeatureType int

const (
	FeatureTypeBase FeatureType = iota
	FeatureTypeMonomial
)

func (f FeatureType) String() string {
	switch f {
	case FeatureTypeBase:
		return "base"
	case FeatureTypeMonomial:
		return "monomial"
	}
	return "unknown"
}

type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
}
