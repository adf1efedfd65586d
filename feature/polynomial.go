package feature

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidDegree  = errors.New("polynomial degree must be at least 1")
	ErrNoInputs       = errors.New("polynomial expansion needs at least one input")
	ErrExpansionWidth = errors.New("input width does not match the expansion")
)

// Monomial is a product of model inputs raised to integer powers, for example
// "lag1^2" or "period_index lag1".
type Monomial struct {
	Inputs []string `json:"inputs"`
	Powers []int    `json:"powers"`
}

func (m Monomial) String() string {
	parts := make([]string, len(m.Inputs))
	for i, in := range m.Inputs {
		parts[i] = in
		if m.Powers[i] > 1 {
			parts[i] = fmt.Sprintf("%s^%d", in, m.Powers[i])
		}
	}
	return strings.Join(parts, " ")
}

func (m Monomial) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "degree":
		return strconv.Itoa(m.Degree()), true
	case "inputs":
		return strings.Join(m.Inputs, ","), true
	}
	return "", false
}

func (m Monomial) Type() FeatureType {
	return FeatureTypeMonomial
}

// Degree returns the total power of the monomial
func (m Monomial) Degree() int {
	var d int
	for _, p := range m.Powers {
		d += p
	}
	return d
}

// PolynomialExpansion maps an input vector to every monomial of its entries up to
// Degree, without the constant term. Monomials are ordered by degree and then
// lexicographically by input position, so degree 2 over inputs (a, b) yields
// a, b, a^2, a b, b^2.
type PolynomialExpansion struct {
	Degree int      `json:"degree"`
	Inputs []string `json:"inputs"`

	// terms holds the input positions multiplied together for each output
	terms  [][]int
	labels *Labels
}

// NewPolynomialExpansion builds the expansion of the given inputs
func NewPolynomialExpansion(inputs *Labels, degree int) (*PolynomialExpansion, error) {
	if degree < 1 {
		return nil, ErrInvalidDegree
	}
	if inputs.Len() == 0 {
		return nil, ErrNoInputs
	}

	p := &PolynomialExpansion{
		Degree: degree,
		Inputs: inputs.Strings(),
	}
	for d := 1; d <= degree; d++ {
		p.terms = append(p.terms, combinations(len(p.Inputs), d)...)
	}

	feats := make([]Feature, len(p.terms))
	for i, term := range p.terms {
		feats[i] = p.monomial(term)
	}
	p.labels = NewLabels(feats)
	return p, nil
}

// combinations returns the multisets of size k drawn from [0, n) in
// lexicographic order
func combinations(n, k int) [][]int {
	var out [][]int
	var walk func(start int, acc []int)
	walk = func(start int, acc []int) {
		if len(acc) == k {
			term := make([]int, k)
			copy(term, acc)
			out = append(out, term)
			return
		}
		for i := start; i < n; i++ {
			walk(i, append(acc, i))
		}
	}
	walk(0, make([]int, 0, k))
	return out
}

func (p *PolynomialExpansion) monomial(term []int) Monomial {
	var m Monomial
	for _, idx := range term {
		last := len(m.Inputs) - 1
		if last >= 0 && m.Inputs[last] == p.Inputs[idx] {
			m.Powers[last]++
			continue
		}
		m.Inputs = append(m.Inputs, p.Inputs[idx])
		m.Powers = append(m.Powers, 1)
	}
	return m
}

// NumInputs returns the expected input width
func (p *PolynomialExpansion) NumInputs() int {
	return len(p.Inputs)
}

// NumOutputs returns the width of an expanded vector
func (p *PolynomialExpansion) NumOutputs() int {
	return len(p.terms)
}

// Labels returns the output monomials in order
func (p *PolynomialExpansion) Labels() *Labels {
	return p.labels
}

// Transform expands a single input vector
func (p *PolynomialExpansion) Transform(x []float64) ([]float64, error) {
	if len(x) != len(p.Inputs) {
		return nil, errors.Wrapf(ErrExpansionWidth, "got %d inputs, expected %d", len(x), len(p.Inputs))
	}
	out := make([]float64, len(p.terms))
	for i, term := range p.terms {
		v := 1.0
		for _, idx := range term {
			v *= x[idx]
		}
		out[i] = v
	}
	return out, nil
}

// TransformRows expands every row of a row-major matrix
func (p *PolynomialExpansion) TransformRows(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		expanded, err := p.Transform(row)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		out[i] = expanded
	}
	return out, nil
}
