package feature

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseGet(t *testing.T) {
	feat := NewBase(NameLag1)
	assert.Equal(t, "lag1", feat.String())
	assert.Equal(t, FeatureTypeBase, feat.Type())
	assert.Equal(t, "base", feat.Type().String())
	assert.Equal(t, "monomial", FeatureTypeMonomial.String())
	assert.Equal(t, "unknown", FeatureType(9).String())

	testData := map[string]struct {
		label     string
		expVal    string
		expExists bool
	}{
		"unknown":     {label: "unknown"},
		"capitalized": {label: "NAME", expVal: "lag1", expExists: true},
		"exact match": {label: "name", expVal: "lag1", expExists: true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			val, exists := feat.Get(td.label)
			assert.Equal(t, td.expExists, exists)
			assert.Equal(t, td.expVal, val)
		})
	}
}

func TestLabels(t *testing.T) {
	labels := ModelInputs()
	assert.Equal(t, 4, labels.Len())
	assert.Equal(t, []string{"period_index", "lag1", "lag2", "rolling_mean_3"}, labels.Strings())

	idx, exists := labels.Index(NewBase(NameLag2))
	assert.True(t, exists)
	assert.Equal(t, 2, idx)

	idx, exists = labels.Index(NewBase("lag3"))
	assert.False(t, exists)
	assert.Equal(t, -1, idx)

	var empty *Labels
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, []string{"period_index"}, TrendInputs().Strings())
}

func TestPolynomialExpansion(t *testing.T) {
	p, err := NewPolynomialExpansion(ModelInputs(), 2)
	require.Nil(t, err)
	assert.Equal(t, 4, p.NumInputs())
	require.Equal(t, 14, p.NumOutputs())

	expected := []string{
		"period_index", "lag1", "lag2", "rolling_mean_3",
		"period_index^2", "period_index lag1", "period_index lag2", "period_index rolling_mean_3",
		"lag1^2", "lag1 lag2", "lag1 rolling_mean_3",
		"lag2^2", "lag2 rolling_mean_3",
		"rolling_mean_3^2",
	}
	assert.Equal(t, expected, p.Labels().Strings())

	out, err := p.Transform([]float64{1, 2, 3, 4})
	require.Nil(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 1, 2, 3, 4, 4, 6, 8, 9, 12, 16}, out)

	_, err = p.Transform([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrExpansionWidth)

	rows, err := p.TransformRows([][]float64{{1, 2, 3, 4}, {0, 0, 0, 2}})
	require.Nil(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 4.0, rows[1][13])

	_, err = p.TransformRows([][]float64{{1, 2, 3, 4}, {1}})
	assert.ErrorIs(t, err, ErrExpansionWidth)

	mono, ok := p.Labels().Labels()[8].(Monomial)
	require.True(t, ok)
	deg, _ := mono.Get("degree")
	assert.Equal(t, "2", deg)
	assert.Equal(t, FeatureTypeMonomial, mono.Type())
}

func TestPolynomialExpansionErrors(t *testing.T) {
	testData := map[string]struct {
		inputs *Labels
		degree int
		err    error
	}{
		"zero degree": {ModelInputs(), 0, ErrInvalidDegree},
		"no inputs":   {NewLabels(nil), 2, ErrNoInputs},
		"nil inputs":  {nil, 2, ErrNoInputs},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := NewPolynomialExpansion(td.inputs, td.degree)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestPolynomialExpansionDegrees(t *testing.T) {
	testData := map[string]struct {
		inputs   int
		degree   int
		expected int
	}{
		"linear":         {4, 1, 4},
		"single squared": {1, 2, 2},
		"cubic":          {2, 3, 9},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			feats := make([]Feature, td.inputs)
			for i := range feats {
				feats[i] = NewBase(string(rune('a' + i)))
			}
			p, err := NewPolynomialExpansion(NewLabels(feats), td.degree)
			require.Nil(t, err)
			assert.Equal(t, td.expected, p.NumOutputs())
		})
	}
}

func TestPolynomialExpansionJSON(t *testing.T) {
	p, err := NewPolynomialExpansion(ModelInputs(), 2)
	require.Nil(t, err)

	out, err := json.Marshal(p)
	require.Nil(t, err)
	assert.JSONEq(t, `{"degree":2,"inputs":["period_index","lag1","lag2","rolling_mean_3"]}`, string(out))
}
