package forecast

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/srirammulukuntla11/forecastpro-app/feature"
	"github.com/srirammulukuntla11/forecastpro-app/forecast/util"
	"github.com/srirammulukuntla11/forecastpro-app/models"
)

// Model represents a serializeable description of a trained model: its kind,
// training options, in-sample scores and, for the linear kinds, the fitted
// weights. Tree ensembles are described by their size only.
type Model struct {
	Kind            models.Kind                  `json:"kind"`
	TrainEndTime    time.Time                    `json:"train_end_time"`
	LastPeriodIndex int                          `json:"last_period_index"`
	Options         *TrainOptions                `json:"options"`
	Scores          *Scores                      `json:"scores"`
	Expansion       *feature.PolynomialExpansion `json:"expansion,omitempty"`
	Weights         *Weights                     `json:"weights,omitempty"`
	Ensemble        *Ensemble                    `json:"ensemble,omitempty"`
	Trend           Weights                      `json:"trend"`

	// VIF is printed but not serialized since collinear inputs report +Inf
	VIF map[string]float64 `json:"-"`
}

// Ensemble summarizes a tree ensemble
type Ensemble struct {
	Members int     `json:"members"`
	Init    float64 `json:"init,omitempty"`
}

// Model returns the serializeable format of the trained model
func (tm *TrainedModel) Model() (Model, error) {
	if tm == nil || tm.regressor == nil {
		return Model{}, ErrUntrainedModel
	}

	m := Model{
		Kind:            tm.kind,
		TrainEndTime:    tm.trainEnd,
		LastPeriodIndex: tm.lastIndex,
		Options:         tm.opt,
		Scores:          tm.scores,
		Expansion:       tm.expansion,
		VIF:             tm.VIF(),
	}

	switch reg := tm.regressor.(type) {
	case models.LinearModel:
		w := newWeights(reg, tm.FeatureLabels())
		m.Weights = &w
	case *models.RandomForest:
		m.Ensemble = &Ensemble{Members: reg.Len()}
	case *models.GradientBoosting:
		m.Ensemble = &Ensemble{Members: reg.Len(), Init: reg.Init()}
	}
	if tm.trend != nil {
		m.Trend = newWeights(tm.trend, feature.TrendInputs().Labels())
	}
	return m, nil
}

func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if err := util.Line(w, prefix, indent, 0, "Forecast:"); err != nil {
		return err
	}
	if err := util.Line(w, prefix, indent, 1, "Kind: %s", m.Kind); err != nil {
		return err
	}
	if err := util.Line(w, prefix, indent, 1, "Training End Time: %s", m.TrainEndTime.Format("2006-01")); err != nil {
		return err
	}
	if err := util.Line(w, prefix, indent, 1, "Last Period Index: %d", m.LastPeriodIndex); err != nil {
		return err
	}
	if m.Expansion != nil {
		if err := util.Line(w, prefix, indent, 1, "Polynomial Degree: %d, Outputs: %d", m.Expansion.Degree, m.Expansion.NumOutputs()); err != nil {
			return err
		}
	}

	if m.Scores != nil {
		if err := util.Line(w, prefix, indent, 0, "Scores (in-sample):"); err != nil {
			return err
		}
		if err := util.Line(w, prefix, indent, 1, "R2: %.3f    MAE: %.3f    RMSE: %.3f    MSE: %.3f    MAPE: %.3f",
			m.Scores.R2, m.Scores.MAE, m.Scores.RMSE, m.Scores.MSE, m.Scores.MAPE); err != nil {
			return err
		}
	}

	if m.Ensemble != nil {
		if err := util.Line(w, prefix, indent, 0, "Ensemble:"); err != nil {
			return err
		}
		if err := util.Line(w, prefix, indent, 1, "Members: %d    Init: %.3f", m.Ensemble.Members, m.Ensemble.Init); err != nil {
			return err
		}
	}

	if m.Weights != nil {
		if err := m.Weights.tablePrint(w, "Weights", prefix, indent, 0); err != nil {
			return err
		}
	}
	if err := m.Trend.tablePrint(w, "Trend", prefix, indent, 0); err != nil {
		return err
	}
	return m.vifTablePrint(w, prefix, indent)
}

func (m Model) vifTablePrint(w io.Writer, prefix, indent string) error {
	if len(m.VIF) == 0 {
		return nil
	}
	if err := util.Line(w, prefix, indent, 0, "Variance Inflation:"); err != nil {
		return err
	}
	labels := make([]string, 0, len(m.VIF))
	for label := range m.VIF {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	for _, label := range labels {
		val := fmt.Sprintf("%.3f", m.VIF[label])
		if math.IsInf(m.VIF[label], 1) {
			val = "inf"
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t\n", prefix, util.IndentExpand(indent, 1), label, val); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// Weights stores the coefficients of a linear model
type Weights struct {
	Intercept float64         `json:"intercept"`
	Coef      []FeatureWeight `json:"coefficients"`
}

func newWeights(model models.LinearModel, labels []feature.Feature) Weights {
	coef := model.Coef()
	fws := make([]FeatureWeight, 0, len(coef))
	for i, c := range coef {
		if i < len(labels) {
			fws = append(fws, NewFeatureWeight(labels[i], c))
		}
	}
	return Weights{
		Intercept: model.Intercept(),
		Coef:      fws,
	}
}

// Coefficients returns a slice copy of the coefficients ignoring the intercept.
func (w *Weights) Coefficients() []float64 {
	coef := make([]float64, 0, len(w.Coef))
	for _, fw := range w.Coef {
		coef = append(coef, fw.Value)
	}
	return coef
}

func (w Weights) tablePrint(wr io.Writer, title, prefix, indent string, indentGrowth int) error {
	if err := util.Line(wr, prefix, indent, indentGrowth, "%s:", title); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(wr, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sType\tLabel\tValue\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tbl, "%s%sIntercept\t\t%.3f\t\n", prefix, util.IndentExpand(indent, indentGrowth+1), w.Intercept); err != nil {
		return err
	}
	for _, fw := range w.Coef {
		val := fmt.Sprintf("%.3f", fw.Value)
		if fw.Value == 0 {
			val = "..."
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			fw.Type, fw.Label, val); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// FeatureWeight represents a feature described with a type e.g. monomial, its label
// and the value
type FeatureWeight struct {
	Label string              `json:"label"`
	Type  feature.FeatureType `json:"type"`
	Value float64             `json:"value"`
}

func NewFeatureWeight(f feature.Feature, val float64) FeatureWeight {
	return FeatureWeight{
		Label: f.String(),
		Type:  f.Type(),
		Value: val,
	}
}
