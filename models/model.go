// Package models is a collection of regression models used by the forecaster:
// ordinary least squares, CART regression trees, random forests and gradient
// boosting.
package models

import (
	"gonum.org/v1/gonum/mat"
)

// Regressor fits a scalar target from a design matrix with one row per
// observation and predicts new rows.
type Regressor interface {
	Fit(x mat.Matrix, y []float64) error
	Predict(x mat.Matrix) ([]float64, error)
}

// LinearModel is a Regressor with an intercept and one coefficient per feature
type LinearModel interface {
	Regressor
	Intercept() float64
	Coef() []float64
}
