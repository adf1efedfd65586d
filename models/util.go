package models

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
)

var eps = math.Nextafter(1, 2) - 1

// checkTraining validates the training inputs shared by every model and returns
// the matrix dimensions.
func checkTraining(x mat.Matrix, y []float64) (int, int, error) {
	if x == nil {
		return 0, 0, ErrNoTrainingMatrix
	}
	if y == nil {
		return 0, 0, ErrNoTargetArray
	}
	m, n := x.Dims()
	if m == 0 || n == 0 {
		return 0, 0, ErrNoTrainingMatrix
	}
	if len(y) != m {
		return 0, 0, errors.Wrapf(ErrTargetLenMismatch, "training data has %d rows and target has %d", m, len(y))
	}
	return m, n, nil
}

// checkDesign validates a design matrix against the fitted feature count
func checkDesign(x mat.Matrix, features int) error {
	if x == nil {
		return ErrNoDesignMatrix
	}
	if _, n := x.Dims(); n != features {
		return errors.Wrapf(ErrFeatureLenMismatch, "got %d features in design matrix, but expected %d", n, features)
	}
	return nil
}
