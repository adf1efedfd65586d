package models

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrNoOptions          = errors.New("no initialized model options")
	ErrTargetLenMismatch  = errors.New("target length does not match training rows")
	ErrNoTrainingMatrix   = errors.New("no training matrix")
	ErrNoTargetArray      = errors.New("no target array")
	ErrNoDesignMatrix     = errors.New("no design matrix for inference")
	ErrFeatureLenMismatch = errors.New("number of features does not match the fitted model")
	ErrNotFitted          = errors.New("model has not been fitted")
	ErrFactorization      = errors.New("unable to factorize training matrix")
	ErrUnknownModelKind   = errors.New("unknown model kind")
)
