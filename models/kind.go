package models

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Kind selects one of the supported model families
type Kind int

const (
	KindUnknown Kind = iota
	KindLinear
	KindPolynomial
	KindRandomForest
	KindGradientBoosting
)

var kindNames = map[Kind]string{
	KindLinear:           "linear",
	KindPolynomial:       "polynomial",
	KindRandomForest:     "random",
	KindGradientBoosting: "gradient",
}

// Kinds returns every valid kind in a stable order
func Kinds() []Kind {
	return []Kind{KindLinear, KindPolynomial, KindRandomForest, KindGradientBoosting}
}

func (k Kind) String() string {
	if name, exists := kindNames[k]; exists {
		return name
	}
	return "unknown"
}

// Valid reports whether k is one of the supported kinds
func (k Kind) Valid() bool {
	_, exists := kindNames[k]
	return exists
}

// ParseKind maps a selector such as "linear" or "random" to its Kind. Matching is
// case-insensitive.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == norm {
			return k, nil
		}
	}
	return KindUnknown, NewUnknownModelKindError(s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, NewUnknownModelKindError(k.String())
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// UnknownModelKindError reports a model selector outside the supported set
type UnknownModelKindError struct {
	Kind string
}

func NewUnknownModelKindError(kind string) error {
	return errors.WithStack(&UnknownModelKindError{Kind: kind})
}

func (e *UnknownModelKindError) Error() string {
	return fmt.Sprintf("unknown model kind %q, expected one of linear, polynomial, random, gradient", e.Kind)
}

func (e *UnknownModelKindError) Is(target error) bool {
	return target == ErrUnknownModelKind
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (e *UnknownModelKindError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("kind", e.Kind)
}
