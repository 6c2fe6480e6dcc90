package common

import (
	"errors"
	"fmt"
)

var (
	ErrAssetUnavailable = errors.New("asset unavailable")
	ErrStoreUnavailable = errors.New("persistent store unavailable")
	ErrNoElements       = errors.New("no elements to compose")
)

// MappingParseError describes one font-face rule skipped while building a
// font mapping. It is logged, never returned from a refresh.
type MappingParseError struct {
	Rule   int
	Reason string
}

func (e MappingParseError) Error() string {
	return fmt.Sprintf("font-face rule %d skipped: %s", e.Rule, e.Reason)
}

type MeasurementError struct {
	Index  int
	Width  float64
	Height float64
}

func (e MeasurementError) Error() string {
	return fmt.Sprintf("element %d has no measurable size (%gx%g), it may be hidden", e.Index, e.Width, e.Height)
}

type CompositionError struct {
	Index int
	Err   error
}

func (e CompositionError) Error() string {
	return fmt.Sprintf("error capturing element %d: %v", e.Index, e.Err)
}

func (e CompositionError) Unwrap() error {
	return e.Err
}
