package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DuplicateTimestampError reports time records that occur more than once.
type DuplicateTimestampError struct {
	Values []time.Time // each repeated value once, ascending
}

func (e *DuplicateTimestampError) Error() string {
	vals := make([]string, len(e.Values))
	for i, v := range e.Values {
		vals[i] = v.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("duplicate time values found: [%s]", strings.Join(vals, " "))
}

// NonUniformSamplingError reports a time axis whose spacing is not constant.
// It usually means the model was interrupted while writing output.
type NonUniformSamplingError struct {
	Index    int // index of the first offending interval (between Index and Index+1)
	Expected time.Duration
	Got      time.Duration
}

func (e *NonUniformSamplingError) Error() string {
	return fmt.Sprintf("timestamps are not homogeneous: interval %d is %s, expected %s; write out may have been interrupted prematurely",
		e.Index, e.Got, e.Expected)
}

// MissingValueError reports an unresolved (NaN) payload value under strict checks.
type MissingValueError struct {
	Field    string
	Time     time.Time
	Location int
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("%s contains NaN at %s, location %d; handle missing values before computing compoundness",
		e.Field, e.Time.UTC().Format(time.RFC3339), e.Location)
}

// NegativeValueError reports a negative payload value under strict checks.
type NegativeValueError struct {
	Field    string
	Time     time.Time
	Location int
	Value    float64
}

func (e *NegativeValueError) Error() string {
	return fmt.Sprintf("%s contains negative value %g at %s, location %d; inputs must be water column height",
		e.Field, e.Value, e.Time.UTC().Format(time.RFC3339), e.Location)
}

// AlignmentError reports that an inner join left no common time steps.
type AlignmentError struct {
	Fields []string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("no common time steps across %s", strings.Join(e.Fields, ", "))
}

// ErrorKind classifies err for metrics labels. Unrecognized errors are "io".
func ErrorKind(err error) string {
	var (
		dup      *DuplicateTimestampError
		sampling *NonUniformSamplingError
		missing  *MissingValueError
		negative *NegativeValueError
		align    *AlignmentError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &dup):
		return "duplicate_timestamp"
	case errors.As(err, &sampling):
		return "non_uniform_sampling"
	case errors.As(err, &missing):
		return "missing_value"
	case errors.As(err, &negative):
		return "negative_value"
	case errors.As(err, &align):
		return "alignment"
	case errors.Is(err, ErrInvalidJob):
		return "invalid_job"
	case errors.Is(err, ErrShapeMismatch), errors.Is(err, ErrEmptyField), errors.Is(err, ErrNoTimeAxis):
		return "shape"
	default:
		return "io"
	}
}
