package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2008, 9, 13, 0, 0, 0, 0, time.UTC)

func hours(hs ...float64) []time.Time {
	out := make([]time.Time, len(hs))
	for i, h := range hs {
		out[i] = t0.Add(time.Duration(h * float64(time.Hour)))
	}
	return out
}

type stubAxis struct {
	times []time.Time
	err   error
	calls int
}

func (s *stubAxis) Times() ([]time.Time, error) {
	s.calls++
	return s.times, s.err
}

func TestValidateTimes(t *testing.T) {
	t.Run("uniform", func(t *testing.T) {
		assert.NoError(t, ValidateTimes(hours(0, 1, 2, 3)))
	})

	t.Run("empty and singleton", func(t *testing.T) {
		assert.NoError(t, ValidateTimes(nil))
		assert.NoError(t, ValidateTimes(hours(5)))
	})

	t.Run("duplicates reported ascending", func(t *testing.T) {
		err := ValidateTimes(hours(0, 2, 1, 2, 1, 3))
		var dup *DuplicateTimestampError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, hours(1, 2), dup.Values)
		assert.Contains(t, err.Error(), "duplicate time values found")
	})

	t.Run("duplicates win over spacing", func(t *testing.T) {
		err := ValidateTimes(hours(0, 1, 1, 5))
		var dup *DuplicateTimestampError
		assert.ErrorAs(t, err, &dup)
	})

	t.Run("interrupted write", func(t *testing.T) {
		times := hours(0, 1, 2)
		times = append(times, times[2].Add(456*time.Millisecond))
		err := ValidateTimes(times)

		var sampling *NonUniformSamplingError
		require.ErrorAs(t, err, &sampling)
		assert.Equal(t, 2, sampling.Index)
		assert.Equal(t, time.Hour, sampling.Expected)
		assert.Equal(t, 456*time.Millisecond, sampling.Got)
		assert.Contains(t, err.Error(), "interrupted prematurely")
	})

	t.Run("decreasing first interval", func(t *testing.T) {
		var sampling *NonUniformSamplingError
		require.ErrorAs(t, ValidateTimes(hours(2, 1, 0)), &sampling)
		assert.Equal(t, 0, sampling.Index)
	})
}

func TestValidate(t *testing.T) {
	t.Run("strict returns input", func(t *testing.T) {
		ds := &stubAxis{times: hours(0, 1)}
		got, err := Validate(ds, true)
		require.NoError(t, err)
		assert.Same(t, ds, got)
		assert.Equal(t, 1, ds.calls)
	})

	t.Run("non-strict skips reading", func(t *testing.T) {
		ds := &stubAxis{times: hours(0, 0)}
		got, err := Validate(ds, false)
		require.NoError(t, err)
		assert.Same(t, ds, got)
		assert.Zero(t, ds.calls)
	})

	t.Run("strict failure returns zero value", func(t *testing.T) {
		ds := &stubAxis{times: hours(0, 0)}
		got, err := Validate(ds, true)
		require.Error(t, err)
		assert.Nil(t, got)
	})

	t.Run("time axis read error", func(t *testing.T) {
		ds := &stubAxis{err: errors.New("boom")}
		_, err := Validate(ds, true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read time axis")
	})
}
