package domain

import (
	"fmt"
	"sort"
	"time"
)

// TimeAxis is anything that can produce its time coordinate without loading
// the rest of its payload.
type TimeAxis interface {
	Times() ([]time.Time, error)
}

// Validate checks the temporal integrity of ds and returns it unchanged.
// With strict false it returns immediately; the caller takes responsibility
// for the file being well formed.
func Validate[T TimeAxis](ds T, strict bool) (T, error) {
	if !strict {
		return ds, nil
	}
	times, err := ds.Times()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("read time axis: %w", err)
	}
	if err := ValidateTimes(times); err != nil {
		var zero T
		return zero, err
	}
	return ds, nil
}

// ValidateTimes rejects duplicate timestamps and non-uniform spacing.
// Sequences of zero or one timestamp are trivially uniform.
func ValidateTimes(times []time.Time) error {
	if dupes := duplicateTimes(times); len(dupes) > 0 {
		return &DuplicateTimestampError{Values: dupes}
	}
	if len(times) < 2 {
		return nil
	}

	interval := times[1].Sub(times[0])
	// Time running backwards cannot be a sampling interval.
	if interval <= 0 {
		return &NonUniformSamplingError{Index: 0, Expected: interval, Got: interval}
	}
	for i := 1; i < len(times)-1; i++ {
		if d := times[i+1].Sub(times[i]); d != interval {
			return &NonUniformSamplingError{Index: i, Expected: interval, Got: d}
		}
	}
	return nil
}

// duplicateTimes returns every value occurring more than once, ascending.
func duplicateTimes(times []time.Time) []time.Time {
	counts := make(map[int64]int, len(times))
	for _, t := range times {
		counts[t.UnixNano()]++
	}

	var dupes []time.Time
	for ns, n := range counts {
		if n > 1 {
			dupes = append(dupes, time.Unix(0, ns).UTC())
		}
	}
	sort.Slice(dupes, func(i, j int) bool { return dupes[i].Before(dupes[j]) })
	return dupes
}
