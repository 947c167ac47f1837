package netcdf

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// referenceLayouts are the reference-time spellings seen in CF and ADCIRC files.
var referenceLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2",
}

// ParseTimeUnits splits a CF units string such as
// "seconds since 2008-01-01 00:00:00 ! NCDATE" into its step and reference.
// Anything after "!" is a comment. References without a zone are UTC.
func ParseTimeUnits(units string) (time.Duration, time.Time, error) {
	if i := strings.Index(units, "!"); i >= 0 {
		units = units[:i]
	}
	parts := strings.SplitN(strings.TrimSpace(units), " since ", 2)
	if len(parts) != 2 {
		return 0, time.Time{}, fmt.Errorf("time units %q: want \"<unit> since <reference>\"", units)
	}

	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "secs", "sec", "s":
		step = time.Second
	case "minutes", "minute", "mins", "min":
		step = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("time units %q: unsupported unit %q", units, parts[0])
	}

	ref := strings.TrimSpace(parts[1])
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return step, t.UTC(), nil
		}
	}
	return 0, time.Time{}, fmt.Errorf("time units %q: unparseable reference %q", units, ref)
}

// DecodeTimes converts raw offsets to timestamps, rounded to the nanosecond.
func DecodeTimes(offsets []float64, units string) ([]time.Time, error) {
	step, ref, err := ParseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	times := make([]time.Time, len(offsets))
	for i, v := range offsets {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("time record %d is not finite", i)
		}
		ns := math.Round(v * float64(step))
		// float64(math.MaxInt64) rounds up to 2^63, one past the largest Duration.
		if ns < math.MinInt64 || ns >= math.MaxInt64 {
			return nil, fmt.Errorf("time record %d is out of range: %g %s", i, v, units)
		}
		times[i] = ref.Add(time.Duration(ns))
	}
	return times, nil
}

// EncodeTimes is the inverse of DecodeTimes for a seconds-based unit.
func EncodeTimes(times []time.Time, ref time.Time) ([]float64, string) {
	offsets := make([]float64, len(times))
	for i, t := range times {
		offsets[i] = t.Sub(ref).Seconds()
	}
	return offsets, "seconds since " + ref.UTC().Format("2006-01-02 15:04:05")
}
