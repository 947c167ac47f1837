package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Join selects how Align treats time coordinates that are not shared.
// It is always passed per call; there is no process-wide default.
type Join int

const (
	// JoinInner keeps only timestamps present in every operand.
	JoinInner Join = iota
	// JoinExact requires every operand to carry the identical time axis.
	JoinExact
)

func (j Join) String() string {
	switch j {
	case JoinInner:
		return "inner"
	case JoinExact:
		return "exact"
	default:
		return fmt.Sprintf("join(%d)", int(j))
	}
}

// ErrIndexMismatch is returned by JoinExact when time axes differ.
var ErrIndexMismatch = errors.New("time indexes are not equal")

// Align restricts fields to a shared time axis. Results are returned in the
// operand order, each sorted ascending on the common timestamps. Inputs are
// never modified.
func Align(join Join, fields ...*Field) ([]*Field, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	for _, f := range fields {
		if err := f.Check(); err != nil {
			return nil, err
		}
	}

	switch join {
	case JoinExact:
		return alignExact(fields)
	case JoinInner:
		return alignInner(fields)
	default:
		return nil, fmt.Errorf("unsupported join %s", join)
	}
}

func alignExact(fields []*Field) ([]*Field, error) {
	ref := fields[0].Times
	for _, f := range fields[1:] {
		if len(f.Times) != len(ref) {
			return nil, fmt.Errorf("%w: %s has %d steps, %s has %d", ErrIndexMismatch, f.Name, len(f.Times), fields[0].Name, len(ref))
		}
		for i := range ref {
			if !f.Times[i].Equal(ref[i]) {
				return nil, fmt.Errorf("%w: %s differs from %s at step %d", ErrIndexMismatch, f.Name, fields[0].Name, i)
			}
		}
	}
	return fields, nil
}

func alignInner(fields []*Field) ([]*Field, error) {
	// Count how many operands carry each timestamp. Each operand contributes
	// at most once per timestamp even if it repeats one.
	counts := make(map[int64]int)
	for _, f := range fields {
		seen := make(map[int64]bool, len(f.Times))
		for _, t := range f.Times {
			ns := t.UnixNano()
			if !seen[ns] {
				seen[ns] = true
				counts[ns]++
			}
		}
	}

	common := make([]int64, 0, len(counts))
	for ns, n := range counts {
		if n == len(fields) {
			common = append(common, ns)
		}
	}
	if len(common) == 0 {
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = f.Name
		}
		return nil, &AlignmentError{Fields: names}
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })

	out := make([]*Field, len(fields))
	for i, f := range fields {
		pos := make(map[int64]int, len(f.Times))
		for t := len(f.Times) - 1; t >= 0; t-- {
			pos[f.Times[t].UnixNano()] = t // first occurrence wins
		}
		idx := make([]int, len(common))
		for k, ns := range common {
			idx[k] = pos[ns]
		}
		out[i] = f.Take(idx)
	}
	return out, nil
}

// Support describes the time steps a computation actually used.
type Support struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Steps int       `json:"steps"`
}

func supportOf(f *Field) Support {
	if len(f.Times) == 0 {
		return Support{}
	}
	return Support{Start: f.Times[0], End: f.Times[len(f.Times)-1], Steps: len(f.Times)}
}
