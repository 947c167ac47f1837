package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/ctessum/sparse"
)

// Axis names recognized across the service.
const (
	AxisTime = "time"
	AxisNode = "node"
)

var (
	// ErrNoTimeAxis is returned when a field's leading axis is not "time".
	ErrNoTimeAxis = errors.New("field has no leading time axis")

	// ErrShapeMismatch is returned when payload shape and labels disagree, or
	// when fields combined elementwise do not share a spatial extent.
	ErrShapeMismatch = errors.New("field shape mismatch")

	// ErrEmptyField is returned for fields with no time steps.
	ErrEmptyField = errors.New("field has no time steps")
)

// Field is a labeled array with a leading time axis and at most one spatial
// axis. Data has shape [len(Times)] or [len(Times), nodes].
//
// Fields are treated as immutable once built; every operation in this package
// returns a new Field.
type Field struct {
	Name  string
	Dims  []string
	Times []time.Time
	Data  *sparse.DenseArray
}

// NewField allocates a zero-filled field. A nodes value of zero produces a
// pure time series with no spatial axis.
func NewField(name string, times []time.Time, nodes int) *Field {
	f := &Field{Name: name, Times: times}
	if nodes > 0 {
		f.Dims = []string{AxisTime, AxisNode}
		f.Data = sparse.ZerosDense(len(times), nodes)
	} else {
		f.Dims = []string{AxisTime}
		f.Data = sparse.ZerosDense(len(times))
	}
	return f
}

// NewSeries builds a field without a spatial axis from parallel slices.
func NewSeries(name string, times []time.Time, values []float64) (*Field, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d times, %d values", ErrShapeMismatch, len(times), len(values))
	}
	f := NewField(name, times, 0)
	copy(f.Data.Elements, values)
	return f, nil
}

// NewNodeField builds a (time, node) field from row-major rows, one per time step.
func NewNodeField(name string, times []time.Time, rows [][]float64) (*Field, error) {
	if len(times) != len(rows) {
		return nil, fmt.Errorf("%w: %d times, %d rows", ErrShapeMismatch, len(times), len(rows))
	}
	nodes := 0
	if len(rows) > 0 {
		nodes = len(rows[0])
	}
	if nodes == 0 {
		return nil, fmt.Errorf("%w: rows have no nodes", ErrShapeMismatch)
	}
	f := NewField(name, times, nodes)
	for t, row := range rows {
		if len(row) != nodes {
			return nil, fmt.Errorf("%w: row %d has %d nodes, want %d", ErrShapeMismatch, t, len(row), nodes)
		}
		copy(f.Data.Elements[t*nodes:(t+1)*nodes], row)
	}
	return f, nil
}

// Check verifies the labels agree with the payload.
func (f *Field) Check() error {
	if len(f.Dims) == 0 || f.Dims[0] != AxisTime {
		return fmt.Errorf("%s: %w", f.Name, ErrNoTimeAxis)
	}
	if f.Data == nil || len(f.Data.Shape) != len(f.Dims) || len(f.Dims) > 2 {
		return fmt.Errorf("%s: %w: dims %v", f.Name, ErrShapeMismatch, f.Dims)
	}
	if f.Data.Shape[0] != len(f.Times) {
		return fmt.Errorf("%s: %w: %d times, payload has %d", f.Name, ErrShapeMismatch, len(f.Times), f.Data.Shape[0])
	}
	return nil
}

// HasSpatialAxis reports whether the field carries a location axis.
func (f *Field) HasSpatialAxis() bool { return len(f.Dims) > 1 }

// SpatialDim returns the name of the location axis, or "" for a pure series.
func (f *Field) SpatialDim() string {
	if !f.HasSpatialAxis() {
		return ""
	}
	return f.Dims[1]
}

// Locations returns the number of spatial locations; a pure series has one.
func (f *Field) Locations() int {
	if !f.HasSpatialAxis() {
		return 1
	}
	return f.Data.Shape[1]
}

// Steps returns the number of time steps.
func (f *Field) Steps() int { return len(f.Times) }

// At returns the value at time index t and location n.
func (f *Field) At(t, n int) float64 {
	return f.Data.Elements[t*f.Locations()+n]
}

// Row returns the values at time index t. The slice aliases the payload.
func (f *Field) Row(t int) []float64 {
	nl := f.Locations()
	return f.Data.Elements[t*nl : (t+1)*nl]
}

// Take returns a new field restricted to the given time indices, in order.
func (f *Field) Take(idx []int) *Field {
	times := make([]time.Time, len(idx))
	for i, t := range idx {
		times[i] = f.Times[t]
	}
	out := &Field{Name: f.Name, Dims: append([]string(nil), f.Dims...), Times: times}
	if f.HasSpatialAxis() {
		out.Data = sparse.ZerosDense(len(idx), f.Locations())
	} else {
		out.Data = sparse.ZerosDense(len(idx))
	}
	for i, t := range idx {
		copy(out.Row(i), f.Row(t))
	}
	return out
}
