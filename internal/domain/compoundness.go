package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ResultKind tags whether a Result holds one scalar or one value per location.
type ResultKind int

const (
	ResultScalar ResultKind = iota
	ResultField
)

func (k ResultKind) String() string {
	if k == ResultField {
		return "field"
	}
	return "scalar"
}

// Result is the outcome of Compoundness. Kind is ResultField exactly when the
// inputs carried a spatial axis; then Values, SurgeError and RiversError hold
// one entry per location along Dim. For ResultScalar the slices hold a single
// entry and Scalar repeats it.
type Result struct {
	Kind        ResultKind
	Dim         string
	Scalar      float64
	Values      []float64
	SurgeError  []float64
	RiversError []float64
	Support     Support
}

// Compoundness measures how far the jointly forced run strays from both
// singly forced runs. The three fields are inner-joined on time, the absolute
// deviation of compound from each reference is reduced by its maximum over
// time, and the smaller of the two maxima is kept per location.
//
// With strict set every input is scanned in full for NaN and negative values
// first, which forces the whole payload into memory. Without it NaN propagates
// through the reductions and the result is not guaranteed to be meaningful.
func Compoundness(compound, surgeOnly, riversOnly *Field, strict bool) (Result, error) {
	inputs := []*Field{compound, surgeOnly, riversOnly}
	if err := checkInputs(inputs); err != nil {
		return Result{}, err
	}

	if strict {
		for _, f := range inputs {
			if err := checkMissing(f); err != nil {
				return Result{}, err
			}
		}
		for _, f := range inputs {
			if err := checkNegative(f); err != nil {
				return Result{}, err
			}
		}
	}

	aligned, err := Align(JoinInner, inputs...)
	if err != nil {
		return Result{}, err
	}
	c, s, r := aligned[0], aligned[1], aligned[2]

	surgeErr := maxAbsDeviation(c, s)
	riversErr := maxAbsDeviation(c, r)
	values := make([]float64, len(surgeErr))
	for n := range values {
		values[n] = math.Min(surgeErr[n], riversErr[n])
	}

	res := Result{
		Kind:        ResultScalar,
		Values:      values,
		SurgeError:  surgeErr,
		RiversError: riversErr,
		Support:     supportOf(c),
	}
	if compound.HasSpatialAxis() {
		res.Kind = ResultField
		res.Dim = compound.SpatialDim()
	} else {
		res.Scalar = values[0]
	}
	return res, nil
}

func checkInputs(inputs []*Field) error {
	for _, f := range inputs {
		if f == nil {
			return fmt.Errorf("%w: nil input", ErrShapeMismatch)
		}
		if err := f.Check(); err != nil {
			return err
		}
		if f.Steps() == 0 || len(f.Data.Elements) == 0 {
			return fmt.Errorf("%s: %w", f.Name, ErrEmptyField)
		}
	}
	ref := inputs[0]
	for _, f := range inputs[1:] {
		if f.HasSpatialAxis() != ref.HasSpatialAxis() || f.Locations() != ref.Locations() {
			return fmt.Errorf("%w: %s has %d locations on %v, %s has %d on %v",
				ErrShapeMismatch, f.Name, f.Locations(), f.Dims, ref.Name, ref.Locations(), ref.Dims)
		}
	}
	return nil
}

func checkMissing(f *Field) error {
	if !floats.HasNaN(f.Data.Elements) {
		return nil
	}
	for t := range f.Times {
		for n, v := range f.Row(t) {
			if math.IsNaN(v) {
				return &MissingValueError{Field: f.Name, Time: f.Times[t], Location: n}
			}
		}
	}
	return nil
}

func checkNegative(f *Field) error {
	if floats.Min(f.Data.Elements) >= 0 {
		return nil
	}
	for t := range f.Times {
		for n, v := range f.Row(t) {
			if v < 0 {
				return &NegativeValueError{Field: f.Name, Time: f.Times[t], Location: n, Value: v}
			}
		}
	}
	return nil
}

// maxAbsDeviation returns max_t |a - b| per location. a and b must already be
// aligned. A NaN anywhere in a location's series makes that location NaN.
func maxAbsDeviation(a, b *Field) []float64 {
	nl := a.Locations()
	acc := make([]float64, nl)
	diff := make([]float64, nl)
	for t := 0; t < a.Steps(); t++ {
		floats.SubTo(diff, a.Row(t), b.Row(t))
		for n, d := range diff {
			d = math.Abs(d)
			switch {
			case math.IsNaN(acc[n]):
			case math.IsNaN(d), t == 0, d > acc[n]:
				acc[n] = d
			}
		}
	}
	return acc
}
