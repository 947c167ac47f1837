package netcdf

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ctessum/cdf"
)

// FillValue is the ADCIRC marker for dry nodes.
const FillValue = -99999.0

// Fort63 describes the content of a global elevation file.
type Fort63 struct {
	// Reference is the epoch of the time units; zero means Times[0].
	Reference time.Time
	Times     []time.Time
	// Zeta holds one row per time step. NaN is written as FillValue.
	Zeta [][]float64
	// Depth and Elements are optional; Elements are 1-based node indices.
	Depth    []float64
	Elements [][3]int32
}

// WriteFort63 writes m to path as a NetCDF classic file with the ADCIRC
// variable layout.
func WriteFort63(path string, m Fort63) error {
	nt := len(m.Times)
	if nt == 0 || len(m.Zeta) != nt {
		return fmt.Errorf("write %s: need one zeta row per time step (%d times, %d rows)", path, nt, len(m.Zeta))
	}
	nn := len(m.Zeta[0])
	if nn == 0 {
		return fmt.Errorf("write %s: zeta rows are empty", path)
	}
	if m.Depth != nil && len(m.Depth) != nn {
		return fmt.Errorf("write %s: %d depths for %d nodes", path, len(m.Depth), nn)
	}

	ref := m.Reference
	if ref.IsZero() {
		ref = m.Times[0]
	}
	offsets, units := EncodeTimes(m.Times, ref)

	zeta := make([]float64, 0, nt*nn)
	for t, row := range m.Zeta {
		if len(row) != nn {
			return fmt.Errorf("write %s: row %d has %d nodes, want %d", path, t, len(row), nn)
		}
		for _, v := range row {
			if math.IsNaN(v) {
				v = FillValue
			}
			zeta = append(zeta, v)
		}
	}

	dims, lengths := []string{VarTime, "node"}, []int{nt, nn}
	if len(m.Elements) > 0 {
		dims = append(dims, "nele", "nvertex")
		lengths = append(lengths, len(m.Elements), 3)
	}
	h := cdf.NewHeader(dims, lengths)
	h.AddAttribute("", "model", "ADCIRC")
	h.AddVariable(VarTime, []string{VarTime}, []float64{0})
	h.AddAttribute(VarTime, "long_name", "model time")
	h.AddAttribute(VarTime, "units", units+" ! NCDATE")
	h.AddVariable(VarZeta, []string{VarTime, "node"}, []float64{0})
	h.AddAttribute(VarZeta, "long_name", "water surface elevation above geoid")
	h.AddAttribute(VarZeta, "units", "m")
	h.AddAttribute(VarZeta, "_FillValue", []float64{FillValue})
	if m.Depth != nil {
		h.AddVariable(VarDepth, []string{"node"}, []float64{0})
		h.AddAttribute(VarDepth, "long_name", "distance below geoid")
		h.AddAttribute(VarDepth, "units", "m")
	}
	var elements []int32
	if len(m.Elements) > 0 {
		h.AddVariable(VarElement, []string{"nele", "nvertex"}, []int32{0})
		h.AddAttribute(VarElement, "long_name", "element")
		h.AddAttribute(VarElement, "start_index", []int32{1})
		elements = make([]int32, 0, 3*len(m.Elements))
		for _, e := range m.Elements {
			elements = append(elements, e[0], e[1], e[2])
		}
	}
	h.Define()
	for _, err := range h.Check() {
		if err != nil {
			return fmt.Errorf("write %s: header: %w", path, err)
		}
	}

	ff, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer ff.Close()

	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := writeVar(f, VarTime, offsets); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := writeVar(f, VarZeta, zeta); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if m.Depth != nil {
		if err := writeVar(f, VarDepth, m.Depth); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if elements != nil {
		if err := writeVar(f, VarElement, elements); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return ff.Close()
}

func writeVar(f *cdf.File, name string, data interface{}) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %q: %w", name, err)
	}
	return nil
}
