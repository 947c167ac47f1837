package domain

import (
	"fmt"
	"math"
)

// WaterColumnHeightName is the variable name given to derived column heights.
const WaterColumnHeightName = "water_column_height"

// WaterColumnHeight derives column height from surface elevation and static
// bathymetric depth: 0 where elevation is NaN (dry), elevation + depth
// otherwise. depth holds one value per location. The elevation field is not
// modified.
func WaterColumnHeight(elevation *Field, depth []float64) (*Field, error) {
	if err := elevation.Check(); err != nil {
		return nil, err
	}
	if len(depth) != elevation.Locations() {
		return nil, fmt.Errorf("%w: %d depths for %d locations", ErrShapeMismatch, len(depth), elevation.Locations())
	}

	out := elevation.Take(identity(elevation.Steps()))
	out.Name = WaterColumnHeightName
	for t := 0; t < out.Steps(); t++ {
		row := out.Row(t)
		for n, zeta := range row {
			if math.IsNaN(zeta) {
				row[n] = 0
				continue
			}
			row[n] = zeta + depth[n]
		}
	}
	return out, nil
}

func identity(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
