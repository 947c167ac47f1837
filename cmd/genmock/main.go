// Command genmock writes a synthetic ADCIRC hindcast triplet as fort.63
// NetCDF fixtures, plus corrupted variants for exercising strict ingestion
// and a sample analysis job.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock
//
// The mesh is a small structured grid of triangles. Surge enters from the
// southern edge, river flow from the western edge, and the compound run is
// the sum of both with a nonlinear interaction term in the corner where they
// meet. Nodes on the northern edge of the surge run start dry.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/adapter/netcdf"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
)

const (
	cols  = 8
	rows  = 7
	nodes = cols * rows
	steps = 12
)

// Hurricane Ike landfall.
var coldStart = time.Date(2008, time.September, 12, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for the fixtures")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	times := hourly(steps)
	depth := bathymetry()
	elements := mesh()

	runs := []struct {
		file string
		zeta [][]float64
	}{
		{"compound.fort.63.nc", elevations(times, true, true)},
		{"surge_only.fort.63.nc", elevations(times, true, false)},
		{"rivers_only.fort.63.nc", elevations(times, false, true)},
	}
	for _, r := range runs {
		if err := write(*out, r.file, times, r.zeta, depth, elements); err != nil {
			return err
		}
	}

	// A hotstart that overlaps earlier output repeats a record.
	dupTimes := append(append([]time.Time(nil), times[:6]...), times[5:]...)
	dupZeta := append(append([][]float64(nil), runs[0].zeta[:6]...), runs[0].zeta[5:]...)
	if err := write(*out, "duplicate_times.fort.63.nc", dupTimes, dupZeta, depth, elements); err != nil {
		return err
	}

	// A run killed mid-write flushes one record off the output interval.
	cut := append([]time.Time(nil), times...)
	cut[len(cut)-1] = cut[len(cut)-2].Add(456 * time.Millisecond)
	if err := write(*out, "interrupted.fort.63.nc", cut, runs[0].zeta, depth, elements); err != nil {
		return err
	}

	job := domain.AnalysisJob{
		ID:         "ike-mock",
		Compound:   runs[0].file,
		SurgeOnly:  runs[1].file,
		RiversOnly: runs[2].file,
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return err
	}
	jobPath := filepath.Join(*out, "job.json")
	if err := os.WriteFile(jobPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing job: %w", err)
	}
	log.Printf("wrote %s", jobPath)
	return nil
}

func write(dir, file string, times []time.Time, zeta [][]float64, depth []float64, elements [][3]int32) error {
	path := filepath.Join(dir, file)
	err := netcdf.WriteFort63(path, netcdf.Fort63{
		Reference: coldStart.Add(-24 * time.Hour),
		Times:     times,
		Zeta:      zeta,
		Depth:     depth,
		Elements:  elements,
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", file, err)
	}
	log.Printf("wrote %s (%d steps, %d nodes)", path, len(times), len(zeta[0]))
	return nil
}

func hourly(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = coldStart.Add(time.Duration(i) * time.Hour)
	}
	return out
}

// bathymetry deepens toward the south-east corner.
func bathymetry() []float64 {
	depth := make([]float64, nodes)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			depth[r*cols+c] = 1 + 0.5*float64(c) + 0.25*float64(rows-1-r)
		}
	}
	return depth
}

// mesh splits every grid cell into two triangles with 1-based node numbers.
func mesh() [][3]int32 {
	var elements [][3]int32
	for r := 0; r < rows-1; r++ {
		for c := 0; c < cols-1; c++ {
			n := int32(r*cols + c + 1)
			elements = append(elements,
				[3]int32{n, n + 1, n + cols},
				[3]int32{n + 1, n + cols + 1, n + cols},
			)
		}
	}
	return elements
}

func elevations(times []time.Time, surge, rivers bool) [][]float64 {
	out := make([][]float64, len(times))
	for t := range times {
		phase := math.Sin(math.Pi * float64(t) / float64(len(times)-1))
		row := make([]float64, nodes)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				var z float64
				s := 2.0 * phase * float64(rows-r) / rows
				q := 1.5 * phase * float64(cols-c) / cols
				if surge {
					z += s
				}
				if rivers {
					z += q
				}
				if surge && rivers {
					z += 0.3 * s * q
				}
				row[r*cols+c] = z
			}
		}
		if surge && !rivers && t < 2 {
			for c := 0; c < cols; c++ {
				row[(rows-1)*cols+c] = math.NaN()
			}
		}
		out[t] = row
	}
	return out
}
