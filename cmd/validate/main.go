// Command validate checks the temporal integrity of ADCIRC global elevation
// files: duplicate time records and non-uniform output intervals. It exits
// non-zero if any file fails.
//
// Usage:
//
//	go run ./cmd/validate runs/ike_*/fort.63.nc
//	go run ./cmd/validate -classic -strict=false runs/ike_compound/fort.63.nc
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/adapter/netcdf"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/config"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/ingest"
)

// result tracks pass/fail for one file.
type result struct {
	path   string
	kind   string
	err    error
	steps  int
	vars   []string
	dims   []string
	chunks map[string][]int
}

func (r *result) passed() bool { return r.err == nil }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	strict := flag.Bool("strict", true, "check duplicates and sampling interval")
	classic := flag.Bool("classic", cfg.Classic, "restrict to the time and zeta variables")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	opts := ingest.Options{Chunks: cfg.Chunks, Strict: *strict, Classic: *classic}
	if code := run(flag.Args(), opts); code != 0 {
		os.Exit(code)
	}
}

func run(paths []string, opts ingest.Options) int {
	fmt.Println("=== ADCIRC Time Axis Validation ===")
	fmt.Println()

	results := make([]*result, 0, len(paths))
	for _, p := range paths {
		results = append(results, check(p, opts))
	}

	allPassed := true
	for _, r := range results {
		status := "\033[32mPASS\033[0m"
		if !r.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%s)\033[0m", r.kind)
			allPassed = false
		}
		fmt.Printf("  %-52s %s\n", r.path, status)
	}

	for _, r := range results {
		if r.passed() {
			fmt.Printf("\n--- %s ---\n", r.path)
			fmt.Printf("  steps: %d, variables: %v\n", r.steps, r.vars)
			fmt.Printf("  zeta dims: %v, chunks: %v\n", r.dims, r.chunks)
			continue
		}
		fmt.Printf("\n--- %s ---\n", r.path)
		fmt.Printf("  %v\n", r.err)
		var dup *domain.DuplicateTimestampError
		if errors.As(r.err, &dup) {
			for i, v := range dup.Values {
				fmt.Printf("  [%d] %s\n", i+1, v.Format("2006-01-02T15:04:05.999999999Z07:00"))
			}
		}
	}

	if allPassed {
		fmt.Println("\nAll files passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func check(path string, opts ingest.Options) *result {
	r := &result{path: path}
	ds, err := ingest.ReadGlobalElevation(path, opts)
	if err != nil {
		r.err = err
		r.kind = domain.ErrorKind(err)
		return r
	}
	defer ds.Close()

	times, err := ds.Times()
	if err != nil {
		r.err = err
		r.kind = domain.ErrorKind(err)
		return r
	}
	r.steps = len(times)
	r.vars = ds.Variables()
	if r.dims, err = ds.Dims(netcdf.VarZeta); err != nil {
		r.err = err
		r.kind = domain.ErrorKind(err)
		return r
	}
	if r.chunks, err = ds.Chunks(netcdf.VarZeta); err != nil {
		r.err = err
		r.kind = domain.ErrorKind(err)
	}
	return r
}
