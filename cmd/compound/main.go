// Command compound computes the compoundness of one triplet of ADCIRC
// fort.63 runs and prints the report as JSON. Defaults come from the same
// environment variables as the service.
//
// Usage:
//
//	go run ./cmd/compound \
//	  -compound runs/ike_compound/fort.63.nc \
//	  -surge runs/ike_surge/fort.63.nc \
//	  -rivers runs/ike_rivers/fort.63.nc \
//	  -node-chunk 50000
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/adapter/netcdf"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/config"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/ingest"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/observability"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "compound: %v (kind=%s)\n", err, domain.ErrorKind(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	compound := flag.String("compound", "", "fort.63 file of the jointly forced run")
	surge := flag.String("surge", "", "fort.63 file of the surge-only run")
	rivers := flag.String("rivers", "", "fort.63 file of the rivers-only run")
	id := flag.String("id", "cli", "job ID recorded in the report")
	strictIngest := flag.Bool("strict-ingest", cfg.StrictIngest, "reject duplicate or non-uniform time axes")
	strictCompute := flag.Bool("strict-compute", cfg.StrictCompute, "reject NaN and negative values")
	elevation := flag.Bool("elevation", cfg.Elevation, "convert zeta to water column height before comparing")
	timeChunk := flag.String("time-chunk", cfg.Chunks[domain.AxisTime].String(), "time chunk: none, auto or a size")
	nodeChunk := flag.String("node-chunk", cfg.Chunks[domain.AxisNode].String(), "node chunk: none, auto or a size")
	parallelism := flag.Int("parallelism", cfg.Parallelism, "concurrent block reads per variable (0 = GOMAXPROCS)")
	out := flag.String("out", "", "write the report here instead of stdout")
	flag.Parse()

	if *compound == "" || *surge == "" || *rivers == "" {
		flag.Usage()
		return fmt.Errorf("%w: -compound, -surge and -rivers are required", domain.ErrInvalidJob)
	}

	chunks := domain.ChunkSpec{}
	for axis, s := range map[string]string{domain.AxisTime: *timeChunk, domain.AxisNode: *nodeChunk} {
		c, err := domain.ParseChunk(s)
		if err != nil {
			return fmt.Errorf("%w: %s chunk: %w", domain.ErrInvalidJob, axis, err)
		}
		chunks[axis] = c
	}

	logger := observability.NewLogger(cfg)
	analyzer := pipeline.NewAnalyzer(
		ingest.NewFileLoader(netcdf.WithParallelism(*parallelism)),
		pipeline.Defaults{Chunks: chunks},
		logger,
		nil,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep, err := analyzer.Analyze(ctx, domain.AnalysisJob{
		ID:            *id,
		Compound:      *compound,
		SurgeOnly:     *surge,
		RiversOnly:    *rivers,
		StrictIngest:  strictIngest,
		StrictCompute: strictCompute,
		Elevation:     elevation,
		Chunks:        chunks,
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if *out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}
