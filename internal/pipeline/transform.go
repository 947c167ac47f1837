package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/ingest"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/observability"
	"golang.org/x/sync/errgroup"
)

// ErrOutsideDataRoot is returned for job paths that escape the data root.
var ErrOutsideDataRoot = errors.New("path outside data root")

// Defaults apply to jobs that leave a flag unset.
type Defaults struct {
	StrictIngest  bool
	StrictCompute bool
	Elevation     bool
	Chunks        domain.ChunkSpec
	// DataRoot, when set, confines job paths to one directory tree.
	// Relative paths are resolved against it.
	DataRoot string
}

// Analyzer implements Transformer: it loads the three runs named by a job,
// computes their compoundness, and serializes the report.
type Analyzer struct {
	loader   ingest.Loader
	defaults Defaults
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewAnalyzer creates an Analyzer. metrics may be nil.
func NewAnalyzer(loader ingest.Loader, defaults Defaults, logger *slog.Logger, metrics *observability.Metrics) *Analyzer {
	if defaults.Chunks == nil {
		defaults.Chunks = domain.DefaultChunks()
	}
	return &Analyzer{
		loader:   loader,
		defaults: defaults,
		logger:   logger,
		metrics:  metrics,
	}
}

func (a *Analyzer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	job, err := domain.ParseAnalysisJob(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	rep, err := a.Analyze(ctx, job)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("job %s: %w", job.ID, err)
	}
	return domain.SerializeReport(rep)
}

// Analyze runs one job. The three runs are loaded concurrently; strict
// ingestion rejects a run before its payload is read.
func (a *Analyzer) Analyze(ctx context.Context, job domain.AnalysisJob) (domain.CompoundnessReport, error) {
	start := time.Now()
	strictIngest := flagOr(job.StrictIngest, a.defaults.StrictIngest)
	strictCompute := flagOr(job.StrictCompute, a.defaults.StrictCompute)
	elevation := flagOr(job.Elevation, a.defaults.Elevation)
	chunks := job.Chunks
	if len(chunks) == 0 {
		chunks = a.defaults.Chunks
	}

	paths := []string{job.Compound, job.SurgeOnly, job.RiversOnly}
	for i, p := range paths {
		resolved, err := a.resolve(p)
		if err != nil {
			return domain.CompoundnessReport{}, err
		}
		paths[i] = resolved
	}

	fields := make([]*domain.Field, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			f, err := a.loader.Load(gctx, ingest.Request{
				Path:      path,
				Chunks:    chunks,
				Strict:    strictIngest,
				Elevation: elevation,
			})
			if err != nil {
				return err
			}
			fields[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.CompoundnessReport{}, err
	}

	res, err := domain.Compoundness(fields[0], fields[1], fields[2], strictCompute)
	if err != nil {
		return domain.CompoundnessReport{}, err
	}
	rep := domain.NewReport(job.ID, res, strictIngest, strictCompute)

	elapsed := time.Since(start)
	if a.metrics != nil {
		a.metrics.AnalysisDuration.Observe(elapsed.Seconds())
	}
	a.logger.Info("compoundness computed",
		"job_id", job.ID,
		"kind", rep.Kind,
		"locations", rep.Locations,
		"max", rep.Max,
		"unresolved", len(rep.Unresolved),
		"steps", rep.Support.Steps,
		"duration", elapsed,
	)
	return rep, nil
}

// resolve cleans p and, with a data root configured, anchors it there.
func (a *Analyzer) resolve(p string) (string, error) {
	root := a.defaults.DataRoot
	if root == "" {
		return filepath.Clean(p), nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %w: %s", domain.ErrInvalidJob, ErrOutsideDataRoot, p)
	}
	return p, nil
}

func flagOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
