package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// Retry delays after a failed extract or publish.
const (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// BatchExtractor reads up to batchSize analysis job messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns one job message into a serialized report.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error)
}

// BatchLoader writes reports to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline consumes analysis jobs and publishes exactly one message per job:
// the compoundness report, or a failure report when the job could not be
// analyzed. Offsets are committed only after the batch is published.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has published a batch, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any reports yet")
	}
	return nil
}

// Run consumes batches until the context is cancelled. Extract and publish
// failures are retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	wait := minBackoff
	for ctx.Err() == nil {
		err := p.runBatch(ctx)
		if err == nil {
			wait = minBackoff
			continue
		}
		if ctx.Err() != nil {
			break
		}
		p.logger.Error("batch failed", "error", err, "retry_in", wait)
		if !retry.SleepWithContext(ctx, wait) {
			break
		}
		wait = retry.NextBackoff(wait, maxBackoff)
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// runBatch extracts one batch, analyzes it, publishes the results, and
// commits the jobs they cover.
func (p *Pipeline) runBatch(ctx context.Context) error {
	start := time.Now()

	jobs, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("extract batch: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}
	p.metrics.JobsConsumed.Add(float64(len(jobs)))
	p.metrics.BatchSize.Observe(float64(len(jobs)))

	msgs, handled := p.analyzeBatch(ctx, jobs)
	if len(msgs) > 0 {
		if err := p.loader.LoadBatch(ctx, msgs); err != nil {
			return fmt.Errorf("publish %d reports: %w", len(msgs), err)
		}
		p.metrics.ReportsProduced.Add(float64(len(msgs)))
	}
	for _, raw := range handled {
		p.commitOffset(ctx, raw)
	}

	if len(msgs) > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.logger.Debug("batch published", "reports", len(msgs), "jobs", len(jobs))
		p.ready.Store(true)
	}
	return nil
}

// analyzeBatch runs the jobs in order. It returns the messages to publish and
// the jobs that are settled once they are: every analyzed job, plus any job
// whose failure report could not be built. Jobs not yet started when ctx is
// cancelled are left uncommitted for redelivery.
func (p *Pipeline) analyzeBatch(ctx context.Context, jobs []domain.RawEvent) ([]domain.OutputEvent, []domain.RawEvent) {
	msgs := make([]domain.OutputEvent, 0, len(jobs))
	handled := make([]domain.RawEvent, 0, len(jobs))

	for i, raw := range jobs {
		if ctx.Err() != nil {
			p.logger.Info("batch interrupted", "analyzed", i, "pending", len(jobs)-i)
			break
		}
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled mid-analysis: not the job's fault.
				break
			}
			out, err = p.fail(raw, err)
			if err != nil {
				p.logger.Error("drop job without report", "error", err, "key", string(raw.Key))
				handled = append(handled, raw)
				continue
			}
		}
		msgs = append(msgs, out)
		handled = append(handled, raw)
	}
	return msgs, handled
}

// fail logs and counts a failed job and builds its failure report.
func (p *Pipeline) fail(raw domain.RawEvent, cause error) (domain.OutputEvent, error) {
	rep := domain.NewFailureReport(domain.JobID(raw), cause)
	p.logger.Warn("analysis failed",
		"error", cause,
		"kind", rep.Kind,
		"job_id", rep.JobID,
		"topic", raw.Topic,
		"partition", raw.Partition,
		"offset", raw.Offset,
	)
	p.metrics.AnalysisErrors.WithLabelValues(rep.Kind).Inc()
	return domain.SerializeFailure(rep)
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
