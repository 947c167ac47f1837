package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// AnalysisJob asks for the compoundness of one triplet of ADCIRC runs.
// Paths point at fort.63 NetCDF files. Nil flags fall back to service defaults.
type AnalysisJob struct {
	ID            string `json:"id"`
	Compound      string `json:"compound"`
	SurgeOnly     string `json:"surge_only"`
	RiversOnly    string `json:"rivers_only"`
	StrictIngest  *bool  `json:"strict_ingest,omitempty"`
	StrictCompute *bool  `json:"strict_compute,omitempty"`

	// Elevation marks the inputs as raw zeta that must be converted to
	// water column height before comparison. Defaults to true.
	Elevation *bool     `json:"elevation,omitempty"`
	Chunks    ChunkSpec `json:"chunks,omitempty"`
}

// ErrInvalidJob is wrapped by ParseAnalysisJob for structurally bad jobs.
var ErrInvalidJob = errors.New("invalid analysis job")

// ParseAnalysisJob decodes and checks a job message. The message key is used
// as the job ID when the payload carries none.
func ParseAnalysisJob(raw RawEvent) (AnalysisJob, error) {
	var job AnalysisJob
	if err := json.Unmarshal(raw.Value, &job); err != nil {
		return AnalysisJob{}, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	if job.ID == "" {
		job.ID = string(raw.Key)
	}

	var missing []string
	for _, p := range []struct{ name, path string }{
		{"compound", job.Compound},
		{"surge_only", job.SurgeOnly},
		{"rivers_only", job.RiversOnly},
	} {
		if strings.TrimSpace(p.path) == "" {
			missing = append(missing, p.name)
		}
	}
	if len(missing) > 0 {
		return AnalysisJob{}, fmt.Errorf("%w: missing %s", ErrInvalidJob, strings.Join(missing, ", "))
	}
	if err := job.Chunks.Check(); err != nil {
		return AnalysisJob{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return job, nil
}

// CompoundnessReport is the published outcome of an AnalysisJob.
type CompoundnessReport struct {
	JobID         string    `json:"job_id"`
	Kind          string    `json:"kind"`
	Dim           string    `json:"dim,omitempty"`
	Scalar        *float64  `json:"scalar,omitempty"`
	Values        []float64 `json:"values,omitempty"`
	Locations     int       `json:"locations"`
	Unresolved    []int     `json:"unresolved,omitempty"`
	Max           float64   `json:"max"`
	MaxLocation   int       `json:"max_location"`
	Support       Support   `json:"support"`
	StrictIngest  bool      `json:"strict_ingest"`
	StrictCompute bool      `json:"strict_compute"`
	ComputedAt    time.Time `json:"computed_at"`
}

// NewReport summarizes a Result. JSON cannot carry NaN, so NaN locations are
// listed in Unresolved and written as 0 in Values; Max skips them.
func NewReport(jobID string, res Result, strictIngest, strictCompute bool) CompoundnessReport {
	rep := CompoundnessReport{
		JobID:         jobID,
		Kind:          res.Kind.String(),
		Dim:           res.Dim,
		Locations:     len(res.Values),
		MaxLocation:   -1,
		Support:       res.Support,
		StrictIngest:  strictIngest,
		StrictCompute: strictCompute,
		ComputedAt:    clock.Now().UTC(),
	}
	if res.Kind == ResultScalar {
		v := jsonSafe(res.Scalar)
		rep.Scalar = &v
	} else {
		rep.Values = make([]float64, len(res.Values))
	}
	for n, v := range res.Values {
		if rep.Values != nil {
			rep.Values[n] = jsonSafe(v)
		}
		if math.IsNaN(v) {
			rep.Unresolved = append(rep.Unresolved, n)
			continue
		}
		if rep.MaxLocation < 0 || v > rep.Max {
			rep.Max = v
			rep.MaxLocation = n
		}
	}
	return rep
}

// SerializeReport marshals a report into a sink message keyed by job ID.
func SerializeReport(rep CompoundnessReport) (OutputEvent, error) {
	data, err := json.Marshal(rep)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize compoundness report: %w", err)
	}
	return OutputEvent{
		Key:   []byte(rep.JobID),
		Value: data,
		Headers: map[string]string{
			"job_id":      rep.JobID,
			"result_kind": rep.Kind,
			"computed_at": rep.ComputedAt.Format(time.RFC3339),
		},
	}, nil
}

// ResultFailed is the result_kind header of a failure report.
const ResultFailed = "failed"

// FailureReport is published in place of a CompoundnessReport when a job
// cannot be analyzed, so consumers waiting on a job ID always get an answer.
type FailureReport struct {
	JobID    string    `json:"job_id"`
	Kind     string    `json:"kind"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// NewFailureReport describes err, classified by ErrorKind.
func NewFailureReport(jobID string, err error) FailureReport {
	return FailureReport{
		JobID:    jobID,
		Kind:     ErrorKind(err),
		Error:    err.Error(),
		FailedAt: clock.Now().UTC(),
	}
}

// SerializeFailure marshals a failure report into a sink message keyed by
// job ID.
func SerializeFailure(rep FailureReport) (OutputEvent, error) {
	data, err := json.Marshal(rep)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize failure report: %w", err)
	}
	return OutputEvent{
		Key:   []byte(rep.JobID),
		Value: data,
		Headers: map[string]string{
			"job_id":      rep.JobID,
			"result_kind": ResultFailed,
			"error_kind":  rep.Kind,
			"failed_at":   rep.FailedAt.Format(time.RFC3339),
		},
	}, nil
}

// JobID returns the ID a job message would be reported under: the payload's
// id when it decodes, the message key otherwise.
func JobID(raw RawEvent) string {
	var head struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(raw.Value, &head) == nil && head.ID != "" {
		return head.ID
	}
	return string(raw.Key)
}

func jsonSafe(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
