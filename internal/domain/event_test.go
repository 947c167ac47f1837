package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysisJob(t *testing.T) {
	t.Run("full job", func(t *testing.T) {
		raw := RawEvent{Value: []byte(`{"id":"ike","compound":"a.nc","surge_only":"b.nc","rivers_only":"c.nc",
			"strict_ingest":false,"elevation":true,"chunks":{"time":null,"node":"auto"}}`)}
		job, err := ParseAnalysisJob(raw)
		require.NoError(t, err)
		assert.Equal(t, "ike", job.ID)
		assert.Equal(t, "b.nc", job.SurgeOnly)
		require.NotNil(t, job.StrictIngest)
		assert.False(t, *job.StrictIngest)
		assert.Nil(t, job.StrictCompute)
		require.NotNil(t, job.Elevation)
		assert.True(t, *job.Elevation)
		assert.Equal(t, ChunkSpec{AxisTime: {}, AxisNode: ChunkAuto}, job.Chunks)
	})

	t.Run("key as id", func(t *testing.T) {
		raw := RawEvent{Key: []byte("from-key"), Value: []byte(`{"compound":"a","surge_only":"b","rivers_only":"c"}`)}
		job, err := ParseAnalysisJob(raw)
		require.NoError(t, err)
		assert.Equal(t, "from-key", job.ID)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := ParseAnalysisJob(RawEvent{Value: []byte(`not json`)})
		assert.ErrorIs(t, err, ErrInvalidJob)
	})

	t.Run("missing paths", func(t *testing.T) {
		_, err := ParseAnalysisJob(RawEvent{Value: []byte(`{"compound":"a","surge_only":"  "}`)})
		require.ErrorIs(t, err, ErrInvalidJob)
		assert.Contains(t, err.Error(), "missing surge_only, rivers_only")
	})

	t.Run("unknown chunk axis", func(t *testing.T) {
		_, err := ParseAnalysisJob(RawEvent{Value: []byte(`{"compound":"a","surge_only":"b","rivers_only":"c","chunks":{"element":10}}`)})
		assert.ErrorIs(t, err, ErrInvalidJob)
	})

	t.Run("invalid chunk size", func(t *testing.T) {
		_, err := ParseAnalysisJob(RawEvent{Value: []byte(`{"compound":"a","surge_only":"b","rivers_only":"c","chunks":{"node":-4}}`)})
		assert.ErrorIs(t, err, ErrInvalidJob)
	})
}

func TestNewReport(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	t.Run("field with unresolved locations", func(t *testing.T) {
		res := Result{
			Kind:    ResultField,
			Dim:     AxisNode,
			Values:  []float64{0.2, math.NaN(), 0.7, 0.1},
			Support: Support{Start: t0, End: t0.Add(time.Hour), Steps: 2},
		}
		rep := NewReport("ike", res, true, false)

		assert.Equal(t, "ike", rep.JobID)
		assert.Equal(t, "field", rep.Kind)
		assert.Equal(t, AxisNode, rep.Dim)
		assert.Nil(t, rep.Scalar)
		assert.Equal(t, []float64{0.2, 0, 0.7, 0.1}, rep.Values)
		assert.Equal(t, 4, rep.Locations)
		assert.Equal(t, []int{1}, rep.Unresolved)
		assert.Equal(t, 0.7, rep.Max)
		assert.Equal(t, 2, rep.MaxLocation)
		assert.True(t, rep.StrictIngest)
		assert.False(t, rep.StrictCompute)
		assert.Equal(t, fixed, rep.ComputedAt)
	})

	t.Run("scalar", func(t *testing.T) {
		rep := NewReport("s", Result{Kind: ResultScalar, Scalar: 1.5, Values: []float64{1.5}}, true, true)
		assert.Equal(t, "scalar", rep.Kind)
		require.NotNil(t, rep.Scalar)
		assert.Equal(t, 1.5, *rep.Scalar)
		assert.Nil(t, rep.Values)
		assert.Equal(t, 1.5, rep.Max)
		assert.Equal(t, 0, rep.MaxLocation)
	})

	t.Run("all unresolved", func(t *testing.T) {
		rep := NewReport("n", Result{Kind: ResultScalar, Scalar: math.NaN(), Values: []float64{math.NaN()}}, false, false)
		require.NotNil(t, rep.Scalar)
		assert.Equal(t, 0.0, *rep.Scalar)
		assert.Equal(t, -1, rep.MaxLocation)
		assert.Equal(t, []int{0}, rep.Unresolved)
	})
}

func TestSerializeReport(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	rep := NewReport("ike", Result{Kind: ResultField, Dim: AxisNode, Values: []float64{math.NaN(), 1}}, true, true)
	out, err := SerializeReport(rep)
	require.NoError(t, err)

	assert.Equal(t, []byte("ike"), out.Key)
	assert.Equal(t, map[string]string{
		"job_id":      "ike",
		"result_kind": "field",
		"computed_at": "2026-03-01T12:00:00Z",
	}, out.Headers)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Value, &decoded))
	assert.Equal(t, []any{0.0, 1.0}, decoded["values"])
	assert.Equal(t, []any{0.0}, decoded["unresolved"])
	assert.NotContains(t, decoded, "scalar")
}

func TestSerializeFailure(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	rep := NewFailureReport("ike", &NonUniformSamplingError{Index: 2, Expected: time.Hour, Got: time.Minute})
	assert.Equal(t, "non_uniform_sampling", rep.Kind)
	assert.Equal(t, fixed, rep.FailedAt)

	out, err := SerializeFailure(rep)
	require.NoError(t, err)
	assert.Equal(t, []byte("ike"), out.Key)
	assert.Equal(t, map[string]string{
		"job_id":      "ike",
		"result_kind": "failed",
		"error_kind":  "non_uniform_sampling",
		"failed_at":   "2026-03-01T12:00:00Z",
	}, out.Headers)

	var decoded FailureReport
	require.NoError(t, json.Unmarshal(out.Value, &decoded))
	assert.Equal(t, rep, decoded)
}

func TestJobID(t *testing.T) {
	assert.Equal(t, "ike", JobID(RawEvent{Key: []byte("k"), Value: []byte(`{"id":"ike"}`)}))
	assert.Equal(t, "k", JobID(RawEvent{Key: []byte("k"), Value: []byte(`{"compound":"a"}`)}))
	assert.Equal(t, "k", JobID(RawEvent{Key: []byte("k"), Value: []byte(`not json`)}))
}

func TestChunk(t *testing.T) {
	tests := []struct {
		in   string
		want Chunk
	}{
		{"", Chunk{}},
		{"none", Chunk{}},
		{"AUTO", ChunkAuto},
		{" 128 ", ChunkSize(128)},
	}
	for _, tt := range tests {
		got, err := ParseChunk(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"0", "-3", "lots"} {
		_, err := ParseChunk(bad)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, "auto", ChunkAuto.String())
	assert.Equal(t, "none", Chunk{}.String())
	assert.Equal(t, "56", ChunkSize(56).String())
	assert.True(t, Chunk{}.IsNone())
	assert.False(t, ChunkAuto.IsNone())
}

func TestChunkSpecJSON(t *testing.T) {
	data, err := json.Marshal(ChunkSpec{AxisTime: {}, AxisNode: ChunkSize(56)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":null,"node":56}`, string(data))

	var spec ChunkSpec
	require.NoError(t, json.Unmarshal([]byte(`{"time":"12","node":"auto"}`), &spec))
	assert.Equal(t, ChunkSpec{AxisTime: ChunkSize(12), AxisNode: ChunkAuto}, spec)

	assert.NoError(t, DefaultChunks().Check())
	assert.Error(t, ChunkSpec{"nele": ChunkAuto}.Check())
}
