package ingest

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/adapter/netcdf"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2008, 9, 13, 0, 0, 0, 0, time.UTC)

func hourly(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = t0.Add(time.Duration(i) * time.Hour)
	}
	return out
}

// writeRun writes a fort.63 with the given times over three nodes. Zeta is
// the time index plus the node index; depth is 10 everywhere.
func writeRun(t *testing.T, name string, times []time.Time) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	zeta := make([][]float64, len(times))
	for i := range zeta {
		zeta[i] = []float64{float64(i), float64(i) + 1, float64(i) + 2}
	}
	require.NoError(t, netcdf.WriteFort63(path, netcdf.Fort63{
		Times:    times,
		Zeta:     zeta,
		Depth:    []float64{10, 10, 10},
		Elements: [][3]int32{{1, 2, 3}},
	}))
	return path
}

func TestReadGlobalElevation_Valid(t *testing.T) {
	ds, err := ReadGlobalElevation(writeRun(t, "valid.nc", hourly(4)), DefaultOptions())
	require.NoError(t, err)
	defer ds.Close()

	assert.ElementsMatch(t, []string{"time", "zeta", "depth", "element"}, ds.Variables())
	times, err := ds.Times()
	require.NoError(t, err)
	assert.Equal(t, hourly(4), times)
}

func TestReadGlobalElevation_Singleton(t *testing.T) {
	ds, err := ReadGlobalElevation(writeRun(t, "one.nc", hourly(1)), DefaultOptions())
	require.NoError(t, err)
	ds.Close()
}

func TestReadGlobalElevation_DuplicateTimes(t *testing.T) {
	times := []time.Time{t0, t0.Add(time.Hour), t0.Add(time.Hour), t0.Add(2 * time.Hour), t0.Add(2 * time.Hour)}
	path := writeRun(t, "dupes.nc", times)

	_, err := ReadGlobalElevation(path, DefaultOptions())
	require.Error(t, err)

	var dupErr *domain.DuplicateTimestampError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, []time.Time{t0.Add(time.Hour), t0.Add(2 * time.Hour)}, dupErr.Values)

	var ingestErr *Error
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, path, ingestErr.Path)
	assert.Contains(t, err.Error(), "duplicate time values found")
}

func TestReadGlobalElevation_InterruptedWrite(t *testing.T) {
	times := hourly(4)
	times[3] = times[3].Add(456 * time.Millisecond)

	_, err := ReadGlobalElevation(writeRun(t, "corrupt.nc", times), DefaultOptions())

	var nonUniform *domain.NonUniformSamplingError
	require.ErrorAs(t, err, &nonUniform)
	assert.Equal(t, 2, nonUniform.Index)
	assert.Equal(t, time.Hour, nonUniform.Expected)
	assert.Equal(t, time.Hour+456*time.Millisecond, nonUniform.Got)
	assert.Contains(t, err.Error(), "interrupted")
}

func TestReadGlobalElevation_NonStrictSkipsChecks(t *testing.T) {
	times := []time.Time{t0, t0, t0.Add(time.Hour)}
	opts := DefaultOptions()
	opts.Strict = false

	ds, err := ReadGlobalElevation(writeRun(t, "dupes.nc", times), opts)
	require.NoError(t, err)
	defer ds.Close()
	assert.True(t, ds.Has("zeta"))
}

func TestReadGlobalElevation_MissingFile(t *testing.T) {
	_, err := ReadGlobalElevation(filepath.Join(t.TempDir(), "absent.nc"), DefaultOptions())
	require.Error(t, err)
	assert.False(t, errors.As(err, new(*Error)), "open failures are not validation failures")
}

func TestReadFort63_Classic(t *testing.T) {
	ds, err := ReadFort63(writeRun(t, "fort.63.nc", hourly(3)), DefaultOptions())
	require.NoError(t, err)
	defer ds.Close()

	assert.Equal(t, []string{"time", "zeta"}, ds.Variables())
}

func TestReadGlobalElevation_ChunksPassThrough(t *testing.T) {
	opts := DefaultOptions()
	opts.Chunks = domain.ChunkSpec{"node": domain.ChunkSize(2)}

	ds, err := ReadGlobalElevation(writeRun(t, "chunked.nc", hourly(2)), opts)
	require.NoError(t, err)
	defer ds.Close()

	chunks, err := ds.Chunks("zeta")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, chunks["node"])
	assert.Equal(t, []int{2}, chunks["time"])
}
