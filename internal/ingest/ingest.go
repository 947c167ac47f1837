// Package ingest opens ADCIRC global elevation files and validates their
// time axis before handing them to callers.
package ingest

import (
	"github.com/couchcryptid/adcirc-compoundness-service/internal/adapter/netcdf"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
)

// Options control how a global elevation file is ingested.
type Options struct {
	// Chunks is passed through to the reader; nil means domain.DefaultChunks.
	Chunks domain.ChunkSpec
	// Strict enables duplicate and sampling-interval checks on the time axis.
	Strict bool
	// Classic restricts the result to time and zeta.
	Classic bool
}

// DefaultOptions returns strict ingestion of the full variable set.
func DefaultOptions() Options {
	return Options{Chunks: domain.DefaultChunks(), Strict: true}
}

// ReadGlobalElevation opens a fort.63-style file, validates its time axis
// when opts.Strict is set and optionally narrows it to the classic layout.
// Only the time coordinate is read; the payload stays on disk until Load.
func ReadGlobalElevation(path string, opts Options, readerOpts ...netcdf.Option) (*netcdf.Dataset, error) {
	ds, err := netcdf.Open(path, opts.Chunks, readerOpts...)
	if err != nil {
		return nil, err
	}
	out, err := open(ds, opts)
	if err != nil {
		ds.Close()
		return nil, err
	}
	return out, nil
}

func open(ds *netcdf.Dataset, opts Options) (*netcdf.Dataset, error) {
	if _, err := domain.Validate(ds, opts.Strict); err != nil {
		return nil, &Error{Path: ds.Path(), Err: err}
	}
	return ds.Select(opts.Classic)
}

// ReadFort63 is ReadGlobalElevation restricted to the classic layout.
func ReadFort63(path string, opts Options, readerOpts ...netcdf.Option) (*netcdf.Dataset, error) {
	opts.Classic = true
	return ReadGlobalElevation(path, opts, readerOpts...)
}

// Error ties a validation failure to the file it came from.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }
