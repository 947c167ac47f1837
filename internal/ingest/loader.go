package ingest

import (
	"context"
	"fmt"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/adapter/netcdf"
	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
)

// Request names one run to materialize for the compoundness engine.
type Request struct {
	Path   string
	Chunks domain.ChunkSpec
	Strict bool
	// Elevation marks the file as raw zeta; the loaded field is converted to
	// water column height with the file's depth.
	Elevation bool
}

// Loader turns a Request into a fully materialized field.
type Loader interface {
	Load(ctx context.Context, req Request) (*domain.Field, error)
}

// FileLoader reads fields straight from NetCDF files.
type FileLoader struct {
	opts []netcdf.Option
}

// NewFileLoader creates a FileLoader that passes opts to every Open.
func NewFileLoader(opts ...netcdf.Option) *FileLoader {
	return &FileLoader{opts: opts}
}

func (l *FileLoader) Load(ctx context.Context, req Request) (*domain.Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := ReadGlobalElevation(req.Path, Options{Chunks: req.Chunks, Strict: req.Strict}, l.opts...)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	name := netcdf.VarZeta
	if req.Elevation {
		if ds, err = ds.WithWaterColumnHeight(); err != nil {
			return nil, err
		}
		name = domain.WaterColumnHeightName
	}
	f, err := ds.Load(name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", req.Path, err)
	}
	return f, nil
}
