// Package netcdf reads and writes ADCIRC output in the NetCDF classic format.
//
// A Dataset is a lazy handle: opening a file reads only its header, Times
// reads only the time coordinate, and Load materializes one variable by
// reading rectangular blocks (chunks) concurrently.
package netcdf

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/adcirc-compoundness-service/internal/domain"
	"github.com/ctessum/cdf"
	"golang.org/x/sync/errgroup"
)

// Variable names used by ADCIRC global elevation files.
const (
	VarTime    = "time"
	VarZeta    = "zeta"
	VarDepth   = "depth"
	VarElement = "element"
)

// defaultAutoChunkBytes bounds the size of one automatically sized block.
const defaultAutoChunkBytes = 128 << 20

// ErrUnknownVariable is returned for variables absent from the dataset view.
var ErrUnknownVariable = errors.New("unknown variable")

// Option adjusts how a Dataset reads its file.
type Option func(*options)

type options struct {
	parallelism    int
	autoChunkBytes int
}

// WithParallelism caps the number of blocks read concurrently.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.parallelism = n
		}
	}
}

// WithAutoChunkBytes sets the memory budget used by the "auto" chunk policy.
func WithAutoChunkBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.autoChunkBytes = n
		}
	}
}

// Dataset is an open NetCDF file together with a chunking policy and a view
// over a subset of its variables. Views created by Select and
// WithWaterColumnHeight share the underlying file; closing any of them closes
// it for all.
type Dataset struct {
	path   string
	file   *os.File
	cdf    *cdf.File
	chunks domain.ChunkSpec
	opts   options

	vars  []string
	wch   bool
	times func() ([]time.Time, error)
}

// Open reads the header of a NetCDF classic file. chunks may be nil, in which
// case domain.DefaultChunks applies.
func Open(path string, chunks domain.ChunkSpec, opts ...Option) (*Dataset, error) {
	if chunks == nil {
		chunks = domain.DefaultChunks()
	}
	if err := chunks.Check(); err != nil {
		return nil, err
	}

	o := options{parallelism: runtime.GOMAXPROCS(0), autoChunkBytes: defaultAutoChunkBytes}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: not a NetCDF classic file: %w", path, err)
	}

	d := &Dataset{
		path:   path,
		file:   f,
		cdf:    cf,
		chunks: chunks,
		opts:   o,
		vars:   cf.Header.Variables(),
	}
	d.times = sync.OnceValues(d.readTimes)
	return d, nil
}

// Close releases the file.
func (d *Dataset) Close() error {
	return d.file.Close()
}

// Path returns the file the dataset was opened from.
func (d *Dataset) Path() string { return d.path }

// Variables lists the variables visible in this view.
func (d *Dataset) Variables() []string {
	return slices.Clone(d.vars)
}

// Has reports whether name is visible in this view.
func (d *Dataset) Has(name string) bool {
	return slices.Contains(d.vars, name)
}

// Dims returns the dimension names of a variable.
func (d *Dataset) Dims(name string) ([]string, error) {
	if !d.Has(name) {
		return nil, fmt.Errorf("%s: %w %q", d.path, ErrUnknownVariable, name)
	}
	return d.cdf.Header.Dimensions(d.sourceOf(name)), nil
}

// Times returns the decoded time coordinate. Only the time variable is read;
// the result is cached and shared between views.
func (d *Dataset) Times() ([]time.Time, error) {
	return d.times()
}

func (d *Dataset) readTimes() ([]time.Time, error) {
	if len(d.cdf.Header.Lengths(VarTime)) == 0 {
		return nil, fmt.Errorf("%s: %w", d.path, domain.ErrNoTimeAxis)
	}
	raw, err := d.readAll(VarTime)
	if err != nil {
		return nil, err
	}
	units, _ := d.cdf.Header.GetAttribute(VarTime, "units").(string)
	times, err := DecodeTimes(raw, units)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	return times, nil
}

// Select returns the classic single-variable view (time and zeta only) when
// classic is set, and the dataset unchanged otherwise.
func (d *Dataset) Select(classic bool) (*Dataset, error) {
	if !classic {
		return d, nil
	}
	payload := VarZeta
	if d.wch {
		payload = domain.WaterColumnHeightName
	}
	if !d.Has(payload) {
		return nil, fmt.Errorf("%s: %w %q", d.path, ErrUnknownVariable, payload)
	}
	view := *d
	view.vars = []string{VarTime, payload}
	return &view, nil
}

// WithWaterColumnHeight returns a view in which zeta is replaced by
// water_column_height derived from zeta and depth. Every other variable
// passes through untouched.
func (d *Dataset) WithWaterColumnHeight() (*Dataset, error) {
	if !d.Has(VarZeta) || !d.Has(VarDepth) {
		return nil, fmt.Errorf("%s: water column height needs %q and %q", d.path, VarZeta, VarDepth)
	}
	view := *d
	view.wch = true
	view.vars = make([]string, 0, len(d.vars))
	for _, v := range d.vars {
		if v == VarZeta {
			v = domain.WaterColumnHeightName
		}
		view.vars = append(view.vars, v)
	}
	return &view, nil
}

// Chunks reports the block sizes Load would use for a time-dependent
// variable, keyed by dimension name.
func (d *Dataset) Chunks(name string) (map[string][]int, error) {
	dims, err := d.Dims(name)
	if err != nil {
		return nil, err
	}
	lengths := d.cdf.Header.Lengths(d.sourceOf(name))
	tb, nb := d.blockSizes(lengths)
	out := map[string][]int{dims[0]: splitAxis(lengths[0], tb)}
	if len(dims) > 1 {
		out[dims[1]] = splitAxis(lengths[1], nb)
	}
	return out, nil
}

// Static reads a variable that does not depend on time, e.g. depth.
// Fill values become NaN.
func (d *Dataset) Static(name string) ([]float64, error) {
	if !d.Has(name) {
		return nil, fmt.Errorf("%s: %w %q", d.path, ErrUnknownVariable, name)
	}
	return d.readStatic(name)
}

// readStatic reads a time-invariant variable regardless of view visibility.
func (d *Dataset) readStatic(name string) ([]float64, error) {
	dims := d.cdf.Header.Dimensions(name)
	if len(dims) > 0 && dims[0] == VarTime {
		return nil, fmt.Errorf("%s: %q depends on time", d.path, name)
	}
	vals, err := d.readAll(name)
	if err != nil {
		return nil, err
	}
	d.maskFill(name, vals)
	return vals, nil
}

// Load materializes a (time) or (time, node) variable into a Field. Blocks
// are read concurrently according to the chunk spec.
func (d *Dataset) Load(name string) (*domain.Field, error) {
	if !d.Has(name) {
		return nil, fmt.Errorf("%s: %w %q", d.path, ErrUnknownVariable, name)
	}
	if name == domain.WaterColumnHeightName && d.wch {
		return d.loadWaterColumnHeight()
	}
	return d.loadVariable(name)
}

func (d *Dataset) loadWaterColumnHeight() (*domain.Field, error) {
	zeta, err := d.loadVariable(VarZeta)
	if err != nil {
		return nil, err
	}
	depth, err := d.readStatic(VarDepth)
	if err != nil {
		return nil, err
	}
	wch, err := domain.WaterColumnHeight(zeta, depth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	return wch, nil
}

// loadVariable reads a variable from the file. Visibility in the view is
// checked by Load; derived views read their source variables through here.
func (d *Dataset) loadVariable(name string) (*domain.Field, error) {
	if len(d.cdf.Header.Lengths(name)) == 0 {
		return nil, fmt.Errorf("%s: %w %q", d.path, ErrUnknownVariable, name)
	}
	dims := d.cdf.Header.Dimensions(name)
	if len(dims) == 0 || dims[0] != VarTime || len(dims) > 2 {
		return nil, fmt.Errorf("%s: %q has dims %v, want (time) or (time, location)", d.path, name, dims)
	}
	times, err := d.Times()
	if err != nil {
		return nil, err
	}

	lengths := d.cdf.Header.Lengths(name)
	nt := lengths[0]
	if nt != len(times) {
		return nil, fmt.Errorf("%s: %q has %d records, time has %d: %w", d.path, name, nt, len(times), domain.ErrShapeMismatch)
	}
	nn := 0
	if len(lengths) > 1 {
		nn = lengths[1]
	}

	field := domain.NewField(name, times, nn)
	if nn > 0 {
		field.Dims = []string{domain.AxisTime, dims[1]}
	}
	width := field.Locations()

	tb, nb := d.blockSizes(lengths)
	var g errgroup.Group
	g.SetLimit(d.opts.parallelism)
	for t0 := 0; t0 < nt; t0 += tb {
		t1 := min(t0+tb, nt)
		for n0 := 0; n0 < width; n0 += nb {
			n1 := min(n0+nb, width)
			g.Go(func() error {
				return d.readBlock(field, name, t0, t1, n0, n1)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return field, nil
}

// blockSizes resolves the chunk spec into block lengths along the time and
// location axes of a variable with the given lengths.
func (d *Dataset) blockSizes(lengths []int) (int, int) {
	nt, nn := lengths[0], 1
	if len(lengths) > 1 {
		nn = lengths[1]
	}
	tc, nc := d.chunks[domain.AxisTime], d.chunks[domain.AxisNode]

	tb := fixedOrWhole(tc, nt)
	nb := fixedOrWhole(nc, nn)
	budget := max(1, d.opts.autoChunkBytes/8)
	if nc.Auto {
		nb = clamp(budget/max(1, tb), nn)
	}
	if tc.Auto {
		tb = clamp(budget/max(1, nb), nt)
	}
	return max(1, tb), max(1, nb)
}

func fixedOrWhole(c domain.Chunk, n int) int {
	if c.Size > 0 {
		return min(c.Size, max(n, 1))
	}
	return n
}

func clamp(v, n int) int {
	return max(1, min(v, n))
}

func splitAxis(n, block int) []int {
	if n == 0 {
		return []int{0}
	}
	var out []int
	for start := 0; start < n; start += block {
		out = append(out, min(block, n-start))
	}
	return out
}

func (d *Dataset) sourceOf(name string) string {
	if name == domain.WaterColumnHeightName && d.wch {
		return VarZeta
	}
	return name
}

// readBlock fills rows [t0, t1) and locations [n0, n1) of field from the
// file. A cdf reader covers one linear range of the variable, so blocks
// narrower than a full row are read one record at a time.
func (d *Dataset) readBlock(field *domain.Field, name string, t0, t1, n0, n1 int) error {
	if !field.HasSpatialAxis() {
		vals, err := d.readRange(name, []int{t0}, []int{t1 - 1}, t1-t0)
		if err != nil {
			return err
		}
		d.maskFill(name, vals)
		copy(field.Data.Elements[t0:t1], vals)
		return nil
	}

	width := field.Locations()
	if n0 == 0 && n1 == width {
		vals, err := d.readRange(name, []int{t0, 0}, []int{t1 - 1, width - 1}, (t1-t0)*width)
		if err != nil {
			return err
		}
		d.maskFill(name, vals)
		copy(field.Data.Elements[t0*width:t1*width], vals)
		return nil
	}

	for t := t0; t < t1; t++ {
		vals, err := d.readRange(name, []int{t, n0}, []int{t, n1 - 1}, n1-n0)
		if err != nil {
			return err
		}
		d.maskFill(name, vals)
		copy(field.Row(t)[n0:n1], vals)
	}
	return nil
}

// readAll reads a whole variable as float64.
func (d *Dataset) readAll(name string) ([]float64, error) {
	lengths := d.cdf.Header.Lengths(name)
	if len(lengths) == 0 {
		return nil, fmt.Errorf("%s: %w %q", d.path, ErrUnknownVariable, name)
	}
	n := 1
	for _, l := range lengths {
		n *= l
	}
	if n == 0 {
		return nil, nil
	}
	last := make([]int, len(lengths))
	for i, l := range lengths {
		last[i] = l - 1
	}
	return d.readRange(name, make([]int, len(lengths)), last, n)
}

// readRange reads n values starting at the begin corner and ending at the
// inclusive last corner, in row-major order.
func (d *Dataset) readRange(name string, begin, last []int, n int) ([]float64, error) {
	r := d.cdf.Reader(name, begin, last)
	buf := r.Zero(n)
	got, err := r.Read(buf)
	if err != nil && !(errors.Is(err, io.EOF) && got == n) {
		return nil, fmt.Errorf("%s: read %q: %w", d.path, name, err)
	}
	if got != n {
		return nil, fmt.Errorf("%s: read %q: short read of %d values, want %d", d.path, name, got, n)
	}
	vals, err := toFloat64(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: read %q: %w", d.path, name, err)
	}
	return vals, nil
}

// maskFill replaces the variable's _FillValue with NaN in place.
func (d *Dataset) maskFill(name string, vals []float64) {
	attr := d.cdf.Header.GetAttribute(name, "_FillValue")
	if attr == nil {
		return
	}
	fill, err := toFloat64(attr)
	if err != nil || len(fill) == 0 {
		return
	}
	for i, v := range vals {
		if v == fill[0] {
			vals[i] = math.NaN()
		}
	}
}

func toFloat64(buf interface{}) ([]float64, error) {
	switch b := buf.(type) {
	case []float64:
		return b, nil
	case []float32:
		return convert(b), nil
	case []int32:
		return convert(b), nil
	case []int16:
		return convert(b), nil
	case []int8:
		return convert(b), nil
	case []uint8:
		return convert(b), nil
	default:
		return nil, fmt.Errorf("unsupported element type %T", buf)
	}
}

func convert[T float32 | int32 | int16 | int8 | uint8](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
