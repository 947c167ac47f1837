// Package domain models ADCIRC time-series output and the compoundness
// diagnostic computed from it.
//
// # Data Source
//
// ADCIRC writes global elevation ("fort.63") output as a NetCDF file holding a
// `time` coordinate and a `zeta` variable dimensioned (time, node). Richer
// files also carry the static bathymetric `depth` per node and the mesh
// connectivity (`element`, dimensioned (nele, nvertex)). Reading the file is
// the job of the netcdf adapter; this package only sees the decoded [Field].
//
// # ADCIRC Conventions
//
// Time:
//
//	Stored as numbers with a CF "units" attribute, e.g.
//	"seconds since 2008-01-01 00:00:00 ! NCDATE". Output is written every
//	NSPOOLGE seconds, so a healthy file is uniformly spaced. A simulation that
//	is killed mid-run flushes a final record whose interval differs from the
//	rest; duplicate records appear when a hotstart overlaps earlier output.
//
// Dry nodes:
//
//	Nodes that are not wetted at a time step store the _FillValue (-99999).
//	The adapter surfaces them as NaN.
//
// Water column height:
//
//	zeta is the water surface elevation above the geoid; depth is positive
//	downward. Column height is zeta + depth where wet and 0 where dry. See
//	[WaterColumnHeight].
//
// # Compoundness
//
// Given a jointly forced run (surge and river flow together) and the two
// singly forced runs, compoundness at a node is
//
//	min( max_t |compound - surge_only|, max_t |compound - rivers_only| )
//
// taken over the time steps common to all three runs. It is large only where
// neither forcing alone reproduces the compound water level. See [Compoundness].
package domain
