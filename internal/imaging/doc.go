// Package imaging requests reconstructed rasters from the decoding worker:
// single 2D slices (optionally thumbnail precision) and whole 3D volumes
// built from a pre-ordered file sequence.
//
// Decoded images carry spatial parameters (size, spacing, origin, direction)
// which are validated on arrival so a worker bug surfaces as a build error
// instead of silently skewed geometry downstream.
package imaging
