// Package fbtile converts framebuffers between GPU tiled layouts and linear
// row-major layouts on the CPU.
//
// A tiled layout is described purely as data by a TileWalk: the sub-tile and
// tile geometry plus the direction changes the linear cursor makes as sub-tile
// rows are consumed. One generic walker handles every layout, in two variants:
// a reference walker that follows the walk literally and tolerates bad
// geometry, and an optimized walker that batches same-row tiles and refuses
// geometry it cannot handle.
//
// The tiled side is always assumed to be tightly packed (stride equals width
// times bytes per pixel). The linear side may carry per-row padding.
package fbtile

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrUnsupported     = errors.New("fbtile: unsupported layout or format")
	ErrAlreadyLinear   = fmt.Errorf("%w: layout is linear, not (de)tiling", ErrUnsupported)
	ErrInvalidGeometry = errors.New("fbtile: invalid geometry")
	ErrInvalidWalk     = errors.New("fbtile: invalid tile walk")
	ErrFrameMismatch   = errors.New("fbtile: frame dimensions differ")
)

// Status is the outcome class of a tile/detile call.
type Status int

const (
	StatusOK Status = iota
	StatusUnsupported
	StatusInvalidGeometry
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusInvalidGeometry:
		return "INVALID_GEOMETRY"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StatusOf classifies an error returned by Convert. Errors that do not come
// from this package are reported as StatusInvalidGeometry.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrUnsupported):
		return StatusUnsupported
	default:
		return StatusInvalidGeometry
	}
}
