package hits

import (
	"errors"
	"fmt"
	"math"
)

const (
	cellPlaneStride = 1_000_000
	cellRingStride  = 1_000
)

// ErrCellIDOverflow is returned when an index does not fit its cell id field.
var ErrCellIDOverflow = errors.New("cell id field overflow")

// CellID packs plane, ring and pad as 1e6*plane + 1e3*ring + pad.
func CellID(plane, ring, pad int) (uint32, error) {
	if ring < 0 || ring >= cellRingStride {
		return 0, fmt.Errorf("%w: ring %d not in [0, %d)", ErrCellIDOverflow, ring, cellRingStride)
	}
	if pad < 0 || pad >= cellRingStride {
		return 0, fmt.Errorf("%w: pad %d not in [0, %d)", ErrCellIDOverflow, pad, cellRingStride)
	}
	if plane < 0 {
		return 0, fmt.Errorf("%w: negative plane %d", ErrCellIDOverflow, plane)
	}
	v := uint64(plane)*cellPlaneStride + uint64(ring)*cellRingStride + uint64(pad)
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("%w: plane %d ring %d pad %d exceeds uint32", ErrCellIDOverflow, plane, ring, pad)
	}
	return uint32(v), nil
}

// SplitCellID is the inverse of CellID.
func SplitCellID(id uint32) (plane, ring, pad int) {
	plane = int(id / cellPlaneStride)
	ring = int(id % cellPlaneStride / cellRingStride)
	pad = int(id % cellRingStride)
	return plane, ring, pad
}
