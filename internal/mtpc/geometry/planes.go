package geometry

import (
	"errors"
	"fmt"
)

// ErrUnknownPlane is returned for plane indices missing from the table.
var ErrUnknownPlane = errors.New("unknown readout plane")

// PlanePositionTable maps a readout plane index to its z position (cm).
// It is read-only after construction.
type PlanePositionTable struct {
	z []float64
}

// NewPlanePositionTable copies positions into a new table.
func NewPlanePositionTable(positions []float64) PlanePositionTable {
	z := make([]float64, len(positions))
	copy(z, positions)
	return PlanePositionTable{z: z}
}

// DefaultPlanePositions lays out 2*chambers back-to-back planes over a
// detector of the given length centred on z=0. Plane 2k sits on the
// upstream face of chamber k and plane 2k+1 on its downstream face.
func DefaultPlanePositions(length float64, chambers int) PlanePositionTable {
	if chambers <= 0 {
		return PlanePositionTable{}
	}
	chamber := length / float64(chambers)
	z0 := -length / 2
	z := make([]float64, 0, 2*chambers)
	for k := 0; k < chambers; k++ {
		z = append(z, z0+float64(k)*chamber, z0+float64(k+1)*chamber)
	}
	return PlanePositionTable{z: z}
}

// Len returns the number of planes.
func (t PlanePositionTable) Len() int { return len(t.z) }

// Z returns the z position of a plane.
func (t PlanePositionTable) Z(plane int) (float64, error) {
	if plane < 0 || plane >= len(t.z) {
		return 0, fmt.Errorf("%w: plane %d (table has %d planes)", ErrUnknownPlane, plane, len(t.z))
	}
	return t.z[plane], nil
}

// Positions returns a copy of the table.
func (t PlanePositionTable) Positions() []float64 {
	out := make([]float64, len(t.z))
	copy(out, t.z)
	return out
}

// DriftZ returns the z of a hit drifting zToGem away from its plane. Even
// planes drift towards +z, odd planes towards -z.
func DriftZ(planeZ float64, plane int, zToGem float64) float64 {
	if plane%2 != 0 {
		return planeZ - zToGem
	}
	return planeZ + zToGem
}
