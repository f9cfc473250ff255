package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

var (
	// ErrNotOnSurface is returned when a global point is farther from the
	// surface than the requested tolerance.
	ErrNotOnSurface = errors.New("point is not on surface")
	// ErrNumerical is returned for non-finite input positions.
	ErrNumerical = errors.New("numerical failure in global to local transform")
)

// Surface is a detector surface that can express global points in its
// local 2D frame.
type Surface interface {
	ID() GeometryID
	Center() r3.Vector
	// GlobalToLocal projects a global point lying on the surface into local
	// coordinates. direction is the momentum direction at the point; planar
	// surfaces ignore it.
	GlobalToLocal(global, direction r3.Vector, tolerance float64) (r2.Point, error)
	LocalToGlobal(local r2.Point) r3.Vector
	// InsideBounds reports whether a local point lies within the surface bounds.
	InsideBounds(local r2.Point, tolerance float64) bool
}

func finite(v r3.Vector) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// DiscSurface is an annular plane with polar local coordinates (r, φ).
type DiscSurface struct {
	id        GeometryID
	placement Transform
	rMin      float64
	rMax      float64
}

// NewDiscSurface returns a disc with radial bounds [rMin, rMax].
func NewDiscSurface(id GeometryID, placement Transform, rMin, rMax float64) *DiscSurface {
	return &DiscSurface{id: id, placement: placement, rMin: rMin, rMax: rMax}
}

func (d *DiscSurface) ID() GeometryID    { return d.id }
func (d *DiscSurface) Center() r3.Vector { return d.placement.Origin() }

func (d *DiscSurface) GlobalToLocal(global, direction r3.Vector, tolerance float64) (r2.Point, error) {
	if !finite(global) {
		return r2.Point{}, fmt.Errorf("%w: %v", ErrNumerical, global)
	}
	local := d.placement.ToLocal(global)
	if math.Abs(local.Z) > tolerance {
		return r2.Point{}, fmt.Errorf("%w: %s local z offset %.6g exceeds tolerance %.3g", ErrNotOnSurface, d.id, local.Z, tolerance)
	}
	return r2.Point{X: math.Hypot(local.X, local.Y), Y: math.Atan2(local.Y, local.X)}, nil
}

func (d *DiscSurface) LocalToGlobal(local r2.Point) r3.Vector {
	return d.placement.ToGlobal(r3.Vector{
		X: local.X * math.Cos(local.Y),
		Y: local.X * math.Sin(local.Y),
	})
}

func (d *DiscSurface) InsideBounds(local r2.Point, tolerance float64) bool {
	return local.X >= d.rMin-tolerance && local.X <= d.rMax+tolerance
}

// CylinderSurface is a cylinder around the local z axis with local
// coordinates (R·φ, z).
type CylinderSurface struct {
	id         GeometryID
	placement  Transform
	radius     float64
	halfLength float64
}

// NewCylinderSurface returns a cylinder of the given radius spanning ±halfLength in z.
func NewCylinderSurface(id GeometryID, placement Transform, radius, halfLength float64) *CylinderSurface {
	return &CylinderSurface{id: id, placement: placement, radius: radius, halfLength: halfLength}
}

func (c *CylinderSurface) ID() GeometryID    { return c.id }
func (c *CylinderSurface) Center() r3.Vector { return c.placement.Origin() }

func (c *CylinderSurface) GlobalToLocal(global, direction r3.Vector, tolerance float64) (r2.Point, error) {
	if !finite(global) {
		return r2.Point{}, fmt.Errorf("%w: %v", ErrNumerical, global)
	}
	local := c.placement.ToLocal(global)
	r := math.Hypot(local.X, local.Y)
	if math.Abs(r-c.radius) > tolerance {
		return r2.Point{}, fmt.Errorf("%w: %s radius %.6g differs from %.6g", ErrNotOnSurface, c.id, r, c.radius)
	}
	return r2.Point{X: c.radius * math.Atan2(local.Y, local.X), Y: local.Z}, nil
}

func (c *CylinderSurface) LocalToGlobal(local r2.Point) r3.Vector {
	phi := local.X / c.radius
	return c.placement.ToGlobal(r3.Vector{
		X: c.radius * math.Cos(phi),
		Y: c.radius * math.Sin(phi),
		Z: local.Y,
	})
}

func (c *CylinderSurface) InsideBounds(local r2.Point, tolerance float64) bool {
	return math.Abs(local.Y) <= c.halfLength+tolerance &&
		math.Abs(local.X) <= math.Pi*c.radius+tolerance
}
