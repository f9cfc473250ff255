package geometry

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/tdis-data/mtpc.reco/internal/mtpc/padgeom"
)

// ErrUnknownSurface is returned when a resolver has no surface for a key.
var ErrUnknownSurface = errors.New("no detector surface")

// SurfaceKey selects which hit index a detector's surfaces are keyed by.
type SurfaceKey int

const (
	// KeyPlane keys surfaces by readout plane (disc geometry).
	KeyPlane SurfaceKey = iota
	// KeyRing keys surfaces by pad ring (cylindrical geometry).
	KeyRing
)

func (k SurfaceKey) String() string {
	switch k {
	case KeyPlane:
		return "plane"
	case KeyRing:
		return "ring"
	default:
		return fmt.Sprintf("SurfaceKey(%d)", int(k))
	}
}

// SurfaceResolver looks up the detector surface for a plane or ring index.
type SurfaceResolver interface {
	Surface(key int) (Surface, error)
}

// SurfaceResolverFunc adapts a function to SurfaceResolver.
type SurfaceResolverFunc func(key int) (Surface, error)

func (f SurfaceResolverFunc) Surface(key int) (Surface, error) { return f(key) }

// Detector is an immutable set of surfaces keyed by plane or ring index.
type Detector struct {
	name     string
	key      SurfaceKey
	surfaces map[int]Surface
}

func newDetector(name string, key SurfaceKey, n int) *Detector {
	return &Detector{name: name, key: key, surfaces: make(map[int]Surface, n)}
}

func (d *Detector) Name() string    { return d.name }
func (d *Detector) Key() SurfaceKey { return d.key }
func (d *Detector) Len() int        { return len(d.surfaces) }

// Surface implements SurfaceResolver.
func (d *Detector) Surface(key int) (Surface, error) {
	s, ok := d.surfaces[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s %d", ErrUnknownSurface, d.name, d.key, key)
	}
	return s, nil
}

// Keys returns the surface keys in ascending order.
// BuildDiscDetector places one annular disc per readout plane, bounded by
// the pad layout radii.
func BuildDiscDetector(planes PlanePositionTable, layout padgeom.Layout) *Detector {
	d := newDetector("Telescope", KeyPlane, planes.Len())
	for i, z := range planes.z {
		id := NewGeometryID(1, uint64(2*(i+1)), 1)
		placement := Translation(r3.Vector{Z: z})
		d.surfaces[i] = NewDiscSurface(id, placement, layout.MinRadius, layout.MaxRadius)
	}
	return d
}

// BuildCylindricalDetector places one cylinder per pad ring at the ring
// centre radius, spanning the full detector length.
func BuildCylindricalDetector(layout padgeom.Layout, length float64) *Detector {
	d := newDetector("TPCVolume", KeyRing, layout.NumRings)
	for ring := 0; ring < layout.NumRings; ring++ {
		r, _ := layout.RingCenterRadius(ring)
		id := NewGeometryID(1, uint64(2*(ring+1)), 1)
		d.surfaces[ring] = NewCylinderSurface(id, Identity(), r, length/2)
	}
	return d
}
