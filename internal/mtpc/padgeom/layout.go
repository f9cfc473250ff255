package padgeom

import (
	"errors"
	"fmt"
	"math"
)

// Default mTPC readout plane layout. Radii are in centimetres.
const (
	DefaultNumRings       = 21
	DefaultNumPadsPerRing = 122
	DefaultMinRadius      = 5.0
	DefaultMaxRadius      = 15.0
)

// ErrInvalidIndex is returned when a ring or pad index lies outside the layout.
var ErrInvalidIndex = errors.New("pad index out of range")

// ErrInvalidLayout is returned by NewLayout for inconsistent layout parameters.
var ErrInvalidLayout = errors.New("invalid pad layout")

// Layout describes the concentric pad rings of one readout plane.
// A Layout is a value; copies are independent and safe for concurrent use.
type Layout struct {
	NumRings       int
	NumPadsPerRing int
	MinRadius      float64 // inner edge of ring 0 (cm)
	MaxRadius      float64 // outer edge of the last ring (cm)
}

// DefaultLayout returns the 21 ring x 122 pad layout between 5 and 15 cm.
func DefaultLayout() Layout {
	return Layout{
		NumRings:       DefaultNumRings,
		NumPadsPerRing: DefaultNumPadsPerRing,
		MinRadius:      DefaultMinRadius,
		MaxRadius:      DefaultMaxRadius,
	}
}

// NewLayout validates and returns a Layout.
func NewLayout(numRings, numPadsPerRing int, minRadius, maxRadius float64) (Layout, error) {
	l := Layout{
		NumRings:       numRings,
		NumPadsPerRing: numPadsPerRing,
		MinRadius:      minRadius,
		MaxRadius:      maxRadius,
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate checks that the layout describes a non-empty annulus.
func (l Layout) Validate() error {
	if l.NumRings <= 0 {
		return fmt.Errorf("%w: num_rings must be positive, got %d", ErrInvalidLayout, l.NumRings)
	}
	if l.NumPadsPerRing <= 0 {
		return fmt.Errorf("%w: num_pads_per_ring must be positive, got %d", ErrInvalidLayout, l.NumPadsPerRing)
	}
	if l.MinRadius < 0 || math.IsNaN(l.MinRadius) {
		return fmt.Errorf("%w: min_radius must be non-negative, got %f", ErrInvalidLayout, l.MinRadius)
	}
	if !(l.MaxRadius > l.MinRadius) {
		return fmt.Errorf("%w: max_radius (%f) must exceed min_radius (%f)", ErrInvalidLayout, l.MaxRadius, l.MinRadius)
	}
	return nil
}

// RingWidth is the radial width of every ring.
func (l Layout) RingWidth() float64 {
	return (l.MaxRadius - l.MinRadius) / float64(l.NumRings)
}

// DeltaTheta is the angular width of one pad in radians.
func (l Layout) DeltaTheta() float64 {
	return 2 * math.Pi / float64(l.NumPadsPerRing)
}

// NumPads is the total number of pads on one plane.
func (l Layout) NumPads() int {
	return l.NumRings * l.NumPadsPerRing
}

// CheckRing returns an error wrapping ErrInvalidIndex if ring is out of range.
func (l Layout) CheckRing(ring int) error {
	if ring < 0 || ring >= l.NumRings {
		return fmt.Errorf("%w: ring index must be between 0 and %d, got %d", ErrInvalidIndex, l.NumRings-1, ring)
	}
	return nil
}

// CheckPad returns an error wrapping ErrInvalidIndex if pad is out of range.
func (l Layout) CheckPad(pad int) error {
	if pad < 0 || pad >= l.NumPadsPerRing {
		return fmt.Errorf("%w: pad index must be between 0 and %d, got %d", ErrInvalidIndex, l.NumPadsPerRing-1, pad)
	}
	return nil
}
