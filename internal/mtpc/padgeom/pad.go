package padgeom

import (
	"fmt"
	"math"
)

// ringOffset is the azimuthal stagger applied to odd rings.
func (l Layout) ringOffset(ring int) float64 {
	if ring%2 == 0 {
		return 0
	}
	return l.DeltaTheta() / 2
}

// ringCenterRadius assumes ring is already validated.
func (l Layout) ringCenterRadius(ring int) float64 {
	return l.MinRadius + l.RingWidth()*(float64(ring)+0.5)
}

// RingCenterRadius returns the radius at the radial midpoint of a ring.
func (l Layout) RingCenterRadius(ring int) (float64, error) {
	if err := l.CheckRing(ring); err != nil {
		return 0, err
	}
	return l.ringCenterRadius(ring), nil
}

// PadCenter returns the Cartesian centre of a pad. Angles follow the
// counter-clockwise convention of the detector frame; the result is
// bit-identical for identical inputs.
func (l Layout) PadCenter(ring, pad int) (x, y float64, err error) {
	theta, err := l.PadCenterAngle(ring, pad)
	if err != nil {
		return 0, 0, err
	}
	r := l.ringCenterRadius(ring)

	x = r * math.Cos(theta)
	y = r * math.Sin(theta)
	return x, y, nil
}

// PadCenterAngle returns the counter-clockwise azimuth of a pad centre in [0, 2π).
func (l Layout) PadCenterAngle(ring, pad int) (float64, error) {
	if err := l.CheckRing(ring); err != nil {
		return 0, err
	}
	if err := l.CheckPad(pad); err != nil {
		return 0, err
	}
	return l.padCenterAngle(ring, pad), nil
}

func (l Layout) padCenterAngle(ring, pad int) float64 {
	dTheta := l.DeltaTheta()
	clockwise := float64(pad)*dTheta + l.ringOffset(ring) + dTheta/2

	theta := 2*math.Pi - clockwise
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta
}

// PadApproxWidth is the tangential pad width at the ring's centre radius.
// It is the arc length, not the chord, so it slightly overestimates the
// physical pad width.
func (l Layout) PadApproxWidth(ring int) float64 {
	return l.ringCenterRadius(ring) * l.DeltaTheta()
}

// PadHeight is the radial pad height, identical for every ring.
func (l Layout) PadHeight() float64 {
	return l.RingWidth()
}

// FindPad returns the ring and pad containing the transverse point (x, y).
func (l Layout) FindPad(x, y float64) (ring, pad int, err error) {
	r := math.Hypot(x, y)
	if r < l.MinRadius || r >= l.MaxRadius || math.IsNaN(r) {
		return 0, 0, fmt.Errorf("%w: radius %.4f outside [%.4f, %.4f)", ErrInvalidIndex, r, l.MinRadius, l.MaxRadius)
	}
	ring = int((r - l.MinRadius) / l.RingWidth())
	if ring >= l.NumRings {
		ring = l.NumRings - 1
	}

	phi := math.Atan2(y, x)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	clockwise := 2*math.Pi - phi

	n := l.NumPadsPerRing
	pad = int(math.Floor((clockwise - l.ringOffset(ring)) / l.DeltaTheta()))
	pad = ((pad % n) + n) % n
	return ring, pad, nil
}
