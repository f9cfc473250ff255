// Package hits holds the event data records exchanged between the mTPC
// reconstruction stages: digitized input hits, reconstructed space points
// and surface-local measurements.
package hits

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// NoTruth is the true position stored when the input carries no truth.
var NoTruth = r3.Vector{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}

// RawHit is one digitized pad signal. Lengths are in cm, times in ns.
type RawHit struct {
	Plane        int       // readout plane along the drift axis, 0 upstream
	Ring         int       // 0 is the innermost ring
	Pad          int       // 0 is nearest azimuth zero, numbered clockwise
	ZToGem       float64   // drift distance from the hit to the readout plane
	TruePosition r3.Vector // NaN components when unavailable
	Time         float64   // arrival time at the pad
	ADC          float64   // amplitude, used as charge proxy
}

// HasTruth reports whether the true position is usable.
func (h RawHit) HasTruth() bool {
	return !math.IsNaN(h.TruePosition.X)
}

// CovDiag3 is a diagonal 3x3 covariance.
type CovDiag3 struct {
	XX, YY, ZZ float64
}

// Cov3 is the local measurement covariance: two location variances, the
// time variance and the location cross term.
type Cov3 struct {
	XX, YY, TT, XY float64
}

// ReconstructedHit is a 3D space point built from one RawHit.
type ReconstructedHit struct {
	CellID     uint32
	Position   r3.Vector
	Covariance CovDiag3
	Time       float64
	TimeError  float64
	Charge     float64
	Raw        *RawHit
}

// Measurement2D is a reconstructed hit expressed in the local frame of the
// detector surface it was projected onto.
type Measurement2D struct {
	Surface    uint64   // geometry identifier of the surface
	Loc        r2.Point // local (loc0, loc1)
	Time       float64
	Covariance Cov3
	Weights    []float64
	Hits       []*ReconstructedHit
}

// AddHit links a contributing hit with its weight. Weights mirror Hits.
func (m *Measurement2D) AddHit(h *ReconstructedHit, weight float64) {
	m.Hits = append(m.Hits, h)
	m.Weights = append(m.Weights, weight)
}

// Track is the generated (truth) track header of one event.
type Track struct {
	Momentum float64 // GeV/c
	Theta    float64 // degrees
	Phi      float64 // degrees
	VertexZ  float64 // cm
}

// Direction returns the unit direction vector of the truth track.
func (t Track) Direction() r3.Vector {
	theta := t.Theta * math.Pi / 180
	phi := t.Phi * math.Pi / 180
	return r3.Vector{
		X: math.Sin(theta) * math.Cos(phi),
		Y: math.Sin(theta) * math.Sin(phi),
		Z: math.Cos(theta),
	}
}

// Event is one processing unit: a truth track and its digitized hits.
type Event struct {
	Number int
	Track  Track
	Hits   []RawHit
}
