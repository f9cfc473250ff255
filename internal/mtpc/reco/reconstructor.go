package reco

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/tdis-data/mtpc.reco/internal/config"
	"github.com/tdis-data/mtpc.reco/internal/monitoring"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/geometry"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/hits"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/padgeom"
	"github.com/tdis-data/mtpc.reco/internal/timeutil"
)

// ErrProjection is returned when a hit cannot be expressed on its surface.
var ErrProjection = errors.New("measurement projection failed")

// DefaultTolerance is the on-surface tolerance, 0.1 um in cm.
const DefaultTolerance = 1e-5

// DefaultTimeError is the time resolution assigned to hits, in ns.
const DefaultTimeError = 1.0

// weightOne is the weight a hit carries in its single-hit measurement.
const weightOne = 1.0

var projectionDirection = r3.Vector{Z: 1}

// Config holds the inputs of a Reconstructor. Zero ZVariance and Tolerance
// take their defaults; TimeError is used as given, zero included. A nil
// Selector reports pad positions and a nil Clock uses the system clock.
type Config struct {
	Layout     padgeom.Layout
	Planes     geometry.PlanePositionTable
	Surfaces   geometry.SurfaceResolver
	SurfaceKey geometry.SurfaceKey
	Selector   PositionSelector
	ZVariance  float64 // cm^2
	TimeError  float64 // ns
	Tolerance  float64 // cm
	Clock      timeutil.Clock
}

// Reconstructor builds space points and measurements from raw hits.
type Reconstructor struct {
	cfg Config
}

// New validates cfg and returns a Reconstructor.
func New(cfg Config) (*Reconstructor, error) {
	if err := cfg.Layout.Validate(); err != nil {
		return nil, err
	}
	if cfg.Planes.Len() == 0 {
		return nil, fmt.Errorf("reco: plane position table is empty")
	}
	if cfg.Surfaces == nil {
		return nil, fmt.Errorf("reco: no surface resolver")
	}
	if cfg.Selector == nil {
		cfg.Selector = PadDerivedPosition{}
	}
	if cfg.ZVariance == 0 {
		cfg.ZVariance = 1.0
	}
	if cfg.ZVariance < 0 {
		return nil, fmt.Errorf("reco: z variance must be positive, got %f", cfg.ZVariance)
	}
	if cfg.TimeError < 0 || math.IsNaN(cfg.TimeError) {
		return nil, fmt.Errorf("reco: time error must be non-negative, got %f", cfg.TimeError)
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Reconstructor{cfg: cfg}, nil
}

// NewFromConfig builds the detector described by c and a Reconstructor
// bound to it.
func NewFromConfig(c *config.RecoConfig) (*Reconstructor, *geometry.Detector, error) {
	layout, err := c.Layout()
	if err != nil {
		return nil, nil, err
	}
	det, err := c.BuildDetector()
	if err != nil {
		return nil, nil, err
	}
	r, err := New(Config{
		Layout:     layout,
		Planes:     c.PlanePositions(),
		Surfaces:   det,
		SurfaceKey: det.Key(),
		Selector:   SelectorFor(c.GetUseTruePosition()),
		ZVariance:  c.GetZVariance(),
		TimeError:  c.GetTimeError(),
		Tolerance:  c.GetOnSurfaceTolerance(),
	})
	if err != nil {
		return nil, nil, err
	}
	return r, det, nil
}

// Layout returns the pad layout the reconstructor was built with.
func (r *Reconstructor) Layout() padgeom.Layout { return r.cfg.Layout }

// Planes returns the plane position table.
func (r *Reconstructor) Planes() geometry.PlanePositionTable { return r.cfg.Planes }

// XYVariance returns the transverse variance assigned to hits on a ring:
// the square of the larger pad dimension over sqrt(12).
func (r *Reconstructor) XYVariance(ring int) float64 {
	maxDim := math.Max(r.cfg.Layout.PadApproxWidth(ring), r.cfg.Layout.PadHeight())
	sigma := maxDim / math.Sqrt(12)
	return sigma * sigma
}

// Reconstruct converts one raw hit into a space point. Index errors wrap
// padgeom.ErrInvalidIndex, geometry.ErrUnknownPlane or hits.ErrCellIDOverflow.
func (r *Reconstructor) Reconstruct(raw *hits.RawHit) (hits.ReconstructedHit, error) {
	x, y, err := r.cfg.Layout.PadCenter(raw.Ring, raw.Pad)
	if err != nil {
		return hits.ReconstructedHit{}, err
	}
	planeZ, err := r.cfg.Planes.Z(raw.Plane)
	if err != nil {
		return hits.ReconstructedHit{}, err
	}
	cell, err := hits.CellID(raw.Plane, raw.Ring, raw.Pad)
	if err != nil {
		return hits.ReconstructedHit{}, err
	}

	padDerived := r3.Vector{X: x, Y: y, Z: geometry.DriftZ(planeZ, raw.Plane, raw.ZToGem)}
	varXY := r.XYVariance(raw.Ring)

	return hits.ReconstructedHit{
		CellID:   cell,
		Position: r.cfg.Selector.Position(raw, padDerived),
		Covariance: hits.CovDiag3{
			XX: varXY,
			YY: varXY,
			ZZ: r.cfg.ZVariance,
		},
		Time:      raw.Time,
		TimeError: r.cfg.TimeError,
		Charge:    raw.ADC,
		Raw:       raw,
	}, nil
}

// Project expresses hit in the local frame of the surface for plane. Disc
// surfaces are hit at the plane z; cylinders at the hit position.
func (r *Reconstructor) Project(hit *hits.ReconstructedHit, plane int) (hits.Measurement2D, error) {
	return r.ProjectAlong(hit, plane, projectionDirection)
}

// ProjectAlong is Project with the momentum direction at the hit.
func (r *Reconstructor) ProjectAlong(hit *hits.ReconstructedHit, plane int, direction r3.Vector) (hits.Measurement2D, error) {
	_, ring, _ := hits.SplitCellID(hit.CellID)

	key := plane
	point := hit.Position
	if r.cfg.SurfaceKey == geometry.KeyRing {
		key = ring
	} else {
		planeZ, err := r.cfg.Planes.Z(plane)
		if err != nil {
			return hits.Measurement2D{}, fmt.Errorf("%w: %w", ErrProjection, err)
		}
		point.Z = planeZ
	}

	surface, err := r.cfg.Surfaces.Surface(key)
	if err != nil {
		return hits.Measurement2D{}, fmt.Errorf("%w: %w", ErrProjection, err)
	}
	loc, err := surface.GlobalToLocal(point, direction, r.cfg.Tolerance)
	if err != nil {
		return hits.Measurement2D{}, fmt.Errorf("%w: %w", ErrProjection, err)
	}
	if !surface.InsideBounds(loc, r.cfg.Tolerance) {
		return hits.Measurement2D{}, fmt.Errorf("%w: %w: local (%.4f, %.4f) outside bounds of %s",
			ErrProjection, geometry.ErrNotOnSurface, loc.X, loc.Y, surface.ID())
	}

	m := hits.Measurement2D{
		Surface: uint64(surface.ID()),
		Loc:     loc,
		Time:    hit.Time,
		Covariance: hits.Cov3{
			XX: hit.Covariance.XX,
			YY: hit.Covariance.YY,
			TT: hit.TimeError * hit.TimeError,
		},
	}
	m.AddHit(hit, weightOne)
	return m, nil
}

// EventResult is the output of one event.
type EventResult struct {
	Event        int
	Track        hits.Track
	Hits         []hits.ReconstructedHit
	Measurements []hits.Measurement2D
	Skipped      int // hits whose projection failed
}

// ProcessEvent reconstructs every hit of ev in input order and projects
// each onto its surface. Hits that fail projection are logged and keep no
// measurement; an index error aborts the event.
func (r *Reconstructor) ProcessEvent(ev *hits.Event) (EventResult, error) {
	start := r.cfg.Clock.Now()
	res := EventResult{
		Event:        ev.Number,
		Track:        ev.Track,
		Hits:         make([]hits.ReconstructedHit, 0, len(ev.Hits)),
		Measurements: make([]hits.Measurement2D, 0, len(ev.Hits)),
	}

	for i := range ev.Hits {
		raw := &ev.Hits[i]
		h, err := r.Reconstruct(raw)
		if err != nil {
			return EventResult{}, fmt.Errorf("event %d hit %d: %w", ev.Number, i, err)
		}
		res.Hits = append(res.Hits, h)
	}

	// Hits is fully built so the back-references stay valid.
	direction := ev.Track.Direction()
	for i := range res.Hits {
		h := &res.Hits[i]
		m, err := r.ProjectAlong(h, h.Raw.Plane, direction)
		if err != nil {
			res.Skipped++
			monitoring.ProjectionFailures.WithLabelValues(failureReason(err)).Inc()
			monitoring.Logf("reco: event %d: skipping hit plane=%d ring=%d pad=%d at (%.4f, %.4f, %.4f): %v",
				ev.Number, h.Raw.Plane, h.Raw.Ring, h.Raw.Pad, h.Position.X, h.Position.Y, h.Position.Z, err)
			continue
		}
		res.Measurements = append(res.Measurements, m)
	}

	monitoring.HitsReconstructed.Add(float64(len(res.Hits)))
	monitoring.MeasurementsProduced.Add(float64(len(res.Measurements)))
	monitoring.EventDuration.Observe(r.cfg.Clock.Since(start).Seconds())
	return res, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, geometry.ErrNotOnSurface):
		return "not_on_surface"
	case errors.Is(err, geometry.ErrNumerical):
		return "numerical"
	default:
		return "unknown_surface"
	}
}
