// Package validation compares reconstructed hit positions with the
// simulated truth carried by the input.
//
// Residuals are booked in go-hep histograms for plotting and summarised
// with gonum/stat. Hits without truth are counted but not booked.
package validation

import (
	"context"
	"math"
	"sort"
	"sync"

	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/stat"

	"github.com/tdis-data/mtpc.reco/internal/mtpc/hits"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/reco"
)

// Axis names a coordinate of the residual.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// Axes lists the booked axes in order.
var Axes = []Axis{AxisX, AxisY, AxisZ}

// HistConfig sets the binning of residual and pull histograms.
type HistConfig struct {
	Bins         int
	ResidualSpan float64 // residual histograms cover [-span, span] cm
	PullSpan     float64
}

// DefaultHistConfig returns 100 bins over ±2 cm residuals and ±5 pulls.
func DefaultHistConfig() HistConfig {
	return HistConfig{Bins: 100, ResidualSpan: 2, PullSpan: 5}
}

// Residuals accumulates reconstructed minus true positions. It is safe for
// concurrent use and can be attached to a pipeline as a result sink.
type Residuals struct {
	mu        sync.Mutex
	cfg       HistConfig
	residual  map[Axis]*hbook.H1D
	pull      map[Axis]*hbook.H1D
	values    map[Axis][]float64
	pulls     map[Axis][]float64
	withTruth int
	noTruth   int
}

// NewResiduals returns an empty accumulator.
func NewResiduals(cfg HistConfig) *Residuals {
	if cfg.Bins <= 0 {
		cfg.Bins = DefaultHistConfig().Bins
	}
	if cfg.ResidualSpan <= 0 {
		cfg.ResidualSpan = DefaultHistConfig().ResidualSpan
	}
	if cfg.PullSpan <= 0 {
		cfg.PullSpan = DefaultHistConfig().PullSpan
	}
	r := &Residuals{
		cfg:      cfg,
		residual: make(map[Axis]*hbook.H1D, len(Axes)),
		pull:     make(map[Axis]*hbook.H1D, len(Axes)),
		values:   make(map[Axis][]float64, len(Axes)),
		pulls:    make(map[Axis][]float64, len(Axes)),
	}
	for _, a := range Axes {
		h := hbook.NewH1D(cfg.Bins, -cfg.ResidualSpan, cfg.ResidualSpan)
		h.Annotation()["name"] = "residual_" + string(a)
		r.residual[a] = h

		p := hbook.NewH1D(cfg.Bins, -cfg.PullSpan, cfg.PullSpan)
		p.Annotation()["name"] = "pull_" + string(a)
		r.pull[a] = p
	}
	return r
}

// Add books one hit. It reports false when the hit has no truth.
func (r *Residuals) Add(h *hits.ReconstructedHit) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h.Raw == nil || !h.Raw.HasTruth() {
		r.noTruth++
		return false
	}
	r.withTruth++

	d := h.Position.Sub(h.Raw.TruePosition)
	deltas := map[Axis]float64{AxisX: d.X, AxisY: d.Y, AxisZ: d.Z}
	variances := map[Axis]float64{AxisX: h.Covariance.XX, AxisY: h.Covariance.YY, AxisZ: h.Covariance.ZZ}

	for _, a := range Axes {
		r.residual[a].Fill(deltas[a], 1)
		r.values[a] = append(r.values[a], deltas[a])
		if v := variances[a]; v > 0 {
			p := deltas[a] / math.Sqrt(v)
			r.pull[a].Fill(p, 1)
			r.pulls[a] = append(r.pulls[a], p)
		}
	}
	return true
}

// WriteResult books every hit of res.
func (r *Residuals) WriteResult(_ context.Context, res *reco.EventResult) error {
	for i := range res.Hits {
		r.Add(&res.Hits[i])
	}
	return nil
}

// Histogram returns the residual (or pull) histogram of an axis.
func (r *Residuals) Histogram(a Axis, pull bool) *hbook.H1D {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pull {
		return r.pull[a]
	}
	return r.residual[a]
}

// AxisSummary describes the residual distribution of one axis (cm).
type AxisSummary struct {
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Median     float64 `json:"median"`
	RMS        float64 `json:"rms"`
	PullMean   float64 `json:"pull_mean"`
	PullStdDev float64 `json:"pull_std_dev"`
}

// Summary is the residual report over all booked hits.
type Summary struct {
	WithTruth int                  `json:"with_truth"`
	NoTruth   int                  `json:"no_truth"`
	Axes      map[Axis]AxisSummary `json:"axes"`
}

// Summary computes the current residual statistics.
func (r *Residuals) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		WithTruth: r.withTruth,
		NoTruth:   r.noTruth,
		Axes:      make(map[Axis]AxisSummary, len(Axes)),
	}
	for _, a := range Axes {
		vals := r.values[a]
		if len(vals) == 0 {
			continue
		}
		var as AxisSummary
		as.Mean, as.StdDev = stat.MeanStdDev(vals, nil)
		if len(vals) < 2 {
			as.StdDev = 0
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		as.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		as.RMS = rms(vals)
		if p := r.pulls[a]; len(p) > 1 {
			as.PullMean, as.PullStdDev = stat.MeanStdDev(p, nil)
		} else if len(p) == 1 {
			as.PullMean = p[0]
		}
		s.Axes[a] = as
	}
	return s
}

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}
