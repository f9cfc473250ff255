package validation

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdis-data/mtpc.reco/internal/mtpc/hits"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/reco"
)

func hitWithTruth(pos, truth r3.Vector, varXY, varZ float64) hits.ReconstructedHit {
	return hits.ReconstructedHit{
		Position:   pos,
		Covariance: hits.CovDiag3{XX: varXY, YY: varXY, ZZ: varZ},
		Raw:        &hits.RawHit{TruePosition: truth},
	}
}

func TestResidualsSummary(t *testing.T) {
	r := NewResiduals(DefaultHistConfig())

	truth := r3.Vector{X: 10, Y: 0, Z: 5}
	offsets := []float64{-0.2, 0.0, 0.2, 0.4}
	for _, dx := range offsets {
		h := hitWithTruth(truth.Add(r3.Vector{X: dx, Y: 0.1, Z: -0.5}), truth, 0.04, 0.25)
		assert.True(t, r.Add(&h))
	}
	noTruth := hits.ReconstructedHit{Raw: &hits.RawHit{TruePosition: hits.NoTruth}}
	assert.False(t, r.Add(&noTruth))
	assert.False(t, r.Add(&hits.ReconstructedHit{}))

	s := r.Summary()
	assert.Equal(t, 4, s.WithTruth)
	assert.Equal(t, 2, s.NoTruth)

	x := s.Axes[AxisX]
	assert.InDelta(t, 0.1, x.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(0.2/3), x.StdDev, 1e-12)
	assert.InDelta(t, 0.0, x.Median, 1e-12)
	assert.InDelta(t, x.Mean/0.2, x.PullMean, 1e-12)

	y := s.Axes[AxisY]
	assert.InDelta(t, 0.1, y.Mean, 1e-12)
	assert.InDelta(t, 0, y.StdDev, 1e-12)
	assert.InDelta(t, 0.1, y.RMS, 1e-12)

	z := s.Axes[AxisZ]
	assert.InDelta(t, -0.5, z.Mean, 1e-12)
	assert.InDelta(t, -1.0, z.PullMean, 1e-12)

	hx := r.Histogram(AxisX, false)
	assert.Equal(t, int64(4), hx.Entries())
	assert.InDelta(t, 0.1, hx.XMean(), 1e-12)
	assert.Equal(t, int64(4), r.Histogram(AxisZ, true).Entries())
}

func TestResidualsEmptySummary(t *testing.T) {
	s := NewResiduals(HistConfig{}).Summary()
	assert.Zero(t, s.WithTruth)
	assert.Empty(t, s.Axes)
}

func TestResidualsAsSink(t *testing.T) {
	r := NewResiduals(DefaultHistConfig())
	truth := r3.Vector{X: 1, Y: 1, Z: 1}
	res := &reco.EventResult{Hits: []hits.ReconstructedHit{
		hitWithTruth(truth, truth, 0.01, 1),
		hitWithTruth(truth.Add(r3.Vector{Z: 0.3}), truth, 0.01, 1),
	}}
	require.NoError(t, r.WriteResult(context.Background(), res))
	s := r.Summary()
	assert.Equal(t, 2, s.WithTruth)
	assert.InDelta(t, 0.15, s.Axes[AxisZ].Mean, 1e-12)
}

func TestWritePNG(t *testing.T) {
	r := NewResiduals(DefaultHistConfig())
	truth := r3.Vector{X: 3, Y: 4, Z: 0}
	for i := 0; i < 20; i++ {
		d := float64(i-10) / 20
		h := hitWithTruth(truth.Add(r3.Vector{X: d}), truth, 0.01, 1)
		r.Add(&h)
	}

	var buf bytes.Buffer
	require.NoError(t, r.WritePNG(&buf, AxisX, false))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	buf.Reset()
	require.NoError(t, r.WritePNG(&buf, AxisX, true))
	assert.NotZero(t, buf.Len())

	assert.Error(t, r.WritePNG(&buf, Axis("w"), false))
}
