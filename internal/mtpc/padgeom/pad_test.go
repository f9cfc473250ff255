package padgeom

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestDefaultLayoutDerivedValues(t *testing.T) {
	l := DefaultLayout()
	require.NoError(t, l.Validate())

	assert.InDelta(t, 10.0/21.0, l.RingWidth(), eps)
	assert.InDelta(t, 2*math.Pi/122, l.DeltaTheta(), eps)
	assert.Equal(t, 2562, l.NumPads())
	assert.Equal(t, l.RingWidth(), l.PadHeight())
}

func TestNewLayoutRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name     string
		rings    int
		pads     int
		min, max float64
	}{
		{"zero rings", 0, 122, 5, 15},
		{"negative pads", 21, -1, 5, 15},
		{"negative radius", 21, 122, -1, 15},
		{"inverted radii", 21, 122, 15, 5},
		{"empty annulus", 21, 122, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayout(tt.rings, tt.pads, tt.min, tt.max)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidLayout))
		})
	}
}

func TestPadCenterRejectsOutOfRangeIndices(t *testing.T) {
	l := DefaultLayout()
	tests := []struct {
		name      string
		ring, pad int
	}{
		{"negative ring", -1, 0},
		{"ring past last", 21, 0},
		{"negative pad", 0, -1},
		{"pad past last", 0, 122},
		{"both out of range", 100, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, err := l.PadCenter(tt.ring, tt.pad)
			require.ErrorIs(t, err, ErrInvalidIndex)
			assert.Zero(t, x)
			assert.Zero(t, y)
		})
	}
}

func TestPadCenterRadiusIndependentOfPad(t *testing.T) {
	l := DefaultLayout()
	for ring := 0; ring < l.NumRings; ring++ {
		want := l.MinRadius + l.RingWidth()*(float64(ring)+0.5)
		got, err := l.RingCenterRadius(ring)
		require.NoError(t, err)
		require.InDelta(t, want, got, eps)

		for pad := 0; pad < l.NumPadsPerRing; pad++ {
			x, y, err := l.PadCenter(ring, pad)
			require.NoError(t, err)
			require.InDelta(t, want, math.Hypot(x, y), eps, "ring %d pad %d", ring, pad)
		}
	}
}

func TestOddRingsStaggeredByHalfPad(t *testing.T) {
	l := DefaultLayout()
	for ring := 0; ring+1 < l.NumRings; ring += 2 {
		x0, y0, err := l.PadCenter(ring, 0)
		require.NoError(t, err)
		x1, y1, err := l.PadCenter(ring+1, 0)
		require.NoError(t, err)

		diff := math.Atan2(y0, x0) - math.Atan2(y1, x1)
		diff = math.Mod(diff+2*math.Pi, 2*math.Pi)
		assert.InDelta(t, l.DeltaTheta()/2, diff, eps, "rings %d/%d", ring, ring+1)
	}
}

func TestPadZeroSitsJustBelowAzimuthZero(t *testing.T) {
	l := DefaultLayout()
	theta, err := l.PadCenterAngle(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Pi-l.DeltaTheta()/2, theta, eps)

	// Clockwise numbering: pad 1 lies further clockwise than pad 0.
	theta1, err := l.PadCenterAngle(0, 1)
	require.NoError(t, err)
	assert.InDelta(t, l.DeltaTheta(), theta-theta1, eps)
}

func TestFullRingCoverage(t *testing.T) {
	l := DefaultLayout()
	for _, ring := range []int{0, 1, 10, 20} {
		angles := make([]float64, 0, l.NumPadsPerRing)
		for pad := 0; pad < l.NumPadsPerRing; pad++ {
			theta, err := l.PadCenterAngle(ring, pad)
			require.NoError(t, err)
			require.GreaterOrEqual(t, theta, 0.0)
			require.Less(t, theta, 2*math.Pi+eps)
			angles = append(angles, theta)
		}
		sort.Float64s(angles)
		for i := 1; i < len(angles); i++ {
			require.InDelta(t, l.DeltaTheta(), angles[i]-angles[i-1], eps, "ring %d gap at %d", ring, i)
		}
		wrap := angles[0] + 2*math.Pi - angles[len(angles)-1]
		assert.InDelta(t, l.DeltaTheta(), wrap, eps, "ring %d wrap-around gap", ring)
	}
}

func TestPadCenterDeterministic(t *testing.T) {
	l := DefaultLayout()
	x1, y1, err := l.PadCenter(7, 97)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		x2, y2, err := l.PadCenter(7, 97)
		require.NoError(t, err)
		require.Equal(t, math.Float64bits(x1), math.Float64bits(x2))
		require.Equal(t, math.Float64bits(y1), math.Float64bits(y2))
	}
}

func TestPadApproxWidth(t *testing.T) {
	l := DefaultLayout()
	for ring := 0; ring < l.NumRings; ring++ {
		r, err := l.RingCenterRadius(ring)
		require.NoError(t, err)
		assert.InDelta(t, r*l.DeltaTheta(), l.PadApproxWidth(ring), eps)
	}
	assert.Greater(t, l.PadApproxWidth(20), l.PadApproxWidth(0))
}

func TestFindPadInvertsPadCenter(t *testing.T) {
	l := DefaultLayout()
	for ring := 0; ring < l.NumRings; ring++ {
		for pad := 0; pad < l.NumPadsPerRing; pad++ {
			x, y, err := l.PadCenter(ring, pad)
			require.NoError(t, err)
			gotRing, gotPad, err := l.FindPad(x, y)
			require.NoError(t, err)
			require.Equal(t, ring, gotRing)
			require.Equal(t, pad, gotPad, "ring %d", ring)
		}
	}
}

func TestFindPadOutsideAnnulus(t *testing.T) {
	l := DefaultLayout()
	for _, p := range [][2]float64{{0, 0}, {4.9, 0}, {0, 15.0}, {20, 20}, {math.NaN(), 1}} {
		_, _, err := l.FindPad(p[0], p[1])
		assert.ErrorIs(t, err, ErrInvalidIndex, "point %v", p)
	}
}
