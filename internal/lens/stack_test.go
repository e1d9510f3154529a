package lens

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chipV0 is the reference chip geometry: two millimetre-scale gaps followed
// by two 500nm gaps, 50nm plates, 250nm bore.
func chipV0(t *testing.T) *Stack {
	t.Helper()
	s, err := NewStack(
		[]float64{2e-3, 2e-3, 5e-7, 5e-7},
		[]float64{5e-8, 5e-8, 5e-8, 5e-8},
		2.5e-7,
	)
	require.NoError(t, err)
	return s
}

func TestNewStackValidation(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty spacings", func(t *testing.T) {
		t.Parallel()
		_, err := NewStack(nil, nil, 1e-7)
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "spacings", cfgErr.Field)
	})

	t.Run("rejects length mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := NewStack([]float64{1e-3, 1e-3}, []float64{5e-8}, 1e-7)
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "thicknesses", cfgErr.Field)
	})

	t.Run("rejects non-positive spacing", func(t *testing.T) {
		t.Parallel()
		_, err := NewStack([]float64{1e-3, 0}, []float64{5e-8, 5e-8}, 1e-7)
		require.Error(t, err)
	})

	t.Run("copies input slices", func(t *testing.T) {
		t.Parallel()
		spacings := []float64{1e-3, 2e-3}
		s, err := NewStack(spacings, []float64{5e-8, 5e-8}, 1e-7)
		require.NoError(t, err)
		spacings[0] = 99
		assert.Equal(t, 1e-3, s.Spacings()[0])
	})

	t.Run("carries identity fields", func(t *testing.T) {
		t.Parallel()
		s := chipV0(t)
		assert.Equal(t, 4, s.NumApertures())
		assert.Equal(t, 2.5e-7, s.ApertureDiameter())
		assert.Len(t, s.ApertureThicknesses(), 4)
		assert.InDelta(t, 2e-3+2e-3+5e-7+5e-7, s.TotalDepth(), 1e-12)
	})
}

func TestApertureFocalLength(t *testing.T) {
	t.Parallel()

	t.Run("zero field discontinuity is plus infinity", func(t *testing.T) {
		t.Parallel()
		f := ApertureFocalLength(0, 1e-3, 0, 1e-3, 0, 0)
		assert.True(t, math.IsInf(f, 1), "got %v", f)
	})

	t.Run("uniform potential at base voltage has no lensing", func(t *testing.T) {
		t.Parallel()
		// Symmetric neighbours at the lens potential and the lens at the
		// base voltage: both fields vanish, so the plate has no power.
		f := ApertureFocalLength(-500, 2e-3, -500, 3e-3, -500, -500)
		assert.True(t, math.IsInf(f, 1), "got %v", f)
	})

	t.Run("matches parallel-plate formula", func(t *testing.T) {
		t.Parallel()
		vLeft, dLeft := -1000.0, 2e-3
		vLens, dRight := 0.0, 2e-3
		vRight, vBase := 0.0, -1000.0

		eRight := (vRight - vLens) / dRight
		eLeft := (vLens - vLeft) / dLeft
		want := -4 * (vLens - vBase) / (eRight - eLeft)

		assert.Equal(t, want, ApertureFocalLength(vLeft, dLeft, vLens, dRight, vRight, vBase))
	})

	t.Run("infinite downstream gap kills the right field", func(t *testing.T) {
		t.Parallel()
		// Substrate-facing aperture: eRight collapses to zero regardless of
		// the lens voltage.
		f := ApertureFocalLength(-1500, 5e-7, 0, math.Inf(1), 0, -1000)
		eLeft := (0.0 - (-1500.0)) / 5e-7
		assert.Equal(t, -4*(0.0-(-1000.0))/(0-eLeft), f)
	})
}

func TestAllFocalLengths(t *testing.T) {
	t.Parallel()

	t.Run("rejects short voltage array", func(t *testing.T) {
		t.Parallel()
		s := chipV0(t)
		_, err := s.AllFocalLengths([]float64{-1000, 0, 0})
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "voltages", cfgErr.Field)
	})

	t.Run("matches per-aperture recomputation", func(t *testing.T) {
		t.Parallel()
		s := chipV0(t)
		voltages := []float64{-1000, 0, 0, -1500, 0}
		spacings := s.Spacings()

		got, err := s.AllFocalLengths(voltages)
		require.NoError(t, err)
		require.Len(t, got, 4)

		for i := 0; i < 3; i++ {
			want := ApertureFocalLength(
				voltages[i], spacings[i],
				voltages[i+1], spacings[i+1],
				voltages[i+2], voltages[0])
			assert.Equal(t, want, got[i], "aperture %d", i)
		}
		wantLast := ApertureFocalLength(voltages[3], spacings[3], voltages[4], math.Inf(1), 0, voltages[0])
		assert.Equal(t, wantLast, got[3])
	})

	t.Run("grounded stack is all infinite", func(t *testing.T) {
		t.Parallel()
		s := chipV0(t)
		got, err := s.AllFocalLengths([]float64{0, 0, 0, 0, 0})
		require.NoError(t, err)
		for i, f := range got {
			assert.True(t, math.IsInf(f, 1), "aperture %d: got %v", i, f)
		}
	})
}

func TestSystemFocalLength(t *testing.T) {
	t.Parallel()

	t.Run("equals harmonic sum of aperture focal lengths", func(t *testing.T) {
		t.Parallel()
		s := chipV0(t)
		voltages := []float64{-1000, 0, 0, -1500, 0}

		focals, err := s.AllFocalLengths(voltages)
		require.NoError(t, err)
		var sum float64
		for _, f := range focals {
			sum += 1 / f
		}

		got, err := s.SystemFocalLength(voltages)
		require.NoError(t, err)
		assert.False(t, math.IsInf(got, 0) || math.IsNaN(got))
		assert.Equal(t, 1/sum, got)
	})

	t.Run("all infinite focal lengths give infinite total", func(t *testing.T) {
		t.Parallel()
		s := chipV0(t)
		got, err := s.SystemFocalLength([]float64{0, 0, 0, 0, 0})
		require.NoError(t, err)
		assert.True(t, math.IsInf(got, 1), "got %v", got)
	})

	t.Run("zero focal length forces zero total", func(t *testing.T) {
		t.Parallel()
		// Lens at the base voltage with a real field across it: zero
		// numerator over a finite denominator, so the aperture contributes
		// an infinite reciprocal and the series collapses to zero.
		s, err := NewStack([]float64{1e-3, 1e-3}, []float64{5e-8, 5e-8}, 1e-7)
		require.NoError(t, err)
		got, err := s.SystemFocalLength([]float64{0, 0, 100})
		require.NoError(t, err)
		assert.Equal(t, 0.0, math.Abs(got))
	})

	t.Run("propagates length errors", func(t *testing.T) {
		t.Parallel()
		s := chipV0(t)
		_, err := s.SystemFocalLength([]float64{-1000})
		require.Error(t, err)
	})
}
