// Package lens models the electron optics of an einzel lens chip: a stack of
// charged circular apertures. It computes per-aperture and net focal lengths
// from a voltage configuration and traces single-electron rays through the
// stack under the paraxial approximation.
//
// All focal-length arithmetic follows IEEE-754 semantics: zero, infinite and
// NaN results are legitimate physical outcomes (zero lensing power, electrons
// that cannot traverse the system) and are returned as values, never as
// errors.
package lens

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Stack holds the geometric configuration of a lens chip. It is immutable
// after construction and safe for concurrent use.
//
// Spacings[i] is the gap length in metres after aperture i; the last entry is
// the gap from the last aperture to a grounded, far-away substrate.
// ApertureThicknesses and ApertureDiameter are part of chip identity but
// currently inert: apertures are treated as zero-thickness refracting planes
// and no bore-diameter correction is applied.
type Stack struct {
	spacings    []float64
	thicknesses []float64
	diameter    float64
}

// NewStack validates the chip geometry and returns an immutable Stack.
// The input slices are copied.
func NewStack(spacings, thicknesses []float64, diameter float64) (*Stack, error) {
	if len(spacings) == 0 {
		return nil, &ConfigError{Field: "spacings", Msg: "at least one aperture is required"}
	}
	if len(spacings) != len(thicknesses) {
		return nil, &ConfigError{
			Field: "thicknesses",
			Msg:   "length must match spacings",
		}
	}
	for _, d := range spacings {
		if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, &ConfigError{Field: "spacings", Msg: "entries must be positive finite lengths"}
		}
	}
	s := &Stack{
		spacings:    append([]float64(nil), spacings...),
		thicknesses: append([]float64(nil), thicknesses...),
		diameter:    diameter,
	}
	return s, nil
}

// NumApertures returns the number of apertures in the stack.
func (s *Stack) NumApertures() int { return len(s.spacings) }

// Spacings returns a copy of the gap lengths.
func (s *Stack) Spacings() []float64 {
	return append([]float64(nil), s.spacings...)
}

// ApertureThicknesses returns a copy of the aperture thicknesses.
func (s *Stack) ApertureThicknesses() []float64 {
	return append([]float64(nil), s.thicknesses...)
}

// ApertureDiameter returns the bore diameter.
func (s *Stack) ApertureDiameter() float64 { return s.diameter }

// TotalDepth returns the summed gap length: the distance from the release
// point to the substrate-facing end of the stack.
func (s *Stack) TotalDepth() float64 {
	return floats.Sum(s.spacings)
}

// ApertureFocalLength computes the focal length of a single charged aperture
// from the voltages of its neighbours, using the parallel-plate capacitor
// approximation for the fields on either side.
//
// The sign convention is for electrons: a positive result is a converging
// lens. When the field discontinuity across the plate vanishes
// (eRight == eLeft) the aperture has zero lensing power and the focal length
// is +Inf. That includes the all-grounded case.
func ApertureFocalLength(vLeft, dLeft, vLens, dRight, vRight, vBase float64) float64 {
	eRight := (vRight - vLens) / dRight
	eLeft := (vLens - vLeft) / dLeft
	if eRight == eLeft {
		return math.Inf(1)
	}
	return -4 * (vLens - vBase) / (eRight - eLeft)
}

// AllFocalLengths computes the focal length of every aperture in the stack
// for the given voltage configuration.
//
// voltages[0] is the base (CNT) voltage; voltages[1..N] are the aperture
// plate voltages from left to right. The last aperture faces the grounded
// substrate, which is assumed far away: its downstream gap is infinite and
// its downstream neighbour voltage is zero.
func (s *Stack) AllFocalLengths(voltages []float64) ([]float64, error) {
	n := len(s.spacings)
	if len(voltages) < n+1 {
		return nil, &ConfigError{
			Field: "voltages",
			Msg:   "need base voltage plus one entry per aperture",
		}
	}

	focalLengths := make([]float64, n)
	for i, spacing := range s.spacings {
		if i < n-1 {
			focalLengths[i] = ApertureFocalLength(
				voltages[i], spacing,
				voltages[i+1], s.spacings[i+1],
				voltages[i+2], voltages[0])
		} else {
			focalLengths[i] = ApertureFocalLength(
				voltages[i], spacing,
				voltages[i+1], math.Inf(1),
				0, voltages[0])
		}
	}
	return focalLengths, nil
}

// SystemFocalLength combines the per-aperture focal lengths into the net
// focal length of the stack using the thin-lens series rule
// 1/f = sum(1/f_i).
//
// The result may be 0 (some aperture has zero focal length), +-Inf (no net
// lensing) or NaN (opposing infinite terms) for degenerate configurations.
// Callers must treat non-finite results as valid outcomes.
func (s *Stack) SystemFocalLength(voltages []float64) (float64, error) {
	focalLengths, err := s.AllFocalLengths(voltages)
	if err != nil {
		return 0, err
	}
	var reciprocalSum float64
	for _, f := range focalLengths {
		reciprocalSum += 1 / f
	}
	return 1 / reciprocalSum, nil
}
