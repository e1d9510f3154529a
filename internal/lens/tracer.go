package lens

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// traceMargin extends the sampled depth range slightly past the last
// aperture so the rendered ray visibly exits the stack.
const traceMargin = 1.0005

// Tracer propagates a single electron ray through a Stack under the paraxial
// approximation. Each aperture contributes two transfer steps: a drift
// through the field gap in front of it, then a thin-lens refraction at the
// plate itself. A Tracer holds no per-call state and is safe for concurrent
// use.
type Tracer struct {
	stack *Stack
}

// NewTracer returns a Tracer for the given stack.
func NewTracer(s *Stack) *Tracer {
	return &Tracer{stack: s}
}

// Stack returns the stack this tracer propagates through.
func (t *Tracer) Stack() *Stack { return t.stack }

// TracePoint is one sample of the ray's transverse offset at a depth into
// the system.
type TracePoint struct {
	Depth  float64
	Offset float64
}

// TraceResult holds the ray state at the release point and after each
// aperture: N+1 deflection angles (rad) and transverse offsets (m) for a
// stack of N apertures, plus any diagnostics raised along the way.
type TraceResult struct {
	Deflections []float64
	Offsets     []float64
	Diagnostics []Diagnostic
}

// transferThroughGap drifts the ray across a uniform longitudinal field
// between two energy-referenced voltages. vLeft and vRight are the
// electron's voltage-equivalent energies at either end of the gap.
//
// vRight == 0 means the electron slowed to a stop inside the gap; the
// outgoing angle is NaN (there is no defined trajectory past that point) and
// stopped is true so the caller can record a StoppedElectron diagnostic.
// vLeft == 0 zeroes the offset drift term.
func transferThroughGap(angle, offset, vLeft, vRight, gap float64) (angleOut, offsetOut float64, stopped bool) {
	if vRight == 0 {
		angleOut = math.NaN()
		stopped = true
	} else {
		angleOut = angle * math.Sqrt(vLeft/vRight)
	}

	if vLeft == 0 {
		offsetOut = 0
	} else {
		offsetOut = offset + angle*2*gap/(math.Sqrt(vRight/vLeft)+1)
	}
	return angleOut, offsetOut, stopped
}

// transferThroughAperture refracts the ray at a zero-thickness aperture of
// the given focal length. The offset is unchanged: transit time through the
// idealised plate is negligible. An infinite focal length leaves the angle
// unchanged.
func transferThroughAperture(angle, offset, focalLength float64) (angleOut, offsetOut float64) {
	if math.IsInf(focalLength, 0) {
		return angle, offset
	}
	return angle - offset/focalLength, offset
}

// TraceRay propagates an electron released with the given angle (rad),
// transverse offset (m) and energy (eV, treated as a voltage equivalent)
// through the stack under the paraxial approximation.
//
// voltages needs N+2 entries: the base voltage, one per aperture, and the
// downstream neighbour of the last gap transfer. The returned result has
// N+1 states including the release point. Deflection angles beyond 1 radian
// and stopped electrons are reported as diagnostics, not errors; the trace
// always runs to completion.
func (t *Tracer) TraceRay(angle0, offset0, energy0 float64, voltages []float64) (*TraceResult, error) {
	n := len(t.stack.spacings)
	if len(voltages) < n+2 {
		return nil, &ConfigError{
			Field: "voltages",
			Msg:   "ray tracing needs base voltage, one entry per aperture, and the downstream neighbour",
		}
	}

	focalLengths, err := t.stack.AllFocalLengths(voltages)
	if err != nil {
		return nil, err
	}

	res := &TraceResult{
		Deflections: make([]float64, n+1),
		Offsets:     make([]float64, n+1),
	}
	res.Deflections[0] = angle0
	res.Offsets[0] = offset0

	base := voltages[0]
	for i, spacing := range t.stack.spacings {
		// Energy-referenced voltages bounding gap i.
		vLeft := voltages[i] - base + energy0
		vRight := voltages[i+1] - base + energy0

		angle, offset, stopped := transferThroughGap(res.Deflections[i], res.Offsets[i], vLeft, vRight, spacing)
		if stopped {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Kind:          DiagStoppedElectron,
				ApertureIndex: i,
				Angle:         angle,
			})
		}

		angle, offset = transferThroughAperture(angle, offset, focalLengths[i])
		res.Deflections[i+1] = angle
		res.Offsets[i+1] = offset

		if angle > 1 || angle < -1 {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Kind:          DiagParaxialViolation,
				ApertureIndex: i,
				Angle:         angle,
			})
		}
	}
	return res, nil
}

// LinearTrace interpolates a dense piecewise-linear trace from the
// per-aperture ray states. It produces numPoints evenly spaced depth samples
// from 0 to slightly past the total stack depth. Samples inside gap i
// interpolate linearly between the states at its two ends; samples at or
// beyond the last aperture extrapolate with the final deflection angle as
// slope. Segment membership is half-open, so boundaries belong to the
// downstream segment and the polyline is continuous.
func (t *Tracer) LinearTrace(res *TraceResult, numPoints int) []TracePoint {
	if numPoints <= 0 {
		return nil
	}
	n := len(t.stack.spacings)

	if numPoints == 1 {
		return []TracePoint{{Depth: 0, Offset: res.Offsets[0]}}
	}

	depths := make([]float64, numPoints)
	floats.Span(depths, 0, traceMargin*t.stack.TotalDepth())

	points := make([]TracePoint, numPoints)
	segStart := 0.0
	seg := 0
	for k, x := range depths {
		for seg < n && x >= segStart+t.stack.spacings[seg] {
			segStart += t.stack.spacings[seg]
			seg++
		}

		var y float64
		if seg == n {
			// Past the last aperture: extend with the exit angle.
			y = res.Offsets[n] + (x-segStart)*res.Deflections[n]
		} else {
			spacing := t.stack.spacings[seg]
			y = res.Offsets[seg] + (x-segStart)*(res.Offsets[seg+1]-res.Offsets[seg])/spacing
		}
		points[k] = TracePoint{Depth: x, Offset: y}
	}
	return points
}
