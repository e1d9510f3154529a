package lens

import "fmt"

// ConfigError reports a structural problem with chip geometry or a voltage
// configuration: mismatched array lengths, too few voltages for the requested
// operation. Degenerate numeric outcomes (zero or infinite focal lengths,
// NaN totals, stopped electrons) are not errors and flow through as values.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// DiagnosticKind identifies a non-fatal condition encountered while tracing.
type DiagnosticKind int

const (
	// DiagParaxialViolation means a deflection angle exceeded 1 radian after
	// an aperture transfer. The small-angle approximation behind the transfer
	// formulas no longer holds, so downstream numbers are unreliable.
	DiagParaxialViolation DiagnosticKind = iota

	// DiagStoppedElectron means the electron's energy-referenced voltage
	// reached zero in a gap: the electron slowed to a stop. The outgoing
	// deflection angle is NaN from that point on.
	DiagStoppedElectron
)

// Diagnostic records a warning raised during ray tracing. ApertureIndex is
// the zero-based index of the gap/aperture step that produced it.
type Diagnostic struct {
	Kind          DiagnosticKind
	ApertureIndex int
	Angle         float64
}

func (d Diagnostic) String() string {
	switch d.Kind {
	case DiagParaxialViolation:
		return fmt.Sprintf("paraxial approximation violated at aperture %d: deflection angle %g rad", d.ApertureIndex+1, d.Angle)
	case DiagStoppedElectron:
		return fmt.Sprintf("electron slowed to zero in gap %d", d.ApertureIndex+1)
	default:
		return fmt.Sprintf("unknown diagnostic at aperture %d", d.ApertureIndex+1)
	}
}
