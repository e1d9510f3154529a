// Package units provides shared constants and validation for length units
package units

// Unit constants
const (
	M  = "m"
	MM = "mm"
	UM = "um"
	NM = "nm"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{M, MM, UM, NM}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ValidUnitsString returns a comma-separated string of valid units for error messages
func ValidUnitsString() string {
	return "m, mm, um, nm"
}

// ConvertLength converts a length from metres to the target units.
// The core computes everything in metres; conversion happens at the API edge.
// Non-finite values pass through unchanged apart from scaling.
func ConvertLength(metres float64, targetUnits string) float64 {
	switch targetUnits {
	case M:
		return metres
	case MM:
		return metres * 1e3
	case UM:
		return metres * 1e6
	case NM:
		return metres * 1e9
	default:
		return metres
	}
}
