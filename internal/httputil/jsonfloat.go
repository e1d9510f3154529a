package httputil

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// JSONFloat is a float64 that survives JSON encoding when non-finite.
// Strict JSON has no Infinity or NaN token, and degenerate lens
// configurations legitimately produce all three, so the sentinels
// "Infinity", "-Infinity" and "NaN" are encoded as strings instead.
// Finite values encode as ordinary JSON numbers.
type JSONFloat float64

// MarshalJSON implements json.Marshaler.
func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler, accepting both plain numbers
// and the string sentinels produced by MarshalJSON.
func (f *JSONFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = JSONFloat(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid float value %s", data)
	}
	switch s {
	case "Infinity":
		*f = JSONFloat(math.Inf(1))
	case "-Infinity":
		*f = JSONFloat(math.Inf(-1))
	case "NaN":
		*f = JSONFloat(math.NaN())
	default:
		return fmt.Errorf("invalid float sentinel %q", s)
	}
	return nil
}

// Floats converts a float64 slice for JSON encoding.
func Floats(xs []float64) []JSONFloat {
	out := make([]JSONFloat, len(xs))
	for i, x := range xs {
		out[i] = JSONFloat(x)
	}
	return out
}

// FormatFloat renders a float64 as text using the same sentinels as
// JSONFloat, for storage and log output.
func FormatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
