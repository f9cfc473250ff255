// Package units provides shared constants and conversions for length units.
// Internal lengths are in centimetres; input files may use other units.
package units

import "fmt"

// Unit constants
const (
	M  = "m"
	CM = "cm"
	MM = "mm"
	UM = "um"
)

// Length scale factors relative to the internal centimetre.
const (
	Meter      = 100.0
	Centimeter = 1.0
	Millimeter = 0.1
	Micrometer = 1e-4
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{M, CM, MM, UM}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "m, cm, mm, um"
}

func scale(unit string) (float64, error) {
	switch unit {
	case M:
		return Meter, nil
	case CM:
		return Centimeter, nil
	case MM:
		return Millimeter, nil
	case UM:
		return Micrometer, nil
	default:
		return 0, fmt.Errorf("unknown length unit %q (valid: %s)", unit, GetValidUnitsString())
	}
}

// ConvertLength converts a length between two units.
func ConvertLength(v float64, from, to string) (float64, error) {
	f, err := scale(from)
	if err != nil {
		return 0, err
	}
	t, err := scale(to)
	if err != nil {
		return 0, err
	}
	return v * f / t, nil
}
