// Package units provides shared constants and conversions for current and time units
package units

import "strings"

// Current unit constants
const (
	A  = "A"
	MA = "mA"
	UA = "uA"
	NA = "nA"
	PA = "pA"
)

// Time unit constants
const (
	S  = "s"
	MS = "ms"
	US = "us"
)

// ValidCurrentUnits contains all valid current unit values
var ValidCurrentUnits = []string{A, MA, UA, NA, PA}

var currentScale = map[string]float64{
	A:  1,
	MA: 1e-3,
	UA: 1e-6,
	NA: 1e-9,
	PA: 1e-12,
}

var timeScale = map[string]float64{
	S:  1,
	MS: 1e-3,
	US: 1e-6,
}

// IsValidCurrent checks if the given unit is a known current unit
func IsValidCurrent(unit string) bool {
	_, ok := currentScale[unit]
	return ok
}

// GetValidCurrentUnitsString returns a comma-separated string of valid current units for error messages
func GetValidCurrentUnitsString() string {
	return strings.Join(ValidCurrentUnits, ", ")
}

// ToAmps converts a current expressed in unit to amperes.
// Traces are stored in amperes; unknown units are treated as amperes.
func ToAmps(value float64, unit string) float64 {
	if s, ok := currentScale[unit]; ok {
		return value * s
	}
	return value
}

// FromAmps converts a current in amperes to the target unit.
func FromAmps(amps float64, targetUnit string) float64 {
	if s, ok := currentScale[targetUnit]; ok {
		return amps / s
	}
	return amps
}

// FromSeconds converts seconds to the target time unit. Unknown units are
// treated as seconds.
func FromSeconds(seconds float64, targetUnit string) float64 {
	if s, ok := timeScale[targetUnit]; ok {
		return seconds / s
	}
	return seconds
}
