package extract

import (
	"strings"

	"github.com/coilworks/springchat/internal/agent/model"
)

// Unit conversion tables. Canonical units are millimeters for lengths and
// newtons for forces; factors are fixed multipliers into the canonical unit.
// Both tables are read-only and safely shared across conversations.
var lengthFactors = map[string]float64{
	"mm":          1,
	"millimeter":  1,
	"millimeters": 1,
	"millimetre":  1,
	"millimetres": 1,
	"cm":          10,
	"centimeter":  10,
	"centimeters": 10,
	"centimetre":  10,
	"centimetres": 10,
	"m":           1000,
	"meter":       1000,
	"meters":      1000,
	"metre":       1000,
	"metres":      1000,
	"in":          25.4,
	"inch":        25.4,
	"inches":      25.4,
	`"`:           25.4,
	"ft":          304.8,
	"foot":        304.8,
	"feet":        304.8,
}

var forceFactors = map[string]float64{
	"n":       1,
	"newton":  1,
	"newtons": 1,
	"lbf":     4.44822,
	"lb":      4.44822,
	"lbs":     4.44822,
	"kgf":     9.80665,
	"kg":      9.80665,
}

// NormalizeLength converts a value in the given unit to millimeters. The
// second return reports whether the unit token was recognized; an empty or
// unrecognized token leaves the value unchanged.
func NormalizeLength(v float64, unit string) (float64, bool) {
	f, ok := lengthFactors[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return v, false
	}
	return v * f, true
}

// NormalizeForce converts a value in the given unit to newtons.
func NormalizeForce(v float64, unit string) (float64, bool) {
	f, ok := forceFactors[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return v, false
	}
	return v * f, true
}

// NormalizeUnit converts a raw value into the canonical unit of the field.
// Unrecognized or absent unit tokens assume the field's canonical unit.
func NormalizeUnit(f model.Field, v float64, unit string) (float64, bool) {
	spec, ok := model.Spec(f)
	if !ok {
		return v, false
	}
	switch spec.Unit {
	case "mm":
		return NormalizeLength(v, unit)
	case "N":
		return NormalizeForce(v, unit)
	default:
		// dimensionless fields (e.g. coil count) carry no unit
		return v, false
	}
}

// KnownUnit reports whether tok is a recognized unit of any dimension.
func KnownUnit(tok string) bool {
	tok = strings.ToLower(strings.TrimSpace(tok))
	if tok == "" {
		return false
	}
	if _, ok := lengthFactors[tok]; ok {
		return true
	}
	_, ok := forceFactors[tok]
	return ok
}

// IsUnitToken reports whether tok is a recognized unit for the field.
func IsUnitToken(f model.Field, tok string) bool {
	spec, ok := model.Spec(f)
	if !ok {
		return false
	}
	tok = strings.ToLower(strings.TrimSpace(tok))
	switch spec.Unit {
	case "mm":
		_, ok := lengthFactors[tok]
		return ok
	case "N":
		_, ok := forceFactors[tok]
		return ok
	default:
		return false
	}
}
