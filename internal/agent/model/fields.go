package model

import "strings"

// Field identifies one collectible spring parameter.
type Field string

const (
	FieldPartName      Field = "part_name"
	FieldPartNumber    Field = "part_number"
	FieldPartID        Field = "part_id"
	FieldFreeLength    Field = "free_length"
	FieldCoilCount     Field = "coil_count"
	FieldWireDiameter  Field = "wire_diameter"
	FieldOuterDiameter Field = "outer_diameter"
	FieldSafetyLimit   Field = "safety_limit"
	FieldSetPoints     Field = "set_points"

	// FieldNone marks the absence of an active topic.
	FieldNone Field = ""
)

// FieldKind is the semantic type of a field's value.
type FieldKind int

const (
	KindNumeric FieldKind = iota
	KindText
	KindPairList
)

// Confidence thresholds shared by the resolver and the record invariant.
const (
	AcceptThreshold = 0.7
	ConfirmFloor    = 0.3
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v falls inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// FieldSpec describes one field: its kind, canonical unit and the ranges
// used for confidence assessment. Synonyms feed both the fuzzy extractor
// and field-mention detection in the resolver.
type FieldSpec struct {
	Field     Field
	Kind      FieldKind
	Unit      string
	Typical   Range
	Plausible Range
	Synonyms  []string
}

// registry is immutable after init and shared read-only across conversations.
var registry = map[Field]FieldSpec{
	FieldPartName: {
		Field:    FieldPartName,
		Kind:     KindText,
		Synonyms: []string{"part name", "name", "called"},
	},
	FieldPartNumber: {
		Field:    FieldPartNumber,
		Kind:     KindText,
		Synonyms: []string{"part number", "part no", "model number", "pn"},
	},
	FieldPartID: {
		Field:    FieldPartID,
		Kind:     KindText,
		Synonyms: []string{"part id", "id"},
	},
	FieldFreeLength: {
		Field:     FieldFreeLength,
		Kind:      KindNumeric,
		Unit:      "mm",
		Typical:   Range{10, 200},
		Plausible: Range{1, 1000},
		Synonyms:  []string{"free length", "length", "overall length", "freelength", "free lenght", "fre length"},
	},
	FieldCoilCount: {
		Field:     FieldCoilCount,
		Kind:      KindNumeric,
		Typical:   Range{3, 30},
		Plausible: Range{1, 100},
		Synonyms:  []string{"coil count", "coils", "number of coils", "no of coils", "turns", "coil"},
	},
	FieldWireDiameter: {
		Field:     FieldWireDiameter,
		Kind:      KindNumeric,
		Unit:      "mm",
		Typical:   Range{0.5, 8},
		Plausible: Range{0.1, 50},
		Synonyms:  []string{"wire diameter", "wire dia", "wire", "wire thickness", "wire diamter"},
	},
	FieldOuterDiameter: {
		Field:     FieldOuterDiameter,
		Kind:      KindNumeric,
		Unit:      "mm",
		Typical:   Range{10, 60},
		Plausible: Range{5, 100},
		Synonyms:  []string{"outer diameter", "od", "outside diameter", "outer dia", "diameter", "outer diamter"},
	},
	FieldSafetyLimit: {
		Field:     FieldSafetyLimit,
		Kind:      KindNumeric,
		Unit:      "N",
		Typical:   Range{50, 1000},
		Plausible: Range{1, 10000},
		Synonyms:  []string{"safety limit", "max load", "force limit", "safety", "safty limit"},
	},
	FieldSetPoints: {
		Field:    FieldSetPoints,
		Kind:     KindPairList,
		Synonyms: []string{"set point", "set points", "setpoint", "setpoints", "test point", "position", "load"},
	},
}

// askOrder is the fixed ask priority: mandatory fields first.
var askOrder = []Field{
	FieldFreeLength,
	FieldSetPoints,
	FieldWireDiameter,
	FieldOuterDiameter,
	FieldCoilCount,
	FieldPartName,
	FieldPartNumber,
	FieldPartID,
	FieldSafetyLimit,
}

// MandatoryFields are required before a sequence can be generated.
var MandatoryFields = []Field{FieldFreeLength, FieldSetPoints}

// Spec returns the registry entry for a field.
func Spec(f Field) (FieldSpec, bool) {
	s, ok := registry[f]
	return s, ok
}

// AllFields returns every known field in ask-priority order.
func AllFields() []Field {
	out := make([]Field, len(askOrder))
	copy(out, askOrder)
	return out
}

// AskPriority returns the fixed priority list used by the dialogue policy.
func AskPriority() []Field {
	return AllFields()
}

// NumericConfidence scores a numeric value for a field: 0.9 inside the
// typical range, 0.7 inside plausible-but-outside-typical, 0.3 outside
// plausible. Out-of-range values are surfaced for confirmation, not dropped.
func NumericConfidence(f Field, v float64) float64 {
	s, ok := registry[f]
	if !ok || s.Kind != KindNumeric {
		return 0
	}
	switch {
	case s.Typical.Contains(v):
		return 0.9
	case s.Plausible.Contains(v):
		return 0.7
	default:
		return 0.3
	}
}

// PlausibleNumericFields returns every numeric field whose plausible range
// contains v, in ask-priority order.
func PlausibleNumericFields(v float64) []Field {
	var out []Field
	for _, f := range askOrder {
		s := registry[f]
		if s.Kind == KindNumeric && s.Plausible.Contains(v) {
			out = append(out, f)
		}
	}
	return out
}

// fieldAliases maps normalised inbound keys to canonical fields. All inbound
// field keys pass through this table before touching core logic.
var fieldAliases = map[string]Field{
	"part_name":      FieldPartName,
	"partname":       FieldPartName,
	"part_number":    FieldPartNumber,
	"partnumber":     FieldPartNumber,
	"part_no":        FieldPartNumber,
	"part_id":        FieldPartID,
	"partid":         FieldPartID,
	"id":             FieldPartID,
	"free_length":    FieldFreeLength,
	"free_length_mm": FieldFreeLength,
	"freelength":     FieldFreeLength,
	"coil_count":     FieldCoilCount,
	"coilcount":      FieldCoilCount,
	"no_of_coils":    FieldCoilCount,
	"coils":          FieldCoilCount,
	"wire_diameter":  FieldWireDiameter,
	"wire_dia":       FieldWireDiameter,
	"wire_dia_mm":    FieldWireDiameter,
	"outer_diameter": FieldOuterDiameter,
	"outer_dia":      FieldOuterDiameter,
	"outer_dia_mm":   FieldOuterDiameter,
	"od":             FieldOuterDiameter,
	"safety_limit":   FieldSafetyLimit,
	"safety_limit_n": FieldSafetyLimit,
	"set_points":     FieldSetPoints,
	"setpoints":      FieldSetPoints,
	"set_point":      FieldSetPoints,
}

// CanonicalField normalises an inbound field key (snake_case, camelCase,
// UPPER_SNAKE or spaced variants) to its canonical Field identifier.
func CanonicalField(key string) (Field, bool) {
	norm := normalizeKey(key)
	f, ok := fieldAliases[norm]
	return f, ok
}

func normalizeKey(key string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range key {
		switch {
		case r == ' ' || r == '-' || r == '.':
			b.WriteByte('_')
			prevLower = false
		case r >= 'A' && r <= 'Z':
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
		}
	}
	return strings.Trim(b.String(), "_")
}

// Label is the human-readable field name used in dialogue templates.
func (f Field) Label() string {
	switch f {
	case FieldPartName:
		return "part name"
	case FieldPartNumber:
		return "part number"
	case FieldPartID:
		return "part ID"
	case FieldFreeLength:
		return "free length"
	case FieldCoilCount:
		return "coil count"
	case FieldWireDiameter:
		return "wire diameter"
	case FieldOuterDiameter:
		return "outer diameter"
	case FieldSafetyLimit:
		return "safety limit"
	case FieldSetPoints:
		return "set points"
	default:
		return string(f)
	}
}
