package extract

import (
	"regexp"

	"github.com/coilworks/springchat/internal/agent/model"
)

// ruleKind selects how a rule's capture groups are interpreted.
type ruleKind int

const (
	ruleNumeric ruleKind = iota // group 1 number, group 2 optional unit token
	ruleText                    // group 1 raw text
)

// fieldRule is one declarative extraction rule: pattern text plus target
// field, evaluated by the generic matcher in extractor.go. Rules per field
// are ordered; the first match wins for that field.
type fieldRule struct {
	field   model.Field
	kind    ruleKind
	pattern string
	re      *regexp.Regexp
}

// valueFrag captures a number followed by an optional unit-like token. The
// token is validated against the unit tables; unrecognized tokens fall back
// to the field's canonical unit.
const valueFrag = `(-?\d+(?:\.\d+)?)\s*([a-zA-Z"]+)?`

// fieldRules is the ordered, immutable rule table. Field order follows ask
// priority so that earlier fields claim overlapping numbers first (e.g.
// "wire diameter" wins over the bare "diameter" rule).
var fieldRules = compileRules([]fieldRule{
	{field: model.FieldFreeLength, kind: ruleNumeric,
		pattern: `(?i)\bfree\s*len(?:gth|ght|)\w*\s*(?:is|of|:|=|at)?\s*` + valueFrag},
	{field: model.FieldFreeLength, kind: ruleNumeric,
		pattern: `(?i)\boverall\s+length\s*(?:is|of|:|=)?\s*` + valueFrag},
	{field: model.FieldFreeLength, kind: ruleNumeric,
		pattern: `(?i)\blength\s*(?:is|:|=)\s*` + valueFrag},

	{field: model.FieldWireDiameter, kind: ruleNumeric,
		pattern: `(?i)\bwire\s*dia\w*\s*(?:is|of|:|=)?\s*` + valueFrag},
	{field: model.FieldWireDiameter, kind: ruleNumeric,
		pattern: `(?i)\bwire\s*(?:is|:|=)\s*` + valueFrag},

	{field: model.FieldOuterDiameter, kind: ruleNumeric,
		pattern: `(?i)\b(?:outer|outside)\s*dia\w*\s*(?:is|of|:|=)?\s*` + valueFrag},
	{field: model.FieldOuterDiameter, kind: ruleNumeric,
		pattern: `(?i)\bod\s*(?:is|:|=)?\s*` + valueFrag},
	{field: model.FieldOuterDiameter, kind: ruleNumeric,
		pattern: `(?i)\bdiameter\s*(?:is|of|:|=)?\s*` + valueFrag},

	{field: model.FieldCoilCount, kind: ruleNumeric,
		pattern: `(?i)\b(?:no\.?\s*of\s*|number\s*of\s*)?coils?\s*(?:count)?\s*(?:is|:|=)?\s*` + valueFrag},
	{field: model.FieldCoilCount, kind: ruleNumeric,
		pattern: `(?i)(-?\d+(?:\.\d+)?)()\s*(?:coils|turns)\b`},

	{field: model.FieldSafetyLimit, kind: ruleNumeric,
		pattern: `(?i)\bsafe?ty\s*limit\s*(?:is|of|:|=)?\s*` + valueFrag},
	{field: model.FieldSafetyLimit, kind: ruleNumeric,
		pattern: `(?i)\bmax(?:imum)?\s*load\s*(?:is|of|:|=)?\s*` + valueFrag},

	{field: model.FieldPartName, kind: ruleText,
		pattern: `(?i)\bpart\s*name\s*(?:is|:|=)?\s*(.+)`},
	{field: model.FieldPartName, kind: ruleText,
		pattern: `(?i)\bcalled\s+(.+)`},
	{field: model.FieldPartName, kind: ruleText,
		pattern: `(?i)\bname\s*(?:is|:|=)\s*(.+)`},

	{field: model.FieldPartNumber, kind: ruleText,
		pattern: `(?i)\bpart\s*(?:number|no\.?|#)\s*(?:is|:|=)?\s*([A-Za-z0-9][A-Za-z0-9._/-]*)`},

	{field: model.FieldPartID, kind: ruleText,
		pattern: `(?i)\b(?:part\s*)?id\s*(?:is|:|=)?\s*([A-Za-z0-9][A-Za-z0-9._/-]*)`},
})

func compileRules(rules []fieldRule) []fieldRule {
	for i := range rules {
		rules[i].re = regexp.MustCompile(rules[i].pattern)
	}
	return rules
}

// pairRe matches one full position/load pair, e.g. "40mm at 23.6N" or
// "33 mm @ 34.14±10% N".
var pairRe = regexp.MustCompile(
	`(?i)(-?\d+(?:\.\d+)?)\s*(mm|millimeters?|cm|centimeters?|m|meters?|in|inch|inches)?\s*` +
		`(?:at|@|->|→|with)\s*` +
		`(-?\d+(?:\.\d+)?)\s*(?:±\s*(\d+(?:\.\d+)?)\s*%)?\s*(n|newtons?|lbf|lbs?|kgf|kg)?`)

// Half-pair rules: a position or load stated without its counterpart.
var (
	posHalfRe  = regexp.MustCompile(`(?i)\bposition\s*(?:is|of|:|=)?\s*` + valueFrag)
	loadHalfRe = regexp.MustCompile(`(?i)\bload\s*(?:is|of|:|=)?\s*` + valueFrag)
)

var (
	numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	tokenRe  = regexp.MustCompile(`-?\d+(?:\.\d+)?|[A-Za-z']+|"`)
)

// Set-point member ranges used for per-pair confidence assessment.
var (
	positionTypical   = model.Range{Min: 1, Max: 200}
	positionPlausible = model.Range{Min: 0.5, Max: 1000}
	loadTypical       = model.Range{Min: 1, Max: 500}
	loadPlausible     = model.Range{Min: 0.1, Max: 10000}
)

func rangeConfidence(v float64, typical, plausible model.Range) float64 {
	switch {
	case typical.Contains(v):
		return 0.9
	case plausible.Contains(v):
		return 0.7
	default:
		return 0.3
	}
}
