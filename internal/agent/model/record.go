package model

import (
	"fmt"
	"sort"
	"strings"
)

// FieldValue is one accepted value in the parameter record.
type FieldValue struct {
	Number     float64 `json:"number,omitempty"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence"`
	SourceTurn int     `json:"source_turn"`
}

// SetPoint is one position/load measurement pair. A pair is only promoted
// into the record once both members are resolved.
type SetPoint struct {
	Position         float64 `json:"position_mm"`
	Load             float64 `json:"load_n"`
	TolerancePercent float64 `json:"tolerance_percent"`
	Confidence       float64 `json:"confidence"`
	SourceTurn       int     `json:"source_turn"`
}

// DefaultTolerancePercent applies when an utterance states a load without an
// explicit tolerance.
const DefaultTolerancePercent = 10.0

// ParameterRecord is the accumulated, confidence-tracked set of accepted
// field values for one conversation.
type ParameterRecord struct {
	Values    map[Field]FieldValue `json:"values"`
	SetPoints []SetPoint           `json:"set_points"`
}

func NewParameterRecord() *ParameterRecord {
	return &ParameterRecord{Values: make(map[Field]FieldValue)}
}

// Set writes an accepted value for a field.
func (r *ParameterRecord) Set(f Field, v FieldValue) {
	if r.Values == nil {
		r.Values = make(map[Field]FieldValue)
	}
	r.Values[f] = v
}

// Get returns the accepted value for a field, if any.
func (r *ParameterRecord) Get(f Field) (FieldValue, bool) {
	v, ok := r.Values[f]
	return v, ok
}

// Has reports whether a field is present with acceptable confidence.
func (r *ParameterRecord) Has(f Field) bool {
	if f == FieldSetPoints {
		return len(r.SetPoints) > 0
	}
	v, ok := r.Values[f]
	return ok && v.Confidence >= AcceptThreshold
}

// AddSetPoint appends a completed pair to the ordered set-point list.
func (r *ParameterRecord) AddSetPoint(sp SetPoint) {
	if sp.TolerancePercent == 0 {
		sp.TolerancePercent = DefaultTolerancePercent
	}
	r.SetPoints = append(r.SetPoints, sp)
}

// ReadyToGenerate reports whether both mandatory fields are present with
// confidence at or above the acceptance threshold.
func (r *ParameterRecord) ReadyToGenerate() bool {
	for _, f := range MandatoryFields {
		if !r.Has(f) {
			return false
		}
	}
	return true
}

// LastUpdatedField returns the most recently written field, used as the
// correction target when an utterance names none. Ties resolve in
// ask-priority order.
func (r *ParameterRecord) LastUpdatedField() (Field, bool) {
	best := FieldNone
	bestTurn := -1
	for _, f := range AskPriority() {
		if v, ok := r.Values[f]; ok && v.SourceTurn > bestTurn {
			best, bestTurn = f, v.SourceTurn
		}
	}
	for _, sp := range r.SetPoints {
		if sp.SourceTurn > bestTurn {
			best, bestTurn = FieldSetPoints, sp.SourceTurn
		}
	}
	return best, best != FieldNone
}

// Snapshot returns a deep copy safe to hand to the caller.
func (r *ParameterRecord) Snapshot() ParameterRecord {
	out := ParameterRecord{Values: make(map[Field]FieldValue, len(r.Values))}
	for f, v := range r.Values {
		out.Values[f] = v
	}
	out.SetPoints = make([]SetPoint, len(r.SetPoints))
	copy(out.SetPoints, r.SetPoints)
	return out
}

// Summary renders the record as prompt-friendly text, one line per known
// field plus one per set point.
func (r *ParameterRecord) Summary() string {
	var b strings.Builder
	b.WriteString("Spring Specifications:\n")

	fields := make([]Field, 0, len(r.Values))
	for f := range r.Values {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return priorityIndex(fields[i]) < priorityIndex(fields[j]) })

	for _, f := range fields {
		v := r.Values[f]
		s, _ := Spec(f)
		switch s.Kind {
		case KindText:
			fmt.Fprintf(&b, "%s: %s\n", f.Label(), v.Text)
		default:
			if s.Unit != "" {
				fmt.Fprintf(&b, "%s: %.6g %s\n", f.Label(), v.Number, s.Unit)
			} else {
				fmt.Fprintf(&b, "%s: %.6g\n", f.Label(), v.Number)
			}
		}
	}
	for i, sp := range r.SetPoints {
		fmt.Fprintf(&b, "set point-%d: %.6g mm at %.6g±%.6g%% N\n",
			i+1, sp.Position, sp.Load, sp.TolerancePercent)
	}
	return b.String()
}

func priorityIndex(f Field) int {
	for i, p := range AskPriority() {
		if p == f {
			return i
		}
	}
	return len(AskPriority())
}
