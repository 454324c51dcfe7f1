package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalField(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want Field
		ok   bool
	}{
		{name: "snake case", key: "free_length", want: FieldFreeLength, ok: true},
		{name: "camel case", key: "freeLength", want: FieldFreeLength, ok: true},
		{name: "upper snake", key: "FREE_LENGTH", want: FieldFreeLength, ok: true},
		{name: "spaced", key: "free length", want: FieldFreeLength, ok: true},
		{name: "unit suffix alias", key: "wire_dia_mm", want: FieldWireDiameter, ok: true},
		{name: "shorthand", key: "od", want: FieldOuterDiameter, ok: true},
		{name: "set point singular", key: "setPoint", want: FieldSetPoints, ok: true},
		{name: "part id spaced", key: "Part ID", want: FieldPartID, ok: true},
		{name: "unknown", key: "spring_rate", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CanonicalField(tt.key)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNumericConfidence(t *testing.T) {
	assert.InDelta(t, 0.9, NumericConfidence(FieldOuterDiameter, 32), 1e-9)
	assert.InDelta(t, 0.7, NumericConfidence(FieldOuterDiameter, 80), 1e-9)
	assert.InDelta(t, 0.3, NumericConfidence(FieldOuterDiameter, 500), 1e-9)
	assert.InDelta(t, 0, NumericConfidence(FieldPartName, 1), 1e-9)
}

func TestPlausibleNumericFields(t *testing.T) {
	fields := PlausibleNumericFields(32)
	assert.Contains(t, fields, FieldOuterDiameter)
	assert.Contains(t, fields, FieldFreeLength)
	assert.Greater(t, len(fields), 1)

	fields = PlausibleNumericFields(5000)
	assert.Equal(t, []Field{FieldSafetyLimit}, fields)
}

func TestRecordReadiness(t *testing.T) {
	r := NewParameterRecord()
	assert.False(t, r.ReadyToGenerate())

	r.Set(FieldFreeLength, FieldValue{Number: 58, Confidence: 0.9, SourceTurn: 1})
	assert.False(t, r.ReadyToGenerate(), "set points still missing")

	r.AddSetPoint(SetPoint{Position: 40, Load: 23.6, Confidence: 0.9, SourceTurn: 2})
	assert.True(t, r.ReadyToGenerate())

	// doubt about a mandatory field flips readiness off
	r.Set(FieldFreeLength, FieldValue{Number: 58, Confidence: 0.5, SourceTurn: 3})
	assert.False(t, r.ReadyToGenerate())
}

func TestRecordLastUpdatedField(t *testing.T) {
	r := NewParameterRecord()
	_, ok := r.LastUpdatedField()
	assert.False(t, ok)

	r.Set(FieldFreeLength, FieldValue{Number: 58, Confidence: 0.9, SourceTurn: 1})
	r.Set(FieldWireDiameter, FieldValue{Number: 1.2, Confidence: 0.9, SourceTurn: 2})

	f, ok := r.LastUpdatedField()
	require.True(t, ok)
	assert.Equal(t, FieldWireDiameter, f)

	r.AddSetPoint(SetPoint{Position: 40, Load: 23.6, Confidence: 0.9, SourceTurn: 3})
	f, ok = r.LastUpdatedField()
	require.True(t, ok)
	assert.Equal(t, FieldSetPoints, f)
}

func TestRecordSetPointToleranceDefault(t *testing.T) {
	r := NewParameterRecord()
	r.AddSetPoint(SetPoint{Position: 40, Load: 23.6, Confidence: 0.9})
	require.Len(t, r.SetPoints, 1)
	assert.InDelta(t, DefaultTolerancePercent, r.SetPoints[0].TolerancePercent, 1e-9)
}

func TestRecordSnapshotIsDeepCopy(t *testing.T) {
	r := NewParameterRecord()
	r.Set(FieldFreeLength, FieldValue{Number: 58, Confidence: 0.9})
	r.AddSetPoint(SetPoint{Position: 40, Load: 23.6, Confidence: 0.9})

	snap := r.Snapshot()
	snap.Values[FieldFreeLength] = FieldValue{Number: 1, Confidence: 0.1}
	snap.SetPoints[0].Position = 99

	got, _ := r.Get(FieldFreeLength)
	assert.InDelta(t, 58, got.Number, 1e-9)
	assert.InDelta(t, 40, r.SetPoints[0].Position, 1e-9)
}

func TestStateHistoryBounded(t *testing.T) {
	st := NewConversationState("c1", 3)
	for i := 1; i <= 5; i++ {
		st.AppendTurn(TurnSummary{Turn: i})
	}
	h := st.History()
	require.Len(t, h, 3)
	assert.Equal(t, 3, h[0].Turn)
	assert.Equal(t, 5, h[2].Turn)
}

func TestStateStaleHalves(t *testing.T) {
	st := NewConversationState("c1", 10)
	pos := 40.0
	st.PendingHalves = []HalfPair{{Position: &pos, Turn: 1}}

	st.Turn = 2
	assert.Empty(t, st.StaleHalves(2))

	st.Turn = 3
	require.Len(t, st.StaleHalves(2), 1)
}
