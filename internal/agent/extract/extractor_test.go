package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coilworks/springchat/internal/agent/model"
)

func TestExtractGeneralNumeric(t *testing.T) {
	tests := []struct {
		name       string
		utterance  string
		field      model.Field
		wantNumber float64
		minConf    float64
	}{
		{
			name:       "free length with unit conversion",
			utterance:  "free length is 2 in",
			field:      model.FieldFreeLength,
			wantNumber: 50.8,
			minConf:    0.85,
		},
		{
			name:       "free length in millimeters",
			utterance:  "The free length is 58mm",
			field:      model.FieldFreeLength,
			wantNumber: 58,
			minConf:    0.85,
		},
		{
			name:       "free length typo variant",
			utterance:  "free lenght is 60mm",
			field:      model.FieldFreeLength,
			wantNumber: 60,
			minConf:    0.85,
		},
		{
			name:       "wire diameter with typo",
			utterance:  "wire diamter 1.2mm",
			field:      model.FieldWireDiameter,
			wantNumber: 1.2,
			minConf:    0.85,
		},
		{
			name:       "outer diameter shorthand",
			utterance:  "od is 12mm",
			field:      model.FieldOuterDiameter,
			wantNumber: 12,
			minConf:    0.85,
		},
		{
			name:       "coil count trailing keyword",
			utterance:  "it has 8 coils",
			field:      model.FieldCoilCount,
			wantNumber: 8,
			minConf:    0.85,
		},
		{
			name:       "safety limit as max load",
			utterance:  "max load is 500N",
			field:      model.FieldSafetyLimit,
			wantNumber: 500,
			minConf:    0.85,
		},
		{
			name:       "centimeter conversion",
			utterance:  "free length of 6 cm",
			field:      model.FieldFreeLength,
			wantNumber: 60,
			minConf:    0.85,
		},
	}

	ex := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cands := ex.Extract(tt.utterance, model.FieldNone)
			c := findCandidate(t, cands, tt.field)
			assert.InDelta(t, tt.wantNumber, c.Number, 1e-9)
			assert.GreaterOrEqual(t, c.Confidence, tt.minConf)
		})
	}
}

func TestExtractTargetedNumeric(t *testing.T) {
	ex := New()

	// unit adjacent to the number
	cands := ex.Extract("it is 2 in", model.FieldFreeLength)
	c := findCandidate(t, cands, model.FieldFreeLength)
	assert.InDelta(t, 50.8, c.Number, 1e-9)
	assert.InDelta(t, 0.95, c.Confidence, 1e-9)

	// bare number answer to the active question
	cands = ex.Extract("it's 32", model.FieldOuterDiameter)
	c = findCandidate(t, cands, model.FieldOuterDiameter)
	assert.InDelta(t, 32, c.Number, 1e-9)
	assert.InDelta(t, 0.85, c.Confidence, 1e-9)
}

func TestExtractTargetedTopicMismatch(t *testing.T) {
	ex := New()

	// naming a different field overrides the active question
	cands := ex.Extract("wire diameter is 1.2mm", model.FieldFreeLength)
	assert.Empty(t, findCandidates(cands, model.FieldFreeLength))
	c := findCandidate(t, cands, model.FieldWireDiameter)
	assert.InDelta(t, 1.2, c.Number, 1e-9)
}

func TestExtractTargetedText(t *testing.T) {
	ex := New()

	cands := ex.Extract("it's called the heavy duty valve spring", model.FieldPartName)
	c := findCandidate(t, cands, model.FieldPartName)
	assert.Equal(t, "heavy duty valve", c.Text)
	assert.InDelta(t, 0.9, c.Confidence, 1e-9)

	// over-length answers yield nothing instead of garbage
	long := "it's called the extraordinarily long part name that goes on and on well past any plausible label"
	cands = ex.Extract(long, model.FieldPartName)
	assert.Empty(t, findCandidates(cands, model.FieldPartName))
}

func TestExtractPartID(t *testing.T) {
	ex := New()

	cands := ex.Extract("ID: SPR-889", model.FieldNone)
	c := findCandidate(t, cands, model.FieldPartID)
	assert.Equal(t, "SPR-889", c.Text)

	cands = ex.Extract("the part id is VS-12A", model.FieldNone)
	c = findCandidate(t, cands, model.FieldPartID)
	assert.Equal(t, "VS-12A", c.Text)
}

func TestExtractPairs(t *testing.T) {
	ex := New()

	cands := ex.Extract("test positions 40mm at 23.6N and 33mm at 34.14N", model.FieldNone)
	c := findCandidate(t, cands, model.FieldSetPoints)
	require.Len(t, c.Pairs, 2)

	assert.InDelta(t, 40, c.Pairs[0].Position, 1e-9)
	assert.InDelta(t, 23.6, c.Pairs[0].Load, 1e-9)
	assert.InDelta(t, model.DefaultTolerancePercent, c.Pairs[0].TolerancePercent, 1e-9)

	assert.InDelta(t, 33, c.Pairs[1].Position, 1e-9)
	assert.InDelta(t, 34.14, c.Pairs[1].Load, 1e-9)
	assert.GreaterOrEqual(t, c.Confidence, model.AcceptThreshold)
}

func TestExtractPairWithTolerance(t *testing.T) {
	ex := New()

	cands := ex.Extract("40mm at 25 ±5% N", model.FieldNone)
	c := findCandidate(t, cands, model.FieldSetPoints)
	require.Len(t, c.Pairs, 1)
	assert.InDelta(t, 5, c.Pairs[0].TolerancePercent, 1e-9)
}

func TestExtractHalfPair(t *testing.T) {
	ex := New()

	cands := ex.Extract("position is 40mm", model.FieldNone)
	c := findCandidate(t, cands, model.FieldSetPoints)
	require.NotNil(t, c.Half)
	require.NotNil(t, c.Half.Position)
	assert.InDelta(t, 40, *c.Half.Position, 1e-9)
	assert.Nil(t, c.Half.Load)

	cands = ex.Extract("the load is 23.6N", model.FieldNone)
	c = findCandidate(t, cands, model.FieldSetPoints)
	require.NotNil(t, c.Half)
	require.NotNil(t, c.Half.Load)
	assert.InDelta(t, 23.6, *c.Half.Load, 1e-9)
}

func TestExtractBareNumberYieldsNothing(t *testing.T) {
	ex := New()
	assert.Empty(t, ex.Extract("it's 32", model.FieldNone))
	assert.Empty(t, ex.Extract("hello there", model.FieldNone))
}

func TestExtractFuzzyFallback(t *testing.T) {
	ex := New()

	// "free lngth" misses every pattern rule but is close enough to a synonym
	cands := ex.Extract("the free lngth is 60", model.FieldNone)
	c := findCandidate(t, cands, model.FieldFreeLength)
	assert.InDelta(t, 60, c.Number, 1e-9)
	assert.GreaterOrEqual(t, c.Confidence, 0.8)
	assert.Less(t, c.Confidence, 1.0)
}

func TestExtractMultipleFieldsOneUtterance(t *testing.T) {
	ex := New()

	cands := ex.Extract("free length 58mm, wire diameter 1.2mm and 8 coils", model.FieldNone)
	fl := findCandidate(t, cands, model.FieldFreeLength)
	wd := findCandidate(t, cands, model.FieldWireDiameter)
	cc := findCandidate(t, cands, model.FieldCoilCount)

	assert.InDelta(t, 58, fl.Number, 1e-9)
	assert.InDelta(t, 1.2, wd.Number, 1e-9)
	assert.InDelta(t, 8, cc.Number, 1e-9)
}

func TestMentionedFields(t *testing.T) {
	fields := MentionedFields("no, the free length is wrong")
	assert.Contains(t, fields, model.FieldFreeLength)

	fields = MentionedFields("change the od")
	assert.Contains(t, fields, model.FieldOuterDiameter)
}

func TestFirstNumberWithUnit(t *testing.T) {
	v, unit, ok := FirstNumberWithUnit("23.6N")
	require.True(t, ok)
	assert.InDelta(t, 23.6, v, 1e-9)
	assert.Equal(t, "N", unit)

	_, _, ok = FirstNumberWithUnit("no numbers here")
	assert.False(t, ok)
}

func findCandidate(t *testing.T, cands []model.Candidate, f model.Field) model.Candidate {
	t.Helper()
	got := findCandidates(cands, f)
	require.Len(t, got, 1, "expected exactly one candidate for %s", f)
	return got[0]
}

func findCandidates(cands []model.Candidate, f model.Field) []model.Candidate {
	var out []model.Candidate
	for _, c := range cands {
		if c.Field == f {
			out = append(out, c)
		}
	}
	return out
}
