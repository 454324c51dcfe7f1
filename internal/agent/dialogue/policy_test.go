package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coilworks/springchat/internal/agent/model"
)

func newReadyState() *model.ConversationState {
	st := model.NewConversationState("c1", 10)
	st.Record.Set(model.FieldFreeLength, model.FieldValue{Number: 58, Confidence: 0.9, SourceTurn: 1})
	st.Record.AddSetPoint(model.SetPoint{Position: 40, Load: 23.6, Confidence: 0.9, SourceTurn: 2})
	return st
}

func TestPolicyAsksMandatoryFieldFirst(t *testing.T) {
	p := New(7)
	st := model.NewConversationState("c1", 10)

	act := p.Decide(st, model.ResolvedUpdate{})

	assert.Equal(t, model.ActionAskMissing, act.Type)
	assert.Equal(t, model.FieldFreeLength, act.Field)
	assert.Contains(t, act.Text, "free length")
	assert.Equal(t, model.FieldFreeLength, st.ActiveTopic)
}

func TestPolicyAsksSetPointsSecond(t *testing.T) {
	p := New(7)
	st := model.NewConversationState("c1", 10)
	st.Record.Set(model.FieldFreeLength, model.FieldValue{Number: 58, Confidence: 0.9, SourceTurn: 1})

	act := p.Decide(st, model.ResolvedUpdate{})

	assert.Equal(t, model.ActionAskMissing, act.Type)
	assert.Equal(t, model.FieldSetPoints, act.Field)
	assert.Equal(t, model.FieldSetPoints, st.ActiveTopic)
}

func TestPolicyConfirmationPrecedesEverything(t *testing.T) {
	p := New(7)
	st := newReadyState()
	st.Turn = 3
	st.PendingConfirmation = &model.Candidate{
		Field:      model.FieldFreeLength,
		Number:     1500,
		Confidence: 0.3,
	}
	st.ConfirmationSince = 3

	act := p.Decide(st, model.ResolvedUpdate{})

	assert.Equal(t, model.ActionAskConfirmation, act.Type)
	assert.False(t, act.IsFollowUp)
	assert.Contains(t, act.Text, "free length")
	assert.Contains(t, act.Text, "1500")
}

func TestPolicyConfirmationFollowUp(t *testing.T) {
	p := New(7)
	st := model.NewConversationState("c1", 10)
	st.Turn = 4
	st.PendingConfirmation = &model.Candidate{Field: model.FieldFreeLength, Number: 1500, Confidence: 0.3}
	st.ConfirmationSince = 3

	act := p.Decide(st, model.ResolvedUpdate{})

	assert.Equal(t, model.ActionAskConfirmation, act.Type)
	assert.True(t, act.IsFollowUp)
}

func TestPolicyClarificationAmbiguousValue(t *testing.T) {
	p := New(7)
	st := model.NewConversationState("c1", 10)
	st.Turn = 1
	st.PendingAmbiguity = &model.AmbiguityRequest{
		RawValue:        32,
		CandidateFields: []model.Field{model.FieldFreeLength, model.FieldOuterDiameter},
		Reason:          model.ReasonAmbiguousValue,
	}
	st.AmbiguitySince = 1

	act := p.Decide(st, model.ResolvedUpdate{})

	assert.Equal(t, model.ActionAskClarification, act.Type)
	assert.Contains(t, act.Text, "32")
	assert.Contains(t, act.Text, "outer diameter")
}

func TestPolicyClarificationIncompletePair(t *testing.T) {
	p := New(7)
	st := model.NewConversationState("c1", 10)
	st.Turn = 3
	st.PendingAmbiguity = &model.AmbiguityRequest{
		RawValue:        40,
		CandidateFields: []model.Field{model.FieldSetPoints},
		Reason:          model.ReasonIncompletePair,
	}
	st.AmbiguitySince = 3

	act := p.Decide(st, model.ResolvedUpdate{})

	assert.Equal(t, model.ActionAskClarification, act.Type)
	assert.Contains(t, act.Text, "40")
	assert.Equal(t, model.FieldSetPoints, st.ActiveTopic)
}

func TestPolicyAcknowledgesCorrection(t *testing.T) {
	p := New(7)
	st := model.NewConversationState("c1", 10)
	st.Record.Set(model.FieldFreeLength, model.FieldValue{Number: 60, Confidence: 0.95, SourceTurn: 2})
	st.LastCorrection = &model.CorrectionNote{
		Field: model.FieldFreeLength,
		Value: model.FieldValue{Number: 60, Confidence: 0.95, SourceTurn: 2},
	}

	act := p.Decide(st, model.ResolvedUpdate{IsCorrection: true})

	assert.Equal(t, model.ActionAcknowledgeCorrection, act.Type)
	assert.Contains(t, act.Text, "60")
	assert.Contains(t, act.Text, "free length")
}

func TestPolicyProceedsWhenReady(t *testing.T) {
	p := New(7)
	st := newReadyState()

	act := p.Decide(st, model.ResolvedUpdate{})

	assert.Equal(t, model.ActionProceed, act.Type)
	assert.Contains(t, act.Text, "Spring Specifications")
	assert.Contains(t, act.Text, "free length: 58 mm")
}

func TestPolicyAcknowledgesAcceptedValues(t *testing.T) {
	p := New(7)
	st := model.NewConversationState("c1", 10)
	st.Record.Set(model.FieldFreeLength, model.FieldValue{Number: 58, Confidence: 0.9, SourceTurn: 1})

	upd := model.ResolvedUpdate{
		Accepted: map[model.Field]model.FieldValue{
			model.FieldFreeLength: {Number: 58, Confidence: 0.9, SourceTurn: 1},
		},
	}
	act := p.Decide(st, upd)

	assert.Equal(t, model.ActionAskMissing, act.Type)
	assert.Contains(t, act.Text, "58")
}

func TestPolicyDeterministicWithSeed(t *testing.T) {
	a := New(42)
	b := New(42)

	stA := model.NewConversationState("c1", 10)
	stB := model.NewConversationState("c1", 10)

	actA := a.Decide(stA, model.ResolvedUpdate{})
	actB := b.Decide(stB, model.ResolvedUpdate{})

	require.Equal(t, actA.Type, actB.Type)
	assert.Equal(t, actA.Text, actB.Text)
}

func TestRenderCompletion(t *testing.T) {
	p := New(7)
	st := newReadyState()
	st.ActiveTopic = model.FieldSetPoints

	text := p.RenderCompletion(st)

	assert.Contains(t, text, "Spring Specifications")
	assert.Contains(t, text, "set point-1")
	assert.Equal(t, model.FieldNone, st.ActiveTopic)
}
