package dialogue

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/coilworks/springchat/internal/agent/model"
	logx "github.com/coilworks/springchat/pkg/logger"
)

// Policy turns resolved state into the next conversational act. Template
// selection is driven by its own rand source so tests can pin a seed and
// assert exact responses.
type Policy struct {
	rng *rand.Rand
}

// New builds a policy. A zero seed means time-seeded, for production use.
func New(seed int64) *Policy {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Policy{rng: rand.New(rand.NewSource(seed))}
}

// Decide picks the next action for the turn. Priority: open confirmation,
// open clarification, correction acknowledgement, completion, then the
// highest-priority missing field. It also maintains the active topic so the
// next turn's extraction knows what question a bare value answers.
func (p *Policy) Decide(st *model.ConversationState, upd model.ResolvedUpdate) model.Action {
	act := p.decide(st, upd)
	act.Text = p.render(st, upd, act)

	switch {
	case act.Type == model.ActionAskMissing:
		st.ActiveTopic = act.Field
	case act.Type == model.ActionAskClarification && act.Ambiguity != nil && act.Ambiguity.Reason == model.ReasonIncompletePair:
		st.ActiveTopic = model.FieldSetPoints
	case act.Type == model.ActionAskConfirmation, act.Type == model.ActionAskClarification:
		st.ActiveTopic = model.FieldNone
	}

	logx.Debug().Str("conversation_id", st.ConversationID).
		Str("action", act.Type.String()).Str("field", string(act.Field)).
		Bool("follow_up", act.IsFollowUp).Msg("dialogue action decided")
	return act
}

func (p *Policy) decide(st *model.ConversationState, upd model.ResolvedUpdate) model.Action {
	if st.PendingConfirmation != nil {
		return model.Action{
			Type:       model.ActionAskConfirmation,
			Field:      st.PendingConfirmation.Field,
			Candidate:  st.PendingConfirmation,
			IsFollowUp: st.ConfirmationSince < st.Turn,
		}
	}
	if st.PendingAmbiguity != nil {
		f := model.FieldNone
		if len(st.PendingAmbiguity.CandidateFields) == 1 {
			f = st.PendingAmbiguity.CandidateFields[0]
		}
		return model.Action{
			Type:       model.ActionAskClarification,
			Field:      f,
			Ambiguity:  st.PendingAmbiguity,
			IsFollowUp: st.AmbiguitySince < st.Turn,
		}
	}
	if st.LastCorrection != nil {
		return model.Action{
			Type:       model.ActionAcknowledgeCorrection,
			Field:      st.LastCorrection.Field,
			Correction: st.LastCorrection,
		}
	}
	if st.Record.ReadyToGenerate() {
		return model.Action{Type: model.ActionProceed}
	}
	f := p.nextMissing(st)
	// Asking the active topic again means the last ask went unanswered.
	return model.Action{Type: model.ActionAskMissing, Field: f, IsFollowUp: st.ActiveTopic == f}
}

// RenderCompletion renders the final ready-to-generate response with the
// collected specification.
func (p *Policy) RenderCompletion(st *model.ConversationState) string {
	st.ActiveTopic = model.FieldNone
	return fmt.Sprintf(p.pick(proceedTemplates), st.Record.Summary())
}

func (p *Policy) nextMissing(st *model.ConversationState) model.Field {
	for _, f := range model.AskPriority() {
		if !st.Record.Has(f) {
			return f
		}
	}
	return model.FieldFreeLength
}

func (p *Policy) render(st *model.ConversationState, upd model.ResolvedUpdate, act model.Action) string {
	var parts []string
	if s := p.acceptedAck(upd, act); s != "" {
		parts = append(parts, s)
	}

	switch act.Type {
	case model.ActionAskConfirmation:
		pool := confirmTemplates
		if act.IsFollowUp {
			pool = confirmFollowUpTemplates
		}
		parts = append(parts, fmt.Sprintf(p.pick(pool), act.Field.Label(), candidateValue(act.Candidate)))

	case model.ActionAskClarification:
		parts = append(parts, p.renderClarification(act.Ambiguity))

	case model.ActionAcknowledgeCorrection:
		parts = append(parts, fmt.Sprintf(p.pick(correctionAckTemplates),
			act.Field.Label(), correctionValue(st, act.Correction)))
		// Keep the conversation moving after the acknowledgement.
		if st.Record.ReadyToGenerate() {
			parts = append(parts, fmt.Sprintf(p.pick(proceedTemplates), st.Record.Summary()))
		} else {
			parts = append(parts, p.pick(askTemplates[p.nextMissing(st)]))
		}

	case model.ActionProceed:
		parts = append(parts, fmt.Sprintf(p.pick(proceedTemplates), st.Record.Summary()))

	case model.ActionAskMissing:
		if act.IsFollowUp {
			parts = append(parts, fmt.Sprintf(p.pick(followUpAskTemplates), act.Field.Label()))
		} else {
			parts = append(parts, p.pick(askTemplates[act.Field]))
		}
	}

	return strings.Join(parts, " ")
}

// acceptedAck prefixes the response with a short acknowledgement of what the
// turn captured. Corrections and proceed render their own summaries.
func (p *Policy) acceptedAck(upd model.ResolvedUpdate, act model.Action) string {
	if act.Type == model.ActionAcknowledgeCorrection || act.Type == model.ActionProceed {
		return ""
	}
	if len(upd.Accepted) == 0 && len(upd.AcceptedPairs) == 0 {
		return ""
	}
	var vals []string
	for _, f := range model.AskPriority() {
		if fv, ok := upd.Accepted[f]; ok {
			vals = append(vals, fmt.Sprintf("%s %s", f.Label(), fieldValueText(f, fv)))
		}
	}
	for _, sp := range upd.AcceptedPairs {
		vals = append(vals, fmt.Sprintf("set point %.6gmm at %.6gN", sp.Position, sp.Load))
	}
	return fmt.Sprintf("%s %s.", p.pick(acceptedAckTemplates), strings.Join(vals, ", "))
}

func (p *Policy) renderClarification(req *model.AmbiguityRequest) string {
	if req == nil {
		return p.pick(unresolvedCorrectionTemplates)
	}
	switch req.Reason {
	case model.ReasonAmbiguousValue:
		labels := make([]string, len(req.CandidateFields))
		for i, f := range req.CandidateFields {
			labels[i] = f.Label()
		}
		return fmt.Sprintf(p.pick(ambiguousTemplates),
			fmt.Sprintf("%.6g", req.RawValue), strings.Join(labels, " or the "))
	case model.ReasonIncompletePair:
		return fmt.Sprintf(p.pick(incompletePairTemplates), fmt.Sprintf("%.6g", req.RawValue))
	default:
		if len(req.CandidateFields) == 1 {
			return fmt.Sprintf(p.pick(unresolvedCorrectionFieldTemplates), req.CandidateFields[0].Label())
		}
		return p.pick(unresolvedCorrectionTemplates)
	}
}

func (p *Policy) pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[p.rng.Intn(len(pool))]
}

func candidateValue(c *model.Candidate) string {
	if c == nil {
		return ""
	}
	spec, _ := model.Spec(c.Field)
	switch {
	case c.Field == model.FieldSetPoints && len(c.Pairs) > 0:
		var parts []string
		for _, sp := range c.Pairs {
			parts = append(parts, fmt.Sprintf("%.6gmm at %.6gN", sp.Position, sp.Load))
		}
		return strings.Join(parts, ", ")
	case spec.Kind == model.KindText:
		return c.Text
	default:
		return formatNumber(c.Field, c.Number)
	}
}

func correctionValue(st *model.ConversationState, c *model.CorrectionNote) string {
	if c == nil {
		return ""
	}
	if c.Field == model.FieldSetPoints {
		if n := len(st.Record.SetPoints); n > 0 {
			sp := st.Record.SetPoints[n-1]
			return fmt.Sprintf("%.6gmm at %.6gN", sp.Position, sp.Load)
		}
		return "updated"
	}
	return fieldValueText(c.Field, c.Value)
}

func fieldValueText(f model.Field, v model.FieldValue) string {
	spec, _ := model.Spec(f)
	if spec.Kind == model.KindText {
		return v.Text
	}
	return formatNumber(f, v.Number)
}

func formatNumber(f model.Field, v float64) string {
	spec, _ := model.Spec(f)
	if spec.Unit != "" {
		return fmt.Sprintf("%.6g %s", v, spec.Unit)
	}
	return fmt.Sprintf("%.6g", v)
}
