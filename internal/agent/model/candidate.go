package model

// Candidate is a single turn's tentative extraction for one field. It is
// owned by the resolver for the duration of one turn and never outlives it
// unless promoted into state.
type Candidate struct {
	Field      Field
	RawText    string
	Number     float64
	Text       string
	Pairs      []SetPoint
	Half       *HalfPair
	Confidence float64
}

// HalfPair is a position-only or load-only set-point extraction awaiting its
// counterpart. Turn records when the half was seen so stale halves can be
// surfaced instead of silently dropped.
type HalfPair struct {
	Position *float64 `json:"position,omitempty"`
	Load     *float64 `json:"load,omitempty"`
	Turn     int      `json:"turn"`
}

// ClarificationReason distinguishes why the resolver asks for clarification.
type ClarificationReason int

const (
	// ReasonAmbiguousValue marks a bare number plausible for several fields.
	ReasonAmbiguousValue ClarificationReason = iota
	// ReasonUnresolvedCorrection marks a correction whose target field could
	// not be identified.
	ReasonUnresolvedCorrection
	// ReasonIncompletePair marks a half-formed set point left unpaired for
	// too many turns.
	ReasonIncompletePair
)

// AmbiguityRequest asks the user to disambiguate rather than letting the
// resolver guess.
type AmbiguityRequest struct {
	RawText         string              `json:"raw_text"`
	RawValue        float64             `json:"raw_value"`
	CandidateFields []Field             `json:"candidate_fields"`
	Reason          ClarificationReason `json:"reason"`
}

// CorrectionNote records an accepted correction for acknowledgement.
type CorrectionNote struct {
	Field Field
	Value FieldValue
}

// ResolvedUpdate is the resolver's verdict on one turn's candidates.
type ResolvedUpdate struct {
	Accepted           map[Field]FieldValue
	AcceptedPairs      []SetPoint
	NeedsConfirmation  *Candidate
	NeedsClarification *AmbiguityRequest
	IsCorrection       bool
	Correction         *CorrectionNote
}

// ActionType enumerates the dialogue policy's conversational acts.
type ActionType int

const (
	ActionAskMissing ActionType = iota
	ActionAskConfirmation
	ActionAskClarification
	ActionAcknowledgeCorrection
	ActionProceed
)

func (t ActionType) String() string {
	switch t {
	case ActionAskMissing:
		return "ask_missing"
	case ActionAskConfirmation:
		return "ask_confirmation"
	case ActionAskClarification:
		return "ask_clarification"
	case ActionAcknowledgeCorrection:
		return "acknowledge_correction"
	case ActionProceed:
		return "proceed"
	default:
		return "unknown"
	}
}

// Action is the next conversational act plus its rendered utterance. The
// utterance is chosen from a template pool and carries no semantic weight;
// callers must branch on Type, never on Text.
type Action struct {
	Type       ActionType
	Field      Field
	IsFollowUp bool
	Candidate  *Candidate
	Ambiguity  *AmbiguityRequest
	Correction *CorrectionNote
	Text       string
}
