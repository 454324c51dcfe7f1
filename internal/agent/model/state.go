package model

// TurnSummary is a bounded per-turn digest kept in state instead of the full
// transcript.
type TurnSummary struct {
	Turn      int     `json:"turn"`
	Utterance string  `json:"utterance"`
	Response  string  `json:"response"`
	Accepted  []Field `json:"accepted,omitempty"`
}

// ConversationState is the mutable per-conversation record of what is known,
// what is pending and what was recently said. It is exclusively owned by one
// conversation manager and must never be mutated concurrently.
type ConversationState struct {
	ConversationID string

	Record *ParameterRecord

	// ActiveTopic is the field the system just asked about, if any.
	ActiveTopic Field

	PendingConfirmation *Candidate
	// ConfirmationSince is the turn the pending confirmation was first asked.
	ConfirmationSince int

	PendingAmbiguity *AmbiguityRequest
	// AmbiguitySince is the turn the pending ambiguity was first asked.
	AmbiguitySince int

	CorrectionMode bool

	// LastCorrection is set by the resolver for the turn that produced it and
	// consumed by the dialogue policy when acknowledging.
	LastCorrection *CorrectionNote

	// PendingHalves holds position-only or load-only set-point extractions
	// awaiting their counterpart, in arrival order.
	PendingHalves []HalfPair

	Turn    int
	history []TurnSummary
	maxHist int
}

// NewConversationState creates state for a fresh conversation.
func NewConversationState(conversationID string, maxHistoryTurns int) *ConversationState {
	if maxHistoryTurns <= 0 {
		maxHistoryTurns = 10
	}
	return &ConversationState{
		ConversationID: conversationID,
		Record:         NewParameterRecord(),
		maxHist:        maxHistoryTurns,
	}
}

// Reset discards everything except the conversation identity.
func (s *ConversationState) Reset() {
	s.Record = NewParameterRecord()
	s.ActiveTopic = FieldNone
	s.PendingConfirmation = nil
	s.ConfirmationSince = 0
	s.PendingAmbiguity = nil
	s.AmbiguitySince = 0
	s.CorrectionMode = false
	s.LastCorrection = nil
	s.PendingHalves = nil
	s.Turn = 0
	s.history = nil
}

// AppendTurn records a turn summary, keeping only the most recent N.
func (s *ConversationState) AppendTurn(t TurnSummary) {
	s.history = append(s.history, t)
	if len(s.history) > s.maxHist {
		s.history = s.history[len(s.history)-s.maxHist:]
	}
}

// History returns a copy of the bounded turn history.
func (s *ConversationState) History() []TurnSummary {
	out := make([]TurnSummary, len(s.history))
	copy(out, s.history)
	return out
}

// StaleHalves returns pending half-pairs older than maxAge turns.
func (s *ConversationState) StaleHalves(maxAge int) []HalfPair {
	var out []HalfPair
	for _, h := range s.PendingHalves {
		if s.Turn-h.Turn >= maxAge {
			out = append(out, h)
		}
	}
	return out
}
