package model

// TurnInput is the graph input for processing one user message.
type TurnInput struct {
	ConversationID string `json:"conversation_id"`
	Utterance      string `json:"utterance"`
}

// TurnResult is what the entry point hands back per message.
type TurnResult struct {
	ResponseText    string          `json:"response_text"`
	Record          ParameterRecord `json:"parameter_record"`
	ReadyToGenerate bool            `json:"ready_to_generate"`
}

// TurnState stores per-invocation state for the turn pipeline graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside graph state handlers
//     (WithStatePreHandler / WithStatePostHandler), which the graph engine
//     serializes, so no mutex is required.
//   - Cross-turn state lives in ConversationState, not here.
type TurnState struct {
	ConversationID string
	Utterance      string
	CandidateCount int
	AcceptedCount  int
	ActionType     ActionType
}
