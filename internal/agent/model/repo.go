package model

import "context"

// RecordRepository persists the parameter record and bounded turn history
// across sessions. Persistence is an external concern: callers treat every
// operation as best-effort.
type RecordRepository interface {
	// SaveRecord stores the current parameter record for the conversation.
	SaveRecord(ctx context.Context, conversationID string, record *ParameterRecord) error

	// LoadRecord retrieves the persisted parameter record, or nil when none exists.
	LoadRecord(ctx context.Context, conversationID string) (*ParameterRecord, error)

	// AppendTurn appends one turn summary to the conversation's history.
	AppendTurn(ctx context.Context, conversationID string, turn TurnSummary) error

	// LoadTurns retrieves the persisted turn history.
	LoadTurns(ctx context.Context, conversationID string) ([]TurnSummary, error)

	// Clear removes all persisted data for the conversation.
	Clear(ctx context.Context, conversationID string) error
}
