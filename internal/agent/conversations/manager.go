package conversations

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	errx "github.com/coilworks/springchat/internal/core/error"

	"github.com/coilworks/springchat/internal/agent/dialogue"
	"github.com/coilworks/springchat/internal/agent/extract"
	"github.com/coilworks/springchat/internal/agent/graph"
	"github.com/coilworks/springchat/internal/agent/model"
	"github.com/coilworks/springchat/internal/agent/resolve"
	logx "github.com/coilworks/springchat/pkg/logger"
)

// Phraser rewrites a drafted response into more natural phrasing. It must
// preserve every value and question in the draft; implementations that fail
// just return an error and the draft is used as-is.
type Phraser interface {
	Rephrase(ctx context.Context, draft string) (string, error)
}

// Config holds everything needed to assemble a conversation manager.
// Repo and Phraser are optional; without them the manager keeps state
// in-memory only and answers with template text.
type Config struct {
	ConversationID string
	Conversation   model.ConversationConfig
	Dialogue       model.DialogueConfig
	Repo           model.RecordRepository
	Phraser        Phraser
}

// Manager owns one conversation end to end: state, the compiled turn
// pipeline, persistence and optional phrasing. It is not safe for concurrent
// use; callers serialize turns per conversation.
type Manager struct {
	state           *model.ConversationState
	runner          graph.Runner
	repo            model.RecordRepository
	phraser         Phraser
	maxUtteranceLen int
}

// NewManager assembles the extractor, resolver, dialogue policy and turn
// graph for one conversation, resuming a persisted record when one exists.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if strings.TrimSpace(cfg.ConversationID) == "" {
		return nil, fmt.Errorf("conversation id is empty")
	}

	st := model.NewConversationState(cfg.ConversationID, cfg.Conversation.MaxHistoryTurns)

	if cfg.Repo != nil {
		rec, err := cfg.Repo.LoadRecord(ctx, cfg.ConversationID)
		switch {
		case err != nil:
			logx.Warn().Str("conversation_id", cfg.ConversationID).Err(err).
				Msg("could not load persisted record, starting fresh")
		case rec != nil:
			st.Record = rec
			logx.Debug().Str("conversation_id", cfg.ConversationID).
				Msg("resumed persisted parameter record")
		}
	}

	ex := extract.New()
	runner, err := graph.BuildTurnGraph(ctx, &graph.GraphConfig{
		Extractor: ex,
		Resolver:  resolve.New(ex, cfg.Conversation.PairMaxAgeTurns),
		Policy:    dialogue.New(cfg.Dialogue.TemplateSeed),
		State:     st,
	})
	if err != nil {
		return nil, fmt.Errorf("build turn graph: %w", err)
	}

	maxLen := cfg.Conversation.MaxUtteranceLen
	if maxLen <= 0 {
		maxLen = 8192
	}

	return &Manager{
		state:           st,
		runner:          runner,
		repo:            cfg.Repo,
		phraser:         cfg.Phraser,
		maxUtteranceLen: maxLen,
	}, nil
}

// ProcessTurn is the sole entry point for one user message. Malformed input
// is the only failure surfaced to the caller; extraction ambiguity, stale
// pairs and unresolved corrections all come back as conversational responses.
func (m *Manager) ProcessTurn(ctx context.Context, utterance string) (model.TurnResult, error) {
	if err := m.validate(utterance); err != nil {
		return model.TurnResult{}, err
	}

	m.state.Turn++

	result, err := m.runner.Invoke(ctx, model.TurnInput{
		ConversationID: m.state.ConversationID,
		Utterance:      utterance,
	})
	if err != nil {
		logx.Error().Str("conversation_id", m.state.ConversationID).Err(err).
			Msg("turn pipeline failed")
		return model.TurnResult{}, errx.New(err, 500, errx.SystemErrorMessage)
	}

	if m.phraser != nil {
		if text, err := m.phraser.Rephrase(ctx, result.ResponseText); err != nil {
			logx.Warn().Str("conversation_id", m.state.ConversationID).Err(err).
				Msg("phrasing failed, using template response")
		} else if strings.TrimSpace(text) != "" {
			result.ResponseText = text
		}
	}

	m.recordTurn(ctx, utterance, result)

	return result, nil
}

// ConversationID returns the identity of the managed conversation.
func (m *Manager) ConversationID() string {
	return m.state.ConversationID
}

// Record returns a snapshot of the accumulated parameter record.
func (m *Manager) Record() model.ParameterRecord {
	return m.state.Record.Snapshot()
}

// Reset discards the conversation's collected state, locally and persisted.
func (m *Manager) Reset(ctx context.Context) {
	m.state.Reset()
	if m.repo == nil {
		return
	}
	if err := m.repo.Clear(ctx, m.state.ConversationID); err != nil {
		logx.Warn().Str("conversation_id", m.state.ConversationID).Err(err).
			Msg("could not clear persisted conversation data")
	}
}

func (m *Manager) validate(utterance string) error {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return errx.NewInvalidInput(fmt.Errorf("utterance is empty"))
	}
	if !utf8.ValidString(utterance) {
		return errx.NewInvalidInput(fmt.Errorf("utterance is not valid utf-8"))
	}
	if len(utterance) > m.maxUtteranceLen {
		return errx.NewInvalidInput(fmt.Errorf("utterance exceeds %d bytes", m.maxUtteranceLen))
	}
	return nil
}

// recordTurn keeps the bounded local history and persists best-effort.
// Persistence failures are logged, never surfaced: the in-memory state is
// authoritative for the session.
func (m *Manager) recordTurn(ctx context.Context, utterance string, result model.TurnResult) {
	summary := model.TurnSummary{
		Turn:      m.state.Turn,
		Utterance: utterance,
		Response:  result.ResponseText,
		Accepted:  m.acceptedThisTurn(),
	}
	m.state.AppendTurn(summary)

	if m.repo == nil {
		return
	}
	if err := m.repo.SaveRecord(ctx, m.state.ConversationID, m.state.Record); err != nil {
		logx.Error().Str("conversation_id", m.state.ConversationID).Err(err).
			Msg("could not persist parameter record")
	}
	if err := m.repo.AppendTurn(ctx, m.state.ConversationID, summary); err != nil {
		logx.Error().Str("conversation_id", m.state.ConversationID).Err(err).
			Msg("could not persist turn summary")
	}
}

func (m *Manager) acceptedThisTurn() []model.Field {
	var out []model.Field
	for _, f := range model.AskPriority() {
		if f == model.FieldSetPoints {
			for _, sp := range m.state.Record.SetPoints {
				if sp.SourceTurn == m.state.Turn {
					out = append(out, model.FieldSetPoints)
					break
				}
			}
			continue
		}
		if v, ok := m.state.Record.Get(f); ok && v.SourceTurn == m.state.Turn {
			out = append(out, f)
		}
	}
	return out
}
