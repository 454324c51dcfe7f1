package conversations

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coilworks/springchat/internal/agent/model"
	errx "github.com/coilworks/springchat/internal/core/error"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(context.Background(), Config{
		ConversationID: "test-conversation",
		Conversation: model.ConversationConfig{
			MaxHistoryTurns: 10,
			PairMaxAgeTurns: 2,
			MaxUtteranceLen: 8192,
		},
		Dialogue: model.DialogueConfig{TemplateSeed: 7},
	})
	require.NoError(t, err)
	return m
}

func TestProcessTurnCollectsMandatoryFields(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	res, err := m.ProcessTurn(ctx, "The free length is 58mm")
	require.NoError(t, err)
	assert.False(t, res.ReadyToGenerate)
	fl, ok := res.Record.Get(model.FieldFreeLength)
	require.True(t, ok)
	assert.InDelta(t, 58, fl.Number, 1e-9)

	res, err = m.ProcessTurn(ctx, "test positions 40mm at 23.6N and 33mm at 34.14N")
	require.NoError(t, err)
	assert.True(t, res.ReadyToGenerate)
	require.Len(t, res.Record.SetPoints, 2)
	assert.Contains(t, res.ResponseText, "Spring Specifications")
}

func TestProcessTurnCorrection(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.ProcessTurn(ctx, "The free length is 58mm")
	require.NoError(t, err)
	_, err = m.ProcessTurn(ctx, "test positions 40mm at 23.6N")
	require.NoError(t, err)

	res, err := m.ProcessTurn(ctx, "no, the free length is actually 60mm")
	require.NoError(t, err)
	assert.True(t, res.ReadyToGenerate, "correction must not lose readiness")
	assert.Contains(t, res.ResponseText, "60")

	fl, ok := res.Record.Get(model.FieldFreeLength)
	require.True(t, ok)
	assert.InDelta(t, 60, fl.Number, 1e-9)
}

func TestProcessTurnAmbiguousBareNumber(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	res, err := m.ProcessTurn(ctx, "it's 32")
	require.NoError(t, err)
	assert.False(t, res.ReadyToGenerate)
	assert.Contains(t, res.ResponseText, "32")
	_, ok := res.Record.Get(model.FieldOuterDiameter)
	assert.False(t, ok)

	res, err = m.ProcessTurn(ctx, "that's the outer diameter")
	require.NoError(t, err)
	od, ok := res.Record.Get(model.FieldOuterDiameter)
	require.True(t, ok)
	assert.InDelta(t, 32, od.Number, 1e-9)
}

func TestProcessTurnTargetedAnswer(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	// the opening question targets the free length
	res, err := m.ProcessTurn(ctx, "hello, I need a spring test")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(res.ResponseText), "free length")

	// so a bare value answers it, including unit conversion
	res, err = m.ProcessTurn(ctx, "it is 2 in")
	require.NoError(t, err)
	fl, ok := res.Record.Get(model.FieldFreeLength)
	require.True(t, ok)
	assert.InDelta(t, 50.8, fl.Number, 1e-9)
	assert.GreaterOrEqual(t, fl.Confidence, 0.85)
}

func TestProcessTurnInvalidInput(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		utterance string
	}{
		{name: "empty", utterance: ""},
		{name: "whitespace only", utterance: "   \t  "},
		{name: "not utf-8", utterance: string([]byte{0xff, 0xfe, 0x20})},
		{name: "oversized", utterance: strings.Repeat("a", 9000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ProcessTurn(ctx, tt.utterance)
			require.Error(t, err)
			assert.True(t, errx.IsInvalidInput(err))
		})
	}
}

func TestProcessTurnHalfPairAcrossTurns(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	res, err := m.ProcessTurn(ctx, "position is 40mm")
	require.NoError(t, err)
	assert.Empty(t, res.Record.SetPoints)

	res, err = m.ProcessTurn(ctx, "23.6N")
	require.NoError(t, err)
	require.Len(t, res.Record.SetPoints, 1)
	assert.InDelta(t, 40, res.Record.SetPoints[0].Position, 1e-9)
	assert.InDelta(t, 23.6, res.Record.SetPoints[0].Load, 1e-9)
}

func TestManagerReset(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.ProcessTurn(ctx, "The free length is 58mm")
	require.NoError(t, err)
	rec := m.Record()
	assert.NotEmpty(t, rec.Values)

	m.Reset(ctx)
	rec = m.Record()
	assert.Empty(t, rec.Values)
	assert.Empty(t, rec.SetPoints)
}

func TestManagerHistoryRecorded(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.ProcessTurn(ctx, "The free length is 58mm")
	require.NoError(t, err)

	h := m.state.History()
	require.Len(t, h, 1)
	assert.Equal(t, 1, h[0].Turn)
	assert.Equal(t, "The free length is 58mm", h[0].Utterance)
	assert.Contains(t, h[0].Accepted, model.FieldFreeLength)
}
