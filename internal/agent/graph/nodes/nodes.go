package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/coilworks/springchat/internal/agent/dialogue"
	"github.com/coilworks/springchat/internal/agent/extract"
	"github.com/coilworks/springchat/internal/agent/model"
	"github.com/coilworks/springchat/internal/agent/resolve"
	logx "github.com/coilworks/springchat/pkg/logger"
)

// Node names used across the turn pipeline graph.
const (
	NodeExtractor = "Extractor"
	NodeResolver  = "Resolver"
	NodeComposer  = "Composer"
	NodeFinalizer = "Finalizer"
)

// NewExtractorPreHandler seeds the turn-local state from the graph input.
func NewExtractorPreHandler() func(context.Context, model.TurnInput, *model.TurnState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.TurnState) (model.TurnInput, error) {
		s.ConversationID = in.ConversationID
		s.Utterance = in.Utterance
		s.CandidateCount = 0
		s.AcceptedCount = 0
		return in, nil
	}
}

// NewExtractorNode creates the Extractor node. The node closes over the
// conversation state owned by the manager; the graph is never invoked
// concurrently for the same conversation.
func NewExtractorNode(ex *extract.Extractor, st *model.ConversationState) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) ([]model.Candidate, error) {
		return ex.Extract(in.Utterance, st.ActiveTopic), nil
	})
}

// NewExtractorPostHandler records the candidate count for turn diagnostics.
func NewExtractorPostHandler() func(context.Context, []model.Candidate, *model.TurnState) ([]model.Candidate, error) {
	return func(ctx context.Context, out []model.Candidate, s *model.TurnState) ([]model.Candidate, error) {
		s.CandidateCount = len(out)
		logx.Debug().
			Str("conversation_id", s.ConversationID).
			Str("node", NodeExtractor).
			Int("candidates", len(out)).
			Msg("extraction complete")
		return out, nil
	}
}

// NewResolverNode creates the Resolver node.
func NewResolverNode(r *resolve.Resolver, st *model.ConversationState) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, cands []model.Candidate) (model.ResolvedUpdate, error) {
		var utterance string
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			utterance = s.Utterance
			return nil
		})
		if err != nil {
			return model.ResolvedUpdate{}, fmt.Errorf("failed to access state: %w", err)
		}
		return r.Resolve(utterance, cands, st), nil
	})
}

// NewResolverPostHandler records how much of the turn was accepted.
func NewResolverPostHandler() func(context.Context, model.ResolvedUpdate, *model.TurnState) (model.ResolvedUpdate, error) {
	return func(ctx context.Context, out model.ResolvedUpdate, s *model.TurnState) (model.ResolvedUpdate, error) {
		s.AcceptedCount = len(out.Accepted) + len(out.AcceptedPairs)
		logx.Debug().
			Str("conversation_id", s.ConversationID).
			Str("node", NodeResolver).
			Int("accepted", s.AcceptedCount).
			Bool("correction", out.IsCorrection).
			Msg("resolution complete")
		return out, nil
	}
}

// NewFinalizeCondition routes a turn that leaves nothing open and both
// mandatory fields filled to the Finalizer; everything else keeps talking.
func NewFinalizeCondition(st *model.ConversationState) func(context.Context, model.ResolvedUpdate) (string, error) {
	return func(ctx context.Context, upd model.ResolvedUpdate) (string, error) {
		open := st.PendingConfirmation != nil ||
			st.PendingAmbiguity != nil ||
			st.CorrectionMode ||
			st.LastCorrection != nil ||
			upd.NeedsClarification != nil
		if !open && st.Record.ReadyToGenerate() {
			logx.Debug().Str("conversation_id", st.ConversationID).
				Msg("Routing to Finalizer - record complete with nothing pending")
			return NodeFinalizer, nil
		}
		return NodeComposer, nil
	}
}

// NewComposerNode creates the Composer node: the dialogue policy picks and
// renders the next conversational act.
func NewComposerNode(p *dialogue.Policy, st *model.ConversationState) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, upd model.ResolvedUpdate) (model.TurnResult, error) {
		act := p.Decide(st, upd)
		if err := recordAction(ctx, act.Type); err != nil {
			return model.TurnResult{}, err
		}
		return model.TurnResult{
			ResponseText:    act.Text,
			Record:          st.Record.Snapshot(),
			ReadyToGenerate: st.Record.ReadyToGenerate(),
		}, nil
	})
}

// NewFinalizerNode creates the Finalizer node: the record is complete, so it
// renders the final specification summary.
func NewFinalizerNode(p *dialogue.Policy, st *model.ConversationState) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, upd model.ResolvedUpdate) (model.TurnResult, error) {
		if err := recordAction(ctx, model.ActionProceed); err != nil {
			return model.TurnResult{}, err
		}
		return model.TurnResult{
			ResponseText:    p.RenderCompletion(st),
			Record:          st.Record.Snapshot(),
			ReadyToGenerate: true,
		}, nil
	})
}

// NewResultPostHandler logs the decided act once per turn.
func NewResultPostHandler(node string) func(context.Context, model.TurnResult, *model.TurnState) (model.TurnResult, error) {
	return func(ctx context.Context, out model.TurnResult, s *model.TurnState) (model.TurnResult, error) {
		logx.Debug().
			Str("conversation_id", s.ConversationID).
			Str("node", node).
			Str("action", s.ActionType.String()).
			Bool("ready_to_generate", out.ReadyToGenerate).
			Msg("turn response composed")
		return out, nil
	}
}

func recordAction(ctx context.Context, t model.ActionType) error {
	return compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
		s.ActionType = t
		return nil
	})
}
