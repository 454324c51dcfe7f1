package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/coilworks/springchat/internal/agent/dialogue"
	"github.com/coilworks/springchat/internal/agent/extract"
	"github.com/coilworks/springchat/internal/agent/graph/nodes"
	"github.com/coilworks/springchat/internal/agent/model"
	"github.com/coilworks/springchat/internal/agent/resolve"
	logx "github.com/coilworks/springchat/pkg/logger"
)

// Runner is a thin wrapper to execute the compiled graph with the public TurnInput.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (model.TurnResult, error)
}

// GraphConfig holds all components needed to build the turn pipeline graph.
// The conversation state is shared with the owning manager; the graph must
// not be invoked concurrently for the same conversation.
type GraphConfig struct {
	Extractor *extract.Extractor
	Resolver  *resolve.Resolver
	Policy    *dialogue.Policy
	State     *model.ConversationState
}

// GraphBuilder handles the construction of the turn pipeline graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, model.TurnResult]
}

type graphRunner struct {
	runnable compose.Runnable[model.TurnInput, model.TurnResult]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.TurnInput) (model.TurnResult, error) {
	return r.runnable.Invoke(ctx, in)
}

// BuildTurnGraph constructs, compiles and wraps the turn pipeline graph.
func BuildTurnGraph(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("turn graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled turn pipeline graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, model.TurnResult], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Extractor == nil || config.Resolver == nil || config.Policy == nil {
		return nil, fmt.Errorf("graph components are not properly initialized")
	}
	if config.State == nil {
		return nil, fmt.Errorf("conversation state is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, model.TurnResult](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeExtractor,
		nodes.NewExtractorNode(b.config.Extractor, b.config.State),
		compose.WithStatePreHandler(nodes.NewExtractorPreHandler()),
		compose.WithStatePostHandler(nodes.NewExtractorPostHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeResolver,
		nodes.NewResolverNode(b.config.Resolver, b.config.State),
		compose.WithStatePostHandler(nodes.NewResolverPostHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeComposer,
		nodes.NewComposerNode(b.config.Policy, b.config.State),
		compose.WithStatePostHandler(nodes.NewResultPostHandler(nodes.NodeComposer)),
	)

	b.graph.AddLambdaNode(nodes.NodeFinalizer,
		nodes.NewFinalizerNode(b.config.Policy, b.config.State),
		compose.WithStatePostHandler(nodes.NewResultPostHandler(nodes.NodeFinalizer)),
	)
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeExtractor},
		{nodes.NodeExtractor, nodes.NodeResolver},
		{nodes.NodeComposer, compose.END},
		{nodes.NodeFinalizer, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	finalizeBranch := compose.NewGraphBranch(
		nodes.NewFinalizeCondition(b.config.State),
		map[string]bool{
			nodes.NodeComposer:  true,
			nodes.NodeFinalizer: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeResolver, finalizeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding finalize branch")
		return fmt.Errorf("error adding finalize branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, model.TurnResult], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(10))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
