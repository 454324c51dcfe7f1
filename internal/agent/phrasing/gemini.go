package phrasing

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/coilworks/springchat/internal/agent/model"
	logx "github.com/coilworks/springchat/pkg/logger"
)

//go:embed template/phrasing_prompt.txt
var phrasingSystemPrompt string

// Config holds what is needed to create the phrasing chat model.
type Config struct {
	APIKey  string
	BaseURL string
	Model   model.PhrasingModelConfig
}

// GeminiPhraser rewrites template responses into natural phrasing with a
// small Gemini model. All values in the draft must survive the rewrite; the
// caller falls back to the draft on any failure.
type GeminiPhraser struct {
	chatModel *gemini.ChatModel
	modelName string
}

// NewGeminiPhraser creates the phrasing chat model.
func NewGeminiPhraser(ctx context.Context, config Config) (*GeminiPhraser, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Model.Model,
		Temperature: &config.Model.Temperature,
		MaxTokens:   &config.Model.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating phrasing model")
		return nil, fmt.Errorf("error creating phrasing model: %w", err)
	}

	return &GeminiPhraser{chatModel: chatModel, modelName: config.Model.Model}, nil
}

// Rephrase rewrites the draft. An empty model response is an error so the
// caller keeps the draft.
func (p *GeminiPhraser) Rephrase(ctx context.Context, draft string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(phrasingSystemPrompt),
		schema.UserMessage(draft),
	}

	out, err := p.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("phrasing generate: %w", err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", fmt.Errorf("phrasing model returned empty response")
	}

	logx.Debug().Str("model", p.modelName).Msg("response rephrased")
	return strings.TrimSpace(out.Content), nil
}
