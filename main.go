package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/coilworks/springchat/internal/agent/conversations"
	"github.com/coilworks/springchat/internal/agent/model"
	"github.com/coilworks/springchat/internal/agent/phrasing"
	"github.com/coilworks/springchat/internal/agent/repo"
	"github.com/coilworks/springchat/internal/core"
	logx "github.com/coilworks/springchat/pkg/logger"
	pkgredis "github.com/coilworks/springchat/pkg/redis"
)

// AppConfig defines all configurable parameters for the collection example,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider, only needed when phrasing is enabled
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Conversation model.ConversationConfig
	Dialogue     model.DialogueConfig
	Phrasing     model.PhrasingModelConfig
}

func main() {
	fmt.Println("Spring test specification collector")
	ctx := context.Background()
	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	rdb, err := envCfg.Redis.New(ctx)
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	fmt.Println("Connected to Redis successfully")

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}

	var phraser conversations.Phraser
	if envCfg.Phrasing.Enabled {
		p, err := phrasing.NewGeminiPhraser(ctx, phrasing.Config{
			APIKey:  envCfg.APIKey,
			BaseURL: envCfg.BaseURL,
			Model:   envCfg.Phrasing,
		})
		if err != nil {
			log.Fatalf("Failed to create phrasing model: %v", err)
		}
		phraser = p
	}

	manager, err := conversations.NewManager(ctx, conversations.Config{
		ConversationID: uuid.NewString(),
		Conversation:   envCfg.Conversation,
		Dialogue:       envCfg.Dialogue,
		Repo:           repo.NewRedisRecordRepository(rdb, ttl),
		Phraser:        phraser,
	})
	if err != nil {
		log.Fatalf("Failed to create conversation manager: %v", err)
	}

	testUtterances := []struct {
		description string
		utterance   string
	}{
		{
			description: "Opening with a partial specification",
			utterance:   "I need a test for a compression spring, free length is 58mm",
		},
		{
			description: "Set points in one message",
			utterance:   "test positions 40mm at 23.6N and 33mm at 34.14N",
		},
		{
			description: "Extra detail with a typo",
			utterance:   "wire diamter 1.2mm, od is 12mm",
		},
		{
			description: "Correcting a stated value",
			utterance:   "no, the free length is actually 60mm",
		},
	}

	for i, test := range testUtterances {
		fmt.Printf("\nTurn %d: %s\n", i+1, test.description)
		fmt.Printf("User: %q\n", test.utterance)

		result, err := manager.ProcessTurn(ctx, test.utterance)
		if err != nil {
			log.Fatalf("Failed to process turn %d: %v", i+1, err)
		}

		fmt.Printf("Assistant: %s\n", result.ResponseText)
		fmt.Printf("Ready to generate: %v\n", result.ReadyToGenerate)
		fmt.Println("-----------------------------------------------")
	}

	record := manager.Record()
	fmt.Println("\nCollected record:")
	fmt.Println(record.Summary())
}
