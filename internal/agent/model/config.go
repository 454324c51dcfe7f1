package model

// ================ Config ================
type ConversationConfig struct {
	TTL             string `envconfig:"CONVERSATION_TTL" default:"15m"`
	MaxHistoryTurns int    `envconfig:"CONVERSATION_MAX_HISTORY_TURNS" default:"10"`
	// PairMaxAgeTurns is how many turns a half-formed set point may wait for
	// its counterpart before it is surfaced as a partial-information prompt.
	PairMaxAgeTurns int `envconfig:"CONVERSATION_PAIR_MAX_AGE_TURNS" default:"2"`
	// MaxUtteranceLen bounds a single inbound message in bytes.
	MaxUtteranceLen int `envconfig:"CONVERSATION_MAX_UTTERANCE_LEN" default:"8192"`
}

type DialogueConfig struct {
	// TemplateSeed fixes the template random source; 0 seeds from the clock.
	TemplateSeed int64 `envconfig:"DIALOGUE_TEMPLATE_SEED" default:"0"`
}

type PhrasingModelConfig struct {
	Enabled     bool    `envconfig:"PHRASING_ENABLED" default:"false"`
	Model       string  `envconfig:"PHRASING_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"PHRASING_MAX_TOKENS" default:"500"`
	Temperature float32 `envconfig:"PHRASING_TEMPERATURE" default:"0.4"`
}
