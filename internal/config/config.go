// Package config provides configuration types and loading for ringline.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, Bot, Model, Engine, Subconscious, Providers,
// Audit, Gateway, Handoff.
type Config struct {
	Paths        PathsConfig        `json:"paths"`
	Bot          BotConfig          `json:"bot"`
	Model        ModelConfig        `json:"model"`
	Engine       EngineConfig       `json:"engine"`
	Subconscious SubconsciousConfig `json:"subconscious"`
	Providers    ProvidersConfig    `json:"providers"`
	Audit        AuditConfig        `json:"audit"`
	Gateway      GatewayConfig      `json:"gateway"`
	Handoff      HandoffConfig      `json:"handoff"`
}

// PathsConfig groups all filesystem path settings. Both databases are
// sqlite files; DataDir is their default parent.
type PathsConfig struct {
	DataDir      string `json:"dataDir" envconfig:"DATA_DIR"`
	CallStore    string `json:"callStore" envconfig:"CALL_STORE"`
	Database     string `json:"database" envconfig:"DATABASE"`
	RecallStore  string `json:"recallStore" envconfig:"RECALL_STORE"`
	SeedDatabase bool   `json:"seedDatabase" envconfig:"SEED_DATABASE"`
}

// BotConfig is the spoken persona.
type BotConfig struct {
	Name     string `json:"name" envconfig:"NAME"`
	Company  string `json:"company" envconfig:"COMPANY"`
	Greeting string `json:"greeting" envconfig:"GREETING"`
}

// ModelConfig groups LLM model settings shared by both loops.
type ModelConfig struct {
	Name        string  `json:"name" envconfig:"MODEL"`
	MaxTokens   int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature float64 `json:"temperature" envconfig:"TEMPERATURE"`
}

// EngineConfig tunes the conscious completion loop.
type EngineConfig struct {
	MaxRounds     int `json:"maxRounds" envconfig:"MAX_ROUNDS"`
	FillerDelayMS int `json:"fillerDelayMs" envconfig:"FILLER_DELAY_MS"`
}

// FillerDelay returns the filler delay as a duration.
func (c EngineConfig) FillerDelay() time.Duration {
	return time.Duration(c.FillerDelayMS) * time.Millisecond
}

// SubconsciousConfig tunes the background analysis loop.
type SubconsciousConfig struct {
	Model            string `json:"model,omitempty" envconfig:"MODEL"`
	IntervalSeconds  int    `json:"intervalSeconds" envconfig:"INTERVAL_SECONDS"`
	ToolResultBudget int    `json:"toolResultBudget" envconfig:"TOOL_RESULT_BUDGET"`
	RecallLimit      int    `json:"recallLimit" envconfig:"RECALL_LIMIT"`
}

// Interval returns the pass interval as a duration.
func (c SubconsciousConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// ProvidersConfig contains LLM provider credentials.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `json:"openai"`
}

// OpenAIConfig configures the OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase" envconfig:"API_BASE"`
}

// AuditConfig configures the Kafka audit trail. Disabled when no
// brokers are set.
type AuditConfig struct {
	Brokers []string `json:"brokers" envconfig:"BROKERS"`
	Topic   string   `json:"topic" envconfig:"TOPIC"`
}

// Enabled reports whether audit publishing is configured.
func (c AuditConfig) Enabled() bool { return len(c.Brokers) > 0 }

// GatewayConfig configures the websocket telephony gateway.
type GatewayConfig struct {
	Listen string `json:"listen" envconfig:"LISTEN"`
}

// HandoffConfig configures human handoff notifications. Disabled when
// no token is set.
type HandoffConfig struct {
	SlackToken   string `json:"slackToken" envconfig:"SLACK_TOKEN"`
	SlackChannel string `json:"slackChannel" envconfig:"SLACK_CHANNEL"`
}

// Enabled reports whether Slack notification is configured.
func (c HandoffConfig) Enabled() bool { return c.SlackToken != "" }

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Name:     "Ring",
			Company:  "Ringline Tickets",
			Greeting: "Thanks for calling Ringline. How can I help you today?",
		},
		Model: ModelConfig{
			Name:        "gpt-4o-mini",
			MaxTokens:   600,
			Temperature: 0.4,
		},
		Engine: EngineConfig{
			MaxRounds:     8,
			FillerDelayMS: 500,
		},
		Subconscious: SubconsciousConfig{
			IntervalSeconds:  15,
			ToolResultBudget: 100,
			RecallLimit:      3,
		},
		Audit: AuditConfig{
			Topic: "ringline.audit",
		},
		Gateway: GatewayConfig{
			Listen: ":8090",
		},
	}
}
