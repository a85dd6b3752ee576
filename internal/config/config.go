// Package config loads parleyd configuration from a JSON file or from
// PARLEY_-prefixed environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/parley-io/parley/pkg/protocol"
)

// Config is the top-level parley configuration.
type Config struct {
	Daemon     DaemonConfig               `json:"daemon"`
	Agents     []protocol.AgentDescriptor `json:"agents"`
	Backend    BackendConfig              `json:"backend"`
	API        APIConfig                  `json:"api"`
	Connectors ConnectorConfig            `json:"connectors"`
	Schedules  []ScheduleConfig           `json:"schedules"`
	Params     map[string]any             `json:"params,omitempty"`
}

// DaemonConfig holds daemon-level settings.
type DaemonConfig struct {
	ID      string `json:"id"`
	DataDir string `json:"data_dir"`
}

// BackendConfig holds remote generation backend settings. An empty
// BaseURL means every turn runs on the local simulator.
type BackendConfig struct {
	BaseURL         string `json:"base_url,omitempty"`
	APIKey          string `json:"api_key,omitempty"`
	CompletionsPath string `json:"completions_path,omitempty"`
	TimeoutMS       int    `json:"timeout_ms,omitempty"`
}

// APIConfig holds REST API server settings.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Key  string `json:"api_key"`
}

// ConnectorConfig holds settings for inbound chat surfaces.
type ConnectorConfig struct {
	Webhook  map[string]WebhookEndpoint `json:"webhook,omitempty"`
	Telegram *TelegramConfig            `json:"telegram,omitempty"`
	Slack    *SlackConfig               `json:"slack,omitempty"`
}

// WebhookEndpoint holds per-endpoint webhook auth. Secret enables
// HMAC-SHA256 verification; otherwise BearerToken is checked.
type WebhookEndpoint struct {
	Secret      string `json:"secret,omitempty"`
	BearerToken string `json:"bearer_token,omitempty"`
	AgentID     string `json:"agent_id,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token     string  `json:"token"`
	AgentID   string  `json:"agent_id,omitempty"`
	AllowFrom []int64 `json:"allow_from,omitempty"`
}

// SlackConfig holds Slack socket-mode settings.
type SlackConfig struct {
	AppToken string `json:"app_token"`
	BotToken string `json:"bot_token"`
	AgentID  string `json:"agent_id,omitempty"`
}

// ScheduleConfig declares a recurring prompt submitted through the
// pipeline (standard cron expression or @every form).
type ScheduleConfig struct {
	Schedule string `json:"schedule"`
	AgentID  string `json:"agent_id"`
	Prompt   string `json:"prompt"`
}

// DefaultAgents is the built-in persona roster used when the config
// declares none.
func DefaultAgents() []protocol.AgentDescriptor {
	return []protocol.AgentDescriptor{
		{
			ID:          "planner",
			Name:        "Planner",
			Description: "Breaks a request into grounded steps before anything else.",
			Icon:        "🧭",
			Expertise:   []string{"decomposition", "sequencing"},
		},
		{
			ID:          "researcher",
			Name:        "Researcher",
			Description: "Leads with retrieved evidence and provenance.",
			Icon:        "🔎",
			Expertise:   []string{"retrieval", "citation"},
		},
		{
			ID:          "writer",
			Name:        "Writer",
			Description: "Synthesizes the sources into one coherent answer.",
			Icon:        "✍️",
			Expertise:   []string{"synthesis", "style"},
		},
	}
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from environment variables with the
// PARLEY_ prefix.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Daemon: DaemonConfig{
			ID:      getenv("PARLEY_ID", "parley"),
			DataDir: getenv("PARLEY_DATA_DIR", "/data"),
		},
		Backend: BackendConfig{
			BaseURL:         os.Getenv("PARLEY_BACKEND_URL"),
			APIKey:          os.Getenv("PARLEY_BACKEND_KEY"),
			CompletionsPath: os.Getenv("PARLEY_BACKEND_PATH"),
			TimeoutMS:       getenvInt("PARLEY_BACKEND_TIMEOUT_MS", 0),
		},
		API: APIConfig{
			Host: getenv("PARLEY_API_HOST", "0.0.0.0"),
			Port: getenvInt("PARLEY_API_PORT", 8080),
			Key:  os.Getenv("PARLEY_API_KEY"),
		},
	}

	if token := os.Getenv("PARLEY_TELEGRAM_TOKEN"); token != "" {
		cfg.Connectors.Telegram = &TelegramConfig{Token: token}
		if ids := os.Getenv("PARLEY_TELEGRAM_ALLOW_FROM"); ids != "" {
			parsed, err := parseInt64List(ids)
			if err != nil {
				return nil, fmt.Errorf("config: PARLEY_TELEGRAM_ALLOW_FROM: %w", err)
			}
			cfg.Connectors.Telegram.AllowFrom = parsed
		}
	}
	if app := os.Getenv("PARLEY_SLACK_APP_TOKEN"); app != "" {
		cfg.Connectors.Slack = &SlackConfig{
			AppToken: app,
			BotToken: os.Getenv("PARLEY_SLACK_BOT_TOKEN"),
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Agents) == 0 {
		c.Agents = DefaultAgents()
	}
	if c.Backend.TimeoutMS <= 0 {
		c.Backend.TimeoutMS = 12000
	}
	if c.Connectors.Telegram != nil && c.Connectors.Telegram.AgentID == "" {
		c.Connectors.Telegram.AgentID = c.Agents[0].ID
	}
	if c.Connectors.Slack != nil && c.Connectors.Slack.AgentID == "" {
		c.Connectors.Slack.AgentID = c.Agents[0].ID
	}
}

// Validate checks for required fields, collecting every problem.
func (c *Config) Validate() error {
	var errs []string

	if c.Daemon.ID == "" {
		errs = append(errs, "daemon.id is required")
	}
	if c.Daemon.DataDir == "" {
		errs = append(errs, "daemon.data_dir is required")
	}

	seen := make(map[string]bool)
	for i, a := range c.Agents {
		if a.ID == "" {
			errs = append(errs, fmt.Sprintf("agents[%d].id is required", i))
			continue
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Sprintf("agents[%d].id %q is duplicated", i, a.ID))
		}
		seen[a.ID] = true
	}

	for i, s := range c.Schedules {
		if s.Schedule == "" {
			errs = append(errs, fmt.Sprintf("schedules[%d].schedule is required", i))
		}
		if s.Prompt == "" {
			errs = append(errs, fmt.Sprintf("schedules[%d].prompt is required", i))
		}
		if s.AgentID != "" && !seen[s.AgentID] {
			errs = append(errs, fmt.Sprintf("schedules[%d].agent_id references unknown agent %q", i, s.AgentID))
		}
	}

	if c.Connectors.Telegram != nil && c.Connectors.Telegram.Token == "" {
		errs = append(errs, "connectors.telegram.token is required")
	}
	if c.Connectors.Slack != nil {
		if c.Connectors.Slack.AppToken == "" {
			errs = append(errs, "connectors.slack.app_token is required")
		}
		if c.Connectors.Slack.BotToken == "" {
			errs = append(errs, "connectors.slack.bot_token is required")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseInt64List(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	result := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		result = append(result, n)
	}
	return result, nil
}
