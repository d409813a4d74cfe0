package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrLoad is returned when the configuration document cannot be read or parsed.
var ErrLoad = errors.New("config load failed")

const (
	DefaultUserAgent       = "MultiAccountBot"
	DefaultProvider        = "openai"
	DefaultChainLength     = 1
	DefaultMaxContextDepth = 25
	MaxContextDepthCap     = 100
	DefaultTemperature     = 0.7
	DefaultPostMaxTokens   = 150
	DefaultReplyMaxTokens  = 100
)

// Account holds the credentials for one Reddit script application login.
type Account struct {
	ClientID     string `yaml:"client_id" toml:"client_id"`
	ClientSecret string `yaml:"client_secret" toml:"client_secret"`
	Username     string `yaml:"username" toml:"username"`
	Password     string `yaml:"password" toml:"password"`
	UserAgent    string `yaml:"user_agent" toml:"user_agent"`
}

// Personality is the static description and memory a bot writes with.
type Personality struct {
	Description string `yaml:"description" toml:"description"`
	Memory      string `yaml:"memory" toml:"memory"`
}

// Job is one scheduled command.
type Job struct {
	Cron    string `yaml:"cron" toml:"cron"`
	Command string `yaml:"command" toml:"command"`
	Bot     string `yaml:"bot" toml:"bot"`
	Target  string `yaml:"target" toml:"target"`
}

type Config struct {
	Accounts   []Account `yaml:"accounts" toml:"accounts"`
	Subreddits []string  `yaml:"subreddits" toml:"subreddits"`
	Replies    struct {
		ChainLength     int `yaml:"chain_length" toml:"chain_length"`
		MaxContextDepth int `yaml:"max_context_depth" toml:"max_context_depth"`
		LookupCacheSize int `yaml:"lookup_cache_size" toml:"lookup_cache_size"`
	} `yaml:"replies" toml:"replies"`

	OpenAIAPIKey    string `yaml:"openai_api_key" toml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key" toml:"anthropic_api_key"`
	GeminiAPIKey    string `yaml:"gemini_api_key" toml:"gemini_api_key"`

	OpenAI struct {
		PostPrompt  string `yaml:"post_prompt" toml:"post_prompt"`
		ReplyPrompt string `yaml:"reply_prompt" toml:"reply_prompt"`
	} `yaml:"openai" toml:"openai"`

	Generation struct {
		Provider       string   `yaml:"provider" toml:"provider"`
		Model          string   `yaml:"model" toml:"model"`
		BaseURL        string   `yaml:"base_url" toml:"base_url"`
		Temperature    *float64 `yaml:"temperature" toml:"temperature"`
		PostMaxTokens  int      `yaml:"post_max_tokens" toml:"post_max_tokens"`
		ReplyMaxTokens int      `yaml:"reply_max_tokens" toml:"reply_max_tokens"`
	} `yaml:"generation" toml:"generation"`

	Personalities map[string]Personality `yaml:"personalities" toml:"personalities"`

	Rotation struct {
		// Shared makes every bot borrow the next account from the pool
		// instead of keeping its own.
		Shared bool `yaml:"shared" toml:"shared"`
	} `yaml:"rotation" toml:"rotation"`

	Schedule []Job `yaml:"schedule" toml:"schedule"`

	Notify struct {
		Discord struct {
			Token     string `yaml:"token" toml:"token"`
			ChannelID string `yaml:"channel_id" toml:"channel_id"`
		} `yaml:"discord" toml:"discord"`
		Slack struct {
			WebhookURL string `yaml:"webhook_url" toml:"webhook_url"`
		} `yaml:"slack" toml:"slack"`
	} `yaml:"notify" toml:"notify"`

	Logging struct {
		Level  string `yaml:"level" toml:"level"`
		Format string `yaml:"format" toml:"format"`
	} `yaml:"logging" toml:"logging"`
}

// LoadConfig reads a YAML or TOML document (picked by extension), fills
// defaults and blank secrets from the environment.
func LoadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	config := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(file, config)
	default:
		err = yaml.Unmarshal(file, config)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrLoad, path, err)
	}

	config.applyEnv()
	if err := config.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	config.applyDefaults()
	return config, nil
}

// applyEnv fills blank secrets from the process environment (.env is loaded by main).
func (c *Config) applyEnv() {
	fill := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fill(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	fill(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	fill(&c.GeminiAPIKey, "GEMINI_API_KEY")
	fill(&c.Notify.Discord.Token, "DISCORD_TOKEN")
	fill(&c.Notify.Slack.WebhookURL, "SLACK_WEBHOOK_URL")
}

func (c *Config) applyDefaults() {
	for i := range c.Accounts {
		if c.Accounts[i].UserAgent == "" {
			c.Accounts[i].UserAgent = DefaultUserAgent
		}
	}
	if c.Replies.ChainLength == 0 {
		c.Replies.ChainLength = DefaultChainLength
	}
	if c.Replies.MaxContextDepth <= 0 {
		c.Replies.MaxContextDepth = DefaultMaxContextDepth
	}
	if c.Replies.MaxContextDepth > MaxContextDepthCap {
		c.Replies.MaxContextDepth = MaxContextDepthCap
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = DefaultProvider
	}
	c.Generation.Provider = strings.ToLower(c.Generation.Provider)
	if c.Generation.Temperature == nil {
		t := DefaultTemperature
		c.Generation.Temperature = &t
	}
	if c.Generation.PostMaxTokens == 0 {
		c.Generation.PostMaxTokens = DefaultPostMaxTokens
	}
	if c.Generation.ReplyMaxTokens == 0 {
		c.Generation.ReplyMaxTokens = DefaultReplyMaxTokens
	}
	if c.Personalities == nil {
		c.Personalities = map[string]Personality{}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// GenerationAPIKey returns the key of the configured provider, or "" when
// generation is disabled.
func (c *Config) GenerationAPIKey() string {
	switch c.Generation.Provider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// PersonalityFor returns the profile configured for username, or an empty one.
func (c *Config) PersonalityFor(username string) Personality {
	return c.Personalities[username]
}

// Validate checks the parts of the document that would otherwise fail late.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return errors.New("no accounts configured")
	}
	seen := make(map[string]struct{}, len(c.Accounts))
	for i, acc := range c.Accounts {
		if strings.TrimSpace(acc.Username) == "" {
			return fmt.Errorf("account %d: username is required", i)
		}
		if _, ok := seen[acc.Username]; ok {
			return fmt.Errorf("account %q is configured twice", acc.Username)
		}
		seen[acc.Username] = struct{}{}
	}
	switch c.Generation.Provider {
	case "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("unsupported generation provider %q", c.Generation.Provider)
	}
	if c.Replies.ChainLength < 0 {
		return fmt.Errorf("replies.chain_length must not be negative, got %d", c.Replies.ChainLength)
	}
	if t := c.Generation.Temperature; t != nil && *t < 0 {
		return fmt.Errorf("generation.temperature must not be negative, got %g", *t)
	}
	if c.Replies.LookupCacheSize < 0 {
		return fmt.Errorf("replies.lookup_cache_size must not be negative, got %d", c.Replies.LookupCacheSize)
	}
	return nil
}
