package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"redditbots/pkg/anthropic"
	"redditbots/pkg/bot"
	"redditbots/pkg/config"
	"redditbots/pkg/gemini"
	"redditbots/pkg/generator"
	"redditbots/pkg/logging"
	"redditbots/pkg/notify"
	"redditbots/pkg/openai"
	"redditbots/pkg/platform"
	"redditbots/pkg/reddit"
)

const envPrefix = "REDDITBOTS"

type app struct {
	viper *viper.Viper
	// auth overrides the reddit authenticator, for tests.
	auth   platform.Authenticator
	cfg    *config.Config
	logger *zap.Logger
}

func newApp() *app {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &app{viper: v, logger: zap.NewNop()}
}

// bindFlags lets REDDITBOTS_CONFIG and friends stand in for flags.
func (a *app) bindFlags(cmd *cobra.Command) error {
	for _, name := range []string{"config", "log-level", "bot"} {
		if err := a.viper.BindPFlag(name, cmd.PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// load reads .env, the config document and sets up logging. Any failure here
// stops the process.
func (a *app) load() error {
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig(a.viper.GetString("config"))
	if err != nil {
		return err
	}
	if level := a.viper.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", config.ErrLoad, err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrLoad, err)
	}
	if envErr != nil {
		logger.Debug("no .env file found, relying on environment variables")
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) botFlag() string {
	return a.viper.GetString("bot")
}

func (a *app) newManager(ctx context.Context) (*bot.Manager, error) {
	completer, err := newCompleter(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	notifier, err := newNotifier(a.cfg)
	if err != nil {
		return nil, err
	}
	auth := a.auth
	if auth == nil {
		auth = reddit.Authenticator{LookupCacheSize: a.cfg.Replies.LookupCacheSize}
	}
	return bot.NewManager(ctx, a.cfg, auth, completer,
		bot.WithLogger(a.logger),
		bot.WithNotifier(notifier),
	)
}

// newCompleter returns nil when the selected provider has no key, which
// makes every bot fall back to placeholder content.
func newCompleter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (generator.Completer, error) {
	provider := cfg.Generation.Provider
	key := cfg.GenerationAPIKey()
	if key == "" {
		logger.Warn("no generation API key set, bots will post placeholder content", zap.String("provider", provider))
		return nil, nil
	}

	model, baseURL := cfg.Generation.Model, cfg.Generation.BaseURL
	switch provider {
	case "openai":
		return openai.NewClient(key, model, baseURL), nil
	case "anthropic":
		return anthropic.NewClient(key, model, baseURL), nil
	case "gemini":
		c, err := gemini.NewClient(ctx, key, model, baseURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unsupported generation provider %q", provider)
}

func newNotifier(cfg *config.Config) (notify.Notifier, error) {
	var notifiers notify.Multi

	discord := cfg.Notify.Discord
	switch {
	case discord.Token != "" && discord.ChannelID != "":
		d, err := notify.NewDiscord(discord.Token, discord.ChannelID)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, d)
	case discord.Token != "" || discord.ChannelID != "":
		return nil, errors.New("notify.discord needs both token and channel_id")
	}

	if url := cfg.Notify.Slack.WebhookURL; url != "" {
		notifiers = append(notifiers, notify.NewSlack(url))
	}

	if len(notifiers) == 0 {
		return notify.Nop{}, nil
	}
	return notifiers, nil
}
