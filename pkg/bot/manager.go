package bot

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"redditbots/pkg/accounts"
	"redditbots/pkg/config"
	"redditbots/pkg/generator"
	"redditbots/pkg/notify"
	"redditbots/pkg/platform"
)

// Manager owns one Bot per configured account.
type Manager struct {
	bots   []*Bot
	byName map[string]*Bot
	pool   *accounts.Rotator[platform.Handle]
	logger *zap.Logger
}

type managerOptions struct {
	logger   *zap.Logger
	notifier notify.Notifier
}

type ManagerOption func(*managerOptions)

func WithLogger(l *zap.Logger) ManagerOption {
	return func(o *managerOptions) { o.logger = l }
}

func WithNotifier(n notify.Notifier) ManagerOption {
	return func(o *managerOptions) { o.notifier = n }
}

// NewManager signs every account in and builds the bots. Any sign-in
// failure is returned. A nil completer gives every bot the NullGenerator.
func NewManager(ctx context.Context, cfg *config.Config, auth platform.Authenticator, completer generator.Completer, opts ...ManagerOption) (*Manager, error) {
	o := managerOptions{logger: zap.NewNop(), notifier: notify.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}

	handles := make([]platform.Handle, 0, len(cfg.Accounts))
	for _, account := range cfg.Accounts {
		h, err := auth.Authenticate(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("authenticate %s: %w", account.Username, err)
		}
		handles = append(handles, h)
	}
	pool := accounts.NewRotator(handles)

	prompts := generator.PromptsFromConfig(cfg)
	genOpts := generator.OptionsFromConfig(cfg)

	m := &Manager{
		bots:   make([]*Bot, 0, len(cfg.Accounts)),
		byName: make(map[string]*Bot, len(cfg.Accounts)),
		pool:   pool,
		logger: o.logger,
	}
	botLogger := o.logger.Named("bot")
	for i, account := range cfg.Accounts {
		var gen generator.ContentGenerator = generator.NullGenerator{}
		if completer != nil {
			gen = generator.New(completer, prompts, cfg.PersonalityFor(account.Username), genOpts,
				o.logger.Named("generator").With(zap.String("bot", account.Username)))
		}

		var dedicated platform.Handle
		if !cfg.Rotation.Shared {
			dedicated = handles[i]
		}

		b := New(account.Username, Options{
			Handle:      dedicated,
			Pool:        pool,
			Generator:   gen,
			Subreddits:  cfg.Subreddits,
			ChainLength: cfg.Replies.ChainLength,
			Notifier:    o.notifier,
			Logger:      botLogger,
		})
		m.bots = append(m.bots, b)
		m.byName[account.Username] = b
	}

	o.logger.Info("bots ready",
		zap.Int("bots", len(m.bots)),
		zap.Bool("shared_rotation", cfg.Rotation.Shared),
		zap.Bool("generation", completer != nil),
	)
	return m, nil
}

// Bots returns the bots in configuration order.
func (m *Manager) Bots() []*Bot {
	return append([]*Bot(nil), m.bots...)
}

// Bot finds a bot by username.
func (m *Manager) Bot(username string) (*Bot, bool) {
	b, ok := m.byName[username]
	return b, ok
}

// DispatchToAll runs cmd on every bot in turn.
func (m *Manager) DispatchToAll(ctx context.Context, cmd Command, target Target) {
	ctx = WithRunID(ctx, uuid.NewString())
	m.logger.Info("dispatching to all bots",
		zap.String("run_id", RunID(ctx)),
		zap.String("command", string(cmd)),
		zap.Int("bots", len(m.bots)),
	)
	for _, b := range m.bots {
		b.HandleCommand(ctx, cmd, target)
	}
}

// DispatchToOne runs cmd on the bot named username.
func (m *Manager) DispatchToOne(ctx context.Context, username string, cmd Command, target Target) {
	ctx = WithRunID(ctx, uuid.NewString())
	b, ok := m.byName[username]
	if !ok {
		m.logger.Error("cannot dispatch",
			zap.String("run_id", RunID(ctx)),
			zap.String("bot", username),
			zap.String("command", string(cmd)),
			zap.Error(ErrAgentNotFound),
		)
		return
	}
	b.HandleCommand(ctx, cmd, target)
}

// Lookup resolves fullname through username's session, or through the
// shared pool when username is empty.
func (m *Manager) Lookup(ctx context.Context, username, fullname string) (platform.Node, error) {
	if username == "" {
		h, err := m.pool.Next()
		if err != nil {
			return nil, err
		}
		return h.Lookup(ctx, fullname)
	}
	b, ok := m.byName[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, username)
	}
	return b.Lookup(ctx, fullname)
}
