// Package bot holds the per-account agents and the manager that dispatches
// commands to them.
package bot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"redditbots/pkg/generator"
	"redditbots/pkg/notify"
	"redditbots/pkg/platform"
)

// LearnLimit is how many recent posts LearnAndPost reads.
const LearnLimit = 5

// HandleSource hands out a handle per operation. *accounts.Rotator
// satisfies it.
type HandleSource interface {
	Next() (platform.Handle, error)
}

// Options configure a Bot. Handle is the dedicated session; when nil the
// bot borrows one from Pool on every operation.
type Options struct {
	Handle      platform.Handle
	Pool        HandleSource
	Generator   generator.ContentGenerator
	Subreddits  []string
	ChainLength int
	Notifier    notify.Notifier
	Logger      *zap.Logger
}

// Bot acts on reddit as one configured account. Per-operation failures are
// logged and reported to the notifier, never returned.
type Bot struct {
	username    string
	handle      platform.Handle
	pool        HandleSource
	gen         generator.ContentGenerator
	subreddits  []string
	chainLength int
	notifier    notify.Notifier
	logger      *zap.Logger
}

func New(username string, opts Options) *Bot {
	if opts.Generator == nil {
		opts.Generator = generator.NullGenerator{}
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ChainLength < 1 {
		opts.ChainLength = 1
	}
	return &Bot{
		username:    username,
		handle:      opts.Handle,
		pool:        opts.Pool,
		gen:         opts.Generator,
		subreddits:  append([]string(nil), opts.Subreddits...),
		chainLength: opts.ChainLength,
		notifier:    opts.Notifier,
		logger:      opts.Logger.With(zap.String("bot", username)),
	}
}

func (b *Bot) Username() string { return b.username }

// Dedicated reports whether the bot owns its session.
func (b *Bot) Dedicated() bool { return b.handle != nil }

func (b *Bot) session() (platform.Handle, error) {
	if b.handle != nil {
		return b.handle, nil
	}
	if b.pool == nil {
		return nil, fmt.Errorf("bot %s has no session", b.username)
	}
	return b.pool.Next()
}

func (b *Bot) log(ctx context.Context) *zap.Logger {
	if id := RunID(ctx); id != "" {
		return b.logger.With(zap.String("run_id", id))
	}
	return b.logger
}

func (b *Bot) notify(ctx context.Context, e notify.Event) {
	e.Bot = b.username
	if err := b.notifier.Notify(ctx, e); err != nil {
		b.log(ctx).Warn("notification failed", zap.String("action", e.Action), zap.Error(err))
	}
}

func accountName(ctx context.Context, h platform.Handle) string {
	name, err := h.Username(ctx)
	if err != nil {
		return ""
	}
	return name
}

// Lookup resolves a fullname through the bot's session.
func (b *Bot) Lookup(ctx context.Context, fullname string) (platform.Node, error) {
	h, err := b.session()
	if err != nil {
		return nil, err
	}
	return h.Lookup(ctx, fullname)
}

// Post submits a freshly generated post to every configured subreddit.
func (b *Bot) Post(ctx context.Context) {
	log := b.log(ctx)
	if len(b.subreddits) == 0 {
		log.Warn("no subreddits configured, nothing to post")
		return
	}

	// One session for the whole operation, so a shared pool advances once.
	h, err := b.session()
	if err != nil {
		log.Error("no session for post", zap.Error(err))
		b.notify(ctx, notify.Event{Action: "post", Err: err})
		return
	}

	for _, name := range b.subreddits {
		b.postTo(ctx, log.With(zap.String("subreddit", name)), h, name)
	}
}

func (b *Bot) postTo(ctx context.Context, log *zap.Logger, h platform.Handle, subreddit string) {
	title, body, err := b.gen.GeneratePost(ctx, "")
	if err != nil {
		log.Error("error generating post", zap.Error(err))
		b.notify(ctx, notify.Event{Action: "post", Subreddit: subreddit, Err: err})
		return
	}

	submission, err := h.Subreddit(subreddit).Submit(ctx, title, body)
	if err != nil {
		log.Error("error posting", zap.Error(err))
		b.notify(ctx, notify.Event{Action: "post", Subreddit: subreddit, Err: err})
		return
	}

	log.Info("posted",
		zap.String("submission_id", submission.ID),
		zap.String("url", submission.URL),
		zap.String("account", accountName(ctx, h)),
	)
	b.notify(ctx, notify.Event{Action: "post", Subreddit: subreddit, ThingID: submission.ID})
}

// Reply answers node once.
func (b *Bot) Reply(ctx context.Context, node platform.Node) {
	b.reply(ctx, node, 0)
}

// ReplyChain posts chain-length replies, each one answering the previous.
// It stops at the first failure.
func (b *Bot) ReplyChain(ctx context.Context, node platform.Node) {
	current := node
	for i := 0; i < b.chainLength; i++ {
		comment, ok := b.reply(ctx, current, i)
		if !ok {
			return
		}
		current = comment
	}
}

func (b *Bot) reply(ctx context.Context, node platform.Node, chainIndex int) (platform.Comment, bool) {
	target := platform.FullName(node)
	log := b.log(ctx).With(zap.String("target", target), zap.Int("chain_index", chainIndex))

	h, err := b.session()
	if err != nil {
		log.Error("no session for reply", zap.Error(err))
		b.notify(ctx, notify.Event{Action: "reply", Target: target, Err: err})
		return platform.Comment{}, false
	}

	text, err := b.gen.GenerateReply(ctx, node, chainIndex)
	if err != nil {
		log.Error("error generating reply", zap.Error(err))
		b.notify(ctx, notify.Event{Action: "reply", Target: target, Err: err})
		return platform.Comment{}, false
	}

	comment, err := h.Reply(ctx, node, text)
	if err != nil {
		log.Error("error replying", zap.Error(err))
		b.notify(ctx, notify.Event{Action: "reply", Target: target, Err: err})
		return platform.Comment{}, false
	}

	log.Info("replied",
		zap.String("comment_id", comment.ID),
		zap.String("account", accountName(ctx, h)),
	)
	b.notify(ctx, notify.Event{Action: "reply", Target: target, ThingID: comment.ID})
	return comment, true
}

// LearnAndPost reads the newest posts of subreddit and writes a new one in
// their style. Nothing is submitted if the read fails.
func (b *Bot) LearnAndPost(ctx context.Context, subreddit string) {
	log := b.log(ctx).With(zap.String("subreddit", subreddit))

	h, err := b.session()
	if err != nil {
		log.Error("no session for learn", zap.Error(err))
		b.notify(ctx, notify.Event{Action: "learn", Subreddit: subreddit, Err: err})
		return
	}
	sub := h.Subreddit(subreddit)

	recent, err := sub.Recent(ctx, LearnLimit)
	if err != nil {
		log.Error("error learning from subreddit", zap.Error(err))
		b.notify(ctx, notify.Event{Action: "learn", Subreddit: subreddit, Err: err})
		return
	}

	title, body, err := b.gen.GeneratePost(ctx, LearnedContext(recent))
	if err != nil {
		log.Error("error generating post", zap.Error(err))
		b.notify(ctx, notify.Event{Action: "learn", Subreddit: subreddit, Err: err})
		return
	}

	submission, err := sub.Submit(ctx, title, body)
	if err != nil {
		log.Error("error posting learned content", zap.Error(err))
		b.notify(ctx, notify.Event{Action: "learn", Subreddit: subreddit, Err: err})
		return
	}

	log.Info("posted learned content",
		zap.Int("learned_from", len(recent)),
		zap.String("submission_id", submission.ID),
		zap.String("account", accountName(ctx, h)),
	)
	b.notify(ctx, notify.Event{Action: "learn", Subreddit: subreddit, ThingID: submission.ID})
}

// LearnedContext renders posts as title/body blocks separated by blank lines.
func LearnedContext(posts []platform.Post) string {
	blocks := make([]string, 0, len(posts))
	for _, p := range posts {
		blocks = append(blocks, generator.FormatPost(p))
	}
	return strings.Join(blocks, "\n\n")
}

// HandleCommand runs cmd against target. Bad input is logged, not returned.
func (b *Bot) HandleCommand(ctx context.Context, cmd Command, target Target) {
	log := b.log(ctx).With(zap.String("command", string(cmd)))

	switch cmd {
	case CommandPost:
		b.Post(ctx)
	case CommandReply, CommandReplyChain:
		if target.Node == nil {
			log.Error("cannot run command", zap.Error(ErrMissingTarget))
			return
		}
		if cmd == CommandReply {
			b.Reply(ctx, target.Node)
		} else {
			b.ReplyChain(ctx, target.Node)
		}
	case CommandLearn:
		if target.Subreddit == "" {
			log.Error("cannot run command", zap.Error(ErrMissingTarget))
			return
		}
		b.LearnAndPost(ctx, target.Subreddit)
	default:
		log.Error("cannot run command", zap.Error(ErrUnknownCommand))
	}
}

type runIDKey struct{}

// WithRunID tags ctx so every log line of the dispatch carries id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
