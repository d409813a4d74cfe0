// Package generator turns personalities, prompts and thread context into post
// and reply text using a generative-text backend.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"redditbots/pkg/config"
	"redditbots/pkg/platform"
)

// ErrGenerationFailed wraps every error returned by the Completer.
var ErrGenerationFailed = errors.New("generation failed")

// Request is a single text completion call.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completer is a generative-text backend (pkg/openai, pkg/anthropic, pkg/gemini).
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ContentGenerator produces post and reply text for one bot.
type ContentGenerator interface {
	GeneratePost(ctx context.Context, learnedContext string) (title, body string, err error)
	GenerateReply(ctx context.Context, target platform.Node, chainIndex int) (string, error)
}

// Options tune the generation calls. Zero values fall back to the config
// defaults; a nil Temperature does too, while a set one is used as is.
type Options struct {
	Temperature     *float64
	PostMaxTokens   int
	ReplyMaxTokens  int
	MaxContextDepth int
}

// OptionsFromConfig copies the generation settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Temperature:     cfg.Generation.Temperature,
		PostMaxTokens:   cfg.Generation.PostMaxTokens,
		ReplyMaxTokens:  cfg.Generation.ReplyMaxTokens,
		MaxContextDepth: cfg.Replies.MaxContextDepth,
	}
}

func (o Options) withDefaults() Options {
	if o.Temperature == nil {
		t := config.DefaultTemperature
		o.Temperature = &t
	}
	if o.PostMaxTokens <= 0 {
		o.PostMaxTokens = config.DefaultPostMaxTokens
	}
	if o.ReplyMaxTokens <= 0 {
		o.ReplyMaxTokens = config.DefaultReplyMaxTokens
	}
	if o.MaxContextDepth <= 0 {
		o.MaxContextDepth = config.DefaultMaxContextDepth
	}
	if o.MaxContextDepth > config.MaxContextDepthCap {
		o.MaxContextDepth = config.MaxContextDepthCap
	}
	return o
}

// Generator is the ContentGenerator backed by a Completer. It holds no
// mutable state and may be shared between goroutines.
type Generator struct {
	completer   Completer
	prompts     Prompts
	personality config.Personality
	opts        Options
	logger      *zap.Logger
}

// New returns a Generator writing as personality.
func New(c Completer, prompts Prompts, personality config.Personality, opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prompts.Post == "" {
		prompts.Post = DefaultPostPrompt
	}
	if prompts.Reply == "" {
		prompts.Reply = DefaultReplyPrompt
	}
	return &Generator{
		completer:   c,
		prompts:     prompts,
		personality: personality,
		opts:        opts.withDefaults(),
		logger:      logger,
	}
}

// GeneratePost asks for a post; the first line of the answer is the title.
func (g *Generator) GeneratePost(ctx context.Context, learnedContext string) (string, string, error) {
	prompt := buildPostPrompt(g.prompts.Post, g.personality, learnedContext)
	text, err := g.completer.Complete(ctx, Request{
		Prompt:      prompt,
		MaxTokens:   g.opts.PostMaxTokens,
		Temperature: *g.opts.Temperature,
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	title, body := splitPost(text)
	return title, body, nil
}

// GenerateReply asks for a reply to target, given the whole thread above it.
func (g *Generator) GenerateReply(ctx context.Context, target platform.Node, chainIndex int) (string, error) {
	threadContext := g.CollectThreadContext(ctx, target)
	prompt := buildReplyPrompt(g.prompts.Reply, g.personality, threadContext, chainIndex)

	text, err := g.completer.Complete(ctx, Request{
		Prompt:      prompt,
		MaxTokens:   g.opts.ReplyMaxTokens,
		Temperature: *g.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return strings.TrimSpace(text), nil
}

// CollectThreadContext renders the thread from the root post down to target.
func (g *Generator) CollectThreadContext(ctx context.Context, target platform.Node) string {
	return CollectThreadContext(ctx, target, g.opts.MaxContextDepth, g.logger)
}

// NullGenerator returns fixed placeholder content and never calls a backend.
type NullGenerator struct{}

func (NullGenerator) GeneratePost(context.Context, string) (string, string, error) {
	return DefaultTitle, NullBody, nil
}

func (NullGenerator) GenerateReply(_ context.Context, _ platform.Node, chainIndex int) (string, error) {
	return fmt.Sprintf("Default reply #%d", chainIndex+1), nil
}

var (
	_ ContentGenerator = (*Generator)(nil)
	_ ContentGenerator = NullGenerator{}
)
