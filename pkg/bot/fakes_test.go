package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"redditbots/pkg/config"
	"redditbots/pkg/notify"
	"redditbots/pkg/platform"
)

var errForbidden = errors.New("403 forbidden")

type submission struct {
	Subreddit string
	Title     string
	Body      string
}

type reply struct {
	Parent string
	Text   string
}

// fakeHandle records every write and fails on demand.
type fakeHandle struct {
	name string

	mu          sync.Mutex
	submitErr   map[string]error
	recent      []platform.Post
	recentErr   error
	recentLimit int
	replyErr    error
	nodes       map[string]platform.Node
	submissions []submission
	replies     []reply
	seq         int
}

func newFakeHandle(name string) *fakeHandle {
	return &fakeHandle{name: name, submitErr: map[string]error{}, nodes: map[string]platform.Node{}}
}

func (h *fakeHandle) Username(context.Context) (string, error) { return h.name, nil }

func (h *fakeHandle) Subreddit(name string) platform.Subreddit {
	return &fakeSubreddit{handle: h, name: name}
}

func (h *fakeHandle) Lookup(_ context.Context, fullname string) (platform.Node, error) {
	n, ok := h.nodes[fullname]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", platform.ErrOperationFailed, fullname)
	}
	return n, nil
}

func (h *fakeHandle) Reply(_ context.Context, node platform.Node, text string) (platform.Comment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.replyErr != nil {
		return platform.Comment{}, fmt.Errorf("%w: %w", platform.ErrOperationFailed, h.replyErr)
	}
	h.seq++
	parent := platform.FullName(node)
	h.replies = append(h.replies, reply{Parent: parent, Text: text})
	return platform.NewComment(fmt.Sprintf("%s_c%d", h.name, h.seq), text, parent,
		func(context.Context) (platform.Node, error) { return node, nil }), nil
}

func (h *fakeHandle) Submissions() []submission {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]submission(nil), h.submissions...)
}

func (h *fakeHandle) Replies() []reply {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]reply(nil), h.replies...)
}

type fakeSubreddit struct {
	handle *fakeHandle
	name   string
}

func (s *fakeSubreddit) Name() string { return s.name }

func (s *fakeSubreddit) Submit(_ context.Context, title, body string) (platform.Submission, error) {
	h := s.handle
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.submitErr[s.name]; err != nil {
		return platform.Submission{}, fmt.Errorf("%w: %w", platform.ErrOperationFailed, err)
	}
	h.seq++
	h.submissions = append(h.submissions, submission{Subreddit: s.name, Title: title, Body: body})
	return platform.Submission{ID: fmt.Sprintf("p%d", h.seq)}, nil
}

func (s *fakeSubreddit) Recent(_ context.Context, limit int) ([]platform.Post, error) {
	h := s.handle
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recentLimit = limit
	if h.recentErr != nil {
		return nil, fmt.Errorf("%w: %w", platform.ErrOperationFailed, h.recentErr)
	}
	return h.recent, nil
}

type fakeAuthenticator struct {
	handles map[string]*fakeHandle
	err     error
}

func (a *fakeAuthenticator) Authenticate(_ context.Context, account config.Account) (platform.Handle, error) {
	if a.err != nil {
		return nil, a.err
	}
	h, ok := a.handles[account.Username]
	if !ok {
		h = newFakeHandle(account.Username)
		a.handles[account.Username] = h
	}
	return h, nil
}

// scriptedGenerator returns queued post results in order and records the
// learned context it was given.
type scriptedGenerator struct {
	mu      sync.Mutex
	posts   []postResult
	learned []string
	calls   int
}

type postResult struct {
	title, body string
	err         error
}

func (g *scriptedGenerator) GeneratePost(_ context.Context, learned string) (string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.learned = append(g.learned, learned)
	g.calls++
	if len(g.posts) == 0 {
		return "Title", "Body", nil
	}
	r := g.posts[0]
	g.posts = g.posts[1:]
	return r.title, r.body, r.err
}

func (g *scriptedGenerator) GenerateReply(_ context.Context, target platform.Node, chainIndex int) (string, error) {
	return fmt.Sprintf("reply %d to %s", chainIndex, platform.FullName(target)), nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}
