// Package reddit implements the platform interfaces on top of go-reddit.
package reddit

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vartanbeno/go-reddit/v2/reddit"

	"redditbots/pkg/config"
	"redditbots/pkg/platform"
)

// Authenticator opens script-app sessions. BaseURL and TokenURL are only set
// when talking to something other than reddit.com. LookupCacheSize > 0 keeps
// that many resolved posts and comments per session.
type Authenticator struct {
	BaseURL         string
	TokenURL        string
	LookupCacheSize int
}

// Authenticate builds a client for one account. go-reddit fetches the OAuth
// token lazily on the first request.
func (a Authenticator) Authenticate(_ context.Context, account config.Account) (platform.Handle, error) {
	userAgent := account.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	opts := []reddit.Opt{reddit.WithUserAgent(userAgent)}
	if a.BaseURL != "" {
		opts = append(opts, reddit.WithBaseURL(a.BaseURL))
	}
	if a.TokenURL != "" {
		opts = append(opts, reddit.WithTokenURL(a.TokenURL))
	}

	client, err := reddit.NewClient(reddit.Credentials{
		ID:       account.ClientID,
		Secret:   account.ClientSecret,
		Username: account.Username,
		Password: account.Password,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("reddit client for %s: %w", account.Username, err)
	}
	h := &Handle{client: client, configured: account.Username}
	if a.LookupCacheSize > 0 {
		h.lookups, err = lru.New[string, platform.Node](a.LookupCacheSize)
		if err != nil {
			return nil, fmt.Errorf("lookup cache for %s: %w", account.Username, err)
		}
	}
	return h, nil
}

// Handle is an authenticated reddit session.
type Handle struct {
	client     *reddit.Client
	configured string
	lookups    *lru.Cache[string, platform.Node]

	nameOnce sync.Once
	name     string
}

// Username asks reddit who the session is logged in as. The answer is cached;
// on failure the configured username is returned.
func (h *Handle) Username(ctx context.Context) (string, error) {
	h.nameOnce.Do(func() {
		user, _, err := h.client.Account.Info(ctx)
		if err != nil || user == nil || user.Name == "" {
			h.name = h.configured
			return
		}
		h.name = user.Name
	})
	return h.name, nil
}

func (h *Handle) Subreddit(name string) platform.Subreddit {
	return &Subreddit{client: h.client, name: name}
}

// Lookup fetches a post or comment by fullname.
func (h *Handle) Lookup(ctx context.Context, fullname string) (platform.Node, error) {
	if h.lookups != nil {
		if node, ok := h.lookups.Get(fullname); ok {
			return node, nil
		}
	}

	node, err := h.fetch(ctx, fullname)
	if err != nil {
		return nil, err
	}
	if h.lookups != nil {
		h.lookups.Add(fullname, node)
	}
	return node, nil
}

func (h *Handle) fetch(ctx context.Context, fullname string) (platform.Node, error) {
	posts, comments, _, _, err := h.client.Listings.Get(ctx, fullname)
	if err != nil {
		return nil, wrap("lookup "+fullname, err)
	}
	if len(posts) > 0 {
		return toPost(posts[0]), nil
	}
	if len(comments) > 0 {
		return h.toComment(comments[0]), nil
	}
	return nil, fmt.Errorf("%w: %s not found", platform.ErrOperationFailed, fullname)
}

// Reply comments on node.
func (h *Handle) Reply(ctx context.Context, node platform.Node, text string) (platform.Comment, error) {
	parent := platform.FullName(node)
	comment, _, err := h.client.Comment.Submit(ctx, parent, text)
	if err != nil {
		return platform.Comment{}, wrap("reply to "+parent, err)
	}
	return h.toComment(comment), nil
}

func (h *Handle) toComment(c *reddit.Comment) platform.Comment {
	parentID := c.ParentID
	return platform.NewComment(c.ID, c.Body, parentID, func(ctx context.Context) (platform.Node, error) {
		return h.Lookup(ctx, parentID)
	})
}

// Subreddit is a handle-bound view of one community.
type Subreddit struct {
	client *reddit.Client
	name   string
}

func (s *Subreddit) Name() string { return s.name }

func (s *Subreddit) Submit(ctx context.Context, title, body string) (platform.Submission, error) {
	submitted, _, err := s.client.Post.SubmitText(ctx, reddit.SubmitTextRequest{
		Subreddit: s.name,
		Title:     title,
		Text:      body,
	})
	if err != nil {
		return platform.Submission{}, wrap("submit to r/"+s.name, err)
	}
	return platform.Submission{ID: submitted.ID, URL: submitted.URL}, nil
}

func (s *Subreddit) Recent(ctx context.Context, limit int) ([]platform.Post, error) {
	posts, _, err := s.client.Subreddit.NewPosts(ctx, s.name, &reddit.ListOptions{Limit: limit})
	if err != nil {
		return nil, wrap("list r/"+s.name, err)
	}
	out := make([]platform.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPost(p))
	}
	return out, nil
}

func toPost(p *reddit.Post) platform.Post {
	return platform.Post{
		ID:        p.ID,
		Title:     p.Title,
		Body:      p.Body,
		Subreddit: p.SubredditName,
	}
}

func wrap(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", platform.ErrOperationFailed, op, err)
}

var (
	_ platform.Authenticator = Authenticator{}
	_ platform.Handle        = (*Handle)(nil)
	_ platform.Subreddit     = (*Subreddit)(nil)
)
