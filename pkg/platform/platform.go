// Package platform describes the content platform the bots act on. The
// interfaces are implemented by pkg/reddit and by fakes in tests.
package platform

import (
	"context"
	"errors"

	"redditbots/pkg/config"
)

// ErrOperationFailed wraps every error coming back from the platform.
var ErrOperationFailed = errors.New("platform operation failed")

// Submission is the result of creating a post.
type Submission struct {
	ID  string
	URL string
}

// Authenticator opens one session per account credential.
type Authenticator interface {
	Authenticate(ctx context.Context, account config.Account) (Handle, error)
}

// Handle is an authenticated session bound to one account.
type Handle interface {
	// Username returns the name of the account the session acts as.
	Username(ctx context.Context) (string, error)
	Subreddit(name string) Subreddit
	// Lookup fetches a post or comment by fullname (t3_xxx, t1_xxx).
	Lookup(ctx context.Context, fullname string) (Node, error)
	// Reply posts text as a reply to node.
	Reply(ctx context.Context, node Node, text string) (Comment, error)
}

// Subreddit is a community the bot can read from and post to.
type Subreddit interface {
	Name() string
	Submit(ctx context.Context, title, body string) (Submission, error)
	// Recent returns the newest posts, newest first.
	Recent(ctx context.Context, limit int) ([]Post, error)
}
