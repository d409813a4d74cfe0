package platform

import (
	"context"
	"errors"
	"strings"
)

const (
	commentPrefix = "t1_"
	postPrefix    = "t3_"
)

// ErrNoParent is returned by Comment.Parent when the comment carries no way
// to resolve its parent.
var ErrNoParent = errors.New("comment has no resolvable parent")

// Node is a post or a comment. The set of implementations is closed.
type Node interface {
	FullName() string
	node()
}

// Post is a submission at the root of a thread.
type Post struct {
	ID        string
	Title     string
	Body      string
	Subreddit string
}

func (p Post) FullName() string { return postPrefix + p.ID }
func (Post) node()              {}

// ParentFunc resolves the parent of a comment.
type ParentFunc func(ctx context.Context) (Node, error)

// Comment is a reply to a post or another comment.
type Comment struct {
	ID   string
	Body string
	// ParentID is the fullname of the parent; empty for detached comments.
	ParentID string

	parent ParentFunc
}

// NewComment returns a comment whose parent is resolved by parent.
func NewComment(id, body, parentID string, parent ParentFunc) Comment {
	return Comment{ID: id, Body: body, ParentID: parentID, parent: parent}
}

func (c Comment) FullName() string { return commentPrefix + c.ID }
func (Comment) node()              {}

// HasParent reports whether the comment references a parent at all.
func (c Comment) HasParent() bool { return c.ParentID != "" }

// Parent fetches the node this comment replies to.
func (c Comment) Parent(ctx context.Context) (Node, error) {
	if c.ParentID == "" || c.parent == nil {
		return nil, ErrNoParent
	}
	return c.parent(ctx)
}

// IsCommentRef reports whether fullname points at a comment.
func IsCommentRef(fullname string) bool {
	return strings.HasPrefix(fullname, commentPrefix)
}

// IsPostRef reports whether fullname points at a post.
func IsPostRef(fullname string) bool {
	return strings.HasPrefix(fullname, postPrefix)
}

// FullName returns the fullname of n, or "" for nil.
func FullName(n Node) string {
	if n == nil {
		return ""
	}
	return n.FullName()
}

// ShortID strips the type prefix from a fullname.
func ShortID(fullname string) string {
	if _, id, ok := strings.Cut(fullname, "_"); ok && len(fullname) > 3 && fullname[0] == 't' {
		return id
	}
	return fullname
}
