// Package notify forwards bot outcomes to chat channels so operators can
// follow the fleet without tailing logs.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Event describes the outcome of one platform write.
type Event struct {
	Bot       string
	Action    string
	Subreddit string
	// Target is the fullname replied to, if any.
	Target  string
	ThingID string
	Err     error
}

// Text renders the event as a single chat line.
func (e Event) Text() string {
	var b strings.Builder
	if e.Err != nil {
		b.WriteString("❌ ")
	} else {
		b.WriteString("✅ ")
	}
	fmt.Fprintf(&b, "%s %s", e.Bot, e.Action)
	if e.Subreddit != "" {
		fmt.Fprintf(&b, " r/%s", e.Subreddit)
	}
	if e.Target != "" {
		fmt.Fprintf(&b, " → %s", e.Target)
	}
	if e.ThingID != "" {
		fmt.Fprintf(&b, " (%s)", e.ThingID)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
