package bot

import (
	"errors"
	"strings"

	"redditbots/pkg/platform"
)

var (
	ErrMissingTarget  = errors.New("missing target")
	ErrUnknownCommand = errors.New("unknown command")
	ErrAgentNotFound  = errors.New("agent not found")
)

// Command is an action a bot can be told to perform.
type Command string

const (
	CommandPost       Command = "post"
	CommandReply      Command = "reply"
	CommandReplyChain Command = "reply-chain"
	CommandLearn      Command = "learn"
)

// ParseCommand normalises user input ("Learn_And_Post", " reply ") to a
// Command. Unrecognised input is returned as-is and rejected at dispatch.
func ParseCommand(s string) Command {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	switch s {
	case "learn-and-post", "learnandpost":
		return CommandLearn
	case "replychain", "chain":
		return CommandReplyChain
	}
	return Command(s)
}

// Valid reports whether c is one of the known commands.
func (c Command) Valid() bool {
	switch c {
	case CommandPost, CommandReply, CommandReplyChain, CommandLearn:
		return true
	}
	return false
}

// NeedsNode reports whether c operates on a thread node.
func (c Command) NeedsNode() bool {
	return c == CommandReply || c == CommandReplyChain
}

// Target carries the optional argument of a command: a thread node for
// replies, a subreddit name for learn.
type Target struct {
	Node      platform.Node
	Subreddit string
}
