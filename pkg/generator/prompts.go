package generator

import (
	"fmt"
	"strings"

	"redditbots/pkg/config"
	"redditbots/pkg/platform"
)

const (
	DefaultPostPrompt  = "Generate an engaging Reddit post title and body."
	DefaultReplyPrompt = "Generate a thoughtful reply to the following Reddit content:"

	DefaultTitle     = "Default Title"
	DefaultBody      = "Default body content."
	NullBody         = "Default content body."
	NoContextMessage = "No context available."
)

// Prompts are the instruction headers shared by every bot.
type Prompts struct {
	Post  string
	Reply string
}

// PromptsFromConfig fills blank prompts with the defaults.
func PromptsFromConfig(cfg *config.Config) Prompts {
	p := Prompts{Post: cfg.OpenAI.PostPrompt, Reply: cfg.OpenAI.ReplyPrompt}
	if p.Post == "" {
		p.Post = DefaultPostPrompt
	}
	if p.Reply == "" {
		p.Reply = DefaultReplyPrompt
	}
	return p
}

func buildPostPrompt(header string, p config.Personality, learned string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", header)
	fmt.Fprintf(&b, "Personality: %s\nMemory: %s\n\n", p.Description, p.Memory)
	if learned = strings.TrimSpace(learned); learned != "" {
		fmt.Fprintf(&b, "Recent posts in this community:\n%s\n\n", learned)
	}
	b.WriteString("Post:")
	return b.String()
}

func buildReplyPrompt(header string, p config.Personality, threadContext string, chainIndex int) string {
	return fmt.Sprintf("%s\n\nPersonality: %s\nMemory: %s\n\nContext:\n%s\n\nReply #%d:",
		header, p.Description, p.Memory, threadContext, chainIndex+1)
}

// FormatPost renders the post block used in thread and learned context.
func FormatPost(p platform.Post) string {
	return fmt.Sprintf("Post Title: %s\nPost Body: %s", p.Title, p.Body)
}

// splitPost takes the first line as title and the rest as body.
func splitPost(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return DefaultTitle, DefaultBody
	}
	title, body, found := strings.Cut(text, "\n")
	title = strings.TrimSpace(title)
	if !found {
		return title, DefaultBody
	}
	body = strings.TrimSpace(body)
	if body == "" {
		body = DefaultBody
	}
	return title, body
}
