package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Session abstracts the discordgo.Session method we use, for testing.
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts events to one channel over the REST API. No gateway
// connection is opened.
type Discord struct {
	session   Session
	channelID string
}

// NewDiscord creates a REST-only session for a bot token.
func NewDiscord(token, channelID string) (*Discord, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}
	return NewDiscordWithSession(dg, channelID), nil
}

func NewDiscordWithSession(s Session, channelID string) *Discord {
	return &Discord{session: s, channelID: channelID}
}

func (d *Discord) Notify(ctx context.Context, e Event) error {
	if _, err := d.session.ChannelMessageSend(d.channelID, e.Text(), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord notify: %w", err)
	}
	return nil
}
