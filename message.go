package main

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/nuetoban/counter-bot/model"
)

// countable reports whether a message takes part in counting.
// Bots, webhooks (our own reposts included) and direct messages are skipped.
func countable(m *discordgo.Message) bool {
	if m == nil || m.Author == nil {
		return false
	}
	return !m.Author.Bot && m.WebhookID == "" && m.GuildID != ""
}

func submissionFromMessage(m *discordgo.Message, channelName string) model.Submission {
	return model.Submission{
		GuildID:      m.GuildID,
		ChannelID:    m.ChannelID,
		ChannelName:  channelName,
		MessageID:    m.ID,
		AuthorID:     m.Author.ID,
		AuthorName:   displayName(m),
		AuthorAvatar: m.Author.AvatarURL(""),
		Text:         m.Content,
	}
}

// Server nickname first, then global name, then username
func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

// channelName looks the channel up in the state cache, then over REST
func (b *counterBot) channelName(ctx context.Context, s *discordgo.Session, channelID string) (string, error) {
	if ch, err := s.State.Channel(channelID); err == nil {
		return ch.Name, nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	ch, err := s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.Name, nil
}
