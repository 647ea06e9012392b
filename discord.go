package main

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/nuetoban/counter-bot/model"
)

// Subset of *discordgo.Session used by the chat adapter
type discordAPI interface {
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// chatAdapter performs chat actions on behalf of the counting moderator
type chatAdapter struct {
	api discordAPI
}

func newChatAdapter(api discordAPI) *chatAdapter {
	return &chatAdapter{api: api}
}

func (a *chatAdapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return a.api.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

// ListRelays returns the channel's webhooks the bot can post through.
// Webhooks without a token belong to other applications.
func (a *chatAdapter) ListRelays(ctx context.Context, channelID string) ([]model.Relay, error) {
	hooks, err := a.api.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	relays := make([]model.Relay, 0, len(hooks))
	for _, h := range hooks {
		if h == nil || h.Token == "" {
			continue
		}
		relays = append(relays, relayFromWebhook(h))
	}

	return relays, nil
}

func (a *chatAdapter) CreateRelay(ctx context.Context, channelID, name string) (model.Relay, error) {
	h, err := a.api.WebhookCreate(channelID, name, "", discordgo.WithContext(ctx))
	if err != nil {
		return model.Relay{}, err
	}
	return relayFromWebhook(h), nil
}

func (a *chatAdapter) Republish(ctx context.Context, relay model.Relay, content, username, avatarURL string) error {
	_, err := a.api.WebhookExecute(relay.ID, relay.Token, false, &discordgo.WebhookParams{
		Content:   content,
		Username:  username,
		AvatarURL: avatarURL,
		// Numbers only, nobody gets pinged
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	return err
}

func relayFromWebhook(h *discordgo.Webhook) model.Relay {
	return model.Relay{
		ID:        h.ID,
		Token:     h.Token,
		Name:      h.Name,
		ChannelID: h.ChannelID,
	}
}
