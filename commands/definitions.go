package commands

import (
	"github.com/bwmarrin/discordgo"
)

const (
	optionChannel             = "channel"
	optionResetOnIncorrect    = "reset_on_incorrect"
	optionHideFromLeaderboard = "hide_from_leaderboard"
)

// Definitions describes the commands for registration with Discord
func Definitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: Disable, Description: "Disable counting and delete all counting data"},
		{Name: HowItWorks, Description: "Explain how the counting bot works"},
		{Name: Info, Description: "Bot info"},
		{Name: Leaderboard, Description: "View the global counting leaderboard"},
		{Name: LeaderboardVisibility, Description: "Toggle whether this server is hidden from leaderboard"},
		{Name: Ping, Description: "Check bot latency"},
		{
			Name:        Setup,
			Description: "Setup counting channel and options",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         optionChannel,
					Description:  "Channel to use for counting",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        optionResetOnIncorrect,
					Description: "Reset counter if someone counts wrong?",
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        optionHideFromLeaderboard,
					Description: "Hide this server from leaderboard?",
				},
			},
		},
	}
}

// ParseOptions reads setup options from interaction data.
// Channel names come from the resolved data Discord sends along.
func ParseOptions(data discordgo.ApplicationCommandInteractionData) Options {
	var opts Options

	for _, opt := range data.Options {
		switch opt.Name {
		case optionChannel:
			id, _ := opt.Value.(string)
			if data.Resolved != nil {
				if ch, ok := data.Resolved.Channels[id]; ok && ch != nil {
					opts.Channel = ch.Name
				}
			}
		case optionResetOnIncorrect:
			v := opt.BoolValue()
			opts.ResetOnIncorrect = &v
		case optionHideFromLeaderboard:
			v := opt.BoolValue()
			opts.HideFromLeaderboard = &v
		}
	}

	return opts
}
