/*
 * This file is part of Counter Bot.
 * Copyright (C) 2019  Viktor
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package model

// GameState is the counting game of one guild
type GameState struct {
	// Last accepted value, 0 before the first accepted submission
	Count uint64

	// Author of the last accepted submission, empty when unset
	LastSubmitter string

	CountingChannel       string
	ResetOnIncorrect      bool
	HiddenFromLeaderboard bool
}

// GuildGame is a copy of a guild's game taken for aggregation
type GuildGame struct {
	GuildID string
	State   GameState
}

// Defaults are applied to lazily created games
type Defaults struct {
	CountingChannel       string
	ResetOnIncorrect      bool
	HiddenFromLeaderboard bool
}

// Relay is a channel webhook used to repost numbers under the author's name
type Relay struct {
	ID        string
	Token     string
	Name      string
	ChannelID string
}

// Submission is one message posted in a guild channel
type Submission struct {
	GuildID     string
	ChannelID   string
	ChannelName string
	MessageID   string

	AuthorID     string
	AuthorName   string
	AuthorAvatar string

	Text string
}

type Statistics struct {
	Guilds       int64
	ActiveGuilds int64
	HiddenGuilds int64
	HighestCount uint64
}
