// Package leaderboard renders the global counting leaderboard.
package leaderboard

import (
	"fmt"
	"sort"

	"github.com/nuetoban/counter-bot/model"
)

// Placeholder is the only line of an empty leaderboard
const Placeholder = "No servers currently tracked."

// NameResolver returns the display name of a guild, ok is false when unknown
type NameResolver func(guildID string) (name string, ok bool)

// Render returns one "<guild>: <count>" line per visible guild, highest count
// first and ties broken by guild ID. Guilds hidden by their own setting or
// listed in excluded are skipped.
func Render(games []model.GuildGame, excluded map[string]struct{}, names NameResolver) []string {
	visible := make([]model.GuildGame, 0, len(games))
	for _, g := range games {
		if g.State.HiddenFromLeaderboard {
			continue
		}
		if _, skip := excluded[g.GuildID]; skip {
			continue
		}
		visible = append(visible, g)
	}

	if len(visible) == 0 {
		return []string{Placeholder}
	}

	sort.Slice(visible, func(i, j int) bool {
		if visible[i].State.Count != visible[j].State.Count {
			return visible[i].State.Count > visible[j].State.Count
		}
		return visible[i].GuildID < visible[j].GuildID
	})

	lines := make([]string, 0, len(visible))
	for _, g := range visible {
		name := g.GuildID
		if names != nil {
			if n, ok := names(g.GuildID); ok && n != "" {
				name = n
			}
		}
		lines = append(lines, fmt.Sprintf("%s: %d", name, g.State.Count))
	}

	return lines
}
