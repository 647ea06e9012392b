// Package commands implements the slash commands of the bot as plain
// handlers keyed by command name.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nuetoban/counter-bot/counting"
	"github.com/nuetoban/counter-bot/leaderboard"
	"github.com/nuetoban/counter-bot/model"
)

var (
	// ErrNoGuild is returned by guild commands invoked outside of a guild
	ErrNoGuild = errors.New("this command can only be used in a server")

	ErrUnknownCommand = errors.New("unknown command")
)

// Command names
const (
	Disable               = "disable"
	Setup                 = "setup"
	Leaderboard           = "leaderboard"
	LeaderboardVisibility = "leaderboard-visibility"
	HowItWorks            = "howitworks"
	Info                  = "info"
	Ping                  = "ping"
)

// Options of the setup command. Nil pointers mean the option was omitted.
type Options struct {
	Channel             string
	ResetOnIncorrect    *bool
	HideFromLeaderboard *bool
}

// Request is one command invocation
type Request struct {
	GuildID   string
	GuildName string
	Options   Options

	// Gateway heartbeat latency, reported by ping
	Latency time.Duration
}

// Handler answers a command with the text of an ephemeral reply
type Handler func(ctx context.Context, r Request) (string, error)

// Registry maps command names to handlers
type Registry map[string]Handler

// GuildStore is the part of the game store commands work with
type GuildStore interface {
	WithGuild(guildID string, fn func(*counting.Machine) error) error
	Remove(guildID string)
	Snapshot() []model.GuildGame
}

type handlers struct {
	store    GuildStore
	defaults model.Defaults
	excluded map[string]struct{}
	names    leaderboard.NameResolver
}

// NewRegistry binds every command to its handler
func NewRegistry(
	store GuildStore,
	defaults model.Defaults,
	excluded map[string]struct{},
	names leaderboard.NameResolver,
) Registry {
	h := &handlers{
		store:    store,
		defaults: defaults,
		excluded: excluded,
		names:    names,
	}

	return Registry{
		Disable:               guildOnly(h.disable),
		Setup:                 guildOnly(h.setup),
		Leaderboard:           h.leaderboard,
		LeaderboardVisibility: guildOnly(h.leaderboardVisibility),
		HowItWorks:            howItWorks,
		Info:                  guildOnly(info),
		Ping:                  ping,
	}
}

// Dispatch runs the handler registered under name
func (r Registry) Dispatch(ctx context.Context, name string, req Request) (string, error) {
	h, ok := r[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return h(ctx, req)
}

// Decorator rejecting invocations without a guild
func guildOnly(h Handler) Handler {
	return func(ctx context.Context, r Request) (string, error) {
		if r.GuildID == "" {
			return "", ErrNoGuild
		}
		return h(ctx, r)
	}
}

func (h *handlers) disable(_ context.Context, r Request) (string, error) {
	h.store.Remove(r.GuildID)
	return "✅ Counting disabled and data cleared.", nil
}

func (h *handlers) setup(_ context.Context, r Request) (string, error) {
	resetOnIncorrect := true
	if r.Options.ResetOnIncorrect != nil {
		resetOnIncorrect = *r.Options.ResetOnIncorrect
	}
	hidden := false
	if r.Options.HideFromLeaderboard != nil {
		hidden = *r.Options.HideFromLeaderboard
	}

	var channel string
	err := h.store.WithGuild(r.GuildID, func(m *counting.Machine) error {
		m.Configure(r.Options.Channel, resetOnIncorrect, hidden, h.defaults)
		channel = m.State.CountingChannel
		return nil
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("✅ Setup complete for channel #%s", channel), nil
}

func (h *handlers) leaderboard(_ context.Context, _ Request) (string, error) {
	lines := leaderboard.Render(h.store.Snapshot(), h.excluded, h.names)
	return strings.Join(lines, "\n"), nil
}

func (h *handlers) leaderboardVisibility(_ context.Context, r Request) (string, error) {
	var hidden bool
	err := h.store.WithGuild(r.GuildID, func(m *counting.Machine) error {
		hidden = m.ToggleVisibility()
		return nil
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Hide from leaderboard: %t", hidden), nil
}

func howItWorks(_ context.Context, _ Request) (string, error) {
	return "📜 **How It Works**:\n" +
		"- Count upward messages in order.\n" +
		"- Wrong numbers are deleted.\n" +
		"- Correct numbers are reposted via webhook.\n" +
		"- Same user cannot count twice in a row.\n" +
		"- Optional reset on incorrect count.\n" +
		"- Leaderboard tracks counts globally.", nil
}

func info(_ context.Context, r Request) (string, error) {
	name := r.GuildName
	if name == "" {
		name = r.GuildID
	}
	return fmt.Sprintf("🔢 **Counter Bot**\nCurrent guild: %s", name), nil
}

func ping(_ context.Context, r Request) (string, error) {
	return fmt.Sprintf("Pong! %dms", r.Latency.Milliseconds()), nil
}
