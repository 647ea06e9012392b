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

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nuetoban/counter-bot/commands"
	"github.com/nuetoban/counter-bot/config"
	"github.com/nuetoban/counter-bot/counting"
	"github.com/nuetoban/counter-bot/dispatch"
	"github.com/nuetoban/counter-bot/model"
	"github.com/nuetoban/counter-bot/storage"
)

const defaultConfigPath = "config.json"

// SubmissionHandler judges one counting submission
type SubmissionHandler interface {
	HandleSubmission(ctx context.Context, s model.Submission) (model.Decision, error)
}

type counterBot struct {
	moderator SubmissionHandler
	registry  commands.Registry
	pool      *dispatch.Pool
	metrics   *metricsCollector
	timeout   time.Duration
}

func main() {
	logInit()

	configPath := os.Getenv("COUNTER_BOT_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	log.Infof("Loading configuration from %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Cannot load configuration: %v", err)
	}
	setLogLevel(cfg.LogLevel)

	log.Info("Creating Discord session")
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Fatalf("Cannot create Discord session: %v", err)
	}
	discordgo.Logger = wrapLogrus(log).Print
	dg.LogLevel = discordLogLevel(log.GetLevel())
	// Handlers never block: messages are queued or dropped, commands run
	// on their own goroutine. Ordering per guild is kept by the pool.
	dg.SyncEvents = true
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	log.Info("Creating games fabric")
	fabric := counting.NewMachineFabric(cfg.Defaults(), log)
	store := storage.NewMemory(fabric)

	chat := newChatAdapter(dg)
	relays := counting.NewRelayResolver(chat, log)
	moderator := counting.NewModerator(store, relays, chat, chat, cfg.RequestTimeout, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := &counterBot{
		moderator: moderator,
		registry:  commands.NewRegistry(store, cfg.Defaults(), cfg.Excluded(), guildNameResolver(dg)),
		pool:      dispatch.NewPool(ctx, cfg.Workers, cfg.QueueSize, log),
		metrics:   newMetricsCollector(store),
		timeout:   cfg.RequestTimeout,
	}

	log.Info("Binding handlers")
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onInteractionCreate)

	prometheus.MustRegister(b.metrics)
	http.Handle("/metrics", promhttp.Handler())

	log.Infof("Starting metrics exporter server on %s", cfg.MetricsAddress)
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddress, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics exporter server stopped: %v", err)
		}
	}()

	log.Info("Starting the bot")
	if err := dg.Open(); err != nil {
		log.Fatalf("Cannot connect to Discord API: %v", err)
	}

	waitForShutdown()

	log.Info("Shutting down")
	if err := dg.Close(); err != nil {
		log.Errorf("Cannot close Discord session: %v", err)
	}
	b.pool.Close()
}

func waitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

func guildNameResolver(s *discordgo.Session) func(string) (string, bool) {
	return func(guildID string) (string, bool) {
		g, err := s.State.Guild(guildID)
		if err != nil {
			return "", false
		}
		return g.Name, true
	}
}

func (b *counterBot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Infof("Logged in as %s", r.User.String())

	synced, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", commands.Definitions())
	if err != nil {
		log.Errorf("onReady: cannot sync commands: %v", err)
		return
	}
	log.Infof("Synced %d commands", len(synced))
}

func (b *counterBot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !countable(m.Message) {
		return
	}

	log.Tracef(
		"Received message, guild: %s, channel: %s, user: %s",
		m.GuildID, m.ChannelID, m.Author.ID,
	)
	b.metrics.eventsReceived.Inc()

	err := b.pool.TrySubmit(m.GuildID, func(ctx context.Context) {
		name, err := b.channelName(ctx, s, m.ChannelID)
		if err != nil {
			log.Errorf("onMessageCreate: cannot get channel %s: %v", m.ChannelID, err)
			return
		}
		b.handleSubmission(ctx, submissionFromMessage(m.Message, name))
	})
	if errors.Is(err, dispatch.ErrQueueFull) {
		b.metrics.eventsDropped.Inc()
	}
	if err != nil {
		log.Warnf("onMessageCreate: cannot queue message %s in guild %s: %v", m.ID, m.GuildID, err)
	}
}

func (b *counterBot) handleSubmission(ctx context.Context, s model.Submission) {
	decision, err := b.moderator.HandleSubmission(ctx, s)
	b.metrics.observeDecision(decision)

	if err != nil {
		if errors.Is(err, counting.ErrRelayUnavailable) {
			b.metrics.relayFailures.Inc()
		}
		log.Errorf("handleSubmission: guild %s, message %s: %v", s.GuildID, s.MessageID, err)
	}
}

func (b *counterBot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	req := commands.Request{
		GuildID: i.GuildID,
		Options: commands.ParseOptions(data),
		Latency: s.HeartbeatLatency(),
	}
	if i.GuildID != "" {
		if g, err := s.State.Guild(i.GuildID); err == nil {
			req.GuildName = g.Name
		}
	}

	go b.answer(s, i.Interaction, data.Name, req)
}

// interactionResponder is the part of discordgo.Session that answers
// slash commands
type interactionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// answer acknowledges the interaction right away, so Discord's three
// second window is met, and then fills in the reply
func (b *counterBot) answer(r interactionResponder, i *discordgo.Interaction, name string, req commands.Request) {
	ackCtx, cancel := context.WithTimeout(context.Background(), b.timeout)
	err := r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ackCtx))
	cancel()
	if err != nil {
		log.Errorf("answer: cannot acknowledge %s: %v", name, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	text := b.runCommand(ctx, name, req)
	if _, err := r.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &text}, discordgo.WithContext(ctx)); err != nil {
		log.Errorf("answer: cannot respond to %s: %v", name, err)
	}
}

// runCommand returns the reply text for a command, errors included
func (b *counterBot) runCommand(ctx context.Context, name string, req commands.Request) string {
	b.metrics.commands.WithLabelValues(name).Inc()

	text, err := b.registry.Dispatch(ctx, name, req)
	switch {
	case err == nil:
		return text
	case errors.Is(err, commands.ErrNoGuild), errors.Is(err, commands.ErrUnknownCommand):
		return "❌ " + err.Error()
	default:
		log.Errorf("runCommand: %s in guild %s: %v", name, req.GuildID, err)
		return "❌ Something went wrong, please try again."
	}
}
