package counting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nuetoban/counter-bot/model"
)

// ErrRelayUnavailable is returned when a delete or repost call fails
var ErrRelayUnavailable = errors.New("relay unavailable")

// Store gives exclusive access to the game of a guild.
// WithGuild is held only for the decision, WithTurn orders whole
// submissions of one guild without blocking readers of its game.
type Store interface {
	WithGuild(guildID string, fn func(*Machine) error) error
	WithTurn(guildID string, fn func() error) error
}

// MessageDeleter removes posted messages
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// Republisher posts content through a relay under another name and avatar
type Republisher interface {
	Republish(ctx context.Context, relay model.Relay, content, username, avatarURL string) error
}

// Moderator judges submissions and performs the resulting chat actions
type Moderator struct {
	store     Store
	relays    *RelayResolver
	deleter   MessageDeleter
	publisher Republisher
	timeout   time.Duration

	log logrus.FieldLogger
}

// NewModerator returns new instance of Moderator.
// Every chat call is limited by timeout.
func NewModerator(
	store Store,
	relays *RelayResolver,
	deleter MessageDeleter,
	publisher Republisher,
	timeout time.Duration,
	log logrus.FieldLogger,
) *Moderator {
	return &Moderator{
		store:     store,
		relays:    relays,
		deleter:   deleter,
		publisher: publisher,
		timeout:   timeout,
		log:       log,
	}
}

// HandleSubmission evaluates s and carries out the decision before the
// next submission of the guild is evaluated. The game itself is locked
// only while evaluating, chat calls run outside of it.
// The state change is kept when a chat call fails.
func (m *Moderator) HandleSubmission(ctx context.Context, s model.Submission) (model.Decision, error) {
	var decision model.Decision

	err := m.store.WithTurn(s.GuildID, func() error {
		err := m.store.WithGuild(s.GuildID, func(ma *Machine) error {
			decision = ma.Evaluate(s.ChannelName, s.AuthorID, s.Text)
			return nil
		})
		if err != nil {
			return err
		}

		if decision.Outcome != model.Ignore {
			m.log.Debugf(
				"Guild %s: %s from %s: %s %s",
				s.GuildID, strconv.Quote(s.Text), s.AuthorID, decision.Outcome, decision.Reason,
			)
		}
		return m.dispatch(ctx, s, decision)
	})

	return decision, err
}

func (m *Moderator) dispatch(ctx context.Context, s model.Submission, d model.Decision) error {
	switch d.Outcome {
	case model.Ignore:
		return nil

	case model.RejectDelete, model.RejectAndReset:
		return m.delete(ctx, s)

	case model.AcceptRepublish:
		relay, err := m.resolve(ctx, s.ChannelID)
		if err != nil {
			return fmt.Errorf("%w: resolve relay for channel %s: %w", ErrRelayUnavailable, s.ChannelID, err)
		}

		if err := m.delete(ctx, s); err != nil {
			return err
		}

		content := strconv.FormatUint(d.Value, 10)
		if err := m.republish(ctx, relay, content, s); err != nil {
			// The webhook may have been removed from the channel
			m.relays.Forget(s.ChannelID)
			return fmt.Errorf("%w: republish %s in channel %s: %w", ErrRelayUnavailable, content, s.ChannelID, err)
		}
		return nil
	}

	return fmt.Errorf("unknown outcome %d", d.Outcome)
}

func (m *Moderator) resolve(ctx context.Context, channelID string) (model.Relay, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.relays.Resolve(ctx, channelID)
}

func (m *Moderator) delete(ctx context.Context, s model.Submission) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.deleter.DeleteMessage(ctx, s.ChannelID, s.MessageID); err != nil {
		return fmt.Errorf("%w: delete message %s: %w", ErrRelayUnavailable, s.MessageID, err)
	}
	return nil
}

func (m *Moderator) republish(ctx context.Context, relay model.Relay, content string, s model.Submission) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.publisher.Republish(ctx, relay, content, s.AuthorName, s.AuthorAvatar)
}
