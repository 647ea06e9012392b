package counting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuetoban/counter-bot/model"
)

type singleGuildStore struct {
	mu   sync.Mutex
	turn sync.Mutex
	m    *Machine
}

func (s *singleGuildStore) WithGuild(_ string, fn func(*Machine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.m)
}

func (s *singleGuildStore) WithTurn(_ string, fn func() error) error {
	s.turn.Lock()
	defer s.turn.Unlock()
	return fn()
}

func (s *singleGuildStore) count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.State.Count
}

// Records chat calls in order
type fakeChat struct {
	mu    sync.Mutex
	calls []string

	deleteErr    error
	republishErr error

	// When set, deletes report on entered and wait for gate to close
	entered chan struct{}
	gate    chan struct{}

	deadlines []bool
	published []string
	names     []string
	avatars   []string
}

func (f *fakeChat) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if f.gate != nil {
		f.entered <- struct{}{}
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := ctx.Deadline()
	f.deadlines = append(f.deadlines, ok)
	f.calls = append(f.calls, "delete "+messageID)
	return f.deleteErr
}

func (f *fakeChat) Republish(ctx context.Context, relay model.Relay, content, username, avatarURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := ctx.Deadline()
	f.deadlines = append(f.deadlines, ok)
	f.calls = append(f.calls, "republish "+relay.ID)
	f.published = append(f.published, content)
	f.names = append(f.names, username)
	f.avatars = append(f.avatars, avatarURL)
	return f.republishErr
}

type moderatorFixture struct {
	moderator *Moderator
	store     *singleGuildStore
	chat      *fakeChat
	relays    *fakeRelayProvider
}

func newModeratorFixture(t *testing.T, state model.GameState) *moderatorFixture {
	t.Helper()
	logger, _ := test.NewNullLogger()

	m := NewMachine("guild", testDefaults, logger)
	m.State = state

	f := &moderatorFixture{
		store:  &singleGuildStore{m: m},
		chat:   &fakeChat{},
		relays: &fakeRelayProvider{},
	}
	f.moderator = NewModerator(
		f.store,
		NewRelayResolver(f.relays, logger),
		f.chat,
		f.chat,
		time.Second,
		logger,
	)
	return f
}

func submission(author, text string) model.Submission {
	return model.Submission{
		GuildID:      "guild",
		ChannelID:    "chan",
		ChannelName:  "counting",
		MessageID:    "msg-" + text,
		AuthorID:     author,
		AuthorName:   "Name " + author,
		AuthorAvatar: "https://cdn.example/" + author + ".png",
		Text:         text,
	}
}

func TestHandleSubmissionAccept(t *testing.T) {
	f := newModeratorFixture(t, model.GameState{Count: 5, LastSubmitter: "A", CountingChannel: "counting"})

	d, err := f.moderator.HandleSubmission(context.Background(), submission("B", "06"))
	require.NoError(t, err)

	assert.Equal(t, model.Decision{Outcome: model.AcceptRepublish, Value: 6}, d)
	assert.Equal(t, []string{"delete msg-06", "republish hook-chan"}, f.chat.calls)
	assert.Equal(t, []string{"6"}, f.chat.published)
	assert.Equal(t, []string{"Name B"}, f.chat.names)
	assert.Equal(t, []string{"https://cdn.example/B.png"}, f.chat.avatars)
	assert.Equal(t, []bool{true, true}, f.chat.deadlines)
	assert.Equal(t, uint64(6), f.store.m.State.Count)
	assert.Equal(t, "B", f.store.m.State.LastSubmitter)
}

func TestHandleSubmissionRejects(t *testing.T) {
	tests := []struct {
		name      string
		state     model.GameState
		sub       model.Submission
		want      model.Outcome
		wantCount uint64
	}{
		{
			name:      "malformed",
			state:     model.GameState{Count: 5, LastSubmitter: "A", CountingChannel: "counting", ResetOnIncorrect: true},
			sub:       submission("B", "six"),
			want:      model.RejectDelete,
			wantCount: 5,
		},
		{
			name:      "consecutive author",
			state:     model.GameState{Count: 5, LastSubmitter: "A", CountingChannel: "counting", ResetOnIncorrect: true},
			sub:       submission("A", "6"),
			want:      model.RejectDelete,
			wantCount: 5,
		},
		{
			name:      "wrong value with reset",
			state:     model.GameState{Count: 5, LastSubmitter: "A", CountingChannel: "counting", ResetOnIncorrect: true},
			sub:       submission("B", "9"),
			want:      model.RejectAndReset,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newModeratorFixture(t, tt.state)

			d, err := f.moderator.HandleSubmission(context.Background(), tt.sub)
			require.NoError(t, err)

			assert.Equal(t, tt.want, d.Outcome)
			assert.Equal(t, []string{"delete " + tt.sub.MessageID}, f.chat.calls)
			assert.Equal(t, tt.wantCount, f.store.m.State.Count)
			assert.Zero(t, f.relays.creates)
		})
	}
}

func TestHandleSubmissionIgnoresOtherChannels(t *testing.T) {
	f := newModeratorFixture(t, model.GameState{Count: 5, CountingChannel: "counting"})

	sub := submission("B", "hello")
	sub.ChannelName = "general"

	d, err := f.moderator.HandleSubmission(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, model.Ignore, d.Outcome)
	assert.Empty(t, f.chat.calls)
}

func TestHandleSubmissionDeleteFailure(t *testing.T) {
	f := newModeratorFixture(t, model.GameState{Count: 5, LastSubmitter: "A", CountingChannel: "counting"})
	f.chat.deleteErr = errors.New("missing permissions")

	d, err := f.moderator.HandleSubmission(context.Background(), submission("B", "6"))

	require.ErrorIs(t, err, ErrRelayUnavailable)
	assert.Equal(t, model.AcceptRepublish, d.Outcome)
	// Accepted numbers stay counted when the chat calls fail
	assert.Equal(t, uint64(6), f.store.m.State.Count)
	assert.Equal(t, []string{"delete msg-6"}, f.chat.calls)
}

func TestHandleSubmissionRelayFailure(t *testing.T) {
	f := newModeratorFixture(t, model.GameState{Count: 5, LastSubmitter: "A", CountingChannel: "counting"})
	f.relays.listErr = errors.New("discord is down")

	_, err := f.moderator.HandleSubmission(context.Background(), submission("B", "6"))

	require.ErrorIs(t, err, ErrRelayUnavailable)
	assert.Empty(t, f.chat.calls)
	assert.Equal(t, uint64(6), f.store.m.State.Count)
}

func TestHandleSubmissionRepublishFailureForgetsRelay(t *testing.T) {
	f := newModeratorFixture(t, model.GameState{Count: 5, LastSubmitter: "A", CountingChannel: "counting"})
	f.chat.republishErr = errors.New("unknown webhook")

	_, err := f.moderator.HandleSubmission(context.Background(), submission("B", "6"))
	require.ErrorIs(t, err, ErrRelayUnavailable)

	f.chat.republishErr = nil
	_, err = f.moderator.HandleSubmission(context.Background(), submission("C", "7"))
	require.NoError(t, err)

	// The second accept had to look the relay up again
	assert.EqualValues(t, 2, f.relays.lists)
}

func TestHandleSubmissionSerializesGuild(t *testing.T) {
	f := newModeratorFixture(t, model.GameState{CountingChannel: "counting"})

	// Two authors racing with the same number: exactly one can win
	var wg sync.WaitGroup
	decisions := make([]model.Decision, 2)
	for i, author := range []string{"A", "B"} {
		wg.Add(1)
		go func(i int, author string) {
			defer wg.Done()
			d, err := f.moderator.HandleSubmission(context.Background(), submission(author, "1"))
			assert.NoError(t, err)
			decisions[i] = d
		}(i, author)
	}
	wg.Wait()

	accepted := 0
	for _, d := range decisions {
		if d.Outcome == model.AcceptRepublish {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, uint64(1), f.store.m.State.Count)
}

func TestHandleSubmissionReleasesGameDuringChatCalls(t *testing.T) {
	f := newModeratorFixture(t, model.GameState{Count: 5, LastSubmitter: "A", CountingChannel: "counting"})
	f.chat.entered = make(chan struct{}, 2)
	f.chat.gate = make(chan struct{})

	first := make(chan error, 1)
	go func() {
		_, err := f.moderator.HandleSubmission(context.Background(), submission("B", "x"))
		first <- err
	}()
	<-f.chat.entered

	// The game can be read while the delete is still in flight
	read := make(chan uint64, 1)
	go func() { read <- f.store.count() }()
	select {
	case c := <-read:
		assert.Equal(t, uint64(5), c)
	case <-time.After(time.Second):
		t.Fatal("game stayed locked during the delete")
	}

	second := make(chan model.Decision, 1)
	go func() {
		d, err := f.moderator.HandleSubmission(context.Background(), submission("B", "6"))
		assert.NoError(t, err)
		second <- d
	}()

	// The next submission of the guild waits for the first one to finish
	select {
	case <-second:
		t.Fatal("second submission was handled before the first finished")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, uint64(5), f.store.count())

	close(f.chat.gate)
	require.NoError(t, <-first)
	assert.Equal(t, model.AcceptRepublish, (<-second).Outcome)
	assert.Equal(t, []string{"delete msg-x", "delete msg-6", "republish hook-chan"}, f.chat.calls)
}
