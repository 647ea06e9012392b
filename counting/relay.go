package counting

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/nuetoban/counter-bot/model"
)

// RelayName is the name of the webhook the bot reposts numbers through
const RelayName = "Counter Bot"

// RelayProvider lists and creates webhooks of a channel
type RelayProvider interface {
	ListRelays(ctx context.Context, channelID string) ([]model.Relay, error)
	CreateRelay(ctx context.Context, channelID, name string) (model.Relay, error)
}

// RelayResolver maps channels to their relay and caches the result.
// Concurrent misses for one channel share a single lookup, so a relay
// is created at most once per channel.
type RelayResolver struct {
	provider RelayProvider
	log      logrus.FieldLogger

	mu    sync.RWMutex
	cache map[string]model.Relay
	group singleflight.Group
}

// NewRelayResolver returns new instance of RelayResolver
func NewRelayResolver(provider RelayProvider, log logrus.FieldLogger) *RelayResolver {
	return &RelayResolver{
		provider: provider,
		log:      log,
		cache:    make(map[string]model.Relay),
	}
}

// Resolve returns the relay of the channel, creating it when the channel has none
func (r *RelayResolver) Resolve(ctx context.Context, channelID string) (model.Relay, error) {
	if relay, ok := r.cached(channelID); ok {
		return relay, nil
	}

	v, err, _ := r.group.Do(channelID, func() (interface{}, error) {
		// Another flight may have filled the cache meanwhile
		if relay, ok := r.cached(channelID); ok {
			return relay, nil
		}

		relay, err := r.lookup(ctx, channelID)
		if err != nil {
			return model.Relay{}, err
		}

		r.mu.Lock()
		r.cache[channelID] = relay
		r.mu.Unlock()

		return relay, nil
	})
	if err != nil {
		return model.Relay{}, err
	}

	return v.(model.Relay), nil
}

// Forget drops the cached relay of the channel
func (r *RelayResolver) Forget(channelID string) {
	r.mu.Lock()
	delete(r.cache, channelID)
	r.mu.Unlock()
}

func (r *RelayResolver) cached(channelID string) (model.Relay, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	relay, ok := r.cache[channelID]
	return relay, ok
}

func (r *RelayResolver) lookup(ctx context.Context, channelID string) (model.Relay, error) {
	relays, err := r.provider.ListRelays(ctx, channelID)
	if err != nil {
		return model.Relay{}, err
	}

	for _, relay := range relays {
		if relay.Name == RelayName {
			return relay, nil
		}
	}

	r.log.Infof("Creating relay for channel %s", channelID)
	return r.provider.CreateRelay(ctx, channelID, RelayName)
}
