// Package dispatch runs event handlers on a fixed set of workers.
//
// Events are sharded by key, so events sharing a key run one at a time in
// the order they were submitted, while different keys proceed in parallel.
package dispatch

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrClosed is returned by Submit after Close
	ErrClosed = errors.New("dispatch: pool is closed")
	// ErrQueueFull is returned by TrySubmit when the key's queue has no room
	ErrQueueFull = errors.New("dispatch: queue is full")
)

// Task is one unit of work
type Task func(ctx context.Context)

// Pool is a sharded worker pool
type Pool struct {
	shards []chan Task
	ctx    context.Context
	log    logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool starts workers goroutines, each with a queue of queueSize tasks.
// Tasks receive ctx.
func NewPool(ctx context.Context, workers, queueSize int, log logrus.FieldLogger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &Pool{
		shards: make([]chan Task, workers),
		ctx:    ctx,
		log:    log,
	}

	for i := range p.shards {
		p.shards[i] = make(chan Task, queueSize)
		p.wg.Add(1)
		go p.work(i, p.shards[i])
	}

	return p
}

// Submit queues t on the worker owning key. It blocks while that queue is full.
func (p *Pool) Submit(key string, t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	p.shards[p.shard(key)] <- t
	return nil
}

// TrySubmit queues t on the worker owning key like Submit, but returns
// ErrQueueFull instead of waiting when that queue is full
func (p *Pool) TrySubmit(key string, t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.shards[p.shard(key)] <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting tasks and waits for queued ones to finish
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, ch := range p.shards {
		close(ch)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) shard(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.shards)))
}

func (p *Pool) work(n int, tasks <-chan Task) {
	defer p.wg.Done()

	for t := range tasks {
		p.run(n, t)
	}
}

func (p *Pool) run(n int, t Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("Pool: worker %d: recovered from panic: %v", n, r)
		}
	}()

	t(p.ctx)
}
