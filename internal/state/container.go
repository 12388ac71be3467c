// Package state provides a single-owner snapshot store with ordered,
// replaying subscriptions.
package state

import (
	"context"
	"sync"
)

// Container holds one current value of type S. Writers replace it through
// Update; readers either take the latest snapshot with Current or follow
// every snapshot with Subscribe.
//
// S should be treated as immutable: transforms must return a new value
// rather than mutating shared backing arrays or maps of the old one.
type Container[S any] struct {
	mu      sync.Mutex
	current S
	subs    map[*subscriber[S]]struct{}
}

// New creates a Container whose first snapshot is initialize().
func New[S any](initialize func() S) *Container[S] {
	return &Container[S]{
		current: initialize(),
		subs:    make(map[*subscriber[S]]struct{}),
	}
}

// Current returns the latest snapshot.
func (c *Container[S]) Current() S {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Update applies transform to the current snapshot and publishes the
// result. Calls are serialized; every call yields exactly one snapshot and
// subscribers receive them in call order. transform must be pure and must
// not call Update on the same container.
func (c *Container[S]) Update(transform func(S) S) S {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := transform(c.current)
	c.current = next
	for sub := range c.subs {
		sub.push(next)
	}
	return next
}

// Subscribe returns a channel that yields the current snapshot followed by
// every later one. Slow readers never block Update: pending snapshots are
// queued per subscriber. The channel is closed once ctx is done.
func (c *Container[S]) Subscribe(ctx context.Context) <-chan S {
	sub := &subscriber[S]{
		wake: make(chan struct{}, 1),
		out:  make(chan S),
	}
	c.mu.Lock()
	sub.push(c.current)
	c.subs[sub] = struct{}{}
	c.mu.Unlock()

	go func() {
		defer close(sub.out)
		defer c.detach(sub)
		sub.run(ctx)
	}()
	return sub.out
}

// Subscribers returns the number of live subscriptions.
func (c *Container[S]) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Container[S]) detach(sub *subscriber[S]) {
	c.mu.Lock()
	delete(c.subs, sub)
	c.mu.Unlock()
}

type subscriber[S any] struct {
	mu    sync.Mutex
	queue []S
	wake  chan struct{}
	out   chan S
}

func (s *subscriber[S]) push(v S) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber[S]) run(ctx context.Context) {
	for {
		s.mu.Lock()
		pending := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, v := range pending {
			select {
			case s.out <- v:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-s.wake:
		case <-ctx.Done():
			return
		}
	}
}
