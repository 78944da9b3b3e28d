package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the snapshot push interval used when none is given.
const DefaultInterval = 2 * time.Second

// Broadcaster periodically pushes the value returned by source to every
// subscriber.
type Broadcaster[T any] struct {
	mu       sync.Mutex
	subs     map[*Subscription[T]]struct{}
	source   func() T
	interval time.Duration
	logger   *slog.Logger
}

// Subscription is one subscriber's sink. Values arrive on C; Done is
// closed once the subscription is closed.
type Subscription[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
	b    *Broadcaster[T]
}

// NewBroadcaster creates a broadcaster. A non-positive interval selects
// DefaultInterval.
func NewBroadcaster[T any](source func() T, interval time.Duration, logger *slog.Logger) *Broadcaster[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Broadcaster[T]{
		subs:     make(map[*Subscription[T]]struct{}),
		source:   source,
		interval: interval,
		logger:   logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber and delivers the current value to it
// immediately.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{
		ch:   make(chan T, 1),
		done: make(chan struct{}),
		b:    b,
	}

	initial := b.source()

	b.mu.Lock()
	b.subs[s] = struct{}{}
	s.offer(initial)
	count := len(b.subs)
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "subscriber_count", count)
	return s
}

// Count returns the number of open subscriptions.
func (b *Broadcaster[T]) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish pushes v to every open subscription without blocking.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		s.offer(v)
	}
}

// Run pushes a fresh value every interval until ctx is done. Ticks with no
// subscribers skip calling source.
func (b *Broadcaster[T]) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("broadcaster started", "interval", b.interval)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("broadcaster stopped")
			return
		case <-ticker.C:
			if b.Count() == 0 {
				continue
			}
			b.Publish(b.source())
		}
	}
}

func (b *Broadcaster[T]) remove(s *Subscription[T]) {
	b.mu.Lock()
	delete(b.subs, s)
	count := len(b.subs)
	b.mu.Unlock()

	b.logger.Debug("subscriber removed", "subscriber_count", count)
}

// offer replaces any unread value with v. Caller holds b.mu, which makes
// it the only writer.
func (s *Subscription[T]) offer(v T) {
	select {
	case s.ch <- v:
		return
	default:
	}

	select {
	case <-s.ch:
	default:
	}

	select {
	case s.ch <- v:
	default:
	}
}

// C returns the channel values are delivered on.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Done is closed when the subscription is closed.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

// Close deregisters the subscription. It is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.b.remove(s)
		close(s.done)
	})
}
