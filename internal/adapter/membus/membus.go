// Package membus implements the event bus port in process: each subscriber
// gets its own buffered channel and drain goroutine, so a slow handler
// never blocks publishers or other subscribers.
package membus

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/Strob0t/AgentForge/internal/port/eventbus"
)

const subscriberBuffer = 256

type event struct {
	subject string
	data    []byte
}

type subscription struct {
	id      int
	subject string
	ch      chan event
	done    chan struct{}
}

// matches reports whether the subscription's subject covers s. A subject
// ending in ">" matches every subject under its prefix, mirroring NATS.
func (sub *subscription) matches(s string) bool {
	if prefix, ok := strings.CutSuffix(sub.subject, ">"); ok {
		return strings.HasPrefix(s, prefix)
	}
	return sub.subject == s
}

// Bus is the default single-process eventbus.Bus.
type Bus struct {
	log *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
	closed bool
	wg     sync.WaitGroup
}

// New creates an in-process bus.
func New(log *slog.Logger) *Bus {
	return &Bus{log: log, subs: make(map[int]*subscription)}
}

// Publish delivers the event to every matching subscriber's queue. A full
// queue drops the event for that subscriber rather than blocking.
func (b *Bus) Publish(_ context.Context, subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New("bus closed")
	}

	ev := event{subject: subject, data: data}
	for _, sub := range b.subs {
		if !sub.matches(subject) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.log.Warn("event dropped, subscriber queue full", "subject", subject)
		}
	}
	return nil
}

// Subscribe registers a handler drained by a dedicated goroutine. Events
// for one subscriber are handled in publish order.
func (b *Bus) Subscribe(_ context.Context, subject string, handler eventbus.Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.New("bus closed")
	}

	b.nextID++
	sub := &subscription{
		id:      b.nextID,
		subject: subject,
		ch:      make(chan event, subscriberBuffer),
		done:    make(chan struct{}),
	}
	b.subs[sub.id] = sub

	b.wg.Add(1)
	go b.drain(sub, handler)

	return func() { b.unsubscribe(sub.id) }, nil
}

func (b *Bus) drain(sub *subscription, handler eventbus.Handler) {
	defer b.wg.Done()
	for {
		select {
		case ev := <-sub.ch:
			if err := handler(context.Background(), ev.subject, ev.data); err != nil {
				b.log.Error("event handler failed", "subject", ev.subject, "error", err)
			}
		case <-sub.done:
			// Flush what is already queued before exiting.
			for {
				select {
				case ev := <-sub.ch:
					if err := handler(context.Background(), ev.subject, ev.data); err != nil {
						b.log.Error("event handler failed", "subject", ev.subject, "error", err)
					}
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		close(sub.done)
	}
}

// Close cancels every subscription after its queued events are delivered.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[int]*subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.done)
	}
	b.wg.Wait()
	return nil
}
