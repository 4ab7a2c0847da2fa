package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Strob0t/AgentForge/internal/adapter/otel"
	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/port/teambackend"
	"github.com/Strob0t/AgentForge/internal/resilience"
)

// ErrQueueClosed is returned by Submit after the executor has shut down.
var ErrQueueClosed = errors.New("team executor queue closed")

// ErrQueueFull is returned when the pending queue is at capacity.
var ErrQueueFull = errors.New("team executor queue full")

// queueItem is one pending backend call with its settle channel.
type queueItem struct {
	ctx       context.Context
	operation string
	prompt    string
	done      chan settled
}

type settled struct {
	resp *teambackend.Response
	err  error
}

// Executor serializes all calls into the shared team backend: a strict
// FIFO queue drained by a single worker, so concurrent periodic operations
// never compete for the rate-limited backend. A circuit breaker fronts the
// backend so a dead upstream rejects fast instead of queueing timeouts.
type Executor struct {
	cfg     config.Executor
	backend teambackend.Backend
	breaker *resilience.Breaker

	queue chan *queueItem

	mu     sync.Mutex
	closed bool
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewExecutor creates the team executor queue.
func NewExecutor(cfg config.Executor, backend teambackend.Backend, breaker *resilience.Breaker) *Executor {
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	return &Executor{
		cfg:     cfg,
		backend: backend,
		breaker: breaker,
		queue:   make(chan *queueItem, size),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the single drain worker.
func (e *Executor) Start() {
	go e.drain()
}

// Submit enqueues one operation and blocks until it is processed or ctx is
// cancelled. A failing item settles only its own call; the queue keeps
// draining.
func (e *Executor) Submit(ctx context.Context, operation, prompt string) (*teambackend.Response, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrQueueClosed
	}
	e.mu.Unlock()

	item := &queueItem{
		ctx:       ctx,
		operation: operation,
		prompt:    prompt,
		done:      make(chan settled, 1),
	}

	select {
	case e.queue <- item:
	default:
		return nil, ErrQueueFull
	}

	select {
	case s := <-item.done:
		return s.resp, s.err
	case <-ctx.Done():
		// The worker will still reach the item; it settles into the
		// buffered channel and is discarded.
		return nil, ctx.Err()
	}
}

// ResolveModel maps an operation name to its configured concrete model via
// the tier table. An unknown operation falls back to the routine tier.
func (e *Executor) ResolveModel(operation string) (string, error) {
	tier, ok := e.cfg.Operations[operation]
	if !ok {
		tier = string(teambackend.TierRoutine)
	}
	model, ok := e.cfg.TierModels[tier]
	if !ok {
		return "", fmt.Errorf("no model configured for tier %q (operation %q)", tier, operation)
	}
	return model, nil
}

func (e *Executor) drain() {
	defer close(e.doneCh)
	for {
		select {
		case item := <-e.queue:
			e.process(item)
		case <-e.stopCh:
			// Settle whatever is still queued so no caller hangs.
			for {
				select {
				case item := <-e.queue:
					item.done <- settled{err: ErrQueueClosed}
				default:
					return
				}
			}
		}
	}
}

func (e *Executor) process(item *queueItem) {
	if err := item.ctx.Err(); err != nil {
		item.done <- settled{err: err}
		return
	}

	model, err := e.ResolveModel(item.operation)
	if err != nil {
		item.done <- settled{err: err}
		return
	}

	opCtx, span := otel.StartTeamOpSpan(item.ctx, item.operation, model)
	defer span.End()

	var resp *teambackend.Response
	err = e.breaker.Execute(func() error {
		var callErr error
		resp, callErr = e.backend.Complete(opCtx, teambackend.Request{
			Operation: item.operation,
			Model:     model,
			Prompt:    item.prompt,
		})
		return callErr
	})
	if err != nil {
		slog.Error("team operation failed", "operation", item.operation, "model", model, "circuit", e.breaker.State(), "error", err)
		item.done <- settled{err: err}
		return
	}
	item.done <- settled{resp: resp}
}

// Close stops the worker after settling queued items with ErrQueueClosed.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	close(e.stopCh)
	<-e.doneCh
}
