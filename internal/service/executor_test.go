package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Strob0t/AgentForge/internal/config"
	"github.com/Strob0t/AgentForge/internal/port/teambackend"
	"github.com/Strob0t/AgentForge/internal/resilience"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls []teambackend.Request
	fail  func(req teambackend.Request) error
}

func (b *fakeBackend) Complete(_ context.Context, req teambackend.Request) (*teambackend.Response, error) {
	b.mu.Lock()
	b.calls = append(b.calls, req)
	b.mu.Unlock()
	if b.fail != nil {
		if err := b.fail(req); err != nil {
			return nil, err
		}
	}
	return &teambackend.Response{Text: "done: " + req.Operation, TokensIn: 10, TokensOut: 5}, nil
}

func (b *fakeBackend) recorded() []teambackend.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]teambackend.Request(nil), b.calls...)
}

func testExecutorConfig() config.Executor {
	return config.Executor{
		TierModels: map[string]string{
			"creative":   "model-large",
			"analytical": "model-medium",
			"routine":    "model-small",
		},
		Operations: map[string]string{
			"summarize": "analytical",
			"review":    "creative",
		},
		QueueSize: 16,
	}
}

func newTestExecutor(backend teambackend.Backend) *Executor {
	breaker := resilience.NewBreaker(5, time.Minute)
	e := NewExecutor(testExecutorConfig(), backend, breaker)
	e.Start()
	return e
}

func TestExecutorProcessesInSubmissionOrder(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestExecutor(backend)
	defer e.Close()
	ctx := context.Background()

	const n = 8

	// Submissions are sequential; the single worker must drain them in
	// the same order.
	for i := range n {
		if _, err := e.Submit(ctx, "summarize", fmt.Sprintf("prompt-%d", i)); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	calls := backend.recorded()
	if len(calls) != n {
		t.Fatalf("backend saw %d calls, want %d", len(calls), n)
	}
	for i, call := range calls {
		if want := fmt.Sprintf("prompt-%d", i); call.Prompt != want {
			t.Fatalf("call %d prompt = %q, want %q", i, call.Prompt, want)
		}
	}
}

func TestExecutorRoutesOperationToModel(t *testing.T) {
	backend := &fakeBackend{}
	e := newTestExecutor(backend)
	defer e.Close()

	if _, err := e.Submit(context.Background(), "review", "draft"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	calls := backend.recorded()
	if len(calls) != 1 || calls[0].Model != "model-large" {
		t.Fatalf("calls = %+v, want review on model-large", calls)
	}
}

func TestResolveModelUnknownOperationFallsBackToRoutine(t *testing.T) {
	e := NewExecutor(testExecutorConfig(), &fakeBackend{}, resilience.NewBreaker(5, time.Minute))

	model, err := e.ResolveModel("never-configured")
	if err != nil {
		t.Fatalf("ResolveModel: %v", err)
	}
	if model != "model-small" {
		t.Fatalf("model = %q, want model-small (routine tier)", model)
	}
}

func TestResolveModelMissingTierMapping(t *testing.T) {
	cfg := testExecutorConfig()
	delete(cfg.TierModels, "routine")
	e := NewExecutor(cfg, &fakeBackend{}, resilience.NewBreaker(5, time.Minute))

	if _, err := e.ResolveModel("never-configured"); err == nil {
		t.Fatal("ResolveModel with no routine model should fail")
	}
}

func TestExecutorFailureSettlesOnlyItsOwnCall(t *testing.T) {
	boom := errors.New("backend down")
	backend := &fakeBackend{
		fail: func(req teambackend.Request) error {
			if req.Prompt == "bad" {
				return boom
			}
			return nil
		},
	}
	e := newTestExecutor(backend)
	defer e.Close()
	ctx := context.Background()

	if _, err := e.Submit(ctx, "summarize", "ok-1"); err != nil {
		t.Fatalf("Submit ok-1: %v", err)
	}
	if _, err := e.Submit(ctx, "summarize", "bad"); !errors.Is(err, boom) {
		t.Fatalf("Submit bad = %v, want backend error", err)
	}
	resp, err := e.Submit(ctx, "summarize", "ok-2")
	if err != nil {
		t.Fatalf("Submit ok-2 after failure: %v", err)
	}
	if resp == nil || resp.Text == "" {
		t.Fatal("queue should keep draining after a failed item")
	}
}

func TestExecutorSubmitAfterClose(t *testing.T) {
	e := newTestExecutor(&fakeBackend{})
	e.Close()

	if _, err := e.Submit(context.Background(), "summarize", "late"); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Submit after Close = %v, want ErrQueueClosed", err)
	}
}

func TestExecutorCloseIsIdempotent(t *testing.T) {
	e := newTestExecutor(&fakeBackend{})
	e.Close()
	e.Close()
}

func TestExecutorSubmitCancelledContext(t *testing.T) {
	e := newTestExecutor(&fakeBackend{})
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Submit(ctx, "summarize", "cancelled"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Submit with cancelled ctx = %v, want context.Canceled", err)
	}
}
