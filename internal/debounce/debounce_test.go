package debounce

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleCoalesces(t *testing.T) {
	var calls atomic.Int32
	d := New(30*time.Millisecond, func() error {
		calls.Add(1)
		return nil
	}, nil)

	for range 5 {
		d.Schedule()
	}

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
}

func TestFlushNowRunsPending(t *testing.T) {
	var calls atomic.Int32
	d := New(time.Hour, func() error {
		calls.Add(1)
		return nil
	}, nil)

	d.Schedule()
	d.FlushNow()

	if got := calls.Load(); got != 1 {
		t.Fatalf("fn ran %d times after FlushNow, want 1", got)
	}

	// Nothing pending: a second flush is a no-op.
	d.FlushNow()
	if got := calls.Load(); got != 1 {
		t.Fatalf("fn ran %d times after second FlushNow, want 1", got)
	}
}

func TestFlushNowWithoutSchedule(t *testing.T) {
	var calls atomic.Int32
	d := New(time.Hour, func() error {
		calls.Add(1)
		return nil
	}, nil)

	d.FlushNow()
	if got := calls.Load(); got != 0 {
		t.Fatalf("fn ran %d times with nothing scheduled, want 0", got)
	}
}

func TestCancelDiscardsPending(t *testing.T) {
	var calls atomic.Int32
	d := New(20*time.Millisecond, func() error {
		calls.Add(1)
		return nil
	}, nil)

	d.Schedule()
	d.Cancel()

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("fn ran %d times after Cancel, want 0", got)
	}
}

func TestOnErrorReceivesFailure(t *testing.T) {
	wantErr := errors.New("disk full")
	got := make(chan error, 1)
	d := New(time.Hour, func() error { return wantErr }, func(err error) {
		got <- err
	})

	d.Schedule()
	d.FlushNow()

	select {
	case err := <-got:
		if !errors.Is(err, wantErr) {
			t.Fatalf("onError got %v, want %v", err, wantErr)
		}
	default:
		t.Fatal("onError was not called")
	}
}

func TestRescheduleAfterFlush(t *testing.T) {
	var calls atomic.Int32
	d := New(20*time.Millisecond, func() error {
		calls.Add(1)
		return nil
	}, nil)

	d.Schedule()
	d.FlushNow()
	d.Schedule()

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Fatalf("fn ran %d times, want 2", got)
	}
}

func TestBatcherCoalesces(t *testing.T) {
	var calls atomic.Int32
	b := NewBatcher(30*time.Millisecond, func() error {
		calls.Add(1)
		return nil
	}, nil)

	for range 5 {
		b.Schedule()
	}

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
}

func TestBatcherBoundedDelayUnderSustainedLoad(t *testing.T) {
	fired := make(chan struct{})
	var once sync.Once
	b := NewBatcher(25*time.Millisecond, func() error {
		once.Do(func() { close(fired) })
		return nil
	}, nil)

	// Schedule far faster than the interval, without ever pausing. A
	// quiet-period debounce would starve here; the batcher must fire
	// within one interval of the first call regardless.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				b.Schedule()
				time.Sleep(2 * time.Millisecond)
			}
		}
	}()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("fn never ran under sustained scheduling")
	}
}

func TestBatcherFlushNow(t *testing.T) {
	var calls atomic.Int32
	b := NewBatcher(time.Hour, func() error {
		calls.Add(1)
		return nil
	}, nil)

	b.Schedule()
	b.FlushNow()
	if got := calls.Load(); got != 1 {
		t.Fatalf("fn ran %d times after FlushNow, want 1", got)
	}

	// Nothing pending: a second flush is a no-op.
	b.FlushNow()
	if got := calls.Load(); got != 1 {
		t.Fatalf("fn ran %d times after second FlushNow, want 1", got)
	}
}

func TestBatcherOnErrorReceivesFailure(t *testing.T) {
	wantErr := errors.New("sink gone")
	got := make(chan error, 1)
	b := NewBatcher(time.Hour, func() error { return wantErr }, func(err error) {
		got <- err
	})

	b.Schedule()
	b.FlushNow()

	select {
	case err := <-got:
		if !errors.Is(err, wantErr) {
			t.Fatalf("onError got %v, want %v", err, wantErr)
		}
	default:
		t.Fatal("onError was not called")
	}
}
