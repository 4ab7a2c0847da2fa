package session

import (
	"bytes"
	"sync"
	"time"

	"github.com/Strob0t/AgentForge/internal/debounce"
	"github.com/Strob0t/AgentForge/internal/port/lifecycle"
)

// lastTailMax bounds the output tail retained for exit diagnostics.
const lastTailMax = 2048

// dsrStatus and dsrCursor are the device-status-report queries agent tools
// send to query their terminal. Headless, nothing would ever answer them
// and the tool hangs; the handler answers locally instead.
var (
	dsrStatus = []byte("\x1b[5n")
	dsrCursor = []byte("\x1b[6n")

	dsrStatusReply = []byte("\x1b[0n")
	dsrCursorReply = []byte("\x1b[1;1R")
)

// dataHandler is the shared output path for direct and sandboxed sessions:
// it intercepts terminal capability queries, maintains bounded scrollback,
// and batches rapid writes before forwarding to the sink. The batch delay
// is a hard bound, not a quiet period: an agent streaming output without
// pause still reaches the shell within one interval of the first byte.
type dataHandler struct {
	agentID string
	sink    lifecycle.Sink
	answer  func([]byte) // writes a reply back to the PTY master

	mu        sync.Mutex
	scroll    []byte
	scrollMax int
	pending   bytes.Buffer
	lastTail  []byte

	batch *debounce.Batcher
}

func newDataHandler(agentID string, scrollMax int, batchInterval time.Duration, sink lifecycle.Sink, answer func([]byte)) *dataHandler {
	h := &dataHandler{
		agentID:   agentID,
		sink:      sink,
		answer:    answer,
		scrollMax: scrollMax,
	}
	h.batch = debounce.NewBatcher(batchInterval, h.forward, nil)
	return h
}

// handleOutput consumes one raw chunk from the PTY master.
func (h *dataHandler) handleOutput(chunk []byte) {
	if h.answer != nil {
		if bytes.Contains(chunk, dsrStatus) {
			h.answer(dsrStatusReply)
		}
		if bytes.Contains(chunk, dsrCursor) {
			h.answer(dsrCursorReply)
		}
	}

	h.mu.Lock()
	h.scroll = append(h.scroll, chunk...)
	if len(h.scroll) > h.scrollMax {
		h.scroll = h.scroll[len(h.scroll)-h.scrollMax:]
	}
	h.pending.Write(chunk)
	h.lastTail = append(h.lastTail, chunk...)
	if len(h.lastTail) > lastTailMax {
		h.lastTail = h.lastTail[len(h.lastTail)-lastTailMax:]
	}
	h.mu.Unlock()

	h.batch.Schedule()
}

// forward drains the pending buffer into the sink.
func (h *dataHandler) forward() error {
	h.mu.Lock()
	if h.pending.Len() == 0 {
		h.mu.Unlock()
		return nil
	}
	data := make([]byte, h.pending.Len())
	copy(data, h.pending.Bytes())
	h.pending.Reset()
	h.mu.Unlock()

	if h.sink != nil {
		h.sink.HandleOutput(h.agentID, data)
	}
	return nil
}

// finish flushes pending output and reports the exit to the sink.
func (h *dataHandler) finish(exitCode int) {
	h.batch.FlushNow()

	h.mu.Lock()
	tail := string(h.lastTail)
	h.mu.Unlock()

	if h.sink != nil {
		h.sink.HandleExit(h.agentID, exitCode, tail)
	}
}

// scrollback returns a copy of the retained scrollback buffer.
func (h *dataHandler) scrollback() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]byte, len(h.scroll))
	copy(out, h.scroll)
	return out
}
