package protocol

import (
	"strings"
	"time"

	"github.com/Strob0t/AgentForge/internal/port/runtime"
)

// throttleWindow is the minimum gap between two progress events emitted by
// the raw strategy.
const throttleWindow = 5 * time.Second

// rawSummaryMax bounds a raw-strategy progress summary.
const rawSummaryMax = 80

// RawThrottle is the raw-text output strategy for tools without a structured
// protocol. Every chunk is forwarded verbatim (control codes stripped) for
// terminal display, but at most one progress event fires per throttle
// window. The very first chunk always emits an immediate "processing" event
// regardless of the window.
type RawThrottle struct {
	onProgress func(runtime.Progress)
	onTerminal func(string)

	started  bool
	lastEmit time.Time
	now      func() time.Time
}

// NewRawThrottle creates a throttled raw stream. Either callback may be nil.
func NewRawThrottle(onProgress func(runtime.Progress), onTerminal func(string)) *RawThrottle {
	return &RawThrottle{onProgress: onProgress, onTerminal: onTerminal, now: time.Now}
}

// Write consumes a chunk of subprocess output.
func (r *RawThrottle) Write(chunk []byte) {
	cleaned := StripControl(string(chunk))
	if r.onTerminal != nil && cleaned != "" {
		r.onTerminal(cleaned)
	}
	if r.onProgress == nil {
		return
	}

	now := r.now()
	if !r.started {
		r.started = true
		r.lastEmit = now
		r.onProgress(runtime.Progress{Kind: runtime.ProgressProcessing, Summary: "processing"})
		return
	}
	if now.Sub(r.lastEmit) < throttleWindow {
		return
	}
	r.lastEmit = now
	r.onProgress(classifyChunk(cleaned))
}

// classifyChunk maps cleaned chunk text onto a progress event by scanning
// for execution keywords.
func classifyChunk(text string) runtime.Progress {
	summary := strings.TrimSpace(text)
	if i := strings.IndexByte(summary, '\n'); i >= 0 {
		summary = summary[:i]
	}
	if len(summary) > rawSummaryMax {
		summary = summary[:rawSummaryMax]
	}

	lower := strings.ToLower(text)
	kind := runtime.ProgressText
	switch {
	case containsAny(lower, "running", "executing", "$ ", "npm ", "go test", "installing", "building", "compiling"):
		kind = runtime.ProgressToolUse
	case containsAny(lower, "thinking", "planning", "analyzing", "considering"):
		kind = runtime.ProgressThinking
	}
	return runtime.Progress{Kind: kind, Summary: summary}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
