package protocol

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Strob0t/AgentForge/internal/port/runtime"
)

// toolArgMax bounds the command/file argument embedded in a tool-use
// progress summary.
const toolArgMax = 60

// StructuredStream parses newline-delimited JSON agent output. Output is
// buffered by line; only complete lines reach the decoder. Unparseable
// lines are ignored for progress purposes but still surfaced as raw
// terminal text. Close flushes any trailing partial line as a final line.
type StructuredStream struct {
	buf    bytes.Buffer
	raw    bytes.Buffer
	events []Event

	onProgress func(runtime.Progress)
	onTerminal func(string)
}

// NewStructuredStream creates a stream. Either callback may be nil.
func NewStructuredStream(onProgress func(runtime.Progress), onTerminal func(string)) *StructuredStream {
	return &StructuredStream{onProgress: onProgress, onTerminal: onTerminal}
}

// Write consumes a chunk of subprocess output.
func (s *StructuredStream) Write(chunk []byte) {
	s.raw.Write(chunk)
	s.buf.Write(chunk)

	for {
		line, rest, found := bytes.Cut(s.buf.Bytes(), []byte{'\n'})
		if !found {
			return
		}
		s.consumeLine(string(line))
		remaining := make([]byte, len(rest))
		copy(remaining, rest)
		s.buf.Reset()
		s.buf.Write(remaining)
	}
}

// Close flushes the buffer: a trailing partial line is treated as a final
// complete line.
func (s *StructuredStream) Close() {
	if s.buf.Len() > 0 {
		s.consumeLine(s.buf.String())
		s.buf.Reset()
	}
}

// Events returns all decoded events in arrival order.
func (s *StructuredStream) Events() []Event { return s.events }

// Raw returns the accumulated unparsed output.
func (s *StructuredStream) Raw() string { return s.raw.String() }

func (s *StructuredStream) consumeLine(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(trimmed), &ev); err != nil || ev.Type == "" {
		// Not a protocol line. Surface it as raw terminal text only.
		if s.onTerminal != nil {
			s.onTerminal(StripControl(line) + "\n")
		}
		return
	}

	s.events = append(s.events, ev)
	s.emit(ev)
}

// emit converts one event into progress callbacks and markdown terminal
// fragments.
func (s *StructuredStream) emit(ev Event) {
	if s.onTerminal != nil {
		if md := RenderMarkdown(ev); md != "" {
			s.onTerminal(md)
		}
	}
	if s.onProgress == nil || ev.Message == nil {
		return
	}

	for i := range ev.Message.Content {
		block := &ev.Message.Content[i]
		switch block.Type {
		case BlockToolUse:
			summary := block.Name
			if target := block.ToolTarget(); target != "" {
				summary += ": " + truncate(target, toolArgMax)
			}
			s.onProgress(runtime.Progress{Kind: runtime.ProgressToolUse, Summary: summary})
		case BlockThinking:
			s.onProgress(runtime.Progress{Kind: runtime.ProgressThinking, Summary: "thinking"})
		case BlockText:
			s.onProgress(runtime.Progress{Kind: runtime.ProgressText, Summary: truncate(block.Text, toolArgMax)})
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
