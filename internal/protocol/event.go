package protocol

import "encoding/json"

// Event type constants for the structured output protocol.
const (
	EventSystem    = "system"
	EventAssistant = "assistant"
	EventResult    = "result"
)

// Content block type constants.
const (
	BlockToolUse  = "tool_use"
	BlockThinking = "thinking"
	BlockText     = "text"
)

// UsageBlock carries token counts attached to an event or message.
type UsageBlock struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ContentBlock is one element of an assistant message's content array.
type ContentBlock struct {
	Type  string          `json:"type"`
	Name  string          `json:"name,omitempty"`
	Text  string          `json:"text,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Message is the assistant message envelope inside an event.
type Message struct {
	Content []ContentBlock `json:"content"`
	Usage   *UsageBlock    `json:"usage,omitempty"`
}

// Event is one decoded line of structured agent output.
type Event struct {
	Type      string      `json:"type"`
	Subtype   string      `json:"subtype,omitempty"`
	Message   *Message    `json:"message,omitempty"`
	Result    string      `json:"result,omitempty"`
	IsError   bool        `json:"is_error,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Usage     *UsageBlock `json:"usage,omitempty"`
}

// ToolTarget extracts the command or file argument from a tool_use block's
// input, whichever is present. Empty when neither is.
func (b *ContentBlock) ToolTarget() string {
	if len(b.Input) == 0 {
		return ""
	}
	var input struct {
		Command  string `json:"command"`
		FilePath string `json:"file_path"`
		Path     string `json:"path"`
	}
	if err := json.Unmarshal(b.Input, &input); err != nil {
		return ""
	}
	if input.Command != "" {
		return input.Command
	}
	if input.FilePath != "" {
		return input.FilePath
	}
	return input.Path
}
