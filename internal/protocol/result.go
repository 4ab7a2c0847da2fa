package protocol

import (
	"encoding/json"
	"strings"

	"github.com/Strob0t/AgentForge/internal/port/runtime"
)

// errorMax bounds user-visible failure messages.
const errorMax = 500

// ExtractResult assembles the final result of a one-shot execution from the
// decoded event stream and the raw output.
//
// Decoded events are scanned backward for an explicit result event; the last
// one wins, which supports resumed multi-turn output containing several
// result events. A present result event means success even when the process
// exited non-zero: some tools exit non-zero after producing a complete,
// valid result.
//
// Without a result event, the entire output is tried as one JSON document;
// failing that, the control-code-stripped raw text is returned and success
// follows the exit code.
func ExtractResult(events []Event, rawOutput string, exitCode int, stderrTail string) *runtime.Result {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type != EventResult {
			continue
		}
		ev := events[i]
		return &runtime.Result{
			Success:   true,
			Text:      ev.Result,
			SessionID: ev.SessionID,
			Usage:     aggregateUsage(events, &ev),
		}
	}

	// No result event: maybe the whole output is a single JSON document.
	trimmed := strings.TrimSpace(rawOutput)
	var whole Event
	if err := json.Unmarshal([]byte(trimmed), &whole); err == nil && whole.Result != "" {
		return &runtime.Result{
			Success:   exitCode == 0,
			Text:      whole.Result,
			SessionID: whole.SessionID,
			Usage:     aggregateUsage(events, &whole),
			Error:     classifyFailure(exitCode, stderrTail, trimmed),
		}
	}

	stripped := strings.TrimSpace(StripControl(rawOutput))
	return &runtime.Result{
		Success: exitCode == 0,
		Text:    stripped,
		Usage:   aggregateUsage(events, nil),
		Error:   classifyFailure(exitCode, stderrTail, stripped),
	}
}

// aggregateUsage sums usage pairs found across all lines, preferring an
// explicit aggregate on the result event when present.
func aggregateUsage(events []Event, result *Event) runtime.Usage {
	if result != nil && result.Usage != nil {
		return runtime.Usage{InputTokens: result.Usage.InputTokens, OutputTokens: result.Usage.OutputTokens}
	}

	var total runtime.Usage
	for i := range events {
		if u := events[i].Usage; u != nil {
			total.InputTokens += u.InputTokens
			total.OutputTokens += u.OutputTokens
		}
		if m := events[i].Message; m != nil && m.Usage != nil {
			total.InputTokens += m.Usage.InputTokens
			total.OutputTokens += m.Usage.OutputTokens
		}
	}
	return total
}

// classifyFailure builds a bounded failure message from stderr, the last
// output line, and the exit code. Empty for a zero exit.
func classifyFailure(exitCode int, stderrTail, output string) string {
	if exitCode == 0 {
		return ""
	}
	msg := strings.TrimSpace(stderrTail)
	if msg == "" {
		if i := strings.LastIndexByte(strings.TrimRight(output, "\n"), '\n'); i >= 0 {
			msg = output[i+1:]
		} else {
			msg = output
		}
		msg = strings.TrimSpace(msg)
	}
	if msg == "" {
		msg = "process exited with a non-zero code"
	}
	if len(msg) > errorMax {
		msg = msg[:errorMax]
	}
	return msg
}
