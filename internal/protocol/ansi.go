// Package protocol normalizes heterogeneous agent CLI output into typed
// progress and text events. Two interchangeable strategies exist: a
// line-buffered structured-event parser for tools that emit newline-delimited
// JSON, and a throttled raw-text strategy for tools that only print terminal
// output.
package protocol

import "strings"

// StripControl removes ANSI escape sequences and non-printing control
// characters from s, keeping newlines and tabs.
func StripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == 0x1b { // ESC: skip the whole escape sequence
			i += escapeLen(runes[i:]) - 1
			continue
		}
		if r == '\n' || r == '\t' || r == '\r' || r >= 0x20 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeLen returns the length of the escape sequence starting at runes[0]
// (which is ESC). CSI sequences run to a final byte in 0x40..0x7e; OSC
// sequences run to BEL or ST; anything else is a two-rune sequence.
func escapeLen(runes []rune) int {
	if len(runes) < 2 {
		return 1
	}
	switch runes[1] {
	case '[': // CSI
		for i := 2; i < len(runes); i++ {
			if runes[i] >= 0x40 && runes[i] <= 0x7e {
				return i + 1
			}
		}
		return len(runes)
	case ']': // OSC
		for i := 2; i < len(runes); i++ {
			if runes[i] == 0x07 {
				return i + 1
			}
			if runes[i] == 0x1b && i+1 < len(runes) && runes[i+1] == '\\' {
				return i + 2
			}
		}
		return len(runes)
	default:
		return 2
	}
}
