package protocol

import "fmt"

// fencedMax bounds the body of a fenced code block rendered from a large
// output event.
const fencedMax = 500

// RenderMarkdown converts one structured event into a markdown fragment
// for terminal display: tool calls as inline code, large outputs as fenced
// code blocks, free text streamed verbatim. Returns "" for events with no
// visible rendering.
func RenderMarkdown(ev Event) string {
	switch ev.Type {
	case EventAssistant:
		if ev.Message == nil {
			return ""
		}
		out := ""
		for i := range ev.Message.Content {
			block := &ev.Message.Content[i]
			switch block.Type {
			case BlockToolUse:
				call := block.Name
				if target := block.ToolTarget(); target != "" {
					call += " " + target
				}
				out += fmt.Sprintf("`%s`\n", call)
			case BlockText:
				if len(block.Text) > fencedMax {
					out += "```\n" + block.Text[:fencedMax] + "\n```\n"
				} else {
					out += block.Text
				}
			}
		}
		return out
	case EventResult:
		if ev.Result == "" {
			return ""
		}
		if len(ev.Result) > fencedMax {
			return "```\n" + ev.Result[:fencedMax] + "\n```\n"
		}
		return ev.Result + "\n"
	}
	return ""
}
