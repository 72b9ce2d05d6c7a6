package toolevent

import (
	"encoding/json"
)

// dialectEnvelope is a permissive superset of the three supported
// external stream-JSON dialects (Claude Code, Codex, Gemini CLI),
// deserialized once and then dispatched on by field presence.
type dialectEnvelope struct {
	Type string `json:"type"`

	// Gemini CLI: top-level tool_use / tool_result.
	ToolID     string          `json:"tool_id"`
	ToolName   string          `json:"tool_name"`
	Parameters json.RawMessage `json:"parameters"`
	Status     string          `json:"status"`
	Output     json.RawMessage `json:"output"`

	// Gemini init line.
	SessionID string `json:"session_id"`

	// Codex CLI: function_call / function_call_output.
	CallID    string          `json:"call_id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`

	// Claude Code: nested message.content[] items.
	Message *claudeMessage `json:"message"`
}

type claudeMessage struct {
	Content []claudeContentItem `json:"content"`
}

type claudeContentItem struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	Text      string          `json:"text"`
	IsError   *bool           `json:"is_error"`
}

// StreamJSONParser normalizes the three external stream-JSON dialects
// into canonical ToolEvents. It is stateful because the Gemini dialect
// emits tool_result without repeating the tool name, so the name must
// be correlated from the prior tool_use by tool_id.
type StreamJSONParser struct {
	toolByID map[string]string
}

// NewStreamJSONParser returns a parser ready to track id->tool
// correlation across a single session's lines.
func NewStreamJSONParser() *StreamJSONParser {
	return &StreamJSONParser{toolByID: make(map[string]string)}
}

// ParseLine attempts to interpret line as one of the supported
// dialects, returning zero or more normalized events (a single line
// can in principle carry multiple tool_use blocks for the Claude
// dialect).
func (p *StreamJSONParser) ParseLine(line string) []Event {
	var env dialectEnvelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		return nil
	}

	switch env.Type {
	case "tool_use":
		if env.ToolID == "" {
			return nil
		}
		tool := env.ToolName
		if tool != "" {
			p.toolByID[env.ToolID] = tool
		}
		return []Event{{
			V:    1,
			Kind: KindToolRequest,
			ID:   env.ToolID,
			Tool: tool,
			Args: env.Parameters,
		}}

	case "tool_result":
		if env.ToolID == "" {
			return nil
		}
		tool := env.ToolName
		if tool == "" {
			tool = p.toolByID[env.ToolID]
		}
		ok := env.Status != "error" && env.Status != "failed"
		return []Event{{
			V:      1,
			Kind:   KindToolResult,
			ID:     env.ToolID,
			Tool:   tool,
			Ok:     &ok,
			Output: env.Output,
		}}

	case "function_call":
		if env.CallID == "" {
			return nil
		}
		if env.Name != "" {
			p.toolByID[env.CallID] = env.Name
		}
		return []Event{{
			V:    1,
			Kind: KindToolRequest,
			ID:   env.CallID,
			Tool: env.Name,
			Args: env.Arguments,
		}}

	case "function_call_output":
		if env.CallID == "" {
			return nil
		}
		ok := true
		return []Event{{
			V:      1,
			Kind:   KindToolResult,
			ID:     env.CallID,
			Tool:   p.toolByID[env.CallID],
			Ok:     &ok,
			Output: env.Output,
		}}

	case "assistant", "user":
		if env.Message == nil {
			return nil
		}
		var out []Event
		for _, item := range env.Message.Content {
			switch item.Type {
			case "tool_use":
				if item.ID == "" {
					continue
				}
				if item.Name != "" {
					p.toolByID[item.ID] = item.Name
				}
				out = append(out, Event{
					V:    1,
					Kind: KindToolRequest,
					ID:   item.ID,
					Tool: item.Name,
					Args: item.Input,
				})
			case "tool_result":
				if item.ToolUseID == "" {
					continue
				}
				ok := item.IsError == nil || !*item.IsError
				out = append(out, Event{
					V:      1,
					Kind:   KindToolResult,
					ID:     item.ToolUseID,
					Tool:   p.toolByID[item.ToolUseID],
					Ok:     &ok,
					Output: item.Content,
				})
			case "text":
				if item.Text == "" {
					continue
				}
				raw, _ := json.Marshal(item.Text)
				out = append(out, Event{
					V:      1,
					Kind:   KindAssistantOutput,
					Output: raw,
				})
			}
		}
		return out

	default:
		return nil
	}
}
