package toolevent

import (
	"encoding/json"
	"strings"
)

// Parser turns a single output line into zero or more canonical
// ToolEvents. Implementations must be safe to call sequentially from
// a single goroutine; they are not required to be concurrency-safe.
type Parser interface {
	ParseLine(line string) []Event
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(line string) []Event

// ParseLine implements Parser.
func (f ParserFunc) ParseLine(line string) []Event { return f(line) }

// ParsePrefixed recognizes the canonical sentinel-prefixed line format:
//
//	@@MEM_TOOL_EVENT@@ {"v":1,"type":"tool.request",...}
//
// Lines not starting with the sentinel are ignored (nil, no error).
func ParsePrefixed(line string) *Event {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, Prefix) {
		return nil
	}
	jsonPart := strings.TrimSpace(s[len(Prefix):])
	if jsonPart == "" {
		return nil
	}
	var ev Event
	if err := json.Unmarshal([]byte(jsonPart), &ev); err != nil {
		return nil
	}
	return &ev
}

// FormatPrefixed renders ev in the canonical sentinel-prefixed form.
func FormatPrefixed(ev Event) string {
	b, err := json.Marshal(ev)
	if err != nil {
		b = []byte("{}")
	}
	return Prefix + " " + string(b)
}

// ParseRawSchema attempts to deserialize line directly as a ToolEvent,
// used as the final fallback once the sentinel prefix and the known
// external dialects have both been ruled out. Lines whose type is not
// one of the canonical event kinds (e.g. a dialect's init line) yield nil.
func ParseRawSchema(line string) *Event {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "{") {
		return nil
	}
	var ev Event
	if err := json.Unmarshal([]byte(s), &ev); err != nil {
		return nil
	}
	switch ev.Kind {
	case KindToolRequest, KindToolResult, KindAssistantOutput,
		KindAssistantReasoning, KindAssistantAction, KindEventEnd:
		return &ev
	}
	return nil
}

// CompositeParser is the default parser: sentinel-prefix first, then
// external stream-JSON dialect detection, then the raw canonical
// schema. It is stateful only through the embedded StreamJSONParser
// (Gemini-style tool_result/tool_use correlation by id).
type CompositeParser struct {
	dialect *StreamJSONParser
}

// NewCompositeParser returns a ready-to-use composite parser.
func NewCompositeParser() *CompositeParser {
	return &CompositeParser{dialect: NewStreamJSONParser()}
}

// ParseLine implements Parser. The hot path short-circuits on an O(1)
// prefix check before attempting any JSON deserialization.
func (c *CompositeParser) ParseLine(line string) []Event {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, Prefix) {
		return nil
	}

	if ev := ParsePrefixed(trimmed); ev != nil {
		return []Event{*ev}
	}
	if events := c.dialect.ParseLine(trimmed); len(events) > 0 {
		return events
	}
	if ev := ParseRawSchema(trimmed); ev != nil {
		return []Event{*ev}
	}
	return nil
}
