package gatekeeper

import (
	"fmt"
	"strings"
)

// InjectPlacement names where a rendered memory-context block is placed
// relative to the user's query.
type InjectPlacement string

const (
	InjectPlacementSystem InjectPlacement = "system"
	InjectPlacementPrefix InjectPlacement = "prefix"
)

// InjectConfig controls how RenderMemoryContext formats a set of
// InjectItem values for prompt injection.
type InjectConfig struct {
	Placement       InjectPlacement
	MaxItems        int
	MaxAnswerChars  int
	IncludeMetaLine bool
}

// DefaultInjectConfig mirrors the grounding source's documented defaults.
func DefaultInjectConfig() InjectConfig {
	return InjectConfig{
		Placement:       InjectPlacementSystem,
		MaxItems:        3,
		MaxAnswerChars:  900,
		IncludeMetaLine: true,
	}
}

// RenderMemoryContext formats items as a "[MEMORY_CONTEXT v1]" block the
// wrapped assistant is instructed to cite via "[QA_REF <qa_id>]" anchors.
// Returns "" if items is empty.
func RenderMemoryContext(items []InjectItem, cfg InjectConfig) string {
	if len(items) == 0 {
		return ""
	}

	var out strings.Builder
	out.WriteString("[MEMORY_CONTEXT v1]\n")
	out.WriteString("The following items are retrieved from the memory system. Prefer using them when relevant.\n")
	out.WriteString("If you use an item, include its anchor exactly once in your final answer: [QA_REF <qa_id>].\n\n")

	maxItems := cfg.MaxItems
	if maxItems <= 0 || maxItems > len(items) {
		maxItems = len(items)
	}

	for i, it := range items[:maxItems] {
		fmt.Fprintf(&out, "%d) [QA_REF %s]\n", i+1, it.QAID)
		fmt.Fprintf(&out, "Q: %s\n", oneLine(it.Question))
		fmt.Fprintf(&out, "A: %s\n", pickAnswer(it, cfg.MaxAnswerChars))

		if cfg.IncludeMetaLine {
			tags := "-"
			if len(it.Tags) > 0 {
				tags = strings.Join(it.Tags, ",")
			}
			fmt.Fprintf(&out, "Meta: level=%d trust=%.2f score=%.2f tags=%s\n",
				it.ValidationLevel, it.Trust, it.Score, tags)
		}
		out.WriteString("\n")
	}

	out.WriteString("Rules:\n")
	out.WriteString("- Do not invent anchors.\n")
	out.WriteString("- If none are relevant, ignore them.\n")
	out.WriteString("- Prefer the highest validation_level and trust.\n")
	out.WriteString("[/MEMORY_CONTEXT]\n")

	return out.String()
}

// MergePrompt prepends memoryContext to userQuery, or returns userQuery
// unchanged if memoryContext is blank.
func MergePrompt(userQuery, memoryContext string) string {
	if strings.TrimSpace(memoryContext) == "" {
		return userQuery
	}
	return memoryContext + "\n" + userQuery
}

func pickAnswer(it InjectItem, maxChars int) string {
	raw := it.Summary
	if raw == "" {
		raw = it.Answer
	}
	return truncateClean(raw, maxChars)
}

// oneLine collapses whitespace runs (including newlines) into single
// spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateClean trims s, normalizes CRLF to LF, and truncates to at most
// maxChars runes, appending " ..." when truncation actually occurred.
func truncateClean(s string, maxChars int) string {
	t := strings.ReplaceAll(strings.TrimSpace(s), "\r\n", "\n")
	runes := []rune(t)
	if len(runes) <= maxChars {
		return t
	}
	return string(runes[:maxChars]) + " ..."
}
