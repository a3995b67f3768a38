package agent

import (
	"encoding/json"
	"strings"
)

// ActionKind tags the structured intent extracted from model output.
type ActionKind string

const (
	ActionUseTool     ActionKind = "use_tool"
	ActionRespond     ActionKind = "respond"
	ActionThink       ActionKind = "think"
	ActionUnparseable ActionKind = "unparseable"
)

// ParsedAction is the structured form of one raw model completion.
type ParsedAction struct {
	Kind       ActionKind
	ToolName   string
	Parameters map[string]any
	Text       string
	Reasoning  string
}

// Protocol line markers. The model is instructed to emit lines beginning
// with these prefixes; the first occurrence of each wins.
const (
	markerAction     = "ACTION:"
	markerTool       = "TOOL:"
	markerResponse   = "RESPONSE:"
	markerReasoning  = "REASONING:"
	markerParameters = "PARAMETERS:"
)

// ParseAction converts raw model text into a ParsedAction. Malformed input
// never produces an error: unusable text degrades to ActionUnparseable and
// broken parameter blocks degrade to an empty parameter map.
func ParseAction(raw string) ParsedAction {
	var action, toolName, response, reasoning string

	offset := 0
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case action == "" && strings.HasPrefix(trimmed, markerAction):
			action = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, markerAction)))
		case toolName == "" && strings.HasPrefix(trimmed, markerTool):
			toolName = strings.TrimSpace(strings.TrimPrefix(trimmed, markerTool))
		case response == "" && strings.HasPrefix(trimmed, markerResponse):
			// The response body may continue past this line; capture
			// everything after the marker on THIS line so multi-line
			// answers survive. Anchoring to the line's own offset keeps
			// a "RESPONSE:" substring in earlier prose from hijacking
			// the extraction.
			start := offset + strings.Index(line, markerResponse) + len(markerResponse)
			response = strings.TrimSpace(raw[start:])
		case reasoning == "" && strings.HasPrefix(trimmed, markerReasoning):
			reasoning = strings.TrimSpace(strings.TrimPrefix(trimmed, markerReasoning))
		}
		offset += len(line) + 1
	}

	switch action {
	case "use_tool":
		if toolName == "" {
			return ParsedAction{Kind: ActionUnparseable, Reasoning: reasoning}
		}
		return ParsedAction{
			Kind:       ActionUseTool,
			ToolName:   toolName,
			Parameters: extractParameters(raw),
			Reasoning:  reasoning,
		}
	case "respond":
		return ParsedAction{Kind: ActionRespond, Text: response, Reasoning: reasoning}
	case "think":
		return ParsedAction{Kind: ActionThink, Reasoning: reasoning}
	}

	// No recognizable ACTION line. A bare RESPONSE line still counts as a
	// response for lenient models; anything else is unparseable.
	if response != "" {
		return ParsedAction{Kind: ActionRespond, Text: response, Reasoning: reasoning}
	}
	return ParsedAction{Kind: ActionUnparseable, Reasoning: reasoning}
}

// extractParameters pulls the JSON object following the PARAMETERS: marker.
// The object may span multiple lines, so the parser scans forward from the
// first '{' counting brace depth until it balances. Single-line splitting
// would truncate nested JSON.
func extractParameters(raw string) map[string]any {
	idx := strings.Index(raw, markerParameters)
	if idx < 0 {
		return parametersFallback(raw)
	}

	rest := raw[idx+len(markerParameters):]
	open := strings.Index(rest, "{")
	if open < 0 {
		return map[string]any{}
	}

	depth := 0
	end := -1
	for i := open; i < len(rest); i++ {
		switch rest[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return map[string]any{}
	}

	params := map[string]any{}
	if err := json.Unmarshal([]byte(rest[open:end+1]), &params); err != nil {
		return map[string]any{}
	}
	return params
}

// parametersFallback handles older completions that emit a bare JSON object
// on its own line without a PARAMETERS: marker.
func parametersFallback(raw string) map[string]any {
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
			params := map[string]any{}
			if err := json.Unmarshal([]byte(trimmed), &params); err == nil {
				return params
			}
		}
	}
	return map[string]any{}
}
