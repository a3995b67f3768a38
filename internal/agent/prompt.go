package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/relaydesk/relay/internal/tool"
)

// protocolInstructions teaches the model the line-oriented action protocol
// the parser understands. Kept as one block so prompt and parser stay in
// lockstep.
const protocolInstructions = `You must reply with exactly one action using this format:

To call a tool:
ACTION: use_tool
TOOL: <tool name>
PARAMETERS: {"key": "value"}
REASONING: <why this tool>

To answer the user:
ACTION: respond
RESPONSE: <your answer>

To keep thinking before deciding:
ACTION: think
REASONING: <your reasoning>`

// BuildPrompt assembles the single prompt for one loop iteration: history,
// tool catalogue, the thinking log so far, and the tool results so far.
func BuildPrompt(a *Agent, rctx *ReasoningContext, catalogue []tool.Tool, steps []ThinkingStep, toolsUsed []tool.Invocation) string {
	var b strings.Builder

	if len(rctx.History) > 0 {
		b.WriteString("## Conversation\n")
		for _, m := range rctx.History {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Available tools\n")
	for _, t := range catalogue {
		if !a.HasTool(t.Name()) {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", t.Name(), t.Description())
		// The model cannot discover configured API endpoints on its own,
		// so list their names inline for the API caller.
		if t.Name() == tool.APICallerName {
			if names := configuredEndpoints(a); len(names) > 0 {
				fmt.Fprintf(&b, "  configured endpoints: %s\n", strings.Join(names, ", "))
			}
		}
	}
	b.WriteString("\n")

	if len(steps) > 0 {
		b.WriteString("## Thinking so far\n")
		for i, s := range steps {
			fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, s.Kind, s.Reasoning)
		}
		b.WriteString("\n")
	}

	if len(toolsUsed) > 0 {
		b.WriteString("## Tool results so far\n")
		for _, inv := range toolsUsed {
			if inv.Success {
				fmt.Fprintf(&b, "- %s OK (%dms): %s\n", inv.ToolName, inv.ExecutionTimeMS, compactJSON(inv.Result))
			} else {
				fmt.Fprintf(&b, "- %s FAILED (%dms): %s\n", inv.ToolName, inv.ExecutionTimeMS, inv.Error)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(protocolInstructions)
	return b.String()
}

// configuredEndpoints lists the endpoint names configured for the agent's
// API caller tool, sorted for a stable prompt.
func configuredEndpoints(a *Agent) []string {
	at, ok := a.Tool(tool.APICallerName)
	if !ok {
		return nil
	}
	endpoints, ok := at.Config["endpoints"].(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(endpoints))
	for name := range endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// compactJSON renders a tool result for prompt embedding, truncated so one
// large result cannot crowd out the rest of the prompt.
func compactJSON(v any) string {
	const maxLen = 2000
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	s := string(data)
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
