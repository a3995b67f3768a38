package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/relaydesk/relay/internal/tool"
)

type namedTool struct {
	name string
	desc string
}

func (n *namedTool) Name() string                  { return n.name }
func (n *namedTool) Description() string           { return n.desc }
func (n *namedTool) Validate(map[string]any) error { return nil }
func (n *namedTool) Execute(context.Context, map[string]any, map[string]any) (any, error) {
	return nil, nil
}

func TestBuildPromptFiltersUndeclaredTools(t *testing.T) {
	a := &Agent{
		Name:  "helper",
		Tools: []AgentTool{{Name: "calculator"}},
	}
	catalogue := []tool.Tool{
		&namedTool{name: "calculator", desc: "Evaluates arithmetic"},
		&namedTool{name: "clock", desc: "Tells the time"},
	}
	rctx := &ReasoningContext{History: []Message{{Role: "user", Content: "what is 2+2"}}}

	prompt := BuildPrompt(a, rctx, catalogue, nil, nil)
	if !strings.Contains(prompt, "calculator") {
		t.Error("expected declared tool in prompt")
	}
	if strings.Contains(prompt, "clock") {
		t.Error("undeclared tool must not appear in prompt")
	}
	if !strings.Contains(prompt, "user: what is 2+2") {
		t.Error("expected conversation history in prompt")
	}
	if !strings.Contains(prompt, "ACTION: use_tool") {
		t.Error("expected protocol instructions in prompt")
	}
}

func TestBuildPromptListsAPIEndpoints(t *testing.T) {
	a := &Agent{
		Name: "booking",
		Tools: []AgentTool{{
			Name: tool.APICallerName,
			Config: map[string]any{
				"endpoints": map[string]any{
					"get_weather":  map[string]any{},
					"create_order": map[string]any{},
				},
			},
		}},
	}
	catalogue := []tool.Tool{&namedTool{name: tool.APICallerName, desc: "Calls configured HTTP APIs"}}

	prompt := BuildPrompt(a, &ReasoningContext{}, catalogue, nil, nil)
	if !strings.Contains(prompt, "configured endpoints: create_order, get_weather") {
		t.Errorf("expected sorted endpoint names in prompt, got:\n%s", prompt)
	}
}

func TestBuildPromptIncludesTrace(t *testing.T) {
	a := &Agent{Name: "helper"}
	steps := []ThinkingStep{{Kind: StepAnalyzeInput, Reasoning: "looking at the request"}}
	toolsUsed := []tool.Invocation{
		{ToolName: "calculator", Success: true, Result: map[string]any{"result": 4.0}, ExecutionTimeMS: 2},
		{ToolName: "api_caller", Success: false, Error: "endpoint timed out", ExecutionTimeMS: 30000},
	}

	prompt := BuildPrompt(a, &ReasoningContext{}, nil, steps, toolsUsed)
	if !strings.Contains(prompt, "[analyze_input] looking at the request") {
		t.Error("expected thinking step in prompt")
	}
	if !strings.Contains(prompt, "calculator OK") {
		t.Error("expected successful tool result in prompt")
	}
	if !strings.Contains(prompt, "api_caller FAILED (30000ms): endpoint timed out") {
		t.Error("expected failed tool result in prompt")
	}
}
