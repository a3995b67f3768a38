package agent

import (
	"github.com/relaydesk/relay/internal/provider"
	"github.com/relaydesk/relay/internal/tool"
)

// Message is one role-tagged entry in the conversation or task history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ReasoningContext is the immutable input to one reasoning run.
type ReasoningContext struct {
	History      []Message `json:"history"`
	MaxToolCalls int       `json:"max_tool_calls,omitempty"`
}

// StepKind identifies the kind of thinking step.
type StepKind string

const (
	StepAnalyzeInput      StepKind = "analyze_input"
	StepToolExecution     StepKind = "tool_execution"
	StepToolFailed        StepKind = "tool_failed"
	StepContinueReasoning StepKind = "continue_reasoning"
	StepFinalResponse     StepKind = "final_response"
)

// ThinkingStep is one append-only entry in the reasoning trace. Steps are
// never deleted; the full log is returned to the caller.
type ThinkingStep struct {
	Kind      StepKind `json:"step_kind"`
	Reasoning string   `json:"reasoning"`
}

// RunResult is handed back to the caller after one reasoning run. The
// engine keeps no state between runs; persistence is the caller's concern.
type RunResult struct {
	RunID     string            `json:"run_id"`
	FinalText string            `json:"final_text"`
	Steps     []ThinkingStep    `json:"thinking_process"`
	ToolsUsed []tool.Invocation `json:"tools_used"`
	Usage     provider.Usage    `json:"token_usage"`
}
