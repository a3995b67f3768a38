package agent

import "time"

// Kind distinguishes conversational agents from batch task agents.
type Kind string

const (
	KindChat Kind = "chat"
	KindTask Kind = "task"
)

// Status represents an agent's lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// AgentTool attaches per-agent configuration to a registered tool name.
type AgentTool struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config,omitempty"`
}

// Agent is an operator-defined actor backed by a language model.
type Agent struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Kind         Kind        `json:"kind"`
	Status       Status      `json:"status"`
	ProviderID   string      `json:"provider_id,omitempty"`
	Model        string      `json:"model"`
	SystemPrompt string      `json:"system_prompt"`
	Temperature  float64     `json:"temperature,omitempty"`
	MaxToolCalls int         `json:"max_tool_calls,omitempty"`
	Tools        []AgentTool `json:"tools,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Tool returns the agent's configuration for a tool name.
func (a *Agent) Tool(name string) (AgentTool, bool) {
	for _, t := range a.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return AgentTool{}, false
}

// HasTool reports whether the agent declares the named tool.
func (a *Agent) HasTool(name string) bool {
	_, ok := a.Tool(name)
	return ok
}
