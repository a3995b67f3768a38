// Package tool implements the tool registry and executor plus the built-in
// tools agents can invoke. The registry is a failure boundary: no tool
// error or panic propagates past Execute.
package tool

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Tool is one named, independently invocable capability.
type Tool interface {
	Name() string
	Description() string
	Validate(params map[string]any) error
	Execute(ctx context.Context, params, config map[string]any) (any, error)
}

// Invocation is the recorded outcome of one tool call. Success and failure
// are both first-class terminal states, not exceptions.
type Invocation struct {
	ToolName        string         `json:"tool_name"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	Success         bool           `json:"success"`
	Result          any            `json:"result,omitempty"`
	Error           string         `json:"error,omitempty"`
	ExecutionTimeMS int64          `json:"execution_time_ms"`
}

// Registry owns the name→tool map. It is populated during startup and only
// read afterwards, so concurrent Execute calls need no locking.
type Registry struct {
	tools      map[string]Tool
	defs       DefinitionStore
	summarizer Summarizer
	logger     *zap.Logger
}

// NewRegistry creates a registry backed by the given definition store.
// A nil store disables definition lookups without disabling any tool.
func NewRegistry(defs DefinitionStore, logger *zap.Logger) *Registry {
	if defs == nil {
		defs = NewMemoryDefinitionStore()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		defs:   defs,
		logger: logger,
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
	r.logger.Info("registered tool", zap.String("name", t.Name()))
}

// SetSummarizer installs the result summarizer used for oversized API
// caller results.
func (r *Registry) SetSummarizer(s Summarizer) { r.summarizer = s }

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Execute looks up, validates, times, and invokes a tool, converting every
// failure mode into a failed Invocation.
func (r *Registry) Execute(ctx context.Context, name string, params, agentConfig map[string]any) Invocation {
	inv := Invocation{ToolName: name, Parameters: params}

	t, ok := r.tools[name]
	if !ok {
		inv.Error = fmt.Sprintf("no handler registered for tool %q", name)
		return inv
	}

	// Definition lookup is best-effort: a persistence outage must never
	// make a built-in tool unusable.
	def, err := r.defs.FindActiveTool(ctx, name)
	if err != nil {
		r.logger.Warn("tool definition lookup failed, proceeding without it",
			zap.String("tool", name), zap.Error(err))
		def = nil
	}

	// Merged fresh per invocation: agent configuration can change between
	// runs, so nothing here is cached.
	var defaults map[string]any
	if def != nil {
		defaults = def.ConfigDefaults
	}
	merged := MergeConfig(defaults, agentConfig)

	if def != nil {
		if verr := def.Validate(params); verr != nil {
			inv.Error = verr.Error()
			return inv
		}
	}
	if verr := t.Validate(params); verr != nil {
		inv.Error = verr.Error()
		return inv
	}

	start := time.Now()
	result, execErr := safeExecute(ctx, t, params, merged)
	inv.ExecutionTimeMS = time.Since(start).Milliseconds()

	if execErr != nil {
		inv.Error = execErr.Error()
	} else {
		inv.Success = true
		inv.Result = r.maybePostProcess(ctx, name, merged, params, result)
	}

	if def != nil {
		if serr := r.defs.RecordUsage(ctx, name, inv.Success, time.Duration(inv.ExecutionTimeMS)*time.Millisecond); serr != nil {
			r.logger.Warn("tool usage recording failed",
				zap.String("tool", name), zap.Error(serr))
		}
	}

	r.logger.Debug("tool executed",
		zap.String("tool", name),
		zap.Bool("success", inv.Success),
		zap.Int64("ms", inv.ExecutionTimeMS))
	return inv
}

// safeExecute invokes the tool and converts panics into errors.
func safeExecute(ctx context.Context, t Tool, params, config map[string]any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("tool panicked: %v", rec)
		}
	}()
	return t.Execute(ctx, params, config)
}

// MergeConfig overlays agent-specific tool settings onto definition
// defaults. Agent keys always win. A fresh map is returned so neither
// input is mutated.
func MergeConfig(defaults, agentConfig map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(agentConfig))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range agentConfig {
		merged[k] = v
	}
	return merged
}
