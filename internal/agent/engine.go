package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/relaydesk/relay/internal/provider"
	"github.com/relaydesk/relay/internal/tool"
	"go.uber.org/zap"
)

// DefaultMaxToolCalls bounds the reasoning loop when neither the run
// context, the agent, nor the engine sets a cap. The iteration cap is the
// loop's only safeguard
// against unbounded tool-call chains; callers wanting a wall-clock bound
// pass a context with a deadline.
const DefaultMaxToolCalls = 5

// exhaustedFallback is returned when the loop runs out of iterations
// without the model choosing to respond.
const exhaustedFallback = "I was unable to complete your request in the allotted reasoning steps. Please try rephrasing or simplifying it."

// Pre-flight errors raised before the loop starts. Nothing partial is
// returned alongside them.
var (
	ErrAgentNotFound  = errors.New("agent not found")
	ErrAgentInactive  = errors.New("agent is not active")
	ErrWrongAgentKind = errors.New("agent is not of the expected kind")
)

// Engine runs the bounded reasoning loop for registered agents. It holds
// no per-run state: every run's trace and usage are handed back to the
// caller, and concurrent runs are independent.
type Engine struct {
	agents       map[string]*Agent
	router       *provider.Router
	registry     *tool.Registry
	logger       *zap.Logger
	maxToolCalls int
	mu           sync.RWMutex
}

// NewEngine creates an engine over the given provider router and tool registry.
func NewEngine(router *provider.Router, registry *tool.Registry, logger *zap.Logger) *Engine {
	return &Engine{
		agents:   make(map[string]*Agent),
		router:   router,
		registry: registry,
		logger:   logger,
	}
}

// SetMaxToolCalls sets the engine-wide iteration cap used when an agent
// does not carry its own. Non-positive values are ignored.
func (e *Engine) SetMaxToolCalls(n int) {
	if n > 0 {
		e.maxToolCalls = n
	}
}

// Tools returns the engine's tool registry.
func (e *Engine) Tools() *tool.Registry { return e.registry }

// Providers returns the engine's provider router.
func (e *Engine) Providers() *provider.Router { return e.router }

// Register adds an agent to the engine.
func (e *Engine) Register(a *Agent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.UpdatedAt = time.Now()
	e.agents[a.ID] = a
	if a.ProviderID != "" {
		e.router.Bind(a.ID, a.ProviderID)
	}
	e.logger.Info("registered agent",
		zap.String("id", a.ID),
		zap.String("name", a.Name),
		zap.String("kind", string(a.Kind)))
}

// Deregister removes an agent from the engine. It reports whether the
// agent existed.
func (e *Engine) Deregister(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.agents[id]; !ok {
		return false
	}
	delete(e.agents, id)
	e.logger.Info("deregistered agent", zap.String("id", id))
	return true
}

// Get returns an agent by ID.
func (e *Engine) Get(id string) (*Agent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.agents[id]
	return a, ok
}

// List returns all registered agents.
func (e *Engine) List() []*Agent {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]*Agent, 0, len(e.agents))
	for _, a := range e.agents {
		result = append(result, a)
	}
	return result
}

// RunChatTurn executes one reasoning run for a user message in a
// conversation. The prior history is supplied by the caller; the engine
// persists nothing.
func (e *Engine) RunChatTurn(ctx context.Context, agentID string, history []Message, userMsg string) (*RunResult, error) {
	a, err := e.preflight(agentID, KindChat)
	if err != nil {
		return nil, err
	}
	rctx := &ReasoningContext{
		History: append(append([]Message{}, history...), Message{Role: "user", Content: userMsg}),
	}
	return e.run(ctx, a, rctx)
}

// RunTask executes one reasoning run for a batch task input.
func (e *Engine) RunTask(ctx context.Context, agentID string, input string) (*RunResult, error) {
	a, err := e.preflight(agentID, KindTask)
	if err != nil {
		return nil, err
	}
	rctx := &ReasoningContext{
		History: []Message{{Role: "task", Content: input}},
	}
	return e.run(ctx, a, rctx)
}

// preflight performs the fatal checks that must fail before the loop starts.
func (e *Engine) preflight(agentID string, kind Kind) (*Agent, error) {
	a, ok := e.Get(agentID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	if a.Status != StatusActive {
		return nil, fmt.Errorf("%w: %s", ErrAgentInactive, agentID)
	}
	if a.Kind != kind {
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongAgentKind, agentID, a.Kind)
	}
	return a, nil
}

// run is the bounded reasoning loop. Every in-loop failure is captured into
// the trace and handed back as data; only pre-flight checks raise errors.
func (e *Engine) run(ctx context.Context, a *Agent, rctx *ReasoningContext) (*RunResult, error) {
	result := &RunResult{
		RunID:     uuid.New().String(),
		Steps:     []ThinkingStep{},
		ToolsUsed: []tool.Invocation{},
	}

	maxCalls := rctx.MaxToolCalls
	if maxCalls <= 0 {
		maxCalls = a.MaxToolCalls
	}
	if maxCalls <= 0 {
		maxCalls = e.maxToolCalls
	}
	if maxCalls <= 0 {
		maxCalls = DefaultMaxToolCalls
	}

	result.Steps = append(result.Steps, ThinkingStep{
		Kind:      StepAnalyzeInput,
		Reasoning: "Analyzing the request and selecting the next action",
	})

	catalogue := e.registry.List()

	for i := 0; i < maxCalls; i++ {
		prompt := BuildPrompt(a, rctx, catalogue, result.Steps, result.ToolsUsed)

		comp, err := e.router.Route(ctx, a.ID, &provider.CompletionRequest{
			Model:        a.Model,
			SystemPrompt: a.SystemPrompt,
			Prompt:       prompt,
			Temperature:  a.Temperature,
		})
		if err != nil {
			// Provider failures land in the trace and consume an
			// iteration; the run keeps going.
			e.logger.Warn("model call failed",
				zap.String("agent", a.ID),
				zap.Int("iteration", i+1),
				zap.Error(err))
			result.Steps = append(result.Steps, ThinkingStep{
				Kind:      StepContinueReasoning,
				Reasoning: fmt.Sprintf("Model call failed: %v", err),
			})
			continue
		}
		result.Usage.Add(comp.Usage)

		action := ParseAction(comp.Content)
		switch action.Kind {
		case ActionUseTool:
			result.Steps = append(result.Steps, ThinkingStep{
				Kind:      StepToolExecution,
				Reasoning: fmt.Sprintf("Executing tool %q", action.ToolName),
			})

			var agentCfg map[string]any
			if at, ok := a.Tool(action.ToolName); ok {
				agentCfg = at.Config
			}
			inv := e.registry.Execute(ctx, action.ToolName, action.Parameters, agentCfg)
			if !inv.Success {
				result.Steps = append(result.Steps, ThinkingStep{
					Kind:      StepToolFailed,
					Reasoning: fmt.Sprintf("Tool %q failed: %s", action.ToolName, inv.Error),
				})
			}
			// Success and failure both feed the next iteration's prompt.
			result.ToolsUsed = append(result.ToolsUsed, inv)

		case ActionRespond:
			result.Steps = append(result.Steps, ThinkingStep{
				Kind:      StepFinalResponse,
				Reasoning: "Producing the final response",
			})
			result.FinalText = action.Text

		default: // ActionThink, ActionUnparseable
			reasoning := action.Reasoning
			if reasoning == "" {
				reasoning = "Continuing to reason about the request"
			}
			result.Steps = append(result.Steps, ThinkingStep{
				Kind:      StepContinueReasoning,
				Reasoning: reasoning,
			})
		}

		if action.Kind == ActionRespond {
			break
		}
	}

	if result.FinalText == "" {
		result.FinalText = exhaustedFallback
	}
	return result, nil
}
