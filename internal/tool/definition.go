package tool

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Definition is a persisted tool definition used for parameter validation
// and usage statistics. Its absence never disables a built-in tool.
type Definition struct {
	Name           string         `json:"name"`
	ConfigDefaults map[string]any `json:"config_defaults,omitempty"`
	RequiredParams []string       `json:"required_params,omitempty"`
}

// Validate checks that every required parameter is present.
func (d *Definition) Validate(params map[string]any) error {
	for _, key := range d.RequiredParams {
		if _, ok := params[key]; !ok {
			return fmt.Errorf("missing required parameter %q", key)
		}
	}
	return nil
}

// DefinitionStore looks up persisted tool definitions and records usage
// statistics. Implementations must treat both operations as optional
// conveniences: callers bypass failures.
type DefinitionStore interface {
	FindActiveTool(ctx context.Context, name string) (*Definition, error)
	RecordUsage(ctx context.Context, name string, success bool, latency time.Duration) error
}

// UsageStats accumulates per-tool invocation statistics.
type UsageStats struct {
	Invocations  int           `json:"invocations"`
	Failures     int           `json:"failures"`
	TotalLatency time.Duration `json:"total_latency"`
}

// MemoryDefinitionStore is an in-memory DefinitionStore. It doubles as the
// null-object default so "store unreachable" stays a normal code path.
type MemoryDefinitionStore struct {
	mu    sync.RWMutex
	defs  map[string]*Definition
	stats map[string]*UsageStats
}

// NewMemoryDefinitionStore creates an empty in-memory store.
func NewMemoryDefinitionStore() *MemoryDefinitionStore {
	return &MemoryDefinitionStore{
		defs:  make(map[string]*Definition),
		stats: make(map[string]*UsageStats),
	}
}

// Put adds or replaces a definition.
func (s *MemoryDefinitionStore) Put(def *Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[def.Name] = def
}

// FindActiveTool returns the definition for name, or nil when none exists.
func (s *MemoryDefinitionStore) FindActiveTool(_ context.Context, name string) (*Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defs[name], nil
}

// RecordUsage accumulates invocation statistics for name.
func (s *MemoryDefinitionStore) RecordUsage(_ context.Context, name string, success bool, latency time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[name]
	if !ok {
		st = &UsageStats{}
		s.stats[name] = st
	}
	st.Invocations++
	if !success {
		st.Failures++
	}
	st.TotalLatency += latency
	return nil
}

// Stats returns a copy of the accumulated statistics for name.
func (s *MemoryDefinitionStore) Stats(name string) UsageStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.stats[name]; ok {
		return *st
	}
	return UsageStats{}
}
