package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// captureTool records the merged config it was executed with.
type captureTool struct {
	name     string
	seenCfg  map[string]any
	result   any
	err      error
	panicMsg string
}

func (c *captureTool) Name() string                  { return c.name }
func (c *captureTool) Description() string           { return "test tool" }
func (c *captureTool) Validate(map[string]any) error { return nil }

func (c *captureTool) Execute(_ context.Context, _, config map[string]any) (any, error) {
	c.seenCfg = config
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	return c.result, c.err
}

// failingDefs simulates a definition store outage.
type failingDefs struct{}

func (failingDefs) FindActiveTool(context.Context, string) (*Definition, error) {
	return nil, errors.New("connection refused")
}

func (failingDefs) RecordUsage(context.Context, string, bool, time.Duration) error {
	return errors.New("connection refused")
}

func TestExecuteUnknownTool(t *testing.T) {
	reg := NewRegistry(nil, zap.NewNop())
	inv := reg.Execute(context.Background(), "nope", nil, nil)
	if inv.Success {
		t.Fatal("expected failure for unknown tool")
	}
	if inv.Error != `no handler registered for tool "nope"` {
		t.Errorf("unexpected error: %q", inv.Error)
	}
}

func TestExecutePanicIsolation(t *testing.T) {
	reg := NewRegistry(nil, zap.NewNop())
	reg.Register(&captureTool{name: "boom", panicMsg: "nil map write"})

	inv := reg.Execute(context.Background(), "boom", nil, nil)
	if inv.Success {
		t.Fatal("expected panic to become a failed invocation")
	}
	if inv.Error != "tool panicked: nil map write" {
		t.Errorf("unexpected error: %q", inv.Error)
	}
}

func TestExecuteMergesConfig(t *testing.T) {
	defs := NewMemoryDefinitionStore()
	defs.Put(&Definition{
		Name:           "capture",
		ConfigDefaults: map[string]any{"timeout_sec": 30, "retries": 2},
	})
	reg := NewRegistry(defs, zap.NewNop())
	ct := &captureTool{name: "capture", result: "ok"}
	reg.Register(ct)

	inv := reg.Execute(context.Background(), "capture", nil, map[string]any{"timeout_sec": 5})
	if !inv.Success {
		t.Fatalf("expected success, got %q", inv.Error)
	}
	if ct.seenCfg["timeout_sec"] != 5 {
		t.Errorf("agent config must win, got %v", ct.seenCfg["timeout_sec"])
	}
	if ct.seenCfg["retries"] != 2 {
		t.Errorf("definition default must survive, got %v", ct.seenCfg["retries"])
	}
}

func TestExecuteRequiredParams(t *testing.T) {
	defs := NewMemoryDefinitionStore()
	defs.Put(&Definition{Name: "capture", RequiredParams: []string{"city"}})
	reg := NewRegistry(defs, zap.NewNop())
	reg.Register(&captureTool{name: "capture", result: "ok"})

	inv := reg.Execute(context.Background(), "capture", map[string]any{}, nil)
	if inv.Success {
		t.Fatal("expected validation failure for missing param")
	}
	if inv.Error != `missing required parameter "city"` {
		t.Errorf("unexpected error: %q", inv.Error)
	}

	inv = reg.Execute(context.Background(), "capture", map[string]any{"city": "oslo"}, nil)
	if !inv.Success {
		t.Errorf("expected success with param present, got %q", inv.Error)
	}
}

func TestExecuteDefinitionStoreOutage(t *testing.T) {
	reg := NewRegistry(failingDefs{}, zap.NewNop())
	reg.Register(&captureTool{name: "capture", result: "ok"})

	inv := reg.Execute(context.Background(), "capture", nil, nil)
	if !inv.Success {
		t.Fatalf("store outage must not disable the tool, got %q", inv.Error)
	}
}

func TestExecuteRecordsUsage(t *testing.T) {
	defs := NewMemoryDefinitionStore()
	defs.Put(&Definition{Name: "capture"})
	reg := NewRegistry(defs, zap.NewNop())
	reg.Register(&captureTool{name: "capture", err: errors.New("nope")})

	reg.Execute(context.Background(), "capture", nil, nil)
	reg.Execute(context.Background(), "capture", nil, nil)

	stats := defs.Stats("capture")
	if stats.Invocations != 2 || stats.Failures != 2 {
		t.Errorf("expected 2 invocations and 2 failures, got %+v", stats)
	}
}

func TestMergeConfigDoesNotMutate(t *testing.T) {
	defaults := map[string]any{"a": 1}
	agent := map[string]any{"b": 2}
	merged := MergeConfig(defaults, agent)
	merged["a"] = 99
	merged["c"] = 3

	if defaults["a"] != 1 {
		t.Error("defaults map was mutated")
	}
	if _, ok := agent["c"]; ok {
		t.Error("agent map was mutated")
	}
}

func TestListSorted(t *testing.T) {
	reg := NewRegistry(nil, zap.NewNop())
	reg.Register(&captureTool{name: "zeta"})
	reg.Register(&captureTool{name: "alpha"})

	list := reg.List()
	if len(list) != 2 || list[0].Name() != "alpha" || list[1].Name() != "zeta" {
		t.Errorf("expected sorted list, got %v", []string{list[0].Name(), list[1].Name()})
	}
}
