package e2e

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/relaydesk/relay/internal/agent"
	"github.com/relaydesk/relay/internal/embedding"
	pgstore "github.com/relaydesk/relay/internal/store"
	"github.com/relaydesk/relay/internal/tool"
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	testLogger, _ = zap.NewDevelopment()

	// 1. Start PostgreSQL
	pgDSN, pgCleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres: %v\n", err)
		os.Exit(1)
	}
	defer pgCleanup()

	testPGStore, err = pgstore.New(ctx, pgDSN, testLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pg store: %v\n", err)
		os.Exit(1)
	}
	defer testPGStore.Close()

	if err := testPGStore.Migrate(ctx, "../../migrations"); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	// 2. Start Redis
	redisURL, redisCleanup, err := startRedis(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer redisCleanup()
	testRedisURL = redisURL

	os.Exit(m.Run())
}

func TestMigrateIdempotent(t *testing.T) {
	// TestMain already ran the migrations once; a second pass must be a no-op.
	if err := testPGStore.Migrate(context.Background(), "../../migrations"); err != nil {
		t.Fatalf("re-run migrations: %v", err)
	}
}

func TestAgentPersistence(t *testing.T) {
	ctx := context.Background()

	a := &agent.Agent{
		ID:           "e2e-concierge",
		Name:         "concierge",
		Kind:         agent.KindChat,
		Status:       agent.StatusActive,
		Model:        "gpt-4o-mini",
		SystemPrompt: "You are a hotel concierge.",
		Temperature:  0.4,
		MaxToolCalls: 3,
		Tools: []agent.AgentTool{
			{Name: "calculator"},
			{Name: "api_caller", Config: map[string]any{"timeout_sec": float64(10)}},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := testPGStore.SaveAgent(ctx, a); err != nil {
		t.Fatalf("save agent: %v", err)
	}

	got, err := testPGStore.GetAgent(ctx, a.ID)
	if err != nil {
		t.Fatalf("get agent: %v", err)
	}
	if got.Name != "concierge" || got.Model != "gpt-4o-mini" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if len(got.Tools) != 2 || got.Tools[1].Config["timeout_sec"] != float64(10) {
		t.Errorf("tools not preserved: %+v", got.Tools)
	}

	// Upsert overwrites in place.
	a.SystemPrompt = "You are a very helpful hotel concierge."
	if err := testPGStore.SaveAgent(ctx, a); err != nil {
		t.Fatalf("re-save agent: %v", err)
	}
	got, err = testPGStore.GetAgent(ctx, a.ID)
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if !strings.Contains(got.SystemPrompt, "very helpful") {
		t.Errorf("upsert did not update prompt: %q", got.SystemPrompt)
	}

	agents, err := testPGStore.ListAgents(ctx)
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(agents) == 0 {
		t.Fatal("expected at least one agent listed")
	}

	if err := testPGStore.DeleteAgent(ctx, a.ID); err != nil {
		t.Fatalf("delete agent: %v", err)
	}
	agents, err = testPGStore.ListAgents(ctx)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	for _, listed := range agents {
		if listed.ID == a.ID {
			t.Error("soft-deleted agent still listed")
		}
	}
}

func TestToolDefinitionStore(t *testing.T) {
	ctx := context.Background()
	defs := testPGStore.Definitions()

	def := &tool.Definition{
		Name:           "api_caller",
		ConfigDefaults: map[string]any{"timeout_sec": float64(30)},
		RequiredParams: []string{"endpoint"},
	}
	if err := defs.SaveDefinition(ctx, def); err != nil {
		t.Fatalf("save definition: %v", err)
	}

	got, err := defs.FindActiveTool(ctx, "api_caller")
	if err != nil {
		t.Fatalf("find active tool: %v", err)
	}
	if got == nil {
		t.Fatal("expected definition, got nil")
	}
	if got.ConfigDefaults["timeout_sec"] != float64(30) {
		t.Errorf("config defaults not preserved: %+v", got.ConfigDefaults)
	}
	if len(got.RequiredParams) != 1 || got.RequiredParams[0] != "endpoint" {
		t.Errorf("required params not preserved: %+v", got.RequiredParams)
	}

	// Unknown tool is not an error; the registry treats it as undefined.
	got, err = defs.FindActiveTool(ctx, "no_such_tool")
	if err != nil {
		t.Fatalf("find unknown tool: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown tool, got %+v", got)
	}

	if err := defs.RecordUsage(ctx, "api_caller", true, 120*time.Millisecond); err != nil {
		t.Fatalf("record usage: %v", err)
	}
	if err := defs.RecordUsage(ctx, "api_caller", false, 250*time.Millisecond); err != nil {
		t.Fatalf("record failed usage: %v", err)
	}
}

// countingEmbedder is a deterministic inner provider that counts Embed calls.
type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 4)
		for _, r := range text {
			vec[int(r)%4] += 1
		}
		out[i] = vec
	}
	return out, nil
}

func (e *countingEmbedder) Dimension() int { return 4 }

func TestEmbeddingCache(t *testing.T) {
	ctx := context.Background()

	inner := &countingEmbedder{}
	cached, err := embedding.NewCachedProvider(inner, "test-model", testRedisURL, time.Minute, testLogger)
	if err != nil {
		t.Fatalf("cached provider: %v", err)
	}
	defer cached.Close()

	first, err := cached.Embed(ctx, []string{"check-in time", "pet policy"})
	if err != nil {
		t.Fatalf("first embed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(first))
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 inner call, got %d", inner.calls)
	}

	// Second round: both texts cached, inner must not be hit.
	second, err := cached.Embed(ctx, []string{"check-in time", "pet policy"})
	if err != nil {
		t.Fatalf("second embed: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected cache hit, inner called %d times", inner.calls)
	}
	for i := range first {
		if embedding.CosineSimilarity(first[i], second[i]) < 0.9999 {
			t.Errorf("cached vector %d differs from original", i)
		}
	}

	// Partial miss: one cached, one new.
	third, err := cached.Embed(ctx, []string{"pet policy", "breakfast hours"})
	if err != nil {
		t.Fatalf("third embed: %v", err)
	}
	if len(third) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(third))
	}
	if inner.calls != 2 {
		t.Errorf("expected exactly one more inner call, got %d total", inner.calls)
	}

	if cached.Dimension() != 4 {
		t.Errorf("dimension passthrough broken: %d", cached.Dimension())
	}
}

// TestReasoningLoopWithPersistedAgent mirrors the server boot path: an agent
// saved in Postgres is loaded into a fresh engine and completes a tool-using
// turn, with usage accounting recorded against the shared definition store.
func TestReasoningLoopWithPersistedAgent(t *testing.T) {
	ctx := context.Background()

	saved := &agent.Agent{
		ID:     "e2e-math",
		Name:   "math-helper",
		Kind:   agent.KindChat,
		Status: agent.StatusActive,
		Model:  "gpt-4o-mini",
		Tools:  []agent.AgentTool{{Name: "calculator"}},
	}
	if err := testPGStore.SaveAgent(ctx, saved); err != nil {
		t.Fatalf("save agent: %v", err)
	}
	if err := testPGStore.Definitions().SaveDefinition(ctx, &tool.Definition{
		Name:           "calculator",
		RequiredParams: []string{"expression"},
	}); err != nil {
		t.Fatalf("save calculator definition: %v", err)
	}

	engine := newScriptedEngine(
		"ACTION: use_tool\nTOOL: calculator\nPARAMETERS: {\"expression\": \"19 * 3\"}\nREASONING: need the product",
		"ACTION: respond\nRESPONSE: 19 times 3 is 57.",
	)

	loaded, err := testPGStore.GetAgent(ctx, saved.ID)
	if err != nil {
		t.Fatalf("load agent: %v", err)
	}
	engine.Register(loaded)

	result, err := engine.RunChatTurn(ctx, loaded.ID, nil, "what is 19 times 3?")
	if err != nil {
		t.Fatalf("run chat turn: %v", err)
	}
	if !strings.Contains(result.FinalText, "57") {
		t.Errorf("unexpected final text: %q", result.FinalText)
	}
	if len(result.ToolsUsed) != 1 || result.ToolsUsed[0].ToolName != "calculator" {
		t.Fatalf("expected one calculator invocation, got %+v", result.ToolsUsed)
	}
	if !result.ToolsUsed[0].Success {
		t.Errorf("calculator invocation failed: %+v", result.ToolsUsed[0])
	}
	if result.Usage.TotalTokens != 120 {
		t.Errorf("expected accumulated usage across 2 completions, got %d", result.Usage.TotalTokens)
	}

	// The registry enforces required params from the persisted definition.
	badEngine := newScriptedEngine(
		"ACTION: use_tool\nTOOL: calculator\nPARAMETERS: {\"expr\": \"1+1\"}\nREASONING: typo in key",
		"ACTION: respond\nRESPONSE: giving up",
	)
	badEngine.Register(&agent.Agent{
		ID:    "e2e-math-bad",
		Name:  "math-helper-bad",
		Kind:  agent.KindChat,
		Model: "gpt-4o-mini",
		Tools: []agent.AgentTool{{Name: "calculator"}},
	})
	badResult, err := badEngine.RunChatTurn(ctx, "e2e-math-bad", nil, "what is 1+1?")
	if err != nil {
		t.Fatalf("run chat turn: %v", err)
	}
	if len(badResult.ToolsUsed) != 1 || badResult.ToolsUsed[0].Success {
		t.Fatalf("expected a failed invocation, got %+v", badResult.ToolsUsed)
	}
	if !strings.Contains(badResult.ToolsUsed[0].Error, "missing required parameter") {
		t.Errorf("unexpected invocation error: %q", badResult.ToolsUsed[0].Error)
	}
}
