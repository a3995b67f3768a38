package e2e

import (
	"context"
	"fmt"
	"sync"

	"github.com/testcontainers/testcontainers-go"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"

	"github.com/relaydesk/relay/internal/agent"
	"github.com/relaydesk/relay/internal/provider"
	pgstore "github.com/relaydesk/relay/internal/store"
	"github.com/relaydesk/relay/internal/tool"
)

// Suppress unused import warning for testcontainers base package.
var _ = testcontainers.GenericContainerRequest{}

// Package-level shared state — set by TestMain, used by all subtests.
var (
	testLogger   *zap.Logger
	testPGStore  *pgstore.Store
	testRedisURL string
)

// startPostgres starts a PostgreSQL testcontainer, returns DSN + cleanup func.
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("relay_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres: %w", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("pg connection string: %w", err)
	}
	cleanup := func() { container.Terminate(ctx) }
	return dsn, cleanup, nil
}

// startRedis starts a Redis testcontainer, returns URL + cleanup func.
func startRedis(ctx context.Context) (string, func(), error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return "", nil, fmt.Errorf("start redis: %w", err)
	}
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("redis endpoint: %w", err)
	}
	url := "redis://" + endpoint
	cleanup := func() { container.Terminate(ctx) }
	return url, cleanup, nil
}

// scriptedProvider replays a fixed sequence of protocol responses, repeating
// the last one once the script runs out.
type scriptedProvider struct {
	mu     sync.Mutex
	script []string
	calls  int
}

func (p *scriptedProvider) ID() string   { return "scripted" }
func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, _ *provider.CompletionRequest) (*provider.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	if idx >= len(p.script) {
		idx = len(p.script) - 1
	}
	p.calls++
	return &provider.Completion{
		Content: p.script[idx],
		Usage:   provider.Usage{PromptTokens: 50, CompletionTokens: 10, TotalTokens: 60},
	}, nil
}

func (p *scriptedProvider) HealthCheck(context.Context) error { return nil }

// newScriptedEngine builds an engine whose provider replays script and whose
// registry uses the shared Postgres-backed definition store.
func newScriptedEngine(script ...string) *agent.Engine {
	router := provider.NewRouter(testLogger)
	router.Register(&scriptedProvider{script: script})
	registry := tool.NewRegistry(testPGStore.Definitions(), testLogger)
	registry.Register(tool.NewCalculator())
	registry.Register(tool.NewClock())
	return agent.NewEngine(router, registry, testLogger)
}
