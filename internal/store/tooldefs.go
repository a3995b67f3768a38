package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/relaydesk/relay/internal/tool"
)

// DefinitionStore is a Postgres-backed tool.DefinitionStore.
type DefinitionStore struct {
	store *Store
}

// Definitions returns a tool.DefinitionStore view of the store.
func (s *Store) Definitions() *DefinitionStore {
	return &DefinitionStore{store: s}
}

// FindActiveTool returns the active definition for name, or nil when none
// exists.
func (d *DefinitionStore) FindActiveTool(ctx context.Context, name string) (*tool.Definition, error) {
	row := d.store.db.QueryRow(ctx, `
		SELECT name, config_defaults, required_params
		FROM tool_definitions
		WHERE name = $1 AND active`, name)

	var def tool.Definition
	var defaults, required []byte
	err := row.Scan(&def.Name, &defaults, &required)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tool definition %s: %w", name, err)
	}
	if len(defaults) > 0 {
		if err := json.Unmarshal(defaults, &def.ConfigDefaults); err != nil {
			return nil, fmt.Errorf("decode config defaults for %s: %w", name, err)
		}
	}
	if len(required) > 0 {
		if err := json.Unmarshal(required, &def.RequiredParams); err != nil {
			return nil, fmt.Errorf("decode required params for %s: %w", name, err)
		}
	}
	return &def, nil
}

// RecordUsage increments invocation counters for name. Definitions that were
// never persisted are skipped silently.
func (d *DefinitionStore) RecordUsage(ctx context.Context, name string, success bool, latency time.Duration) error {
	failed := 0
	if !success {
		failed = 1
	}
	_, err := d.store.db.Exec(ctx, `
		UPDATE tool_definitions SET
			invocations = invocations + 1,
			failures = failures + $2,
			total_latency_ms = total_latency_ms + $3,
			last_used_at = NOW()
		WHERE name = $1`, name, failed, latency.Milliseconds())
	if err != nil {
		return fmt.Errorf("record usage for %s: %w", name, err)
	}
	return nil
}

// SaveDefinition upserts a tool definition and marks it active.
func (d *DefinitionStore) SaveDefinition(ctx context.Context, def *tool.Definition) error {
	defaults, err := json.Marshal(def.ConfigDefaults)
	if err != nil {
		return fmt.Errorf("encode config defaults for %s: %w", def.Name, err)
	}
	required, err := json.Marshal(def.RequiredParams)
	if err != nil {
		return fmt.Errorf("encode required params for %s: %w", def.Name, err)
	}
	_, err = d.store.db.Exec(ctx, `
		INSERT INTO tool_definitions (name, config_defaults, required_params, active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			config_defaults = EXCLUDED.config_defaults,
			required_params = EXCLUDED.required_params,
			active = TRUE,
			updated_at = NOW()`,
		def.Name, defaults, required,
	)
	if err != nil {
		return fmt.Errorf("save tool definition %s: %w", def.Name, err)
	}
	return nil
}
