package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/relaydesk/relay/internal/agent"
)

// SaveAgent upserts an agent definition.
func (s *Store) SaveAgent(ctx context.Context, a *agent.Agent) error {
	tools, err := json.Marshal(a.Tools)
	if err != nil {
		return fmt.Errorf("encode tools for agent %s: %w", a.ID, err)
	}
	now := time.Now()
	_, err = s.db.Exec(ctx, `
		INSERT INTO agents (id, name, kind, status, provider_id, model, system_prompt,
		                    temperature, max_tool_calls, tools, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			status = EXCLUDED.status,
			provider_id = EXCLUDED.provider_id,
			model = EXCLUDED.model,
			system_prompt = EXCLUDED.system_prompt,
			temperature = EXCLUDED.temperature,
			max_tool_calls = EXCLUDED.max_tool_calls,
			tools = EXCLUDED.tools,
			updated_at = EXCLUDED.updated_at`,
		a.ID, a.Name, string(a.Kind), string(a.Status), a.ProviderID, a.Model,
		a.SystemPrompt, a.Temperature, a.MaxToolCalls, tools, now,
	)
	if err != nil {
		return fmt.Errorf("save agent %s: %w", a.ID, err)
	}
	return nil
}

// GetAgent retrieves a single agent by ID.
func (s *Store) GetAgent(ctx context.Context, id string) (*agent.Agent, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, kind, status, COALESCE(provider_id,''), model, system_prompt,
		       temperature, max_tool_calls, tools, created_at, updated_at
		FROM agents WHERE id = $1`, id)

	var a agent.Agent
	var tools []byte
	err := row.Scan(
		&a.ID, &a.Name, &a.Kind, &a.Status, &a.ProviderID, &a.Model,
		&a.SystemPrompt, &a.Temperature, &a.MaxToolCalls, &tools,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	if len(tools) > 0 {
		if err := json.Unmarshal(tools, &a.Tools); err != nil {
			return nil, fmt.Errorf("decode tools for agent %s: %w", id, err)
		}
	}
	return &a, nil
}

// ListAgents returns all non-deleted agents.
func (s *Store) ListAgents(ctx context.Context) ([]*agent.Agent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, kind, status, COALESCE(provider_id,''), model, system_prompt,
		       temperature, max_tool_calls, tools, created_at, updated_at
		FROM agents WHERE status != 'deleted'
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*agent.Agent
	for rows.Next() {
		var a agent.Agent
		var tools []byte
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Kind, &a.Status, &a.ProviderID, &a.Model,
			&a.SystemPrompt, &a.Temperature, &a.MaxToolCalls, &tools,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		if len(tools) > 0 {
			if err := json.Unmarshal(tools, &a.Tools); err != nil {
				return nil, fmt.Errorf("decode tools for agent %s: %w", a.ID, err)
			}
		}
		agents = append(agents, &a)
	}
	return agents, nil
}

// DeleteAgent soft-deletes an agent.
func (s *Store) DeleteAgent(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE agents SET status = 'deleted', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agent %s: %w", id, err)
	}
	return nil
}
