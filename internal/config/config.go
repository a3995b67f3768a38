package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Providers []ProviderConfig `json:"providers"`
	Database  DatabaseConfig   `json:"database"`
	Embedding EmbeddingConfig  `json:"embedding"`
	Knowledge KnowledgeConfig  `json:"knowledge"`
	Secrets   SecretsConfig    `json:"secrets"`
	Engine    EngineConfig     `json:"engine"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type ProviderConfig struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Name     string            `json:"name"`
	Endpoint string            `json:"endpoint"`
	APIKey   string            `json:"api_key"`
	Models   []string          `json:"models,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
	Timeout  time.Duration     `json:"timeout,omitempty"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
	Qdrant   QdrantConfig   `json:"qdrant"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type QdrantConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type EmbeddingConfig struct {
	Provider  string `json:"provider"`
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	APIKey    string `json:"api_key"`
	Dimension int    `json:"dimension"`
}

// KnowledgeConfig configures the knowledge-base search service.
type KnowledgeConfig struct {
	Collection string `json:"collection"`
	TopK       int    `json:"top_k"`
}

// SecretsConfig holds the key used to decrypt stored endpoint credentials.
type SecretsConfig struct {
	EncryptionKey string `json:"encryption_key"`
}

// EngineConfig holds reasoning-engine defaults.
type EngineConfig struct {
	MaxToolCalls      int    `json:"max_tool_calls"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
	SummarizerModel   string `json:"summarizer_model,omitempty"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Engine.MaxToolCalls <= 0 {
		cfg.Engine.MaxToolCalls = 5
	}
	if cfg.Engine.RequestTimeoutSec <= 0 {
		cfg.Engine.RequestTimeoutSec = 120
	}
	return &cfg, nil
}
