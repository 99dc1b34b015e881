// Package config loads service configuration from an optional YAML file and
// SERVICEDESK_* environment variables via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// NodeType identifies which part of the pipeline a model is being resolved
// for. Cheap models serve classification and redaction, stronger models serve
// planning and domain agents.
type NodeType string

const (
	NodeClassifier NodeType = "classifier"
	NodePlanner    NodeType = "planner"
	NodeAgent      NodeType = "agent"
	NodePrivacy    NodeType = "privacy"
)

// Config holds the full service configuration.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// ConfidenceThreshold below which every request escalates to a human.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`

	// DataDir holds per-domain document corpora (<domain>_docs subdirs).
	DataDir string `mapstructure:"data_dir"`
	// VectorDir persists the per-domain vector collections.
	VectorDir string `mapstructure:"vector_dir"`
	// SessionDir persists per-thread conversation state.
	SessionDir string `mapstructure:"session_dir"`
	// AuditPath is the append-only audit journal file.
	AuditPath string `mapstructure:"audit_path"`

	// Provider is the default LLM provider: openai, groq, openrouter, local.
	Provider string `mapstructure:"provider"`
	// APIKeys maps provider name to credential.
	APIKeys map[string]string `mapstructure:"api_keys"`
	// LocalBaseURL is the endpoint used by the "local" provider.
	LocalBaseURL string `mapstructure:"local_base_url"`
	// Models maps node type to model name; unset node types fall back to
	// defaults for the active provider.
	Models map[string]string `mapstructure:"models"`

	// EmbeddingModel used for retrieval indexing and queries.
	EmbeddingModel string `mapstructure:"embedding_model"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8000)
	v.SetDefault("confidence_threshold", 0.7)
	v.SetDefault("data_dir", "data")
	v.SetDefault("vector_dir", "vector_stores")
	v.SetDefault("session_dir", "sessions")
	v.SetDefault("audit_path", "servicedesk-audit.jsonl")
	v.SetDefault("provider", "openai")
	v.SetDefault("local_base_url", "http://localhost:11434/v1")
	v.SetDefault("embedding_model", "text-embedding-3-small")
	v.SetDefault("allowed_origins", []string{"*"})

	v.SetEnvPrefix("SERVICEDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("confidence_threshold %v outside [0,1]", cfg.ConfidenceThreshold)
	}
	return &cfg, nil
}

// APIKey returns the configured credential for provider, if any.
func (c *Config) APIKey(provider string) string {
	if c.APIKeys == nil {
		return ""
	}
	return c.APIKeys[strings.ToLower(provider)]
}

// defaultModels maps node type to model per provider family. Classification
// and redaction run on small models, planning and agents on strong ones.
var defaultModels = map[string]map[NodeType]string{
	"openai": {
		NodeClassifier: "gpt-4o-mini",
		NodePlanner:    "gpt-4o",
		NodeAgent:      "gpt-4o",
		NodePrivacy:    "gpt-4o-mini",
	},
	"groq": {
		NodeClassifier: "llama3-8b-8192",
		NodePlanner:    "llama3-70b-8192",
		NodeAgent:      "llama3-70b-8192",
		NodePrivacy:    "llama3-8b-8192",
	},
}

// ModelFor resolves the model name for a node type under the given provider.
func (c *Config) ModelFor(provider string, node NodeType) string {
	if c.Models != nil {
		if m := c.Models[string(node)]; m != "" {
			return m
		}
	}
	family := strings.ToLower(provider)
	if _, ok := defaultModels[family]; !ok {
		family = "openai"
	}
	if m := defaultModels[family][node]; m != "" {
		return m
	}
	return "gpt-4o-mini"
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
