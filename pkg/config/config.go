// Package config loads and validates AgentEval's runtime configuration:
// the judge LLM endpoint, the default agent dispatch endpoint, the retry
// policy, the store DSN, CORS origins, and per-run defaults (§6 of the
// specification).
package config

import "time"

// Config is the umbrella configuration object returned by Initialize and
// threaded through the engine's components.
type Config struct {
	configDir string

	Judge   JudgeEndpoint
	Dispatch DispatchDefaults
	Retry   RetryPolicy
	Store   StoreConfig
	Server  ServerConfig
	Run     RunDefaults
}

// JudgeEndpoint configures the OpenAI-style chat-completions endpoint the
// Judge calls for LLM-as-judge grading (§6).
type JudgeEndpoint struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// DispatchDefaults holds agent-side settings. DefaultEndpoint is the
// endpoint given to the default agent seeded on first boot, and APIKey is
// the second step of ResolveAPIKey's cascade. Timeout is loaded but not
// read by the dispatcher; each run carries its own per-call timeout.
type DispatchDefaults struct {
	DefaultEndpoint string        `yaml:"default_endpoint"`
	APIKey          string        `yaml:"api_key"`
	Timeout         time.Duration `yaml:"timeout"`
}

// RetryPolicy configures exponential backoff for HTTP 429s from either the
// agent under test or the judge LLM (§4.2, §4.3).
type RetryPolicy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// StoreConfig configures the SQLite-backed document store (§4.1).
type StoreConfig struct {
	Path            string        `yaml:"path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ServerConfig configures the thin HTTP surface (§6, out-of-core collaborator).
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	CORSOrigins  []string `yaml:"cors_origins"`
}

// RunDefaults holds per-run default settings. They are loaded and validated,
// but runs.Coordinator does not read them: a launch without its own timeout
// uses 300s, and verbose logging is on only when the launch request sets it.
type RunDefaults struct {
	Timeout        time.Duration `yaml:"timeout"`
	VerboseLogging bool          `yaml:"verbose_logging"`
}

// ConfigDir returns the directory configuration was loaded from.
func (c *Config) ConfigDir() string { return c.configDir }

// ResolveAPIKey implements the LLM API key resolution cascade from §6:
// explicit judge key → explicit agent key → fallback placeholder. Returns
// the resolved key and where it came from, so callers can warn when a
// placeholder is in use.
func (c *Config) ResolveAPIKey() (string, KeySource) {
	if c.Judge.APIKey != "" {
		return c.Judge.APIKey, KeySourceJudgeExplicit
	}
	if c.Dispatch.APIKey != "" {
		return c.Dispatch.APIKey, KeySourceAgentExplicit
	}
	return "placeholder-api-key", KeySourcePlaceholder
}
