package config

import "time"

// DefaultConfig returns the built-in configuration defaults. User-supplied
// YAML is merged on top of this via mergo in Initialize.
func DefaultConfig() *Config {
	return &Config{
		Judge: JudgeEndpoint{
			BaseURL: "https://api.openai.com/v1/chat/completions",
			Model:   "gpt-4o-mini",
		},
		Dispatch: DispatchDefaults{
			Timeout: 300 * time.Second,
		},
		Retry: RetryPolicy{
			MaxAttempts: 5,
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
		},
		Store: StoreConfig{
			Path:            "./data/agenteval.db",
			MaxOpenConns:    1, // SQLite: single writer avoids SQLITE_BUSY under the run-row lock
			ConnMaxLifetime: 0,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
		Run: RunDefaults{
			Timeout:        300 * time.Second,
			VerboseLogging: false,
		},
	}
}
