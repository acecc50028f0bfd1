package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// fileName is the single YAML configuration file AgentEval reads, analogous
// to the teacher's tarsy.yaml.
const fileName = "agenteval.yaml"

// yamlConfig mirrors Config's YAML-facing shape. Kept separate from Config
// so zero-value YAML fields (pointers would be noisy here) merge cleanly
// over the builtin defaults with mergo.
type yamlConfig struct {
	Judge    JudgeEndpoint    `yaml:"judge"`
	Dispatch DispatchDefaults `yaml:"dispatch"`
	Retry    RetryPolicy      `yaml:"retry"`
	Store    StoreConfig      `yaml:"store"`
	Server   ServerConfig     `yaml:"server"`
	Run      RunDefaults      `yaml:"run"`
}

// Initialize loads, merges, and validates configuration from configDir.
//
// Steps:
//  1. Read agenteval.yaml from configDir (absence is not an error — the
//     builtin defaults alone are a valid configuration).
//  2. Expand environment variables (${VAR} / $VAR).
//  3. Parse YAML.
//  4. Merge onto the builtin defaults (user values win).
//  5. Validate.
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg := DefaultConfig()
	cfg.configDir = configDir

	path := filepath.Join(configDir, fileName)
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		raw = ExpandEnv(raw)
		var parsed yamlConfig
		if uerr := yaml.Unmarshal(raw, &parsed); uerr != nil {
			return nil, NewLoadError(fileName, fmt.Errorf("%w: %v", ErrInvalidYAML, uerr))
		}
		if merr := mergo.Merge(cfg, &Config{
			Judge:    parsed.Judge,
			Dispatch: parsed.Dispatch,
			Retry:    parsed.Retry,
			Store:    parsed.Store,
			Server:   parsed.Server,
			Run:      parsed.Run,
		}, mergo.WithOverride); merr != nil {
			return nil, NewLoadError(fileName, merr)
		}
	case os.IsNotExist(err):
		log.Info("No agenteval.yaml found, using builtin defaults")
	default:
		return nil, NewLoadError(fileName, err)
	}

	if verr := Validate(cfg); verr != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, verr)
	}

	log.Info("Configuration initialized",
		"judge_base_url", cfg.Judge.BaseURL,
		"store_path", cfg.Store.Path,
	)
	return cfg, nil
}
