package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a YAML file. ${VAR} references in
// the file are interpolated from the environment before parsing, and the
// well-known environment variables (NOTION_TOKEN, ANTHROPIC_API_KEY, ...)
// override whatever the file says, so secrets never need to live on disk.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	cfg := &Config{}
	interpolated := interpolateEnv(string(data))
	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %s: %w", absPath, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// FromEnv builds a configuration purely from environment variables. This is
// the path used when no config file is given; every setting has either an
// env var or a default.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// interpolateEnv replaces ${VAR} references with environment values.
// Unset variables interpolate to the empty string.
func interpolateEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NOTION_TOKEN"); v != "" {
		cfg.Notion.Token = v
	}
	if v := os.Getenv("NOTION_DATABASE_ID"); v != "" {
		cfg.Notion.DatabaseID = v
	}
	if v := os.Getenv("NOTION_PARENT_PAGE_ID"); v != "" {
		cfg.Notion.ParentPageID = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Claude.APIKey = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv("PORT"); v != "" && cfg.Listen == "" {
		cfg.Listen = "0.0.0.0:" + v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
	if cfg.Webhook.SignatureHeader == "" {
		cfg.Webhook.SignatureHeader = DefaultSignatureHeader
	}
	if cfg.Webhook.MaxBodySize == 0 {
		cfg.Webhook.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Claude.Model == "" {
		cfg.Claude.Model = DefaultModel
	}
	if cfg.Claude.MaxTokens == 0 {
		cfg.Claude.MaxTokens = DefaultMaxTokens
	}
	if cfg.Claude.Timeout == 0 {
		cfg.Claude.Timeout = DefaultClaudeTimeout
	}
	if cfg.Notion.Timeout == 0 {
		cfg.Notion.Timeout = DefaultNotionTimeout
	}
}

// validate rejects configurations that cannot possibly serve traffic.
// Missing credentials are deliberately not errors here: the service must be
// able to start before the webhook secret exists (the verification handshake
// is how the operator obtains it). The doctor surfaces those as warnings.
func validate(cfg *Config) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen address is empty")
	}
	if cfg.Webhook.MaxBodySize < 0 {
		return fmt.Errorf("webhook.max_body_size must be positive")
	}
	if cfg.Claude.MaxTokens < 0 {
		return fmt.Errorf("claude.max_tokens must be positive")
	}
	return nil
}
