package config

import "time"

// Config holds all service settings. It is built once at startup and never
// mutated afterwards; components receive it (or a sub-struct) by injection.
type Config struct {
	// Listen is the HTTP bind address, e.g. "0.0.0.0:8000".
	Listen string `yaml:"listen"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `yaml:"log_level"`

	Notion  NotionConfig  `yaml:"notion"`
	Claude  ClaudeConfig  `yaml:"claude"`
	Webhook WebhookConfig `yaml:"webhook"`
	State   StateConfig   `yaml:"state"`
}

// NotionConfig holds credentials and target identifiers for the Notion API.
type NotionConfig struct {
	Token string `yaml:"token"`

	// DatabaseID is the data source whose page events we act on.
	DatabaseID string `yaml:"database_id"`

	// ParentPageID is the page under which generated task pages are created.
	ParentPageID string `yaml:"parent_page_id"`

	// Timeout bounds each Notion API call (read and write independently).
	Timeout time.Duration `yaml:"timeout"`
}

// ClaudeConfig holds settings for the Anthropic messages API.
type ClaudeConfig struct {
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// WebhookConfig holds inbound webhook verification settings.
type WebhookConfig struct {
	// Secret is the HMAC secret for signature verification. Empty means
	// verification is skipped (first-run bootstrap, before Notion has
	// issued the verification token).
	Secret string `yaml:"secret"`

	// SignatureHeader is the HTTP header carrying the HMAC signature.
	SignatureHeader string `yaml:"signature_header"`

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64 `yaml:"max_body_size"`
}

// StateConfig holds local state settings. An empty Path disables the
// SQLite-backed event dedup store.
type StateConfig struct {
	Path string `yaml:"path"`
}

// Defaults applied by Load and FromEnv.
const (
	DefaultListen          = "0.0.0.0:8000"
	DefaultSignatureHeader = "X-Notion-Signature"
	DefaultMaxBodySize     = 1048576 // 1 MB
	DefaultModel           = "claude-sonnet-4-20250514"
	DefaultMaxTokens       = 4096
	DefaultNotionTimeout   = 15 * time.Second
	DefaultClaudeTimeout   = 30 * time.Second
)

// NotionConfigured reports whether a Notion API token is present.
func (c *Config) NotionConfigured() bool { return c.Notion.Token != "" }

// ClaudeConfigured reports whether an Anthropic API key is present.
func (c *Config) ClaudeConfigured() bool { return c.Claude.APIKey != "" }

// SecretConfigured reports whether webhook signature verification is active.
func (c *Config) SecretConfigured() bool { return c.Webhook.Secret != "" }

// ParentPageConfigured reports whether a parent page id is present.
func (c *Config) ParentPageConfigured() bool { return c.Notion.ParentPageID != "" }

// DatabaseConfigured reports whether a target database id is present.
func (c *Config) DatabaseConfigured() bool { return c.Notion.DatabaseID != "" }
