// Package doctor validates daily-automation configuration before the service
// starts taking traffic.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/TimDavid1111/daily-automation/internal/config"
	"github.com/TimDavid1111/daily-automation/internal/event"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
//
// Errors block startup; warnings describe degraded modes the service can run
// in (unsigned webhooks before the handshake, dedup disabled without a state
// path) so that first-run bootstrap still works.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateListen(r)
	d.validateNotion(r)
	d.validateClaude(r)
	d.validateWebhook(r)
	d.validateState(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateListen checks the HTTP bind address.
func (d *Doctor) validateListen(r *Result) {
	if d.cfg.Listen == "" {
		d.addError(r, "service", "listen", "listen address is required")
		return
	}
	if _, _, err := net.SplitHostPort(d.cfg.Listen); err != nil {
		d.addError(r, "service", "listen",
			fmt.Sprintf("listen address %q is not host:port: %v", d.cfg.Listen, err))
	}
}

// validateNotion checks credentials and target identifiers for the Notion API.
// Missing credentials are warnings so the service can start before they exist;
// malformed values are errors because they can never work.
func (d *Doctor) validateNotion(r *Result) {
	if d.cfg.Notion.Token == "" {
		d.addWarning(r, "notion", "notion.token",
			"no notion token configured (set NOTION_TOKEN); transcript reads and page writes will fail")
	}
	if d.cfg.Notion.DatabaseID == "" {
		d.addWarning(r, "notion", "notion.database_id",
			"no target database id configured (set NOTION_DATABASE_ID); every event will be ignored")
	} else if !isHexID(d.cfg.Notion.DatabaseID) {
		d.addError(r, "notion", "notion.database_id",
			fmt.Sprintf("database id %q does not look like a Notion id", d.cfg.Notion.DatabaseID))
	}
	if d.cfg.Notion.ParentPageID == "" {
		d.addWarning(r, "notion", "notion.parent_page_id",
			"no parent page id configured (set NOTION_PARENT_PAGE_ID); task page writes will fail")
	} else if !isHexID(d.cfg.Notion.ParentPageID) {
		d.addError(r, "notion", "notion.parent_page_id",
			fmt.Sprintf("parent page id %q does not look like a Notion id", d.cfg.Notion.ParentPageID))
	}
	if d.cfg.Notion.Timeout <= 0 {
		d.addError(r, "notion", "notion.timeout", "notion timeout must be positive")
	}
}

// validateClaude checks the summarization client settings.
func (d *Doctor) validateClaude(r *Result) {
	if d.cfg.Claude.APIKey == "" {
		d.addWarning(r, "claude", "claude.api_key",
			"no anthropic api key configured (set ANTHROPIC_API_KEY); summarization will fail")
	}
	if d.cfg.Claude.Model == "" {
		d.addError(r, "claude", "claude.model", "model is required")
	}
	if d.cfg.Claude.MaxTokens <= 0 {
		d.addError(r, "claude", "claude.max_tokens", "max_tokens must be positive")
	}
	if d.cfg.Claude.Timeout <= 0 {
		d.addError(r, "claude", "claude.timeout", "claude timeout must be positive")
	}
}

// validateWebhook checks inbound verification settings.
func (d *Doctor) validateWebhook(r *Result) {
	if d.cfg.Webhook.Secret == "" {
		d.addWarning(r, "webhook", "webhook.secret",
			"no secret configured; signature verification is disabled until the verification token is set as WEBHOOK_SECRET")
	}
	if d.cfg.Webhook.SignatureHeader == "" {
		d.addError(r, "webhook", "webhook.signature_header", "signature header name is required")
	}
	if d.cfg.Webhook.MaxBodySize <= 0 {
		d.addError(r, "webhook", "webhook.max_body_size", "max_body_size must be positive")
	}
}

// validateState checks the dedup store path.
func (d *Doctor) validateState(r *Result) {
	if d.cfg.State.Path == "" {
		d.addWarning(r, "state", "state.path",
			"no state path configured; duplicate deliveries will produce duplicate task pages")
		return
	}
	if !filepath.IsAbs(d.cfg.State.Path) {
		d.addWarning(r, "state", "state.path",
			fmt.Sprintf("state path %q is relative; the dedup database location depends on the working directory", d.cfg.State.Path))
	}
}

// isHexID reports whether s looks like a Notion UUID, dashed or not.
func isHexID(s string) bool {
	n := event.NormalizeID(s)
	if len(n) != 32 {
		return false
	}
	for _, c := range n {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
