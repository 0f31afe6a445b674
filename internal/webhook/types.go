package webhook

import (
	"context"

	"github.com/TimDavid1111/daily-automation/internal/event"
	"github.com/TimDavid1111/daily-automation/internal/pipeline"
	"github.com/TimDavid1111/daily-automation/internal/runlog"
)

// EventHandler runs the processing pipeline for a decoded event.
type EventHandler interface {
	Handle(ctx context.Context, ev *event.Event) pipeline.Result
}

// StatusResponse acknowledges a processed delivery. Only the outcome is
// exposed; detail lives in the logs.
type StatusResponse struct {
	Status string `json:"status"`
}

// ReceivedResponse acknowledges the verification handshake.
type ReceivedResponse struct {
	Received bool `json:"received"`
}

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports which configuration values are present. No side
// effects; safe for load-balancer probes.
type HealthResponse struct {
	Status                  string `json:"status"`
	NotionConfigured        bool   `json:"notion_configured"`
	ClaudeConfigured        bool   `json:"claude_configured"`
	WebhookSecretConfigured bool   `json:"webhook_secret_configured"`
	ParentPageConfigured    bool   `json:"parent_page_configured"`
	DatabaseConfigured      bool   `json:"database_configured"`
}

// RunsResponse lists recent pipeline runs, newest first.
type RunsResponse struct {
	Runs []runlog.Record `json:"runs"`
}
