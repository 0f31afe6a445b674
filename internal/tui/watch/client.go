package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/TimDavid1111/daily-automation/internal/runlog"
)

// --- Message types ---

type healthMsg struct {
	Status                  string `json:"status"`
	NotionConfigured        bool   `json:"notion_configured"`
	ClaudeConfigured        bool   `json:"claude_configured"`
	WebhookSecretConfigured bool   `json:"webhook_secret_configured"`
	ParentPageConfigured    bool   `json:"parent_page_configured"`
	DatabaseConfigured      bool   `json:"database_configured"`
}

type runsMsg []runlog.Record

type errMsg error

// --- Commands ---

// fetchHealth queries the /health endpoint.
func fetchHealth(baseURL string) tea.Msg {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return errMsg(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errMsg(fmt.Errorf("health check returned %d", resp.StatusCode))
	}

	var h healthMsg
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return errMsg(err)
	}
	return h
}

// fetchRuns queries the /runs endpoint.
func fetchRuns(baseURL string, limit int) tea.Msg {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("%s/runs?limit=%d", baseURL, limit))
	if err != nil {
		return errMsg(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errMsg(fmt.Errorf("runs listing returned %d", resp.StatusCode))
	}

	var body struct {
		Runs []runlog.Record `json:"runs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errMsg(err)
	}
	return runsMsg(body.Runs)
}
