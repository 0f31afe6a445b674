// Package notion wraps the Notion API for the two operations the pipeline
// needs: reading a page's Transcript property and creating a task page.
package notion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/TimDavid1111/daily-automation/internal/config"
)

// transcriptProperty is the exact (case-sensitive) property name read from
// source pages.
const transcriptProperty = "Transcript"

const writeAttempts = 3

// Transcript is the text extracted from a source page.
type Transcript struct {
	PageID string
	Text   string
}

// Length returns the transcript size in characters.
func (t *Transcript) Length() int { return len(t.Text) }

// TaskPage describes the page to be written back into Notion.
type TaskPage struct {
	Title   string
	Summary string
	Tasks   []string
}

// Client talks to the Notion API.
type Client struct {
	api          *notionapi.Client
	parentPageID string
	timeout      time.Duration
	logger       *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client from configuration.
func New(cfg config.NotionConfig, logger *slog.Logger) *Client {
	return NewWithHTTPClient(cfg, logger, nil)
}

// NewWithHTTPClient creates a Client with a custom HTTP transport. Tests use
// this to point the API client at a stub.
func NewWithHTTPClient(cfg config.NotionConfig, logger *slog.Logger, httpClient *http.Client) *Client {
	opts := []notionapi.ClientOption{}
	if httpClient != nil {
		opts = append(opts, notionapi.WithHTTPClient(httpClient))
	}
	return &Client{
		api:          notionapi.NewClient(notionapi.Token(cfg.Token), opts...),
		parentPageID: cfg.ParentPageID,
		timeout:      cfg.Timeout,
		logger:       logger,
		sleep:        sleepCtx,
	}
}

// Transcript fetches a page and extracts its Transcript property.
//
// Returns ErrMissingTranscript when the property is absent or empty, and
// *AuthError when the read is unauthorized. The property may be configured
// as rich_text or as the database title; both are handled.
func (c *Client) Transcript(ctx context.Context, pageID string) (*Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	page, err := c.api.Page.Get(ctx, notionapi.PageID(pageID))
	if err != nil {
		return nil, fmt.Errorf("retrieve page %s: %w", pageID, classify(err))
	}

	prop, ok := page.Properties[transcriptProperty]
	if !ok {
		return nil, ErrMissingTranscript
	}

	var text string
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		text = joinPlainText(p.RichText)
	case *notionapi.TitleProperty:
		text = joinPlainText(p.Title)
	default:
		return nil, ErrMissingTranscript
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrMissingTranscript
	}

	return &Transcript{PageID: pageID, Text: text}, nil
}

// CreateTaskPage creates a new page under the configured parent with the
// summary as a formatted block and one to_do block per task. Returns the
// created page URL.
//
// Rate-limit and server errors are retried with exponential backoff; after
// the attempts are exhausted the failure surfaces as *WriteError. Repeated
// delivery of the same event can create duplicate pages; the dedup store is
// the only guard against that.
func (c *Client) CreateTaskPage(ctx context.Context, p TaskPage) (string, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: notionapi.PageID(c.parentPageID),
		},
		Properties: notionapi.Properties{
			"title": notionapi.TitleProperty{
				Title: richText(p.Title),
			},
		},
		Children: buildBlocks(p),
	}

	var lastErr error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, backoffDelay(attempt)); err != nil {
				return "", err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		page, err := c.api.Page.Create(callCtx, req)
		cancel()
		if err == nil {
			return page.URL, nil
		}

		if classified := classify(err); !retryable(classified) {
			return "", fmt.Errorf("create task page: %w", classified)
		}

		c.logger.Warn("notion page create failed, retrying",
			"attempt", attempt,
			"error", err,
		)
		lastErr = err
	}

	var apiErr *notionapi.Error
	if errors.As(lastErr, &apiErr) {
		return "", &WriteError{Status: apiErr.Status, Message: apiErr.Message}
	}
	return "", &WriteError{Status: 0, Message: lastErr.Error()}
}

// buildBlocks assembles the page body: Summary heading + paragraph, then a
// Tasks heading followed by the checklist.
func buildBlocks(p TaskPage) []notionapi.Block {
	blocks := []notionapi.Block{
		&notionapi.Heading2Block{
			BasicBlock: basicBlock(notionapi.BlockTypeHeading2),
			Heading2:   notionapi.Heading{RichText: richText("Summary")},
		},
		&notionapi.ParagraphBlock{
			BasicBlock: basicBlock(notionapi.BlockTypeParagraph),
			Paragraph:  notionapi.Paragraph{RichText: richText(p.Summary)},
		},
		&notionapi.Heading3Block{
			BasicBlock: basicBlock(notionapi.BlockTypeHeading3),
			Heading3:   notionapi.Heading{RichText: richText("Tasks")},
		},
	}

	for _, task := range p.Tasks {
		task = strings.TrimSpace(task)
		if task == "" {
			continue
		}
		blocks = append(blocks, &notionapi.ToDoBlock{
			BasicBlock: basicBlock(notionapi.BlockTypeToDo),
			ToDo: notionapi.ToDo{
				RichText: richText(task),
				Checked:  false,
			},
		})
	}

	return blocks
}

func basicBlock(t notionapi.BlockType) notionapi.BasicBlock {
	return notionapi.BasicBlock{
		Object: notionapi.ObjectTypeBlock,
		Type:   t,
	}
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func joinPlainText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range parts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}

// backoffDelay: 1s before attempt 2, 2s before attempt 3.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<(attempt-2)) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
