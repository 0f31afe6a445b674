// Package pipeline sequences the transcript automation: filter the event,
// fetch the transcript, summarize it, and write the task page back to
// Notion. One run per inbound webhook delivery; nothing outlives the
// request.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TimDavid1111/daily-automation/internal/claude"
	"github.com/TimDavid1111/daily-automation/internal/event"
	"github.com/TimDavid1111/daily-automation/internal/notion"
	"github.com/TimDavid1111/daily-automation/internal/runlog"
)

// TranscriptSource reads the transcript text for a page.
type TranscriptSource interface {
	Transcript(ctx context.Context, pageID string) (*notion.Transcript, error)
}

// Summarizer turns transcript text into a structured summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, now time.Time) (*claude.Summary, error)
}

// PageWriter creates the generated task page.
type PageWriter interface {
	CreateTaskPage(ctx context.Context, p notion.TaskPage) (string, error)
}

// DedupStore guards against redelivered events. A nil store disables the
// guard (documented duplicate-page limitation).
type DedupStore interface {
	MarkIfNew(ctx context.Context, key, pageID, eventType string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// KeyFunc derives the idempotency key for a delivery.
type KeyFunc func(pageID, eventType string) string

// Outcome classifies how a run ended.
type Outcome string

const (
	// OutcomeCreated means a task page was written.
	OutcomeCreated Outcome = "created"
	// OutcomeIgnored means the event was filtered out before any upstream call.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeSkipped means the page had no transcript yet; an expected
	// non-error state.
	OutcomeSkipped Outcome = "skipped_empty"
	// OutcomeDuplicate means this delivery was already handled.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeFailed means an upstream call failed; the error is surfaced
	// so the provider can redeliver.
	OutcomeFailed Outcome = "failed"
)

// Result summarizes a run for the HTTP layer.
type Result struct {
	Outcome Outcome
	Reason  string
	PageURL string
	Err     error
}

// Pipeline wires the stages together.
type Pipeline struct {
	filter     *event.Filter
	source     TranscriptSource
	summarizer Summarizer
	writer     PageWriter
	dedup      DedupStore
	key        KeyFunc
	runs       *runlog.Log
	logger     *slog.Logger

	now func() time.Time
}

// Options carries optional collaborators.
type Options struct {
	Dedup DedupStore
	Key   KeyFunc
	Runs  *runlog.Log
	Now   func() time.Time
}

// New creates a Pipeline. source, summarizer and writer are required.
func New(filter *event.Filter, source TranscriptSource, summarizer Summarizer, writer PageWriter, logger *slog.Logger, opts Options) *Pipeline {
	p := &Pipeline{
		filter:     filter,
		source:     source,
		summarizer: summarizer,
		writer:     writer,
		dedup:      opts.Dedup,
		key:        opts.Key,
		runs:       opts.Runs,
		logger:     logger,
		now:        opts.Now,
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Handle runs the pipeline for one decoded event. Verification events never
// reach here; the webhook server short-circuits them.
//
// When an event names several pages they are processed sequentially; the
// returned Result reflects the first failure, or the best outcome otherwise,
// so the provider's redelivery applies to the whole delivery.
func (p *Pipeline) Handle(ctx context.Context, ev *event.Event) Result {
	if d := p.filter.Check(ev); !d.Relevant {
		p.logger.Info("event ignored", "event_type", string(ev.Type), "reason", d.Reason)
		p.record(runlog.Record{EventType: string(ev.Type), Outcome: string(OutcomeIgnored), Error: d.Reason})
		return Result{Outcome: OutcomeIgnored, Reason: d.Reason}
	}

	best := Result{Outcome: OutcomeSkipped}
	for _, pageID := range ev.PageIDs {
		res := p.processPage(ctx, ev, pageID)
		if res.Outcome == OutcomeFailed {
			return res
		}
		if rank(res.Outcome) > rank(best.Outcome) {
			best = res
		}
	}
	return best
}

func rank(o Outcome) int {
	switch o {
	case OutcomeCreated:
		return 2
	case OutcomeDuplicate:
		return 1
	default:
		return 0
	}
}

func (p *Pipeline) processPage(ctx context.Context, ev *event.Event, pageID string) Result {
	start := p.now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID, "event_type", string(ev.Type), "page_id", pageID)

	rec := runlog.Record{
		ID:        runID,
		EventType: string(ev.Type),
		PageID:    pageID,
		StartedAt: start,
	}
	finish := func(res Result) Result {
		rec.Outcome = string(res.Outcome)
		rec.PageURL = res.PageURL
		if res.Err != nil {
			rec.Error = res.Err.Error()
		} else if res.Reason != "" {
			rec.Error = res.Reason
		}
		rec.Duration = p.now().Sub(start)
		p.record(rec)
		return res
	}

	var dedupKey string
	if p.dedup != nil && p.key != nil {
		dedupKey = p.key(pageID, string(ev.Type))
		fresh, err := p.dedup.MarkIfNew(ctx, dedupKey, pageID, string(ev.Type))
		if err != nil {
			// A broken dedup store must not stop processing; worst
			// case is a duplicate page.
			logger.Warn("dedup store unavailable, proceeding", "error", err)
		} else if !fresh {
			logger.Info("duplicate delivery, skipping")
			return finish(Result{Outcome: OutcomeDuplicate, Reason: "delivery already processed"})
		}
	}

	// Failed runs release the dedup key so the provider's redelivery gets
	// another attempt.
	fail := func(err error) Result {
		if dedupKey != "" {
			if ferr := p.dedup.Forget(ctx, dedupKey); ferr != nil {
				logger.Warn("failed to release dedup key", "error", ferr)
			}
		}
		logger.Error("pipeline run failed", "error", err)
		return finish(Result{Outcome: OutcomeFailed, Err: err})
	}

	logger.Info("fetching transcript")
	transcript, err := p.source.Transcript(ctx, pageID)
	if err != nil {
		if errors.Is(err, notion.ErrMissingTranscript) {
			logger.Info("no transcript on page, skipping")
			return finish(Result{Outcome: OutcomeSkipped, Reason: "transcript property missing or empty"})
		}
		return fail(err)
	}

	logger.Info("summarizing transcript", "transcript_chars", transcript.Length())
	summary, err := p.summarizer.Summarize(ctx, transcript.Text, start)
	if err != nil {
		return fail(err)
	}

	tasks := make([]string, 0, len(summary.Tasks))
	for _, t := range summary.Tasks {
		tasks = append(tasks, t.Description)
	}

	logger.Info("creating task page", "title", summary.Title, "tasks", len(tasks))
	url, err := p.writer.CreateTaskPage(ctx, notion.TaskPage{
		Title:   summary.Title,
		Summary: summary.Summary,
		Tasks:   tasks,
	})
	if err != nil {
		return fail(err)
	}

	logger.Info("task page created", "url", url)
	return finish(Result{Outcome: OutcomeCreated, PageURL: url})
}

func (p *Pipeline) record(rec runlog.Record) {
	if p.runs == nil {
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = p.now()
	}
	p.runs.Append(rec)
}
