package pipeline

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TimDavid1111/daily-automation/internal/claude"
	"github.com/TimDavid1111/daily-automation/internal/dedup"
	"github.com/TimDavid1111/daily-automation/internal/event"
	"github.com/TimDavid1111/daily-automation/internal/notion"
	"github.com/TimDavid1111/daily-automation/internal/runlog"
)

const targetDB = "2f1a9e04c4a280d3a908000bd423e5da"

var fixedNow = time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC) // a Monday

// Hand-rolled collaborator stubs; call counts back the "no upstream calls"
// assertions.

type stubSource struct {
	texts map[string]string
	err   error
	calls int
}

func (s *stubSource) Transcript(ctx context.Context, pageID string) (*notion.Transcript, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	text, ok := s.texts[pageID]
	if !ok || text == "" {
		return nil, notion.ErrMissingTranscript
	}
	return &notion.Transcript{PageID: pageID, Text: text}, nil
}

type stubSummarizer struct {
	summary *claude.Summary
	err     error
	calls   int
}

func (s *stubSummarizer) Summarize(ctx context.Context, transcript string, now time.Time) (*claude.Summary, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := *s.summary
	out.Title = claude.PageTitle(now)
	return &out, nil
}

type stubWriter struct {
	url   string
	err   error
	calls int
	got   []notion.TaskPage
}

func (s *stubWriter) CreateTaskPage(ctx context.Context, p notion.TaskPage) (string, error) {
	s.calls++
	s.got = append(s.got, p)
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestPipeline(source *stubSource, summarizer *stubSummarizer, writer *stubWriter, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	return New(event.NewFilter(targetDB), source, summarizer, writer, testLogger(), opts)
}

func pageCreatedEvent(pageID string) *event.Event {
	return &event.Event{
		Type:       event.TypePageCreated,
		DatabaseID: targetDB,
		PageIDs:    []string{pageID},
	}
}

func TestHandle_EndToEnd(t *testing.T) {
	source := &stubSource{texts: map[string]string{
		"page-1": "I need to finish the quarterly report by Friday. First, compile the sales data.",
	}}
	summarizer := &stubSummarizer{summary: &claude.Summary{
		Summary: "Working toward the quarterly report deadline.",
		Tasks: []claude.Task{
			{Description: "Compile the sales data"},
			{Description: "Finish the quarterly report by Friday"},
		},
	}}
	writer := &stubWriter{url: "https://www.notion.so/generated"}
	runs := runlog.New(10)

	p := newTestPipeline(source, summarizer, writer, Options{Runs: runs})
	res := p.Handle(context.Background(), pageCreatedEvent("page-1"))

	require.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, "https://www.notion.so/generated", res.PageURL)

	require.Len(t, writer.got, 1)
	page := writer.got[0]
	// Title carries the current date.
	assert.Equal(t, "Monday [01/05/26]", page.Title)
	assert.NotEmpty(t, page.Summary)
	require.Len(t, page.Tasks, 2)
	assert.Contains(t, page.Tasks[0], "Compile the sales data")

	recent := runs.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, string(OutcomeCreated), recent[0].Outcome)
	assert.Equal(t, "page-1", recent[0].PageID)
}

func TestHandle_IgnoredEvent_NoUpstreamCalls(t *testing.T) {
	source := &stubSource{}
	summarizer := &stubSummarizer{}
	writer := &stubWriter{}
	p := newTestPipeline(source, summarizer, writer, Options{})

	tests := []struct {
		name string
		ev   *event.Event
	}{
		{
			name: "different database",
			ev: &event.Event{
				Type:       event.TypePageCreated,
				DatabaseID: "00000000000000000000000000000000",
				PageIDs:    []string{"p"},
			},
		},
		{
			name: "unhandled type",
			ev: &event.Event{
				Type:       event.Type("comment.created"),
				DatabaseID: targetDB,
				PageIDs:    []string{"p"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Handle(context.Background(), tt.ev)
			assert.Equal(t, OutcomeIgnored, res.Outcome)
			assert.NotEmpty(t, res.Reason)
		})
	}

	assert.Zero(t, source.calls, "transcript reads for ignored events")
	assert.Zero(t, summarizer.calls, "LLM calls for ignored events")
	assert.Zero(t, writer.calls, "page writes for ignored events")
}

func TestHandle_EmptyTranscript_Skips(t *testing.T) {
	source := &stubSource{texts: map[string]string{}}
	summarizer := &stubSummarizer{}
	writer := &stubWriter{}
	p := newTestPipeline(source, summarizer, writer, Options{})

	res := p.Handle(context.Background(), pageCreatedEvent("empty-page"))

	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Equal(t, 1, source.calls)
	assert.Zero(t, summarizer.calls)
	assert.Zero(t, writer.calls)
}

func TestHandle_AuthError_Fails(t *testing.T) {
	source := &stubSource{err: &notion.AuthError{Status: 401, Message: "bad token"}}
	writer := &stubWriter{}
	p := newTestPipeline(source, &stubSummarizer{}, writer, Options{})

	res := p.Handle(context.Background(), pageCreatedEvent("page-1"))

	require.Equal(t, OutcomeFailed, res.Outcome)
	var authErr *notion.AuthError
	assert.ErrorAs(t, res.Err, &authErr)
	assert.Zero(t, writer.calls)
}

func TestHandle_MalformedSummary_FailsWithoutWrite(t *testing.T) {
	source := &stubSource{texts: map[string]string{"page-1": "some transcript"}}
	summarizer := &stubSummarizer{err: &claude.MalformedSummaryError{Reason: "task list field missing"}}
	writer := &stubWriter{}
	p := newTestPipeline(source, summarizer, writer, Options{})

	res := p.Handle(context.Background(), pageCreatedEvent("page-1"))

	require.Equal(t, OutcomeFailed, res.Outcome)
	var malformed *claude.MalformedSummaryError
	assert.ErrorAs(t, res.Err, &malformed)
	assert.Zero(t, writer.calls, "no page may be written for a malformed summary")
}

func TestHandle_WriteError_Fails(t *testing.T) {
	source := &stubSource{texts: map[string]string{"page-1": "some transcript"}}
	summarizer := &stubSummarizer{summary: &claude.Summary{Summary: "s", Tasks: []claude.Task{{Description: "d"}}}}
	writer := &stubWriter{err: &notion.WriteError{Status: 500, Message: "boom"}}
	p := newTestPipeline(source, summarizer, writer, Options{})

	res := p.Handle(context.Background(), pageCreatedEvent("page-1"))

	require.Equal(t, OutcomeFailed, res.Outcome)
	var writeErr *notion.WriteError
	assert.ErrorAs(t, res.Err, &writeErr)
}

func TestHandle_DuplicateDelivery(t *testing.T) {
	store, err := dedup.Open(context.Background(), t.TempDir()+"/state.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	source := &stubSource{texts: map[string]string{"page-1": "transcript text"}}
	summarizer := &stubSummarizer{summary: &claude.Summary{Summary: "s", Tasks: []claude.Task{{Description: "d"}}}}
	writer := &stubWriter{url: "https://www.notion.so/x"}

	p := newTestPipeline(source, summarizer, writer, Options{Dedup: store, Key: dedup.Key})

	first := p.Handle(context.Background(), pageCreatedEvent("page-1"))
	require.Equal(t, OutcomeCreated, first.Outcome)

	second := p.Handle(context.Background(), pageCreatedEvent("page-1"))
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Equal(t, 1, writer.calls, "duplicate delivery must not write a second page")
	assert.Equal(t, 1, source.calls)
}

func TestHandle_FailureReleasesDedupKey(t *testing.T) {
	store, err := dedup.Open(context.Background(), t.TempDir()+"/state.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	source := &stubSource{texts: map[string]string{"page-1": "transcript text"}}
	summarizer := &stubSummarizer{summary: &claude.Summary{Summary: "s", Tasks: []claude.Task{{Description: "d"}}}}
	writer := &stubWriter{err: &notion.WriteError{Status: 503, Message: "unavailable"}}

	p := newTestPipeline(source, summarizer, writer, Options{Dedup: store, Key: dedup.Key})

	res := p.Handle(context.Background(), pageCreatedEvent("page-1"))
	require.Equal(t, OutcomeFailed, res.Outcome)

	// Redelivery after the failure gets a fresh attempt.
	writer.err = nil
	writer.url = "https://www.notion.so/retry"
	res = p.Handle(context.Background(), pageCreatedEvent("page-1"))
	assert.Equal(t, OutcomeCreated, res.Outcome)
}

func TestHandle_WithoutDedupDuplicatesAreAccepted(t *testing.T) {
	// Documented limitation: with no dedup store, redelivery of the same
	// event creates a second page.
	source := &stubSource{texts: map[string]string{"page-1": "transcript text"}}
	summarizer := &stubSummarizer{summary: &claude.Summary{Summary: "s", Tasks: []claude.Task{{Description: "d"}}}}
	writer := &stubWriter{url: "https://www.notion.so/x"}
	p := newTestPipeline(source, summarizer, writer, Options{})

	p.Handle(context.Background(), pageCreatedEvent("page-1"))
	p.Handle(context.Background(), pageCreatedEvent("page-1"))

	assert.Equal(t, 2, writer.calls)
}

func TestHandle_MultiplePages(t *testing.T) {
	source := &stubSource{texts: map[string]string{
		"page-a": "",
		"page-b": "real transcript",
	}}
	summarizer := &stubSummarizer{summary: &claude.Summary{Summary: "s", Tasks: []claude.Task{{Description: "d"}}}}
	writer := &stubWriter{url: "https://www.notion.so/b"}
	p := newTestPipeline(source, summarizer, writer, Options{})

	ev := &event.Event{
		Type:       event.TypeDataSourceContentUpdated,
		DatabaseID: targetDB,
		PageIDs:    []string{"page-a", "page-b"},
	}
	res := p.Handle(context.Background(), ev)

	// One skip plus one create resolves to the create.
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, 2, source.calls)
	assert.Equal(t, 1, writer.calls)
}
