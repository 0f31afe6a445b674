package claude

import (
	"fmt"
	"time"
)

const systemPrompt = `You are an expert at converting voice transcripts into actionable task lists.

Analyze the transcript and produce:
* summary: 2-3 sentences summarizing the overall context and the main objective or project.
* tasks: every actionable item mentioned, each concise but specific (1-2 lines maximum), using clear action-oriented language starting with verbs, ordered by priority or natural sequence when clear from context.
* title: a short title for the resulting document.

Guidelines:
* Extract every actionable item mentioned.
* Add necessary detail for clarity without being verbose.
* If a task has multiple steps, break it into separate tasks.

Return ONLY JSON matching this shape, with no surrounding prose:
{"title":"","summary":"","tasks":[{"description":""}]}`

// buildUserMessage pairs the current date with the transcript, matching the
// prompt's expectation that dates mentioned in the text can be resolved.
func buildUserMessage(transcript string, now time.Time) string {
	return fmt.Sprintf("Current date: %s\n\nTranscript:\n%s", promptDate(now), transcript)
}

// promptDate renders the date for the model, e.g. "October 27, 2025".
func promptDate(now time.Time) string {
	return now.Format("January 2, 2006")
}

// PageTitle renders the generated page title, e.g. "Monday [10/27/25]".
// The date-derived title always wins over whatever the model suggests so a
// day's pages sort predictably.
func PageTitle(now time.Time) string {
	return fmt.Sprintf("%s [%s]", now.Format("Monday"), now.Format("01/02/06"))
}
