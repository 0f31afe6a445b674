package event

// Filter decides whether a decoded event should trigger the pipeline.
// Webhook subscriptions may span multiple event types and databases; the
// filter keeps anything irrelevant from incurring downstream LLM cost.
type Filter struct {
	databaseID string
}

// NewFilter creates a filter targeting the configured database.
func NewFilter(databaseID string) *Filter {
	return &Filter{databaseID: NormalizeID(databaseID)}
}

// Decision is the filter outcome. Relevant events proceed to the pipeline;
// the rest are acknowledged with HTTP 200 and dropped, with Reason recorded
// in the logs.
type Decision struct {
	Relevant bool
	Reason   string
}

var handledTypes = map[Type]struct{}{
	TypePageCreated:              {},
	TypePageContentUpdated:       {},
	TypeDataSourceContentUpdated: {},
}

// Check evaluates an event against the configured target database.
func (f *Filter) Check(ev *Event) Decision {
	if _, ok := handledTypes[ev.Type]; !ok {
		return Decision{Reason: "event type not handled"}
	}
	if f.databaseID == "" {
		return Decision{Reason: "no target database configured"}
	}
	if NormalizeID(ev.DatabaseID) != f.databaseID {
		return Decision{Reason: "event from different database"}
	}
	if len(ev.PageIDs) == 0 {
		return Decision{Reason: "no affected pages in event"}
	}
	return Decision{Relevant: true}
}
