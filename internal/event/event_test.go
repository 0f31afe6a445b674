package event

import (
	"testing"
)

func TestDecode_Verification(t *testing.T) {
	raw := []byte(`{"verification_token":"secret_tok_123"}`)

	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ev.Type != TypeVerification {
		t.Errorf("Type = %v, want %v", ev.Type, TypeVerification)
	}
	if ev.VerificationToken != "secret_tok_123" {
		t.Errorf("VerificationToken = %v, want secret_tok_123", ev.VerificationToken)
	}
	if !ev.IsVerification() {
		t.Error("IsVerification() = false, want true")
	}
}

func TestDecode_PageCreated(t *testing.T) {
	raw := []byte(`{
		"type": "page.created",
		"entity": {"id": "page-123", "type": "page"},
		"data": {"parent": {"id": "db-456", "type": "database"}}
	}`)

	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ev.Type != TypePageCreated {
		t.Errorf("Type = %v, want %v", ev.Type, TypePageCreated)
	}
	if len(ev.PageIDs) != 1 || ev.PageIDs[0] != "page-123" {
		t.Errorf("PageIDs = %v, want [page-123]", ev.PageIDs)
	}
	if ev.DatabaseID != "db-456" {
		t.Errorf("DatabaseID = %v, want db-456", ev.DatabaseID)
	}
}

func TestDecode_DataSourceContentUpdated(t *testing.T) {
	raw := []byte(`{
		"type": "data_source.content_updated",
		"entity": {"id": "ds-1", "type": "data_source"},
		"data": {"updated_blocks": [
			{"id": "page-a", "type": "block"},
			{"id": "page-b", "type": "block"},
			{"id": "x", "type": "comment"}
		]}
	}`)

	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ev.DatabaseID != "ds-1" {
		t.Errorf("DatabaseID = %v, want ds-1", ev.DatabaseID)
	}
	if len(ev.PageIDs) != 2 {
		t.Fatalf("PageIDs = %v, want two block ids", ev.PageIDs)
	}
	if ev.PageIDs[0] != "page-a" || ev.PageIDs[1] != "page-b" {
		t.Errorf("PageIDs = %v, want [page-a page-b]", ev.PageIDs)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid json", `{not json`},
		{"missing type", `{"entity":{"id":"x","type":"page"}}`},
		{"page event without entity", `{"type":"page.created","entity":{"id":"","type":""}}`},
		{"data_source event with page entity", `{"type":"data_source.content_updated","entity":{"id":"p","type":"page"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.raw)); err == nil {
				t.Errorf("Decode(%s) expected error, got nil", tt.raw)
			}
		})
	}
}

func TestDecode_UnknownTypePassesThrough(t *testing.T) {
	raw := []byte(`{"type":"comment.created","entity":{"id":"c1","type":"comment"}}`)

	ev, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ev.Type != Type("comment.created") {
		t.Errorf("Type = %v, want comment.created", ev.Type)
	}
}

func TestNormalizeID(t *testing.T) {
	a := NormalizeID("2f1a9e04-c4a2-80d3-a908-000bd423e5da")
	b := NormalizeID("2f1a9e04c4a280d3a908000bd423e5da")
	if a != b {
		t.Errorf("NormalizeID mismatch: %q vs %q", a, b)
	}
}

func TestFilter(t *testing.T) {
	f := NewFilter("2f1a9e04-c4a2-80d3-a908-000bd423e5da")

	tests := []struct {
		name         string
		ev           *Event
		wantRelevant bool
	}{
		{
			name: "matching data_source event",
			ev: &Event{
				Type:       TypeDataSourceContentUpdated,
				DatabaseID: "2f1a9e04c4a280d3a908000bd423e5da",
				PageIDs:    []string{"p1"},
			},
			wantRelevant: true,
		},
		{
			name: "matching page.created",
			ev: &Event{
				Type:       TypePageCreated,
				DatabaseID: "2f1a9e04-c4a2-80d3-a908-000bd423e5da",
				PageIDs:    []string{"p1"},
			},
			wantRelevant: true,
		},
		{
			name: "different database",
			ev: &Event{
				Type:       TypePageCreated,
				DatabaseID: "00000000000000000000000000000000",
				PageIDs:    []string{"p1"},
			},
			wantRelevant: false,
		},
		{
			name: "unhandled type",
			ev: &Event{
				Type:       Type("comment.created"),
				DatabaseID: "2f1a9e04c4a280d3a908000bd423e5da",
				PageIDs:    []string{"p1"},
			},
			wantRelevant: false,
		},
		{
			name: "no pages",
			ev: &Event{
				Type:       TypeDataSourceContentUpdated,
				DatabaseID: "2f1a9e04c4a280d3a908000bd423e5da",
			},
			wantRelevant: false,
		},
		{
			name:         "verification never relevant",
			ev:           &Event{Type: TypeVerification, VerificationToken: "tok"},
			wantRelevant: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.Check(tt.ev)
			if d.Relevant != tt.wantRelevant {
				t.Errorf("Check() relevant = %v, want %v (reason %q)", d.Relevant, tt.wantRelevant, d.Reason)
			}
			if !d.Relevant && d.Reason == "" {
				t.Error("irrelevant decision must carry a reason")
			}
		})
	}
}

func TestFilter_NoDatabaseConfigured(t *testing.T) {
	f := NewFilter("")
	d := f.Check(&Event{
		Type:       TypePageCreated,
		DatabaseID: "anything",
		PageIDs:    []string{"p1"},
	})
	if d.Relevant {
		t.Error("Check() relevant = true with no configured database")
	}
}
