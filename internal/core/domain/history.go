package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// HistoryEntry is an immutable record of a past tailoring result.
type HistoryEntry struct {
	ID             int64     `json:"id"`
	CreatedAt      Timestamp `json:"created_at"`
	JobDescription string    `json:"job_description"`
	Content        Resume    `json:"content"`
}

// Timestamp accepts the ISO-8601 layouts the remote service emits,
// with or without a zone offset.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised layout %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// NewestFirst returns a reversed copy of entries. The remote service lists
// history oldest-first.
func NewestFirst(entries []HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}
