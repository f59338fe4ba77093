package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestFlowState_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to FlowState
		want     bool
	}{
		{FlowIdle, FlowTailoring, true},
		{FlowIdle, FlowGenerating, false},
		{FlowTailoring, FlowGenerating, true},
		{FlowTailoring, FlowError, true},
		{FlowTailoring, FlowComplete, false},
		{FlowGenerating, FlowComplete, true},
		{FlowGenerating, FlowError, true},
		{FlowGenerating, FlowTailoring, false},
		{FlowComplete, FlowTailoring, true},
		{FlowError, FlowTailoring, true},
		{FlowComplete, FlowError, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestFlowState_AcceptsAction(t *testing.T) {
	for _, s := range []FlowState{FlowIdle, FlowComplete, FlowError} {
		if !s.AcceptsAction() {
			t.Errorf("expected %s to accept a new tailor action", s)
		}
	}
	for _, s := range []FlowState{FlowTailoring, FlowGenerating} {
		if s.AcceptsAction() {
			t.Errorf("expected %s to reject a new tailor action", s)
		}
		if !s.InProgress() {
			t.Errorf("expected %s to be in progress", s)
		}
	}
}

func TestNewestFirst(t *testing.T) {
	in := []HistoryEntry{{ID: 1}, {ID: 2}, {ID: 3}}
	out := NewestFirst(in)
	if out[0].ID != 3 || out[1].ID != 2 || out[2].ID != 1 {
		t.Fatalf("unexpected order: %+v", out)
	}
	if in[0].ID != 1 {
		t.Fatalf("input must not be reordered in place")
	}
	if len(NewestFirst(nil)) != 0 {
		t.Fatalf("expected empty result")
	}
}

func TestTimestamp_Unmarshal(t *testing.T) {
	cases := map[string]time.Time{
		`"2025-03-01T10:20:30.123456"`: time.Date(2025, 3, 1, 10, 20, 30, 123456000, time.UTC),
		`"2025-03-01T10:20:30Z"`:       time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC),
		`"2025-03-01T12:20:30+02:00"`:  time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC),
		`"2025-03-01"`:                 time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		var ts Timestamp
		if err := json.Unmarshal([]byte(raw), &ts); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if !ts.Equal(want) {
			t.Errorf("%s: expected %s, got %s", raw, want, ts.Time)
		}
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Fatalf("expected error for unrecognised layout")
	}
}

func TestAPIError_UnwrapsToKind(t *testing.T) {
	err := error(&APIError{Status: 401, Message: "Invalid credentials", Kind: ErrAuthentication})
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication")
	}
	if StatusOf(err) != 401 {
		t.Fatalf("expected status 401, got %d", StatusOf(err))
	}
	if StatusOf(errors.New("plain")) != 0 {
		t.Fatalf("expected status 0 for non-API errors")
	}
}

func TestResume_CloneIsIndependent(t *testing.T) {
	base := &Resume{
		Contact:    ContactInfo{Name: "A"},
		Experience: []Experience{{Company: "C", Position: "P", Description: []string{"one"}}},
		Skills:     []SkillGroup{{Category: "Go", Skills: []string{"generics"}}},
	}
	clone := base.Clone()
	clone.Experience[0].Description[0] = "changed"
	clone.Skills[0].Skills = append(clone.Skills[0].Skills, "channels")
	clone.Contact.Name = "B"

	if base.Experience[0].Description[0] != "one" || len(base.Skills[0].Skills) != 1 || base.Contact.Name != "A" {
		t.Fatalf("clone aliases the original: %+v", base)
	}
	if (*Resume)(nil).Clone() != nil {
		t.Fatalf("expected nil clone of nil resume")
	}
}

func TestExperience_Period(t *testing.T) {
	if got := (Experience{StartDate: "2020", EndDate: "2022", Current: true}).Period(); got != "2020 - Present" {
		t.Fatalf("unexpected period %q", got)
	}
	if got := (Experience{StartDate: "2020", EndDate: "2022"}).Period(); got != "2020 - 2022" {
		t.Fatalf("unexpected period %q", got)
	}
	if got := (Experience{}).Period(); got != "" {
		t.Fatalf("unexpected period %q", got)
	}
}

func TestSession_Valid(t *testing.T) {
	if (Session{Credential: "t"}).Valid() {
		t.Fatalf("session without identity must be invalid")
	}
	if !(Session{Credential: "t", Identity: "u"}).Valid() {
		t.Fatalf("expected valid session")
	}
}
