package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/resumeforge/tailor-client/internal/core/domain"
)

func TestHistoryHandler_ListAndSelect(t *testing.T) {
	api := &stubAPI{history: []domain.HistoryEntry{
		{ID: 1, JobDescription: "first", Content: *sampleResume("One")},
		{ID: 2, JobDescription: "second", Content: *sampleResume("Two")},
	}}
	app := newSignedInApp(t, api)
	h := NewHistoryHandler(app)

	c, rec := newContext(http.MethodGet, "/v1/history", "")
	if err := h.List(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	expectStatus(t, rec, http.StatusOK)
	if entries := app.History.Entries(); len(entries) != 2 || entries[0].ID != 2 {
		t.Fatalf("expected newest first, got %+v", entries)
	}

	c, rec = newContext(http.MethodPost, "/v1/history/1/select", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.Select(c); err != nil {
		t.Fatalf("select: %v", err)
	}
	expectStatus(t, rec, http.StatusAccepted)

	app.History.Wait()
	sel := app.History.Selection()
	if sel == nil || sel.EntryID != 1 || sel.Loading || sel.Artifact == nil {
		t.Fatalf("unexpected selection: %+v", sel)
	}
}

func TestHistoryHandler_SelectBadID(t *testing.T) {
	h := NewHistoryHandler(newSignedInApp(t, &stubAPI{}))

	c, _ := newContext(http.MethodPost, "/v1/history/abc/select", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	var he *echo.HTTPError
	if err := h.Select(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
