package handler

import "github.com/resumeforge/tailor-client/internal/core/service"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

// --- Request / Response types ---

type draftRequest struct {
	Text string `json:"text"`
}

type tailorRequest struct {
	RawText string `json:"raw_text"`
	Title   string `json:"title,omitempty"   validate:"max=200"`
	Company string `json:"company,omitempty" validate:"max=200"`
	URL     string `json:"url,omitempty"     validate:"omitempty,url"`
}

type tailorStartResponse struct {
	Started bool                   `json:"started"`
	Tailor  service.TailorSnapshot `json:"tailor"`
}

type selectionResponse struct {
	Selection *service.HistorySelection `json:"selection"`
}
