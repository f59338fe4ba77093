package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/core/service"
)

// TailorHandler starts tailoring runs and reports their progress.
type TailorHandler struct {
	app *service.App
}

func NewTailorHandler(app *service.App) *TailorHandler {
	return &TailorHandler{app: app}
}

// Start begins a tailoring run in the background. A run the entry guard
// rejects (blank job description, no base resume, run already in progress)
// answers started=false.
//
// @Summary      Tailor the base resume to a job description
// @Tags         tailor
// @Accept       json
// @Produce      json
// @Param        body  body      tailorRequest  true  "Job description"
// @Success      202   {object}  tailorStartResponse
// @Success      200   {object}  tailorStartResponse
// @Router       /v1/tailor [post]
func (h *TailorHandler) Start(c echo.Context) error {
	var req tailorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	started := h.app.Tailor.Start(domain.JobDescription{
		RawText: req.RawText,
		Title:   req.Title,
		Company: req.Company,
		URL:     req.URL,
	})

	status := http.StatusOK
	if started {
		status = http.StatusAccepted
	}
	return c.JSON(status, tailorStartResponse{Started: started, Tailor: h.app.Tailor.Snapshot()})
}

func (h *TailorHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, h.app.Tailor.Snapshot())
}

// Reset clears a finished run. It is refused while a run is in progress.
func (h *TailorHandler) Reset(c echo.Context) error {
	if !h.app.Tailor.Reset() {
		return domain.ErrFlowBusy
	}
	return c.JSON(http.StatusOK, h.app.Tailor.Snapshot())
}
