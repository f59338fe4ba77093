package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resumeforge/tailor-client/internal/core/service"
)

// ResumeHandler maintains the base resume: import, edit, save and promote.
type ResumeHandler struct {
	app *service.App
}

func NewResumeHandler(app *service.App) *ResumeHandler {
	return &ResumeHandler{app: app}
}

func (h *ResumeHandler) snapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, h.app.Resume.Snapshot())
}

// Get returns the base resume, its text mirror and the edit state.
//
// @Summary      Base resume
// @Tags         resume
// @Produce      json
// @Success      200  {object}  service.WorkspaceSnapshot
// @Router       /v1/resume [get]
func (h *ResumeHandler) Get(c echo.Context) error {
	return h.snapshot(c)
}

// Import parses an uploaded PDF and makes it the base resume.
//
// @Summary      Import a PDF resume
// @Tags         resume
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "PDF resume"
// @Success      200   {object}  service.WorkspaceSnapshot
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/resume/import [post]
func (h *ResumeHandler) Import(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	defer src.Close()

	if err := h.app.Import(c.Request().Context(), fh.Filename, src); err != nil {
		return err
	}
	return h.snapshot(c)
}

func (h *ResumeHandler) BeginEdit(c echo.Context) error {
	h.app.Resume.BeginEdit()
	return h.snapshot(c)
}

func (h *ResumeHandler) UpdateDraft(c echo.Context) error {
	var req draftRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.app.Resume.UpdateDraft(req.Text); err != nil {
		return err
	}
	return h.snapshot(c)
}

func (h *ResumeHandler) CancelEdit(c echo.Context) error {
	h.app.Resume.CancelEdit()
	return h.snapshot(c)
}

// Save validates the draft and stores it as the base resume. A rejected
// draft stays open for correction.
//
// @Summary      Save the edited base resume
// @Tags         resume
// @Produce      json
// @Success      200  {object}  service.WorkspaceSnapshot
// @Failure      409  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /v1/resume/save [post]
func (h *ResumeHandler) Save(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.app.Check(ctx, h.app.Resume.Save(ctx)); err != nil {
		return err
	}
	return h.snapshot(c)
}

// Promote makes the last tailored document the base resume.
func (h *ResumeHandler) Promote(c echo.Context) error {
	if err := h.app.Promote(c.Request().Context()); err != nil {
		return err
	}
	return h.snapshot(c)
}
