package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resumeforge/tailor-client/internal/core/service"
)

// HistoryHandler lists past tailoring results and renders the selected one.
type HistoryHandler struct {
	app *service.App
}

func NewHistoryHandler(app *service.App) *HistoryHandler {
	return &HistoryHandler{app: app}
}

// List loads the history on first use and returns it newest-first.
//
// @Summary      Tailoring history
// @Tags         history
// @Produce      json
// @Success      200  {object}  service.HistorySnapshot
// @Router       /v1/history [get]
func (h *HistoryHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.app.Check(ctx, h.app.History.Load(ctx)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.app.History.Snapshot())
}

// Select starts rendering the entry. Only the most recent selection is
// ever shown; poll the selection or watch the history topic for the result.
//
// @Summary      Select a history entry
// @Tags         history
// @Produce      json
// @Param        id   path      int  true  "History entry id"
// @Success      202  {object}  selectionResponse
// @Router       /v1/history/{id}/select [post]
func (h *HistoryHandler) Select(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	h.app.History.StartSelect(id)
	return c.JSON(http.StatusAccepted, selectionResponse{Selection: h.app.History.Selection()})
}

func (h *HistoryHandler) Selection(c echo.Context) error {
	return c.JSON(http.StatusOK, selectionResponse{Selection: h.app.History.Selection()})
}
