package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resumeforge/tailor-client/internal/core/ports"
)

// ArtifactHandler serves generated PDFs held by the client.
type ArtifactHandler struct {
	artifacts ports.ArtifactStore
}

func NewArtifactHandler(artifacts ports.ArtifactStore) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts}
}

// Get streams an artifact until the flow that produced it releases it.
//
// @Summary      Generated PDF
// @Tags         artifacts
// @Produce      application/pdf
// @Param        id   path  string  true  "Artifact id"
// @Success      200
// @Failure      404  {object}  errorResponse
// @Router       /v1/artifacts/{id} [get]
func (h *ArtifactHandler) Get(c echo.Context) error {
	art, data, err := h.artifacts.Get(c.Param("id"))
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", art.ID+".pdf"))
	return c.Blob(http.StatusOK, art.ContentType, data)
}
