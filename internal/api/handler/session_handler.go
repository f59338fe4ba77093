package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/resumeforge/tailor-client/internal/core/domain"
	"github.com/resumeforge/tailor-client/internal/core/service"
)

// SessionHandler drives sign-in, sign-up and sign-out.
type SessionHandler struct {
	app *service.App
}

func NewSessionHandler(app *service.App) *SessionHandler {
	return &SessionHandler{app: app}
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	State     domain.AuthState `json:"state"`
	Username  string           `json:"username,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
}

func (h *SessionHandler) response() sessionResponse {
	resp := sessionResponse{State: h.app.Session.State()}
	if session, ok := h.app.Session.Current(); ok {
		resp.Username = session.Identity
		if !session.ExpiresAt.IsZero() {
			exp := session.ExpiresAt
			resp.ExpiresAt = &exp
		}
	}
	return resp
}

// Get returns the current authentication state.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /v1/session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, h.response())
}

// Login signs in with existing credentials.
//
// @Summary      Sign in
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  errorResponse
// @Router       /v1/session/login [post]
func (h *SessionHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.app.Login(c.Request().Context(), req.Username, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.response())
}

// Signup creates an account and signs in.
//
// @Summary      Sign up
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Credentials"
// @Success      201   {object}  sessionResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/session/signup [post]
func (h *SessionHandler) Signup(c echo.Context) error {
	var req credentialsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, err := h.app.Signup(c.Request().Context(), req.Username, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, h.response())
}

// Logout signs out. Signing out twice is not an error.
func (h *SessionHandler) Logout(c echo.Context) error {
	if err := h.app.Logout(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.response())
}
