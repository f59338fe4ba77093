// Package devserver is an in-memory stand-in for the remote resume service.
// It speaks the same wire contract, so the client can be developed and tested
// end to end without the real backend.
package devserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/pkg/validation"
)

// Config controls token issuance.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost; tests lower it.
	BcryptCost int
}

type Server struct {
	echo     *echo.Echo
	accounts *accounts
	data     *dataStore
	faults   *Faults
	log      zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Server {
	s := &Server{
		echo:     echo.New(),
		accounts: newAccounts(cfg.JWTSecret, cfg.TokenTTL, cfg.BcryptCost),
		data:     newDataStore(),
		faults:   newFaults(),
		log:      log.With().Str("component", "devserver").Logger(),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Validator = validation.New()
	s.echo.HTTPErrorHandler = s.handleError
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.routes()
	return s
}

// Faults exposes failure injection.
func (s *Server) Faults() *Faults {
	return s.faults
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start(addr string) error {
	s.log.Info().Str("addr", addr).Msg("dev server listening")
	return s.echo.Start(addr)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) routes() {
	s.echo.GET("/", s.root)
	s.echo.GET("/health", s.health)

	v1 := s.echo.Group("/api/v1")
	v1.GET("", s.root)
	v1.GET("/", s.root)
	v1.POST("/auth/login", s.login, s.faults.middleware("login"))
	v1.POST("/auth/signup", s.signup, s.faults.middleware("signup"))
	v1.POST("/generate-pdf", s.generatePDF, s.faults.middleware("generate_pdf"))

	me := v1.Group("/users/me", s.accounts.requireUser())
	me.GET("/resume", s.getResume, s.faults.middleware("fetch_base_resume"))
	me.POST("/resume", s.putResume, s.faults.middleware("save_base_resume"))
	me.POST("/parse-pdf", s.parsePDF, s.faults.middleware("parse_pdf"))
	me.POST("/tailor", s.tailor, s.faults.middleware("tailor"))

	history := v1.Group("/history", s.accounts.requireUser())
	history.GET("/", s.listHistory, s.faults.middleware("list_history"))
	history.POST("/", s.saveHistory, s.faults.middleware("save_history"))
	history.GET("/:id", s.getHistory, s.faults.middleware("fetch_history_item"))
}

// detailError is a FastAPI-style validation failure.
type detailError struct {
	status int
	detail any
}

func (e *detailError) Error() string {
	return http.StatusText(e.status)
}

// handleError answers {"detail": ...} like the real service.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	var detail any = "Internal Server Error"

	var de *detailError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &de):
		status, detail = de.status, de.detail
	case errors.As(err, &he):
		status = he.Code
		detail = http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			detail = msg
		}
	default:
		s.log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}

	if err := c.JSON(status, map[string]any{"detail": detail}); err != nil {
		s.log.Error().Err(err).Msg("failed to write error response")
	}
}
