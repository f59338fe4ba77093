package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/resumeforge/tailor-client/internal/api/handler"
	"github.com/resumeforge/tailor-client/internal/api/middleware"
	"github.com/resumeforge/tailor-client/internal/core/service"
	"github.com/resumeforge/tailor-client/internal/pkg/validation"
)

// Deps is what the bridge needs from the composition root.
type Deps struct {
	App    *service.App
	Events *handler.EventHub
	// Probes are checked by GET /health/ready, keyed by dependency name.
	Probes map[string]handler.Pinger
	// Metrics replaces the default Prometheus registry when set.
	Metrics *prometheus.Registry
	Log     zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Metrics != nil {
		registerer, gatherer = d.Metrics, d.Metrics
	}

	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "resumeforge",
		Subsystem:  "bridge",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/v1/events"
		},
	}))

	// --- Health probes and metrics ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(d.Probes).Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))

	v1 := e.Group("/v1")

	// --- Session (open) ---
	session := handler.NewSessionHandler(d.App)
	v1.GET("/session", session.Get)
	v1.POST("/session/login", session.Login)
	v1.POST("/session/signup", session.Signup)
	v1.DELETE("/session", session.Logout)
	v1.GET("/events", d.Events.Serve)

	// --- Everything else needs a signed-in user ---
	signedIn := v1.Group("", middleware.RequireSession(d.App.Session))

	resume := handler.NewResumeHandler(d.App)
	signedIn.GET("/resume", resume.Get)
	signedIn.POST("/resume/import", resume.Import)
	signedIn.POST("/resume/edit", resume.BeginEdit)
	signedIn.PUT("/resume/edit", resume.UpdateDraft)
	signedIn.DELETE("/resume/edit", resume.CancelEdit)
	signedIn.POST("/resume/save", resume.Save)
	signedIn.POST("/resume/promote", resume.Promote)

	tailor := handler.NewTailorHandler(d.App)
	signedIn.POST("/tailor", tailor.Start)
	signedIn.GET("/tailor", tailor.Get)
	signedIn.DELETE("/tailor", tailor.Reset)

	history := handler.NewHistoryHandler(d.App)
	signedIn.GET("/history", history.List)
	signedIn.POST("/history/:id/select", history.Select)
	signedIn.GET("/history/selection", history.Selection)

	signedIn.GET("/artifacts/:id", handler.NewArtifactHandler(d.App.Artifacts).Get)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	log = log.With().Str("component", "bridge").Logger()
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/health") || c.Path() == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
