package api

import (
	"fmt"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/msb-virtuoso/user-admin/internal/api/handler"
	"github.com/msb-virtuoso/user-admin/internal/api/middleware"
	"github.com/msb-virtuoso/user-admin/internal/core/ports"
	"github.com/msb-virtuoso/user-admin/internal/infrastructure/http/handlers"
)

// DirectoryDeps are the collaborators of the directory API.
type DirectoryDeps struct {
	Users     ports.UserService
	Importer  ports.ImportService
	MaxUpload int64
	Checks    map[string]handlers.Checker
	// Registry defaults to the Prometheus default registry.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewDirectoryRouter builds the Echo instance serving /api/users.
func NewDirectoryRouter(d DirectoryDeps) *echo.Echo {
	e := newEcho(d.Log, d.Registry, "directory")
	e.Use(echomiddleware.BodyLimit(bodyLimit(d.MaxUpload)))

	users := handler.NewUserHandler(d.Users, d.Importer, d.MaxUpload, d.Log)

	// --- User routes ---
	g := e.Group("/api/users")
	g.GET("", users.List)
	g.POST("", users.Create)
	g.POST("/upload", users.Upload)
	g.GET("/:id", users.Get)
	g.PUT("/:id", users.Update)
	g.DELETE("/:id", users.Delete)

	registerHealth(e, d.Checks)
	return e
}

// ConsoleDeps are the collaborators of the admin console.
type ConsoleDeps struct {
	Sessions       *middleware.Sessions
	Renderer       echo.Renderer
	ImportTemplate []byte
	MaxUpload      int64
	Production     bool
	Checks         map[string]handlers.Checker
	Registry       *prometheus.Registry
	Log            zerolog.Logger
}

// NewConsoleRouter builds the Echo instance serving the admin pages.
func NewConsoleRouter(d ConsoleDeps) *echo.Echo {
	e := newEcho(d.Log, d.Registry, "console")
	e.Renderer = d.Renderer
	e.Use(middleware.SecureHeaders(d.Production))
	e.Use(echomiddleware.BodyLimit(bodyLimit(d.MaxUpload)))

	console := handler.NewConsoleHandler(d.ImportTemplate, d.MaxUpload, d.Log)

	e.GET("/", console.Index)
	e.GET("/templates/user_import_template.xlsx", console.ImportTemplate)

	// --- Session-bound routes ---
	s := e.Group("", d.Sessions.Middleware())
	s.GET("/users", console.Users)
	s.GET("/users/state", console.State)
	s.POST("/users/search", console.Search)
	s.POST("/users/page", console.ChangePage)
	s.POST("/users/refresh", console.Refresh)
	s.POST("/users/new", console.New)
	s.POST("/users/:id/view", console.View)
	s.POST("/users/:id/edit", console.Edit)
	s.POST("/users/:id/delete", console.SelectForDelete)
	s.POST("/users/delete/confirm", console.ConfirmDelete)
	s.POST("/users/form", console.Form)
	s.POST("/users/close", console.Close)
	s.POST("/users/alert/dismiss", console.DismissAlert)

	s.POST("/import/open", console.OpenImport)
	s.POST("/import/files", console.ImportFiles)
	s.POST("/import/upload", console.ImportUpload)
	s.POST("/import/reset", console.ImportReset)
	s.POST("/import/close", console.ImportClose)

	registerHealth(e, d.Checks)
	return e
}

func newEcho(log zerolog.Logger, reg *prometheus.Registry, subsystem string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	mw := echoprometheus.MiddlewareConfig{Subsystem: subsystem}
	h := echoprometheus.HandlerConfig{}
	if reg != nil {
		mw.Registerer = reg
		h.Gatherer = reg
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(mw))
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(h))
	return e
}

func registerHealth(e *echo.Echo, checks map[string]handlers.Checker) {
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewReadinessHandler(checks).Readiness)
}

// bodyLimit leaves room for the multipart envelope around the upload.
func bodyLimit(maxUpload int64) string {
	if maxUpload <= 0 {
		return "10M"
	}
	return fmt.Sprintf("%dK", maxUpload/1024+64)
}
