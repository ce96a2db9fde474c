// Command console serves the user administration pages. It keeps one
// workspace per browser session and talks to the directory over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/msb-virtuoso/user-admin/internal/api"
	"github.com/msb-virtuoso/user-admin/internal/api/metrics"
	"github.com/msb-virtuoso/user-admin/internal/api/middleware"
	"github.com/msb-virtuoso/user-admin/internal/api/view"
	"github.com/msb-virtuoso/user-admin/internal/core/service"
	"github.com/msb-virtuoso/user-admin/internal/infrastructure/config"
	apphttp "github.com/msb-virtuoso/user-admin/internal/infrastructure/http"
	"github.com/msb-virtuoso/user-admin/internal/infrastructure/http/handlers"
	"github.com/msb-virtuoso/user-admin/internal/infrastructure/remote"
	"github.com/msb-virtuoso/user-admin/internal/infrastructure/spreadsheet"
	"github.com/msb-virtuoso/user-admin/pkg/logger"
)

func main() {
	// 1. Configuration and logging
	cfg := config.Load()
	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.Production(), Service: "console"})
	log := logger.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Directory client
	dir := remote.New(cfg.Console.DirectoryURL, cfg.Console.RequestTimeout, logger.Component("directory-client"),
		remote.WithObserver(metrics.ObserveDirectoryRequest))

	// 3. Per-session workspaces
	validator := service.NewDraftValidator(cfg.Console.EmailDomain)
	policy := service.FilePolicy{Extension: cfg.Console.UploadExtension}
	sessions := middleware.NewSessions(func(id string) *middleware.Workspace {
		wsLog := logger.Component("workspace").With().Str("session", id).Logger()
		return &middleware.Workspace{
			ID: id,
			Users: service.NewUserListController(dir, validator, wsLog,
				service.WithPageSize(cfg.Console.PageSize),
				service.WithStaleHook(metrics.StaleResponse)),
			Import: service.NewImportPipeline(dir, policy, wsLog,
				service.WithDiscardHook(metrics.StaleResponse)),
		}
	}, middleware.SessionOptions{
		TTL:         cfg.Console.SessionTTL,
		MaxSessions: cfg.Console.MaxSessions,
		Secure:      cfg.Console.SecureCookies,
		OnChange:    func(n int) { metrics.ActiveSessions.Set(float64(n)) },
	})

	// 4. Presentation
	engine, err := view.NewEngine()
	if err != nil {
		log.Fatal().Err(err).Msg("parse templates")
	}
	tmpl, err := spreadsheet.TemplateBytes()
	if err != nil {
		log.Fatal().Err(err).Msg("build import template")
	}

	e := api.NewConsoleRouter(api.ConsoleDeps{
		Sessions:       sessions,
		Renderer:       engine,
		ImportTemplate: tmpl,
		MaxUpload:      cfg.Console.MaxUploadBytes,
		Production:     cfg.Production(),
		Checks:         map[string]handlers.Checker{"directory": dir.Ping},
		Log:            logger.Component("http"),
	})

	if err := apphttp.Serve(ctx, e, ":"+cfg.Console.Port, log); err != nil {
		log.Fatal().Err(err).Msg("console server failed")
	}
	log.Info().Msg("console stopped")
}
