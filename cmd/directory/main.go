// Command directory serves the /api/users REST API and the spreadsheet
// import backed by MongoDB, with user and role ids allocated in Redis.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/msb-virtuoso/user-admin/internal/api"
	"github.com/msb-virtuoso/user-admin/internal/core/service"
	"github.com/msb-virtuoso/user-admin/internal/infrastructure/config"
	mongodb "github.com/msb-virtuoso/user-admin/internal/infrastructure/db/mongo"
	redisdb "github.com/msb-virtuoso/user-admin/internal/infrastructure/db/redis"
	apphttp "github.com/msb-virtuoso/user-admin/internal/infrastructure/http"
	"github.com/msb-virtuoso/user-admin/internal/infrastructure/http/handlers"
	"github.com/msb-virtuoso/user-admin/internal/infrastructure/spreadsheet"
	"github.com/msb-virtuoso/user-admin/pkg/logger"
)

func main() {
	// 1. Configuration and logging
	cfg := config.Load()
	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.Production(), Service: "directory"})
	log := logger.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "user-admin-directory",
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb unavailable")
	}
	defer func() {
		if err := mongodb.Disconnect(client); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis unavailable")
	}
	defer rdb.Close()

	users := mongodb.NewUserRepository(db)
	roles := mongodb.NewRoleRepository(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure user indexes")
	}
	if err := roles.EnsureRoles(ctx, cfg.Directory.RoleNames()); err != nil {
		log.Fatal().Err(err).Msg("seed role catalog")
	}
	ids := redisdb.NewSequence(rdb)

	// 3. Services
	userSvc := service.NewUserService(users, ids, cfg.Directory.Actor, logger.Component("users"))
	importSvc := service.NewImportService(
		spreadsheet.NewReader(),
		users,
		roles,
		ids,
		service.ImportConfig{
			Actor:       cfg.Directory.ImportActor,
			EmailDomain: cfg.Console.EmailDomain,
			Extension:   cfg.Console.UploadExtension,
		},
		logger.Component("import"),
	)

	// 4. HTTP
	e := api.NewDirectoryRouter(api.DirectoryDeps{
		Users:     userSvc,
		Importer:  importSvc,
		MaxUpload: cfg.Console.MaxUploadBytes,
		Checks: map[string]handlers.Checker{
			"mongodb": handlers.MongoChecker(db),
			"redis":   handlers.RedisChecker(rdb),
		},
		Log: logger.Component("http"),
	})

	if err := apphttp.Serve(ctx, e, ":"+cfg.Directory.Port, log); err != nil {
		log.Fatal().Err(err).Msg("directory server failed")
	}
	log.Info().Msg("directory stopped")
}
