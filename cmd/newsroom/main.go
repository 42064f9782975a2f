package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/editorialhouse/newsroom/cmd/newsroom/cli"
	"github.com/editorialhouse/newsroom/internal/app"
	"github.com/editorialhouse/newsroom/internal/articles"
	"github.com/editorialhouse/newsroom/internal/auth"
	"github.com/editorialhouse/newsroom/internal/interactions"
	"github.com/editorialhouse/newsroom/internal/observability"
	"github.com/editorialhouse/newsroom/internal/platform/cache"
	"github.com/editorialhouse/newsroom/internal/platform/db"
	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/roles"
	"github.com/editorialhouse/newsroom/internal/shared"
	"github.com/editorialhouse/newsroom/internal/users"
	"github.com/editorialhouse/newsroom/jobs"
	"github.com/editorialhouse/newsroom/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		code := jobsCLI.Run(ctx, os.Args[2:], os.Stdout, os.Stderr)
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
		os.Exit(code)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("newsroom exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		return err
	}
	defer dbpool.Close()

	rbacRepo := rbac.NewRepository(dbpool)
	if cfg.MigrateOnStart {
		applied, err := db.Migrate(ctx, dbpool, migrations.FS, ".")
		if err != nil {
			return err
		}
		if err := rbacRepo.EnsureCatalog(ctx); err != nil {
			return err
		}
		logger.Info("migrations applied", slog.Any("files", applied))
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	rbacMiddleware := rbac.Middleware{Logger: logger}
	metrics := observability.NewMetrics()

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(auth.NewRepository(dbpool), tokens, cfg.LoginSessionValidity, logger)
	identity := auth.NewIdentity(authService, tokens, logger)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, rbacMiddleware)

	approvals := shared.NewApprovalRecorder(dbpool, logger)
	auditLogger := shared.NewAuditLogger(dbpool)
	articleRepo := articles.NewRepository(dbpool)
	articleService := articles.NewService(articleRepo, approvals, auditLogger, logger).
		WithObserver(metrics)
	articleHandler := articles.NewHandler(logger, articleService, rbacMiddleware)

	summaries := cache.NewJSONCache(redisClient, "rating-summary:", cfg.RatingSummaryTTL)
	interactionService := interactions.NewService(articleRepo, interactions.NewRepository(dbpool), summaries, logger)
	interactionHandler := interactions.NewHandler(logger, interactionService, rbacMiddleware)

	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(dbpool), logger), rbacMiddleware)
	rolesHandler := roles.NewHandler(logger, roles.NewService(rbacRepo, logger), rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		Identity:            identity,
		AuthHandler:         authHandler,
		ArticlesHandler:     articleHandler,
		InteractionsHandler: interactionHandler,
		UsersHandler:        usersHandler,
		RolesHandler:        rolesHandler,
		JobHandler:          jobs.NewHandler(inspector, logger),
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
