package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/moffittboard/moffittboard/internal/adapters/cache"
	"github.com/moffittboard/moffittboard/internal/adapters/database"
	"github.com/moffittboard/moffittboard/internal/adapters/identityprovider"
	"github.com/moffittboard/moffittboard/internal/adapters/userrepository"
	"github.com/moffittboard/moffittboard/internal/app"
	"github.com/moffittboard/moffittboard/internal/config"
	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/logging"
	"github.com/moffittboard/moffittboard/internal/periodic"
	"github.com/moffittboard/moffittboard/internal/ports"
	"github.com/moffittboard/moffittboard/internal/reporting"
	"github.com/moffittboard/moffittboard/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	_ "golang.org/x/crypto/x509roots/fallback"
)

const serviceName = "moffittboard"

func newUserRepository(ctx context.Context, conf config.Config, logger *slog.Logger) (userrepository.UserRepository, error) {
	if conf.UseInMemoryStorage() {
		logger.Warn("Using in-memory storage, all data is lost on restart")
		return userrepository.NewMemory(), nil
	}

	logger.Info("Initializing database connection")
	db, err := database.NewCloudsqlPostgresDatabase(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("Initialized database connection")

	schemaName := database.GetSchemaName(!conf.IsProduction())

	err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return userrepository.NewPostgres(db, schemaName), nil
}

func newIdentityProvider(conf config.Config, logger *slog.Logger) identityprovider.IdentityProvider {
	if conf.IsDevelopment() && conf.AuthJWTSecret() == "" {
		logger.Warn("No AUTH_JWT_SECRET set, trusting bearer tokens as emails")
		return identityprovider.NewDevelopmentProvider()
	}
	return identityprovider.NewJWTVerifier(conf.AuthJWTSecret(), conf.AuthJWTIssuer(), time.Now)
}

func main() {
	instanceID := uuid.New().String()

	fail := func(logger *slog.Logger, msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	_ = godotenv.Load() // load .env if present

	conf, err := config.ConfigFromEnv()
	if err != nil {
		fail(slog.New(slog.NewJSONHandler(os.Stdout, nil)), "Failed to load config", "error", err.Error())
	}

	logger := slog.New(
		logging.NewTraceLogHandler(slog.NewJSONHandler(os.Stdout, nil), conf.GoogleCloudProject()),
	).With("instanceID", instanceID)
	logger.Info("Loaded config", "config", conf.NonSensitiveString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.AddToContext(ctx, logger)

	if !conf.IsDevelopment() {
		shutdownOTel, err := telemetry.SetupOTelSDK(ctx, serviceName, conf.EnvironmentName())
		if err != nil {
			fail(logger, "Failed to initialize OpenTelemetry", "error", err.Error())
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownOTel(shutdownCtx); err != nil {
				logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
			}
		}()
		logger.Info("Initialized OpenTelemetry")
	}

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(conf)
	if err != nil {
		fail(logger, "Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	userRepo, err := newUserRepository(ctx, conf, logger)
	if err != nil {
		fail(logger, "Failed to initialize UserRepository", "error", err.Error())
	}
	logger.Info("Initialized UserRepository")

	identityProvider := newIdentityProvider(conf, logger)

	allowedOrigins, err := ports.NewDomainSuffixes(conf.AllowedOriginSuffixes()...)
	if err != nil {
		fail(logger, "Failed to initialize allowed origins", "error", err.Error())
	}

	// Short TTL so clients polling the leaderboard share one read of the user table
	usersCache := cache.NewTTLCache[[]domain.User](2 * time.Second)

	getOrCreateUser := app.BuildGetOrCreateUser(userRepo, usersCache, conf.AllowedEmailDomain(), time.Now)
	checkIn := app.BuildCheckIn(userRepo, usersCache, conf.Geofence(), time.Now)
	checkOut := app.BuildCheckOut(userRepo, usersCache, time.Now)
	setDisplayName := app.BuildSetDisplayName(userRepo, usersCache)
	resetLeaderboardIfDue := app.BuildResetLeaderboardIfDue(userRepo, usersCache, conf.ResetPolicy(), time.Now)
	getLeaderboard := app.BuildGetLeaderboard(userRepo, usersCache, resetLeaderboardIfDue, time.Now)
	getUserRank := app.BuildGetUserRank(userRepo, usersCache)

	resetRunner := periodic.Start(ctx, "reset-leaderboard", 1*time.Minute, 30*time.Second, func(ctx context.Context) error {
		_, err := resetLeaderboardIfDue(ctx)
		return err
	})
	defer resetRunner.Stop()

	mux := http.NewServeMux()

	mux.HandleFunc(
		"OPTIONS /v1/me",
		ports.BuildCORSHandler(allowedOrigins),
	)
	mux.HandleFunc(
		"GET /v1/me",
		ports.MakeGetMeHandler(
			getOrCreateUser,
			getUserRank,
			identityProvider,
			allowedOrigins,
			logger.With("port", "me"),
			sentryMiddleware,
		),
	)

	mux.HandleFunc(
		"OPTIONS /v1/me/display-name",
		ports.BuildCORSHandler(allowedOrigins),
	)
	mux.HandleFunc(
		"PUT /v1/me/display-name",
		ports.MakeSetDisplayNameHandler(
			setDisplayName,
			identityProvider,
			allowedOrigins,
			logger.With("port", "setdisplayname"),
			sentryMiddleware,
		),
	)

	mux.HandleFunc(
		"OPTIONS /v1/check-in",
		ports.BuildCORSHandler(allowedOrigins),
	)
	mux.HandleFunc(
		"POST /v1/check-in",
		ports.MakeCheckInHandler(
			checkIn,
			identityProvider,
			allowedOrigins,
			logger.With("port", "checkin"),
			sentryMiddleware,
		),
	)

	mux.HandleFunc(
		"OPTIONS /v1/check-out",
		ports.BuildCORSHandler(allowedOrigins),
	)
	mux.HandleFunc(
		"POST /v1/check-out",
		ports.MakeCheckOutHandler(
			checkOut,
			identityProvider,
			allowedOrigins,
			logger.With("port", "checkout"),
			sentryMiddleware,
		),
	)

	mux.HandleFunc(
		"OPTIONS /v1/leaderboard",
		ports.BuildCORSHandler(allowedOrigins),
	)
	mux.HandleFunc(
		"GET /v1/leaderboard",
		ports.MakeGetLeaderboardHandler(
			getLeaderboard,
			identityProvider,
			allowedOrigins,
			logger.With("port", "leaderboard"),
			sentryMiddleware,
		),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", conf.Port()),
		Handler:           otelhttp.NewHandler(mux, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()
	logger.Info("Init complete", "port", conf.Port())

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err.Error())
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down server", "error", err.Error())
		}
	}

	logger.Info("Server shutdown")
}
