package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/moffittboard/moffittboard/internal/adapters/cache"
	"github.com/moffittboard/moffittboard/internal/adapters/database"
	"github.com/moffittboard/moffittboard/internal/adapters/userrepository"
	"github.com/moffittboard/moffittboard/internal/app"
	"github.com/moffittboard/moffittboard/internal/config"
	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/logging"
)

type options struct {
	force   bool
	timeout time.Duration
}

var errUsage = errors.New("usage")

func parseOptions(args []string, output io.Writer) (options, error) {
	opts := options{}

	fs := flag.NewFlagSet("reset-leaderboard", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.BoolVar(&opts.force, "force", false, "reset even if a reset already happened since the last boundary")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "give up after this long")

	if err := fs.Parse(args); err != nil {
		return options{}, fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	if opts.timeout <= 0 {
		return options{}, fmt.Errorf("%w: timeout must be positive", errUsage)
	}

	return opts, nil
}

func run(ctx context.Context, opts options, conf config.Config, logger *slog.Logger) error {
	if conf.UseInMemoryStorage() {
		return fmt.Errorf("in-memory storage has nothing to reset")
	}

	db, err := database.NewCloudsqlPostgresDatabase(conf)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	schemaName := database.GetSchemaName(!conf.IsProduction())
	err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, schemaName)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	userRepo := userrepository.NewPostgres(db, schemaName)
	// Nothing reads through the cache, the use cases only invalidate it
	usersCache := cache.NewBasicCache[[]domain.User]()

	if opts.force {
		return app.BuildResetLeaderboard(userRepo, usersCache, time.Now)(ctx)
	}

	reset, err := app.BuildResetLeaderboardIfDue(userRepo, usersCache, conf.ResetPolicy(), time.Now)(ctx)
	if err != nil {
		return err
	}
	if !reset {
		logger.InfoContext(ctx, "Reset not due", "boundary", conf.ResetPolicy().MostRecentBoundary(time.Now()))
	}
	return nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("command", "reset-leaderboard")

	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		logger.Error("Invalid arguments", "error", err.Error())
		os.Exit(2)
	}

	_ = godotenv.Load() // load .env if present

	conf, err := config.ConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load config", "error", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()
	ctx = logging.AddToContext(ctx, logger)

	if err := run(ctx, opts, conf, logger); err != nil {
		logger.Error("Failed to reset leaderboard", "error", err.Error())
		cancel()
		os.Exit(1)
	}

	logger.Info("Done", "force", opts.force)
}
