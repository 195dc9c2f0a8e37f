// Package server wires and runs the reference backend: the gRPC file
// service, the object HTTP endpoints, and the chosen object store.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/SecurityWorks/ente/internal/logging"
	"github.com/SecurityWorks/ente/internal/server/config"
	"github.com/SecurityWorks/ente/internal/server/httpapi"
	"github.com/SecurityWorks/ente/internal/server/repositories/repomanager"
	"github.com/SecurityWorks/ente/internal/server/services"
	"github.com/SecurityWorks/ente/internal/server/storage"
	"golang.org/x/sync/errgroup"

	gs "github.com/SecurityWorks/ente/internal/server/grpc"
)

// purgeInterval is how often stale local multipart uploads are removed.
const purgeInterval = time.Hour

var openDB = repomanager.Open

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	grpc   *gs.GRPCServer
	http   *httpapi.Server
	local  *storage.LocalStore
}

// NewApp connects to the database, migrates it and builds both servers.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{Level: c.LogLevel, JSON: true, Output: os.Stdout, SentryDSN: c.SentryDSN})
	if err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{config: c, logger: logger, db: db}

	signer := storage.NewSigner(c.PublicURL, []byte(c.SecretKey), c.URLValidity)
	store, err := app.newStore(ctx, signer)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object store init: %w", err)
	}

	fs := services.NewFileService(db, rm, store, signer, c.QuotaBytes, logger)
	app.grpc = gs.NewGRPCServer(c.GRPCAddr, logger, fs, c.SecretKey)
	app.http = httpapi.NewServer(c.HTTPAddr, httpapi.NewHandler(signer, store, logger), logger)
	return app, nil
}

func (app *App) newStore(ctx context.Context, signer *storage.Signer) (storage.ObjectStore, error) {
	c := app.config
	switch c.Storage {
	case config.StorageLocal:
		local, err := storage.NewLocalStore(c.LocalDir, signer, app.logger)
		if err != nil {
			return nil, err
		}
		app.local = local
		return local, nil
	case config.StorageS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			Region:      c.S3Region,
			Bucket:      c.S3Bucket,
			AccessKey:   c.S3AccessKey,
			SecretKey:   c.S3SecretKey,
			Endpoint:    c.S3BaseEndpoint,
			URLValidity: c.URLValidity,
		}, app.logger)
	default:
		return nil, fmt.Errorf("unknown storage %q", c.Storage)
	}
}

// Run serves until ctx is done or one of the servers fails.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.grpc.Run(ctx) })
	g.Go(func() error { return app.http.Run(ctx) })
	if app.local != nil {
		g.Go(func() error {
			app.purgeUploads(ctx)
			return nil
		})
	}

	err := g.Wait()
	if cerr := app.db.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close db: %w", cerr))
	}
	app.logger.Info(context.Background(), "App stopped")
	return err
}

// purgeUploads drops local multipart uploads whose part URLs have expired.
func (app *App) purgeUploads(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := app.local.PurgeUploads(ctx, now.Add(-2*app.config.URLValidity))
			if err != nil {
				app.logger.Warn(ctx, "purge uploads failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "purged stale uploads", "count", n)
			}
		}
	}
}
