package cli

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"

	"github.com/SecurityWorks/ente/internal/client/client"
	"github.com/SecurityWorks/ente/internal/client/config"
	"github.com/SecurityWorks/ente/internal/client/extract"
	"github.com/SecurityWorks/ente/internal/client/livephoto"
	"github.com/SecurityWorks/ente/internal/client/magic"
	"github.com/SecurityWorks/ente/internal/client/repositories/files"
	"github.com/SecurityWorks/ente/internal/client/services"
	"github.com/SecurityWorks/ente/internal/client/transport"
	"github.com/SecurityWorks/ente/internal/client/upload"
	"github.com/SecurityWorks/ente/internal/common"
	"github.com/SecurityWorks/ente/internal/cryptox"
	"github.com/SecurityWorks/ente/internal/logging"
)

// PassphraseEnv lets scripts supply the passphrase without a terminal.
const PassphraseEnv = "ENTE_PASSPHRASE"

// BatchUploader runs a batch of upload jobs. *upload.Manager implements it.
type BatchUploader interface {
	Run(ctx context.Context, jobs []upload.Job, onProgress upload.BatchProgressFunc) []upload.Result
}

// App is the state shared by all commands of one invocation.
type App struct {
	cfg *config.Config
	log logging.Logger
	out io.Writer
	// prompts go to errOut so that out stays machine readable.
	errOut io.Writer

	db   *sql.DB
	api  client.Client
	auth services.AuthService

	// set by unlock
	keys        *cryptox.KeyRing
	files       services.FileService
	sync        services.SyncService
	newUploader func(sidecars *extract.SidecarIndex) BatchUploader
}

// NewApp opens the local cache and the backend connection described by cfg.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger, out, errOut io.Writer) (*App, error) {
	db, err := client.InitDatabase(ctx, cfg.DatabasePath())
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	api, err := client.NewGRPCClient(cfg.ServerAddr, cfg.AccessToken)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		cfg:    cfg,
		log:    log,
		out:    out,
		errOut: errOut,
		db:     db,
		api:    api,
		auth:   services.NewAuthService(api, db),
	}, nil
}

// Close releases the backend connection and the cache.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.auth != nil {
		errs = append(errs, a.auth.Close(ctx))
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func (a *App) passphrase() ([]byte, error) {
	if v, ok := os.LookupEnv(PassphraseEnv); ok {
		return []byte(v), nil
	}
	return GetPassword(a.errOut, "Passphrase: ")
}

// unlock derives the key ring and wires the services that need it. It is a
// no-op once the ring is present.
func (a *App) unlock(ctx context.Context) error {
	if a.keys != nil {
		return nil
	}

	pw, err := a.passphrase()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	keys, err := a.auth.Unlock(ctx, pw)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return errors.New("wrong passphrase")
		}
		return err
	}
	return a.wire(keys)
}

func (a *App) wire(keys *cryptox.KeyRing) error {
	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}

	repo := files.NewSQLiteRepository(a.db)
	store := magic.NewStore(a.api, repo, a.log)

	a.keys = keys
	a.files = services.NewFileService(a.db, store, keys)
	a.sync = services.NewSyncService(a.api, a.db, store, keys, a.log)

	policy := livephoto.DefaultPolicy()
	policy.Tolerance = a.cfg.LivePhotoTolerance

	a.newUploader = func(sidecars *extract.SidecarIndex) BatchUploader {
		retrier := transport.NewRetrier(a.cfg.RetryDelays, a.log)
		pool := transport.NewURLPool(a.api, a.cfg.URLPoolBatch)
		uploader := transport.NewUploader(pool, a.api, retrier, a.log)

		p := upload.NewPipeline(a.api, uploader, retrier, repo, keys, a.log,
			upload.WithSidecars(sidecars),
			upload.WithMaxFileSize(a.cfg.MaxFileSize),
			upload.WithUploaderName(a.cfg.UploaderName),
			upload.WithLocation(loc),
		)
		return upload.NewManager(p, a.cfg.Concurrency, policy, a.log)
	}
	return nil
}
