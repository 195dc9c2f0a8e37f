package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/SecurityWorks/ente/internal/client/config"
	"github.com/SecurityWorks/ente/internal/filex"
	"github.com/SecurityWorks/ente/internal/logging"
	"github.com/spf13/cobra"
)

// Opener builds the App once configuration is final.
type Opener func(ctx context.Context, cfg *config.Config, log logging.Logger, out, errOut io.Writer) (*App, error)

type root struct {
	cfgPath string
	flags   *config.Flags
	open    Opener
	logFile *os.File
	app     *App
}

// NewRootCommand assembles the command tree. open is usually NewApp.
func NewRootCommand(open Opener) *cobra.Command {
	r := &root{open: open}

	cmd := &cobra.Command{
		Use:   "ente",
		Short: "End-to-end encrypted photo uploader",
		Long: "ente encrypts photos and videos on this machine and uploads them\n" +
			"to the backend. Keys never leave the device unencrypted.",
		SilenceUsage:       true,
		PersistentPreRunE:  r.initialize,
		PersistentPostRunE: r.shutdown,
	}

	cmd.PersistentFlags().StringVarP(&r.cfgPath, "config", "c", "", "path to a JSON or YAML config file")
	r.flags = config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		r.uploadCmd(),
		r.syncCmd(),
		r.listCmd(),
		r.visibilityCmd(),
		r.captionCmd(),
		r.renameCmd(),
		r.dateCmd(),
		r.exportKeyCmd(),
		r.statusCmd(),
		r.forgetCmd(),
	)
	return cmd
}

// Execute runs the CLI against the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(NewApp).ExecuteContext(ctx)
}

func (r *root) initialize(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(r.cfgPath)
	if err != nil {
		return err
	}
	r.flags.Apply(cfg)

	if cfg.DataDir, err = filex.EnsureDir(cfg.DataDir); err != nil {
		return fmt.Errorf("data directory: %w", err)
	}

	opts := logging.Options{Level: cfg.LogLevel, Output: cmd.ErrOrStderr()}
	if cfg.LogFile != "" {
		path, err := filex.ExpandHome(cfg.LogFile)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		r.logFile = f
		opts.File = f
	}
	log, err := logging.New(opts)
	if err != nil {
		return err
	}

	r.app, err = r.open(cmd.Context(), cfg, log.With("app", "ente"), cmd.OutOrStdout(), cmd.ErrOrStderr())
	return err
}

func (r *root) shutdown(cmd *cobra.Command, _ []string) error {
	var err error
	if r.app != nil {
		err = r.app.Close(cmd.Context())
	}
	if r.logFile != nil {
		_ = r.logFile.Close()
	}
	return err
}
