// Command server runs the reference backend for the ente uploader.
//
// Besides the usual configuration flags it accepts -mint-token <user-id>,
// which prints an access token for that user and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/SecurityWorks/ente/internal/flagx"
	"github.com/SecurityWorks/ente/internal/server"
	"github.com/SecurityWorks/ente/internal/server/auth"
	"github.com/SecurityWorks/ente/internal/server/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Printf("%v", err)
		stop()
		os.Exit(1)
	}
}

// mintTokenFor returns the user id given with -mint-token, or "".
func mintTokenFor(args []string) string {
	var userID string
	fs := flag.NewFlagSet("mint", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&userID, "mint-token", "", "print an access token for this user id and exit")
	_ = fs.Parse(flagx.FilterArgs(args, flagx.Names("mint-token")))
	return userID
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}

	if userID := mintTokenFor(args); userID != "" {
		tok, err := auth.GenerateToken(userID, []byte(cfg.SecretKey), cfg.AccessTokenValidity)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, tok)
		return err
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
