package config

import (
	"flag"
	"io"

	"github.com/SecurityWorks/ente/internal/flagx"
)

// ownFlags are the short flags parsed here.
//
//	-a string     gRPC bind address
//	-l string     HTTP bind address
//	-u string     public base URL of the HTTP listener
//	-d string     PostgreSQL DSN
//	-s string     token and URL signing secret
//	-t duration   access token validity
//	-x duration   upload URL validity
//	-o string     storage kind, s3 or local
//	-f string     local storage directory
//	-b string     S3 bucket
//	-g string     S3 region
//	-e string     S3 base endpoint
//	-q int        per-user quota in bytes
var ownFlags = []string{"a", "l", "u", "d", "s", "t", "x", "o", "f", "b", "g", "e", "q"}

func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.GRPCAddr, "a", cfg.GRPCAddr, "gRPC bind address")
	fs.StringVar(&cfg.HTTPAddr, "l", cfg.HTTPAddr, "HTTP bind address")
	fs.StringVar(&cfg.PublicURL, "u", cfg.PublicURL, "public base URL of the HTTP listener")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	fs.DurationVar(&cfg.AccessTokenValidity, "t", cfg.AccessTokenValidity, "access token validity")
	fs.DurationVar(&cfg.URLValidity, "x", cfg.URLValidity, "upload URL validity")
	fs.StringVar(&cfg.Storage, "o", cfg.Storage, "storage kind: s3 or local")
	fs.StringVar(&cfg.LocalDir, "f", cfg.LocalDir, "local storage directory")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.Int64Var(&cfg.QuotaBytes, "q", cfg.QuotaBytes, "per-user quota in bytes, 0 disables")

	return fs.Parse(flagx.FilterArgs(args, flagx.Names(ownFlags...)))
}
