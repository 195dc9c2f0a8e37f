package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFile is loaded, when present, before the environment is read. Variables
// already set in the process win over the file.
var envFile = ".env"

func parseEnv(cfg *Config) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	envString("ENTE_GRPC_ADDR", &cfg.GRPCAddr)
	envString("ENTE_HTTP_ADDR", &cfg.HTTPAddr)
	envString("ENTE_PUBLIC_URL", &cfg.PublicURL)
	envString("ENTE_DATABASE_DSN", &cfg.DatabaseDSN)
	envString("ENTE_SECRET_KEY", &cfg.SecretKey)
	envString("ENTE_STORAGE", &cfg.Storage)
	envString("ENTE_LOCAL_DIR", &cfg.LocalDir)
	envString("S3_ACCESS_KEY", &cfg.S3AccessKey)
	envString("S3_SECRET_KEY", &cfg.S3SecretKey)
	envString("S3_BUCKET", &cfg.S3Bucket)
	envString("S3_REGION", &cfg.S3Region)
	envString("S3_ENDPOINT", &cfg.S3BaseEndpoint)
	envString("LOG_LEVEL", &cfg.LogLevel)
	envString("SENTRY_DSN", &cfg.SentryDSN)

	return errors.Join(
		envDuration("ENTE_ACCESS_TOKEN_VALIDITY", &cfg.AccessTokenValidity),
		envDuration("ENTE_URL_VALIDITY", &cfg.URLValidity),
		envInt64("ENTE_QUOTA_BYTES", &cfg.QuotaBytes),
	)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func envInt64(key string, dst *int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
