package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/SecurityWorks/ente/internal/flagx"
	"github.com/SecurityWorks/ente/internal/timex"
)

// JSONConfig is the on-disk form of Config. Absent keys keep the value
// loaded before, which is why every field is a pointer.
type JSONConfig struct {
	GRPCAddr            *string         `json:"grpc_addr"`
	HTTPAddr            *string         `json:"http_addr"`
	PublicURL           *string         `json:"public_url"`
	DatabaseDSN         *string         `json:"database_dsn"`
	SecretKey           *string         `json:"secret_key"`
	AccessTokenValidity *timex.Duration `json:"access_token_validity"`
	URLValidity         *timex.Duration `json:"url_validity"`
	Storage             *string         `json:"storage"`
	LocalDir            *string         `json:"local_dir"`
	S3AccessKey         *string         `json:"s3_access_key"`
	S3SecretKey         *string         `json:"s3_secret_key"`
	S3Bucket            *string         `json:"s3_bucket"`
	S3Region            *string         `json:"s3_region"`
	S3BaseEndpoint      *string         `json:"s3_base_endpoint"`
	QuotaBytes          *int64          `json:"quota_bytes"`
	LogLevel            *string         `json:"log_level"`
	SentryDSN           *string         `json:"sentry_dsn"`
}

// parseJSON overlays the file named by -c/-config, if any.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var c JSONConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set(&cfg.GRPCAddr, c.GRPCAddr)
	set(&cfg.HTTPAddr, c.HTTPAddr)
	set(&cfg.PublicURL, c.PublicURL)
	set(&cfg.DatabaseDSN, c.DatabaseDSN)
	set(&cfg.SecretKey, c.SecretKey)
	if c.AccessTokenValidity != nil {
		cfg.AccessTokenValidity = c.AccessTokenValidity.Duration
	}
	if c.URLValidity != nil {
		cfg.URLValidity = c.URLValidity.Duration
	}
	set(&cfg.Storage, c.Storage)
	set(&cfg.LocalDir, c.LocalDir)
	set(&cfg.S3AccessKey, c.S3AccessKey)
	set(&cfg.S3SecretKey, c.S3SecretKey)
	set(&cfg.S3Bucket, c.S3Bucket)
	set(&cfg.S3Region, c.S3Region)
	set(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	set(&cfg.QuotaBytes, c.QuotaBytes)
	set(&cfg.LogLevel, c.LogLevel)
	set(&cfg.SentryDSN, c.SentryDSN)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
