package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/SecurityWorks/ente/internal/common"
)

// Config holds runtime settings of the uploader CLI.
type Config struct {
	// ServerAddr is host:port of the backend gRPC endpoint.
	ServerAddr  string
	AccessToken string
	// DataDir holds the local cache database.
	DataDir string

	Concurrency  int
	URLPoolBatch int
	RetryDelays  []time.Duration
	MaxFileSize  int64

	UploaderName string
	// TimeZone resolves dates without an offset. Empty means the system
	// zone.
	TimeZone           string
	LivePhotoTolerance time.Duration

	LogLevel string
	LogFile  string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "127.0.0.1:50051"
	c.DataDir = "~/.ente"
	c.Concurrency = 4
	c.URLPoolBatch = 50
	c.RetryDelays = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}
	c.MaxFileSize = common.MaxFileSize
	c.LivePhotoTolerance = 24 * time.Hour
	c.LogLevel = "info"
}

// DatabasePath is the sqlite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "ente.db")
}

func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// LoadConfig builds a Config from the defaults and, when path is not
// empty, the config file at path. Flags are applied afterwards by the
// caller (see Flags.Apply).
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path == "" {
		return cfg, nil
	}
	if err := parseFile(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}
