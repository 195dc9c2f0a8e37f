package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SecurityWorks/ente/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig is a DTO used exclusively for decoding config files. Pointer
// fields distinguish "absent" from zero so only present keys override.
type fileConfig struct {
	ServerAddr         *string          `json:"server_addr" yaml:"server_addr"`
	AccessToken        *string          `json:"access_token" yaml:"access_token"`
	DataDir            *string          `json:"data_dir" yaml:"data_dir"`
	Concurrency        *int             `json:"concurrency" yaml:"concurrency"`
	URLPoolBatch       *int             `json:"url_pool_batch" yaml:"url_pool_batch"`
	RetryDelays        []timex.Duration `json:"retry_delays" yaml:"retry_delays"`
	MaxFileSize        *int64           `json:"max_file_size" yaml:"max_file_size"`
	UploaderName       *string          `json:"uploader_name" yaml:"uploader_name"`
	TimeZone           *string          `json:"time_zone" yaml:"time_zone"`
	LivePhotoTolerance *timex.Duration  `json:"live_photo_tolerance" yaml:"live_photo_tolerance"`
	LogLevel           *string          `json:"log_level" yaml:"log_level"`
	LogFile            *string          `json:"log_file" yaml:"log_file"`
}

// parseFile overlays cfg with the file at path. Files ending in .yaml or
// .yml are YAML, anything else is JSON.
func parseFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	setIf(&cfg.ServerAddr, fc.ServerAddr)
	setIf(&cfg.AccessToken, fc.AccessToken)
	setIf(&cfg.DataDir, fc.DataDir)
	setIf(&cfg.Concurrency, fc.Concurrency)
	setIf(&cfg.URLPoolBatch, fc.URLPoolBatch)
	setIf(&cfg.MaxFileSize, fc.MaxFileSize)
	setIf(&cfg.UploaderName, fc.UploaderName)
	setIf(&cfg.TimeZone, fc.TimeZone)
	setIf(&cfg.LogLevel, fc.LogLevel)
	setIf(&cfg.LogFile, fc.LogFile)

	if fc.RetryDelays != nil {
		cfg.RetryDelays = make([]time.Duration, len(fc.RetryDelays))
		for i, d := range fc.RetryDelays {
			cfg.RetryDelays[i] = d.Duration
		}
	}
	if fc.LivePhotoTolerance != nil {
		cfg.LivePhotoTolerance = fc.LivePhotoTolerance.Duration
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
