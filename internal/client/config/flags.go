package config

import (
	"github.com/spf13/pflag"
)

// Flags binds command-line overrides to a flag set. Apply copies only the
// flags the user actually set, so the precedence is defaults, then file,
// then flags.
type Flags struct {
	fs *pflag.FlagSet
	v  Config
}

func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	f.v.LoadDefaults()

	fs.StringVarP(&f.v.ServerAddr, "server", "a", f.v.ServerAddr, "address and port of the backend server")
	fs.StringVar(&f.v.AccessToken, "token", "", "access token")
	fs.StringVar(&f.v.DataDir, "data-dir", f.v.DataDir, "directory of the local cache")
	fs.IntVarP(&f.v.Concurrency, "concurrency", "j", f.v.Concurrency, "parallel uploads")
	fs.Int64Var(&f.v.MaxFileSize, "max-file-size", f.v.MaxFileSize, "largest accepted asset in bytes")
	fs.StringVar(&f.v.UploaderName, "uploader-name", "", "name recorded on uploaded files")
	fs.StringVar(&f.v.TimeZone, "tz", "", "time zone for dates without an offset")
	fs.StringVar(&f.v.LogLevel, "log-level", f.v.LogLevel, "debug, info, warn or error")
	return f
}

func (f *Flags) Apply(cfg *Config) {
	if f.fs.Changed("server") {
		cfg.ServerAddr = f.v.ServerAddr
	}
	if f.fs.Changed("token") {
		cfg.AccessToken = f.v.AccessToken
	}
	if f.fs.Changed("data-dir") {
		cfg.DataDir = f.v.DataDir
	}
	if f.fs.Changed("concurrency") {
		cfg.Concurrency = f.v.Concurrency
	}
	if f.fs.Changed("max-file-size") {
		cfg.MaxFileSize = f.v.MaxFileSize
	}
	if f.fs.Changed("uploader-name") {
		cfg.UploaderName = f.v.UploaderName
	}
	if f.fs.Changed("tz") {
		cfg.TimeZone = f.v.TimeZone
	}
	if f.fs.Changed("log-level") {
		cfg.LogLevel = f.v.LogLevel
	}
}
