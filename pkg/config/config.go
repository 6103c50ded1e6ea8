// Package config loads polyslice runtime settings from flags, the
// environment (POLYSLICE_*) and an optional config file.
package config

import (
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chazu/polyslice/pkg/engine"
)

// EnvPrefix is prepended to every key when read from the environment.
const EnvPrefix = "POLYSLICE"

// Keys understood by Load.
const (
	KeyConfig      = "config"
	KeyDebug       = "debug"
	KeyLogLevel    = "log_level"
	KeyEvalTimeout = "eval_timeout"
	KeySTL         = "stl"
	KeyGC          = "gc"
)

// Config is the resolved runtime configuration.
type Config struct {
	Debug       bool          // arena structural self-checks
	LogLevel    zapcore.Level // minimum level written by Logger
	EvalTimeout time.Duration // hard limit on script evaluation
	STL         string        // output path, empty to skip export
	GC          bool          // collect garbage after the script
}

// New returns a viper instance with the polyslice defaults and environment
// binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyEvalTimeout, engine.DefaultEvalTimeout)
	v.SetDefault(KeySTL, "")
	v.SetDefault(KeyGC, false)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// RegisterFlags adds the polyslice flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyConfig, "",
		"Configuration file. Takes precedence over default values, but is "+
			"overridden by environment variables and flags.")
	fs.Bool(KeyDebug, false, "Run structural self-checks during every cut.")
	fs.String(KeyLogLevel, "info", "Log level, one of [debug, info, warn, error].")
	fs.Duration(KeyEvalTimeout, engine.DefaultEvalTimeout, "Maximum time a script may run.")
	fs.String(KeySTL, "", "Write the tessellated pieces of a 3-D script to this STL file.")
	fs.Bool(KeyGC, false, "Collect unreachable shapes after the script has run.")
}

// Load resolves the configuration held by v, reading the config file first
// if one was named.
func Load(v *viper.Viper) (Config, error) {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "reading config %s", path)
		}
	}

	level, err := zapcore.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return Config{}, errors.Wrap(err, KeyLogLevel)
	}
	timeout := v.GetDuration(KeyEvalTimeout)
	if timeout <= 0 {
		return Config{}, errors.Errorf("%s must be positive, got %q", KeyEvalTimeout, v.GetString(KeyEvalTimeout))
	}

	return Config{
		Debug:       v.GetBool(KeyDebug),
		LogLevel:    level,
		EvalTimeout: timeout,
		STL:         v.GetString(KeySTL),
		GC:          v.GetBool(KeyGC),
	}, nil
}

// Logger builds a console logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *zap.Logger {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w), c.LogLevel)
	return zap.New(core)
}

// EngineOptions returns the engine options matching c. Without Debug the
// arena keeps its build default for self-checks.
func (c Config) EngineOptions(log *zap.Logger) []engine.Option {
	opts := []engine.Option{
		engine.WithTimeout(c.EvalTimeout),
		engine.WithLogger(log),
	}
	if c.Debug {
		opts = append(opts, engine.WithDebugChecks(true))
	}
	return opts
}
