// Package config loads the build configuration from stylepipe.yaml, an
// optional .env file and STYLEPIPE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gnana997/stylepipe/pkg/codegen"
	"github.com/gnana997/stylepipe/pkg/pipeline"
	"github.com/gnana997/stylepipe/pkg/stage"
	"github.com/gnana997/stylepipe/pkg/util"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "stylepipe.yaml"

// Environment overrides. Process environment wins over .env entries.
const (
	EnvInput     = "STYLEPIPE_INPUT"
	EnvOutput    = "STYLEPIPE_OUTPUT"
	EnvTheme     = "STYLEPIPE_THEME"
	EnvLogLevel  = "STYLEPIPE_LOG_LEVEL"
	EnvLogFormat = "STYLEPIPE_LOG_FORMAT"
)

// Default paths, relative to the working directory.
const (
	DefaultInput  = "./global.css"
	DefaultOutput = "public/application.css"
)

// Config is the complete build configuration. It is built once, validated,
// and not modified afterwards.
type Config struct {
	// Input is the hand-authored stylesheet.
	Input string `yaml:"input"`
	// Output is where the compiled stylesheet is written.
	Output string `yaml:"output"`
	// Theme is the theme config file. Empty means discover
	// tailwind.config.* or theme.yaml in the working directory.
	Theme string `yaml:"theme"`
	// Stages lists the stages to run, a subsequence of the canonical order.
	Stages []string `yaml:"stages"`

	Codegen codegen.Options `yaml:"codegen"`
	Imports ImportsConfig   `yaml:"imports"`
	Logging LoggingConfig   `yaml:"logging"`

	// MetricsFile, when set, receives Prometheus text-format metrics after
	// each build.
	MetricsFile string `yaml:"metrics_file"`
	// MCPLog, when set, receives one JSON line per inspection tool call.
	MCPLog string `yaml:"mcp_log"`
}

// ImportsConfig tunes the imports stage.
type ImportsConfig struct {
	// CacheSize bounds the number of memory-mapped files kept open.
	CacheSize int `yaml:"cache_size"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Input:   DefaultInput,
		Output:  DefaultOutput,
		Stages:  stage.CanonicalOrder(),
		Codegen: codegen.DefaultOptions(),
		Imports: ImportsConfig{CacheSize: util.DefaultMaxCachedFiles},
		Logging: LoggingConfig{Level: string(util.LevelInfo), Format: string(util.FormatText)},
	}
}

// LoadOptions configures Load.
type LoadOptions struct {
	// Required makes a missing config file an error. Set when the path was
	// given explicitly.
	Required bool
	// EnvFiles are dotenv files read for overrides. Missing files are
	// skipped. Defaults to [".env"].
	EnvFiles []string
	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load reads path over the defaults and applies environment overrides.
// The result is not validated; call Validate.
func Load(path string, opts LoadOptions) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !opts.Required:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	lookup, err := envLookup(opts)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv(lookup)
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func envLookup(opts LoadOptions) (func(string) (string, bool), error) {
	files := opts.EnvFiles
	if files == nil {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			existing = append(existing, f)
		}
	}

	dotenv := map[string]string{}
	if len(existing) > 0 {
		var err error
		dotenv, err = godotenv.Read(existing...)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", strings.Join(existing, ", "), err)
		}
	}

	process := opts.LookupEnv
	if process == nil {
		process = os.LookupEnv
	}
	return func(key string) (string, bool) {
		if v, ok := process(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvInput); ok {
		c.Input = v
	}
	if v, ok := lookup(EnvOutput); ok {
		c.Output = v
	}
	if v, ok := lookup(EnvTheme); ok {
		c.Theme = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		c.Logging.Format = v
	}
}

// Validate checks the configuration for internal consistency. It does not
// touch the filesystem.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Input) == "" {
		errs = append(errs, errors.New("input is required"))
	}
	if strings.TrimSpace(c.Output) == "" {
		errs = append(errs, errors.New("output is required"))
	}
	if c.Input != "" && c.Input == c.Output {
		errs = append(errs, errors.New("output must differ from input"))
	}
	if err := pipeline.ValidateOrder(c.Stages); err != nil {
		errs = append(errs, fmt.Errorf("stages: %w", err))
	}
	if c.HasStage(stage.NameCodegen) {
		if err := c.Codegen.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("codegen: %w", err))
		}
	}
	if c.Imports.CacheSize < 0 {
		errs = append(errs, errors.New("imports.cache_size must not be negative"))
	}

	switch util.LogLevel(strings.ToLower(c.Logging.Level)) {
	case util.LevelDebug, util.LevelInfo, util.LevelWarn, util.LevelError:
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch util.LogFormat(strings.ToLower(c.Logging.Format)) {
	case util.FormatText, util.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// HasStage reports whether name is configured to run.
func (c *Config) HasStage(name string) bool {
	return slices.Contains(c.Stages, name)
}

// LoggerConfig converts the logging section for util.NewLogger. Empty
// fields and a nil out keep util.DefaultLoggerConfig values.
func (c *Config) LoggerConfig(out io.Writer) util.LoggerConfig {
	lc := util.DefaultLoggerConfig()
	if c.Logging.Level != "" {
		lc.Level = util.LogLevel(strings.ToLower(c.Logging.Level))
	}
	if c.Logging.Format != "" {
		lc.Format = util.LogFormat(strings.ToLower(c.Logging.Format))
	}
	if out != nil {
		lc.Output = out
	}
	return lc
}
