// Package driver runs one complete build: it reads the input stylesheet,
// loads the theme, runs the configured stages and publishes the compiled
// stylesheet together with the generated bindings, or nothing at all.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gnana997/stylepipe/pkg/codegen"
	"github.com/gnana997/stylepipe/pkg/config"
	"github.com/gnana997/stylepipe/pkg/metrics"
	"github.com/gnana997/stylepipe/pkg/parser"
	"github.com/gnana997/stylepipe/pkg/pipeline"
	"github.com/gnana997/stylepipe/pkg/stage"
	"github.com/gnana997/stylepipe/pkg/stages/imports"
	"github.com/gnana997/stylepipe/pkg/stages/prefix"
	"github.com/gnana997/stylepipe/pkg/stages/tokens"
	"github.com/gnana997/stylepipe/pkg/theme"
	"github.com/gnana997/stylepipe/pkg/util"
)

// Exit codes returned by ExitCode.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
)

// Options carries the collaborators of a run. The zero value is usable.
type Options struct {
	// Logger receives run logs. Defaults to slog.Default().
	Logger *slog.Logger
	// Recorder receives stage and run metrics. When nil and the config names a
	// metrics file, a fresh Prometheus recorder is created for the run.
	Recorder *metrics.PrometheusRecorder
	// Dir is searched for a theme file when the config names none.
	// Defaults to the working directory.
	Dir string
	// Parsers is reused for script theme files when set.
	Parsers *parser.ParserManager
}

// Execute performs one build described by cfg. cfg must have been validated.
// The returned error is nil or a *pipeline.Error.
func Execute(ctx context.Context, cfg *config.Config, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	logger = logger.With("run", runID)

	recorder := opts.Recorder
	if recorder == nil && cfg.MetricsFile != "" {
		recorder = metrics.NewPrometheusRecorder(nil)
	}

	start := time.Now()
	reports, err := execute(ctx, cfg, opts, logger, recorder)

	outcome := metrics.ResultSuccess
	if err != nil {
		outcome = metrics.ResultFailed
	}
	if recorder != nil {
		recorder.ObserveRun(time.Since(start), outcome)
		if cfg.MetricsFile != "" {
			if merr := recorder.WriteTextfile(cfg.MetricsFile); merr != nil {
				logger.Warn("failed to write metrics", "file", cfg.MetricsFile, "error", merr)
			}
		}
	}

	if err != nil {
		logger.Error("build failed",
			"stage", pipeline.StageOf(err),
			"kind", pipeline.KindOf(err),
			"error", err)
		return err
	}
	for _, r := range reports {
		logger.Debug("stage report", "stage", r.Name, "ms", r.Duration.Milliseconds(), "usage", r.Emitted)
	}
	logger.Info("build complete",
		"output", cfg.Output,
		"stages", stageTimings(reports),
		"ms", time.Since(start).Milliseconds())
	return nil
}

// stageTimings renders reports as "imports=3ms tokens=1ms".
func stageTimings(reports []pipeline.StageReport) string {
	parts := make([]string, 0, len(reports))
	for _, r := range reports {
		parts = append(parts, fmt.Sprintf("%s=%dms", r.Name, r.Duration.Milliseconds()))
	}
	return strings.Join(parts, " ")
}

func execute(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger, recorder *metrics.PrometheusRecorder) ([]pipeline.StageReport, error) {
	src, err := readInput(cfg.Input)
	if err != nil {
		return nil, err
	}

	th, err := LoadTheme(cfg, ThemeOptions{Dir: opts.Dir, Parsers: opts.Parsers, Logger: logger})
	if err != nil {
		return nil, pipeline.ConfigError(err)
	}

	outDir := filepath.Dir(cfg.Output)
	if _, err := util.MissingDirs(outDir); err != nil {
		return nil, pipeline.ConfigErrorf("output directory %s: %w", outDir, err)
	}

	stages, cleanup, err := BuildStages(cfg, th, logger)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if recorder != nil {
		rec = recorder
	}
	res := pipeline.NewOrchestrator(logger, rec).Run(ctx, src, stages)
	if !res.OK() {
		return nil, res.Err
	}

	if err := publish(res, cfg.Output, logger); err != nil {
		return nil, err
	}

	if recorder != nil && cfg.HasStage(stage.NameCodegen) {
		for _, cat := range th.Categories() {
			recorder.SetGeneratedTokens(cat, len(th.Category(cat)))
		}
	}
	return res.Stages, nil
}

func readInput(path string) (stage.Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return stage.Source{}, pipeline.ConfigErrorf("input %s: %w", path, err)
	}
	if info.IsDir() {
		return stage.Source{}, pipeline.ConfigErrorf("input %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return stage.Source{}, pipeline.ConfigErrorf("input %s: %w", path, err)
	}
	return stage.Source{Text: string(data), Origin: path}, nil
}

// ThemeOptions configures LoadTheme.
type ThemeOptions struct {
	Dir     string
	Parsers *parser.ParserManager
	Logger  *slog.Logger
}

// LoadTheme loads cfg.Theme, or the first theme file discovered in
// opts.Dir when cfg.Theme is empty.
func LoadTheme(cfg *config.Config, opts ThemeOptions) (*theme.Config, error) {
	path := cfg.Theme
	if path == "" {
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		found, err := theme.Discover(dir)
		if err != nil {
			return nil, err
		}
		path = found
	}
	return theme.Load(path, theme.LoadOptions{Parsers: opts.Parsers, Logger: opts.Logger})
}

// BuildStages instantiates the configured stages in order. The returned
// cleanup releases resources held by the stages.
func BuildStages(cfg *config.Config, th *theme.Config, logger *slog.Logger) ([]stage.Stage, func(), error) {
	var (
		out      []stage.Stage
		closers  []func() error
		teardown = func() {
			for _, c := range closers {
				if err := c(); err != nil {
					logger.Debug("cleanup failed", "error", err)
				}
			}
		}
	)

	for _, name := range cfg.Stages {
		switch name {
		case stage.NameImports:
			cache, err := util.NewFileCache(&util.FileCacheConfig{MaxFiles: cfg.Imports.CacheSize, Logger: logger})
			if err != nil {
				teardown()
				return nil, func() {}, pipeline.ConfigErrorf("file cache: %w", err)
			}
			closers = append(closers, cache.Close)
			out = append(out, imports.New(imports.Options{Cache: cache, Logger: logger}))
		case stage.NameTokens:
			out = append(out, tokens.New(th, logger))
		case stage.NamePrefix:
			out = append(out, prefix.New(logger))
		case stage.NameCodegen:
			out = append(out, codegen.NewStage(th, cfg.Codegen, logger))
		default:
			teardown()
			return nil, func() {}, pipeline.ConfigErrorf("unknown stage %q", name)
		}
	}
	return out, teardown, nil
}

// publish creates the output directory, writes the stylesheet beside its
// destination, commits the staged completions and renames the stylesheet
// into place. Any failure discards whatever is still pending.
func publish(res *pipeline.Result, output string, logger *slog.Logger) error {
	logger.Info("Saving remaining global css to " + output)

	outDir := filepath.Dir(output)
	created, err := util.MissingDirs(outDir)
	if err == nil {
		err = os.MkdirAll(outDir, 0o755)
	}
	var tmp string
	if err == nil {
		tmp, err = writeTemp(output, res.Source.Text)
	}
	if err != nil {
		util.RemoveEmptyDirs(created)
		if derr := res.Discard(); derr != nil {
			logger.Warn("failed to discard staged output", "error", derr)
		}
		return pipeline.WriteError("", err)
	}

	if err := res.Commit(); err != nil {
		os.Remove(tmp)
		util.RemoveEmptyDirs(created)
		return err
	}

	if err := os.Rename(tmp, output); err != nil {
		os.Remove(tmp)
		return pipeline.WriteError("", fmt.Errorf("replace %s: %w", output, err))
	}
	return nil
}

func writeTemp(output, text string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".tmp-")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", output, err)
	}
	name := f.Name()
	_, werr := f.WriteString(text)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}
	return name, nil
}

// ExitCode maps an Execute error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case pipeline.IsKind(err, pipeline.KindConfiguration):
		return ExitConfiguration
	default:
		return ExitFailure
	}
}
