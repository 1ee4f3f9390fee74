package codegen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gnana997/stylepipe/pkg/stage"
	"github.com/gnana997/stylepipe/pkg/theme"
	"github.com/gnana997/stylepipe/pkg/util"
)

// LogPrefix tags every log line written by the codegen stage.
const LogPrefix = "[stylepipe-codegen]"

// Stage is the terminal pipeline stage. It passes the stylesheet through
// unchanged, generates bindings for the theme and the usage gathered by
// earlier stages, and starts writing them into a staging directory. The
// returned Completion publishes them into Options.PackageDir on Commit.
type Stage struct {
	theme  *theme.Config
	opts   Options
	logger *slog.Logger
}

// NewStage creates the codegen stage.
func NewStage(cfg *theme.Config, opts Options, logger *slog.Logger) *Stage {
	return &Stage{
		theme:  cfg,
		opts:   opts,
		logger: util.WithPrefix(logger, LogPrefix),
	}
}

// Name implements stage.Stage.
func (s *Stage) Name() string { return stage.NameCodegen }

// Process implements stage.Stage.
func (s *Stage) Process(ctx context.Context, in stage.Input) (stage.Output, error) {
	if err := ctx.Err(); err != nil {
		return stage.Output{}, err
	}

	set, err := Generate(s.theme, in.Usage, s.opts)
	if err != nil {
		return stage.Output{}, fmt.Errorf("generate bindings: %w", err)
	}

	w, err := startWrite(ctx, set, s.opts.PackageDir(), s.opts.Concurrency, s.logger)
	if err != nil {
		return stage.Output{}, err
	}

	s.logger.Info(fmt.Sprintf("Generating %d tokens into package %s", s.theme.Len(), set.Package),
		"files", len(set.Artifacts), "used", len(in.Usage))
	return stage.Output{Source: in.Source, Completion: w}, nil
}
