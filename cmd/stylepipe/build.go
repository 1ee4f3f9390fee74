package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gnana997/stylepipe/pkg/config"
	"github.com/gnana997/stylepipe/pkg/driver"
	"github.com/gnana997/stylepipe/pkg/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Input       string   `short:"i" help:"Input stylesheet. Overrides the config file."`
	Output      string   `short:"o" help:"Compiled stylesheet path. Overrides the config file."`
	Theme       string   `short:"t" help:"Theme file. Overrides the config file."`
	Stages      []string `help:"Stages to run, a subsequence of imports,tokens,prefix,codegen." sep:","`
	MetricsFile string   `name:"metrics-file" help:"Write Prometheus text-format metrics here after the build."`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return pipeline.ConfigError(err)
	}
	b.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return pipeline.ConfigError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return driver.Execute(ctx, cfg, driver.Options{Logger: root.logger(cfg, g.Stderr)})
}

func (b *BuildCmd) apply(cfg *config.Config) {
	if b.Input != "" {
		cfg.Input = b.Input
	}
	if b.Output != "" {
		cfg.Output = b.Output
	}
	if b.Theme != "" {
		cfg.Theme = b.Theme
	}
	if len(b.Stages) > 0 {
		cfg.Stages = b.Stages
	}
	if b.MetricsFile != "" {
		cfg.MetricsFile = b.MetricsFile
	}
}
