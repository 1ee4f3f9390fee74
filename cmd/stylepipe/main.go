package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/gnana997/stylepipe/pkg/config"
	"github.com/gnana997/stylepipe/pkg/driver"
	"github.com/gnana997/stylepipe/pkg/util"
)

const version = "0.1.0-dev"

// Global carries the process streams into commands.
type Global struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// CLI is the root command line.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path." default:"stylepipe.yaml"`
	Verbose bool             `short:"v" help:"Enable debug logging."`
	Version kong.VersionFlag `name:"version" help:"Show version and exit."`

	Build  BuildCmd  `cmd:"" default:"1" help:"Compile the stylesheet and generate Go bindings."`
	Tokens TokensCmd `cmd:"" help:"Print the resolved theme tokens."`
	Serve  ServeCmd  `cmd:"" help:"Serve theme inspection tools over MCP on stdio."`
	Init   InitCmd   `cmd:"" help:"Write a starter configuration, theme and stylesheet."`
	Setup  SetupCmd  `cmd:"" help:"Register 'stylepipe serve' with detected editors."`
}

// loadConfig reads the config file. A missing file is only an error when a
// non-default path was given.
func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Load(c.Config, config.LoadOptions{Required: c.Config != config.DefaultPath})
}

// logger builds the process logger for cfg on w.
func (c *CLI) logger(cfg *config.Config, w io.Writer) *slog.Logger {
	lc := cfg.LoggerConfig(w)
	if c.Verbose {
		lc.Level = util.LevelDebug
	}
	return util.NewLogger(lc)
}

// exitRequest carries a kong exit through panic so run can return it.
type exitRequest int

func run(args []string, g *Global) (code int) {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("stylepipe"),
		kong.Description("Build-time stylesheet pipeline with generated Go bindings for theme tokens."),
		kong.UsageOnError(),
		kong.Writers(g.Stdout, g.Stderr),
		kong.Vars{"version": version},
		kong.Exit(func(c int) { panic(exitRequest(c)) }),
	)
	if err != nil {
		fmt.Fprintf(g.Stderr, "stylepipe: %v\n", err)
		return driver.ExitFailure
	}

	defer func() {
		if r := recover(); r != nil {
			req, ok := r.(exitRequest)
			if !ok {
				panic(r)
			}
			code = int(req)
		}
	}()

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(g.Stderr, "stylepipe: %v\n", err)
		var perr *kong.ParseError
		if errors.As(err, &perr) {
			return driver.ExitConfiguration
		}
		return driver.ExitFailure
	}

	if err := kctx.Run(g, &cli); err != nil {
		fmt.Fprintf(g.Stderr, "stylepipe: %v\n", err)
		return driver.ExitCode(err)
	}
	return driver.ExitOK
}

func main() {
	os.Exit(run(os.Args[1:], &Global{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}))
}
