package main

import (
	"fmt"

	"github.com/gnana997/stylepipe/pkg/driver"
	"github.com/gnana997/stylepipe/pkg/mcp"
	"github.com/gnana997/stylepipe/pkg/mcplog"
	"github.com/gnana997/stylepipe/pkg/pipeline"
)

// ServeCmd implements the 'serve' command. Logs go to stderr; stdout carries
// the protocol.
type ServeCmd struct {
	Theme string `short:"t" help:"Theme file. Overrides the config file."`
	Log   string `name:"log" help:"Append one JSON line per tool call to this file. Overrides mcp_log."`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return pipeline.ConfigError(err)
	}
	if s.Theme != "" {
		cfg.Theme = s.Theme
	}
	if s.Log != "" {
		cfg.MCPLog = s.Log
	}
	logger := root.logger(cfg, g.Stderr)

	th, err := driver.LoadTheme(cfg, driver.ThemeOptions{Logger: logger})
	if err != nil {
		return pipeline.ConfigError(err)
	}

	calls, err := mcplog.Open(cfg.MCPLog)
	if err != nil {
		return pipeline.ConfigError(err)
	}
	defer calls.Close()

	logger.Info("serving theme over MCP", "tokens", th.Len(), "categories", len(th.Categories()), "call_log", cfg.MCPLog)
	if err := mcp.NewServer(th, version, calls).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
