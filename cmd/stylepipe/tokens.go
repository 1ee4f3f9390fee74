package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gnana997/stylepipe/pkg/codegen"
	"github.com/gnana997/stylepipe/pkg/driver"
	"github.com/gnana997/stylepipe/pkg/pipeline"
	"github.com/gnana997/stylepipe/pkg/theme"
)

// TokensCmd implements the 'tokens' command.
type TokensCmd struct {
	Format   string `short:"f" help:"Output format: table or json." enum:"table,json" default:"table"`
	Category string `help:"Only print tokens of this theme section."`
	Theme    string `short:"t" help:"Theme file. Overrides the config file."`
}

type tokenRow struct {
	Category   string `json:"category"`
	Name       string `json:"name"`
	Value      string `json:"value"`
	Identifier string `json:"identifier"`
}

func (c *TokensCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return pipeline.ConfigError(err)
	}
	if c.Theme != "" {
		cfg.Theme = c.Theme
	}
	th, err := driver.LoadTheme(cfg, driver.ThemeOptions{Logger: root.logger(cfg, g.Stderr)})
	if err != nil {
		return pipeline.ConfigError(err)
	}

	tokens := th.Tokens()
	if c.Category != "" {
		tokens = th.Category(c.Category)
		if len(tokens) == 0 {
			return pipeline.ConfigErrorf("unknown theme section %q (known: %s)",
				c.Category, strings.Join(th.Categories(), ", "))
		}
	}

	rows := make([]tokenRow, len(tokens))
	for i, t := range tokens {
		rows[i] = tokenRow{Category: t.Category, Name: t.Name, Value: t.Value, Identifier: codegen.Identifier(t)}
	}

	if c.Format == "json" {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	printTokenTable(g.Stdout, th, rows)
	return nil
}

// printTokenTable renders rows grouped by section with dynamic column widths.
func printTokenTable(w io.Writer, th *theme.Config, rows []tokenRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "Tokens  (none)")
		return
	}

	nameW, idW := len("NAME"), len("IDENTIFIER")
	for _, r := range rows {
		nameW = max(nameW, len(r.Name))
		idW = max(idW, len(r.Identifier))
	}
	sepLen := nameW + idW + len("VALUE") + 4

	section := ""
	for _, r := range rows {
		if r.Category != section {
			if section != "" {
				fmt.Fprintln(w)
			}
			section = r.Category
			fmt.Fprintf(w, "%s  [%d]\n", section, len(th.Category(section)))
			fmt.Fprintf(w, "  %-*s  %-*s  %s\n", nameW, "NAME", idW, "IDENTIFIER", "VALUE")
			fmt.Fprintf(w, "  %s\n", strings.Repeat("─", sepLen))
		}
		fmt.Fprintf(w, "  %-*s  %-*s  %s\n", nameW, r.Name, idW, r.Identifier, r.Value)
	}
}
