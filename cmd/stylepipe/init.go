package main

import (
	"fmt"

	"github.com/gnana997/stylepipe/scaffold"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool   `help:"Overwrite existing files."`
	Dir   string `short:"d" help:"Project directory." default:"."`
}

func (i *InitCmd) Run(g *Global, _ *CLI) error {
	fmt.Fprintln(g.Stdout, "Initializing stylepipe project")
	res, err := scaffold.Write(i.Dir, i.Force)
	for _, p := range res.Written {
		fmt.Fprintf(g.Stdout, "  + %s\n", p)
	}
	for _, p := range res.Skipped {
		fmt.Fprintf(g.Stdout, "  = %s (exists, use --force to overwrite)\n", p)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(g.Stdout, "Run 'stylepipe build' to compile.")
	return nil
}
