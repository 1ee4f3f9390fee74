// Package prefix implements the vendor-prefix normalization stage.
package prefix

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/gnana997/stylepipe/pkg/css"
	"github.com/gnana997/stylepipe/pkg/stage"
)

// defaultTable maps a standard property to the prefixed forms emitted ahead
// of it.
var defaultTable = map[string][]string{
	"appearance":       {"-webkit-appearance", "-moz-appearance"},
	"backdrop-filter":  {"-webkit-backdrop-filter"},
	"hyphens":          {"-webkit-hyphens", "-ms-hyphens"},
	"mask-image":       {"-webkit-mask-image"},
	"tab-size":         {"-moz-tab-size"},
	"text-size-adjust": {"-webkit-text-size-adjust", "-moz-text-size-adjust"},
	"user-drag":        {"-webkit-user-drag"},
	"user-select":      {"-webkit-user-select", "-moz-user-select", "-ms-user-select"},
}

// Properties returns the standard properties the stage prefixes, sorted.
func Properties() []string {
	return slices.Sorted(maps.Keys(defaultTable))
}

// Prefixes returns the prefixed forms emitted for property.
func Prefixes(property string) []string {
	return slices.Clone(defaultTable[property])
}

// Stage inserts vendor-prefixed declarations before their standard form.
// A prefixed declaration already present in the same block is left alone, so
// running the stage on its own output changes nothing.
type Stage struct {
	table  map[string][]string
	logger *slog.Logger
}

// New creates the stage with the built-in property table.
func New(logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{table: defaultTable, logger: logger.With("stage", stage.NamePrefix)}
}

// Name implements stage.Stage.
func (s *Stage) Name() string { return stage.NamePrefix }

// Process implements stage.Stage.
func (s *Stage) Process(ctx context.Context, in stage.Input) (stage.Output, error) {
	if err := ctx.Err(); err != nil {
		return stage.Output{}, err
	}

	sheet, err := css.Parse(in.Source.Origin, in.Source.Text)
	if err != nil {
		return stage.Output{}, err
	}

	added := 0
	nodes, err := css.Rewrite(sheet.Nodes, func(n css.Node) ([]css.Node, error) {
		switch v := n.(type) {
		case *css.Rule:
			children, k := s.prefixBlock(v.Nodes)
			added += k
			return []css.Node{&css.Rule{Selector: v.Selector, Nodes: children}}, nil
		case *css.AtRule:
			if v.Block {
				children, k := s.prefixBlock(v.Nodes)
				added += k
				return []css.Node{&css.AtRule{Name: v.Name, Prelude: v.Prelude, Block: true, Nodes: children}}, nil
			}
		}
		return css.Keep(n)
	})
	if err != nil {
		return stage.Output{}, err
	}

	s.logger.Debug("prefixes added", "count", added)
	return stage.Output{Source: in.Source.WithText(css.Print(nodes))}, nil
}

func (s *Stage) prefixBlock(nodes []css.Node) ([]css.Node, int) {
	present := make(map[string]bool)
	for _, n := range nodes {
		if d, ok := n.(*css.Decl); ok {
			present[d.Property] = true
		}
	}

	out := make([]css.Node, 0, len(nodes))
	added := 0
	for _, n := range nodes {
		if d, ok := n.(*css.Decl); ok {
			for _, p := range s.table[d.Property] {
				if present[p] {
					continue
				}
				out = append(out, &css.Decl{Property: p, Value: d.Value, Important: d.Important})
				present[p] = true
				added++
			}
		}
		out = append(out, n)
	}
	return out, added
}
