package theme

import (
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseYAML reads a theme from YAML (or JSON). The document is either the
// theme mapping itself or a mapping with a top-level "theme" key, mirroring
// the script config layout:
//
//	theme:
//	  colors:
//	    gv-primary: "#60b5cc"
//	  extend:
//	    spacing:
//	      gutter: 1.5rem
//
// Mapping order is preserved, so token order follows the file.
func ParseYAML(data []byte, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse theme yaml: %w", err)
	}

	b := NewBuilder(logger)
	if len(doc.Content) == 0 {
		return b.Build(), nil
	}

	root := deref(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("theme yaml: expected a mapping at line %d", root.Line)
	}
	themeNode := root
	if v := mappingValue(root, "theme"); v != nil {
		themeNode = deref(v)
		if themeNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("theme yaml: theme must be a mapping (line %d)", themeNode.Line)
		}
	}

	var extend *yaml.Node
	for i := 0; i+1 < len(themeNode.Content); i += 2 {
		key, value := themeNode.Content[i].Value, deref(themeNode.Content[i+1])
		if key == "extend" {
			extend = value
			continue
		}
		loadYAMLCategory(b, logger, key, value)
	}
	if extend != nil {
		if extend.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("theme yaml: extend must be a mapping (line %d)", extend.Line)
		}
		for i := 0; i+1 < len(extend.Content); i += 2 {
			loadYAMLCategory(b, logger, extend.Content[i].Value, deref(extend.Content[i+1]))
		}
	}

	return b.Build(), nil
}

func loadYAMLCategory(b *Builder, logger *slog.Logger, category string, node *yaml.Node) {
	if node.Kind != yaml.MappingNode {
		logger.Warn("skipping theme section that is not a mapping", "section", category, "line", node.Line)
		return
	}
	flattenYAML(b, logger, category, "", node)
}

func flattenYAML(b *Builder, logger *slog.Logger, category, prefix string, node *yaml.Node) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := joinName(prefix, node.Content[i].Value)
		value := deref(node.Content[i+1])

		switch value.Kind {
		case yaml.MappingNode:
			flattenYAML(b, logger, category, name, value)
		case yaml.ScalarNode:
			b.SetOrWarn(category, name, value.Value)
		case yaml.SequenceNode:
			parts := make([]string, 0, len(value.Content))
			for _, el := range value.Content {
				parts = append(parts, deref(el).Value)
			}
			b.SetOrWarn(category, name, strings.Join(parts, ", "))
		default:
			logger.Warn("skipping unsupported theme value", "section", category, "name", name, "line", value.Line)
		}
	}
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func deref(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
