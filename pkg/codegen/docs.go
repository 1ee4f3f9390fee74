package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/gnana997/stylepipe/pkg/stage"
	"github.com/gnana997/stylepipe/pkg/theme"
)

func renderReadme(pkg string, cfg *theme.Config, usage stage.Usage) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s\n\n", pkg)
	b.WriteString("Code generated by stylepipe. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "Theme tokens exposed as Go identifiers. %d tokens in %d sections; ",
		cfg.Len(), len(cfg.Categories()))
	fmt.Fprintf(&b, "%d referenced by the stylesheet.\n", countUsed(cfg, usage))

	for _, category := range cfg.Categories() {
		families := theme.FamiliesFor(category)

		fmt.Fprintf(&b, "\n## %s\n\n", category)
		fmt.Fprintf(&b, "Type `%s`, all tokens in `%sTokens`.\n\n", TypeName(category), TypeName(category))
		b.WriteString("| Identifier | Token | Value | Used |")
		if len(families) > 0 {
			b.WriteString(" Classes |")
		}
		b.WriteString("\n| --- | --- | --- | --- |")
		if len(families) > 0 {
			b.WriteString(" --- |")
		}
		b.WriteByte('\n')

		for _, t := range cfg.Category(category) {
			used := ""
			if usage.Contains(t.Name) {
				used = "yes"
			}
			fmt.Fprintf(&b, "| `%s` | `%s` | `%s` | %s |",
				Identifier(t), cell(t.Name), cell(t.Value), used)
			if len(families) > 0 {
				classes := make([]string, 0, len(families))
				for _, f := range families {
					classes = append(classes, "`"+cell(utilityClass(f.Prefix, t.Name))+"`")
				}
				fmt.Fprintf(&b, " %s |", strings.Join(classes, " "))
			}
			b.WriteByte('\n')
		}
	}
	return b.Bytes()
}

func renderHTML(md []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("<!-- Code generated by stylepipe. DO NOT EDIT. -->\n")

	gm := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := gm.Convert(md, &buf); err != nil {
		return nil, fmt.Errorf("render README.html: %w", err)
	}
	return buf.Bytes(), nil
}

func countUsed(cfg *theme.Config, usage stage.Usage) int {
	n := 0
	for _, t := range cfg.Tokens() {
		if usage.Contains(t.Name) {
			n++
		}
	}
	return n
}

func utilityClass(prefix, name string) string {
	if name == "DEFAULT" {
		return prefix
	}
	return prefix + "-" + name
}

func cell(s string) string {
	return strings.ReplaceAll(strings.Join(strings.Fields(s), " "), "|", `\|`)
}
