package css

import "strings"

const indentUnit = "  "

// String prints the stylesheet in canonical layout.
func (s *Stylesheet) String() string {
	return Print(s.Nodes)
}

// Print renders nodes as a top-level stylesheet. Top-level blocks are
// separated by a blank line; output ends with a newline unless empty.
func Print(nodes []Node) string {
	var b strings.Builder
	for i, n := range nodes {
		if i > 0 && (isBlock(n) || isBlock(nodes[i-1])) {
			b.WriteByte('\n')
		}
		printNode(&b, n, 0)
	}
	return b.String()
}

func isBlock(n Node) bool {
	switch v := n.(type) {
	case *Rule:
		return true
	case *AtRule:
		return v.Block
	}
	return false
}

func printNode(b *strings.Builder, n Node, depth int) {
	indent := strings.Repeat(indentUnit, depth)
	switch v := n.(type) {
	case *Comment:
		b.WriteString(indent)
		b.WriteString(v.Text)
		b.WriteByte('\n')

	case *Decl:
		b.WriteString(indent)
		b.WriteString(FormatDecl(v))
		b.WriteString(";\n")

	case *AtRule:
		b.WriteString(indent)
		b.WriteByte('@')
		b.WriteString(v.Name)
		if v.Prelude != "" {
			b.WriteByte(' ')
			b.WriteString(v.Prelude)
		}
		if !v.Block {
			b.WriteString(";\n")
			return
		}
		b.WriteString(" {\n")
		for _, c := range v.Nodes {
			printNode(b, c, depth+1)
		}
		b.WriteString(indent)
		b.WriteString("}\n")

	case *Rule:
		b.WriteString(indent)
		b.WriteString(v.Selector)
		b.WriteString(" {\n")
		for _, c := range v.Nodes {
			printNode(b, c, depth+1)
		}
		b.WriteString(indent)
		b.WriteString("}\n")
	}
}

// FormatDecl renders a declaration without the trailing semicolon.
func FormatDecl(d *Decl) string {
	s := d.Property + ": " + d.Value
	if d.Important {
		s += " !important"
	}
	return s
}
