package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/stylepipe/pkg/codegen"
	"github.com/gnana997/stylepipe/pkg/theme"
)

type categorySummary struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	TokenCount int    `json:"token_count"`
}

type tokenView struct {
	Category   string   `json:"category"`
	Name       string   `json:"name"`
	Value      string   `json:"value"`
	Identifier string   `json:"identifier"`
	Classes    []string `json:"classes,omitempty"`
}

type utilityView struct {
	Class        string   `json:"class"`
	Prefix       string   `json:"prefix"`
	Token        string   `json:"token"`
	Declarations []string `json:"declarations"`
}

func (s *Server) handleListCategories(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cats := s.theme.Categories()
	out := make([]categorySummary, 0, len(cats))
	for _, c := range cats {
		out = append(out, categorySummary{Name: c, Type: codegen.TypeName(c), TokenCount: len(s.theme.Category(c))})
	}
	return jsonResult(out)
}

func (s *Server) handleListTokens(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := strings.TrimSpace(req.GetString("category", ""))

	var tokens []theme.Token
	if category == "" {
		tokens = s.theme.Tokens()
	} else {
		tokens = s.theme.Category(category)
		if len(tokens) == 0 {
			return mcp.NewToolResultError(fmt.Sprintf("unknown category %q (known: %s)",
				category, strings.Join(s.theme.Categories(), ", "))), nil
		}
	}

	out := make([]tokenView, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, view(t, nil))
	}
	return jsonResult(out)
}

func (s *Server) handleGetToken(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name = strings.TrimSpace(name)
	category := strings.TrimSpace(req.GetString("category", ""))

	t, ok := s.lookup(category, name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("token %q not found", name)), nil
	}
	return jsonResult(view(t, s.classesOf(t)))
}

func (s *Server) handleListUtilities(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := strings.TrimSpace(req.GetString("prefix", ""))

	out := []utilityView{}
	for _, u := range s.theme.Utilities() {
		if prefix != "" && u.Family != prefix {
			continue
		}
		decls := make([]string, len(u.Decls))
		for i, d := range u.Decls {
			decls[i] = d.Property + ": " + d.Value
		}
		out = append(out, utilityView{Class: u.Class, Prefix: u.Family, Token: u.Token.Name, Declarations: decls})
	}
	return jsonResult(out)
}

// lookup tries category/name, then a dotted theme path, then a bare name.
func (s *Server) lookup(category, name string) (theme.Token, bool) {
	if category != "" {
		return s.theme.Lookup(category, name)
	}
	if strings.Contains(name, ".") {
		if t, ok := s.theme.Resolve(name); ok {
			return t, true
		}
	}
	return s.theme.Find(name)
}

func (s *Server) classesOf(t theme.Token) []string {
	var out []string
	for _, u := range s.theme.Utilities() {
		if u.Token.Category == t.Category && u.Token.Name == t.Name {
			out = append(out, u.Class)
		}
	}
	return out
}

func view(t theme.Token, classes []string) tokenView {
	return tokenView{
		Category:   t.Category,
		Name:       t.Name,
		Value:      t.Value,
		Identifier: codegen.Identifier(t),
		Classes:    classes,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
