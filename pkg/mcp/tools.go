package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool names.
const (
	ToolListCategories = "list_categories"
	ToolListTokens     = "list_tokens"
	ToolGetToken       = "get_token"
	ToolListUtilities  = "list_utilities"
)

func listCategoriesTool() mcp.Tool {
	return mcp.NewTool(ToolListCategories,
		mcp.WithDescription("Returns theme section names with token counts."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func listTokensTool() mcp.Tool {
	return mcp.NewTool(ToolListTokens,
		mcp.WithDescription("Lists resolved theme tokens with their generated Go identifiers. "+
			"Filter by theme section with category."),
		mcp.WithString("category",
			mcp.Description("Theme section, e.g. colors or spacing. Omit for all tokens."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func getTokenTool() mcp.Tool {
	return mcp.NewTool(ToolGetToken,
		mcp.WithDescription("Returns one token: value, generated Go identifier and the utility classes it produces. "+
			"Accepts a token name (gv-primary) or a dotted theme path (colors.gv-primary)."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Token name or dotted theme path."),
		),
		mcp.WithString("category",
			mcp.Description("Restrict the lookup to one theme section."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func listUtilitiesTool() mcp.Tool {
	return mcp.NewTool(ToolListUtilities,
		mcp.WithDescription("Lists the utility classes generated from the theme with their declarations."),
		mcp.WithString("prefix",
			mcp.Description("Utility family, e.g. bg, text, border, p, m or gap. Omit for all."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
