package tools

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/sandboxfs-mcp/workspace"
)

// SearchArgs defines the input parameters for the sandboxfs_search tool.
type SearchArgs struct {
	Pattern      string `json:"pattern,omitempty" jsonschema:"Text to search for; required unless preset is given"`
	Mode         string `json:"mode,omitempty" jsonschema:"literal (default), regex or fuzzy (whitespace-tolerant literal)"`
	Preset       string `json:"preset,omitempty" jsonschema:"Named Markdown pattern instead of pattern: heading, list_item, checklist, checklist_open, checklist_done, tag, html_tag, code_block, front_matter, wikilink, md_link"`
	Path         string `json:"path" jsonschema:"File or directory to search (use / for every mount)"`
	Recursive    bool   `json:"recursive,omitempty" jsonschema:"Required to search a directory"`
	Include      string `json:"include,omitempty" jsonschema:"Optional doublestar glob to filter files (e.g. **/*.md)"`
	IgnoreCase   bool   `json:"ignoreCase,omitempty" jsonschema:"Case-insensitive matching"`
	ContextLines *int   `json:"contextLines,omitempty" jsonschema:"Context lines around each cluster of matches (default 2)"`
	MaxMatches   int    `json:"maxMatches,omitempty" jsonschema:"Maximum total matches (default 500)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Workspace *workspace.Workspace
	Logger    *slog.Logger
}

// Handle processes a sandboxfs_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Pattern == "" && strings.TrimSpace(args.Preset) == "" {
		return requiredResult(h.Logger, "sandboxfs_search", "pattern"), nil, nil
	}
	if strings.TrimSpace(args.Path) == "" {
		return requiredResult(h.Logger, "sandboxfs_search", "path"), nil, nil
	}

	contextLines := -1
	if args.ContextLines != nil {
		contextLines = max(*args.ContextLines, 0)
	}

	result, err := h.Workspace.SearchContent(ctx, workspace.SearchRequest{
		PatternSpec: workspace.PatternSpec{
			Pattern:    args.Pattern,
			Mode:       args.Mode,
			Preset:     args.Preset,
			IgnoreCase: args.IgnoreCase,
		},
		Path:         args.Path,
		Recursive:    args.Recursive,
		Include:      args.Include,
		ContextLines: contextLines,
		MaxMatches:   args.MaxMatches,
	})
	if err != nil {
		return errorResult(h.Logger, "sandboxfs_search", err, "pattern", args.Pattern, "preset", args.Preset, "path", args.Path), nil, nil
	}

	h.Logger.Info("sandboxfs_search",
		"pattern", args.Pattern,
		"mode", args.Mode,
		"preset", args.Preset,
		"path", args.Path,
		"files", len(result.Files),
		"matches", result.TotalMatches,
		"scanned", result.FilesScanned,
		"elapsed", time.Since(start),
	)
	return textResult(FormatSearchResults(result)), nil, nil
}
