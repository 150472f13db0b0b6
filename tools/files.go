package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/sandboxfs-mcp/workspace"
)

// FindArgs defines the input parameters for the sandboxfs_find tool.
type FindArgs struct {
	Query              string `json:"query" jsonschema:"Fuzzy file name query; several words must all match the path (e.g. handler test)"`
	Path               string `json:"path,omitempty" jsonschema:"Directory to search below (default: every mount)"`
	Glob               string `json:"glob,omitempty" jsonschema:"Optional doublestar glob on the path relative to the searched directory (e.g. **/*.go)"`
	IncludeDirectories bool   `json:"includeDirectories,omitempty" jsonschema:"Also rank directory names"`
	MaxResults         int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default 50)"`
}

// FindHandler holds the dependencies for the find tool.
type FindHandler struct {
	Workspace *workspace.Workspace
	Logger    *slog.Logger
}

// Handle processes a sandboxfs_find request.
func (h *FindHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FindArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if strings.TrimSpace(args.Query) == "" && strings.TrimSpace(args.Glob) == "" {
		return requiredResult(h.Logger, "sandboxfs_find", "query"), nil, nil
	}

	result, err := h.Workspace.FindFiles(ctx, workspace.FindRequest{
		Path:               args.Path,
		Query:              args.Query,
		Glob:               args.Glob,
		IncludeDirectories: args.IncludeDirectories,
		MaxResults:         args.MaxResults,
	})
	if err != nil {
		return errorResult(h.Logger, "sandboxfs_find", err, "query", args.Query, "path", args.Path), nil, nil
	}

	h.Logger.Info("sandboxfs_find",
		"query", args.Query,
		"path", args.Path,
		"glob", args.Glob,
		"results", len(result.Files),
		"total", result.Total,
		"elapsed", time.Since(start),
	)
	return textResult(FormatFindResults(result)), nil, nil
}

// ListArgs defines the input parameters for the sandboxfs_list tool.
type ListArgs struct {
	Path      string `json:"path,omitempty" jsonschema:"Directory to list (default: / which lists the mounts)"`
	Recursive bool   `json:"recursive,omitempty" jsonschema:"List every entry below the directory"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of entries (default 1000)"`
}

// ListHandler holds the dependencies for the list tool.
type ListHandler struct {
	Workspace *workspace.Workspace
	Logger    *slog.Logger
}

// Handle processes a sandboxfs_list request.
func (h *ListHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ListArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	result, err := h.Workspace.List(ctx, workspace.ListRequest{Path: args.Path, Recursive: args.Recursive, Limit: args.Limit})
	if err != nil {
		return errorResult(h.Logger, "sandboxfs_list", err, "path", args.Path), nil, nil
	}

	h.Logger.Info("sandboxfs_list",
		"path", result.VirtualPath,
		"recursive", args.Recursive,
		"entries", len(result.Entries),
		"elapsed", time.Since(start),
	)
	return textResult(FormatListResult(result)), nil, nil
}

// MountsArgs defines the input parameters for the sandboxfs_mounts tool (none required).
type MountsArgs struct{}

// MountsHandler holds the dependencies for the mounts tool.
type MountsHandler struct {
	Workspace *workspace.Workspace
	Logger    *slog.Logger
}

// Handle processes a sandboxfs_mounts request.
func (h *MountsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args MountsArgs) (*mcp.CallToolResult, any, error) {
	status := h.Workspace.Status()
	h.Logger.Info("sandboxfs_mounts", "mounts", len(status.Mounts))

	var builder strings.Builder
	fmt.Fprintf(&builder, "%d mounts:\n", len(status.Mounts))
	for _, m := range status.Mounts {
		state := "available"
		if !m.Available {
			state = "unavailable"
		}
		fmt.Fprintf(&builder, "  %s/  (%s)\n", m.Name, state)
	}
	if len(status.Mounts) == 1 {
		fmt.Fprintf(&builder, "\nPaths may omit the mount name (e.g. src/main.go for %s/src/main.go).\n", status.Mounts[0].Name)
	} else {
		builder.WriteString("\nStart every path with a mount name.\n")
	}
	return textResult(builder.String()), nil, nil
}
