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

// ReindexArgs defines the input parameters for the sandboxfs_reindex tool.
type ReindexArgs struct {
	Path string `json:"path,omitempty" jsonschema:"Directory to rebuild (default: every mount)"`
}

// ReindexHandler holds the dependencies for the reindex tool.
type ReindexHandler struct {
	Workspace *workspace.Workspace
	Logger    *slog.Logger
}

// Handle processes a sandboxfs_reindex request.
func (h *ReindexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReindexArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Debug("sandboxfs_reindex started", "path", args.Path)

	result, err := h.Workspace.Reindex(ctx, args.Path)
	if err != nil {
		return errorResult(h.Logger, "sandboxfs_reindex", err, "path", args.Path), nil, nil
	}

	files := 0
	for _, r := range result.Roots {
		files += r.FileCount
	}
	h.Logger.Info("sandboxfs_reindex complete",
		"roots", len(result.Roots),
		"files", files,
		"elapsed", result.Elapsed,
	)

	var builder strings.Builder
	fmt.Fprintf(&builder, "reindexed %d files in %s\n", files, result.Elapsed.Round(time.Millisecond))
	for _, r := range result.Roots {
		fmt.Fprintf(&builder, "  %s: %d files, %d directories", r.Root, r.FileCount, r.DirCount)
		if r.Truncated {
			builder.WriteString(" (truncated at the entry limit)")
		}
		builder.WriteString("\n")
	}
	return textResult(builder.String()), nil, nil
}
