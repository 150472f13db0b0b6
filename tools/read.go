package tools

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/sandboxfs-mcp/workspace"
)

// ReadArgs defines the input parameters for the sandboxfs_read tool.
type ReadArgs struct {
	Path  string `json:"path" jsonschema:"Virtual path of the file (e.g. notes/todo.md). A bare file name is looked up across all mounts"`
	Lines string `json:"lines,omitempty" jsonschema:"Optional 1-indexed line range: N or N-M"`
}

// ReadHandler holds the dependencies for the read tool.
type ReadHandler struct {
	Workspace *workspace.Workspace
	Logger    *slog.Logger
}

// Handle processes a sandboxfs_read request.
func (h *ReadHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReadArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if strings.TrimSpace(args.Path) == "" {
		return requiredResult(h.Logger, "sandboxfs_read", "path"), nil, nil
	}

	result, err := h.Workspace.Read(ctx, workspace.ReadRequest{Path: args.Path, Lines: args.Lines})
	if err != nil {
		return errorResult(h.Logger, "sandboxfs_read", err, "path", args.Path, "lines", args.Lines), nil, nil
	}

	h.Logger.Info("sandboxfs_read",
		"path", result.VirtualPath,
		"lines", args.Lines,
		"size", formatFileSize(result.SizeBytes),
		"elapsed", time.Since(start),
	)
	return textResult(FormatFileContent(result)), nil, nil
}
