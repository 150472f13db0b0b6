package tools

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/sandboxfs-mcp/workspace"
)

// EditArgs defines the input parameters for the sandboxfs_edit tool.
type EditArgs struct {
	Path             string `json:"path" jsonschema:"Virtual path of the file to edit"`
	Lines            string `json:"lines" jsonschema:"1-indexed line range: N or N-M"`
	Action           string `json:"action,omitempty" jsonschema:"replace (default), insert_before, insert_after or delete_lines"`
	Content          string `json:"content,omitempty" jsonschema:"New text for replace and insert actions"`
	ExpectedChecksum string `json:"expectedChecksum,omitempty" jsonschema:"Checksum from sandboxfs_read; the edit is rejected if the file changed since"`
	DryRun           bool   `json:"dryRun,omitempty" jsonschema:"Return the diff without writing"`
}

// EditHandler holds the dependencies for the edit tool.
type EditHandler struct {
	Workspace *workspace.Workspace
	Logger    *slog.Logger
}

// Handle processes a sandboxfs_edit request.
func (h *EditHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args EditArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if strings.TrimSpace(args.Path) == "" {
		return requiredResult(h.Logger, "sandboxfs_edit", "path"), nil, nil
	}
	if strings.TrimSpace(args.Lines) == "" {
		return requiredResult(h.Logger, "sandboxfs_edit", "lines"), nil, nil
	}

	result, err := h.Workspace.EditLines(ctx, workspace.EditRequest{
		Path:             args.Path,
		Lines:            args.Lines,
		Action:           args.Action,
		Content:          args.Content,
		ExpectedChecksum: args.ExpectedChecksum,
		DryRun:           args.DryRun,
	})
	if err != nil {
		return errorResult(h.Logger, "sandboxfs_edit", err, "path", args.Path, "lines", args.Lines, "action", args.Action), nil, nil
	}

	h.Logger.Info("sandboxfs_edit",
		"path", result.VirtualPath,
		"lines", args.Lines,
		"action", args.Action,
		"added", result.Added,
		"removed", result.Removed,
		"dryRun", args.DryRun,
		"elapsed", time.Since(start),
	)
	return textResult(FormatEditResult("edited", result)), nil, nil
}

// ReplaceArgs defines the input parameters for the sandboxfs_replace tool.
type ReplaceArgs struct {
	Path             string `json:"path" jsonschema:"Virtual path of the file to change"`
	Pattern          string `json:"pattern" jsonschema:"Text to replace; must occur exactly once unless replaceAll is set"`
	Replacement      string `json:"replacement" jsonschema:"Replacement text; in regex mode $1 and ${name} refer to groups"`
	Mode             string `json:"mode,omitempty" jsonschema:"literal (default), regex or fuzzy"`
	IgnoreCase       bool   `json:"ignoreCase,omitempty" jsonschema:"Case-insensitive matching"`
	ReplaceAll       bool   `json:"replaceAll,omitempty" jsonschema:"Replace every occurrence instead of requiring a unique one"`
	ExpectedChecksum string `json:"expectedChecksum,omitempty" jsonschema:"Checksum from sandboxfs_read; the change is rejected if the file changed since"`
	DryRun           bool   `json:"dryRun,omitempty" jsonschema:"Return the diff without writing"`
}

// ReplaceHandler holds the dependencies for the replace tool.
type ReplaceHandler struct {
	Workspace *workspace.Workspace
	Logger    *slog.Logger
}

// Handle processes a sandboxfs_replace request.
func (h *ReplaceHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReplaceArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if strings.TrimSpace(args.Path) == "" {
		return requiredResult(h.Logger, "sandboxfs_replace", "path"), nil, nil
	}
	if args.Pattern == "" {
		return requiredResult(h.Logger, "sandboxfs_replace", "pattern"), nil, nil
	}

	result, err := h.Workspace.ReplacePattern(ctx, workspace.ReplaceRequest{
		PatternSpec: workspace.PatternSpec{
			Pattern:    args.Pattern,
			Mode:       args.Mode,
			IgnoreCase: args.IgnoreCase,
		},
		Path:             args.Path,
		Replacement:      args.Replacement,
		ReplaceAll:       args.ReplaceAll,
		ExpectedChecksum: args.ExpectedChecksum,
		DryRun:           args.DryRun,
	})
	if err != nil {
		return errorResult(h.Logger, "sandboxfs_replace", err, "path", args.Path, "pattern", args.Pattern), nil, nil
	}

	h.Logger.Info("sandboxfs_replace",
		"path", result.VirtualPath,
		"mode", args.Mode,
		"replacements", result.Replacements,
		"dryRun", args.DryRun,
		"elapsed", time.Since(start),
	)
	return textResult(FormatEditResult("replaced in", result)), nil, nil
}

// WriteArgs defines the input parameters for the sandboxfs_write tool.
type WriteArgs struct {
	Path             string `json:"path" jsonschema:"Virtual path of the file to create or replace"`
	Content          string `json:"content" jsonschema:"Complete new file content"`
	ExpectedChecksum string `json:"expectedChecksum,omitempty" jsonschema:"Checksum from sandboxfs_read; required to replace an existing file unless overwrite is set"`
	Overwrite        bool   `json:"overwrite,omitempty" jsonschema:"Replace an existing file without a checksum"`
	DryRun           bool   `json:"dryRun,omitempty" jsonschema:"Return the diff without writing"`
}

// WriteHandler holds the dependencies for the write tool.
type WriteHandler struct {
	Workspace *workspace.Workspace
	Logger    *slog.Logger
}

// Handle processes a sandboxfs_write request.
func (h *WriteHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args WriteArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if strings.TrimSpace(args.Path) == "" {
		return requiredResult(h.Logger, "sandboxfs_write", "path"), nil, nil
	}

	result, err := h.Workspace.WriteFile(ctx, workspace.WriteRequest{
		Path:             args.Path,
		Content:          args.Content,
		ExpectedChecksum: args.ExpectedChecksum,
		Overwrite:        args.Overwrite,
		DryRun:           args.DryRun,
	})
	if err != nil {
		return errorResult(h.Logger, "sandboxfs_write", err, "path", args.Path), nil, nil
	}

	verb := "wrote"
	if result.Created {
		verb = "created"
	}
	h.Logger.Info("sandboxfs_write",
		"path", result.VirtualPath,
		"created", result.Created,
		"size", formatFileSize(int64(len(args.Content))),
		"dryRun", args.DryRun,
		"elapsed", time.Since(start),
	)
	return textResult(FormatEditResult(verb, result)), nil, nil
}
