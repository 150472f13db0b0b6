package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/sandboxfs-mcp/workspace"
)

// StatusArgs defines the input parameters for the sandboxfs_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Workspace *workspace.Workspace
	StartTime time.Time
	Logger    *slog.Logger
}

// Handle processes a sandboxfs_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder

	status := h.Workspace.Status()
	uptime := time.Since(h.StartTime)

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("sandboxfs_status",
		"mounts", len(status.Mounts),
		"cachedIndexes", len(status.CachedIndexes),
		"memory", memStats.Alloc,
		"uptime", uptime,
	)

	builder.WriteString("=== sandboxfs-mcp Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatFileSize(int64(memStats.Alloc)),
		formatFileSize(int64(memStats.HeapAlloc)),
	))

	builder.WriteString("\nMounts:\n")
	for _, m := range status.Mounts {
		state := "available"
		if !m.Available {
			state = "UNAVAILABLE"
		}
		builder.WriteString(fmt.Sprintf("  %-16s %s (%s)\n", m.Name, m.AbsolutePath, state))
	}

	builder.WriteString(fmt.Sprintf("\nIndex cache (TTL %s):\n", status.CacheTTL))
	if len(status.CachedIndexes) == 0 {
		builder.WriteString("  (empty)\n")
	}
	for _, entry := range status.CachedIndexes {
		line := fmt.Sprintf("  %-24s %s files, %s dirs, built %s, %s",
			entry.Root,
			humanize.Comma(int64(entry.FileCount)),
			humanize.Comma(int64(entry.DirCount)),
			humanize.Time(entry.BuiltAt),
			entry.State,
		)
		if entry.Truncated {
			line += ", truncated"
		}
		builder.WriteString(line + "\n")
	}

	builder.WriteString("\nLimits:\n")
	builder.WriteString(fmt.Sprintf("  Max file size: %s\n", formatFileSize(status.MaxFileSizeBytes)))
	builder.WriteString(fmt.Sprintf("  Search: %d files, %d matches, batches of %d, pattern timeout %s\n",
		status.Search.MaxFiles,
		status.Search.MaxMatches,
		status.Search.BatchSize,
		status.Search.PatternTimeout,
	))

	return textResult(builder.String()), nil, nil
}
