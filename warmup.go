package main

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lexandro/sandboxfs-mcp/workspace"
)

// WarmResult summarizes the initial indexing pass.
type WarmResult struct {
	Files       int
	Directories int
	SizeBytes   int64
	Failed      int // mounts whose index could not be built
}

// warmIndexes builds every mount's file index once so the first find or
// search does not pay for the walk. Failures are logged and skipped: an
// unavailable mount must not keep the server from starting.
func warmIndexes(ctx context.Context, ws *workspace.Workspace, logger *slog.Logger) WarmResult {
	var result WarmResult
	for _, m := range ws.Mounts() {
		start := time.Now()
		idx, err := ws.Indexes().GetOrBuild(ctx, m.AbsolutePath, ws.IndexOptions())
		if err != nil {
			logger.Warn("initial indexing failed", "mount", m.Name, "root", m.AbsolutePath, "error", err)
			result.Failed++
			continue
		}

		size := idx.TotalSizeBytes()
		result.Files += idx.FileCount
		result.Directories += idx.DirCount
		result.SizeBytes += size

		logger.Info("mount indexed",
			"mount", m.Name,
			"files", idx.FileCount,
			"directories", idx.DirCount,
			"size", humanize.IBytes(uint64(size)),
			"languages", topLanguages(idx.LanguageCounts(), 5),
			"truncated", idx.Truncated,
			"duration", time.Since(start),
		)
	}
	return result
}

// topLanguages renders the n most common languages as "Go:12,Markdown:3".
func topLanguages(counts map[string]int, n int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}

	out := ""
	for i, name := range names {
		if i > 0 {
			out += ","
		}
		out += name + ":" + humanize.Comma(int64(counts[name]))
	}
	return out
}
