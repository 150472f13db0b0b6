package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lexandro/sandboxfs-mcp/index"
	"github.com/lexandro/sandboxfs-mcp/workspace"
)

// RefreshResult holds the outcome of a single refresh pass.
type RefreshResult struct {
	Rebuilt  int // mount roots rebuilt because their generation expired or was dropped
	Evicted  int // expired roots below a mount, dropped instead of rebuilt
	Failed   int
	Duration time.Duration
}

// runPeriodicRefresh keeps mount indexes warm: at every tick expired mount
// roots are rebuilt and expired nested roots are evicted. It runs until ctx
// is done.
func runPeriodicRefresh(ctx context.Context, interval time.Duration, ws *workspace.Workspace, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("periodic refresh started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("periodic refresh stopped")
			return
		case <-ticker.C:
			result := performRefresh(ctx, ws, logger)
			if result.Rebuilt+result.Evicted+result.Failed > 0 {
				logger.Info("refresh complete",
					"rebuilt", result.Rebuilt,
					"evicted", result.Evicted,
					"failed", result.Failed,
					"duration", result.Duration,
				)
			} else {
				logger.Debug("refresh complete, all indexes fresh", "duration", result.Duration)
			}
		}
	}
}

// performRefresh runs one pass over the cache.
func performRefresh(ctx context.Context, ws *workspace.Workspace, logger *slog.Logger) RefreshResult {
	start := time.Now()
	var result RefreshResult
	cache := ws.Indexes()

	mountRoots := make(map[string]bool)
	for _, m := range ws.Mounts() {
		mountRoots[filepath.Clean(m.AbsolutePath)] = true
	}

	// Step 1: drop expired nested roots; finds below a mount rebuild them lazily
	for _, entry := range cache.Entries() {
		if entry.State != index.StateStale || mountRoots[entry.Root] {
			continue
		}
		cache.Invalidate(entry.Root)
		logger.Debug("refresh: evicted expired root", "root", entry.Root, "age", entry.Age)
		result.Evicted++
	}

	// Step 2: rebuild mount roots that are expired or missing
	for _, m := range ws.Mounts() {
		if ctx.Err() != nil {
			break
		}
		if cache.State(m.AbsolutePath) == index.StateFresh {
			continue
		}
		if _, err := cache.Rebuild(ctx, m.AbsolutePath, ws.IndexOptions()); err != nil {
			logger.Warn("refresh: rebuild failed", "mount", m.Name, "error", err)
			result.Failed++
			continue
		}
		result.Rebuilt++
	}

	result.Duration = time.Since(start)
	return result
}
