package tools

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/sandboxfs-mcp/fserr"
	"github.com/lexandro/sandboxfs-mcp/pattern"
	"github.com/lexandro/sandboxfs-mcp/workspace"
)

// textResult wraps output in a successful tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult reports err to the caller as a tool error. Expected failures
// are logged at warn, everything else at error.
func errorResult(logger *slog.Logger, tool string, err error, attrs ...any) *mcp.CallToolResult {
	attrs = append(attrs, "error", err)
	if e, ok := fserr.As(err); ok && e.Kind != fserr.KindIO {
		logger.Warn(tool+" failed", attrs...)
	} else {
		logger.Error(tool+" failed", attrs...)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatError(err)}},
		IsError: true,
	}
}

// requiredResult reports a missing argument.
func requiredResult(logger *slog.Logger, tool string, name string) *mcp.CallToolResult {
	err := fserr.InvalidArgument(name+" parameter is required", fmt.Sprintf("call %s again with a non-empty %s", tool, name))
	return errorResult(logger, tool, err)
}

// FormatError renders an error as "Error [CODE]: message" followed by the
// hint and any candidates.
func FormatError(err error) string {
	e, ok := fserr.As(err)
	if !ok {
		return fmt.Sprintf("Error [%s]: %v", fserr.CodeIO, err)
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Error [%s]: %s", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&builder, " (%v)", e.Err)
	}
	if e.Hint != "" {
		fmt.Fprintf(&builder, "\nHint: %s", e.Hint)
	}
	if len(e.Candidates) > 0 {
		label := "Candidates"
		if e.Code == fserr.CodeNotFound {
			label = "Did you mean"
		}
		fmt.Fprintf(&builder, "\n%s:", label)
		for _, c := range e.Candidates {
			fmt.Fprintf(&builder, "\n  %s", c)
		}
	}
	return builder.String()
}

// FormatFileContent formats a file's content with line numbers, similar to the built-in Read tool.
// Both checksums are printed: writes verify the whole-file one.
func FormatFileContent(result workspace.ReadResult) string {
	var builder strings.Builder

	header := fmt.Sprintf("── %s (%d lines, %s) ──", result.VirtualPath, result.TotalLines, formatFileSize(result.SizeBytes))
	if result.Range != nil {
		header = fmt.Sprintf("── %s lines %d-%d of %d ──", result.VirtualPath, result.Range.Start, result.Range.End, result.TotalLines)
	}
	builder.WriteString(header + "\n")
	if result.RequestedAs != "" {
		fmt.Fprintf(&builder, "(resolved from %q)\n", result.RequestedAs)
	}
	fmt.Fprintf(&builder, "checksum: %s\n", result.FileChecksum)
	if result.Range != nil {
		fmt.Fprintf(&builder, "range checksum: %s\n", result.Checksum)
	}

	if result.Content == "" {
		builder.WriteString("(empty file)\n")
		return builder.String()
	}

	firstLine := 1
	if result.Range != nil {
		firstLine = result.Range.Start
	}
	lines := strings.Split(strings.TrimSuffix(result.Content, "\n"), "\n")
	width := len(fmt.Sprintf("%d", firstLine+len(lines)-1))
	for i, line := range lines {
		fmt.Fprintf(&builder, "%*d│ %s\n", width, firstLine+i, line)
	}
	return builder.String()
}

// FormatSearchResults formats content search results as human-readable text.
// Groups matches by file and cluster, marking matching lines with ">".
func FormatSearchResults(result workspace.SearchResult) string {
	if len(result.Files) == 0 {
		return fmt.Sprintf("No matches found (%d files searched).", result.FilesScanned)
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Found %d matches in %d files (%d searched", result.TotalMatches, len(result.Files), result.FilesScanned)
	if result.FilesSkipped > 0 {
		fmt.Fprintf(&builder, ", %d skipped", result.FilesSkipped)
	}
	builder.WriteString(")")
	if result.Truncated {
		builder.WriteString(", results truncated")
	}
	builder.WriteString(":\n")

	for _, file := range result.Files {
		fmt.Fprintf(&builder, "\n── %s ──\n", file.VirtualPath)
		for i, cluster := range file.Clusters {
			if i > 0 {
				builder.WriteString("  ...\n")
			}
			writeCluster(&builder, cluster)
		}
	}
	return builder.String()
}

func writeCluster(builder *strings.Builder, cluster pattern.Cluster) {
	matched := make(map[int]bool)
	for _, m := range cluster.Matches {
		for line := m.Line; line <= m.EndLine; line++ {
			matched[line] = true
		}
	}

	line := cluster.StartLine - len(cluster.Before)
	for _, text := range cluster.Before {
		fmt.Fprintf(builder, "  %d  %s\n", line, text)
		line++
	}
	for _, text := range cluster.Lines {
		marker := " "
		if matched[line] {
			marker = ">"
		}
		fmt.Fprintf(builder, "%s %d: %s\n", marker, line, text)
		line++
	}
	for _, text := range cluster.After {
		fmt.Fprintf(builder, "  %d  %s\n", line, text)
		line++
	}
}

// FormatFindResults formats ranked file-name matches.
func FormatFindResults(result workspace.FindResult) string {
	if len(result.Files) == 0 {
		return "No files matched."
	}

	var builder strings.Builder
	if result.Truncated {
		fmt.Fprintf(&builder, "Found %d files, showing the best %d:\n\n", result.Total, len(result.Files))
	} else {
		fmt.Fprintf(&builder, "Found %d files:\n\n", len(result.Files))
	}
	for _, f := range result.Files {
		if f.IsDirectory {
			fmt.Fprintf(&builder, "  %s/  (directory, score %.1f)\n", f.VirtualPath, f.Score)
			continue
		}
		fmt.Fprintf(&builder, "  %s  (%s, score %.1f)\n", f.VirtualPath, formatFileSize(f.SizeBytes), f.Score)
	}
	return builder.String()
}

// FormatListResult formats a directory listing.
func FormatListResult(result workspace.ListResult) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "── %s (%d entries) ──\n", result.VirtualPath, len(result.Entries))
	if len(result.Entries) == 0 {
		builder.WriteString("(empty directory)\n")
	}
	for _, e := range result.Entries {
		switch {
		case e.IsMount:
			fmt.Fprintf(&builder, "  %s/  (mount)\n", e.VirtualPath)
		case e.IsDirectory:
			fmt.Fprintf(&builder, "  %s/\n", e.VirtualPath)
		default:
			fmt.Fprintf(&builder, "  %s  (%s, %s)\n", e.VirtualPath, formatFileSize(e.SizeBytes), humanize.Time(e.ModTime))
		}
	}
	if result.Truncated {
		builder.WriteString("(listing truncated; narrow the path or raise limit)\n")
	}
	return builder.String()
}

// FormatEditResult formats the outcome of an edit, replace or write.
func FormatEditResult(verb string, result workspace.EditResult) string {
	var builder strings.Builder
	if result.DryRun {
		fmt.Fprintf(&builder, "Dry run: %s %s (nothing written)\n", verb, result.VirtualPath)
	} else {
		fmt.Fprintf(&builder, "%s %s\n", capitalize(verb), result.VirtualPath)
	}
	if result.Replacements > 0 {
		fmt.Fprintf(&builder, "replacements: %d\n", result.Replacements)
	}
	fmt.Fprintf(&builder, "+%d -%d lines, %d lines total\n", result.Added, result.Removed, result.LineCount)
	if result.NewChecksum != "" {
		fmt.Fprintf(&builder, "new checksum: %s\n", result.NewChecksum)
	} else {
		fmt.Fprintf(&builder, "current checksum: %s\n", result.OldChecksum)
	}
	builder.WriteString("\n")
	builder.WriteString(result.Diff)
	builder.WriteString("\n")
	return builder.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}
