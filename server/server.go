package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/sandboxfs-mcp/tools"
)

// Version is reported in the MCP implementation info.
const Version = "0.1.0"

// Handlers groups the tool handlers registered on the server.
type Handlers struct {
	Mounts  *tools.MountsHandler
	List    *tools.ListHandler
	Read    *tools.ReadHandler
	Find    *tools.FindHandler
	Search  *tools.SearchHandler
	Edit    *tools.EditHandler
	Replace *tools.ReplaceHandler
	Write   *tools.WriteHandler
	Reindex *tools.ReindexHandler
	Status  *tools.StatusHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(handlers Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "sandboxfs-mcp",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server exposes a sandboxed virtual filesystem. Every path starts with a mount name (e.g. "docs/readme.md"); "/" lists the mounts. Nothing outside the mounts can be read or written, and symlinks leaving a mount are refused.

Workflow:
- Use sandboxfs_find to locate files by approximate name, sandboxfs_search to search contents.
- Read with sandboxfs_read before changing a file: it returns the checksum that sandboxfs_edit, sandboxfs_replace and sandboxfs_write expect.
- A CHECKSUM_MISMATCH error means the file changed since it was read: read it again and retry.
- Every write tool supports dryRun=true to preview the unified diff.
- Errors carry a code and a Hint line explaining how to recover.`,
		},
	)

	// Register sandboxfs_mounts tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "sandboxfs_mounts",
		Description: "List the mounts of the virtual filesystem and whether each root is reachable.",
	}, handlers.Mounts.Handle)

	// Register sandboxfs_list tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "sandboxfs_list",
		Description: `List a directory. "/" lists the mounts.

Entries are sorted by name. recursive=true walks the whole subtree (ignored directories such as .git and node_modules are skipped).`,
	}, handlers.List.Handle)

	// Register sandboxfs_read tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "sandboxfs_read",
		Description: `Read a text file. Returns numbered lines (format: "N│ content") and the file checksum needed for edits.

Paths:
  - "mount/dir/file.go": exact virtual path
  - "file.go": a bare name that does not exist is looked up across all mounts and read when unique
Lines:
  - "10" or "10-40": read a 1-indexed inclusive range; the range checksum is printed too`,
	}, handlers.Read.Handle)

	// Register sandboxfs_find tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "sandboxfs_find",
		Description: `Find files by fuzzy name. Ranks exact names first, then prefixes, substrings and subsequences; shallow paths and common source extensions win ties.

Examples:
  - "handler" - files named like handler
  - "user test" - every word must match the path
  - glob "**/*.md" - restrict to markdown files`,
	}, handlers.Find.Handle)

	// Register sandboxfs_search tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "sandboxfs_search",
		Description: `Search file contents. Matches are grouped into clusters of nearby lines with context.

Modes:
  - literal (default): exact text
  - regex: regular expression; patterns with catastrophic backtracking are refused
  - fuzzy: whitespace-insensitive, punctuation-tolerant
Presets: markdown headings, checklists, links, code fences and more (e.g. preset "checklist_open").
Directories require recursive=true; include filters files by glob (e.g. "**/*.go").`,
	}, handlers.Search.Handle)

	// Register sandboxfs_edit tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "sandboxfs_edit",
		Description: `Edit a line range of a text file and return the unified diff.

Actions: replace (default), insert_before, insert_after, delete_lines.
Pass expectedChecksum from sandboxfs_read; the edit is refused if the file changed since.`,
	}, handlers.Edit.Handle)

	// Register sandboxfs_replace tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "sandboxfs_replace",
		Description: `Replace text in a file and return the unified diff.

The pattern must match exactly once unless replaceAll=true; ambiguous matches list the candidate lines. Supports literal, regex and fuzzy modes.`,
	}, handlers.Replace.Handle)

	// Register sandboxfs_write tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "sandboxfs_write",
		Description: "Create a file (parent directories are created) or replace an existing one. Replacing requires expectedChecksum or overwrite=true. Returns the unified diff.",
	}, handlers.Write.Handle)

	// Register sandboxfs_reindex tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "sandboxfs_reindex",
		Description: "Force a rebuild of the file name index for a directory or every mount. Rarely needed: indexes expire on their own and a watcher drops them when files change.",
	}, handlers.Reindex.Handle)

	// Register sandboxfs_status tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "sandboxfs_status",
		Description: "Show server status: mounts, cached indexes, limits, memory usage and uptime.",
	}, handlers.Status.Handle)

	return mcpServer
}
