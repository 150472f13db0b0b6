package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/natefinch/lumberjack"
	"github.com/spf13/cobra"

	"github.com/lexandro/sandboxfs-mcp/config"
	"github.com/lexandro/sandboxfs-mcp/ignore"
	"github.com/lexandro/sandboxfs-mcp/register"
	"github.com/lexandro/sandboxfs-mcp/server"
	"github.com/lexandro/sandboxfs-mcp/tools"
	"github.com/lexandro/sandboxfs-mcp/watcher"
	"github.com/lexandro/sandboxfs-mcp/workspace"
)

// cliFlags holds command-line overrides. They apply only when the flag was
// set, so a config file value survives an unset flag.
type cliFlags struct {
	configPath      string
	mounts          []string
	logLevel        string
	logFile         string
	indexTTL        time.Duration
	indexCapacity   int
	includeHidden   bool
	excludes        []string
	maxFileSize     config.ByteSize
	maxResults      int
	noWatch         bool
	refreshInterval time.Duration
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var flags cliFlags

	command := &cobra.Command{
		Use:   "sandboxfs-mcp",
		Short: "Sandboxed virtual filesystem served over MCP stdio",
		Long: `Serves a virtual filesystem built from named mounts over the Model Context
Protocol (stdio). Paths outside the mounts, ".." segments and symlinks that
leave a mount are refused.`,
		Example: `  sandboxfs-mcp
  sandboxfs-mcp --mount notes=~/notes --mount code=./src
  sandboxfs-mcp --config sandboxfs.toml --log-file sandboxfs.log`,
		Version:       server.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	bindFlags(command, &flags)

	command.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, flags)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	}

	command.AddCommand(register.NewCommand(register.DeriveServerName(os.Args[0])))
	return command
}

func bindFlags(command *cobra.Command, flags *cliFlags) {
	defaults := config.Default()

	f := command.Flags()
	f.StringVar(&flags.configPath, "config", "", "TOML config file")
	f.StringArrayVar(&flags.mounts, "mount", nil, "Mount as name=path or a bare path (repeatable; default: the working directory)")
	f.StringVar(&flags.logLevel, "log-level", defaults.Log.Level, "Log level: debug|info|warn|error")
	f.StringVar(&flags.logFile, "log-file", "", "Log file path, rotated by size (default: stderr)")
	f.DurationVar(&flags.indexTTL, "index-ttl", defaults.Index.TTL.Duration, "How long a built file index is reused")
	f.IntVar(&flags.indexCapacity, "index-capacity", defaults.Index.Capacity, "Maximum number of cached index roots")
	f.BoolVar(&flags.includeHidden, "include-hidden", false, "Index and search dot files and dot directories")
	f.StringArrayVar(&flags.excludes, "exclude", nil, "Extra ignore glob (repeatable)")
	flags.maxFileSize = defaults.Limits.MaxFileSize
	f.Var(&flags.maxFileSize, "max-file-size", "Largest file that is read, searched or edited (e.g. 10MiB)")
	f.IntVar(&flags.maxResults, "max-results", defaults.Limits.MaxResults, "Default max results for find")
	f.BoolVar(&flags.noWatch, "no-watch", false, "Disable the filesystem watcher")
	f.DurationVar(&flags.refreshInterval, "refresh-interval", 0, "Rebuild expired mount indexes in the background at this interval (0 disables)")
}

// loadConfig layers defaults, the config file and the flags that were set.
func loadConfig(cmd *cobra.Command, flags cliFlags) (config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if len(flags.mounts) > 0 {
		cfg.Mounts = cfg.Mounts[:0]
		for _, value := range flags.mounts {
			m, err := config.ParseMount(value)
			if err != nil {
				return config.Config{}, err
			}
			cfg.Mounts = append(cfg.Mounts, m)
		}
	}
	if changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if changed("log-file") {
		cfg.Log.File = flags.logFile
	}
	if changed("index-ttl") {
		cfg.Index.TTL = config.Duration{Duration: flags.indexTTL}
	}
	if changed("index-capacity") {
		cfg.Index.Capacity = flags.indexCapacity
	}
	if changed("include-hidden") {
		cfg.Index.IncludeHidden = flags.includeHidden
	}
	if len(flags.excludes) > 0 {
		cfg.Index.Exclude = append(cfg.Index.Exclude, flags.excludes...)
	}
	if changed("max-file-size") {
		cfg.Limits.MaxFileSize = flags.maxFileSize
	}
	if changed("max-results") {
		cfg.Limits.MaxResults = flags.maxResults
	}
	if changed("no-watch") {
		cfg.Index.Watch = !flags.noWatch
	}
	if changed("refresh-interval") {
		cfg.Index.RefreshInterval = config.Duration{Duration: flags.refreshInterval}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("getting working directory: %w", err)
	}
	cfg.Normalize(cwd)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup logger (always to file or stderr, never to stdout - stdout is for MCP stdio)
	logger, closeLog := setupLogger(cfg.Log.Level, cfg.Log.File)
	defer closeLog()

	mountNames := make([]string, len(cfg.Mounts))
	for i, m := range cfg.Mounts {
		mountNames[i] = m.Name + "=" + m.Path
	}
	logger.Info("starting sandboxfs-mcp",
		"version", server.Version,
		"mounts", strings.Join(mountNames, ","),
		"maxFileSize", cfg.Limits.MaxFileSize,
		"indexTTL", cfg.Index.TTL,
		"watch", cfg.Index.Watch,
	)

	startTime := time.Now()

	ws, err := workspace.New(cfg.WorkspaceOptions(logger))
	if err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}

	// Perform initial indexing
	warm := warmIndexes(ctx, ws, logger)
	logger.Info("initial indexing complete",
		"files", warm.Files,
		"directories", warm.Directories,
		"failed", warm.Failed,
		"duration", time.Since(startTime),
	)

	if cfg.Index.Watch {
		fileWatcher, err := startWatcher(cfg, ws, logger)
		if err != nil {
			logger.Warn("failed to start file watcher, continuing without live updates", "error", err)
		} else {
			defer fileWatcher.Close()
			go fileWatcher.Run(ctx)
		}
	}

	if interval := cfg.Index.RefreshInterval.Duration; interval > 0 {
		go runPeriodicRefresh(ctx, interval, ws, logger)
	}

	mcpServer := server.Setup(server.Handlers{
		Mounts:  &tools.MountsHandler{Workspace: ws, Logger: logger},
		List:    &tools.ListHandler{Workspace: ws, Logger: logger},
		Read:    &tools.ReadHandler{Workspace: ws, Logger: logger},
		Find:    &tools.FindHandler{Workspace: ws, Logger: logger},
		Search:  &tools.SearchHandler{Workspace: ws, Logger: logger},
		Edit:    &tools.EditHandler{Workspace: ws, Logger: logger},
		Replace: &tools.ReplaceHandler{Workspace: ws, Logger: logger},
		Write:   &tools.WriteHandler{Workspace: ws, Logger: logger},
		Reindex: &tools.ReindexHandler{Workspace: ws, Logger: logger},
		Status:  &tools.StatusHandler{Workspace: ws, StartTime: startTime, Logger: logger},
	})

	logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("MCP server error", "error", err)
		return err
	}
	logger.Info("MCP server stopped")
	return nil
}

// startWatcher watches every mount root with that mount's ignore rules.
func startWatcher(cfg config.Config, ws *workspace.Workspace, logger *slog.Logger) (*watcher.Watcher, error) {
	roots := make([]watcher.Root, 0, len(cfg.Mounts))
	for _, m := range ws.Mounts() {
		roots = append(roots, watcher.Root{
			Path: m.AbsolutePath,
			Ignore: ignore.NewMatcher(ignore.MatcherOptions{
				RootDir:       m.AbsolutePath,
				ExcludedDirs:  cfg.Index.ExcludeDirs,
				ExtraPatterns: cfg.Index.Exclude,
				IncludeHidden: cfg.Index.IncludeHidden,
			}),
		})
	}
	return watcher.NewWatcher(roots, ws.Indexes(), logger)
}

// setupLogger creates an slog.Logger writing to stderr or a rotated file.
func setupLogger(level string, logFile string) (*slog.Logger, func()) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var writer io.Writer = os.Stderr
	closeFn := func() {}
	if logFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		writer = rotating
		closeFn = func() { rotating.Close() }
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler), closeFn
}
