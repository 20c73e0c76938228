package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"pmdash/internal/api"
	"pmdash/internal/config"
	"pmdash/internal/storage"
	"pmdash/internal/ui"
)

type rootOptions struct {
	configPath string
	role       string
	resource   string
	baseURL    string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "pmdash",
		Short: "Terminal dashboard for projects and tasks",
		Long: `pmdash lists, searches, pages through and deletes projects and tasks
held by the project management backend. Managers see everything and may
create, edit and delete; employees see what is assigned to them.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config.toml (default: $PMDASH_CONFIG or the user config dir)")
	flags.StringVar(&opts.role, "role", "", "caller role, Manager or Employee (overrides config)")
	flags.StringVar(&opts.resource, "resource", "", "tab to open first: projects or tasks")
	flags.StringVar(&opts.baseURL, "base-url", "", "backend base URL (overrides config)")

	cmd.AddCommand(newHistoryCommand(opts))
	return cmd
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent deletes, saves and failures from the local journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			store, err := storage.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()
			return printHistory(cmd.OutOrStdout(), store, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if opts.role != "" {
		cfg.Role = opts.role
	}
	if opts.resource != "" {
		cfg.DefaultResource = opts.resource
	}
	if opts.baseURL != "" {
		cfg.BaseURL = opts.baseURL
	}
	return cfg, nil
}

func runDashboard(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	resource, err := ui.ParseResource(cfg.DefaultResource)
	if err != nil {
		return err
	}

	logger, closeLog := newLogger(cfg.LogPath, cfg.LogLevel, cmd.ErrOrStderr())
	defer closeLog()

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open journal", "path", cfg.DBPath, "error", err)
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	client, err := api.NewClient(api.Options{
		BaseURL: cfg.BaseURL,
		Token:   cfg.Token,
		Timeout: cfg.RequestTimeout(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	role := api.ParseRole(cfg.Role)
	logger.Info("starting dashboard", "base_url", cfg.BaseURL, "role", role.String(), "resource", resource.String())
	return ui.Run(cmd.Context(), ui.Deps{
		Backend:  client,
		Journal:  store,
		Config:   cfg,
		Role:     role,
		Resource: resource,
		Logger:   logger,
	})
}

// newLogger writes to path since the terminal belongs to the dashboard. If
// the file cannot be opened, logs are dropped after one warning on fallback.
func newLogger(path, level string, fallback io.Writer) (*slog.Logger, func()) {
	var w io.Writer = io.Discard
	closer := func() {}
	if path != "" {
		fileWriter, file, err := newLogFileWriter(path)
		if err != nil {
			fmt.Fprintf(fallback, "log file error: %v\n", err)
		} else {
			w = fileWriter
			closer = func() { _ = file.Close() }
		}
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
	return logger, closer
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printHistory(w io.Writer, store *storage.Store, limit int) error {
	entries, err := store.RecentActivity(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No activity yet")
		return err
	}
	for _, a := range entries {
		target := a.Resource
		if a.EntityID != 0 {
			target = fmt.Sprintf("%s #%d", a.Resource, a.EntityID)
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.CreatedAt.Local().Format("2006-01-02 15:04:05"), a.Kind, target, a.Message); err != nil {
			return err
		}
	}
	return nil
}
