// Package cli implements the gchat CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rcliao/gchat/internal/chat"
	"github.com/rcliao/gchat/internal/config"
	"github.com/rcliao/gchat/internal/gemini"
	"github.com/rcliao/gchat/internal/settings"
	"github.com/rcliao/gchat/internal/store"
	"github.com/rcliao/gchat/internal/stream"
	"github.com/spf13/cobra"
)

var (
	dbPath      string
	backendFlag string
	configPath  string
	formatFlag  string

	logLevel = new(slog.LevelVar)
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "gchat",
	Short: "Local chat client for Gemini models",
	Long:  "A local chat client for Gemini models. Chats, settings and prompts are kept in a single local database.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $GCHAT_DB or ~/.gchat/gchat.db)")
	RootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Storage backend: sqlite or badger (default: $GCHAT_BACKEND or sqlite)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.gchat/config.toml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

// app is everything a command needs, opened from the process config.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	settings *settings.Manager
	chats    *chat.Manager
	gemini   *gemini.Backend
	coord    *stream.Coordinator
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if backendFlag != "" {
		cfg.Backend = backendFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if lvl, err := config.ParseLevel(cfg.LogLevel); err == nil {
		logLevel.Set(lvl)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	st, err := store.Open(cfg.Backend, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	set := settings.NewManager(st, logger.With("component", "settings"))
	if err := set.Load(ctx); err != nil {
		st.Close()
		return nil, err
	}
	// The stored log level wins over the process config.
	if lvl, err := config.ParseLevel(set.Get().LogLevel); err == nil {
		logLevel.Set(lvl)
	}
	set.SetFallbackKey(cfg.Gemini.APIKey)

	chats := chat.NewManager(st, set, chat.NewState(), logger.With("component", "chat"))
	gem := gemini.New(logger.With("component", "gemini"))

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		settings: set,
		chats:    chats,
		gemini:   gem,
		coord:    stream.NewCoordinator(st, chats, set, gem, logger.With("component", "stream")),
	}, nil
}

func (a *app) Close() error { return a.store.Close() }

// mustOpen opens the app or exits.
func mustOpen(cmd *cobra.Command) *app {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open store", err)
	}
	return a
}

// chatOrActive returns id, or restores the active chat when id is empty.
func (a *app) chatOrActive(ctx context.Context, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	c, err := a.chats.Restore(ctx)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

// readInput returns the named file, or stdin when name is empty or "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func textFormat() bool { return formatFlag == "text" }

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func printOK(cmd *cobra.Command, fields map[string]any) {
	out := map[string]any{"ok": true}
	for k, v := range fields {
		out[k] = v
	}
	b, _ := json.Marshal(out)
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
