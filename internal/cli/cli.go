package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/yiblet/ammo/internal/classify"
	"github.com/yiblet/ammo/internal/clipboard"
	"github.com/yiblet/ammo/internal/clipboard/sysboard"
	"github.com/yiblet/ammo/internal/config"
	"github.com/yiblet/ammo/internal/engine"
	"github.com/yiblet/ammo/internal/history"
	"github.com/yiblet/ammo/internal/ipc"
	"github.com/yiblet/ammo/internal/logging"
	"github.com/yiblet/ammo/internal/search"
	"github.com/yiblet/ammo/internal/store"
	"github.com/yiblet/ammo/internal/store/dbstore"
	"github.com/yiblet/ammo/internal/tui"
)

const previewWidth = 80

// CLI handles the command-line interface
type CLI struct {
	configManager *config.ConfigManager
	config        *config.Config
	board         clipboard.Clipboard

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// session is an open connection to history: a daemon client or an engine
// running in this process.
type session struct {
	channel engine.Channel
	local   bool
	close   func()
}

// NewWithArgs creates a CLI from parsed flags. Flags override the config
// file, which overrides defaults.
func NewWithArgs(args *Args) (*CLI, error) {
	var cm *config.ConfigManager
	if args != nil && args.ConfigPath != nil {
		cm = config.NewConfigManagerWithPath(*args.ConfigPath)
	} else {
		var err error
		if cm, err = config.NewConfigManager(); err != nil {
			return nil, err
		}
	}

	cfg, err := cm.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if args != nil {
		if args.DBPath != nil {
			cfg.DBPath = *args.DBPath
		}
		if args.Socket != nil {
			cfg.SocketPath = *args.Socket
		}
		if args.LogLevel != nil {
			cfg.LogLevel = *args.LogLevel
		}
		if args.LogFormat != nil {
			cfg.LogFormat = *args.LogFormat
		}
	}

	return &CLI{
		configManager: cm,
		config:        cfg,
		board:         sysboard.New(),
		stdin:         os.Stdin,
		stdout:        os.Stdout,
		stderr:        os.Stderr,
	}, nil
}

// Execute runs the CLI command based on parsed arguments
func (c *CLI) Execute(ctx context.Context, args *Args) error {
	if err := args.Validate(); err != nil {
		return err
	}

	// The picker logs to a file once it owns the terminal
	if args.UI == nil && args.HasCommand() {
		logging.Setup(logging.ParseFormat(c.config.LogFormat), logging.ParseLevel(c.config.LogLevel))
	}

	switch {
	case args.Config != nil:
		return c.executeConfig(args.Config)
	case args.Daemon != nil:
		return c.executeDaemon(ctx, args.Daemon)
	case args.List != nil:
		return c.withSession(ctx, false, func(s *session) error { return c.executeList(ctx, s, args.List) })
	case args.Search != nil:
		return c.withSession(ctx, false, func(s *session) error { return c.executeSearch(ctx, s, args.Search) })
	case args.Delete != nil:
		return c.withSession(ctx, false, func(s *session) error { return c.executeDelete(ctx, s, args.Delete) })
	case args.Write != nil:
		return c.withSession(ctx, false, func(s *session) error { return c.executeWrite(ctx, s, args.Write) })
	case args.Clear != nil:
		return c.withSession(ctx, false, func(s *session) error { return c.executeClear(ctx, s, args.Clear) })
	default:
		ui := args.UI
		if ui == nil {
			ui = &UICmd{}
		}
		return c.executeUI(ctx, ui)
	}
}

// withSession runs fn against the daemon if one is listening, else against
// an engine opened in this process.
func (c *CLI) withSession(ctx context.Context, standalone bool, fn func(*session) error) error {
	s, err := c.open(ctx, standalone, engine.Options{DisableWatcher: true})
	if err != nil {
		return err
	}
	defer s.close()
	return fn(s)
}

func (c *CLI) open(ctx context.Context, standalone bool, opts engine.Options) (*session, error) {
	socket := ipc.SocketPath(c.config.SocketPath)
	if !standalone && ipc.IsRunning(socket) {
		client, err := ipc.Dial(socket)
		if err == nil {
			slog.Debug("using daemon", "socket", socket)
			return &session{channel: client, close: func() { client.Close() }}, nil
		}
		slog.Warn("daemon not reachable, opening history directly", "err", err)
	}

	eng, closeStore, err := c.openEngine(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		if err := eng.Run(ctx); err != nil {
			slog.Error("engine stopped", "err", err)
		}
	}()

	return &session{
		channel: eng,
		local:   true,
		close: func() {
			cancel()
			<-eng.Done()
			closeStore()
		},
	}, nil
}

func (c *CLI) openEngine(opts engine.Options) (*engine.Engine, func(), error) {
	dbPath := c.configManager.DatabasePath(c.config)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := dbstore.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database store: %w", err)
	}

	clips, err := history.New(db.History(), c.config.HistoryLimit)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to load history: %w", err)
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = c.config.Interval()
	}
	return engine.New(clips, c.board, opts), func() { db.Close() }, nil
}

// executeUI runs the interactive picker
func (c *CLI) executeUI(ctx context.Context, cmd *UICmd) error {
	logPath := filepath.Join(c.configManager.Dir(), "ammo.log")
	closeLog, err := logging.SetupFile(logPath, logging.ParseFormat(c.config.LogFormat), logging.ParseLevel(c.config.LogLevel))
	if err != nil {
		return err
	}
	defer closeLog()

	s, err := c.open(ctx, cmd.Standalone, engine.Options{})
	if err != nil {
		return err
	}
	defer s.close()

	model := tui.NewAppModel(s.channel, tui.Options{
		WindowLimit:  c.config.WindowLimit,
		MaxShortcuts: c.config.MaxShortcuts,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run picker: %w", err)
	}

	if model.Written != "" && s.local {
		c.hold(ctx)
	}
	return nil
}

// executeDaemon watches the clipboard and serves the socket until
// interrupted or until history can no longer be persisted.
func (c *CLI) executeDaemon(ctx context.Context, cmd *DaemonCmd) error {
	socket := ipc.SocketPath(c.config.SocketPath)
	if ipc.IsRunning(socket) {
		return fmt.Errorf("daemon already running on %s", socket)
	}

	eng, closeStore, err := c.openEngine(engine.Options{RecordInitial: cmd.RecordInitial})
	if err != nil {
		return err
	}
	defer closeStore()

	ln, err := ipc.Listen(socket)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", socket, err)
	}
	defer os.Remove(socket)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := eng.Run(ctx); err != nil {
			return err
		}
		// A clean engine exit still has to bring the server down
		return context.Canceled
	})
	g.Go(func() error {
		return ipc.NewServer(eng).Serve(ctx, ln)
	})

	slog.Info("daemon started", "socket", socket, "db", c.configManager.DatabasePath(c.config))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("daemon stopped")
	return nil
}

// executeList prints history, most recent first
func (c *CLI) executeList(ctx context.Context, s *session, cmd *ListCmd) error {
	clips, err := s.channel.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to list clips: %w", err)
	}
	if cmd.Limit > 0 && len(clips) > cmd.Limit {
		clips = clips[:cmd.Limit]
	}

	if cmd.JSON {
		enc := json.NewEncoder(c.stdout)
		for _, clip := range clips {
			if err := enc.Encode(clip); err != nil {
				return fmt.Errorf("failed to encode clip: %w", err)
			}
		}
		return nil
	}

	if len(clips) == 0 {
		fmt.Fprintln(c.stdout, "History is empty.")
		return nil
	}
	for i, clip := range clips {
		fmt.Fprintf(c.stdout, "%d\t%s\t%s\n", i, clip.Kind, classify.Preview(clip, previewWidth))
	}
	return nil
}

// executeSearch prints fuzzy matches, best first
func (c *CLI) executeSearch(ctx context.Context, s *session, cmd *SearchCmd) error {
	clips, err := s.channel.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to list clips: %w", err)
	}

	index := make(map[string]int, len(clips))
	for i, clip := range clips {
		index[clip.ID] = i
	}

	ids := search.Rank(cmd.Query, clips)
	if len(ids) == 0 {
		return fmt.Errorf("no matches found for: %s", cmd.Query)
	}
	if cmd.Limit > 0 && len(ids) > cmd.Limit {
		ids = ids[:cmd.Limit]
	}

	for _, id := range ids {
		i := index[id]
		if cmd.IndexOnly {
			fmt.Fprintf(c.stdout, "%d\n", i)
			continue
		}
		fmt.Fprintf(c.stdout, "%d\t%s\n", i, classify.Preview(clips[i], previewWidth))
	}
	return nil
}

// executeDelete removes each referenced clip
func (c *CLI) executeDelete(ctx context.Context, s *session, cmd *DeleteCmd) error {
	clips, err := s.channel.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to list clips: %w", err)
	}

	// Resolve everything first so indexes refer to the listing the user saw
	targets := make([]store.Clip, 0, len(cmd.Refs))
	for _, ref := range cmd.Refs {
		clip, err := resolve(clips, ref)
		if err != nil {
			return err
		}
		targets = append(targets, clip)
	}

	for _, clip := range targets {
		if err := s.channel.Delete(ctx, clip.ID); err != nil {
			return fmt.Errorf("failed to delete clip: %w", err)
		}
		fmt.Fprintf(c.stdout, "Deleted: %s\n", classify.Preview(clip, previewWidth))
	}
	return nil
}

// executeWrite restores a clip to the clipboard
func (c *CLI) executeWrite(ctx context.Context, s *session, cmd *WriteCmd) error {
	clips, err := s.channel.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to list clips: %w", err)
	}

	clip, err := resolve(clips, cmd.Ref)
	if err != nil {
		return err
	}

	if err := s.channel.Write(ctx, clip.ID); err != nil {
		return fmt.Errorf("failed to write to clipboard: %w", err)
	}
	fmt.Fprintf(c.stdout, "Copied to clipboard: %s\n", classify.Preview(clip, previewWidth))

	if s.local {
		c.hold(ctx)
	}
	return nil
}

// executeClear handles the 'ammo clear' command
func (c *CLI) executeClear(ctx context.Context, s *session, cmd *ClearCmd) error {
	clearer, ok := s.channel.(engine.Clearer)
	if !ok {
		return fmt.Errorf("clear is not supported by this connection")
	}

	clips, err := s.channel.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to list clips: %w", err)
	}
	if len(clips) == 0 {
		fmt.Fprintln(c.stdout, "History is already empty.")
		return nil
	}

	if !cmd.Force {
		fmt.Fprintf(c.stdout, "This will delete %d clip(s) from history. Continue? [y/N]: ", len(clips))
		response, _ := bufio.NewReader(c.stdin).ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(c.stdout, "Cancelled.")
			return nil
		}
	}

	if err := clearer.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Fprintf(c.stdout, "Cleared %d clip(s) from history.\n", len(clips))
	return nil
}

// executeConfig handles the 'ammo config' command
func (c *CLI) executeConfig(cmd *ConfigCmd) error {
	switch {
	case cmd.Get != nil:
		value, err := c.configManager.Get(cmd.Get.Key)
		if err != nil {
			return fmt.Errorf("failed to get config value: %w", err)
		}
		fmt.Fprintln(c.stdout, value)
		return nil
	case cmd.Set != nil:
		if err := c.configManager.Update(cmd.Set.Key, cmd.Set.Value); err != nil {
			return fmt.Errorf("failed to set config value: %w", err)
		}
		fmt.Fprintf(c.stdout, "Set %s = %s\n", cmd.Set.Key, cmd.Set.Value)
		return nil
	default:
		values, err := c.configManager.List()
		if err != nil {
			return fmt.Errorf("failed to list config values: %w", err)
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintf(c.stdout, "Current configuration (%s):\n", c.configManager.GetConfigPath())
		for _, k := range keys {
			fmt.Fprintf(c.stdout, "  %s = %s\n", k, values[k])
		}
		return nil
	}
}

// hold keeps this process alive while it owns the clipboard contents
func (c *CLI) hold(ctx context.Context) {
	holder, ok := c.board.(clipboard.Holder)
	if !ok {
		return
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(c.stderr, "Holding clipboard until it changes (Ctrl+C to stop, or run `ammo daemon`)")
	holder.Hold(ctx)
}

// resolve finds a clip by history index or ID
func resolve(clips []store.Clip, ref string) (store.Clip, error) {
	if i, err := strconv.Atoi(ref); err == nil {
		if i < 0 || i >= len(clips) {
			return store.Clip{}, fmt.Errorf("index %d out of range (history has %d clips)", i, len(clips))
		}
		return clips[i], nil
	}
	for _, clip := range clips {
		if clip.ID == ref {
			return clip, nil
		}
	}
	return store.Clip{}, fmt.Errorf("no clip matches %q", ref)
}
