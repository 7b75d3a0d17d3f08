package cli

import (
	"fmt"
)

// Args represents the top-level command structure
type Args struct {
	UI     *UICmd     `arg:"subcommand:ui" help:"Pick a clip from history (default)"`
	Daemon *DaemonCmd `arg:"subcommand:daemon" help:"Watch the clipboard and serve history over a local socket"`
	List   *ListCmd   `arg:"subcommand:list" help:"Print history, most recent first"`
	Search *SearchCmd `arg:"subcommand:search" help:"Fuzzy search history"`
	Delete *DeleteCmd `arg:"subcommand:delete" help:"Delete clips by index or ID"`
	Write  *WriteCmd  `arg:"subcommand:write" help:"Put a clip back on the clipboard"`
	Clear  *ClearCmd  `arg:"subcommand:clear" help:"Delete the whole history"`
	Config *ConfigCmd `arg:"subcommand:config" help:"Manage configuration"`

	ConfigPath *string `arg:"--config,env:AMMO_CONFIG" help:"Config file path (default: ~/.config/ammo/config.yaml)"`
	DBPath     *string `arg:"--db,env:AMMO_DB" help:"History database path"`
	Socket     *string `arg:"--socket" help:"Daemon socket path"`
	LogLevel   *string `arg:"--log-level" help:"debug, info, warn or error"`
	LogFormat  *string `arg:"--log-format" help:"auto, text or json"`
}

// UICmd represents the 'ammo ui' command
type UICmd struct {
	Standalone bool `arg:"--standalone" help:"Do not connect to a running daemon"`
}

// DaemonCmd represents the 'ammo daemon' command
type DaemonCmd struct {
	RecordInitial bool `arg:"--record-initial" help:"Record whatever is on the clipboard at startup"`
}

// ListCmd represents the 'ammo list' command
type ListCmd struct {
	Limit int  `arg:"-n,--limit" help:"Show at most N clips (0 = all)"`
	JSON  bool `arg:"--json" help:"Print clips as JSON lines"`
}

// SearchCmd represents the 'ammo search' command
type SearchCmd struct {
	Query     string `arg:"positional,required" help:"Fuzzy query"`
	Limit     int    `arg:"-n,--limit" help:"Show at most N matches (0 = all)"`
	IndexOnly bool   `arg:"-i,--index-only" help:"Print only history indexes"`
}

// DeleteCmd represents the 'ammo delete' command
type DeleteCmd struct {
	Refs []string `arg:"positional,required" help:"History index (0 = newest) or clip ID"`
}

// WriteCmd represents the 'ammo write' command
type WriteCmd struct {
	Ref string `arg:"positional" default:"0" help:"History index (0 = newest) or clip ID"`
}

// ClearCmd represents the 'ammo clear' command
type ClearCmd struct {
	Force bool `arg:"-f,--force" help:"Skip confirmation prompt"`
}

// ConfigCmd represents the 'ammo config' command
type ConfigCmd struct {
	Get  *ConfigGetCmd  `arg:"subcommand:get" help:"Get a configuration value"`
	Set  *ConfigSetCmd  `arg:"subcommand:set" help:"Set a configuration value"`
	List *ConfigListCmd `arg:"subcommand:list" help:"List all configuration values"`
}

// ConfigGetCmd represents the 'ammo config get' command
type ConfigGetCmd struct {
	Key string `arg:"positional,required" help:"Configuration key"`
}

// ConfigSetCmd represents the 'ammo config set' command
type ConfigSetCmd struct {
	Key   string `arg:"positional,required" help:"Configuration key"`
	Value string `arg:"positional,required" help:"Configuration value"`
}

// ConfigListCmd represents the 'ammo config list' command
type ConfigListCmd struct{}

// Description returns the program description
func (Args) Description() string {
	return "ammo - clipboard history you can search and paste back"
}

// Version returns the program version
func (Args) Version() string {
	return "ammo 0.1.0"
}

// Epilogue returns additional help text
func (Args) Epilogue() string {
	return `Examples:
  ammo daemon &                    # Record everything you copy
  ammo                             # Pick a clip interactively
  ammo list -n 5                   # Five most recent clips
  ammo search "git push"           # Fuzzy search history
  ammo write 2                     # Restore the third most recent clip
  ammo delete 0                    # Forget the newest clip
  ammo config set poll-interval 1s

Without a running daemon, commands open the history database directly.`
}

// HasCommand reports whether any subcommand was given
func (args *Args) HasCommand() bool {
	return args.UI != nil || args.Daemon != nil || args.List != nil || args.Search != nil ||
		args.Delete != nil || args.Write != nil || args.Clear != nil || args.Config != nil
}

// Validate performs validation on the parsed arguments
func (args *Args) Validate() error {
	if args.List != nil && args.List.Limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}
	if args.Search != nil {
		return args.Search.Validate()
	}
	if args.Config != nil {
		return args.Config.Validate()
	}
	return nil
}

// Validate validates search command arguments
func (s *SearchCmd) Validate() error {
	if s.Limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}
	return nil
}

// Validate validates config command arguments
func (c *ConfigCmd) Validate() error {
	if c.Get == nil && c.Set == nil && c.List == nil {
		return fmt.Errorf("no config subcommand specified")
	}
	return nil
}
