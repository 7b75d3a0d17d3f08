package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yiblet/ammo/internal/clipboard"
	"github.com/yiblet/ammo/internal/clipboard/mockboard"
	"github.com/yiblet/ammo/internal/history"
	"github.com/yiblet/ammo/internal/store"
	"github.com/yiblet/ammo/internal/store/dbstore"
)

type testCLI struct {
	*CLI
	board  *mockboard.MockClipboard
	stdout *bytes.Buffer
	dbPath string
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "ammo.db")
	socket := filepath.Join(dir, "none.sock")
	level := "error"

	c, err := NewWithArgs(&Args{ConfigPath: &configPath, DBPath: &dbPath, Socket: &socket, LogLevel: &level})
	if err != nil {
		t.Fatalf("NewWithArgs failed: %v", err)
	}

	board := mockboard.New()
	stdout := &bytes.Buffer{}
	c.board = board
	c.stdout = stdout
	c.stderr = &bytes.Buffer{}
	c.stdin = strings.NewReader("")

	return &testCLI{CLI: c, board: board, stdout: stdout, dbPath: dbPath}
}

// seed records clips oldest first, so the last one ends up at index 0.
func (tc *testCLI) seed(t *testing.T, clips ...store.Clip) {
	t.Helper()

	db, err := dbstore.NewSQLiteStore(tc.dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	h, err := history.New(db.History(), 0)
	if err != nil {
		t.Fatalf("failed to load history: %v", err)
	}
	for _, clip := range clips {
		if _, err := h.Insert(clip); err != nil {
			t.Fatalf("failed to insert clip: %v", err)
		}
	}
}

func (tc *testCLI) run(t *testing.T, args *Args) string {
	t.Helper()
	tc.stdout.Reset()
	if err := tc.Execute(context.Background(), args); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	return tc.stdout.String()
}

func textClip(s string) store.Clip {
	return store.NewClip(s, s, store.KindText)
}

func TestNewWithArgs_FlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("db_path: /from/file.db\nlog_level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(dir, "flag.db")
	c, err := NewWithArgs(&Args{ConfigPath: &configPath, DBPath: &dbPath})
	if err != nil {
		t.Fatalf("NewWithArgs failed: %v", err)
	}

	if c.config.DBPath != dbPath {
		t.Errorf("Expected db path %s, got %s", dbPath, c.config.DBPath)
	}
	if c.config.LogLevel != "debug" {
		t.Errorf("Expected log level from file, got %s", c.config.LogLevel)
	}
}

func TestNewWithArgs_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("history_limit: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewWithArgs(&Args{ConfigPath: &configPath}); err == nil {
		t.Error("Expected error for invalid config")
	}
}

func TestList(t *testing.T) {
	tc := newTestCLI(t)
	tc.seed(t, textClip("first"), textClip("second\nline two"), store.NewClip("<b>x</b>", "<b>x</b>", store.KindHTML))

	out := tc.run(t, &Args{List: &ListCmd{}})
	want := "0\thtml\t<b>x</b>\n1\ttext\tsecond\n2\ttext\tfirst\n"
	if out != want {
		t.Errorf("Unexpected list output:\n%q\nwant:\n%q", out, want)
	}

	out = tc.run(t, &Args{List: &ListCmd{Limit: 1}})
	if strings.Count(out, "\n") != 1 {
		t.Errorf("Expected one line with limit 1, got %q", out)
	}
}

func TestList_Empty(t *testing.T) {
	tc := newTestCLI(t)

	out := tc.run(t, &Args{List: &ListCmd{}})
	if !strings.Contains(out, "History is empty") {
		t.Errorf("Expected empty message, got %q", out)
	}
}

func TestList_JSON(t *testing.T) {
	tc := newTestCLI(t)
	tc.seed(t, textClip("alpha"), textClip("beta"))

	out := tc.run(t, &Args{List: &ListCmd{JSON: true}})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 JSON lines, got %d: %q", len(lines), out)
	}

	var clip store.Clip
	if err := json.Unmarshal([]byte(lines[0]), &clip); err != nil {
		t.Fatalf("Failed to decode JSON line: %v", err)
	}
	if clip.Contents != "beta" || clip.Kind != store.KindText || clip.ID == "" {
		t.Errorf("Unexpected first clip: %+v", clip)
	}
}

func TestSearch(t *testing.T) {
	tc := newTestCLI(t)
	tc.seed(t, textClip("git push origin main"), textClip("hello world"), textClip("git status"))

	tests := []struct {
		name string
		cmd  SearchCmd
		want string
	}{
		{"index only", SearchCmd{Query: "hello", IndexOnly: true}, "1\n"},
		{"with preview", SearchCmd{Query: "push"}, "2\tgit push origin main\n"},
		{"limit", SearchCmd{Query: "git", IndexOnly: true, Limit: 1}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tc.run(t, &Args{Search: &tt.cmd})
			if tt.want != "" && out != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, out)
			}
			if tt.cmd.Limit > 0 && strings.Count(out, "\n") != tt.cmd.Limit {
				t.Errorf("Expected %d lines, got %q", tt.cmd.Limit, out)
			}
		})
	}
}

func TestSearch_NoMatches(t *testing.T) {
	tc := newTestCLI(t)
	tc.seed(t, textClip("hello"))

	err := tc.Execute(context.Background(), &Args{Search: &SearchCmd{Query: "zzz"}})
	if err == nil || !strings.Contains(err.Error(), "no matches") {
		t.Errorf("Expected no matches error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	tc := newTestCLI(t)
	first, second, third := textClip("one"), textClip("two"), textClip("three")
	tc.seed(t, first, second, third)

	// Indexes refer to the listing before any deletion
	tc.run(t, &Args{Delete: &DeleteCmd{Refs: []string{"0", "2"}}})

	out := tc.run(t, &Args{List: &ListCmd{}})
	if out != "0\ttext\ttwo\n" {
		t.Errorf("Unexpected list after delete: %q", out)
	}

	tc.run(t, &Args{Delete: &DeleteCmd{Refs: []string{second.ID}}})
	out = tc.run(t, &Args{List: &ListCmd{}})
	if !strings.Contains(out, "History is empty") {
		t.Errorf("Expected empty history, got %q", out)
	}
}

func TestDelete_BadRef(t *testing.T) {
	tc := newTestCLI(t)
	tc.seed(t, textClip("one"))

	tests := []string{"5", "-1", "not-an-id"}
	for _, ref := range tests {
		t.Run(ref, func(t *testing.T) {
			if err := tc.Execute(context.Background(), &Args{Delete: &DeleteCmd{Refs: []string{ref}}}); err == nil {
				t.Errorf("Expected error for ref %q", ref)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	tc := newTestCLI(t)
	tc.seed(t, textClip("older"), textClip("newer"))

	tc.run(t, &Args{Write: &WriteCmd{Ref: "1"}})

	writes := tc.board.Writes()
	if len(writes) != 1 {
		t.Fatalf("Expected 1 clipboard write, got %d", len(writes))
	}
	if writes[0].Format != clipboard.FormatText || string(writes[0].Data) != "older" {
		t.Errorf("Unexpected write: %s %q", writes[0].Format, writes[0].Data)
	}
}

func TestClear(t *testing.T) {
	tests := []struct {
		name    string
		force   bool
		input   string
		cleared bool
	}{
		{"force", true, "", true},
		{"confirmed", false, "y\n", true},
		{"confirmed long", false, "YES\n", true},
		{"declined", false, "n\n", false},
		{"no input", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCLI(t)
			tc.seed(t, textClip("a"), textClip("b"))
			tc.stdin = strings.NewReader(tt.input)

			tc.run(t, &Args{Clear: &ClearCmd{Force: tt.force}})

			out := tc.run(t, &Args{List: &ListCmd{}})
			empty := strings.Contains(out, "History is empty")
			if empty != tt.cleared {
				t.Errorf("Expected cleared=%v, got list %q", tt.cleared, out)
			}
		})
	}
}

func TestConfig(t *testing.T) {
	tc := newTestCLI(t)

	tc.run(t, &Args{Config: &ConfigCmd{Set: &ConfigSetCmd{Key: "window-limit", Value: "5"}}})

	out := tc.run(t, &Args{Config: &ConfigCmd{Get: &ConfigGetCmd{Key: "window-limit"}}})
	if out != "5\n" {
		t.Errorf("Expected 5, got %q", out)
	}

	out = tc.run(t, &Args{Config: &ConfigCmd{List: &ConfigListCmd{}}})
	if !strings.Contains(out, "  window-limit = 5\n") || !strings.Contains(out, "  history-limit = 255\n") {
		t.Errorf("Unexpected config list: %q", out)
	}
	if strings.Index(out, "db-path") > strings.Index(out, "window-limit") {
		t.Errorf("Expected keys sorted, got %q", out)
	}

	if err := tc.Execute(context.Background(), &Args{Config: &ConfigCmd{Set: &ConfigSetCmd{Key: "bogus", Value: "1"}}}); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestResolve(t *testing.T) {
	clips := []store.Clip{textClip("a"), textClip("b")}

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"0", clips[0].ID, false},
		{"1", clips[1].ID, false},
		{clips[1].ID, clips[1].ID, false},
		{"2", "", true},
		{"missing", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := resolve(clips, tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolve(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if got.ID != tt.want {
				t.Errorf("resolve(%q) = %s, want %s", tt.ref, got.ID, tt.want)
			}
		})
	}
}

func TestArgsValidate(t *testing.T) {
	tests := []struct {
		name    string
		args    Args
		wantErr bool
	}{
		{"empty", Args{}, false},
		{"negative list limit", Args{List: &ListCmd{Limit: -1}}, true},
		{"negative search limit", Args{Search: &SearchCmd{Query: "x", Limit: -1}}, true},
		{"config without subcommand", Args{Config: &ConfigCmd{}}, true},
		{"config list", Args{Config: &ConfigCmd{List: &ConfigListCmd{}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.args.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHasCommand(t *testing.T) {
	if (&Args{}).HasCommand() {
		t.Error("Expected no command")
	}
	if !(&Args{List: &ListCmd{}}).HasCommand() {
		t.Error("Expected list command")
	}
}
