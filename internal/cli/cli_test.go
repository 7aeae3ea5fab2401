package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nhle/todolist/internal/model"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("todolist %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := newLogger(model.LogConfig{Level: "WARN", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "todo", 7)

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("info record written at warn level: %s", got)
	}
	if !strings.Contains(got, `"msg":"shown"`) || !strings.Contains(got, `"todo":7`) {
		t.Errorf("warn record missing or not JSON: %s", got)
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "todolist.log")
	logger, closer, err := newLogger(model.LogConfig{Level: "debug", File: path}, nil)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("to the file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "to the file") {
		t.Errorf("log file = %q", data)
	}
}

func TestAdminStatsOnFreshDatabase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TODOLIST_SERVER_DB_PATH", filepath.Join(dir, "todos.db"))
	t.Setenv("TODOLIST_LOG_FILE", filepath.Join(dir, "server.log"))

	out := run(t, "--config", filepath.Join(dir, "missing.yaml"), "admin", "stats")
	for _, want := range []string{"accounts", "todos", "categories"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	run(t, "--config", path, "config", "init")

	cfg, err := model.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "config", "init"})
	if err := cmd.Execute(); err == nil {
		t.Error("second init without --force should fail")
	}
}
