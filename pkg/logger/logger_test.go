package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestCleanupOldLogsAndStats(t *testing.T) {
	chdir(t, t.TempDir())

	if err := os.MkdirAll(LogsDir, 0755); err != nil {
		t.Fatalf("Failed to create logs dir: %v", err)
	}

	oldFile := filepath.Join(LogsDir, "20240101_120000_arena_001.log")
	newFile := filepath.Join(LogsDir, "20250101_120000_arena_001.log")
	seedFile := filepath.Join(LogsDir, "20250101_120000_seed_001.log")
	for _, f := range []string{oldFile, newFile, seedFile} {
		if err := os.WriteFile(f, []byte("{}\n"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", f, err)
		}
	}
	past := time.Now().Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(oldFile, past, past); err != nil {
		t.Fatalf("Failed to age log file: %v", err)
	}

	if err := CleanupOldLogs(7); err != nil {
		t.Fatalf("CleanupOldLogs failed: %v", err)
	}

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("Expected old log file to be removed")
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Errorf("Expected recent log file to remain: %v", err)
	}

	stats, err := GetLogStats()
	if err != nil {
		t.Fatalf("GetLogStats failed: %v", err)
	}
	if stats["arena"] != 1 || stats["seed"] != 1 {
		t.Errorf("Unexpected stats: %v", stats)
	}
}

func TestCleanupOldLogs_NoDirectory(t *testing.T) {
	chdir(t, t.TempDir())

	if err := CleanupOldLogs(1); err != nil {
		t.Errorf("Expected no error without logs dir, got %v", err)
	}
}

func TestForBattle(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	caller := ForCaller(base, "user-1")
	ForBattle(*caller, "battle-1", "agent-1").Info().Msg("recorded")

	line := buf.String()
	for _, want := range []string{`"key_id":"user-1"`, `"battle_id":"battle-1"`, `"agent_id":"agent-1"`} {
		if !strings.Contains(line, want) {
			t.Errorf("Expected %s in %s", want, line)
		}
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to chdir to %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("Failed to restore working directory: %v", err)
		}
	})
}
