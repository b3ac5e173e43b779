package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"WARNING", zerolog.WarnLevel},
		{"warn", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"EXCEPTION", zerolog.ErrorLevel},
		{"CRITICAL", zerolog.ErrorLevel},
		{"VERBOSE", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_Console(t *testing.T) {
	logger, closer, err := NewLogger(Config{LogLevel: "ERROR"})
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	if logger.GetLevel() != zerolog.ErrorLevel {
		t.Errorf("level = %v, want error", logger.GetLevel())
	}
}

func TestNewLogger_File(t *testing.T) {
	dir := t.TempDir()
	logger, closer, err := NewLogger(Config{LogDir: dir, LogToDisk: true, LogLevel: "INFO"})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info().Str("source", "RFLINK1").Msg("connected")
	logger.Debug().Msg("hidden")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	if !strings.Contains(out, `"source":"RFLINK1"`) || !strings.Contains(out, `"message":"connected"`) {
		t.Errorf("log file = %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at info level: %q", out)
	}
}

func TestNewLogger_InvalidDirFallsBack(t *testing.T) {
	cwd := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(cwd); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(prev)

	_, closer, err := NewLogger(Config{LogDir: filepath.Join(cwd, "missing"), LogToDisk: true})
	if err != nil {
		t.Fatal(err)
	}
	closer.Close()

	if !FileExists(filepath.Join(cwd, LogFileName)) {
		t.Error("log file not created in working directory")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "RFLINK1_IP=10.0.0.5\nRFLINK_BRIDGE_PORT=9999\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("RFLINK_BRIDGE_PORT", "1234")
	t.Setenv("RFLINK1_IP", "")
	os.Unsetenv("RFLINK1_IP")

	if err := LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("RFLINK1_IP"); got != "10.0.0.5" {
		t.Errorf("RFLINK1_IP = %q, want 10.0.0.5", got)
	}
	if got := os.Getenv("RFLINK_BRIDGE_PORT"); got != "1234" {
		t.Errorf("RFLINK_BRIDGE_PORT = %q, existing value should win", got)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadDotEnv(missing) = %v, want nil", err)
	}
}
