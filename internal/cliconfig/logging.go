package cliconfig

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogFileName is the file written under the log directory when logging to disk.
const LogFileName = "rfbridge.log"

var bootstrap zerolog.Logger

func init() {
	bootstrap = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// Logger returns the console logger used before configuration is loaded.
func Logger() zerolog.Logger {
	return bootstrap
}

// ParseLevel maps LOGGING_LEVEL names to zerolog levels. Unknown names
// yield info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG", "TRACE":
		return zerolog.DebugLevel
	case "INFO", "":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR", "EXCEPTION", "CRITICAL", "FATAL":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger builds the process logger from cfg. Console output goes to
// stderr; with LogToDisk, JSON lines are appended to LogFileName inside
// LogDir. An unusable LogDir falls back to the working directory with a
// warning. The returned closer releases the log file.
func NewLogger(cfg Config) (zerolog.Logger, io.Closer, error) {
	level := ParseLevel(cfg.LogLevel)
	if !cfg.LogToDisk {
		return bootstrap.Level(level), nopCloser{}, nil
	}

	dir := resolveLogDir(cfg.LogDir)
	f, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return bootstrap.Level(level), nopCloser{}, err
	}
	logger := zerolog.New(f).Level(level).With().Timestamp().Logger()
	return logger, f, nil
}

func resolveLogDir(dir string) string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	if dir == "" {
		return cwd
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		bootstrap.Warn().Str("log_dir", dir).Str("fallback", cwd).Msg("invalid log dir, using working directory")
		return cwd
	}
	return dir
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
