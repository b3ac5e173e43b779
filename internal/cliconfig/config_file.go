package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/rfbridge/internal/domain"
)

// FileSource is one [[sources]] table.
type FileSource struct {
	Name string `toml:"name"`
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	BridgeHost      string       `toml:"bridge_host"`
	BridgePort      int          `toml:"bridge_port"`
	RetryDelay      string       `toml:"retry_delay"`
	QueueCapacity   int          `toml:"queue_capacity"`
	FrameSize       int          `toml:"frame_size"`
	LogDir          string       `toml:"log_dir"`
	LogToDisk       *bool        `toml:"log_to_disk"`
	LogLevel        string       `toml:"log_level"`
	TelegramEnabled *bool        `toml:"telegram_enabled"`
	TelegramBotKey  string       `toml:"telegram_bot_key"`
	TelegramChatID  string       `toml:"telegram_chat_id"`
	MetricsAddr     string       `toml:"metrics_addr"`
	WatchConfig     *bool        `toml:"watch_config"`
	Sources         []FileSource `toml:"sources"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.rfbridge/config.toml, or "" if the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rfbridge", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("bridge-host", fc.BridgeHost, &cfg.BridgeHost)
	s.setString("log-dir", fc.LogDir, &cfg.LogDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("telegram-bot-key", fc.TelegramBotKey, &cfg.TelegramBotKey)
	s.setString("telegram-chat-id", fc.TelegramChatID, &cfg.TelegramChatID)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	if err := s.setDuration("retry-delay", fc.RetryDelay, &cfg.RetryDelay); err != nil {
		return err
	}

	s.setInt("bridge-port", fc.BridgePort, &cfg.BridgePort)
	s.setInt("queue-capacity", fc.QueueCapacity, &cfg.QueueCapacity)
	s.setInt("frame-size", fc.FrameSize, &cfg.FrameSize)

	s.setBool("log-to-disk", fc.LogToDisk, &cfg.LogToDisk)
	s.setBool("telegram-enabled", fc.TelegramEnabled, &cfg.TelegramEnabled)
	s.setBool("watch", fc.WatchConfig, &cfg.WatchConfig)

	if len(fc.Sources) > 0 && !changed["source"] {
		cfg.Sources = fc.ToSources()
	}
	return nil
}

// ToSources converts the [[sources]] tables. Unnamed entries are named
// after their position.
func (fc FileConfig) ToSources() []domain.Source {
	out := make([]domain.Source, 0, len(fc.Sources))
	for i, s := range fc.Sources {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("source%d", i+1)
		}
		out = append(out, domain.Source{Name: name, Host: s.Host, Port: s.Port})
	}
	return out
}

// LoadSources reads only the upstream sources from the file at path.
// The config watcher uses it to hot reload.
func LoadSources(path string) ([]domain.Source, error) {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return nil, err
	}
	return fc.ToSources(), nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
