package cliconfig

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/rfbridge/internal/domain"
)

// Defaults used when neither file, environment nor flags set a value.
const (
	DefaultBridgeHost    = "localhost"
	DefaultBridgePort    = 1234
	DefaultRetryDelay    = 10 * time.Second
	DefaultQueueCapacity = 50
	DefaultFrameSize     = domain.DefaultFrameSize
	DefaultLogLevel      = "INFO"
)

// Config holds CLI configuration for rfbridge.
type Config struct {
	Sources []domain.Source

	BridgeHost string
	BridgePort int

	RetryDelay    time.Duration
	QueueCapacity int
	FrameSize     int

	LogDir    string
	LogToDisk bool
	LogLevel  string

	TelegramEnabled bool
	TelegramBotKey  string
	TelegramChatID  string

	MetricsAddr string
	WatchConfig bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BridgeHost:    DefaultBridgeHost,
		BridgePort:    DefaultBridgePort,
		RetryDelay:    DefaultRetryDelay,
		QueueCapacity: DefaultQueueCapacity,
		FrameSize:     DefaultFrameSize,
		LogLevel:      DefaultLogLevel,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.BridgeHost == "" {
		c.BridgeHost = DefaultBridgeHost
	}
	if !validPort(c.BridgePort) {
		return fmt.Errorf("%w: bridge port %d out of range", domain.ErrInvalidConfig, c.BridgePort)
	}
	for _, src := range c.Sources {
		if src.Port != 0 && !validPort(src.Port) {
			return fmt.Errorf("%w: source %s port %d out of range", domain.ErrInvalidConfig, src.Name, src.Port)
		}
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("%w: retry delay must be positive", domain.ErrInvalidConfig)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("%w: queue capacity must be positive", domain.ErrInvalidConfig)
	}
	if c.FrameSize <= 0 {
		return fmt.Errorf("%w: frame size must be positive", domain.ErrInvalidConfig)
	}
	if c.TelegramEnabled && (c.TelegramBotKey == "" || c.TelegramChatID == "") {
		return fmt.Errorf("%w: telegram enabled without bot key and chat id", domain.ErrInvalidConfig)
	}
	return nil
}

// Bridge returns the downstream endpoint.
func (c Config) Bridge() domain.Endpoint {
	return domain.Endpoint{Host: c.BridgeHost, Port: c.BridgePort}
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.TelegramBotKey != "" {
		c.TelegramBotKey = "*****"
	}
	return c
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

// ParseSource parses a --source value of the form name=host:port.
func ParseSource(value string) (domain.Source, error) {
	name, addr, ok := strings.Cut(value, "=")
	if !ok || name == "" {
		return domain.Source{}, fmt.Errorf("%w: source %q: want name=host:port", domain.ErrInvalidConfig, value)
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return domain.Source{}, fmt.Errorf("%w: source %q: %v", domain.ErrInvalidConfig, value, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || !validPort(port) {
		return domain.Source{}, fmt.Errorf("%w: source %q: invalid port %q", domain.ErrInvalidConfig, value, portStr)
	}
	return domain.Source{Name: name, Host: host, Port: port}, nil
}

// ParseSources parses every --source value.
func ParseSources(values []string) ([]domain.Source, error) {
	out := make([]domain.Source, 0, len(values))
	for _, v := range values {
		src, err := ParseSource(v)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" (any case) and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = strings.EqualFold(value, "true") || value == "1"
}
