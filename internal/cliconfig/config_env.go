package cliconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/bft-labs/rfbridge/internal/domain"
)

// Environment variable names. The RFLINK* and logging names are the ones
// existing deployments already use.
const (
	EnvBridgeHost      = "RFLINK_BRIDGE_IP"
	EnvBridgePort      = "RFLINK_BRIDGE_PORT"
	EnvLogDir          = "LOG_DIR"
	EnvLogToDisk       = "WRITE_LOG_TO_DISK"
	EnvLogLevel        = "LOGGING_LEVEL"
	EnvTelegramEnabled = "TELEGRAM_ENABLED"
	EnvTelegramBotKey  = "TELEGRAM_BOT_KEY"
	EnvTelegramChatID  = "TELEGRAM_BOT_CHAT_ID"
	EnvRetryDelay      = "RFBRIDGE_RETRY_DELAY"
	EnvQueueCapacity   = "RFBRIDGE_QUEUE_CAPACITY"
	EnvFrameSize       = "RFBRIDGE_FRAME_SIZE"
	EnvMetricsAddr     = "RFBRIDGE_METRICS_ADDR"
	EnvWatchConfig     = "RFBRIDGE_WATCH_CONFIG"
)

// minEnvSources is the number of RFLINK{n} slots that are always reported,
// even when unset.
const minEnvSources = 3

// ApplyEnvConfig applies environment variables on top of cfg.
// Values override the file config but never a flag that was set explicitly.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("bridge-host", os.Getenv(EnvBridgeHost), &cfg.BridgeHost)
	s.setString("log-dir", os.Getenv(EnvLogDir), &cfg.LogDir)
	s.setString("log-level", os.Getenv(EnvLogLevel), &cfg.LogLevel)
	s.setString("telegram-bot-key", os.Getenv(EnvTelegramBotKey), &cfg.TelegramBotKey)
	s.setString("telegram-chat-id", os.Getenv(EnvTelegramChatID), &cfg.TelegramChatID)
	s.setString("metrics-addr", os.Getenv(EnvMetricsAddr), &cfg.MetricsAddr)

	if err := s.setIntFromString("bridge-port", os.Getenv(EnvBridgePort), &cfg.BridgePort); err != nil {
		return err
	}
	if err := s.setIntFromString("queue-capacity", os.Getenv(EnvQueueCapacity), &cfg.QueueCapacity); err != nil {
		return err
	}
	if err := s.setIntFromString("frame-size", os.Getenv(EnvFrameSize), &cfg.FrameSize); err != nil {
		return err
	}
	if err := s.setDuration("retry-delay", os.Getenv(EnvRetryDelay), &cfg.RetryDelay); err != nil {
		return err
	}

	s.setBoolFromString("log-to-disk", os.Getenv(EnvLogToDisk), &cfg.LogToDisk)
	s.setBoolFromString("telegram-enabled", os.Getenv(EnvTelegramEnabled), &cfg.TelegramEnabled)
	s.setBoolFromString("watch", os.Getenv(EnvWatchConfig), &cfg.WatchConfig)

	if changed["source"] {
		return nil
	}
	sources, err := ApplyEnvSources(cfg.Sources)
	if err != nil {
		return err
	}
	cfg.Sources = sources
	return nil
}

// ApplyEnvSources merges the RFLINK{n}_IP / RFLINK{n}_PORT pairs into base.
// A pair replaces the base source of the same name (RFLINK{n}), otherwise
// it is appended. Slots 1..3 are always considered; higher slots are
// scanned while either variable is present. When base is empty, unset
// slots 1..3 are kept as disabled sources so they are reported at startup.
func ApplyEnvSources(base []domain.Source) ([]domain.Source, error) {
	out := append([]domain.Source(nil), base...)
	keepDisabled := len(base) == 0

	for n := 1; ; n++ {
		name := fmt.Sprintf("RFLINK%d", n)
		host, hasHost := os.LookupEnv(name + "_IP")
		portStr, hasPort := os.LookupEnv(name + "_PORT")
		if n > minEnvSources && !hasHost && !hasPort {
			break
		}

		idx := indexOf(out, name)
		host = strings.TrimSpace(host)
		portStr = strings.TrimSpace(portStr)
		if host == "" && portStr == "" {
			if idx < 0 && keepDisabled {
				out = append(out, domain.Source{Name: name})
			}
			continue
		}

		src := domain.Source{Name: name, Host: host}
		s := newConfigSetter(nil)
		if err := s.setIntFromString(name+"_PORT", portStr, &src.Port); err != nil {
			return nil, err
		}
		if idx >= 0 {
			out[idx] = src
		} else {
			out = append(out, src)
		}
	}
	return out, nil
}

func indexOf(sources []domain.Source, name string) int {
	for i, s := range sources {
		if strings.EqualFold(s.Name, name) {
			return i
		}
	}
	return -1
}
