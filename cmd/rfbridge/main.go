package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/rfbridge/internal/adapters/notify"
	"github.com/bft-labs/rfbridge/internal/cliconfig"
	"github.com/bft-labs/rfbridge/internal/domain"
	"github.com/bft-labs/rfbridge/pkg/log"
	"github.com/bft-labs/rfbridge/pkg/rfbridge"
	"github.com/bft-labs/rfbridge/plugins/configwatcher"
	"github.com/bft-labs/rfbridge/plugins/metricsserver"
)

const longHelp = `Relay several RFLink gateways to a single TCP consumer.

rfbridge keeps a connection open to every configured RFLink gateway and
serves everything they send on one TCP port, so Home Assistant's RFLink
integration in TCP mode sees all of them as a single device.

Highlights:
  - Reconnects to gateways and consumer forever, alerting on every fault.
  - Bounded queue: frames are dropped rather than delayed when nobody reads.
  - Configure via TOML file, .env, environment (RFLINK1_IP, ...) or flags.
  - Optional Telegram alerts and a Prometheus /metrics endpoint.`

var exampleUsage = strings.TrimSpace(`
  rfbridge --source RFLINK1=192.168.1.10:1001 --source RFLINK2=192.168.1.11:1001
  rfbridge --config $HOME/.rfbridge/config.toml --watch --metrics-addr :9100
`)

const notifierCloseTimeout = 5 * time.Second

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var (
		cfgPath    string
		envFile    string
		sourceArgs []string
	)

	boot := cliconfig.Logger()

	root := &cobra.Command{
		Use:          "rfbridge",
		Short:        "Relay several RFLink gateways to a single TCP consumer",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if err := cliconfig.LoadDotEnv(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}

			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}
			haveFile := cfgFile != "" && cliconfig.FileExists(cfgFile)
			if haveFile {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment overrides the file, flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if changed["source"] {
				sources, err := cliconfig.ParseSources(sourceArgs)
				if err != nil {
					return err
				}
				cfg.Sources = sources
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			zl, logCloser, err := cliconfig.NewLogger(cfg)
			if err != nil {
				boot.Warn().Err(err).Msg("cannot open log file, logging to console")
			}
			defer logCloser.Close()
			logger := log.NewZerologAdapterWithLogger(zl)

			zl.Info().Interface("config", cfg.Redacted()).Msg("configuration")

			notifier, closeNotifier := newNotifier(cfg, logger)
			defer closeNotifier()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			opts := []rfbridge.Option{
				rfbridge.WithLogger(logger),
				rfbridge.WithNotifier(notifier),
				rfbridge.WithPrometheus(reg),
				metricsserver.WithMetricsServer(metricsserver.Config{
					Addr:     cfg.MetricsAddr,
					Gatherer: reg,
				}),
			}
			if cfg.WatchConfig {
				switch {
				case !haveFile:
					zl.Warn().Str("path", cfgFile).Msg("--watch set but config file not found")
				case changed["source"]:
					zl.Warn().Msg("--watch ignored: sources given on the command line")
				default:
					opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
						Path:   cfgFile,
						Loader: reloadSources,
					}))
				}
			}

			b, err := rfbridge.New(rfbridge.Config{
				Sources:       cfg.Sources,
				Bridge:        cfg.Bridge(),
				QueueCapacity: cfg.QueueCapacity,
				FrameSize:     cfg.FrameSize,
				RetryDelay:    cfg.RetryDelay,
			}, opts...)
			if err != nil {
				return fmt.Errorf("create bridge: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := b.Start(ctx); err != nil {
				return fmt.Errorf("start bridge: %w", err)
			}

			<-ctx.Done()
			zl.Info().Msg("received signal, stopping...")

			if err := b.Stop(); err != nil {
				return fmt.Errorf("stop bridge: %w", err)
			}
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.rfbridge/config.toml)")
	root.Flags().StringVar(&envFile, "env-file", cliconfig.DefaultEnvFile, "dotenv file loaded before reading the environment")
	root.Flags().StringArrayVar(&sourceArgs, "source", nil, "upstream gateway as name=host:port (repeatable, replaces configured sources)")

	root.Flags().StringVar(&cfg.BridgeHost, "bridge-host", cfg.BridgeHost, "address the consumer connects to")
	root.Flags().IntVar(&cfg.BridgePort, "bridge-port", cfg.BridgePort, "port the consumer connects to")

	root.Flags().DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "pause after a failed connect, listen or read")
	root.Flags().IntVar(&cfg.QueueCapacity, "queue-capacity", cfg.QueueCapacity, "frames buffered before new ones are dropped")
	root.Flags().IntVar(&cfg.FrameSize, "frame-size", cfg.FrameSize, "maximum bytes read per frame")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "DEBUG, INFO, WARNING or ERROR")
	root.Flags().StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for rfbridge.log (defaults to the working directory)")
	root.Flags().BoolVar(&cfg.LogToDisk, "log-to-disk", cfg.LogToDisk, "write JSON logs to the log directory instead of the console")

	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (disabled when empty)")
	root.Flags().BoolVar(&cfg.WatchConfig, "watch", cfg.WatchConfig, "reload sources when the config file changes")

	if err := root.Execute(); err != nil {
		boot.Error().Err(err).Msg("rfbridge")
		os.Exit(1)
	}
}

// newNotifier returns the Telegram notifier when enabled, and a function
// flushing it on exit.
func newNotifier(cfg cliconfig.Config, logger log.Logger) (rfbridge.Notifier, func()) {
	if !cfg.TelegramEnabled {
		return notify.Nop{}, func() {}
	}
	tg := notify.NewTelegram(notify.TelegramConfig{
		BotKey: cfg.TelegramBotKey,
		ChatID: cfg.TelegramChatID,
	}, &http.Client{Timeout: notify.DefaultTimeout})
	async := notify.NewAsync(tg, logger, notify.AsyncOptions{})
	return async, func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifierCloseTimeout)
		defer cancel()
		if err := async.Close(ctx); err != nil {
			logger.Warn("pending notifications lost", log.Err(err))
		}
	}
}

// reloadSources reads the sources from the config file and applies the
// RFLINK{n} environment on top, the same way startup does.
func reloadSources(path string) ([]domain.Source, error) {
	sources, err := cliconfig.LoadSources(path)
	if err != nil {
		return nil, err
	}
	return cliconfig.ApplyEnvSources(sources)
}
