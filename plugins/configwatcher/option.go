package configwatcher

import "github.com/bft-labs/rfbridge/pkg/rfbridge"

// WithConfigWatcher returns a bridge Option that reloads the upstream
// sources whenever the config file changes.
//
// Usage:
//
//	b, err := rfbridge.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:   "/etc/rfbridge/config.toml",
//	        Loader: loadSources,
//	    }),
//	)
func WithConfigWatcher(cfg Config) rfbridge.Option {
	return rfbridge.WithPlugin(New(cfg))
}
