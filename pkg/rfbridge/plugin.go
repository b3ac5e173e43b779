package rfbridge

import (
	"context"

	"github.com/bft-labs/rfbridge/pkg/log"
)

// SourceUpdater applies a new set of upstream sources to a running bridge.
type SourceUpdater interface {
	UpdateSources(sources []Source) error
}

// PluginConfig is handed to every plugin on Start.
type PluginConfig struct {
	Bridge  Endpoint
	Sources []Source
	Logger  log.Logger
	Updater SourceUpdater
}

// Plugin extends a Bridge. Plugins are initialized in registration order
// on Start and shut down in reverse order on Stop.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}
