package rfbridge

import (
	"fmt"
	"time"

	"github.com/bft-labs/rfbridge/internal/app"
	"github.com/bft-labs/rfbridge/internal/domain"
)

// Source is one upstream RFLink gateway. A source without host or port is
// disabled and only reported at startup.
type Source = domain.Source

// Endpoint is a host and port pair.
type Endpoint = domain.Endpoint

// Config configures a Bridge.
type Config struct {
	// Sources are the upstream gateways to read from.
	Sources []Source

	// Bridge is the endpoint the downstream consumer connects to.
	Bridge Endpoint

	// QueueCapacity is the number of frames buffered while the consumer
	// is slow or absent. Defaults to 50.
	QueueCapacity int

	// FrameSize is the maximum number of bytes read per frame. Defaults to 1024.
	FrameSize int

	// RetryDelay is the pause after a failed connect, listen or read.
	// Defaults to 10s.
	RetryDelay time.Duration

	// ShutdownTimeout bounds Stop. Defaults to 30s.
	ShutdownTimeout time.Duration
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.Bridge.Host == "" {
		c.Bridge.Host = "localhost"
	}
	if c.Bridge.Port == 0 {
		c.Bridge.Port = 1234
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = app.DefaultQueueCapacity
	}
	if c.FrameSize == 0 {
		c.FrameSize = domain.DefaultFrameSize
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = app.DefaultRetryDelay
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = app.ShutdownTimeout
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Bridge.Port < 0 || c.Bridge.Port > 65535 {
		return fmt.Errorf("%w: bridge port %d out of range", domain.ErrInvalidConfig, c.Bridge.Port)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("%w: queue capacity must be positive", domain.ErrInvalidConfig)
	}
	if c.FrameSize < 0 {
		return fmt.Errorf("%w: frame size must be positive", domain.ErrInvalidConfig)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must be positive", domain.ErrInvalidConfig)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive", domain.ErrInvalidConfig)
	}
	return nil
}
