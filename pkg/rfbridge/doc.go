// Package rfbridge provides an embeddable multi-RFLink TCP relay.
//
// A Bridge keeps one client connection open to every configured RFLink
// gateway, funnels everything they send into a small bounded queue and
// serves that queue to a single downstream consumer, typically Home
// Assistant's RFLink integration in TCP mode. Connections are retried
// forever; a queue that is full drops new frames; a consumer that
// connects first has the stale backlog discarded.
//
// # Basic Usage
//
//	cfg := rfbridge.Config{
//	    Sources: []rfbridge.Source{
//	        {Name: "RFLINK1", Host: "192.168.1.10", Port: 1001},
//	        {Name: "RFLINK2", Host: "192.168.1.11", Port: 1001},
//	    },
//	    Bridge: rfbridge.Endpoint{Host: "0.0.0.0", Port: 1234},
//	}
//
//	b, err := rfbridge.New(cfg, rfbridge.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := b.Start(ctx); err != nil {
//	    return err
//	}
//	defer b.Stop()
//
// # Alerts
//
// Every connection fault is logged and passed to the [Notifier] set with
// [WithNotifier]. Notify is called from the worker goroutines and must not
// block.
//
// # Lifecycle States
//
// A Bridge can be in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping], or [StateCrashed]. Use [Bridge.Status]
// to query the current state and [WithEventHandler] to observe changes.
//
// # Plugins
//
// Plugins run alongside the bridge and may replace its sources at runtime
// through [PluginConfig].Updater:
//
//	import "github.com/bft-labs/rfbridge/plugins/configwatcher"
//	import "github.com/bft-labs/rfbridge/plugins/metricsserver"
package rfbridge
