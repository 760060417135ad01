// Package batchship provides an embeddable batch shipping agent.
//
// Producers submit messages one at a time. Messages are accumulated into
// compressed batches and a single worker delivers every ready batch to a
// fixed topic on a fixed schedule (first cycle after one second, then every
// three seconds). A batch that cannot be delivered is handed back to the
// store and offered again later; it is never dropped silently.
//
// # Basic Usage
//
//	cfg := batchship.DefaultConfig()
//	cfg.Transport = batchship.TransportMQTT
//	cfg.BrokerURL = "tcp://localhost:1883"
//
//	b, err := batchship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := b.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	b.Submit(batchship.Text("temperature=21.5"))
//
//	// ... run until shutdown signal ...
//
//	if err := b.Stop(ctx); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Transports
//
// Config.Transport selects an MQTT broker ("mqtt") or the HTTP ingest
// service ("http"). With no transport the agent runs in diagnostic mode:
// ready batches are decompressed and their content is logged. A custom
// publisher can be injected with [WithTransport].
//
// # Durability
//
// Sealed batches are written to a spool before they are offered for
// delivery. With Config.SpoolDir set the spool is a pebble database and
// undelivered batches survive restarts; delivery is at-least-once.
//
// # Event Handling
//
// Implement [EventHandler] (or embed [BaseEventHandler]) and pass it via
// [WithEventHandler] to observe lifecycle changes and batch outcomes.
// Events are called synchronously from the flush worker.
//
// # Lifecycle States
//
// An instance can be in one of five states: [StateStopped],
// [StateStarting], [StateRunning], [StateStopping], or [StateCrashed].
// Use [Batchship.Status] to query the current state.
//
// # Plugins
//
//	import "github.com/bft-labs/batchship/plugins/httpingest"
//	import "github.com/bft-labs/batchship/plugins/dirwatch"
//
//	b, err := batchship.New(cfg,
//	    httpingest.WithHTTPIngest(httpingest.DefaultConfig()),
//	    dirwatch.WithDirWatch(dirwatch.Config{Dir: "/var/spool/batchship/inbox"}),
//	)
//
// Plugins are initialized on Start and shut down on Stop, before the store
// is closed.
package batchship
