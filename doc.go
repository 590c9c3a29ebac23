// Package eventbridge wires up the per-runner execution core of an event
// bridge: a transform stage and a push stage per configured runner,
// regulated by a TCP-Reno-inspired congestion window, managed by a
// lifecycle manager that reacts to runner add/update/delete notifications.
//
// Bridge is the entry point. NewBridge builds the Circulator Context, the
// Rate Estimator, and the Lifecycle Manager; AddRunner/UpdateRunner/
// RemoveRunner install or tear down a runner's transform engine and sink;
// Enqueue hands an inbound record to a runner's event queue. A minimal
// setup fills a BridgeConfig, creates a Bridge, adds a runner with a
// TransformEngine and SinkTask, and calls Run with a cancellable context.
//
// # Transports
//
// The sinks and ingest packages deliver and receive batches through four
// Watermill-backed transports: channel, io, sqlite, and postgres. Each
// registers itself with the transport registry on import; sinks.Build and
// ingest.Build resolve a runner's transport.Config to the matching
// registered builder.
//
// # Transform engines
//
// The transformengines package adapts one inbound record to zero-or-one
// outbound records: Identity for passthrough, JSON and Proto for typed
// payload mapping, and Chain to compose several engines in sequence.
//
// # Rate estimation
//
// Every transform and push batch feeds an EstimateMetrics snapshot to the
// Rate Estimator, which publishes the next congestion window and
// slow-start threshold for that runner and stage: slow-start doubling
// while below threshold, linear growth above it, and multiplicative
// decrease on any error batch or executor queue pressure.
package eventbridge
