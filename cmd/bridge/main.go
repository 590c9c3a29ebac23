// Command bridge stands up a single runner reading from one transport
// topic and writing to another, demonstrating the wiring an embedding
// application does against the eventbridge package.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	eventbridge "github.com/nordlight/eventbridge"
	runtimeconfig "github.com/nordlight/eventbridge/internal/config"
)

func main() {
	var (
		runnerName = flag.String("runner", "default", "runner name to register")
		pubsub     = flag.String("pubsub", "channel", "transport backend: channel, io, sqlite, postgres")
		inTopic    = flag.String("in-topic", "inbound", "topic/subject the ingest pump subscribes to")
		outTopic   = flag.String("out-topic", "outbound", "topic/subject the sink publishes to")
		ioFile     = flag.String("io-file", "", "path used by the io transport, when -pubsub=io")
		sqliteFile = flag.String("sqlite-file", ":memory:", "path used by the sqlite transport, when -pubsub=sqlite")
	)
	flag.Parse()

	logger := eventbridge.NewSlogServiceLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := &runtimeconfig.Config{
		PubSubSystem: *pubsub,
		IOFile:       *ioFile,
		SQLiteFile:   *sqliteFile,
	}
	if err := runtimeconfig.ValidateConfig(cfg); err != nil {
		logger.Error("invalid transport configuration", err, eventbridge.LogFields{})
		os.Exit(1)
	}

	sink, err := eventbridge.BuildSink(ctx, cfg, *outTopic, logger)
	if err != nil {
		logger.Error("failed to build sink", err, eventbridge.LogFields{})
		os.Exit(1)
	}
	defer sink.Close()

	offsetMgr, err := eventbridge.NewSQLiteOffsetManager("bridge-offsets.db")
	if err != nil {
		logger.Error("failed to open offset store", err, eventbridge.LogFields{})
		os.Exit(1)
	}
	defer offsetMgr.Close()

	bridge := eventbridge.NewBridge(eventbridge.DefaultBridgeConfig(), logger, eventbridge.Dependencies{
		OffsetManager: offsetMgr,
		Hooks:         eventbridge.BatchHooks{},
	})

	runner := eventbridge.RunnerName(*runnerName)
	bridge.AddRunner(eventbridge.TargetRunnerConfig{
		SubscribeRunnerKeys: eventbridge.SubscribeRunnerKeys{RunnerName: runner},
		TransformEngine:     eventbridge.Identity{},
		SinkTask:            sink,
	})

	pump, err := eventbridge.BuildPump(ctx, cfg, *inTopic, bridge.Context, logger)
	if err != nil {
		logger.Error("failed to build ingest pump", err, eventbridge.LogFields{})
		os.Exit(1)
	}
	defer pump.Stop()

	logger.Info("bridge running", eventbridge.LogFields{
		"runner":    string(runner),
		"pubsub":    *pubsub,
		"in_topic":  *inTopic,
		"out_topic": *outTopic,
	})

	if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("bridge exited with error", err, eventbridge.LogFields{})
		os.Exit(1)
	}
}
