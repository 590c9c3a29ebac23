package circulator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridge_EndToEndRecordFlowsThroughSinkAndCommits(t *testing.T) {
	cfg := fastBridgeConfig()
	offsetMgr := NewNoopOffsetManager()
	sink := &recordingSink{}

	bridge := NewBridge(cfg, nil, Dependencies{OffsetManager: offsetMgr})
	runner := RunnerName("r1")

	bridge.AddRunner(TargetRunnerConfig{
		SubscribeRunnerKeys: SubscribeRunnerKeys{RunnerName: runner},
		TransformEngine:     funcEngine{fn: func(r ConnectRecord) (*ConnectRecord, error) { return &r, nil }},
		SinkTask:            sink,
	})
	defer bridge.Shutdown()

	require.NoError(t, bridge.Enqueue(ConnectRecord{ID: "1", Runner: runner}))

	require.Eventually(t, func() bool {
		return offsetMgr.Committed("1")
	}, time.Second, 10*time.Millisecond)

	require.Len(t, sink.records, 1)
	assert.Equal(t, "1", sink.records[0][0].ID)
}

func TestBridge_UpdateRunnerRestartsWorkersWithoutLosingRunnerIdentity(t *testing.T) {
	cfg := fastBridgeConfig()
	bridge := NewBridge(cfg, nil, Dependencies{})
	runner := RunnerName("r1")

	bridge.AddRunner(TargetRunnerConfig{SubscribeRunnerKeys: SubscribeRunnerKeys{RunnerName: runner}})
	defer bridge.Shutdown()

	bridge.UpdateRunner(TargetRunnerConfig{SubscribeRunnerKeys: SubscribeRunnerKeys{RunnerName: runner}})

	assert.Contains(t, bridge.Lifecycle.Runners(), runner)
}

func TestBridge_RemoveRunnerEvictsBundle(t *testing.T) {
	cfg := fastBridgeConfig()
	bridge := NewBridge(cfg, nil, Dependencies{})
	runner := RunnerName("r1")

	bridge.AddRunner(TargetRunnerConfig{SubscribeRunnerKeys: SubscribeRunnerKeys{RunnerName: runner}})
	bridge.RemoveRunner(runner)

	assert.NotContains(t, bridge.Lifecycle.Runners(), runner)
}

func TestBridge_RunShutsDownOnContextCancel(t *testing.T) {
	cfg := fastBridgeConfig()
	bridge := NewBridge(cfg, nil, Dependencies{})
	runner := RunnerName("r1")
	bridge.AddRunner(TargetRunnerConfig{SubscribeRunnerKeys: SubscribeRunnerKeys{RunnerName: runner}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	assert.Empty(t, bridge.Lifecycle.Runners())
}
