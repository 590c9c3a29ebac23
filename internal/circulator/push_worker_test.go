package circulator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushWorker_DeliversBatchAndCommits(t *testing.T) {
	cfg := fastBridgeConfig()
	ctx, estimator, offsetMgr, eh := newTestWorkerDeps(t)
	runner := RunnerName("r1")

	sink := &recordingSink{}
	ctx.PutRunner(TargetRunnerConfig{
		SubscribeRunnerKeys: SubscribeRunnerKeys{RunnerName: runner},
		SinkTask:            sink,
	})
	ctx.OfferTargetTaskQueue([]ConnectRecord{{ID: "1", Runner: runner}})

	worker := NewPushWorker(runner, ctx, estimator, offsetMgr, eh, BatchHooks{}, nil, nil, cfg)
	go worker.Run()
	defer func() {
		worker.Stop()
		worker.Join(time.Second)
	}()

	require.Eventually(t, func() bool {
		return offsetMgr.Committed("1")
	}, time.Second, 10*time.Millisecond)

	require.Len(t, sink.records, 1)
	assert.Equal(t, "1", sink.records[0][0].ID)
}

func TestPushWorker_SinkErrorRoutesToErrorHandlerWithoutCommit(t *testing.T) {
	cfg := fastBridgeConfig()
	ctx, estimator, offsetMgr, eh := newTestWorkerDeps(t)
	runner := RunnerName("r1")

	sink := &recordingSink{err: errors.New("boom")}
	ctx.PutRunner(TargetRunnerConfig{
		SubscribeRunnerKeys: SubscribeRunnerKeys{RunnerName: runner},
		SinkTask:            sink,
	})
	ctx.OfferTargetTaskQueue([]ConnectRecord{{ID: "1", Runner: runner}})

	worker := NewPushWorker(runner, ctx, estimator, offsetMgr, eh, BatchHooks{}, nil, nil, cfg)
	go worker.Run()
	defer func() {
		worker.Stop()
		worker.Join(time.Second)
	}()

	require.Eventually(t, func() bool {
		return len(eh.records) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, ReasonSinkError, eh.reasons[0])
	assert.False(t, offsetMgr.Committed("1"))
}

func TestPushWorker_StopJoinsPromptly(t *testing.T) {
	cfg := fastBridgeConfig()
	ctx, estimator, offsetMgr, eh := newTestWorkerDeps(t)
	runner := RunnerName("r1")
	ctx.PutRunner(TargetRunnerConfig{SubscribeRunnerKeys: SubscribeRunnerKeys{RunnerName: runner}})

	worker := NewPushWorker(runner, ctx, estimator, offsetMgr, eh, BatchHooks{}, nil, nil, cfg)
	go worker.Run()

	worker.Stop()
	assert.True(t, worker.Join(time.Second))
}
