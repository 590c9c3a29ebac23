package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordlight/eventbridge/internal/circulator"
	"github.com/nordlight/eventbridge/internal/ids"
	"github.com/nordlight/eventbridge/internal/jsoncodec"
	"github.com/nordlight/eventbridge/internal/logging"
	"github.com/nordlight/eventbridge/transport"
)

func buildMessage(payload []byte) *message.Message {
	return message.NewMessage(ids.CreateULID(), payload)
}

type stubConfig struct {
	ioFile string
}

func (c stubConfig) GetPubSubSystem() string { return "io" }
func (c stubConfig) GetIOFile() string       { return c.ioFile }
func (c stubConfig) GetSQLiteFile() string   { return "" }
func (c stubConfig) GetPostgresURL() string  { return "" }

func testLogger() logging.ServiceLogger {
	return logging.NewSlogServiceLogger(slog.New(slog.DiscardHandler))
}

type wireEnvelope struct {
	ID      string            `json:"id"`
	Runner  string            `json:"runner"`
	Payload []byte            `json:"payload"`
	Headers map[string]string `json:"headers,omitempty"`
}

type recordingErrorHandler struct{}

func (recordingErrorHandler) Handle(circulator.ConnectRecord, circulator.DropReason, error) {}

func TestPump_DecodesAndEnqueuesRecords(t *testing.T) {
	bgCtx := context.Background()
	circCtx := circulator.NewContext(circulator.DefaultBridgeConfig(), recordingErrorHandler{})
	runner := circulator.RunnerName("r1")
	circCtx.PutRunner(circulator.TargetRunnerConfig{
		SubscribeRunnerKeys: circulator.SubscribeRunnerKeys{RunnerName: runner},
	})

	cfg := stubConfig{ioFile: filepath.Join(t.TempDir(), "messages.log")}

	built, err := transport.Build(bgCtx, cfg, logging.NewWatermillAdapter(testLogger()))
	require.NoError(t, err)

	body, err := jsoncodec.Marshal(wireEnvelope{ID: "1", Runner: string(runner), Payload: []byte("hi")})
	require.NoError(t, err)

	pump, err := Build(bgCtx, cfg, "topic-ingest", circCtx, testLogger())
	require.NoError(t, err)
	defer pump.Stop()

	msg := buildMessage(body)
	require.NoError(t, built.Publisher.Publish("topic-ingest", msg))

	require.Eventually(t, func() bool {
		records := circCtx.TakeEventRecord(runner, 10)
		if len(records) == 1 {
			assert.Equal(t, "1", records[0].ID)
			return true
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestPump_NacksUndecodablePayload(t *testing.T) {
	bgCtx := context.Background()
	circCtx := circulator.NewContext(circulator.DefaultBridgeConfig(), recordingErrorHandler{})
	runner := circulator.RunnerName("r1")
	circCtx.PutRunner(circulator.TargetRunnerConfig{
		SubscribeRunnerKeys: circulator.SubscribeRunnerKeys{RunnerName: runner},
	})

	cfg := stubConfig{ioFile: filepath.Join(t.TempDir(), "messages.log")}
	built, err := transport.Build(bgCtx, cfg, logging.NewWatermillAdapter(testLogger()))
	require.NoError(t, err)

	pump, err := Build(bgCtx, cfg, "topic-bad", circCtx, testLogger())
	require.NoError(t, err)
	defer pump.Stop()

	require.NoError(t, built.Publisher.Publish("topic-bad", buildMessage([]byte("not json"))))

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, circCtx.TakeEventRecord(runner, 10))
}
