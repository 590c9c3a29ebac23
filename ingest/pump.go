// Package ingest supplements the circulator core with a concrete inbound
// source: a Pump that subscribes to a transport topic and feeds decoded
// records into a runner's event queue. spec.md leaves the inbound source
// out of scope; this is one complete, testable implementation of it.
package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/nordlight/eventbridge/internal/circulator"
	"github.com/nordlight/eventbridge/internal/jsoncodec"
	"github.com/nordlight/eventbridge/internal/logging"
	"github.com/nordlight/eventbridge/internal/metadata"
	"github.com/nordlight/eventbridge/transport"

	_ "github.com/nordlight/eventbridge/transport/transports"
)

// wireRecord mirrors sinks.wireRecord; the pump decodes whatever a Sink
// last encoded, so the two shapes must stay in lockstep.
type wireRecord struct {
	ID      string            `json:"id"`
	Runner  string            `json:"runner"`
	Payload []byte            `json:"payload"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Pump subscribes to a topic and enqueues every decoded message onto the
// Circulator Context's event queue for its runner.
type Pump struct {
	Topic        string
	Subscriber   message.Subscriber
	Context      *circulator.Context
	Logger       logging.ServiceLogger
	EnqueueBlock time.Duration

	stopped atomic.Bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	once    sync.Once
}

// Build constructs a Pump by resolving cfg's PubSubSystem through the
// transport registry and subscribing to topic.
func Build(ctx context.Context, cfg transport.Config, topic string, circCtx *circulator.Context, logger logging.ServiceLogger) (*Pump, error) {
	built, err := transport.Build(ctx, cfg, logging.NewWatermillAdapter(logger))
	if err != nil {
		return nil, err
	}

	messages, err := built.Subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	p := &Pump{
		Topic:        topic,
		Subscriber:   built.Subscriber,
		Context:      circCtx,
		Logger:       logger,
		EnqueueBlock: 2 * time.Second,
		doneCh:       make(chan struct{}),
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	go p.run(runCtx, messages)

	return p, nil
}

func (p *Pump) run(ctx context.Context, messages <-chan *message.Message) {
	defer close(p.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			p.handle(msg)
		}
	}
}

func (p *Pump) handle(msg *message.Message) {
	var decoded wireRecord
	if err := jsoncodec.Unmarshal(msg.Payload, &decoded); err != nil {
		if p.Logger != nil {
			p.Logger.Error("ingest: failed to decode record", err, logging.LogFields{"topic": p.Topic})
		}
		msg.Nack()
		return
	}

	record := circulator.ConnectRecord{
		ID:         decoded.ID,
		Runner:     circulator.RunnerName(decoded.Runner),
		Payload:    decoded.Payload,
		Metadata:   metadata.Metadata(decoded.Headers),
		EnqueuedAt: time.Now(),
	}

	deadline := time.Now().Add(p.EnqueueBlock)
	if err := p.Context.Enqueue(record, deadline); err != nil {
		if p.Logger != nil {
			p.Logger.Error("ingest: failed to enqueue record", err, logging.LogFields{"runner": decoded.Runner})
		}
		msg.Nack()
		return
	}

	msg.Ack()
}

// Stop cancels the subscription and waits for the read loop to exit.
func (p *Pump) Stop() {
	p.once.Do(func() {
		p.stopped.Store(true)
		p.cancel()
	})
	<-p.doneCh
}
