// Package sinks adapts the transport layer's Watermill publishers into the
// circulator core's SinkTask collaborator: a runner-scoped Put(records)
// that hands a batch off to a downstream destination. It is the only
// package that bridges circulator.ConnectRecord values onto the wire.
package sinks

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/nordlight/eventbridge/internal/circulator"
	"github.com/nordlight/eventbridge/internal/ids"
	"github.com/nordlight/eventbridge/internal/jsoncodec"
	"github.com/nordlight/eventbridge/internal/logging"
	"github.com/nordlight/eventbridge/transport"

	// Registers every built-in transport with the default registry.
	_ "github.com/nordlight/eventbridge/transport/transports"
)

// wireRecord is the on-the-wire envelope one ConnectRecord is marshaled
// into. Put sends every envelope of a batch in a single Publish call and
// reports one error for the whole batch.
type wireRecord struct {
	ID      string            `json:"id"`
	Runner  string            `json:"runner"`
	Payload []byte            `json:"payload"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Sink delivers batches of circulator.ConnectRecord to a transport
// publisher built from a runner's transport.Config.
type Sink struct {
	Topic     string
	Publisher message.Publisher
}

// Build constructs a Sink for runner by resolving cfg's PubSubSystem
// through the transport registry.
func Build(ctx context.Context, cfg transport.Config, topic string, logger logging.ServiceLogger) (*Sink, error) {
	built, err := transport.Build(ctx, cfg, logging.NewWatermillAdapter(logger))
	if err != nil {
		return nil, fmt.Errorf("sinks: building transport %q: %w", cfg.GetPubSubSystem(), err)
	}
	return &Sink{Topic: topic, Publisher: built.Publisher}, nil
}

// Put implements circulator.SinkTask: it marshals every record into its
// own Watermill message (preserving per-record metadata and ID) and
// publishes them as a single batch call. A publish failure fails the
// whole batch, matching the push stage's all-or-nothing Commit contract.
func (s *Sink) Put(records []circulator.ConnectRecord) error {
	if len(records) == 0 {
		return nil
	}

	messages := make([]*message.Message, 0, len(records))
	for _, r := range records {
		id := r.ID
		if id == "" {
			id = ids.CreateULID()
		}

		body, err := jsoncodec.Marshal(wireRecord{
			ID:      id,
			Runner:  string(r.Runner),
			Payload: r.Payload,
			Headers: map[string]string(r.Metadata.Clone()),
		})
		if err != nil {
			return fmt.Errorf("sinks: marshaling record %s: %w", id, err)
		}

		msg := message.NewMessage(id, body)
		for k, v := range r.Metadata {
			msg.Metadata.Set(k, v)
		}
		messages = append(messages, msg)
	}

	return s.Publisher.Publish(s.Topic, messages...)
}

// Close releases the underlying publisher, when it supports it.
func (s *Sink) Close() error {
	if closer, ok := s.Publisher.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
