package publisher

import (
	"context"
	"encoding/json"
	"errors"

	"sjsage522/eventworker/internal/extractor"
)

// EventField is the stream field holding a base64 JSON event.
const EventField = "b64_event"

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message to a stream
	Publish(ctx context.Context, key string, message []byte) error

	// TrimStreams trims the stream to the configured maximum length
	TrimStreams(ctx context.Context) error
}

// PublishEvents mirrors delivered events, one stream entry per event.
// Every event is attempted; failures are joined.
func PublishEvents(ctx context.Context, p Publisher, events []extractor.Event) error {
	var errs []error
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.Publish(ctx, EventField, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
