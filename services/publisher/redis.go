package publisher

import (
	"context"
	"encoding/base64"

	"github.com/redis/go-redis/v9"

	"sjsage522/eventworker/logger"
)

// RedisPublisher implements Publisher on a Redis stream
type RedisPublisher struct {
	client    *redis.Client
	stream    string
	maxLength int64
	log       *logger.Logger
}

// NewRedisPublisher creates a publisher on an existing client. The client
// is owned by the caller.
func NewRedisPublisher(client *redis.Client, stream string, maxLength int64) *RedisPublisher {
	return &RedisPublisher{
		client:    client,
		stream:    stream,
		maxLength: maxLength,
		log:       logger.ForPublisher(),
	}
}

// Publish publishes a message to the Redis stream
// The message is base64 encoded before publishing
func (p *RedisPublisher) Publish(ctx context.Context, key string, message []byte) error {
	encodedMessage := base64.StdEncoding.EncodeToString(message)

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			key: encodedMessage,
		},
	}
	if p.maxLength > 0 {
		args.MaxLen = p.maxLength
		args.Approx = true
	}
	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return err
	}
	p.log.Debug().Str("stream", p.stream).Str("id", id).Msg("published event")
	return nil
}

// TrimStreams trims the stream to the configured maximum length
func (p *RedisPublisher) TrimStreams(ctx context.Context) error {
	if p.maxLength <= 0 {
		return nil
	}
	removed, err := p.client.XTrimMaxLenApprox(ctx, p.stream, p.maxLength, 0).Result()
	if err != nil {
		return err
	}
	if removed > 0 {
		p.log.Info().Str("stream", p.stream).Int64("removed", removed).Msg("trimmed stream")
	}
	return nil
}
