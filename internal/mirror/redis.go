// ABOUTME: Redis mirror that PUBLISHes msgpack-encoded frames
// ABOUTME: Optionally keeps a capped list of recent frames for late readers

package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/2389/status-gateway/internal/status"
)

// WireFrame is the msgpack shape written to Redis.
type WireFrame struct {
	Type        string `msgpack:"type"`
	Seq         uint64 `msgpack:"seq"`
	TimestampMs int64  `msgpack:"timestamp_ms"`
	Data        []byte `msgpack:"data"`
}

// RedisOptions configures a RedisSink.
type RedisOptions struct {
	URL     string
	Channel string
	ListKey string // empty disables the list
	ListMax int64
}

// RedisSink publishes frames to a Redis channel.
type RedisSink struct {
	client  *redis.Client
	channel string
	listKey string
	listMax int64
	logger  *slog.Logger
}

// NewRedisSink parses the URL, connects and pings once.
func NewRedisSink(ctx context.Context, opts RedisOptions, logger *slog.Logger) (*RedisSink, error) {
	opt, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", opt.Addr, err)
	}

	logger = logger.With("component", "mirror.redis")
	logger.Info("Redis mirror initialized", "addr", opt.Addr, "channel", opts.Channel, "list_key", opts.ListKey)

	return &RedisSink{
		client:  client,
		channel: opts.Channel,
		listKey: opts.ListKey,
		listMax: opts.ListMax,
		logger:  logger,
	}, nil
}

// EncodeFrame serializes a frame to msgpack.
func EncodeFrame(frame status.Frame) ([]byte, error) {
	wire := WireFrame{
		Type:        frame.Type,
		Seq:         frame.Seq,
		TimestampMs: frame.Timestamp.UnixMilli(),
		Data:        frame.Data,
	}
	data, err := msgpack.Marshal(&wire)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize frame to msgpack: %w", err)
	}
	return data, nil
}

// DecodeFrame is the inverse of EncodeFrame.
func DecodeFrame(data []byte) (WireFrame, error) {
	var wire WireFrame
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return WireFrame{}, fmt.Errorf("failed to decode msgpack frame: %w", err)
	}
	return wire, nil
}

// Publish sends frame to the channel and, when configured, appends it to the
// capped list in the same round trip.
func (s *RedisSink) Publish(ctx context.Context, frame status.Frame) error {
	data, err := EncodeFrame(frame)
	if err != nil {
		return err
	}

	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, s.channel, data)
		if s.listKey != "" {
			pipe.RPush(ctx, s.listKey, data)
			if s.listMax > 0 {
				pipe.LTrim(ctx, s.listKey, -s.listMax, -1)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publishing frame to redis: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
