// ABOUTME: NATS mirror that republishes frames as JSON on <prefix>.<type>
// ABOUTME: Relies on the client's built-in reconnect and drains on close

package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/2389/status-gateway/internal/status"
)

const (
	// ConnectTimeout bounds the initial dial.
	ConnectTimeout = 10 * time.Second
	// ReconnectInterval is the wait between reconnect attempts.
	ReconnectInterval = 5 * time.Second
)

// NATSSink publishes frames to a NATS server.
type NATSSink struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// NewNATSSink connects to url. The connection reconnects forever in the
// background; publishes while disconnected are buffered by the client.
func NewNATSSink(url, prefix string, logger *slog.Logger) (*NATSSink, error) {
	logger = logger.With("component", "mirror.nats")

	conn, err := nats.Connect(url,
		nats.Name("status-gateway"),
		nats.Timeout(ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(ReconnectInterval),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	logger.Info("NATS mirror initialized", "url", url, "prefix", prefix)
	return &NATSSink{conn: conn, prefix: prefix, logger: logger}, nil
}

// Publish sends frame to <prefix>.<type>.
func (s *NATSSink) Publish(ctx context.Context, frame status.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := buildNATSMsg(s.prefix, frame)
	if err != nil {
		return err
	}
	if err := s.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", msg.Subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (s *NATSSink) Close() error {
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return fmt.Errorf("draining NATS connection: %w", err)
	}
	return nil
}

// SubjectFor returns the subject a frame type is published on.
func SubjectFor(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

func buildNATSMsg(prefix string, frame status.Frame) (*nats.Msg, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame: %w", err)
	}

	msg := nats.NewMsg(SubjectFor(prefix, frame.Type))
	msg.Data = data
	msg.Header.Set("x-event-type", frame.Type)
	msg.Header.Set("x-seq", strconv.FormatUint(frame.Seq, 10))
	msg.Header.Set("x-timestamp", strconv.FormatInt(frame.Timestamp.UnixMilli(), 10))
	return msg, nil
}
