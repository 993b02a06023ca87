// ABOUTME: Sink interface and fan-out for re-publishing frames outside the process
// ABOUTME: The publisher enqueues without blocking; sink failures are logged and counted

package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/status-gateway/internal/metrics"
	"github.com/2389/status-gateway/internal/status"
)

// Sink receives every frame the publisher emits.
type Sink interface {
	Publish(ctx context.Context, frame status.Frame) error
	Close() error
}

type namedSink struct {
	name string
	sink Sink
}

// flushTimeout bounds delivery of queued frames at shutdown.
const flushTimeout = 2 * time.Second

// queueSize bounds how many frames may wait for slow sinks.
const queueSize = 256

// Fanout forwards frames to a set of sinks.
type Fanout struct {
	sinks   []namedSink
	queue   chan status.Frame
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewFanout creates an empty fan-out. m may be nil.
func NewFanout(m *metrics.Metrics, logger *slog.Logger) *Fanout {
	return &Fanout{
		queue:   make(chan status.Frame, queueSize),
		metrics: m,
		logger:  logger.With("component", "mirror"),
	}
}

// Add registers a sink under name.
func (f *Fanout) Add(name string, s Sink) {
	f.sinks = append(f.sinks, namedSink{name: name, sink: s})
}

// Len returns the number of registered sinks.
func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Enqueue schedules frame for delivery by Run without blocking. Frames are
// dropped when the queue is full.
func (f *Fanout) Enqueue(frame status.Frame) bool {
	if len(f.sinks) == 0 {
		return false
	}
	select {
	case f.queue <- frame:
		return true
	default:
		for _, ns := range f.sinks {
			f.metrics.IncMirrorErrors(ns.name)
		}
		f.logger.Warn("mirror queue full, dropping frame", "type", frame.Type, "seq", frame.Seq)
		return false
	}
}

// Run delivers queued frames until ctx is cancelled, then flushes what is
// already queued. Publish has already logged and counted any failure.
func (f *Fanout) Run(ctx context.Context) {
	for {
		select {
		case frame := <-f.queue:
			_ = f.Publish(ctx, frame)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			defer cancel()
			for {
				select {
				case frame := <-f.queue:
					_ = f.Publish(flushCtx, frame)
				default:
					return
				}
			}
		}
	}
}

// Publish hands frame to every sink synchronously. A failing sink does not
// stop delivery to the rest. Each failure is logged and counted, and the
// joined errors are returned labelled with the sink name.
func (f *Fanout) Publish(ctx context.Context, frame status.Frame) error {
	var errs []error
	for _, ns := range f.sinks {
		if err := ns.sink.Publish(ctx, frame); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ns.name, err))
			f.metrics.IncMirrorErrors(ns.name)
			f.logger.Warn("mirror publish failed",
				"sink", ns.name,
				"type", frame.Type,
				"seq", frame.Seq,
				"error", err,
			)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and returns the joined errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, ns := range f.sinks {
		if err := ns.sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Sink = (*Fanout)(nil)
