// ABOUTME: Status publisher that stamps frames and emits them on timers
// ABOUTME: Fans frames out through the hub, the journal and the mirrors

package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389/status-gateway/internal/agent"
	"github.com/2389/status-gateway/internal/hub"
	"github.com/2389/status-gateway/internal/metrics"
	"github.com/2389/status-gateway/internal/mirror"
	"github.com/2389/status-gateway/internal/status"
	"github.com/2389/status-gateway/internal/store"
)

// Options configures a Publisher. Store, Mirrors and Metrics may be nil.
type Options struct {
	Hub      *hub.Hub
	Registry *agent.Registry
	Store    store.Store
	Mirrors  *mirror.Fanout
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	Version         string
	MetricsInterval time.Duration
	SignalInterval  time.Duration
	SystemInterval  time.Duration

	// Generator defaults to one seeded from the start time.
	Generator *Generator
	// Now defaults to time.Now.
	Now func() time.Time
}

// Publisher owns the frame sequence and the periodic emitters.
type Publisher struct {
	hub      *hub.Hub
	registry *agent.Registry
	store    store.Store
	mirrors  *mirror.Fanout
	metrics  *metrics.Metrics
	gen      *Generator
	logger   *slog.Logger
	now      func() time.Time

	version         string
	metricsInterval time.Duration
	signalInterval  time.Duration
	systemInterval  time.Duration

	seq     atomic.Uint64
	started time.Time
}

// New creates a publisher. Hub and Registry are required.
func New(opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	started := now()
	gen := opts.Generator
	if gen == nil {
		gen = NewGenerator(uint64(started.UnixNano()))
	}

	return &Publisher{
		hub:             opts.Hub,
		registry:        opts.Registry,
		store:           opts.Store,
		mirrors:         opts.Mirrors,
		metrics:         opts.Metrics,
		gen:             gen,
		logger:          logger.With("component", "publisher"),
		now:             now,
		version:         opts.Version,
		metricsInterval: opts.MetricsInterval,
		signalInterval:  opts.SignalInterval,
		systemInterval:  opts.SystemInterval,
		started:         started,
	}
}

// Version returns the system version reported in snapshots.
func (p *Publisher) Version() string {
	return p.version
}

// Uptime returns the time since the publisher was created.
func (p *Publisher) Uptime() time.Duration {
	return p.now().Sub(p.started)
}

// Now returns the publisher clock.
func (p *Publisher) Now() time.Time {
	return p.now()
}

// Seq returns the last sequence number stamped.
func (p *Publisher) Seq() uint64 {
	return p.seq.Load()
}

// Stamp wraps payload in a frame carrying the next sequence number.
func (p *Publisher) Stamp(eventType string, payload any) (status.Frame, error) {
	frame, err := status.NewFrame(eventType, payload, p.now())
	if err != nil {
		return status.Frame{}, err
	}
	frame.Seq = p.seq.Add(1)
	return frame, nil
}

// Emit stamps a frame and publishes it to room. The frame is also journaled
// and mirrored; failures there are logged and counted only.
func (p *Publisher) Emit(ctx context.Context, room, eventType string, payload any) (status.Frame, error) {
	frame, err := p.Stamp(eventType, payload)
	if err != nil {
		return status.Frame{}, fmt.Errorf("stamping %s frame: %w", eventType, err)
	}

	dropped := p.hub.Publish(room, frame)
	p.metrics.IncFramesPublished(eventType)
	if dropped > 0 {
		p.metrics.AddFramesDropped(dropped)
	}

	p.journal(ctx, frame)

	if p.mirrors != nil {
		p.mirrors.Enqueue(frame)
	}

	return frame, nil
}

func (p *Publisher) journal(ctx context.Context, frame status.Frame) {
	if p.store == nil {
		return
	}
	rec := &store.FrameRecord{
		Seq:       frame.Seq,
		Type:      frame.Type,
		Payload:   frame.Data,
		CreatedAt: frame.Timestamp,
	}
	if err := p.store.SaveFrame(ctx, rec); err != nil {
		p.metrics.IncJournalErrors()
		p.logger.Warn("failed to journal frame", "type", frame.Type, "seq", frame.Seq, "error", err)
	}
}

// SystemStatus returns the current snapshot of the registry.
func (p *Publisher) SystemStatus() status.SystemStatus {
	snap := p.registry.Snapshot(p.version, p.now())
	snap.UptimeSeconds = p.Uptime().Seconds()
	return snap
}

// InitialData returns the get_initial_data payload.
func (p *Publisher) InitialData() status.InitialData {
	return status.InitialData{
		Agents:    p.registry.List(),
		Metrics:   p.SystemMetrics(),
		Timestamp: p.now(),
	}
}

// SystemMetrics answers get_system_metrics. Task, revenue, threat, backup
// and campaign counters have no source here and stay zero.
func (p *Publisher) SystemMetrics() status.DashboardMetrics {
	return status.DashboardMetrics{
		ActiveAgents: p.registry.ActiveCount(),
		TotalAgents:  p.registry.Len(),
	}
}

// EmitPerformance publishes one performance_update to the broadcast room.
func (p *Publisher) EmitPerformance(ctx context.Context) error {
	_, err := p.Emit(ctx, hub.RoomBroadcast, status.EventPerformanceUpdate, p.gen.Performance(p.now()))
	return err
}

// EmitSignal publishes one new_signal to the broadcast room.
func (p *Publisher) EmitSignal(ctx context.Context) error {
	_, err := p.Emit(ctx, hub.RoomBroadcast, status.EventNewSignal, p.gen.Signal(p.now()))
	return err
}

// EmitSystem publishes one system_update to the system_updates room.
func (p *Publisher) EmitSystem(ctx context.Context) error {
	_, err := p.Emit(ctx, hub.RoomSystemUpdates, status.EventSystemUpdate, p.SystemStatus())
	return err
}

// Run drives the periodic emitters until ctx is cancelled. A zero interval
// disables that emitter.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("publisher started",
		"metrics_interval", p.metricsInterval,
		"signal_interval", p.signalInterval,
		"system_interval", p.systemInterval,
	)

	var wg sync.WaitGroup
	p.every(ctx, &wg, "performance", p.metricsInterval, p.EmitPerformance)
	p.every(ctx, &wg, "signal", p.signalInterval, p.EmitSignal)
	p.every(ctx, &wg, "system", p.systemInterval, p.EmitSystem)

	<-ctx.Done()
	wg.Wait()
	p.logger.Info("publisher stopped", "last_seq", p.Seq())
	return nil
}

// every runs emit on its own ticker; ticks never overlap.
func (p *Publisher) every(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, emit func(context.Context) error) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := emit(ctx); err != nil {
					p.logger.Error("periodic emit failed", "emitter", name, "error", err)
				}
			}
		}
	}()
}
