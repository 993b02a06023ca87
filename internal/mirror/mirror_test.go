// ABOUTME: Tests for the frame mirrors and the fan-out queue
// ABOUTME: Uses miniredis for the Redis sink and message building for NATS

package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/status-gateway/internal/metrics"
	"github.com/2389/status-gateway/internal/status"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFrame(t *testing.T, eventType string, seq uint64) status.Frame {
	t.Helper()
	f, err := status.NewFrame(eventType, status.Signal{Symbol: "EURUSD", Type: status.SignalBuy, Confidence: 0.8}, time.UnixMilli(1767225600000))
	require.NoError(t, err)
	f.Seq = seq
	return f
}

// recordingSink collects frames and can be told to fail.
type recordingSink struct {
	mu     sync.Mutex
	frames []status.Frame
	err    error
	closed bool
}

func (r *recordingSink) Publish(_ context.Context, f status.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.err
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "status.new_signal", SubjectFor("status", "new_signal"))
	assert.Equal(t, "new_signal", SubjectFor("", "new_signal"))
}

func TestBuildNATSMsg(t *testing.T) {
	frame := testFrame(t, status.EventNewSignal, 9)

	msg, err := buildNATSMsg("dash", frame)
	require.NoError(t, err)

	assert.Equal(t, "dash.new_signal", msg.Subject)
	assert.Equal(t, "new_signal", msg.Header.Get("x-event-type"))
	assert.Equal(t, "9", msg.Header.Get("x-seq"))
	assert.Equal(t, "1767225600000", msg.Header.Get("x-timestamp"))

	var decoded status.Frame
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, uint64(9), decoded.Seq)
	assert.JSONEq(t, string(frame.Data), string(decoded.Data))
}

func TestNewNATSSink_Unreachable(t *testing.T) {
	_, err := NewNATSSink("nats://127.0.0.1:1", "status", testLogger())
	assert.Error(t, err)
}

func TestRedisSink_PublishAndList(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	sink, err := NewRedisSink(ctx, RedisOptions{
		URL:     "redis://" + mr.Addr(),
		Channel: "frames",
		ListKey: "frames:recent",
		ListMax: 2,
	}, testLogger())
	require.NoError(t, err)
	defer sink.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	sub := client.Subscribe(ctx, "frames")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, sink.Publish(ctx, testFrame(t, status.EventNewSignal, i)))
	}

	select {
	case msg := <-sub.Channel():
		wire, err := DecodeFrame([]byte(msg.Payload))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), wire.Seq)
		assert.Equal(t, status.EventNewSignal, wire.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no message on the redis channel")
	}

	values, err := mr.List("frames:recent")
	require.NoError(t, err)
	require.Len(t, values, 2, "list is trimmed to list_max")

	newest, err := DecodeFrame([]byte(values[1]))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), newest.Seq)
	assert.Equal(t, int64(1767225600000), newest.TimestampMs)
}

func TestRedisSink_NoList(t *testing.T) {
	mr := miniredis.RunT(t)

	sink, err := NewRedisSink(context.Background(), RedisOptions{URL: "redis://" + mr.Addr(), Channel: "frames"}, testLogger())
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Publish(context.Background(), testFrame(t, status.EventSystemUpdate, 1)))
	assert.False(t, mr.Exists("frames:recent"))
}

func TestNewRedisSink_Errors(t *testing.T) {
	_, err := NewRedisSink(context.Background(), RedisOptions{URL: "not a url"}, testLogger())
	assert.Error(t, err)

	_, err = NewRedisSink(context.Background(), RedisOptions{URL: "redis://127.0.0.1:1"}, testLogger())
	assert.Error(t, err)
}

func TestEncodeDecodeFrame(t *testing.T) {
	frame := testFrame(t, status.EventPerformanceUpdate, 11)

	data, err := EncodeFrame(frame)
	require.NoError(t, err)

	wire, err := DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, []byte(frame.Data), wire.Data)

	_, err = DecodeFrame([]byte{0xc1})
	assert.Error(t, err)
}

func TestFanout_PublishCountsErrors(t *testing.T) {
	m := metrics.New()
	f := NewFanout(m, testLogger())

	good := &recordingSink{}
	bad := &recordingSink{err: errors.New("broker down")}
	f.Add("good", good)
	f.Add("bad", bad)

	err := f.Publish(context.Background(), testFrame(t, status.EventNewSignal, 1))
	require.Error(t, err)
	assert.EqualError(t, err, "bad: broker down")
	assert.Equal(t, 1, good.count(), "a failing sink does not block the others")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MirrorErrors.WithLabelValues("bad")))

	err = f.Close()
	assert.EqualError(t, err, "broker down")
	assert.True(t, good.closed)
}

func TestFanout_PublishAllSucceed(t *testing.T) {
	f := NewFanout(nil, testLogger())
	a, b := &recordingSink{}, &recordingSink{}
	f.Add("a", a)
	f.Add("b", b)

	assert.NoError(t, f.Publish(context.Background(), testFrame(t, status.EventNewSignal, 1)))
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestFanout_NestsAsSink(t *testing.T) {
	m := metrics.New()
	brokerDown := errors.New("broker down")

	inner := NewFanout(nil, testLogger())
	inner.Add("redis", &recordingSink{err: brokerDown})

	outer := NewFanout(m, testLogger())
	outer.Add("replicas", inner)

	err := outer.Publish(context.Background(), testFrame(t, status.EventNewSignal, 1))
	require.ErrorIs(t, err, brokerDown)
	assert.EqualError(t, err, "replicas: redis: broker down")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MirrorErrors.WithLabelValues("replicas")))
}

func TestFanout_EnqueueAndRun(t *testing.T) {
	f := NewFanout(nil, testLogger())
	sink := &recordingSink{}
	f.Add("rec", sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	for i := uint64(1); i <= 5; i++ {
		assert.True(t, f.Enqueue(testFrame(t, status.EventNewSignal, i)))
	}

	assert.Eventually(t, func() bool { return sink.count() == 5 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestFanout_EnqueueDropsWhenFull(t *testing.T) {
	m := metrics.New()
	f := NewFanout(m, testLogger())
	f.Add("rec", &recordingSink{})

	for i := 0; i < queueSize; i++ {
		require.True(t, f.Enqueue(testFrame(t, status.EventNewSignal, uint64(i))))
	}
	assert.False(t, f.Enqueue(testFrame(t, status.EventNewSignal, 999)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MirrorErrors.WithLabelValues("rec")))
}

func TestFanout_RunFlushesOnCancel(t *testing.T) {
	f := NewFanout(nil, testLogger())
	sink := &recordingSink{}
	f.Add("rec", sink)

	for i := uint64(1); i <= 3; i++ {
		f.Enqueue(testFrame(t, status.EventNewSignal, i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Run(ctx)

	assert.Equal(t, 3, sink.count())
}

func TestFanout_EmptyIgnoresEnqueue(t *testing.T) {
	f := NewFanout(nil, testLogger())
	assert.False(t, f.Enqueue(testFrame(t, status.EventNewSignal, 1)))
	assert.NoError(t, f.Close())
}
