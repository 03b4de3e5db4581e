package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"SwanPulse/internal/domain/models"
	domrepo "SwanPulse/internal/domain/repository"
	"SwanPulse/internal/middleware"
	"SwanPulse/internal/stream"
	"SwanPulse/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	onData   stream.DataFunc
	disposed bool
}

func (s *fakeSubscriber) Subscribe(onData stream.DataFunc, _ stream.ErrorFunc) func() {
	s.mu.Lock()
	s.onData = onData
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.disposed = true
		s.mu.Unlock()
	}
}

func (s *fakeSubscriber) emit(ev *models.StreamEvent) {
	s.mu.Lock()
	fn := s.onData
	s.mu.Unlock()
	fn(ev)
}

type memorySink struct {
	mu     sync.Mutex
	got    []int64
	closed bool
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Write(_ context.Context, ev *models.StreamEvent) error {
	s.mu.Lock()
	s.got = append(s.got, ev.Timestamp)
	s.mu.Unlock()
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func TestEventForwarder_ForwardsUntilStopped(t *testing.T) {
	sub := &fakeSubscriber{}
	sink := &memorySink{}
	sinks := []domrepo.EventSink{sink}
	f := NewEventForwarder(sub, middleware.NewForwardPipeline(metrics.Nop{}, sinks), sinks, nil)

	f.Start(context.Background())
	f.Start(context.Background())
	sub.emit(&models.StreamEvent{Timestamp: 1})
	sub.emit(&models.StreamEvent{Timestamp: 2})
	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.Stop())
	require.NoError(t, f.Stop())
	assert.True(t, sub.disposed)
	assert.True(t, sink.closed)
}

func TestEventForwarder_DisabledWithoutSinks(t *testing.T) {
	sub := &fakeSubscriber{}
	f := NewEventForwarder(sub, middleware.NewForwardPipeline(metrics.Nop{}, nil), nil, nil)

	assert.False(t, f.Enabled())
	f.Start(context.Background())
	assert.Nil(t, sub.onData)
	assert.NoError(t, f.Stop())
}
