package usecase

import (
	"context"
	"errors"
	"sync"

	"SwanPulse/internal/domain/models"
	domrepo "SwanPulse/internal/domain/repository"
	"SwanPulse/internal/middleware"
	"SwanPulse/internal/stream"
	"SwanPulse/pkg/logger"
)

// Subscriber is the registration half of stream.Manager.
type Subscriber interface {
	Subscribe(onData stream.DataFunc, onError stream.ErrorFunc) func()
}

// EventForwarder copies every stream event into the persistence sinks.
// While running it holds a subscription, which keeps the upstream open.
type EventForwarder struct {
	sub      Subscriber
	pipeline *middleware.ForwardPipeline
	sinks    []domrepo.EventSink
	log      *logger.Logger

	mu      sync.Mutex
	dispose func()
}

func NewEventForwarder(sub Subscriber, pipeline *middleware.ForwardPipeline, sinks []domrepo.EventSink, l *logger.Logger) *EventForwarder {
	if l == nil {
		l = logger.Nop()
	}
	return &EventForwarder{sub: sub, pipeline: pipeline, sinks: sinks, log: l}
}

// Enabled reports whether any sink is configured.
func (f *EventForwarder) Enabled() bool { return len(f.sinks) > 0 }

// Start subscribes and begins forwarding. Without sinks it does nothing.
func (f *EventForwarder) Start(ctx context.Context) {
	if !f.Enabled() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dispose != nil {
		return
	}
	f.pipeline.Start(ctx)
	f.dispose = f.sub.Subscribe(f.onEvent, nil)

	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}
	f.log.Info("event forwarding started", logger.Strings("sinks", names))
}

func (f *EventForwarder) onEvent(ev *models.StreamEvent) {
	if err := f.pipeline.Enqueue(ev); errors.Is(err, middleware.ErrBufferFull) {
		f.log.Warn("forward buffer full, event dropped", logger.Int64("timestamp", ev.Timestamp))
	}
}

// Stop unsubscribes, drains the worker and closes every sink.
func (f *EventForwarder) Stop() error {
	f.mu.Lock()
	dispose := f.dispose
	f.dispose = nil
	f.mu.Unlock()
	if dispose == nil {
		return nil
	}

	dispose()
	f.pipeline.Stop()

	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
