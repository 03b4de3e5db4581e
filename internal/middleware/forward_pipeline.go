package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"SwanPulse/internal/domain/models"
	domrepo "SwanPulse/internal/domain/repository"
	"SwanPulse/pkg/logger"

	"github.com/jpillora/backoff"
)

// ErrBufferFull is returned by Enqueue when the event had to be dropped.
var ErrBufferFull = errors.New("forward buffer full")

// ForwardPipeline sits between the stream and the persistence sinks. It
// filters duplicates, buffers, and retries each sink with a capped backoff,
// so a slow sink never holds up stream delivery.
type ForwardPipeline struct {
	sinks       []domrepo.EventSink
	metrics     domrepo.StreamMetrics
	log         *logger.Logger
	bufCh       chan *models.StreamEvent
	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration

	mu      sync.Mutex
	lastTS  int64
	started bool
	stopCh  chan struct{}
	done    chan struct{}
}

type PipelineOption func(*ForwardPipeline)

// WithBufferSize sets how many events may wait for the sinks.
func WithBufferSize(n int) PipelineOption {
	return func(p *ForwardPipeline) {
		if n > 0 {
			p.bufCh = make(chan *models.StreamEvent, n)
		}
	}
}

// WithRetry sets attempts per sink and the backoff bounds between them.
func WithRetry(attempts int, min, max time.Duration) PipelineOption {
	return func(p *ForwardPipeline) {
		if attempts > 0 {
			p.maxAttempts = attempts
		}
		if min > 0 {
			p.minBackoff = min
		}
		if max >= p.minBackoff {
			p.maxBackoff = max
		}
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *ForwardPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewForwardPipeline creates a pipeline writing to sinks.
func NewForwardPipeline(metrics domrepo.StreamMetrics, sinks []domrepo.EventSink, opts ...PipelineOption) *ForwardPipeline {
	p := &ForwardPipeline{
		sinks:       sinks,
		metrics:     metrics,
		log:         logger.Nop(),
		bufCh:       make(chan *models.StreamEvent, 256),
		maxAttempts: 5,
		minBackoff:  50 * time.Millisecond,
		maxBackoff:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the worker. Calling it twice is a no-op; a stopped
// pipeline may be started again.
func (p *ForwardPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	stop, done := make(chan struct{}), make(chan struct{})
	p.stopCh, p.done = stop, done
	p.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case ev := <-p.bufCh:
				p.forward(ctx, stop, ev)
			}
		}
	}()
}

// Stop halts the worker and waits for the event in flight. Buffered
// events that were not started are dropped.
func (p *ForwardPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	stop, done := p.stopCh, p.done
	p.mu.Unlock()
	close(stop)
	<-done
}

// Enqueue hands ev to the worker without blocking. Events not newer than
// the last accepted one are skipped.
func (p *ForwardPipeline) Enqueue(ev *models.StreamEvent) error {
	if ev == nil || ev.Timestamp <= 0 {
		p.metrics.RecordError("forward_invalid")
		return models.ErrIncompleteFrame
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if ev.Timestamp <= p.lastTS {
		return nil
	}
	select {
	case p.bufCh <- ev:
		p.lastTS = ev.Timestamp
		return nil
	default:
		p.metrics.RecordError("forward_buffer_full")
		return ErrBufferFull
	}
}

// Depth returns the number of buffered events.
func (p *ForwardPipeline) Depth() int { return len(p.bufCh) }

func (p *ForwardPipeline) forward(ctx context.Context, stop <-chan struct{}, ev *models.StreamEvent) {
	for _, sink := range p.sinks {
		start := time.Now()
		if err := p.writeWithRetry(ctx, stop, sink, ev); err != nil {
			p.metrics.RecordError("forward_" + sink.Name())
			p.log.Warn("event dropped by sink",
				logger.String("sink", sink.Name()),
				logger.Int64("timestamp", ev.Timestamp),
				logger.Error(err),
			)
			continue
		}
		p.metrics.RecordLatency("forward_"+sink.Name(), time.Since(start).Seconds())
	}
}

func (p *ForwardPipeline) writeWithRetry(ctx context.Context, stop <-chan struct{}, sink domrepo.EventSink, ev *models.StreamEvent) error {
	b := &backoff.Backoff{Min: p.minBackoff, Max: p.maxBackoff, Factor: 2}
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err = sink.Write(ctx, ev); err == nil {
			return nil
		}
		if attempt == p.maxAttempts {
			break
		}
		select {
		case <-time.After(b.Duration()):
		case <-stop:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
