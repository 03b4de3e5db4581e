package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	drepo "SwanPulse/internal/domain/repository"
	"SwanPulse/pkg/sse"
)

// fakeConn is a FrameStream fed by the test.
type fakeConn struct {
	d      *fakeDialer
	frames chan sse.Event
	errs   chan error
	closed chan struct{}
	once   sync.Once
}

func (c *fakeConn) Next() (sse.Event, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case err := <-c.errs:
		return sse.Event{}, err
	case <-c.closed:
		return sse.Event{}, io.EOF
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		close(c.closed)
		c.d.open.Add(-1)
	})
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) send(ev sse.Event) { c.frames <- ev }

func (c *fakeConn) drop() { c.errs <- io.ErrUnexpectedEOF }

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn

	dials   atomic.Int32
	open    atomic.Int32
	maxOpen atomic.Int32
	refuse  atomic.Int32 // number of upcoming dials to fail
}

func (d *fakeDialer) Dial(ctx context.Context) (drepo.FrameStream, error) {
	d.dials.Add(1)
	if d.refuse.Load() > 0 {
		d.refuse.Add(-1)
		return nil, errors.New("connection refused")
	}
	c := &fakeConn{
		d:      d,
		frames: make(chan sse.Event),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
	n := d.open.Add(1)
	for {
		cur := d.maxOpen.Load()
		if n <= cur || d.maxOpen.CompareAndSwap(cur, n) {
			break
		}
	}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// blockingDialer never connects until its context is cancelled.
type blockingDialer struct{}

func (blockingDialer) Dial(ctx context.Context) (drepo.FrameStream, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type manualTimer struct {
	c       *manualClock
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// manualClock only fires timers when told to.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{c: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) pending() []*manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs every pending timer.
func (c *manualClock) fire() {
	for _, t := range c.pending() {
		c.mu.Lock()
		t.fired = true
		c.mu.Unlock()
		t.f()
	}
}

type fakeMetrics struct {
	frames     atomic.Int64
	drops      atomic.Int64
	reconnects atomic.Int64
	panics     atomic.Int64
	subs       atomic.Int64
	connected  atomic.Bool
}

func (m *fakeMetrics) RecordFrame() { m.frames.Add(1) }
func (m *fakeMetrics) RecordDrop(string) { m.drops.Add(1) }
func (m *fakeMetrics) RecordReconnect(int, time.Duration) { m.reconnects.Add(1) }
func (m *fakeMetrics) SetConnected(c bool) { m.connected.Store(c) }
func (m *fakeMetrics) SetSubscribers(n int) { m.subs.Store(int64(n)) }
func (m *fakeMetrics) RecordCallbackPanic() { m.panics.Add(1) }
func (m *fakeMetrics) RecordError(string) {}
func (m *fakeMetrics) RecordLatency(string, float64) {}

// homeFrame builds a complete home payload.
func homeFrame(ts int64, score float64, signal string) sse.Event {
	data := fmt.Sprintf(`{
		"blackswan":{"score":%v,"confidence":"high","timestamp":%d,"analysis":"calm","reasoning":"flows steady","currentMarketIndicators":["funding"],"primaryRiskFactors":[],"change":-1.5},
		"peak":{"score":40,"timestamp":%d,"summary":"mid cycle","reasoning":["a","b"],"keyFactors":["mvrv"],"change":2},
		"market":{"signal":%q,"description":"risk off","combinedScore":56,"timestamp":%d},
		"timestamp":%d}`, score, ts, ts, signal, ts, ts)
	return sse.Event{Name: "update", Data: []byte(data)}
}
