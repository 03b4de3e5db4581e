package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"SwanPulse/internal/domain/models"
	domrepo "SwanPulse/internal/domain/repository"
	"SwanPulse/internal/stream"
	"SwanPulse/pkg/sse"
)

type pipeConn struct {
	frames chan sse.Event
	once   sync.Once
	closed chan struct{}
}

func (c *pipeConn) Next() (sse.Event, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return sse.Event{}, io.EOF
	}
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// pipeDialer hands out connections whose frames are pushed by the test.
type pipeDialer struct {
	mu    sync.Mutex
	conns []*pipeConn
}

func (d *pipeDialer) Dial(context.Context) (domrepo.FrameStream, error) {
	c := &pipeConn{frames: make(chan sse.Event), closed: make(chan struct{})}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *pipeDialer) send(ev sse.Event) error {
	d.mu.Lock()
	if len(d.conns) == 0 {
		d.mu.Unlock()
		return errors.New("not dialed")
	}
	c := d.conns[len(d.conns)-1]
	d.mu.Unlock()
	select {
	case c.frames <- ev:
		return nil
	case <-c.closed:
		return io.EOF
	}
}

func newManager(t *testing.T, d domrepo.StreamDialer) *stream.Manager {
	t.Helper()
	m := stream.NewManager(d)
	t.Cleanup(m.Shutdown)
	return m
}

func homeFrame(ts int64, score float64, signal models.Signal) sse.Event {
	data := fmt.Sprintf(`{
		"blackswan":{"score":%v,"confidence":"high","timestamp":%d,"reasoning":"steady","change":-1.5},
		"peak":{"score":40,"timestamp":%d,"reasoning":["a"],"change":2},
		"market":{"signal":%q,"description":"risk off","combinedScore":56,"timestamp":%d},
		"timestamp":%d}`, score, ts, ts, signal, ts, ts)
	return sse.Event{Name: "update", Data: []byte(data)}
}
