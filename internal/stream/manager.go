package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"SwanPulse/internal/domain/models"
	drepo "SwanPulse/internal/domain/repository"
	"SwanPulse/pkg/logger"
	"SwanPulse/pkg/metrics"
	"SwanPulse/pkg/sse"
)

// Manager owns the single upstream connection and everything shared by its
// consumers: the event buffer, the subscriber registry, the reconnect timer
// and the connection state.
//
// Two locks are involved. mu guards connection state and is never held
// while user callbacks run. deliverMu serialises frame and failure
// handling, so every subscriber has seen event N before any sees N+1.
// Callbacks run under deliverMu only and may subscribe, unsubscribe or
// read state.
type Manager struct {
	dialer   drepo.StreamDialer
	log      *logger.Logger
	metrics  drepo.StreamMetrics
	buffer   *Buffer
	registry *Registry
	reconn   *Reconnector

	deliverMu sync.Mutex

	mu     sync.Mutex
	state  models.ConnectionState
	active bool   // a connection is dialing or open
	gen    uint64 // bumped on every open and close
	cancel context.CancelFunc
	conn   drepo.FrameStream

	received atomic.Uint64
	dropped  atomic.Uint64
	ignored  atomic.Uint64
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	log            *logger.Logger
	metrics        drepo.StreamMetrics
	clock          Clock
	bufferSize     int
	backoffInitial time.Duration
	backoffMax     time.Duration
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) ManagerOption {
	return func(c *managerConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m drepo.StreamMetrics) ManagerOption {
	return func(c *managerConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithClock replaces the wall clock used for reconnect timers.
func WithClock(clock Clock) ManagerOption {
	return func(c *managerConfig) { c.clock = clock }
}

// WithBufferSize sets how many recent events are retained.
func WithBufferSize(n int) ManagerOption {
	return func(c *managerConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(initial, max time.Duration) ManagerOption {
	return func(c *managerConfig) {
		c.backoffInitial = initial
		c.backoffMax = max
	}
}

// NewManager creates an idle manager. Nothing is dialed until the first
// Subscribe or an explicit Open.
func NewManager(dialer drepo.StreamDialer, opts ...ManagerOption) *Manager {
	cfg := &managerConfig{
		log:        logger.Nop(),
		metrics:    metrics.Nop{},
		clock:      RealClock,
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Manager{
		dialer:   dialer,
		log:      cfg.log.With(logger.String("component", "home_stream")),
		metrics:  cfg.metrics,
		buffer:   NewBuffer(cfg.bufferSize),
		registry: NewRegistry(),
		reconn:   NewReconnector(cfg.clock, cfg.backoffInitial, cfg.backoffMax),
	}
}

// Open starts a connection unless one is already dialing or open, or a
// scheduled reconnect is pending.
func (m *Manager) Open() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openLocked()
}

// Close tears down the current connection. Safe to call repeatedly.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

// Shutdown closes the connection and cancels any pending reconnect.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconn.Cancel()
	m.closeLocked()
}

// Subscribe registers a callback pair and makes sure the upstream is open.
// The returned disposer removes exactly this pair; when the last pair is
// removed the connection is closed. Calling the disposer twice is harmless.
func (m *Manager) Subscribe(onData DataFunc, onError ErrorFunc) func() {
	if onData == nil {
		onData = func(*models.StreamEvent) {}
	}
	if onError == nil {
		onError = func(string) {}
	}
	m.mu.Lock()
	sub := m.registry.Add(onData, onError)
	n := m.registry.Len()
	m.openLocked()
	m.mu.Unlock()

	m.metrics.SetSubscribers(n)
	m.log.Debug("subscriber added", logger.String("subscriber", sub.ID), logger.Int("subscribers", n))

	var once sync.Once
	return func() { once.Do(func() { m.unsubscribe(sub) }) }
}

func (m *Manager) unsubscribe(sub *Subscription) {
	m.mu.Lock()
	removed, remaining := m.registry.Remove(sub)
	if removed && remaining == 0 {
		m.reconn.Cancel()
		m.closeLocked()
	}
	m.mu.Unlock()

	m.metrics.SetSubscribers(remaining)
	m.log.Debug("subscriber removed", logger.String("subscriber", sub.ID), logger.Int("subscribers", remaining))
}

// State returns a copy of the connection state.
func (m *Manager) State() models.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Latest returns the most recent buffered event.
func (m *Manager) Latest() (*models.StreamEvent, bool) { return m.buffer.Latest() }

// Buffered returns the buffered events, oldest first.
func (m *Manager) Buffered() []*models.StreamEvent { return m.buffer.Snapshot() }

// Subscribers returns the number of registered subscriptions.
func (m *Manager) Subscribers() int { return m.registry.Len() }

// Connected reports whether a connection is dialing or open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// ReconnectPending reports whether a reconnect timer is armed.
func (m *Manager) ReconnectPending() bool { return m.reconn.Pending() }

// Stats returns internal counters.
func (m *Manager) Stats() models.StreamStats {
	return models.StreamStats{
		Received:    m.received.Load(),
		Dropped:     m.dropped.Load(),
		Ignored:     m.ignored.Load(),
		Subscribers: m.registry.Len(),
		Buffered:    m.buffer.Len(),
	}
}

// snapshot returns state and buffer contents read together.
func (m *Manager) snapshot() (models.ConnectionState, *models.StreamEvent, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	latest, _ := m.buffer.Latest()
	return m.state, latest, m.buffer.Len()
}

// openLocked dials unless a connection is live or a reconnect timer owns
// the next attempt.
func (m *Manager) openLocked() {
	if m.active || m.reconn.Pending() {
		return
	}
	m.active = true
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.run(ctx, gen)
}

func (m *Manager) closeLocked() {
	if !m.active {
		return
	}
	m.active = false
	m.gen++
	m.teardownLocked()
	m.state.IsConnected = false
	m.metrics.SetConnected(false)
	m.log.Info("stream closed")
}

func (m *Manager) teardownLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}

func (m *Manager) run(ctx context.Context, gen uint64) {
	conn, err := m.dialer.Dial(ctx)
	if err != nil {
		m.fail(gen, fmt.Errorf("dial: %w", err))
		return
	}
	if !m.attach(gen, conn) {
		_ = conn.Close()
		return
	}
	for {
		frame, err := conn.Next()
		if err != nil {
			m.fail(gen, err)
			return
		}
		m.handleFrame(gen, frame)
	}
}

func (m *Manager) attach(gen uint64, conn drepo.FrameStream) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || !m.active {
		return false
	}
	m.conn = conn
	m.state.IsConnected = true
	m.state.LastError = ""
	m.state.ReconnectAttempts = 0
	m.reconn.Reset()
	m.metrics.SetConnected(true)
	m.log.Info("stream connected")
	return true
}

// acceptedTypes are the SSE event names carrying home payloads.
var acceptedTypes = map[string]bool{"message": true, "update": true, "init": true}

func (m *Manager) handleFrame(gen uint64, frame sse.Event) {
	if !acceptedTypes[frame.Type()] {
		m.ignored.Add(1)
		return
	}
	ev, err := models.DecodeStreamEvent(frame.Data)
	if err != nil {
		reason := "json"
		if errors.Is(err, models.ErrIncompleteFrame) {
			reason = "missing_fields"
		}
		m.dropped.Add(1)
		m.metrics.RecordDrop(reason)
		m.log.Debug("frame dropped", logger.String("reason", reason), logger.Error(err))
		return
	}

	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	if gen != m.gen || !m.active {
		m.mu.Unlock()
		return
	}
	m.buffer.Push(ev)
	subs := m.registry.Snapshot()
	m.mu.Unlock()

	m.received.Add(1)
	m.metrics.RecordFrame()
	for _, s := range subs {
		m.notifyData(s, ev)
	}
}

func (m *Manager) fail(gen uint64, cause error) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	if gen != m.gen || !m.active {
		m.mu.Unlock()
		return
	}
	m.active = false
	m.teardownLocked()
	m.state.IsConnected = false
	m.state.LastError = models.ConnectionLostMessage
	attempt, delay := m.reconn.Fail()
	m.state.ReconnectAttempts = attempt
	scheduled := m.registry.Len() > 0
	if scheduled {
		m.reconn.Schedule(delay, m.reconnect)
	}
	subs := m.registry.Snapshot()
	msg := m.state.LastError
	m.mu.Unlock()

	m.metrics.SetConnected(false)
	m.metrics.RecordError("stream")
	if scheduled {
		m.metrics.RecordReconnect(attempt, delay)
	}
	m.log.Warn("stream connection lost",
		logger.Error(cause),
		logger.Int("attempt", attempt),
		logger.Duration("delay_ms", delay),
		logger.Bool("scheduled", scheduled),
	)

	for _, s := range subs {
		m.notifyError(s, msg)
	}
}

func (m *Manager) reconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registry.Len() == 0 {
		return
	}
	m.log.Info("stream reconnecting", logger.Int("attempt", m.state.ReconnectAttempts))
	m.openLocked()
}

func (m *Manager) notifyData(s *Subscription, ev *models.StreamEvent) {
	if !s.Active() {
		return
	}
	defer m.recoverCallback(s, "data")
	s.onData(ev)
}

func (m *Manager) notifyError(s *Subscription, msg string) {
	if !s.Active() {
		return
	}
	defer m.recoverCallback(s, "error")
	s.onError(msg)
}

func (m *Manager) recoverCallback(s *Subscription, kind string) {
	if r := recover(); r != nil {
		m.metrics.RecordCallbackPanic()
		m.log.Error("stream subscriber panicked",
			logger.String("subscriber", s.ID),
			logger.String("callback", kind),
			logger.Any("panic", fmt.Sprint(r)),
		)
	}
}
