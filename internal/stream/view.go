package stream

import (
	"sync"

	"SwanPulse/internal/domain/models"
)

// View is one consumer's read interface onto a Manager. It is hydrated from
// the buffer when created, so a consumer that arrives after the stream has
// history never starts in a loading state, and it only ever moves forward
// in event time.
type View struct {
	m *Manager

	mu      sync.RWMutex
	data    *models.StreamEvent
	lastTS  int64
	loading bool
	err     string
	closed  bool

	changes chan struct{}
	dispose func()
}

// NewView subscribes to m and returns a hydrated view. Close it when the
// consumer goes away.
func NewView(m *Manager) *View {
	v := &View{m: m, loading: true, changes: make(chan struct{}, 1)}
	// Subscribe before hydrating: an event landing in between is then
	// delivered to onData rather than lost, and the timestamp guard keeps
	// hydration from overwriting it with something older.
	v.dispose = m.Subscribe(v.onData, v.onError)
	v.hydrate()
	return v
}

func (v *View) hydrate() {
	state, latest, buffered := v.m.snapshot()

	v.mu.Lock()
	defer v.mu.Unlock()
	if buffered > 0 && latest != nil {
		// an event delivered since Subscribe wins unless the head is newer
		v.applyLocked(latest)
		v.loading = false
		if models.IsConnectionLost(v.err) {
			v.err = ""
		}
		return
	}
	switch {
	case state.LastError != "":
		v.err = state.LastError
		v.loading = false
	case state.IsConnected:
		v.err = ""
	}
}

func (v *View) onData(ev *models.StreamEvent) {
	v.mu.Lock()
	changed := v.applyLocked(ev)
	if changed {
		v.loading = false
		v.err = ""
	}
	v.mu.Unlock()
	if changed {
		v.signal()
	}
}

// applyLocked takes ev if nothing is shown yet or it is strictly newer.
func (v *View) applyLocked(ev *models.StreamEvent) bool {
	if ev == nil || (v.data != nil && ev.Timestamp <= v.lastTS) {
		return false
	}
	v.data = ev
	v.lastTS = ev.Timestamp
	return true
}

func (v *View) onError(msg string) {
	v.mu.Lock()
	if v.m.buffer.Len() == 0 || !models.IsConnectionLost(msg) {
		v.err = msg
	}
	v.loading = false
	v.mu.Unlock()
	v.signal()
}

func (v *View) signal() {
	select {
	case v.changes <- struct{}{}:
	default:
	}
}

// State returns what the consumer should render right now. A connection
// loss is never reported as an error once any event has been buffered; it
// shows up as IsReconnecting instead.
func (v *View) State() models.ViewState {
	state, _, buffered := v.m.snapshot()

	v.mu.RLock()
	data, loading, errMsg := v.data, v.loading, v.err
	v.mu.RUnlock()

	if buffered > 0 && models.IsConnectionLost(errMsg) {
		errMsg = ""
	}
	return models.ViewState{
		Data:           data,
		IsLoading:      loading,
		Error:          errMsg,
		IsConnected:    state.IsConnected,
		IsReconnecting: models.IsConnectionLost(state.LastError) && buffered > 0,
	}
}

// Changes signals, coalesced, whenever the view's state may have changed.
// The channel is never closed.
func (v *View) Changes() <-chan struct{} { return v.changes }

// Close unsubscribes the view. Safe to call more than once.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()
	v.dispose()
}

// Snapshot derives a view state from m without subscribing, for one-shot
// reads that must not open or hold the upstream connection.
func Snapshot(m *Manager) models.ViewState {
	state, latest, buffered := m.snapshot()
	st := models.ViewState{
		Data:           latest,
		IsLoading:      latest == nil && state.LastError == "",
		Error:          state.LastError,
		IsConnected:    state.IsConnected,
		IsReconnecting: models.IsConnectionLost(state.LastError) && buffered > 0,
	}
	if buffered > 0 && models.IsConnectionLost(st.Error) {
		st.Error = ""
	}
	return st
}
