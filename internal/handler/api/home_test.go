package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SwanPulse/internal/domain/models"
	"SwanPulse/internal/stream"
	"SwanPulse/pkg/sse"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newRelayServer(t *testing.T, m *stream.Manager) *httptest.Server {
	t.Helper()
	e := echo.New()
	NewHomeHandler(nil, m, time.Hour).RegisterRoutes(e)
	NewSocketHandler(nil, m, time.Hour, []string{"*"}).RegisterRoutes(e)
	NewHealthHandler(m).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

// nextNamed reads frames until one named name arrives.
func nextNamed(t *testing.T, dec *sse.Decoder, name string) sse.Event {
	t.Helper()
	for {
		ev, err := dec.Next()
		require.NoError(t, err)
		if ev.Name == name {
			return ev
		}
	}
}

func TestHome_StreamRelaysEvents(t *testing.T) {
	d := &pipeDialer{}
	m := newManager(t, d)
	srv := newRelayServer(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/home", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	dec := sse.NewDecoder(res.Body)
	first := nextNamed(t, dec, eventStatus)
	assert.Equal(t, retryHintMs, first.Retry)

	require.Eventually(t, m.Connected, waitFor, tick)
	require.NoError(t, d.send(homeFrame(1000, 72, models.SignalSell)))
	initial := nextNamed(t, dec, eventInit)
	assert.Equal(t, "1000", initial.ID)

	var got models.StreamEvent
	require.NoError(t, json.Unmarshal(initial.Data, &got))
	assert.Equal(t, 72.0, got.BlackSwan.Score)

	require.NoError(t, d.send(homeFrame(2000, 65, models.SignalSell)))
	upd := nextNamed(t, dec, eventUpdate)
	assert.Equal(t, "2000", upd.ID)

	cancel()
	require.Eventually(t, func() bool { return m.Subscribers() == 0 && !m.Connected() }, waitFor, tick)
}

func TestHome_LatestDoesNotOpenStream(t *testing.T) {
	d := &pipeDialer{}
	m := newManager(t, d)
	srv := newRelayServer(t, m)

	res, err := http.Get(srv.URL + "/api/home/latest")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		Status int              `json:"status"`
		Data   models.ViewState `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.True(t, body.Data.IsLoading)
	assert.Nil(t, body.Data.Data)
	assert.Zero(t, m.Subscribers())
	assert.Empty(t, d.conns)
}

func TestHome_LatestReturnsBufferedEvent(t *testing.T) {
	d := &pipeDialer{}
	m := newManager(t, d)
	srv := newRelayServer(t, m)

	v := stream.NewView(m)
	defer v.Close()
	require.Eventually(t, m.Connected, waitFor, tick)
	require.NoError(t, d.send(homeFrame(1000, 72, models.SignalSell)))
	require.Eventually(t, func() bool { return v.State().Data != nil }, waitFor, tick)

	res, err := http.Get(srv.URL + "/api/home/latest")
	require.NoError(t, err)
	defer res.Body.Close()

	var body struct {
		Data models.ViewState `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.NotNil(t, body.Data.Data)
	assert.Equal(t, int64(1000), body.Data.Data.Timestamp)
	assert.True(t, body.Data.IsConnected)
	assert.False(t, body.Data.IsLoading)
}

func TestSocket_PushesViewState(t *testing.T) {
	d := &pipeDialer{}
	m := newManager(t, d)
	srv := newRelayServer(t, m)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/home"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, m.Connected, waitFor, tick)
	require.NoError(t, d.send(homeFrame(1000, 72, models.SignalSell)))

	_ = conn.SetReadDeadline(time.Now().Add(waitFor))
	for {
		var st models.ViewState
		require.NoError(t, conn.ReadJSON(&st))
		if st.Data != nil {
			assert.Equal(t, int64(1000), st.Data.Timestamp)
			assert.Equal(t, models.SignalSell, st.Data.Market.Signal)
			break
		}
	}

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return m.Subscribers() == 0 }, waitFor, tick)
}

func TestSocket_RejectsForeignOrigin(t *testing.T) {
	check := originChecker([]string{"https://app.example"})

	r := httptest.NewRequest(http.MethodGet, "http://relay.local/ws/home", nil)
	r.Header.Set("Origin", "https://app.example")
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(r))

	r.Header.Set("Origin", "http://relay.local")
	assert.True(t, check(r))
}

func TestHealth(t *testing.T) {
	d := &pipeDialer{}
	m := newManager(t, d)
	srv := newRelayServer(t, m)

	read := func() healthReport {
		res, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusOK, res.StatusCode)
		var body struct {
			Data healthReport `json:"data"`
		}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		return body.Data
	}

	assert.Equal(t, healthIdle, read().Status)

	v := stream.NewView(m)
	defer v.Close()
	require.Eventually(t, m.Connected, waitFor, tick)
	require.NoError(t, d.send(homeFrame(1000, 72, models.SignalSell)))
	require.Eventually(t, func() bool { return m.Stats().Received == 1 }, waitFor, tick)

	h := read()
	assert.Equal(t, healthOK, h.Status)
	assert.True(t, h.Connection.IsConnected)
	assert.Equal(t, 1, h.Stats.Subscribers)
	assert.Equal(t, 1, h.Stats.Buffered)
	assert.Equal(t, uint64(1), h.Stats.Received)
}
