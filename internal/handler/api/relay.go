package api

import (
	"encoding/json"
	"strconv"

	"SwanPulse/internal/domain/models"
	"SwanPulse/pkg/sse"
)

const (
	eventInit   = "init"
	eventUpdate = "update"
	eventStatus = "status"
)

// retryHintMs is sent with the first frame so browsers reconnect at the
// same base delay the upstream manager uses.
const retryHintMs = 1000

// statusFrame is the payload of a status event.
type statusFrame struct {
	IsConnected    bool   `json:"isConnected"`
	IsReconnecting bool   `json:"isReconnecting"`
	Error          string `json:"error,omitempty"`
}

func statusOf(st models.ViewState) statusFrame {
	return statusFrame{
		IsConnected:    st.IsConnected,
		IsReconnecting: st.IsReconnecting,
		Error:          st.Error,
	}
}

// relay turns successive view states of one client into SSE frames. It
// emits only what changed since the previous call.
type relay struct {
	started bool
	sentTS  int64
	status  statusFrame
}

func (r *relay) frames(st models.ViewState) ([]sse.Event, error) {
	var out []sse.Event

	if st.Data != nil && st.Data.Timestamp > r.sentTS {
		body, err := json.Marshal(st.Data)
		if err != nil {
			return nil, err
		}
		name := eventUpdate
		if r.sentTS == 0 {
			name = eventInit
		}
		out = append(out, sse.Event{
			ID:   strconv.FormatInt(st.Data.Timestamp, 10),
			Name: name,
			Data: body,
		})
		r.sentTS = st.Data.Timestamp
	}

	if s := statusOf(st); !r.started || s != r.status {
		body, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sse.Event{Name: eventStatus, Data: body})
		r.status = s
	}

	if !r.started && len(out) > 0 {
		out[0].Retry = retryHintMs
	}
	r.started = true
	return out, nil
}
