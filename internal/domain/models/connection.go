package models

import "strings"

// ConnectionLostMessage is the error recorded on any transport failure.
const ConnectionLostMessage = "Connection lost. Reconnecting..."

// ConnectionState describes the upstream stream. It is written only by the
// stream manager.
type ConnectionState struct {
	IsConnected       bool   `json:"isConnected"`
	LastError         string `json:"lastError,omitempty"`
	ReconnectAttempts int    `json:"reconnectAttempts"`
}

// IsConnectionLost reports whether msg describes a transport drop rather
// than some other failure.
func IsConnectionLost(msg string) bool {
	return strings.Contains(msg, "Connection lost")
}

// ViewState is what a single consumer reads.
type ViewState struct {
	Data           *StreamEvent `json:"data"`
	IsLoading      bool         `json:"isLoading"`
	Error          string       `json:"error,omitempty"`
	IsConnected    bool         `json:"isConnected"`
	IsReconnecting bool         `json:"isReconnecting"`
}

// StreamStats are the manager's internal counters.
type StreamStats struct {
	Received    uint64 `json:"received"`
	Dropped     uint64 `json:"dropped"`
	Ignored     uint64 `json:"ignored"`
	Subscribers int    `json:"subscribers"`
	Buffered    int    `json:"buffered"`
}
