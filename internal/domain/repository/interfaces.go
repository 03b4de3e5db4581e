package repository

import (
	"context"
	"time"

	"SwanPulse/internal/domain/models"
	"SwanPulse/pkg/sse"
)

// FrameStream is one live upstream connection.
type FrameStream interface {
	// Next blocks until the next frame or a transport error.
	Next() (sse.Event, error)
	// Close aborts the connection and unblocks Next.
	Close() error
}

// StreamDialer opens upstream connections.
type StreamDialer interface {
	Dial(ctx context.Context) (FrameStream, error)
}

// HistorySource fetches raw history/chart arrays from the platform API.
type HistorySource interface {
	Fetch(ctx context.Context, kind models.ScoreKind, view models.HistoryView, uid string) ([]byte, error)
}

// EventSink persists or republishes stream events.
type EventSink interface {
	Name() string
	Write(ctx context.Context, ev *models.StreamEvent) error
	Close() error
}

// StreamMetrics records stream health.
type StreamMetrics interface {
	RecordFrame()
	RecordDrop(reason string)
	RecordReconnect(attempt int, delay time.Duration)
	SetConnected(connected bool)
	SetSubscribers(n int)
	RecordCallbackPanic()
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
