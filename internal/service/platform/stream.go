package platform

import (
	"context"
	"fmt"
	"io"
	"sync"

	drepo "SwanPulse/internal/domain/repository"
	xhttp "SwanPulse/pkg/http"
	"SwanPulse/pkg/logger"
	"SwanPulse/pkg/sse"
)

const homePath = "/api/home"

// SSEDialer opens the platform home stream.
type SSEDialer struct {
	url    string
	client *xhttp.Client
	log    *logger.Logger

	mu     sync.Mutex
	lastID string
}

// NewSSEDialer creates a dialer for {baseURL}/api/home. The client should
// have no timeout; each connection lives until it fails or is closed.
func NewSSEDialer(baseURL string, client *xhttp.Client, l *logger.Logger) *SSEDialer {
	if client == nil {
		client = xhttp.NewClient(xhttp.WithTimeout(0))
	}
	if l == nil {
		l = logger.Nop()
	}
	return &SSEDialer{url: baseURL + homePath, client: client, log: l}
}

// Dial implements repository.StreamDialer.
func (d *SSEDialer) Dial(ctx context.Context) (drepo.FrameStream, error) {
	headers := map[string]string{
		"Accept":        "text/event-stream",
		"Cache-Control": "no-cache",
	}
	d.mu.Lock()
	if d.lastID != "" {
		headers["Last-Event-ID"] = d.lastID
	}
	d.mu.Unlock()

	resp, err := d.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     d.url,
		Headers: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("dial home stream: %w", err)
	}
	d.log.Debug("home stream dialed", logger.String("url", d.url), logger.Int("status", resp.StatusCode))
	return &sseStream{d: d, body: resp.Body, dec: sse.NewDecoder(resp.Body)}, nil
}

func (d *SSEDialer) remember(id string) {
	if id == "" {
		return
	}
	d.mu.Lock()
	d.lastID = id
	d.mu.Unlock()
}

type sseStream struct {
	d    *SSEDialer
	body io.ReadCloser
	dec  *sse.Decoder
	once sync.Once
}

func (s *sseStream) Next() (sse.Event, error) {
	ev, err := s.dec.Next()
	if err != nil {
		return sse.Event{}, err
	}
	s.d.remember(ev.ID)
	return ev, nil
}

func (s *sseStream) Close() error {
	var err error
	s.once.Do(func() { err = s.body.Close() })
	return err
}
