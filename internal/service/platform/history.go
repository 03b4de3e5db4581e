package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SwanPulse/internal/domain/models"
	xhttp "SwanPulse/pkg/http"
	"SwanPulse/pkg/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned while the breaker is open or the limiter
// cannot admit the request before its deadline.
var ErrUnavailable = errors.New("platform api unavailable")

// HistoryConfig tunes HistoryClient.
type HistoryConfig struct {
	BaseURL             string
	RPS                 float64
	Burst               int
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// HistoryClient fetches history and chart arrays from the platform API.
type HistoryClient struct {
	baseURL string
	client  *xhttp.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewHistoryClient creates a HistoryClient.
func NewHistoryClient(cfg HistoryConfig, client *xhttp.Client, l *logger.Logger) *HistoryClient {
	if client == nil {
		client = xhttp.NewClient()
	}
	if l == nil {
		l = logger.Nop()
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	h := &HistoryClient{
		baseURL: cfg.BaseURL,
		client:  client,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		log:     l.With(logger.String("component", "platform_history")),
	}

	st := gobreaker.Settings{Name: "platform-history", Timeout: cfg.OpenTimeout}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		h.log.Warn("breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	}
	h.breaker = gobreaker.NewCircuitBreaker(st)
	return h
}

// Fetch implements repository.HistorySource. It returns the raw JSON body.
func (h *HistoryClient) Fetch(ctx context.Context, kind models.ScoreKind, view models.HistoryView, uid string) ([]byte, error) {
	if !kind.Valid() || !view.Valid() {
		return nil, fmt.Errorf("unsupported history route %q/%q", kind, view)
	}
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out, err := h.breaker.Execute(func() (interface{}, error) {
		var body []byte
		err := h.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodPost,
			URL:     fmt.Sprintf("%s/api/%s/%s", h.baseURL, kind, view),
			Headers: map[string]string{"Accept": "application/json"},
			Body:    models.HistoryRequest{UID: uid},
		}, &body)
		return body, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", kind, view, err)
	}
	return out.([]byte), nil
}
