package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SwanPulse/internal/domain/models"
	domrepo "SwanPulse/internal/domain/repository"
	"SwanPulse/pkg/cache"
	"SwanPulse/pkg/logger"
)

// ErrUnknownKind is returned for a score family other than blackswan or peak.
var ErrUnknownKind = errors.New("unknown score kind")

// LatestSource exposes the newest stream event.
type LatestSource interface {
	Latest() (*models.StreamEvent, bool)
}

// HistoryService serves normalised history and chart data. Results are
// cached per stream event: the newest buffered timestamp is part of the
// key, so every new event makes the next read go upstream.
type HistoryService struct {
	source  domrepo.HistorySource
	cache   cache.Service
	latest  LatestSource
	ttl     time.Duration
	metrics domrepo.StreamMetrics
	log     *logger.Logger
}

func NewHistoryService(source domrepo.HistorySource, c cache.Service, latest LatestSource, ttl time.Duration, metrics domrepo.StreamMetrics, l *logger.Logger) *HistoryService {
	if l == nil {
		l = logger.Nop()
	}
	return &HistoryService{
		source:  source,
		cache:   c,
		latest:  latest,
		ttl:     ttl,
		metrics: metrics,
		log:     l.With(logger.String("component", "history")),
	}
}

// History returns the analysis history for kind. Upstream failures yield
// an empty list, never an error.
func (s *HistoryService) History(ctx context.Context, kind models.ScoreKind, uid string) ([]models.HistoryRecord, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return models.NormalizeHistory(kind, s.records(ctx, kind, models.ViewHistory, uid)), nil
}

// Chart returns labelled chart points for kind.
func (s *HistoryService) Chart(ctx context.Context, kind models.ScoreKind, uid string) ([]models.ChartPoint, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return models.NormalizeChart(s.records(ctx, kind, models.ViewChart, uid)), nil
}

func (s *HistoryService) records(ctx context.Context, kind models.ScoreKind, view models.HistoryView, uid string) []models.UpstreamRecord {
	start := time.Now()
	key := s.cacheKey(kind, view, uid)

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			if recs, err := decodeRecords(raw); err == nil {
				return recs
			}
		case !errors.Is(err, cache.ErrCacheMiss):
			s.log.Warn("history cache read failed", logger.String("key", key), logger.Error(err))
		}
	}

	raw, err := s.source.Fetch(ctx, kind, view, uid)
	if err != nil {
		s.metrics.RecordError("history_upstream")
		s.log.Warn("history upstream failed",
			logger.String("kind", string(kind)),
			logger.String("view", string(view)),
			logger.Error(err),
		)
		return nil
	}
	recs, err := decodeRecords(raw)
	if err != nil {
		s.metrics.RecordError("history_decode")
		s.log.Warn("history response is not a record array",
			logger.String("kind", string(kind)),
			logger.String("view", string(view)),
			logger.Error(err),
		)
		return nil
	}
	s.metrics.RecordLatency("history_"+string(view), time.Since(start).Seconds())

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			s.log.Warn("history cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return recs
}

func (s *HistoryService) cacheKey(kind models.ScoreKind, view models.HistoryView, uid string) string {
	var ts int64
	if s.latest != nil {
		if ev, ok := s.latest.Latest(); ok {
			ts = ev.Timestamp
		}
	}
	return cache.GenerateKeyWithParams("history", kind, view, cache.HashKey(uid), ts)
}

func decodeRecords(raw []byte) ([]models.UpstreamRecord, error) {
	var recs []models.UpstreamRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
