package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"SwanPulse/internal/domain/models"
	"SwanPulse/internal/domain/repository"
	"SwanPulse/pkg/util"
)

// DefaultScoreTable is where ClickHouseScoreStorage writes unless told otherwise.
const DefaultScoreTable = "home_scores"

// ScoreSchema returns the DDL for the score table.
func ScoreSchema(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	ts DateTime64(3, 'UTC'),
	blackswan_score Float64,
	blackswan_confidence LowCardinality(String),
	blackswan_change Float64,
	peak_score Float64,
	peak_change Float64,
	market_signal LowCardinality(String),
	combined_score Float64,
	payload String
) ENGINE = ReplacingMergeTree
ORDER BY ts`, table)}
}

// ClickHouseScoreStorage stores one row per stream event.
type ClickHouseScoreStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseScoreStorage creates ClickHouse storage.
func NewClickHouseScoreStorage(db *sql.DB, table string) repository.EventSink {
	if table == "" {
		table = DefaultScoreTable
	}
	return &ClickHouseScoreStorage{db: db, table: table}
}

func (s *ClickHouseScoreStorage) Name() string { return "clickhouse" }

func (s *ClickHouseScoreStorage) Write(ctx context.Context, ev *models.StreamEvent) error {
	if ev.BlackSwan == nil || ev.Peak == nil || ev.Market == nil {
		return models.ErrIncompleteFrame
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	q := fmt.Sprintf(`INSERT INTO %s (ts, blackswan_score, blackswan_confidence, blackswan_change, peak_score, peak_change, market_signal, combined_score, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err = s.db.ExecContext(ctx, q,
		util.FromMillis(ev.Timestamp),
		ev.BlackSwan.Score,
		string(ev.BlackSwan.Confidence),
		ev.BlackSwan.Change,
		ev.Peak.Score,
		ev.Peak.Change,
		string(ev.Market.Signal),
		ev.Market.CombinedScore,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", s.table, err)
	}
	return nil
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseScoreStorage) Close() error {
	return nil
}
