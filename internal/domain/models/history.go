package models

import (
	"encoding/json"
	"fmt"

	"SwanPulse/pkg/util"
)

// ScoreKind selects which upstream score family a history call targets.
type ScoreKind string

const (
	KindBlackSwan ScoreKind = "blackswan"
	KindPeak      ScoreKind = "peak"
)

// Valid reports whether k is a known score family.
func (k ScoreKind) Valid() bool { return k == KindBlackSwan || k == KindPeak }

// HistoryView selects between the full analysis list and chart points.
type HistoryView string

const (
	ViewHistory HistoryView = "history"
	ViewChart   HistoryView = "chart"
)

// Valid reports whether v is a known history view.
func (v HistoryView) Valid() bool { return v == ViewHistory || v == ViewChart }

// HistoryRequest is the body accepted by the history and chart routes.
type HistoryRequest struct {
	UID string `json:"uid" validate:"omitempty,max=128,printascii"`
}

// UpstreamRecord is one element of an upstream history array. Black swan
// and peak records share the envelope; unused fields stay empty.
type UpstreamRecord struct {
	Score                   *float64   `json:"score"`
	Timestamp               *int64     `json:"timestamp"`
	Confidence              *string    `json:"confidence"`
	Analysis                *string    `json:"analysis"`
	Summary                 *string    `json:"summary"`
	Reasoning               *Reasoning `json:"reasoning"`
	CurrentMarketIndicators []string   `json:"currentMarketIndicators"`
	PrimaryRiskFactors      []string   `json:"primaryRiskFactors"`
	KeyFactors              []string   `json:"keyFactors"`
}

// HistoryRecord is a normalised history entry. It serialises with the
// fields of its own score family only, defaults included.
type HistoryRecord struct {
	Kind                    ScoreKind
	ID                      string
	Score                   float64
	Timestamp               int64
	Confidence              Confidence
	Analysis                string
	Summary                 string
	Reasoning               Reasoning
	CurrentMarketIndicators []string
	PrimaryRiskFactors      []string
	KeyFactors              []string
}

type blackSwanRecordJSON struct {
	ID                      string     `json:"id"`
	Score                   float64    `json:"score"`
	Timestamp               int64      `json:"timestamp"`
	Confidence              Confidence `json:"confidence"`
	Analysis                string     `json:"analysis"`
	Reasoning               Reasoning  `json:"reasoning"`
	CurrentMarketIndicators []string   `json:"currentMarketIndicators"`
	PrimaryRiskFactors      []string   `json:"primaryRiskFactors"`
}

type peakRecordJSON struct {
	ID         string    `json:"id"`
	Score      float64   `json:"score"`
	Timestamp  int64     `json:"timestamp"`
	Summary    string    `json:"summary"`
	Reasoning  Reasoning `json:"reasoning"`
	KeyFactors []string  `json:"keyFactors"`
}

func (r HistoryRecord) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindPeak:
		return json.Marshal(peakRecordJSON{
			ID:         r.ID,
			Score:      r.Score,
			Timestamp:  r.Timestamp,
			Summary:    r.Summary,
			Reasoning:  r.Reasoning,
			KeyFactors: orEmpty(r.KeyFactors),
		})
	case KindBlackSwan:
		return json.Marshal(blackSwanRecordJSON{
			ID:                      r.ID,
			Score:                   r.Score,
			Timestamp:               r.Timestamp,
			Confidence:              r.Confidence,
			Analysis:                r.Analysis,
			Reasoning:               r.Reasoning,
			CurrentMarketIndicators: orEmpty(r.CurrentMarketIndicators),
			PrimaryRiskFactors:      orEmpty(r.PrimaryRiskFactors),
		})
	default:
		return nil, fmt.Errorf("history record: unknown kind %q", r.Kind)
	}
}

// ChartPoint is a normalised chart sample.
type ChartPoint struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	Timestamp int64   `json:"timestamp"`
	Date      string  `json:"date"`
}

// NormalizeHistory fills defaults the way the dashboard expects them.
func NormalizeHistory(kind ScoreKind, in []UpstreamRecord) []HistoryRecord {
	out := make([]HistoryRecord, 0, len(in))
	for i, r := range in {
		rec := HistoryRecord{
			Kind:      kind,
			ID:        fmt.Sprint(i),
			Score:     deref(r.Score),
			Timestamp: deref(r.Timestamp),
			Reasoning: Reasoning{Items: []string{}},
		}
		if r.Reasoning != nil {
			rec.Reasoning = *r.Reasoning
		}
		switch kind {
		case KindBlackSwan:
			rec.Confidence = ConfidenceUnknown
			if r.Confidence != nil {
				rec.Confidence = ParseConfidence(*r.Confidence)
			}
			rec.Analysis = deref(r.Analysis)
			rec.CurrentMarketIndicators = orEmpty(r.CurrentMarketIndicators)
			rec.PrimaryRiskFactors = orEmpty(r.PrimaryRiskFactors)
		case KindPeak:
			rec.Summary = deref(r.Summary)
			rec.KeyFactors = orEmpty(r.KeyFactors)
		}
		out = append(out, rec)
	}
	return out
}

// NormalizeChart converts upstream samples into labelled chart points.
func NormalizeChart(in []UpstreamRecord) []ChartPoint {
	out := make([]ChartPoint, 0, len(in))
	for i, r := range in {
		ts := deref(r.Timestamp)
		out = append(out, ChartPoint{
			ID:        fmt.Sprint(i),
			Score:     deref(r.Score),
			Timestamp: ts,
			Date:      ChartLabel(ts),
		})
	}
	return out
}

// ChartLabel renders "Jan 2_<ts>"; the suffix keeps same-day labels unique.
func ChartLabel(tsMillis int64) string {
	return fmt.Sprintf("%s_%d", util.DayLabel(tsMillis), tsMillis)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
