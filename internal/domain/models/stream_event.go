package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Confidence is the certainty band reported with a black swan score.
type Confidence string

const (
	ConfidenceLow     Confidence = "low"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceHigh    Confidence = "high"
	ConfidenceUnknown Confidence = "unknown"
)

// ParseConfidence maps upstream wording onto the four known bands.
func ParseConfidence(s string) Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "very low":
		return ConfidenceLow
	case "medium":
		return ConfidenceMedium
	case "high", "very high":
		return ConfidenceHigh
	default:
		return ConfidenceUnknown
	}
}

func (c *Confidence) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*c = ConfidenceUnknown
		return nil
	}
	*c = ParseConfidence(s)
	return nil
}

// Signal is the combined market call.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalHold Signal = "HOLD"
	SignalSell Signal = "SELL"
)

// Valid reports whether s is one of BUY, HOLD or SELL.
func (s Signal) Valid() bool {
	return s == SignalBuy || s == SignalHold || s == SignalSell
}

func (s *Signal) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("signal: %w", err)
	}
	*s = Signal(strings.ToUpper(strings.TrimSpace(raw)))
	return nil
}

// Reasoning is either a single paragraph or an ordered list of points.
type Reasoning struct {
	Text  string
	Items []string
}

// IsList reports whether the upstream sent a list.
func (r Reasoning) IsList() bool { return r.Items != nil }

// Lines returns the reasoning as a list regardless of its wire shape.
func (r Reasoning) Lines() []string {
	if r.IsList() {
		return r.Items
	}
	if r.Text == "" {
		return nil
	}
	return []string{r.Text}
}

func (r *Reasoning) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = Reasoning{}
		return nil
	}
	if b[0] == '[' {
		items := []string{}
		if err := json.Unmarshal(b, &items); err != nil {
			return fmt.Errorf("reasoning list: %w", err)
		}
		*r = Reasoning{Items: items}
		return nil
	}
	var text string
	if err := json.Unmarshal(b, &text); err != nil {
		return fmt.Errorf("reasoning text: %w", err)
	}
	*r = Reasoning{Text: text}
	return nil
}

func (r Reasoning) MarshalJSON() ([]byte, error) {
	if r.IsList() {
		return json.Marshal(r.Items)
	}
	return json.Marshal(r.Text)
}

// BlackSwan is the tail-risk half of a stream event.
type BlackSwan struct {
	Score                   float64    `json:"score"`
	Confidence              Confidence `json:"confidence"`
	Timestamp               int64      `json:"timestamp"`
	Analysis                string     `json:"analysis"`
	Reasoning               *Reasoning `json:"reasoning,omitempty"`
	CurrentMarketIndicators []string   `json:"currentMarketIndicators,omitempty"`
	PrimaryRiskFactors      []string   `json:"primaryRiskFactors,omitempty"`
	Change                  float64    `json:"change"`
}

// Peak is the cycle-top half of a stream event.
type Peak struct {
	Score      float64    `json:"score"`
	Timestamp  int64      `json:"timestamp"`
	Summary    string     `json:"summary"`
	Reasoning  *Reasoning `json:"reasoning,omitempty"`
	KeyFactors []string   `json:"keyFactors,omitempty"`
	Change     float64    `json:"change"`
}

// Market is the derived BUY/HOLD/SELL call.
type Market struct {
	Signal        Signal  `json:"signal"`
	Description   string  `json:"description"`
	CombinedScore float64 `json:"combinedScore"`
	Timestamp     int64   `json:"timestamp"`
}

// StreamEvent is one valid frame of the home stream. Values are shared
// between every consumer and must be treated as read-only.
type StreamEvent struct {
	BlackSwan *BlackSwan `json:"blackswan"`
	Peak      *Peak      `json:"peak"`
	Market    *Market    `json:"market"`
	Timestamp int64      `json:"timestamp"`
}

var (
	// ErrMalformedFrame is returned when a frame is not a JSON object.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrIncompleteFrame is returned when blackswan, peak or market is absent.
	ErrIncompleteFrame = errors.New("frame missing blackswan, peak or market")
)

// DecodeStreamEvent parses a frame payload. Only payloads carrying all three
// of blackswan, peak and market are accepted.
func DecodeStreamEvent(data []byte) (*StreamEvent, error) {
	var ev StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if ev.BlackSwan == nil || ev.Peak == nil || ev.Market == nil {
		return nil, ErrIncompleteFrame
	}
	return &ev, nil
}
