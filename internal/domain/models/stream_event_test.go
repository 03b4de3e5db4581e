package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStreamEvent(t *testing.T) {
	ev, err := DecodeStreamEvent([]byte(`{
		"blackswan":{"score":72,"confidence":"Very High","reasoning":"steady"},
		"peak":{"score":40,"reasoning":["a","b"]},
		"market":{"signal":" sell ","combinedScore":56},
		"timestamp":1000}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), ev.Timestamp)
	assert.Equal(t, ConfidenceHigh, ev.BlackSwan.Confidence)
	assert.Equal(t, "steady", ev.BlackSwan.Reasoning.Text)
	assert.Equal(t, []string{"a", "b"}, ev.Peak.Reasoning.Items)
	assert.Equal(t, SignalSell, ev.Market.Signal)
}

func TestDecodeStreamEvent_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{"blackswan":`, ErrMalformedFrame},
		{"array", `[1,2]`, ErrMalformedFrame},
		{"missing market", `{"blackswan":{},"peak":{}}`, ErrIncompleteFrame},
		{"null market", `{"blackswan":{},"peak":{},"market":null}`, ErrIncompleteFrame},
		{"empty object", `{}`, ErrIncompleteFrame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeStreamEvent([]byte(tt.data))
			assert.Nil(t, ev)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseConfidence(t *testing.T) {
	cases := map[string]Confidence{
		"low":       ConfidenceLow,
		"Very Low":  ConfidenceLow,
		" medium ":  ConfidenceMedium,
		"HIGH":      ConfidenceHigh,
		"very high": ConfidenceHigh,
		"":          ConfidenceUnknown,
		"certain":   ConfidenceUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseConfidence(in), in)
	}

	var c Confidence
	require.NoError(t, json.Unmarshal([]byte(`42`), &c))
	assert.Equal(t, ConfidenceUnknown, c)
}

func TestReasoning_RoundTripShape(t *testing.T) {
	var text Reasoning
	require.NoError(t, json.Unmarshal([]byte(`"one paragraph"`), &text))
	assert.False(t, text.IsList())
	assert.Equal(t, []string{"one paragraph"}, text.Lines())
	out, err := json.Marshal(text)
	require.NoError(t, err)
	assert.JSONEq(t, `"one paragraph"`, string(out))

	var list Reasoning
	require.NoError(t, json.Unmarshal([]byte(`[]`), &list))
	assert.True(t, list.IsList())
	out, err = json.Marshal(list)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(out))

	var empty Reasoning
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.Nil(t, empty.Lines())

	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &text))
}

func TestChartLabel(t *testing.T) {
	assert.Equal(t, "Nov 14_1700000000000", ChartLabel(1_700_000_000_000))
	assert.Equal(t, "Jan 1_0", ChartLabel(0))
}

func TestNormalizeHistory_MarshalsPerKind(t *testing.T) {
	score := 10.0
	ts := int64(1)
	in := []UpstreamRecord{{Score: &score, Timestamp: &ts}}

	out, err := json.Marshal(NormalizeHistory(KindBlackSwan, in))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"0","score":10,"timestamp":1,"confidence":"unknown","analysis":"",
		"reasoning":[],"currentMarketIndicators":[],"primaryRiskFactors":[]}]`, string(out))

	out, err = json.Marshal(NormalizeHistory(KindPeak, in))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"0","score":10,"timestamp":1,"summary":"","reasoning":[],"keyFactors":[]}]`, string(out))

	_, err = json.Marshal(HistoryRecord{ID: "0"})
	assert.Error(t, err)
}
