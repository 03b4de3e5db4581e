package main

import (
	"bytes"
	"strings"
	"testing"

	"SwanPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestRenderEvent(t *testing.T) {
	ev := &models.StreamEvent{
		Timestamp: 1_700_000_000_000,
		BlackSwan: &models.BlackSwan{Score: 72, Confidence: models.ConfidenceHigh, Change: -1.5},
		Peak:      &models.Peak{Score: 40, Change: 2},
		Market:    &models.Market{Signal: models.SignalSell, CombinedScore: 56},
	}
	line := renderEvent(ev)
	assert.Contains(t, line, "SELL")
	assert.Contains(t, line, "72 (high, -1.5)")
	assert.Contains(t, line, "40 (+2.0)")
	assert.Contains(t, line, "56")
}

func TestTailPrinter_PrintsOnlyChanges(t *testing.T) {
	var out bytes.Buffer
	var p tailPrinter
	ev := &models.StreamEvent{Timestamp: 1000, Market: &models.Market{Signal: models.SignalBuy}}

	p.print(&out, models.ViewState{IsLoading: true})
	p.print(&out, models.ViewState{IsLoading: true})
	p.print(&out, models.ViewState{Data: ev, IsConnected: true})
	p.print(&out, models.ViewState{Data: ev, IsConnected: true})
	p.print(&out, models.ViewState{Data: ev, IsReconnecting: true})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "connecting...")
	assert.Contains(t, lines[1], "BUY")
	assert.Contains(t, lines[2], "reconnecting...")
}
