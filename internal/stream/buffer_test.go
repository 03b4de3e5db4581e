package stream

import (
	"testing"

	"SwanPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func stamps(events []*models.StreamEvent) []int64 {
	out := make([]int64, len(events))
	for i, ev := range events {
		out[i] = ev.Timestamp
	}
	return out
}

func TestBuffer_KeepsLastFive(t *testing.T) {
	b := NewBuffer(DefaultBufferSize)
	for ts := int64(1); ts <= 7; ts++ {
		b.Push(&models.StreamEvent{Timestamp: ts})
	}

	assert.Equal(t, 5, b.Len())
	assert.Equal(t, []int64{3, 4, 5, 6, 7}, stamps(b.Snapshot()))
	latest, ok := b.Latest()
	assert.True(t, ok)
	assert.Equal(t, int64(7), latest.Timestamp)
}

func TestBuffer_Empty(t *testing.T) {
	b := NewBuffer(0)
	assert.Equal(t, DefaultBufferSize, b.Cap())
	_, ok := b.Latest()
	assert.False(t, ok)
	assert.Empty(t, b.Snapshot())
}

func TestBuffer_Capacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 10).Draw(t, "capacity")
		pushes := rapid.IntRange(0, 40).Draw(t, "pushes")

		b := NewBuffer(capacity)
		var all []int64
		for i := 1; i <= pushes; i++ {
			b.Push(&models.StreamEvent{Timestamp: int64(i)})
			all = append(all, int64(i))
		}

		want := all
		if len(want) > capacity {
			want = want[len(want)-capacity:]
		}
		got := stamps(b.Snapshot())
		if len(got) != len(want) {
			t.Fatalf("len %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("snapshot %v, want %v", got, want)
			}
		}
	})
}
