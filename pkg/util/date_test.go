package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromMillis(t *testing.T) {
	got := FromMillis(1_700_000_000_123)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, int64(1_700_000_000_123), got.UnixMilli())
	assert.Equal(t, "Nov 14", DayLabel(1_700_000_000_000))
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 8080, ParseIntDefault("", 8080))
	assert.Equal(t, 8080, ParseIntDefault("http", 8080))
	assert.Equal(t, 9000, ParseIntDefault(" 9000 ", 8080))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitList(" a:9092, ,b:9092 "))
	assert.Nil(t, SplitList(""))
}
