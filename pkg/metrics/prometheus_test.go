package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordFrame()
	r.RecordFrame()
	r.RecordDrop("json")
	r.RecordDrop("missing_fields")
	r.RecordDrop("missing_fields")
	r.RecordReconnect(3, 8*time.Second)
	r.SetConnected(true)
	r.SetSubscribers(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.framesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.droppedTotal.WithLabelValues("json")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.droppedTotal.WithLabelValues("missing_fields")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.reconnects))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.backoffSeconds))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.connected))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.subscribers))

	r.SetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.connected))
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
