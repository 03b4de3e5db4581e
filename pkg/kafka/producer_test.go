package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, "swanpulse.home", "snappy", reg)

	require.NoError(t, p.Publish(context.Background(), []byte("SELL"), []byte(`{"timestamp":1}`)))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "SELL", string(w.msgs[0].Key))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.msgs.WithLabelValues("swanpulse.home", "snappy", "ok")))

	w.err = errors.New("leader not available")
	err := p.Publish(context.Background(), nil, []byte("x"))
	assert.ErrorContains(t, err, "swanpulse.home")
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.msgs.WithLabelValues("swanpulse.home", "snappy", "error")))
}

func TestNewProducer_Validates(t *testing.T) {
	_, err := NewProducer("t", nil)
	assert.Error(t, err)
	_, err = NewProducer("", nil, WithBrokers([]string{"localhost:9092"}))
	assert.Error(t, err)

	p, err := NewProducer("t", nil, WithBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	assert.Equal(t, "t", p.Topic())
	require.NoError(t, p.Close())
}

func TestTemporary(t *testing.T) {
	assert.True(t, Temporary(kafka.LeaderNotAvailable))
	assert.False(t, Temporary(kafka.TopicAuthorizationFailed))
	assert.True(t, Temporary(context.DeadlineExceeded))
}
