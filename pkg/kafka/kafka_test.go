package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffStaysWithinRange(t *testing.T) {
	for attempt := 1; attempt < 12; attempt++ {
		d := backoff(10*time.Millisecond, 200*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 200*time.Millisecond)
	}
}

func TestParseCompression(t *testing.T) {
	c, err := parseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, kafka.Zstd, c)

	c, err = parseCompression("none")
	require.NoError(t, err)
	assert.Equal(t, kafka.Compression(0), c)

	_, err = parseCompression("brotli")
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	b, err := encode(map[string]int{"rows": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"rows":3}`, string(b))

	b, err = encode("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))
}

func TestConstructorsRequireBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
	_, err = NewConsumer()
	assert.Error(t, err)
}

type flakyHandler struct {
	fails int
	calls int
}

func (h *flakyHandler) Topic() string { return "t" }

func (h *flakyHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.calls <= h.fails {
		return errors.New("boom")
	}
	return nil
}

type panicHandler struct{}

func (panicHandler) Topic() string                        { return "p" }
func (panicHandler) Handle(context.Context, []byte) error { panic("bad payload") }

func TestHandleRetriesAndRecovers(t *testing.T) {
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
		WithConsumerRegisterer(prometheus.NewRegistry()),
	)
	require.NoError(t, err)

	h := &flakyHandler{fails: 2}
	require.NoError(t, c.handle(context.Background(), h, kafka.Message{Topic: "t"}))
	assert.Equal(t, 3, h.calls)

	h = &flakyHandler{fails: 10}
	assert.Error(t, c.handle(context.Background(), h, kafka.Message{Topic: "t"}))
	assert.Equal(t, 3, h.calls)

	err = c.handle(context.Background(), panicHandler{}, kafka.Message{Topic: "p"})
	assert.ErrorContains(t, err, "handler panic")
}

func TestStartWithoutHandlers(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	assert.Error(t, c.Start())
	assert.NoError(t, c.Stop(context.Background()))
}
