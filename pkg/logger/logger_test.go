package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]DigestEntry
}

func (p *capturePublisher) Publish(_ context.Context, topic string, _ []byte, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, value.([]DigestEntry))
	return nil
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}

func TestCollectorFoldsRepeatedErrors(t *testing.T) {
	pub := &capturePublisher{}
	log := Nop()
	log.AttachCollector(&CollectionConfig{FlushInterval: time.Hour, MaxEntries: 10, Topic: "agri.logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		log.Error("dataset load failed", Error(errors.New("boom")), Int("attempt", i))
	}
	log.Warn("below threshold")
	log.Info("ignored")

	log.DetachCollector()

	require.Len(t, pub.batches, 1)
	assert.Equal(t, "agri.logs", pub.topics[0])
	batch := pub.batches[0]
	require.Len(t, batch, 1)
	assert.Equal(t, "error", batch[0].Level)
	assert.Equal(t, 3, batch[0].Count)
	assert.Equal(t, 0, batch[0].Sample["attempt"])
	assert.Equal(t, "boom", batch[0].Sample["error"])
}

func TestCollectorWarnLevel(t *testing.T) {
	pub := &capturePublisher{}
	c := NewCollector(&CollectionConfig{FlushInterval: time.Hour, MaxEntries: 2, MinLevel: "warn", Publisher: pub})
	assert.True(t, c.accepts(zerolog.WarnLevel))
	assert.False(t, c.accepts(zerolog.InfoLevel))
	c.Add("warn", "a", nil, "x.go:1")
	assert.Equal(t, 1, c.Pending())
	c.Add("warn", "b", nil, "x.go:2")
	assert.Equal(t, 0, c.Pending())
	c.Close()
	c.Add("warn", "late", nil, "x.go:3")
	assert.Equal(t, 0, c.Pending())

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0], 2)
}

func TestWithSharesCollector(t *testing.T) {
	pub := &capturePublisher{}
	log := Nop()
	log.AttachCollector(&CollectionConfig{FlushInterval: time.Hour, Publisher: pub})
	child := log.With(String("component", "refresher"))
	child.Error("swap failed")
	log.DetachCollector()

	require.Len(t, pub.batches, 1)
	assert.Equal(t, "swap failed", pub.batches[0][0].Message)
}

func TestDurationFieldInMillis(t *testing.T) {
	f := Duration("took", 1500*time.Millisecond)
	assert.Equal(t, "took_ms", f.Key)
	assert.Equal(t, int64(1500), f.Value)
}
