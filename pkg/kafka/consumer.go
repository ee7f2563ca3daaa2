package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	applogger "AgriPrice/pkg/logger"
)

const lastOffset = kafka.LastOffset

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer fans messages from one reader per topic into a worker pool. Offsets are
// committed after the handler succeeds, or after the message was dead-lettered.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *applogger.Logger
	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	dlq      *kafka.Writer
	msgs     chan kafka.Message
	metrics  *consumerMetrics

	cancel    context.CancelFunc
	readersWg sync.WaitGroup
	workersWg sync.WaitGroup
	stopOnce  sync.Once
}

func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "agriprice",
		StartOffset: kafka.FirstOffset,
		WorkerCount: 1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = applogger.Nop()
	}

	c := &Consumer{
		cfg:      cfg,
		log:      cfg.Logger.With(applogger.String("component", "kafka_consumer")),
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		msgs:     make(chan kafka.Message, cfg.BufferSize),
		metrics:  newConsumerMetrics(cfg.Registerer),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.LeastBytes{}}
	}
	return c, nil
}

// RegisterHandler must be called before Start. A second handler for the same topic is ignored.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, ok := c.handlers[h.Topic()]; ok {
		c.log.Warn("handler already registered", applogger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("no handlers registered")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.workersWg.Add(1)
		go c.work(ctx)
	}
	for topic := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			StartOffset: c.cfg.StartOffset,
			MaxBytes:    10e6,
		})
		c.readers[topic] = r
		c.readersWg.Add(1)
		go c.read(ctx, topic, r)
	}
	c.log.Info("kafka consumer started",
		applogger.Int("workers", c.cfg.WorkerCount),
		applogger.String("group", c.cfg.GroupID),
		applogger.Int("topics", len(c.handlers)))
	return nil
}

func (c *Consumer) read(ctx context.Context, topic string, r *kafka.Reader) {
	defer c.readersWg.Done()
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("fetch failed", applogger.String("topic", topic), applogger.Error(err))
			if !sleepCtx(ctx, time.Second) {
				return
			}
			continue
		}
		select {
		case c.msgs <- m:
			c.metrics.depth(len(c.msgs))
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) work(ctx context.Context) {
	defer c.workersWg.Done()
	for m := range c.msgs {
		c.process(ctx, m)
	}
}

func (c *Consumer) process(ctx context.Context, m kafka.Message) {
	h := c.handlers[m.Topic]
	if h == nil {
		return
	}
	start := time.Now()
	err := c.handle(ctx, h, m)
	c.metrics.observe(m.Topic, time.Since(start), err)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.log.Error("message handling failed",
			applogger.String("topic", m.Topic),
			applogger.Int64("offset", m.Offset),
			applogger.Error(err))
		if c.dlq == nil {
			return
		}
		if err := c.deadLetter(ctx, m, err); err != nil {
			c.log.Error("dlq write failed", applogger.String("topic", c.cfg.DLQTopic), applogger.Error(err))
			return
		}
	}
	if r := c.readers[m.Topic]; r != nil {
		if err := r.CommitMessages(context.Background(), m); err != nil {
			c.log.Warn("commit failed", applogger.String("topic", m.Topic), applogger.Error(err))
		}
	}
}

// handle runs h with retries. Panics are converted to errors.
func (c *Consumer) handle(ctx context.Context, h MessageHandler, m kafka.Message) (err error) {
	for attempt := 1; ; attempt++ {
		err = safeHandle(ctx, h, m.Value)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		if !sleepCtx(ctx, backoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return err
		}
	}
}

func safeHandle(ctx context.Context, h MessageHandler, b []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, b)
}

func (c *Consumer) deadLetter(ctx context.Context, m kafka.Message, cause error) error {
	return c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(m.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
}

// Stop cancels the readers, lets workers drain the buffer and closes the connections.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		if c.cancel == nil {
			return
		}
		c.cancel()
		c.readersWg.Wait()
		close(c.msgs)

		done := make(chan struct{})
		go func() {
			c.workersWg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		}

		for topic, r := range c.readers {
			if err := r.Close(); err != nil {
				c.log.Warn("reader close failed", applogger.String("topic", topic), applogger.Error(err))
			}
		}
		if c.dlq != nil {
			_ = c.dlq.Close()
		}
		c.log.Info("kafka consumer stopped")
	})
	return stopErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func backoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min << uint(attempt-1)
	if exp > max || exp <= 0 {
		exp = max
	}
	// up to 50% jitter
	return exp - time.Duration(rand.Int63n(int64(exp)/2+1))
}

type consumerMetrics struct {
	queue   prometheus.Gauge
	handled *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func newConsumerMetrics(reg prometheus.Registerer) *consumerMetrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)
	return &consumerMetrics{
		queue: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "agriprice", Subsystem: "kafka_consumer", Name: "queue_depth",
			Help: "Messages waiting for a worker.",
		}),
		handled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agriprice", Subsystem: "kafka_consumer", Name: "messages_total",
			Help: "Messages handled by result.",
		}, []string{"topic", "result"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agriprice", Subsystem: "kafka_consumer", Name: "handle_seconds",
			Help: "Handling time per message including retries.",
		}, []string{"topic"}),
	}
}

func (m *consumerMetrics) depth(n int) {
	if m != nil {
		m.queue.Set(float64(n))
	}
}

func (m *consumerMetrics) observe(topic string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.handled.WithLabelValues(topic, result).Inc()
	m.latency.WithLabelValues(topic).Observe(d.Seconds())
}
