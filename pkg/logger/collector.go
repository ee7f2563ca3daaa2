package logger

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Publisher ships a digest batch. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

type CollectionConfig struct {
	FlushInterval time.Duration
	MaxEntries    int
	Topic         string
	MinLevel      string // "warn" or "error"
	Publisher     Publisher
}

// DigestEntry is one distinct (level, message, caller) seen since the last flush.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Caller    string                 `json:"caller"`
	Sample    map[string]interface{} `json:"sample,omitempty"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Collector folds repeated error records into counted digests and
// publishes them periodically or when MaxEntries distinct records pile up.
type Collector struct {
	cfg      CollectionConfig
	minLevel zerolog.Level

	mu      sync.Mutex
	entries map[string]*DigestEntry
	closed  bool

	flushes chan []DigestEntry
	stop    chan struct{}
	done    sync.WaitGroup
	once    sync.Once
}

func NewCollector(cfg *CollectionConfig) *Collector {
	c := &Collector{
		cfg:      *cfg,
		minLevel: zerolog.ErrorLevel,
		entries:  make(map[string]*DigestEntry),
		flushes:  make(chan []DigestEntry, 8),
		stop:     make(chan struct{}),
	}
	if c.cfg.FlushInterval <= 0 {
		c.cfg.FlushInterval = 30 * time.Second
	}
	if c.cfg.MaxEntries <= 0 {
		c.cfg.MaxEntries = 100
	}
	if lvl, err := zerolog.ParseLevel(cfg.MinLevel); err == nil && lvl != zerolog.NoLevel {
		c.minLevel = lvl
	}

	c.done.Add(2)
	go c.tick()
	go c.ship()
	return c
}

func (c *Collector) accepts(level zerolog.Level) bool {
	return level >= c.minLevel
}

func (c *Collector) Add(level, message string, fields map[string]interface{}, caller string) {
	now := time.Now()
	key := level + "\x00" + message + "\x00" + caller

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &DigestEntry{
			Level:     level,
			Message:   message,
			Caller:    caller,
			Sample:    fields,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	if len(c.entries) >= c.cfg.MaxEntries {
		c.enqueueLocked(c.drainLocked())
	}
}

// Pending reports the number of distinct records waiting for the next flush.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Collector) drainLocked() []DigestEntry {
	if len(c.entries) == 0 {
		return nil
	}
	out := make([]DigestEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	c.entries = make(map[string]*DigestEntry)
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	return out
}

func (c *Collector) enqueueLocked(batch []DigestEntry) {
	if batch == nil {
		return
	}
	select {
	case c.flushes <- batch:
	default:
		// shipper is behind; drop rather than block the caller
	}
}

func (c *Collector) tick() {
	defer c.done.Done()
	t := time.NewTicker(c.cfg.FlushInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.mu.Lock()
			c.enqueueLocked(c.drainLocked())
			c.mu.Unlock()
		case <-c.stop:
			c.mu.Lock()
			c.closed = true
			batch := c.drainLocked()
			c.mu.Unlock()
			if batch != nil {
				c.flushes <- batch
			}
			close(c.flushes)
			return
		}
	}
}

func (c *Collector) ship() {
	defer c.done.Done()
	for batch := range c.flushes {
		if c.cfg.Publisher == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := c.cfg.Publisher.Publish(ctx, c.cfg.Topic, nil, batch); err != nil {
			_, _ = os.Stderr.WriteString("logger: publish digest: " + err.Error() + "\n")
		}
		cancel()
	}
}

// Close flushes the remaining digests and waits for the shipper.
func (c *Collector) Close() {
	c.once.Do(func() {
		close(c.stop)
		c.done.Wait()
	})
}
