package tmix

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultChannelCapacity = 256
	defaultUpdateWait      = 5 * time.Millisecond
)

// RecordChannel carries individual records from the poller to the cache.
// It has exactly one producer and one consumer
type RecordChannel struct {
	records chan Record

	closed    chan struct{}
	closeOnce sync.Once
}

// NewRecordChannel creates a channel buffering up to capacity records
func NewRecordChannel(capacity int) *RecordChannel {
	if capacity <= 0 {
		capacity = defaultChannelCapacity
	}

	return &RecordChannel{
		records: make(chan Record, capacity),
		closed:  make(chan struct{}),
	}
}

// Send queues a record, waiting for room if the buffer is full. It fails with
// ErrChannelClosed once the consumer has closed the channel
func (rc *RecordChannel) Send(ctx context.Context, record Record) error {
	select {
	case <-rc.closed:
		return ErrChannelClosed
	default:
	}

	select {
	case rc.records <- record:
		return nil
	case <-rc.closed:
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive waits at most wait for a record
func (rc *RecordChannel) Receive(wait time.Duration) (Record, bool) {
	select {
	case record := <-rc.records:
		return record, true
	default:
	}

	if wait <= 0 {
		return nil, false
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case record := <-rc.records:
		return record, true
	case <-timer.C:
		return nil, false
	}
}

// Close is called by the consumer when it stops reading
func (rc *RecordChannel) Close() {
	rc.closeOnce.Do(func() {
		close(rc.closed)
	})
}

type cachedInput struct {
	record     SinkInputRecord
	receivedAt time.Time
}

type cachedSink struct {
	record     SinkRecord
	receivedAt time.Time
}

// Cache keeps the most recent record per index, fed by a RecordChannel.
// It belongs to the render goroutine and is not safe for concurrent use.
// Entries are replaced, never removed: a stream that disappears keeps its last record
type Cache struct {
	logger *zap.SugaredLogger

	channel *RecordChannel
	wait    time.Duration

	inputs map[uint32]cachedInput
	sinks  map[uint32]cachedSink
}

// NewCache creates a cache consuming channel. Update waits at most wait for new data
func NewCache(logger *zap.SugaredLogger, channel *RecordChannel, wait time.Duration) *Cache {
	logger = logger.Named("cache")

	if wait <= 0 {
		wait = defaultUpdateWait
	}

	c := &Cache{
		logger:  logger,
		channel: channel,
		wait:    wait,
		inputs:  make(map[uint32]cachedInput),
		sinks:   make(map[uint32]cachedSink),
	}

	logger.Debug("Created cache instance")

	return c
}

// Update waits up to the configured bound for a record, then applies it and every other
// record already queued, last write wins. It returns how many records were applied
func (c *Cache) Update() int {
	record, ok := c.channel.Receive(c.wait)
	if !ok {
		return 0
	}

	now := time.Now()
	applied := 0

	for ok {
		c.apply(record, now)
		applied++

		record, ok = c.channel.Receive(0)
	}

	return applied
}

func (c *Cache) apply(record Record, now time.Time) {
	switch r := record.(type) {
	case SinkInputRecord:
		c.inputs[r.Index] = cachedInput{record: r, receivedAt: now}
	case SinkRecord:
		c.sinks[r.Index] = cachedSink{record: r, receivedAt: now}
	}
}

// Get returns the latest record for a stream index
func (c *Cache) Get(index uint32) (SinkInputRecord, bool) {
	entry, ok := c.inputs[index]
	return entry.record, ok
}

// Sink returns the latest record for a sink index
func (c *Cache) Sink(index uint32) (SinkRecord, bool) {
	entry, ok := c.sinks[index]
	return entry.record, ok
}

// LastSeen returns when the stream at index was last received
func (c *Cache) LastSeen(index uint32) (time.Time, bool) {
	entry, ok := c.inputs[index]
	return entry.receivedAt, ok
}

// Values returns every cached stream ordered by index
func (c *Cache) Values() []SinkInputRecord {
	values := make([]SinkInputRecord, 0, len(c.inputs))
	for _, entry := range c.inputs {
		values = append(values, entry.record)
	}

	sort.Slice(values, func(i, j int) bool { return values[i].Index < values[j].Index })

	return values
}

// Snapshot joins the cached sinks and streams
func (c *Cache) Snapshot() Snapshot {
	sinks := make([]SinkRecord, 0, len(c.sinks))
	for _, entry := range c.sinks {
		sinks = append(sinks, entry.record)
	}

	return BuildSnapshot(sinks, c.Values())
}

// Close tells the producer to stop sending
func (c *Cache) Close() {
	c.logger.Debug("Closing cache")
	c.channel.Close()
}
