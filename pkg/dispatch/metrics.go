package dispatch

import (
	"sync"
	"time"
)

// Metrics is a snapshot of the Publisher's running counters and registry.
//
// Counters are never reset; ClearHistory leaves them untouched.
type Metrics struct {
	// TotalPublished counts Publish calls that returned nil.
	TotalPublished int64

	// TotalFailed counts Publish calls that returned an error.
	// Handler failures alone do not count.
	TotalFailed int64

	// AverageLatency is the running mean over successful publishes.
	AverageLatency time.Duration

	// LastPublishTime is when the last publish attempt finished.
	LastPublishTime time.Time

	EventTypes   []string
	HandlerCount int
	HistorySize  int
}

type counters struct {
	mu        sync.Mutex
	published int64
	failed    int64
	avg       time.Duration
	last      time.Time
}

func (c *counters) recordSuccess(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.published++
	c.avg += (latency - c.avg) / time.Duration(c.published)
	c.last = time.Now()
}

func (c *counters) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failed++
	c.last = time.Now()
}

func (c *counters) snapshot() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Metrics{
		TotalPublished:  c.published,
		TotalFailed:     c.failed,
		AverageLatency:  c.avg,
		LastPublishTime: c.last,
	}
}
