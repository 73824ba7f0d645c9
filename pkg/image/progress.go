package image

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// Event represents a progress event while transferring an image
type Event struct {
	Type       EventType
	Name       string
	BytesRead  int64
	TotalBytes int64
	Error      error
	Message    string
	Timestamp  time.Time
}

// EventType represents the type of progress event
type EventType int

const (
	// EventStart indicates a transfer is starting
	EventStart EventType = iota
	// EventProgress indicates progress during a transfer
	EventProgress
	// EventComplete indicates a transfer is complete
	EventComplete
	// EventError indicates an error occurred
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "Start"
	case EventProgress:
		return "Progress"
	case EventComplete:
		return "Complete"
	case EventError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ProgressInterval is the minimum gap between two progress events from one reader.
const ProgressInterval = 100 * time.Millisecond

// Reporter provides progress reporting functionality
type Reporter struct {
	callback func(Event)
	mu       sync.RWMutex
}

// NewReporter creates a new progress reporter with the given callback
func NewReporter(callback func(Event)) *Reporter {
	return &Reporter{
		callback: callback,
	}
}

// NoOpReporter returns a reporter that doesn't report anything
func NoOpReporter() *Reporter {
	return &Reporter{
		callback: func(Event) {},
	}
}

// Report sends a progress event
func (r *Reporter) Report(event Event) {
	event.Timestamp = time.Now()

	r.mu.RLock()
	callback := r.callback
	r.mu.RUnlock()

	if callback != nil {
		callback(event)
	}
}

// Start reports the start of a transfer. total is -1 when unknown.
func (r *Reporter) Start(name string, total int64) {
	r.Report(Event{
		Type:       EventStart,
		Name:       name,
		TotalBytes: total,
	})
}

// Complete reports completion of a transfer
func (r *Reporter) Complete(name string, n int64) {
	r.Report(Event{
		Type:      EventComplete,
		Name:      name,
		BytesRead: n,
	})
}

// Error reports an error
func (r *Reporter) Error(err error, message string) {
	r.Report(Event{
		Type:    EventError,
		Error:   err,
		Message: message,
	})
}

// ProgressReader wraps an io.Reader to report read progress
type ProgressReader struct {
	reader    io.Reader
	reporter  *Reporter
	name      string
	totalSize int64
	bytesRead atomic.Int64
	throttle  *rate.Sometimes
}

// NewProgressReader creates a new progress-reporting reader
func NewProgressReader(r io.Reader, reporter *Reporter, name string, size int64) *ProgressReader {
	return &ProgressReader{
		reader:    r,
		reporter:  reporter,
		name:      name,
		totalSize: size,
		throttle:  &rate.Sometimes{Interval: ProgressInterval},
	}
}

func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n == 0 && err == nil {
		return n, err
	}

	newTotal := pr.bytesRead.Add(int64(n))
	event := Event{
		Type:       EventProgress,
		Name:       pr.name,
		BytesRead:  newTotal,
		TotalBytes: pr.totalSize,
	}
	// the final read is always reported
	if err == io.EOF {
		pr.reporter.Report(event)
	} else if n > 0 {
		pr.throttle.Do(func() { pr.reporter.Report(event) })
	}
	return n, err
}

// BytesRead returns the number of bytes read so far
func (pr *ProgressReader) BytesRead() int64 {
	return pr.bytesRead.Load()
}

// Close closes the underlying reader if it implements io.Closer
func (pr *ProgressReader) Close() error {
	if closer, ok := pr.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ConsoleReporter creates a reporter that logs using slog
func ConsoleReporter(log *slog.Logger) *Reporter {
	startTime := time.Now()

	return NewReporter(func(e Event) {
		elapsed := e.Timestamp.Sub(startTime).Round(time.Millisecond)

		switch e.Type {
		case EventStart:
			if e.TotalBytes > 0 {
				log.Info("starting", "name", e.Name, "size", humanize.IBytes(uint64(e.TotalBytes)))
			} else {
				log.Info("starting", "name", e.Name)
			}
		case EventProgress:
			if e.TotalBytes > 0 {
				pct := float64(e.BytesRead) / float64(e.TotalBytes) * 100
				log.Info("progress",
					"name", e.Name,
					"percent", fmt.Sprintf("%.1f%%", pct),
					"bytes", humanize.IBytes(uint64(e.BytesRead)),
					"total", humanize.IBytes(uint64(e.TotalBytes)),
					"elapsed", elapsed)
			} else {
				log.Info("progress",
					"name", e.Name,
					"bytes", humanize.IBytes(uint64(e.BytesRead)),
					"elapsed", elapsed)
			}
		case EventComplete:
			log.Info("complete",
				"name", e.Name,
				"bytes", humanize.IBytes(uint64(e.BytesRead)),
				"elapsed", elapsed)
		case EventError:
			if e.Message != "" {
				log.Error("transfer error", "message", e.Message, "error", e.Error)
			} else {
				log.Error("transfer error", "error", e.Error)
			}
		}
	})
}

// Collector collects all events for later analysis
type Collector struct {
	mu     sync.RWMutex
	events []Event
}

// NewCollector creates a new event collector
func NewCollector() *Collector {
	return &Collector{
		events: make([]Event, 0),
	}
}

// Reporter returns a reporter that collects events
func (c *Collector) Reporter() *Reporter {
	return NewReporter(func(e Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.events = append(c.events, e)
	})
}

// Events returns all collected events
func (c *Collector) Events() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	events := make([]Event, len(c.events))
	copy(events, c.events)
	return events
}

// Stats returns statistics about collected events
func (c *Collector) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{}
	for _, e := range c.events {
		switch e.Type {
		case EventStart:
			stats.Started++
			if stats.StartTime.IsZero() {
				stats.StartTime = e.Timestamp
			}
		case EventProgress:
			stats.ProgressEvents++
			stats.BytesRead = max(stats.BytesRead, e.BytesRead)
		case EventComplete:
			stats.Completed++
			stats.EndTime = e.Timestamp
			stats.BytesRead = max(stats.BytesRead, e.BytesRead)
		case EventError:
			stats.Errors++
		}
	}
	if !stats.EndTime.IsZero() && !stats.StartTime.IsZero() {
		stats.Duration = stats.EndTime.Sub(stats.StartTime)
	}
	return stats
}

// Stats contains statistics about progress events
type Stats struct {
	Started        int
	Completed      int
	ProgressEvents int
	Errors         int
	BytesRead      int64
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
