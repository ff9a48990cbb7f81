// Package hub broadcasts filtered events to live subscribers, decoupling the
// ingest path from however many debug clients are attached.
package hub

import (
	"log/slog"
	"sync"

	"github.com/faultline-dev/faultline/pkg/faultline"
)

const subscriberBuffer = 256

// Hub fans captured events out to all subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers []chan *faultline.Event
	dropped     int64
	closed      bool
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{}
}

// Subscribe returns a buffered channel that receives every published event.
// The channel is closed when the hub closes.
func (h *Hub) Subscribe() <-chan *faultline.Event {
	ch := make(chan *faultline.Event, subscriberBuffer)
	h.mu.Lock()
	if h.closed {
		close(ch)
	} else {
		h.subscribers = append(h.subscribers, ch)
	}
	h.mu.Unlock()
	return ch
}

// Publish sends an event to all subscribers. A slow subscriber whose buffer
// is full loses the event rather than blocking the publisher.
func (h *Hub) Publish(event *faultline.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.dropped++
			slog.Warn("hub: dropped event for slow subscriber", "total_dropped", h.dropped)
		}
	}
}

// Dropped returns the total number of events dropped for slow subscribers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Close closes all subscriber channels; further publishes are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}
