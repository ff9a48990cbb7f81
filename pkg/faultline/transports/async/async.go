// Package async provides a transport wrapper with a bounded queue for
// high-throughput scenarios. Items are queued and delivered in the
// background; the oldest items are dropped when the queue is full.
package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/faultline-dev/faultline/pkg/faultline"
)

// Option configures the async transport.
type Option func(*config)

type config struct {
	queueSize int
	onDropped func(count int)
}

// WithQueueSize sets the maximum number of queued items (default: 1000).
func WithQueueSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithOnDropped sets a callback invoked when items are dropped due to queue
// overflow.
func WithOnDropped(fn func(count int)) Option {
	return func(c *config) {
		c.onDropped = fn
	}
}

// item is one queued delivery: exactly one of event or session is set.
type item struct {
	event   *faultline.Event
	session *faultline.Session
}

// asyncTransport wraps a transport with a bounded queue.
type asyncTransport struct {
	inner     faultline.Transport
	queue     chan item
	done      chan struct{}
	closeOnce sync.Once
	closeMu   sync.Mutex
	closed    bool
	wg        sync.WaitGroup
	onDropped func(count int)
}

// New wraps a transport with a bounded queue for asynchronous delivery.
// SendEvent and SendSession return immediately; when the queue is full, the
// oldest item is dropped to make room.
func New(inner faultline.Transport, opts ...Option) faultline.Transport {
	cfg := &config{queueSize: 1000}
	for _, opt := range opts {
		opt(cfg)
	}

	t := &asyncTransport{
		inner:     inner,
		queue:     make(chan item, cfg.queueSize),
		done:      make(chan struct{}),
		onDropped: cfg.onDropped,
	}

	t.wg.Add(1)
	go t.processLoop()

	return t
}

// processLoop drains the queue and delivers to the inner transport.
func (t *asyncTransport) processLoop() {
	defer t.wg.Done()
	for {
		select {
		case it, ok := <-t.queue:
			if !ok {
				return
			}
			t.deliver(it)
		case <-t.done:
			// Drain remaining items.
			for {
				select {
				case it, ok := <-t.queue:
					if !ok {
						return
					}
					t.deliver(it)
				default:
					return
				}
			}
		}
	}
}

// deliver hands one item to the inner transport, ignoring errors (fire and
// forget).
func (t *asyncTransport) deliver(it item) {
	if it.event != nil {
		_ = t.inner.SendEvent(context.Background(), it.event)
	}
	if it.session != nil {
		_ = t.inner.SendSession(context.Background(), it.session)
	}
}

func (t *asyncTransport) SendEvent(ctx context.Context, event *faultline.Event) error {
	return t.enqueue(item{event: event})
}

func (t *asyncTransport) SendSession(ctx context.Context, session *faultline.Session) error {
	return t.enqueue(item{session: session})
}

// enqueue adds an item for background delivery. If the queue is full, the
// oldest item is dropped.
func (t *asyncTransport) enqueue(it item) error {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return errors.New("async transport is closed")
	}
	t.closeMu.Unlock()

	select {
	case t.queue <- it:
		return nil
	default:
		t.dropOldestAndEnqueue(it)
		return nil
	}
}

// dropOldestAndEnqueue drops the oldest item and enqueues the new one.
func (t *asyncTransport) dropOldestAndEnqueue(it item) {
	select {
	case <-t.queue:
		if t.onDropped != nil {
			t.onDropped(1)
		}
	default:
		// Queue was emptied by the processor, try again.
	}

	select {
	case t.queue <- it:
	default:
		// Still full, drop the new item.
		if t.onDropped != nil {
			t.onDropped(1)
		}
	}
}

// Flush blocks until all queued items are delivered.
func (t *asyncTransport) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if len(t.queue) == 0 {
				// Give the last item a moment to finish delivery.
				time.Sleep(10 * time.Millisecond)
				return t.inner.Flush(ctx)
			}
		}
	}
}

// Close stops the background processor and closes the inner transport.
func (t *asyncTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeMu.Lock()
		t.closed = true
		t.closeMu.Unlock()

		close(t.done)
		t.wg.Wait()
		close(t.queue)
	})

	return t.inner.Close()
}
