package async

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/faultline-dev/faultline/pkg/faultline"
)

// captureTransport records delivered items.
type captureTransport struct {
	mu       sync.Mutex
	events   []*faultline.Event
	sessions []*faultline.Session
	closed   bool
}

func (c *captureTransport) SendEvent(ctx context.Context, e *faultline.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captureTransport) SendSession(ctx context.Context, s *faultline.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = append(c.sessions, s)
	return nil
}

func (c *captureTransport) Flush(ctx context.Context) error { return nil }
func (c *captureTransport) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *captureTransport) eventIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, len(c.events))
	for i, e := range c.events {
		ids[i] = e.EventID
	}
	return ids
}

// blockingTransport stalls deliveries until released, so tests can hold the
// queue full deterministically.
type blockingTransport struct {
	captureTransport
	started chan struct{}
	release chan struct{}
}

func (b *blockingTransport) SendEvent(ctx context.Context, e *faultline.Event) error {
	b.started <- struct{}{}
	<-b.release
	return b.captureTransport.SendEvent(ctx, e)
}

func TestAsync_DeliversInBackground(t *testing.T) {
	inner := &captureTransport{}
	tr := New(inner)
	ctx := context.Background()

	if err := tr.SendEvent(ctx, &faultline.Event{EventID: "one"}); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}
	if err := tr.SendSession(ctx, &faultline.Session{ID: "s1"}); err != nil {
		t.Fatalf("SendSession: %v", err)
	}
	if err := tr.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	inner.mu.Lock()
	defer inner.mu.Unlock()
	if len(inner.events) != 1 || inner.events[0].EventID != "one" {
		t.Errorf("events = %v", inner.events)
	}
	if len(inner.sessions) != 1 || inner.sessions[0].ID != "s1" {
		t.Errorf("sessions = %v", inner.sessions)
	}
}

func TestAsync_DropsOldestOnOverflow(t *testing.T) {
	inner := &blockingTransport{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	var droppedCount atomic.Int64
	tr := New(inner,
		WithQueueSize(1),
		WithOnDropped(func(n int) { droppedCount.Add(int64(n)) }),
	)
	ctx := context.Background()

	// First event is picked up by the processor and blocks inside delivery.
	tr.SendEvent(ctx, &faultline.Event{EventID: "first"})
	<-inner.started

	// Second fills the queue; third forces the drop-oldest policy.
	tr.SendEvent(ctx, &faultline.Event{EventID: "second"})
	tr.SendEvent(ctx, &faultline.Event{EventID: "third"})

	inner.release <- struct{}{} // finish "first"
	<-inner.started             // processor picked up "third"
	inner.release <- struct{}{}

	if err := tr.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	ids := inner.eventIDs()
	if len(ids) != 2 || ids[0] != "first" || ids[1] != "third" {
		t.Errorf("delivered = %v, want [first third]", ids)
	}
	if droppedCount.Load() != 1 {
		t.Errorf("dropped = %d, want 1", droppedCount.Load())
	}
}

func TestAsync_CloseDrainsAndRejects(t *testing.T) {
	inner := &captureTransport{}
	tr := New(inner)
	ctx := context.Background()

	tr.SendEvent(ctx, &faultline.Event{EventID: "one"})
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	inner.mu.Lock()
	closed := inner.closed
	delivered := len(inner.events)
	inner.mu.Unlock()
	if !closed {
		t.Error("inner transport was not closed")
	}
	if delivered != 1 {
		t.Errorf("delivered = %d, want the queue drained on close", delivered)
	}

	if err := tr.SendEvent(ctx, &faultline.Event{EventID: "late"}); err == nil {
		t.Error("sends after close must fail")
	}

	// Close is idempotent.
	if err := tr.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestAsync_FlushHonorsContext(t *testing.T) {
	inner := &blockingTransport{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	tr := New(inner)
	tr.SendEvent(context.Background(), &faultline.Event{EventID: "stuck"})
	tr.SendEvent(context.Background(), &faultline.Event{EventID: "queued"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := tr.Flush(ctx); err == nil {
		t.Error("Flush must respect context cancellation while the queue is stuck")
	}
	close(inner.release)
}
