// Package console provides a transport that renders events to a terminal in
// human-readable, severity-colored form. Useful for development and
// debugging.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/faultline-dev/faultline/pkg/faultline"
)

var (
	styleDebug   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleFatal   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("196")).
			Bold(true)
	styleMeta = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true)
)

// Option configures the console transport.
type Option func(*consoleTransport)

// WithVerbose enables full event details including stack frames.
func WithVerbose() Option {
	return func(t *consoleTransport) {
		t.verbose = true
	}
}

// WithWriter redirects output; default is stderr.
func WithWriter(w io.Writer) Option {
	return func(t *consoleTransport) {
		t.w = w
	}
}

// consoleTransport renders events to a terminal writer.
type consoleTransport struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// New creates a transport that writes to stderr.
func New(opts ...Option) faultline.Transport {
	t := &consoleTransport{w: os.Stderr}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SendEvent renders one event.
func (t *consoleTransport) SendEvent(ctx context.Context, event *faultline.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts := event.Timestamp.Format("2006-01-02T15:04:05Z07:00")
	header := fmt.Sprintf("[FAULTLINE] %s %s", ts, levelTag(event.Level))
	if value := headline(event); value != "" {
		header += " " + value
	}
	fmt.Fprintln(t.w, header)

	if event.Fingerprint != "" {
		fmt.Fprintf(t.w, "        %s\n", styleMeta.Render("Fingerprint: "+event.Fingerprint))
	}
	if t.verbose {
		for _, frame := range frames(event) {
			fmt.Fprintf(t.w, "          %s\n", styleMeta.Render(
				fmt.Sprintf("%s (%s:%d)", frame.Function, frame.Filename, frame.Lineno)))
		}
	}
	return nil
}

// SendSession renders one session line.
func (t *consoleTransport) SendSession(ctx context.Context, session *faultline.Session) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "[FAULTLINE] session %s %s errors=%d\n",
		session.ID, session.Status, session.Errors)
	return nil
}

// Flush is a no-op for the console transport.
func (t *consoleTransport) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the console transport.
func (t *consoleTransport) Close() error {
	return nil
}

// headline picks the primary text of an event: exception "type: value" when
// present, the message otherwise.
func headline(event *faultline.Event) string {
	if event.Exception != nil && len(event.Exception.Values) > 0 {
		v := event.Exception.Values[0]
		if v.Type != "" {
			return v.Type + ": " + v.Value
		}
		return v.Value
	}
	return event.Message
}

func frames(event *faultline.Event) []faultline.StackFrame {
	if event.Stacktrace != nil {
		return event.Stacktrace.Frames
	}
	if event.Exception != nil && len(event.Exception.Values) > 0 && event.Exception.Values[0].Stacktrace != nil {
		return event.Exception.Values[0].Stacktrace.Frames
	}
	return nil
}

func levelTag(level faultline.Level) string {
	padded := fmt.Sprintf("%-7s", strings.ToUpper(string(level)))
	switch level {
	case faultline.LevelDebug:
		return styleDebug.Render(padded)
	case faultline.LevelWarning:
		return styleWarning.Render(padded)
	case faultline.LevelError:
		return styleError.Render(padded)
	case faultline.LevelFatal:
		return styleFatal.Render(padded)
	default:
		return styleInfo.Render(padded)
	}
}
