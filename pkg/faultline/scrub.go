// scrub.go implements fail-closed redaction of sensitive data, exposed as a
// filter-stage processor that rewrites events rather than mutating them.

package faultline

import (
	"regexp"
	"strings"
)

// ScrubConfig controls scrubbing behavior.
type ScrubConfig struct {
	// MaxMessageSize is the maximum length for message and exception value
	// text (default: 4096).
	MaxMessageSize int

	// MaxExtraValueSize is the maximum length for a stringified extra value
	// (default: 1024).
	MaxExtraValueSize int

	// ScrubMessages enables pattern-based redaction of message text for
	// secrets and PII (default: true).
	ScrubMessages bool
}

// DefaultScrubConfig returns production-safe defaults.
func DefaultScrubConfig() ScrubConfig {
	return ScrubConfig{
		MaxMessageSize:    4096,
		MaxExtraValueSize: 1024,
		ScrubMessages:     true,
	}
}

// Compiled patterns for message scrubbing (compiled once at package init).
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)credential[=:\s]+['"]?[^\s'"",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
}

// Sensitive extra-key patterns (case-insensitive substring match).
var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"auth",
	"passwd",
}

// User-specific path prefixes normalized out of frame filenames.
var pathNormalizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/[^/]+/`),
	regexp.MustCompile(`/Users/[^/]+/`),
	regexp.MustCompile(`C:\\Users\\[^\\]+\\`),
	regexp.MustCompile(`/tmp/[^/]+/`),
}

// Scrubber redacts sensitive data from events.
type Scrubber struct {
	cfg ScrubConfig
}

// NewScrubber creates a scrubber with the given configuration.
func NewScrubber(cfg ScrubConfig) *Scrubber {
	return &Scrubber{cfg: cfg}
}

// Processor returns a filter-stage processor that redacts a copy of the
// event. Scrubbing never drops events.
func (s *Scrubber) Processor() EventProcessor {
	return func(event *Event) *Event {
		if event == nil {
			return nil
		}
		out := event.Clone()
		out.Message = s.ScrubMessage(out.Message)
		if out.Exception != nil {
			for i := range out.Exception.Values {
				out.Exception.Values[i].Value = s.ScrubMessage(out.Exception.Values[i].Value)
				scrubFrames(out.Exception.Values[i].Stacktrace)
			}
		}
		scrubFrames(out.Stacktrace)
		out.Extra = s.scrubExtra(out.Extra)
		return out
	}
}

// ScrubMessage truncates and redacts sensitive patterns from message text.
func (s *Scrubber) ScrubMessage(msg string) string {
	if !s.cfg.ScrubMessages || msg == "" {
		return msg
	}
	if s.cfg.MaxMessageSize > 0 && len(msg) > s.cfg.MaxMessageSize {
		msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	}
	for _, pattern := range messageScrubPatterns {
		msg = pattern.ReplaceAllString(msg, "[REDACTED]")
	}
	return msg
}

// scrubExtra redacts sensitive keys and truncates long values.
func (s *Scrubber) scrubExtra(extra map[string]any) map[string]any {
	if extra == nil {
		return nil
	}
	out := make(map[string]any, len(extra))
	for key, value := range extra {
		if isSensitiveKey(key) {
			out[key] = "[REDACTED]"
			continue
		}
		if text, ok := value.(string); ok {
			if s.cfg.MaxExtraValueSize > 0 && len(text) > s.cfg.MaxExtraValueSize {
				text = truncateWithMarker(text, s.cfg.MaxExtraValueSize)
			}
			out[key] = s.ScrubMessage(text)
			continue
		}
		out[key] = value
	}
	return out
}

// scrubFrames normalizes user-specific directories out of frame filenames in
// place; the caller passes frames it already owns.
func scrubFrames(trace *Stacktrace) {
	if trace == nil {
		return
	}
	for i := range trace.Frames {
		name := trace.Frames[i].Filename
		for _, pattern := range pathNormalizationPatterns {
			name = pattern.ReplaceAllString(name, "/[PATH]/")
		}
		trace.Frames[i].Filename = name
	}
}

// isSensitiveKey checks whether an extra key matches sensitive patterns.
func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// truncateWithMarker truncates a string and adds a truncation marker.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return s[:maxLen-len(marker)] + marker
}
