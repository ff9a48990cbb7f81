// fingerprint.go generates stable hashes for grouping similar events.

package faultline

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// maxFingerprintFrames bounds how much of the trace participates in grouping;
// deep tails vary with unrelated caller context.
const maxFingerprintFrames = 3

// FingerprintEvent generates a hash for grouping similar events. The input is
// built from stable fields only:
//   - the canonical exception type and mechanism type
//   - the first frames' function names (never filenames or line numbers)
//   - the serialized value for synthetic captures, which carry no native
//     trace and group by their deterministic serialization instead
//   - the message, for message-only events
//
// Variable data such as timestamps, event ids, and native error messages is
// ignored.
func FingerprintEvent(event *Event) string {
	var parts []string

	if value := event.exceptionValue(); value != nil {
		parts = append(parts, value.Type)
		if value.Mechanism != nil {
			parts = append(parts, value.Mechanism.Type)
			if value.Mechanism.Synthetic != nil && *value.Mechanism.Synthetic {
				parts = append(parts, value.Value)
			}
		}
		for i, frame := range eventFrames(event) {
			if i >= maxFingerprintFrames {
				break
			}
			parts = append(parts, frame.Function)
		}
	} else {
		parts = append(parts, event.Message)
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:16])
}
