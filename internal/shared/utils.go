// Package shared provides helpers for generating opaque entity identifiers.
package shared

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Entity prefixes. They make ids recognizable in logs; nothing parses them.
const (
	PrefixUser         = "usr"
	PrefixEvent        = "evt"
	PrefixRegistration = "reg"
	PrefixVerification = "sms"
)

// idBytes is the number of random UUID bytes kept in an id (16 hex chars).
const idBytes = 8

// NewID returns a collision-resistant opaque identifier of the form
// "<prefix>_<16 hex chars>", e.g. "evt_9f2d4c3a5e6b1a7d".
func NewID(prefix string) string {
	u := uuid.New()
	return prefix + "_" + hex.EncodeToString(u[:idBytes])
}

// MakeRandHexString returns size random bytes encoded as hex. The final
// string is twice as long as size.
func MakeRandHexString(size int) string {
	b := make([]byte, 0, size)
	for len(b) < size {
		u := uuid.New()
		b = append(b, u[:]...)
	}
	return hex.EncodeToString(b[:size])
}
