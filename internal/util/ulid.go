package util

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, which keeps
// bulk-inserted rows in insertion order.
func New() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.Reader, 0)

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// MessageID builds an RFC 5322 Message-ID from a fresh ULID and the sender
// domain. The transmitter reports it as the provider message id.
func MessageID(fromDomain string) string {
	if fromDomain == "" {
		fromDomain = "localhost"
	}
	return fmt.Sprintf("<%s@%s>", New(), fromDomain)
}
