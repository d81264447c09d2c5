// Package idgen generates the random IDs used for requests, routes and
// stored assessments.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

func mustRand(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return b
}

// New returns a UUID-shaped random ID, used for request correlation.
func New() string {
	b := mustRand(16)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

// WithPrefix returns prefix followed by 24 hex chars, e.g.
// WithPrefix("assess_") or WithPrefix("route_").
func WithPrefix(prefix string) string {
	return prefix + hex.EncodeToString(mustRand(12))
}
