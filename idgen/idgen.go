// Package idgen provides pluggable ID generation.
//
// Constructors that mint identifiers (import runs, requests, business
// events, batch artifacts) accept a Generator so tests can inject a
// deterministic one.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable and globally unique.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Short returns a Generator of n lowercase hex characters taken from the
// random tail of a UUID v7 (n is capped at 12).
func Short(n int) Generator {
	if n > 12 {
		n = 12
	}
	return func() string {
		s := strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
		return s[len(s)-n:]
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
// Useful for type-scoped identifiers (e.g. "run_", "req_", "evt_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the default generator: UUIDv7.
var Default Generator = UUIDv7()
