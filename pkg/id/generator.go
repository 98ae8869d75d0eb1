// Package id produces opaque, time-ordered identifiers.
//
// IDs are ULIDs: lexicographically sortable by creation time and
// collision-free across nodes without coordination. They are never reused.
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out unique identifiers.
type Generator interface {
	Next() (string, error)
}

// ulidGenerator is monotone within a process: IDs requested in order
// compare in order.
type ulidGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewGenerator returns the default ULID-backed generator using
// cryptographically random, monotonically incremented entropy.
func NewGenerator() Generator {
	return &ulidGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *ulidGenerator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Must returns the next ID or panics. Intended for setup code paths where
// entropy exhaustion is not a recoverable condition.
func Must(g Generator) string {
	id, err := g.Next()
	if err != nil {
		panic(err)
	}
	return id
}
