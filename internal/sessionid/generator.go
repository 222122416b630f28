package sessionid

import (
	"io"

	"github.com/google/uuid"
)

// Generator generates random session IDs.
type Generator struct {
	rand io.Reader
}

// NewGenerator creates a new session ID generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{}
}

// NewGeneratorFromReader creates a generator reading randomness from r.
// Deterministic readers make IDs reproducible in tests.
func NewGeneratorFromReader(r io.Reader) *Generator {
	return &Generator{rand: r}
}

// Generate creates a new version 4 UUID string.
func (g *Generator) Generate() string {
	if g.rand == nil {
		return uuid.NewString()
	}
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		// An exhausted test reader falls back to the global source.
		return uuid.NewString()
	}
	return id.String()
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
