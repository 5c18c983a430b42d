// Package idgen provides pluggable ID generation. Constructors that mint
// ids (the harvester, shield's tracer) accept a Generator, so the id
// strategy is a startup-time decision.
package idgen

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RunPrefix marks harvest run ids.
const RunPrefix = "run_"

// Generator produces unique string identifiers.
type Generator func() string

// NanoID returns a Generator that produces base-36 IDs of the given length.
// Short and URL-safe; used for request trace ids where a UUID is too long.
func NanoID(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(buf)
	}
}

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, so run ids order by start time.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is UUIDv7.
var Default Generator = UUIDv7()

// Run is the generator for harvest run ids: "run_" + UUIDv7.
var Run Generator = Prefixed(RunPrefix, UUIDv7())

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Parse validates a UUID string and returns it in canonical form.
func Parse(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("idgen: invalid UUID: %w", err)
	}
	return u.String(), nil
}

// ParseRun validates a run id produced by Run.
func ParseRun(s string) (string, error) {
	rest, ok := strings.CutPrefix(s, RunPrefix)
	if !ok {
		return "", fmt.Errorf("idgen: run id %q lacks %q prefix", s, RunPrefix)
	}
	u, err := Parse(rest)
	if err != nil {
		return "", err
	}
	return RunPrefix + u, nil
}
