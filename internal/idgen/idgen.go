// Package idgen provides short, URL-safe identifiers backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// PendingPrefix marks identifiers of queued writes.
const PendingPrefix = "pw-"

// Alphabet is lower-case only so identifiers read cleanly in the pending
// queue document and in logs.
var Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 12

// Pending returns a new identifier for a queued write.
func Pending() (string, error) {
	return WithPrefix(PendingPrefix)
}

// WithPrefix returns a new unique ID with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
