// Package idgen mints short, URL-safe identifiers for stream subscribers
// and HTTP requests.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// SubscriberPrefix marks ids handed out by the vigilance bus.
	SubscriberPrefix = "sub-"
	// RequestPrefix marks ids attached to HTTP request logs.
	RequestPrefix = "req-"
)

// Alphabet is the character set of the random part.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters, excluding the prefix.
const Length = 12

// Subscriber returns a new subscriber id.
func Subscriber() (string, error) {
	return WithPrefix(SubscriberPrefix)
}

// Request returns a new request id.
func Request() (string, error) {
	return WithPrefix(RequestPrefix)
}

// WithPrefix returns a new id with the given prefix.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
