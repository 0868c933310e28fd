package history

import "github.com/google/uuid"

// KeyFunc returns a new unique location key.
type KeyFunc func() string

// CreateKey returns a new random location key (UUID v4).
//
// See RFC 9562, section 5.4.
func CreateKey() string {
	return uuid.New().String()
}

// CreateOrderedKey returns a time-ordered location key (UUID v7). Keys
// generated later sort lexicographically after earlier ones.
//
// See RFC 9562, section 5.7.
func CreateOrderedKey() string {
	return uuid.Must(uuid.NewV7()).String()
}
