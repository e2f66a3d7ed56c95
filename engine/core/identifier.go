package core

import "github.com/google/uuid"

// NewIdentifier returns a random identifier used to tag long-lived objects
// (contexts, sessions) in log output.
func NewIdentifier() string {
	return uuid.NewString()
}

// ShortIdentifier returns the first block of id, which is enough to tell
// objects apart in logs.
func ShortIdentifier(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}
