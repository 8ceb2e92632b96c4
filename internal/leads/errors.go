package leads

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is unknown or expired
	ErrSessionNotFound = errors.New("wizard session not found")

	// ErrSessionExists is returned when a session id collides
	ErrSessionExists = errors.New("wizard session already exists")
)
