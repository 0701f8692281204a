package state

import (
	"errors"
	"fmt"
)

var (
	ErrNotSignedIn = errors.New("not signed in")
	// ErrSessionExpired is returned after a 401 forced a logout.
	ErrSessionExpired = errors.New("session expired; please log in again")
	// ErrStale marks a result issued for a session that has since ended; it was dropped.
	ErrStale = errors.New("stale response dropped")
)

// ValidationError is a client-side rejection; no request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return ValidationError{Field: field, Message: msg}
}

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

// IsNotFound reports whether err is a cache lookup miss.
func IsNotFound(err error) bool {
	var nf notFoundError
	return errors.As(err, &nf)
}
