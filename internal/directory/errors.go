package directory

import "errors"

var (
	// ErrPersonNotFound is returned when no directory entry matches
	ErrPersonNotFound = errors.New("person not found")

	// ErrAmbiguousPhone is returned when more than one entry matches a phone
	ErrAmbiguousPhone = errors.New("phone matches more than one person")
)
