package store

import "errors"

var (
	// ErrNotFound is returned when a place, counter, or ticket does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrConflict is returned when a conditional update matched no row
	// because another caller already transitioned the ticket.
	ErrConflict = errors.New("store: concurrent update conflict")
)
