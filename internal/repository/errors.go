package repository

import "errors"

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional write loses to a
	// concurrent one (unique violation on the PLAYING partial index).
	ErrConflict = errors.New("conflict")
	// ErrStreamerNotFound is returned when an insert references a
	// streamer row that no longer exists.
	ErrStreamerNotFound = errors.New("streamer not found")
)
