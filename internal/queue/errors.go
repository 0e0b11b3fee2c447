package queue

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedSource: the URL failed the whitelist check at submission.
	ErrUnsupportedSource = errors.New("video source not supported")
	// ErrStreamerNotFound: the owning session does not exist.
	ErrStreamerNotFound = errors.New("streamer not found")
	// ErrUpstreamUnavailable: the platform could not be reached to vet the
	// URL at submission. The caller may retry the same URL later.
	ErrUpstreamUnavailable = errors.New("upstream source unavailable")
	// ErrNotFound: the media request does not exist (or is already gone).
	ErrNotFound = errors.New("media request not found")
	// ErrUnauthorized: the caller does not own the media request.
	ErrUnauthorized = errors.New("not authorized for this media request")
)

// ExtractionError reports a promotion whose item could not be resolved to
// a playable URL. The item stays PLAYING so callers can identify it and
// act (display, countdown, skip).
type ExtractionError struct {
	RequestID uuid.UUID
	Reason    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for request %s: %v", e.RequestID, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Reason
}
