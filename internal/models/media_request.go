package models

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

type MediaKind string

const (
	KindYouTube MediaKind = "YOUTUBE"
	KindDirect  MediaKind = "DIRECT"
)

type MediaStatus string

const (
	StatusPending MediaStatus = "PENDING"
	StatusPlaying MediaStatus = "PLAYING"
	StatusPlayed  MediaStatus = "PLAYED"
)

type MediaRequest struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	StreamerID   uuid.UUID   `json:"streamer_id" db:"streamer_id"`
	OriginalURL  string      `json:"original_url" db:"original_url"`
	ProcessedURL string      `json:"processed_url" db:"processed_url"`
	MediaKind    MediaKind   `json:"media_kind" db:"media_kind"`
	RequestedBy  string      `json:"requested_by" db:"requested_by"`
	Status       MediaStatus `json:"status" db:"status"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// Validate checks the fields set at submission time.
func (m *MediaRequest) Validate() error {
	if m.OriginalURL == "" {
		return fmt.Errorf("url is required")
	}
	if u, err := url.Parse(m.OriginalURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid url")
	}
	if m.RequestedBy == "" {
		return fmt.Errorf("requested_by is required")
	}
	if len(m.RequestedBy) > 100 {
		return fmt.Errorf("requested_by too long")
	}
	if m.StreamerID == uuid.Nil {
		return fmt.Errorf("streamer_id is required")
	}
	return nil
}

type AddRequestRequest struct {
	URL         string `json:"url" binding:"required,url"`
	RequestedBy string `json:"requested_by" binding:"required"`
}

type AddRequestResponse struct {
	ID          uuid.UUID `json:"id"`
	OriginalURL string    `json:"original_url"`
	RequestedBy string    `json:"requested_by"`
}

// CurrentMedia is the getCurrent response payload. ProcessedURL carries the
// freshly extracted media URL, which is not necessarily the persisted one.
type CurrentMedia struct {
	ID           uuid.UUID   `json:"id"`
	OriginalURL  string      `json:"original_url"`
	ProcessedURL string      `json:"processed_url"`
	MediaKind    MediaKind   `json:"media_kind"`
	RequestedBy  string      `json:"requested_by"`
	Status       MediaStatus `json:"status"`
}
