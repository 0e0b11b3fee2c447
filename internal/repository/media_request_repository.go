package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cliprelay/backend/internal/database"
	"github.com/cliprelay/backend/internal/models"
)

type MediaRequestRepository struct {
	db *database.DB
}

func NewMediaRequestRepository(db *database.DB) *MediaRequestRepository {
	return &MediaRequestRepository{db: db}
}

const mediaColumns = `id, streamer_id, original_url, processed_url, media_kind, requested_by, status, created_at, updated_at`

func scanMediaRequest(row *sql.Row) (*models.MediaRequest, error) {
	m := &models.MediaRequest{}
	err := row.Scan(
		&m.ID,
		&m.StreamerID,
		&m.OriginalURL,
		&m.ProcessedURL,
		&m.MediaKind,
		&m.RequestedBy,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan media request: %w", err)
	}
	return m, nil
}

// Create inserts a new PENDING media request
func (r *MediaRequestRepository) Create(m *models.MediaRequest) error {
	query := `
		INSERT INTO media_requests (id, streamer_id, original_url, processed_url, media_kind, requested_by, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		m.ID,
		m.StreamerID,
		m.OriginalURL,
		m.ProcessedURL,
		m.MediaKind,
		m.RequestedBy,
		m.Status,
		m.CreatedAt,
		m.UpdatedAt,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			// foreign key violation: the owning streamer was deleted
			return ErrStreamerNotFound
		}
		return fmt.Errorf("failed to create media request: %w", err)
	}

	return nil
}

// GetByID retrieves a media request by ID
func (r *MediaRequestRepository) GetByID(id uuid.UUID) (*models.MediaRequest, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_requests WHERE id = $1`
	return scanMediaRequest(r.db.QueryRow(query, id))
}

// GetPlaying returns the streamer's PLAYING request, most recently updated
// first. ErrNotFound means nothing is playing.
func (r *MediaRequestRepository) GetPlaying(streamerID uuid.UUID) (*models.MediaRequest, error) {
	query := `
		SELECT ` + mediaColumns + `
		FROM media_requests
		WHERE streamer_id = $1 AND status = 'PLAYING'
		ORDER BY updated_at DESC
		LIMIT 1
	`
	return scanMediaRequest(r.db.QueryRow(query, streamerID))
}

// PromoteNext atomically promotes the oldest PENDING request to PLAYING.
// The inner select takes a row lock (SKIP LOCKED) so two pollers cannot
// both pick the same row, and the NOT EXISTS guard refuses to promote while
// a PLAYING row exists. The partial unique index on (streamer_id) WHERE
// status = 'PLAYING' backstops the race where both guards pass concurrently;
// the loser surfaces ErrConflict and should re-read the winner.
func (r *MediaRequestRepository) PromoteNext(streamerID uuid.UUID) (*models.MediaRequest, error) {
	query := `
		UPDATE media_requests SET status = 'PLAYING', updated_at = NOW()
		WHERE id = (
			SELECT id FROM media_requests
			WHERE streamer_id = $1 AND status = 'PENDING'
			ORDER BY created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		AND NOT EXISTS (
			SELECT 1 FROM media_requests WHERE streamer_id = $1 AND status = 'PLAYING'
		)
		RETURNING ` + mediaColumns

	m, err := scanMediaRequest(r.db.QueryRow(query, streamerID))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrConflict
		}
		return nil, err
	}
	return m, nil
}

// ListActive returns PENDING and PLAYING requests in creation order
func (r *MediaRequestRepository) ListActive(streamerID uuid.UUID) ([]models.MediaRequest, error) {
	query := `
		SELECT ` + mediaColumns + `
		FROM media_requests
		WHERE streamer_id = $1 AND status IN ('PENDING', 'PLAYING')
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(query, streamerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media requests: %w", err)
	}
	defer rows.Close()

	requests := []models.MediaRequest{}
	for rows.Next() {
		var m models.MediaRequest
		err := rows.Scan(
			&m.ID,
			&m.StreamerID,
			&m.OriginalURL,
			&m.ProcessedURL,
			&m.MediaKind,
			&m.RequestedBy,
			&m.Status,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media request: %w", err)
		}
		requests = append(requests, m)
	}

	return requests, nil
}

// MarkPlayed flips a request to PLAYED (skip of a PLAYING item)
func (r *MediaRequestRepository) MarkPlayed(id uuid.UUID) error {
	query := `UPDATE media_requests SET status = 'PLAYED', updated_at = NOW() WHERE id = $1`
	res, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to mark played: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a request permanently
func (r *MediaRequestRepository) Delete(id uuid.UUID) error {
	res, err := r.db.Exec(`DELETE FROM media_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePending removes all PENDING requests for a streamer
func (r *MediaRequestRepository) DeletePending(streamerID uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM media_requests WHERE streamer_id = $1 AND status = 'PENDING'`, streamerID)
	if err != nil {
		return fmt.Errorf("failed to clear pending requests: %w", err)
	}
	return nil
}

// ReapPlayed removes PLAYED rows older than the cutoff
func (r *MediaRequestRepository) ReapPlayed(olderThan time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM media_requests WHERE status = 'PLAYED' AND updated_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to reap played requests: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
