package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cliprelay/backend/internal/database"
	"github.com/cliprelay/backend/internal/models"
)

type StreamerRepository struct {
	db *database.DB
}

func NewStreamerRepository(db *database.DB) *StreamerRepository {
	return &StreamerRepository{db: db}
}

const streamerColumns = `id, email, username, password_hash, player_token, player_paused, player_volume, created_at, updated_at`

func scanStreamer(row *sql.Row) (*models.Streamer, error) {
	s := &models.Streamer{}
	err := row.Scan(
		&s.ID,
		&s.Email,
		&s.Username,
		&s.PasswordHash,
		&s.PlayerToken,
		&s.Paused,
		&s.Volume,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan streamer: %w", err)
	}
	return s, nil
}

// Create creates a new streamer
func (r *StreamerRepository) Create(s *models.Streamer) error {
	query := `
		INSERT INTO streamers (id, email, username, password_hash, player_token, player_paused, player_volume, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		s.ID,
		s.Email,
		s.Username,
		s.PasswordHash,
		s.PlayerToken,
		s.Paused,
		s.Volume,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("failed to create streamer: %w", err)
	}

	return nil
}

// GetByID retrieves a streamer by ID
func (r *StreamerRepository) GetByID(id uuid.UUID) (*models.Streamer, error) {
	query := `SELECT ` + streamerColumns + ` FROM streamers WHERE id = $1`
	return scanStreamer(r.db.QueryRow(query, id))
}

// GetByEmail retrieves a streamer by email
func (r *StreamerRepository) GetByEmail(email string) (*models.Streamer, error) {
	query := `SELECT ` + streamerColumns + ` FROM streamers WHERE email = $1`
	return scanStreamer(r.db.QueryRow(query, email))
}

// GetByToken retrieves a streamer by player token. A rotated-out token no
// longer matches any row, so callers holding it get ErrNotFound.
func (r *StreamerRepository) GetByToken(token string) (*models.Streamer, error) {
	query := `SELECT ` + streamerColumns + ` FROM streamers WHERE player_token = $1`
	return scanStreamer(r.db.QueryRow(query, token))
}

// UpdateToken replaces the player token, invalidating the previous one
func (r *StreamerRepository) UpdateToken(id uuid.UUID, token string) error {
	query := `UPDATE streamers SET player_token = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.Exec(query, token, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("failed to update player token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPaused sets the durable paused flag
func (r *StreamerRepository) SetPaused(id uuid.UUID, paused bool) error {
	query := `UPDATE streamers SET player_paused = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.Exec(query, paused, id)
	if err != nil {
		return fmt.Errorf("failed to set paused: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TogglePaused flips the paused flag and returns the new value
func (r *StreamerRepository) TogglePaused(id uuid.UUID) (bool, error) {
	query := `UPDATE streamers SET player_paused = NOT player_paused, updated_at = NOW() WHERE id = $1 RETURNING player_paused`
	var paused bool
	err := r.db.QueryRow(query, id).Scan(&paused)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle paused: %w", err)
	}
	return paused, nil
}

// SetVolume sets the durable volume, expected in [0,1]
func (r *StreamerRepository) SetVolume(id uuid.UUID, volume float64) error {
	query := `UPDATE streamers SET player_volume = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.Exec(query, volume, id)
	if err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
