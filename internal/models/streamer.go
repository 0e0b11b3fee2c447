package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Streamer struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Username     string    `json:"username" db:"username"` // twitch login, also the chat channel
	PasswordHash string    `json:"-" db:"password_hash"`
	PlayerToken  string    `json:"-" db:"player_token"`
	Paused       bool      `json:"paused" db:"player_paused"`
	Volume       float64   `json:"volume" db:"player_volume"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks basic streamer fields
func (s *Streamer) Validate() error {
	if s.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(s.Email, "@") {
		return fmt.Errorf("invalid email")
	}
	if s.Username == "" {
		return fmt.Errorf("username is required")
	}
	if len(s.Username) < 2 || len(s.Username) > 25 {
		return fmt.Errorf("username length invalid")
	}
	if s.Volume < 0 || s.Volume > 1 {
		return fmt.Errorf("volume out of range")
	}
	return nil
}

// Channel returns the twitch chat channel for the streamer.
func (s *Streamer) Channel() string {
	return strings.ToLower(s.Username)
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Username string `json:"username" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string   `json:"token"`
	Streamer Streamer `json:"streamer"`
}
