package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cliprelay/backend/internal/auth"
	"github.com/cliprelay/backend/internal/models"
	"github.com/cliprelay/backend/internal/repository"
)

// tokenAttempts bounds the retry loop on player-token collisions. The token
// carries 128 random bits, so a second attempt is already exceptional.
const tokenAttempts = 3

// StreamerRepo is the streamer persistence surface the handlers need.
type StreamerRepo interface {
	Create(s *models.Streamer) error
	GetByID(id uuid.UUID) (*models.Streamer, error)
	GetByEmail(email string) (*models.Streamer, error)
	GetByToken(token string) (*models.Streamer, error)
	UpdateToken(id uuid.UUID, token string) error
	SetPaused(id uuid.UUID, paused bool) error
	TogglePaused(id uuid.UUID) (bool, error)
	SetVolume(id uuid.UUID, volume float64) error
}

type AuthHandler struct {
	streamers  StreamerRepo
	jwtService *auth.JWTService
}

func NewAuthHandler(streamers StreamerRepo, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		streamers:  streamers,
		jwtService: jwtService,
	}
}

// Register handles streamer registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	// Hash password
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	streamer := &models.Streamer{
		ID:           uuid.New(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hashedPassword,
		Volume:       1,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := streamer.Validate(); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	// A conflict on the freshly generated token is retried; one on
	// email/username is reported to the caller.
	for attempt := 0; ; attempt++ {
		streamer.PlayerToken, err = auth.GeneratePlayerToken()
		if err != nil {
			ErrorResponse(c, http.StatusInternalServerError, "Failed to generate player token")
			return
		}
		err = h.streamers.Create(streamer)
		if errors.Is(err, repository.ErrConflict) && attempt < tokenAttempts-1 {
			continue
		}
		break
	}
	if errors.Is(err, repository.ErrConflict) {
		ErrorResponse(c, http.StatusConflict, "Email or username already registered")
		return
	}
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to create streamer")
		return
	}

	token, err := h.jwtService.GenerateToken(streamer.ID, streamer.Email)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusCreated, models.LoginResponse{
		Token:    token,
		Streamer: *streamer,
	})
}

// Login handles streamer login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	streamer, err := h.streamers.GetByEmail(req.Email)
	if err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := auth.CheckPassword(streamer.PasswordHash, req.Password); err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.jwtService.GenerateToken(streamer.ID, streamer.Email)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:    token,
		Streamer: *streamer,
	})
}

// GetMe returns the current streamer, player token included so the
// dashboard can render the player source URL.
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	streamer, err := h.streamers.GetByID(uid)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Streamer not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           streamer.ID,
		"email":        streamer.Email,
		"username":     streamer.Username,
		"player_token": streamer.PlayerToken,
		"paused":       streamer.Paused,
		"volume":       streamer.Volume,
		"created_at":   streamer.CreatedAt,
	})
}
