package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cliprelay/backend/internal/auth"
	"github.com/cliprelay/backend/internal/cache"
	"github.com/cliprelay/backend/internal/models"
	"github.com/cliprelay/backend/internal/queue"
	"github.com/cliprelay/backend/internal/repository"
)

// PlayingSource reads the currently PLAYING item without side effects.
// Position reads must not trigger promotion or extraction.
type PlayingSource interface {
	GetPlaying(streamerID uuid.UUID) (*models.MediaRequest, error)
}

// PlayerHandler serves the unauthenticated token-keyed player surface and
// the dashboard's playback controls. The player token is the sole
// credential on the public routes.
type PlayerHandler struct {
	streamers StreamerRepo
	sync      cache.SyncStore
	queue     *queue.Service
	playing   PlayingSource
}

func NewPlayerHandler(streamers StreamerRepo, sync cache.SyncStore, q *queue.Service, playing PlayingSource) *PlayerHandler {
	return &PlayerHandler{
		streamers: streamers,
		sync:      sync,
		queue:     q,
		playing:   playing,
	}
}

// byToken resolves the token credential. A rotated-out token matches no
// streamer, so stale players are rejected here.
func (h *PlayerHandler) byToken(c *gin.Context, token string) (*models.Streamer, bool) {
	if token == "" {
		ErrorResponse(c, http.StatusUnauthorized, "Player token required")
		return nil, false
	}
	s, err := h.streamers.GetByToken(token)
	if err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid player token")
		return nil, false
	}
	return s, true
}

// CurrentByToken is the player's poll target: the now-playing item plus the
// durable pause/volume state, so one poll drives the whole player.
func (h *PlayerHandler) CurrentByToken(c *gin.Context) {
	s, ok := h.byToken(c, c.Query("token"))
	if !ok {
		return
	}

	cur, err := h.queue.Current(c.Request.Context(), s.ID)
	var exErr *queue.ExtractionError
	if err != nil && !errors.As(err, &exErr) {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to resolve current media")
		return
	}

	resp := gin.H{
		"current": cur,
		"paused":  s.Paused,
		"volume":  s.Volume,
	}
	if exErr != nil {
		resp["extraction_failed"] = true
		resp["auto_skip_remaining"] = h.queue.CountdownRemaining(s.ID)
	}
	c.JSON(http.StatusOK, resp)
}

type completeByTokenRequest struct {
	ID    uuid.UUID `json:"id" binding:"required"`
	Token string    `json:"token" binding:"required"`
}

// CompleteByToken lets the player retire an item it finished playing.
func (h *PlayerHandler) CompleteByToken(c *gin.Context) {
	var req completeByTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := h.byToken(c, req.Token)
	if !ok {
		return
	}

	switch err := h.queue.Complete(req.ID, s.ID); {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, queue.ErrNotFound):
		// already skipped or completed; the player just moves on
		c.JSON(http.StatusOK, gin.H{"status": "gone"})
	case errors.Is(err, queue.ErrUnauthorized):
		ErrorResponse(c, http.StatusForbidden, "Not your media request")
	default:
		ErrorResponse(c, http.StatusInternalServerError, "Operation failed")
	}
}

// ReportPosition stores the player's position in the register keyed by the
// active request. Reports arriving after the item changed are dropped.
func (h *PlayerHandler) ReportPosition(c *gin.Context) {
	var req models.ReportPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := h.byToken(c, req.Token)
	if !ok {
		return
	}

	playing, err := h.playing.GetPlaying(s.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to report position")
		return
	}

	pos := models.Position{
		CurrentTime: req.CurrentTime,
		Duration:    req.Duration,
		Title:       req.Title,
	}
	if err := h.sync.SetPosition(playing.ID, pos); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to report position")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PositionByToken reads the position register for the active request.
func (h *PlayerHandler) PositionByToken(c *gin.Context) {
	s, ok := h.byToken(c, c.Query("token"))
	if !ok {
		return
	}
	h.respondPosition(c, s.ID)
}

// Position is the dashboard's read of the same register, for the read-only
// progress indicator.
func (h *PlayerHandler) Position(c *gin.Context) {
	h.respondPosition(c, streamerID(c))
}

func (h *PlayerHandler) respondPosition(c *gin.Context, sid uuid.UUID) {
	playing, err := h.playing.GetPlaying(sid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"position": nil})
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to read position")
		return
	}

	pos, found, err := h.sync.GetPosition(playing.ID)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to read position")
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"position": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": pos, "request_id": playing.ID})
}

// ConsumeSeek hands the player its pending seek, at most once. Entries
// expire after a few seconds so a reloaded player never replays an old one.
func (h *PlayerHandler) ConsumeSeek(c *gin.Context) {
	s, ok := h.byToken(c, c.Query("token"))
	if !ok {
		return
	}

	target, found, err := h.sync.ConsumeSeek(s.PlayerToken)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to read seek")
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"seek": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"seek": target})
}

// RequestSeek records the dashboard operator's seek for the player's next
// poll and echoes the target for optimistic display.
func (h *PlayerHandler) RequestSeek(c *gin.Context) {
	var req models.SeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.streamers.GetByID(streamerID(c))
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Streamer not found")
		return
	}

	if err := h.sync.RequestSeek(s.PlayerToken, req.Time); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to request seek")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "target": req.Time})
}

// State returns the durable pause/volume pair.
func (h *PlayerHandler) State(c *gin.Context) {
	s, ok := h.byToken(c, c.Query("token"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.PlaybackState{Paused: s.Paused, Volume: s.Volume})
}

// SetState sets the paused flag from the player surface.
func (h *PlayerHandler) SetState(c *gin.Context) {
	var req models.SetStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := h.byToken(c, req.Token)
	if !ok {
		return
	}

	if err := h.streamers.SetPaused(s.ID, *req.Paused); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to set state")
		return
	}
	c.JSON(http.StatusOK, models.PlaybackState{Paused: *req.Paused, Volume: s.Volume})
}

type tokenBody struct {
	Token string `json:"token" binding:"required"`
}

// Toggle flips the paused flag and returns the new state.
func (h *PlayerHandler) Toggle(c *gin.Context) {
	var req tokenBody
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := h.byToken(c, req.Token)
	if !ok {
		return
	}

	paused, err := h.streamers.TogglePaused(s.ID)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to toggle state")
		return
	}
	c.JSON(http.StatusOK, models.PlaybackState{Paused: paused, Volume: s.Volume})
}

// SetVolume sets the durable volume from the dashboard.
func (h *PlayerHandler) SetVolume(c *gin.Context) {
	var req models.SetVolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.streamers.SetVolume(streamerID(c), *req.Volume); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to set volume")
		return
	}
	c.JSON(http.StatusOK, gin.H{"volume": *req.Volume})
}

// ResetToken rotates the player token. The old token stops matching the
// moment the update commits; a player holding it gets 401 on its next poll.
func (h *PlayerHandler) ResetToken(c *gin.Context) {
	sid := streamerID(c)

	var token string
	var err error
	for attempt := 0; ; attempt++ {
		token, err = auth.GeneratePlayerToken()
		if err != nil {
			ErrorResponse(c, http.StatusInternalServerError, "Failed to generate player token")
			return
		}
		err = h.streamers.UpdateToken(sid, token)
		if errors.Is(err, repository.ErrConflict) && attempt < tokenAttempts-1 {
			continue
		}
		break
	}
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to reset player token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"player_token": token})
}
