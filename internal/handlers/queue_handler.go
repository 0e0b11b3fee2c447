package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cliprelay/backend/internal/models"
	"github.com/cliprelay/backend/internal/queue"
)

// QueueHandler serves the dashboard's queue operations.
type QueueHandler struct {
	queue *queue.Service
}

func NewQueueHandler(q *queue.Service) *QueueHandler {
	return &QueueHandler{queue: q}
}

type requestIDBody struct {
	ID uuid.UUID `json:"id" binding:"required"`
}

func streamerID(c *gin.Context) uuid.UUID {
	v, _ := c.Get("user_id")
	return v.(uuid.UUID)
}

// Add submits a new media request on behalf of the dashboard operator.
func (h *QueueHandler) Add(c *gin.Context) {
	var req models.AddRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.queue.Submit(c.Request.Context(), req.URL, req.RequestedBy, streamerID(c))
	if err != nil {
		if errors.Is(err, queue.ErrUnsupportedSource) {
			ErrorResponse(c, http.StatusUnprocessableEntity, "Video source not supported")
			return
		}
		if errors.Is(err, queue.ErrUpstreamUnavailable) {
			ErrorResponse(c, http.StatusServiceUnavailable, "Video source unavailable, try again later")
			return
		}
		if errors.Is(err, queue.ErrStreamerNotFound) {
			ErrorResponse(c, http.StatusNotFound, "Streamer not found")
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to add request")
		return
	}

	c.JSON(http.StatusCreated, models.AddRequestResponse{
		ID:          m.ID,
		OriginalURL: m.OriginalURL,
		RequestedBy: m.RequestedBy,
	})
}

// List returns the PENDING and PLAYING items in creation order.
func (h *QueueHandler) List(c *gin.Context) {
	items, err := h.queue.List(streamerID(c))
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list queue")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": items})
}

// Current returns the now-playing item, promoting the next PENDING one if
// needed. An item that failed extraction is still returned, flagged, with
// the seconds left until auto-skip.
func (h *QueueHandler) Current(c *gin.Context) {
	sid := streamerID(c)
	cur, err := h.queue.Current(c.Request.Context(), sid)

	var exErr *queue.ExtractionError
	if errors.As(err, &exErr) {
		c.JSON(http.StatusOK, gin.H{
			"current":             cur,
			"extraction_failed":   true,
			"auto_skip_remaining": h.queue.CountdownRemaining(sid),
		})
		return
	}
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to resolve current media")
		return
	}

	c.JSON(http.StatusOK, gin.H{"current": cur})
}

// Skip removes an item: PENDING items vanish, the PLAYING one is retired.
func (h *QueueHandler) Skip(c *gin.Context) {
	var body requestIDBody
	if err := c.ShouldBindJSON(&body); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	h.mutation(c, h.queue.Skip(body.ID, streamerID(c)))
}

// Complete acknowledges normal end of playback for an item.
func (h *QueueHandler) Complete(c *gin.Context) {
	var body requestIDBody
	if err := c.ShouldBindJSON(&body); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	h.mutation(c, h.queue.Complete(body.ID, streamerID(c)))
}

// Clear drops every PENDING item, leaving the PLAYING one alone.
func (h *QueueHandler) Clear(c *gin.Context) {
	if err := h.queue.Clear(streamerID(c)); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to clear queue")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (h *QueueHandler) mutation(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, queue.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, "Media request not found")
	case errors.Is(err, queue.ErrUnauthorized):
		ErrorResponse(c, http.StatusForbidden, "Not your media request")
	default:
		ErrorResponse(c, http.StatusInternalServerError, "Operation failed")
	}
}
