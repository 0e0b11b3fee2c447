package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cliprelay/backend/internal/bot"
)

// BotHandler starts and stops the streamer's chat bot.
type BotHandler struct {
	streamers StreamerRepo
	bots      *bot.Manager
}

func NewBotHandler(streamers StreamerRepo, bots *bot.Manager) *BotHandler {
	return &BotHandler{streamers: streamers, bots: bots}
}

// Connect joins the streamer's chat channel.
func (h *BotHandler) Connect(c *gin.Context) {
	streamer, err := h.streamers.GetByID(streamerID(c))
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Streamer not found")
		return
	}

	h.bots.Connect(streamer)
	c.JSON(http.StatusOK, gin.H{"connected": true, "channel": streamer.Channel()})
}

// Disconnect leaves the chat channel.
func (h *BotHandler) Disconnect(c *gin.Context) {
	h.bots.Disconnect(streamerID(c))
	c.JSON(http.StatusOK, gin.H{"connected": false})
}

// Status reports whether a bot is running for the streamer.
func (h *BotHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connected": h.bots.Connected(streamerID(c))})
}
