package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cliprelay/backend/internal/auth"
	"github.com/cliprelay/backend/internal/cache"
	"github.com/cliprelay/backend/internal/models"
	"github.com/cliprelay/backend/internal/queue"
	"github.com/cliprelay/backend/internal/repository"
)

type passthroughResolver struct{}

func (passthroughResolver) IsSupported(url string) bool {
	return strings.Contains(url, "youtube.com")
}
func (passthroughResolver) Kind(url string) models.MediaKind        { return models.KindYouTube }
func (passthroughResolver) Validate(_ context.Context, _ string) error { return nil }
func (passthroughResolver) Extract(_ context.Context, url string) (string, error) {
	return url, nil
}

type env struct {
	router    *gin.Engine
	streamers *repository.MemoryStreamerRepository
	media     *repository.MemoryMediaRequestRepository
	sync      *cache.MemoryStore
	queue     *queue.Service
	streamer  *models.Streamer
}

// fakeAuth replaces the JWT middleware in tests.
func fakeAuth(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		c.Next()
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	streamers := repository.NewMemoryStreamerRepository()
	media := repository.NewMemoryMediaRequestRepository()
	sync := cache.NewMemoryStore()
	q := queue.NewService(media, passthroughResolver{})

	token, err := auth.GeneratePlayerToken()
	if err != nil {
		t.Fatalf("GeneratePlayerToken error: %v", err)
	}
	streamer := &models.Streamer{
		ID:          uuid.New(),
		Email:       "gal@example.com",
		Username:    "StreamerGal",
		PlayerToken: token,
		Volume:      1,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := streamers.Create(streamer); err != nil {
		t.Fatalf("Create streamer error: %v", err)
	}

	ph := NewPlayerHandler(streamers, sync, q, media)

	router := gin.New()
	router.GET("/api/queue/current-by-token", ph.CurrentByToken)
	router.POST("/api/queue/complete-by-token", ph.CompleteByToken)
	router.GET("/api/player/position", ph.PositionByToken)
	router.POST("/api/player/position", ph.ReportPosition)
	router.GET("/api/player/seek", ph.ConsumeSeek)
	router.GET("/api/player/state", ph.State)
	router.POST("/api/player/set-state", ph.SetState)
	router.POST("/api/player/toggle", ph.Toggle)

	api := router.Group("/api/v1", fakeAuth(streamer.ID))
	api.GET("/player/position", ph.Position)
	api.POST("/player/seek", ph.RequestSeek)
	api.POST("/player/volume", ph.SetVolume)
	api.POST("/player/reset-token", ph.ResetToken)

	return &env{
		router:    router,
		streamers: streamers,
		media:     media,
		sync:      sync,
		queue:     q,
		streamer:  streamer,
	}
}

func (e *env) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

// startPlayback submits and promotes one item, returning its id.
func (e *env) startPlayback(t *testing.T) uuid.UUID {
	t.Helper()
	m, err := e.queue.Submit(context.Background(), "https://youtube.com/watch?v=abc", "viewer1", e.streamer.ID)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if _, err := e.queue.Current(context.Background(), e.streamer.ID); err != nil {
		t.Fatalf("Current error: %v", err)
	}
	return m.ID
}

func TestState_ByToken(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/player/state?token="+e.streamer.PlayerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["paused"] != false || resp["volume"] != 1.0 {
		t.Errorf("Unexpected state: %v", resp)
	}
}

func TestState_InvalidToken(t *testing.T) {
	e := newEnv(t)

	for _, path := range []string{
		"/api/player/state?token=bogus",
		"/api/player/state",
	} {
		w := e.do(t, http.MethodGet, path, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestToggle(t *testing.T) {
	e := newEnv(t)
	body := map[string]string{"token": e.streamer.PlayerToken}

	w := e.do(t, http.MethodPost, "/api/player/toggle", body)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if resp := decode(t, w); resp["paused"] != true {
		t.Errorf("Expected paused after first toggle, got %v", resp)
	}

	w = e.do(t, http.MethodPost, "/api/player/toggle", body)
	if resp := decode(t, w); resp["paused"] != false {
		t.Errorf("Expected unpaused after second toggle, got %v", resp)
	}
}

func TestSetState(t *testing.T) {
	e := newEnv(t)

	paused := true
	w := e.do(t, http.MethodPost, "/api/player/set-state", models.SetStateRequest{
		Token:  e.streamer.PlayerToken,
		Paused: &paused,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	s, err := e.streamers.GetByID(e.streamer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Paused {
		t.Error("Expected durable paused flag set")
	}
}

func TestPositionRoundTrip(t *testing.T) {
	e := newEnv(t)
	e.startPlayback(t)

	w := e.do(t, http.MethodPost, "/api/player/position", models.ReportPositionRequest{
		Token:       e.streamer.PlayerToken,
		CurrentTime: 42.5,
		Duration:    180,
		Title:       "some clip",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Report: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// player-side read
	w = e.do(t, http.MethodGet, "/api/player/position?token="+e.streamer.PlayerToken, nil)
	resp := decode(t, w)
	pos, ok := resp["position"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected position payload, got %v", resp)
	}
	if pos["currentTime"] != 42.5 || pos["duration"] != 180.0 {
		t.Errorf("Unexpected position %v", pos)
	}

	// dashboard-side read of the same register
	w = e.do(t, http.MethodGet, "/api/v1/player/position", nil)
	resp = decode(t, w)
	if _, ok := resp["position"].(map[string]interface{}); !ok {
		t.Errorf("Expected dashboard to read the register, got %v", resp)
	}
}

func TestPosition_NothingPlaying(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/player/position?token="+e.streamer.PlayerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if resp := decode(t, w); resp["position"] != nil {
		t.Errorf("Expected nil position, got %v", resp)
	}
}

func TestSeek_ConsumedOnce(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/player/seek", models.SeekRequest{Time: 90})
	if w.Code != http.StatusOK {
		t.Fatalf("Seek request: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/api/player/seek?token="+e.streamer.PlayerToken, nil)
	if resp := decode(t, w); resp["seek"] != 90.0 {
		t.Fatalf("Expected pending seek 90, got %v", resp)
	}

	// consuming read: gone on the second poll
	w = e.do(t, http.MethodGet, "/api/player/seek?token="+e.streamer.PlayerToken, nil)
	if resp := decode(t, w); resp["seek"] != nil {
		t.Errorf("Expected seek consumed, got %v", resp)
	}
}

func TestResetToken_InvalidatesOldToken(t *testing.T) {
	e := newEnv(t)
	oldToken := e.streamer.PlayerToken

	w := e.do(t, http.MethodPost, "/api/v1/player/reset-token", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	newToken, _ := decode(t, w)["player_token"].(string)
	if newToken == "" || newToken == oldToken {
		t.Fatalf("Expected a fresh token, got %q", newToken)
	}

	w = e.do(t, http.MethodGet, "/api/player/state?token="+oldToken, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected old token rejected, got %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/player/state?token="+newToken, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected new token accepted, got %d", w.Code)
	}
}

func TestSetVolume(t *testing.T) {
	e := newEnv(t)

	vol := 0.4
	w := e.do(t, http.MethodPost, "/api/v1/player/volume", models.SetVolumeRequest{Volume: &vol})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	s, _ := e.streamers.GetByID(e.streamer.ID)
	if s.Volume != 0.4 {
		t.Errorf("Expected volume 0.4, got %v", s.Volume)
	}
}

func TestCurrentByToken(t *testing.T) {
	e := newEnv(t)
	id := e.startPlayback(t)

	w := e.do(t, http.MethodGet, "/api/queue/current-by-token?token="+e.streamer.PlayerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	cur, ok := resp["current"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected current payload, got %v", resp)
	}
	if cur["id"] != id.String() {
		t.Errorf("Expected playing item %s, got %v", id, cur["id"])
	}
	if _, ok := resp["paused"]; !ok {
		t.Error("Expected durable state in the poll response")
	}
}

func TestCompleteByToken(t *testing.T) {
	e := newEnv(t)
	id := e.startPlayback(t)

	w := e.do(t, http.MethodPost, "/api/queue/complete-by-token", map[string]string{
		"id":    id.String(),
		"token": e.streamer.PlayerToken,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// completing twice is fine for the player
	w = e.do(t, http.MethodPost, "/api/queue/complete-by-token", map[string]string{
		"id":    id.String(),
		"token": e.streamer.PlayerToken,
	})
	if w.Code != http.StatusOK {
		t.Errorf("Expected idempotent completion, got %d", w.Code)
	}

	list, _ := e.queue.List(e.streamer.ID)
	if len(list) != 0 {
		t.Errorf("Expected empty queue, got %d items", len(list))
	}
}
