package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/cliprelay/backend/internal/models"
	"github.com/cliprelay/backend/internal/queue"
	"github.com/cliprelay/backend/internal/repository"
	"github.com/cliprelay/backend/internal/resolver"
)

func newQueueEnv(t *testing.T) (*env, *queue.Service) {
	t.Helper()
	e := newEnv(t)

	qh := NewQueueHandler(e.queue)
	api := e.router.Group("/api/v1", fakeAuth(e.streamer.ID))
	api.POST("/queue/add", qh.Add)
	api.GET("/queue/list", qh.List)
	api.GET("/queue/current", qh.Current)
	api.POST("/queue/skip", qh.Skip)
	api.POST("/queue/complete", qh.Complete)
	api.POST("/queue/clear", qh.Clear)

	return e, e.queue
}

func TestQueueAdd(t *testing.T) {
	e, _ := newQueueEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/queue/add", models.AddRequestRequest{
		URL:         "https://youtube.com/watch?v=abc",
		RequestedBy: "viewer1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["original_url"] != "https://youtube.com/watch?v=abc" {
		t.Errorf("Unexpected response %v", resp)
	}
}

func TestQueueAdd_UnsupportedSource(t *testing.T) {
	e, q := newQueueEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/queue/add", models.AddRequestRequest{
		URL:         "https://example.com/video",
		RequestedBy: "viewer1",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
	}

	list, _ := q.List(e.streamer.ID)
	if len(list) != 0 {
		t.Errorf("Expected no row for rejected submission")
	}
}

// downResolver accepts the URL but cannot reach the platform to vet it.
type downResolver struct{ passthroughResolver }

func (downResolver) Validate(_ context.Context, _ string) error {
	return resolver.ErrUpstreamError
}

func TestQueueAdd_UpstreamDown(t *testing.T) {
	e, _ := newQueueEnv(t)

	q := queue.NewService(repository.NewMemoryMediaRequestRepository(), downResolver{})
	qh := NewQueueHandler(q)
	e.router.POST("/api/v1/queue/add-down", fakeAuth(e.streamer.ID), qh.Add)

	w := e.do(t, http.MethodPost, "/api/v1/queue/add-down", models.AddRequestRequest{
		URL:         "https://youtube.com/watch?v=abc",
		RequestedBy: "viewer1",
	})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d: %s", w.Code, w.Body.String())
	}
}

func TestQueueListAndCurrent(t *testing.T) {
	e, _ := newQueueEnv(t)
	id := e.startPlayback(t)

	w := e.do(t, http.MethodGet, "/api/v1/queue/list", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	resp := decode(t, w)
	reqs, ok := resp["requests"].([]interface{})
	if !ok || len(reqs) != 1 {
		t.Fatalf("Expected one queued item, got %v", resp)
	}

	w = e.do(t, http.MethodGet, "/api/v1/queue/current", nil)
	resp = decode(t, w)
	cur, ok := resp["current"].(map[string]interface{})
	if !ok || cur["id"] != id.String() {
		t.Errorf("Expected current item %s, got %v", id, resp)
	}
}

func TestQueueSkip_NotFound(t *testing.T) {
	e, _ := newQueueEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/queue/skip", map[string]string{
		"id": uuid.NewString(),
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestQueueSkip_OtherStreamersItem(t *testing.T) {
	e, q := newQueueEnv(t)

	other := uuid.New()
	m, err := q.Submit(context.Background(), "https://youtube.com/watch?v=x", "viewer1", other)
	if err != nil {
		t.Fatal(err)
	}

	w := e.do(t, http.MethodPost, "/api/v1/queue/skip", map[string]string{
		"id": m.ID.String(),
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestQueueClear(t *testing.T) {
	e, q := newQueueEnv(t)
	playingID := e.startPlayback(t)
	if _, err := q.Submit(context.Background(), "https://youtube.com/watch?v=pending", "viewer1", e.streamer.ID); err != nil {
		t.Fatal(err)
	}

	w := e.do(t, http.MethodPost, "/api/v1/queue/clear", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	list, _ := q.List(e.streamer.ID)
	if len(list) != 1 || list[0].ID != playingID {
		t.Errorf("Expected only the playing item left, got %v", list)
	}
}

func TestQueueComplete(t *testing.T) {
	e, _ := newQueueEnv(t)
	id := e.startPlayback(t)

	w := e.do(t, http.MethodPost, "/api/v1/queue/complete", map[string]string{
		"id": id.String(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if _, err := e.media.GetByID(id); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected completed item deleted, got %v", err)
	}
}

