package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cliprelay/backend/internal/models"
)

// MemoryMediaRequestRepository is a mutex-guarded in-memory implementation
// used by tests. Promotion runs under the lock, giving the same atomicity
// the SQL conditional update provides.
type MemoryMediaRequestRepository struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*models.MediaRequest
}

func NewMemoryMediaRequestRepository() *MemoryMediaRequestRepository {
	return &MemoryMediaRequestRepository{requests: make(map[uuid.UUID]*models.MediaRequest)}
}

func (r *MemoryMediaRequestRepository) Create(m *models.MediaRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.requests[m.ID] = &cp
	return nil
}

func (r *MemoryMediaRequestRepository) GetByID(id uuid.UUID) (*models.MediaRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryMediaRequestRepository) GetPlaying(streamerID uuid.UUID) (*models.MediaRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var playing *models.MediaRequest
	for _, m := range r.requests {
		if m.StreamerID != streamerID || m.Status != models.StatusPlaying {
			continue
		}
		if playing == nil || m.UpdatedAt.After(playing.UpdatedAt) {
			playing = m
		}
	}
	if playing == nil {
		return nil, ErrNotFound
	}
	cp := *playing
	return &cp, nil
}

func (r *MemoryMediaRequestRepository) PromoteNext(streamerID uuid.UUID) (*models.MediaRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var oldest *models.MediaRequest
	for _, m := range r.requests {
		if m.StreamerID != streamerID {
			continue
		}
		if m.Status == models.StatusPlaying {
			return nil, ErrConflict
		}
		if m.Status != models.StatusPending {
			continue
		}
		if oldest == nil || m.CreatedAt.Before(oldest.CreatedAt) {
			oldest = m
		}
	}
	if oldest == nil {
		return nil, ErrNotFound
	}

	oldest.Status = models.StatusPlaying
	oldest.UpdatedAt = time.Now()
	cp := *oldest
	return &cp, nil
}

func (r *MemoryMediaRequestRepository) ListActive(streamerID uuid.UUID) ([]models.MediaRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.MediaRequest{}
	for _, m := range r.requests {
		if m.StreamerID == streamerID && (m.Status == models.StatusPending || m.Status == models.StatusPlaying) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryMediaRequestRepository) MarkPlayed(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.requests[id]
	if !ok {
		return ErrNotFound
	}
	m.Status = models.StatusPlayed
	m.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryMediaRequestRepository) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[id]; !ok {
		return ErrNotFound
	}
	delete(r.requests, id)
	return nil
}

func (r *MemoryMediaRequestRepository) DeletePending(streamerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.requests {
		if m.StreamerID == streamerID && m.Status == models.StatusPending {
			delete(r.requests, id)
		}
	}
	return nil
}

func (r *MemoryMediaRequestRepository) ReapPlayed(olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, m := range r.requests {
		if m.Status == models.StatusPlayed && m.UpdatedAt.Before(olderThan) {
			delete(r.requests, id)
			n++
		}
	}
	return n, nil
}

// MemoryStreamerRepository is the in-memory counterpart for streamers.
type MemoryStreamerRepository struct {
	mu        sync.Mutex
	streamers map[uuid.UUID]*models.Streamer
}

func NewMemoryStreamerRepository() *MemoryStreamerRepository {
	return &MemoryStreamerRepository{streamers: make(map[uuid.UUID]*models.Streamer)}
}

func (r *MemoryStreamerRepository) Create(s *models.Streamer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.streamers[s.ID] = &cp
	return nil
}

func (r *MemoryStreamerRepository) GetByID(id uuid.UUID) (*models.Streamer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streamers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryStreamerRepository) GetByEmail(email string) (*models.Streamer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.streamers {
		if s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryStreamerRepository) GetByToken(token string) (*models.Streamer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.streamers {
		if s.PlayerToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryStreamerRepository) UpdateToken(id uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streamers[id]
	if !ok {
		return ErrNotFound
	}
	s.PlayerToken = token
	s.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryStreamerRepository) SetPaused(id uuid.UUID, paused bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streamers[id]
	if !ok {
		return ErrNotFound
	}
	s.Paused = paused
	s.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryStreamerRepository) TogglePaused(id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streamers[id]
	if !ok {
		return false, ErrNotFound
	}
	s.Paused = !s.Paused
	s.UpdatedAt = time.Now()
	return s.Paused, nil
}

func (r *MemoryStreamerRepository) SetVolume(id uuid.UUID, volume float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streamers[id]
	if !ok {
		return ErrNotFound
	}
	s.Volume = volume
	s.UpdatedAt = time.Now()
	return nil
}
