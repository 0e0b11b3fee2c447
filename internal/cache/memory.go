package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cliprelay/backend/internal/models"
)

// MemoryStore is a process-local SyncStore used when Redis is unavailable
// and in tests. Single-instance deployments only: another instance's player
// writes are invisible here.
type MemoryStore struct {
	mu        sync.Mutex
	positions map[uuid.UUID]positionEntry
	seeks     map[string]seekEntry
	now       func() time.Time
}

type positionEntry struct {
	pos     models.Position
	expires time.Time
}

type seekEntry struct {
	seekTime float64
	expires  time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		positions: make(map[uuid.UUID]positionEntry),
		seeks:     make(map[string]seekEntry),
		now:       time.Now,
	}
}

func (s *MemoryStore) SetPosition(requestID uuid.UUID, pos models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[requestID] = positionEntry{pos: pos, expires: s.now().Add(PositionTTL)}
	return nil
}

func (s *MemoryStore) GetPosition(requestID uuid.UUID) (models.Position, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.positions[requestID]
	if !ok {
		return models.Position{}, false, nil
	}
	if s.now().After(e.expires) {
		delete(s.positions, requestID)
		return models.Position{}, false, nil
	}
	return e.pos, true, nil
}

func (s *MemoryStore) RequestSeek(token string, seekTime float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks[token] = seekEntry{seekTime: seekTime, expires: s.now().Add(SeekTTL)}
	return nil
}

func (s *MemoryStore) ConsumeSeek(token string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.seeks[token]
	if !ok {
		return 0, false, nil
	}
	delete(s.seeks, token)
	if s.now().After(e.expires) {
		// too old to act on; cleared without effecting a seek
		return 0, false, nil
	}
	return e.seekTime, true, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
