package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cliprelay/backend/internal/models"
	"github.com/cliprelay/backend/internal/playback"
	"github.com/cliprelay/backend/internal/repository"
	"github.com/cliprelay/backend/internal/resolver"
)

// MediaRepo is the persistence contract the queue needs. PromoteNext must
// be atomic: of two concurrent calls for one streamer, at most one may
// succeed (the loser reports repository.ErrConflict or ErrNotFound).
type MediaRepo interface {
	Create(m *models.MediaRequest) error
	GetByID(id uuid.UUID) (*models.MediaRequest, error)
	GetPlaying(streamerID uuid.UUID) (*models.MediaRequest, error)
	PromoteNext(streamerID uuid.UUID) (*models.MediaRequest, error)
	ListActive(streamerID uuid.UUID) ([]models.MediaRequest, error)
	MarkPlayed(id uuid.UUID) error
	Delete(id uuid.UUID) error
	DeletePending(streamerID uuid.UUID) error
	ReapPlayed(olderThan time.Time) (int64, error)
}

// Resolver is the URL resolution contract (see internal/resolver).
type Resolver interface {
	IsSupported(url string) bool
	Kind(url string) models.MediaKind
	Validate(ctx context.Context, url string) error
	Extract(ctx context.Context, url string) (string, error)
}

const (
	promoteAttempts   = 3
	extractionTimeout = 8 * time.Second
	playedRetention   = time.Minute
)

// Service owns the per-streamer media request state machine: submission,
// PENDING->PLAYING promotion, completion, skip, clear, and the auto-skip
// grace period for items that fail extraction.
type Service struct {
	repo     MediaRepo
	resolver Resolver

	mu         sync.Mutex
	countdowns map[uuid.UUID]*playback.Countdown // keyed by streamer id
	grace      time.Duration

	stop chan struct{}
	once sync.Once
}

func NewService(repo MediaRepo, resolver Resolver) *Service {
	return &Service{
		repo:       repo,
		resolver:   resolver,
		countdowns: make(map[uuid.UUID]*playback.Countdown),
		grace:      playback.DefaultGrace,
		stop:       make(chan struct{}),
	}
}

// Submit validates a URL against the whitelist and enqueues it as PENDING.
// YouTube URLs pass through unchanged; for other platforms the playable URL
// is extracted at promotion time because upstream URLs are short-lived.
func (s *Service) Submit(ctx context.Context, url, requestedBy string, streamerID uuid.UUID) (*models.MediaRequest, error) {
	if !s.resolver.IsSupported(url) {
		return nil, ErrUnsupportedSource
	}
	if err := s.resolver.Validate(ctx, url); err != nil {
		if errors.Is(err, resolver.ErrUpstreamError) {
			// the platform could not be reached; the URL itself may be fine
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		return nil, ErrUnsupportedSource
	}

	now := time.Now()
	m := &models.MediaRequest{
		ID:           uuid.New(),
		StreamerID:   streamerID,
		OriginalURL:  url,
		ProcessedURL: url, // placeholder until promotion for non-YouTube
		MediaKind:    s.resolver.Kind(url),
		RequestedBy:  requestedBy,
		Status:       models.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(m); err != nil {
		if errors.Is(err, repository.ErrStreamerNotFound) {
			return nil, ErrStreamerNotFound
		}
		return nil, err
	}
	return m, nil
}

// Current returns the streamer's now-playing item, promoting the oldest
// PENDING one if nothing is playing. For non-YouTube items it extracts a
// fresh playable URL; on extraction failure it returns the item together
// with an *ExtractionError, leaving it PLAYING, and arms the auto-skip
// countdown.
func (s *Service) Current(ctx context.Context, streamerID uuid.UUID) (*models.CurrentMedia, error) {
	m, err := s.resolveCurrent(streamerID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		s.observePlayable(streamerID) // nothing stuck if nothing playing
		return nil, nil
	}

	cur := &models.CurrentMedia{
		ID:           m.ID,
		OriginalURL:  m.OriginalURL,
		ProcessedURL: m.ProcessedURL,
		MediaKind:    m.MediaKind,
		RequestedBy:  m.RequestedBy,
		Status:       m.Status,
	}

	if m.MediaKind == models.KindYouTube {
		s.observePlayable(streamerID)
		return cur, nil
	}

	ectx, cancel := context.WithTimeout(ctx, extractionTimeout)
	defer cancel()
	playable, err := s.resolver.Extract(ectx, m.OriginalURL)
	if err != nil {
		s.observeFailure(streamerID, m.ID)
		return cur, &ExtractionError{RequestID: m.ID, Reason: err}
	}

	s.observePlayable(streamerID)
	cur.ProcessedURL = playable
	return cur, nil
}

// resolveCurrent finds the PLAYING item or promotes the next PENDING one.
// A promotion that loses the race re-reads the winner; the retry bound
// protects against pathological interleavings, not ordinary contention.
func (s *Service) resolveCurrent(streamerID uuid.UUID) (*models.MediaRequest, error) {
	for attempt := 0; attempt < promoteAttempts; attempt++ {
		playing, err := s.repo.GetPlaying(streamerID)
		if err == nil {
			return playing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		promoted, err := s.repo.PromoteNext(streamerID)
		if err == nil {
			return promoted, nil
		}
		if errors.Is(err, repository.ErrConflict) {
			continue // lost the race; re-read the winner
		}
		if errors.Is(err, repository.ErrNotFound) {
			// no PENDING row, or a PLAYING row appeared between reads
			playing, err := s.repo.GetPlaying(streamerID)
			if err == nil {
				return playing, nil
			}
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil // queue is empty
			}
			return nil, err
		}
		return nil, err
	}
	// every attempt lost a race; report empty-handed rather than failing
	return nil, nil
}

// Complete removes a finished item. Normal end-of-playback transition.
func (s *Service) Complete(id, streamerID uuid.UUID) error {
	m, err := s.ownedRequest(id, streamerID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(m.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if m.Status == models.StatusPlaying {
		s.observePlayable(streamerID)
	}
	return nil
}

// Skip removes an item from the queue. A PENDING item is deleted outright;
// a PLAYING item is marked PLAYED so a player mid-poll can observe the
// status flip and stop before the row is reaped.
func (s *Service) Skip(id, streamerID uuid.UUID) error {
	m, err := s.ownedRequest(id, streamerID)
	if err != nil {
		return err
	}

	if m.Status == models.StatusPlaying {
		err = s.repo.MarkPlayed(m.ID)
	} else {
		err = s.repo.Delete(m.ID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if m.Status == models.StatusPlaying {
		s.observePlayable(streamerID)
	}
	return nil
}

// Clear removes all PENDING items, leaving the PLAYING one untouched so
// ongoing playback is not interrupted.
func (s *Service) Clear(streamerID uuid.UUID) error {
	return s.repo.DeletePending(streamerID)
}

// List returns PENDING and PLAYING items in creation order.
func (s *Service) List(streamerID uuid.UUID) ([]models.MediaRequest, error) {
	return s.repo.ListActive(streamerID)
}

func (s *Service) ownedRequest(id, streamerID uuid.UUID) (*models.MediaRequest, error) {
	m, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if m.StreamerID != streamerID {
		return nil, ErrUnauthorized
	}
	return m, nil
}

// Auto-skip countdown

func (s *Service) countdown(streamerID uuid.UUID) *playback.Countdown {
	c, ok := s.countdowns[streamerID]
	if !ok {
		c = playback.NewCountdown(s.grace)
		s.countdowns[streamerID] = c
	}
	return c
}

func (s *Service) observeFailure(streamerID, requestID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countdown(streamerID).ObserveFailure(requestID, time.Now())
}

func (s *Service) observePlayable(streamerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.countdowns[streamerID]; ok {
		c.ObservePlayable()
	}
}

// CountdownRemaining reports the seconds left before the streamer's stuck
// item is auto-skipped; zero when playback is healthy.
func (s *Service) CountdownRemaining(streamerID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.countdowns[streamerID]; ok {
		return c.Remaining(time.Now())
	}
	return 0
}

// sweep fires expired countdowns and reaps PLAYED rows.
func (s *Service) sweep(now time.Time) {
	type expiry struct {
		streamerID uuid.UUID
		requestID  uuid.UUID
	}
	var expired []expiry

	s.mu.Lock()
	for streamerID, c := range s.countdowns {
		if id, fired := c.Expire(now); fired {
			expired = append(expired, expiry{streamerID, id})
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		if err := s.Skip(e.requestID, e.streamerID); err != nil && !errors.Is(err, ErrNotFound) {
			log.Printf("auto-skip of request %s failed: %v", e.requestID, err)
		} else {
			log.Printf("auto-skipped unplayable request %s", e.requestID)
		}
	}

	if _, err := s.repo.ReapPlayed(now.Add(-playedRetention)); err != nil {
		log.Printf("failed to reap played requests: %v", err)
	}
}

// StartSweeper runs the periodic countdown/reap sweep until Stop.
func (s *Service) StartSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				s.sweep(now)
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop terminates the background sweeper.
func (s *Service) Stop() {
	s.once.Do(func() { close(s.stop) })
}
