package bot

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cliprelay/backend/internal/models"
	"github.com/cliprelay/backend/internal/queue"
)

const (
	// per-viewer submission budget, enforced via the shared limiter
	submitRate  = 1 // tokens per second
	submitBurst = 3

	commandTimeout = 10 * time.Second
)

// QueueService is the slice of the queue service the bot drives.
type QueueService interface {
	Submit(ctx context.Context, url, requestedBy string, streamerID uuid.UUID) (*models.MediaRequest, error)
	Current(ctx context.Context, streamerID uuid.UUID) (*models.CurrentMedia, error)
	Skip(id, streamerID uuid.UUID) error
}

// StreamerStore is the slice of the streamer repository the bot drives.
type StreamerStore interface {
	SetPaused(id uuid.UUID, paused bool) error
	SetVolume(id uuid.UUID, volume float64) error
}

// ActionLimiter throttles chat submissions per viewer. Backed by Redis so
// the budget holds across instances; a nil limiter disables throttling.
type ActionLimiter interface {
	AllowAction(key string, rate int, burst int) (bool, error)
}

// Manager runs at most one chat bot per streamer.
type Manager struct {
	queue     QueueService
	streamers StreamerStore
	limiter   ActionLimiter

	mu   sync.Mutex
	bots map[uuid.UUID]*Client
}

func NewManager(q QueueService, streamers StreamerStore, limiter ActionLimiter) *Manager {
	return &Manager{
		queue:     q,
		streamers: streamers,
		limiter:   limiter,
		bots:      make(map[uuid.UUID]*Client),
	}
}

// Connect starts a bot in the streamer's channel. Connecting again while a
// bot is running is a no-op.
func (mg *Manager) Connect(s *models.Streamer) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	if _, running := mg.bots[s.ID]; running {
		return
	}

	streamerID := s.ID
	client := NewClient(s.Channel(), func(m *Message) {
		mg.handleMessage(streamerID, m)
	})
	mg.bots[streamerID] = client
	go client.Run()
}

// Disconnect stops the streamer's bot if one is running.
func (mg *Manager) Disconnect(streamerID uuid.UUID) {
	mg.mu.Lock()
	client, ok := mg.bots[streamerID]
	if ok {
		delete(mg.bots, streamerID)
	}
	mg.mu.Unlock()

	if ok {
		client.Stop()
	}
}

// Connected reports whether a bot is running for the streamer.
func (mg *Manager) Connected(streamerID uuid.UUID) bool {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	_, ok := mg.bots[streamerID]
	return ok
}

// StopAll disconnects every bot. Used at shutdown.
func (mg *Manager) StopAll() {
	mg.mu.Lock()
	bots := mg.bots
	mg.bots = make(map[uuid.UUID]*Client)
	mg.mu.Unlock()

	for _, c := range bots {
		c.Stop()
	}
}

func (mg *Manager) handleMessage(streamerID uuid.UUID, m *Message) {
	cmd, ok := ParseCommand(m.Text)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if cmd.Name == CmdRequest {
		mg.handleRequest(ctx, streamerID, m, cmd.Arg)
		return
	}

	// everything beyond submission is operator-only
	if !IsPrivileged(m.Tags) {
		return
	}

	var err error
	switch cmd.Name {
	case CmdPause:
		err = mg.streamers.SetPaused(streamerID, true)
	case CmdPlay:
		err = mg.streamers.SetPaused(streamerID, false)
	case CmdSkip:
		err = mg.skipCurrent(ctx, streamerID)
	case CmdVolume:
		vol, valid := ParseVolume(cmd.Arg)
		if !valid {
			return
		}
		err = mg.streamers.SetVolume(streamerID, vol)
	}
	if err != nil {
		log.Printf("Chat bot [%s]: !%s failed: %v", m.Channel(), cmd.Name, err)
	}
}

func (mg *Manager) handleRequest(ctx context.Context, streamerID uuid.UUID, m *Message, url string) {
	if url == "" {
		return
	}

	if mg.limiter != nil {
		allowed, err := mg.limiter.AllowAction("chat:submit:"+m.Channel()+":"+m.Nick, submitRate, submitBurst)
		if err == nil && !allowed {
			return
		}
	}

	_, err := mg.queue.Submit(ctx, url, DisplayName(m), streamerID)
	if err != nil {
		if errors.Is(err, queue.ErrUnsupportedSource) {
			return // unsupported links are just ignored in chat
		}
		log.Printf("Chat bot [%s]: submit failed: %v", m.Channel(), err)
	}
}

// skipCurrent skips whatever is playing now. A current item that failed
// extraction still comes back alongside the error, so it can be skipped too.
func (mg *Manager) skipCurrent(ctx context.Context, streamerID uuid.UUID) error {
	cur, err := mg.queue.Current(ctx, streamerID)
	if cur == nil {
		var exErr *queue.ExtractionError
		if err != nil && !errors.As(err, &exErr) {
			return err
		}
		return nil // nothing playing
	}
	return mg.queue.Skip(cur.ID, streamerID)
}
