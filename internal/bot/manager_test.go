package bot

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/cliprelay/backend/internal/models"
)

type fakeQueue struct {
	submitted []string
	skipped   []uuid.UUID
	playing   *models.CurrentMedia
}

func (f *fakeQueue) Submit(ctx context.Context, url, requestedBy string, streamerID uuid.UUID) (*models.MediaRequest, error) {
	f.submitted = append(f.submitted, url)
	return &models.MediaRequest{ID: uuid.New(), OriginalURL: url, RequestedBy: requestedBy}, nil
}

func (f *fakeQueue) Current(ctx context.Context, streamerID uuid.UUID) (*models.CurrentMedia, error) {
	return f.playing, nil
}

func (f *fakeQueue) Skip(id, streamerID uuid.UUID) error {
	f.skipped = append(f.skipped, id)
	return nil
}

type fakeStreamers struct {
	paused *bool
	volume *float64
}

func (f *fakeStreamers) SetPaused(id uuid.UUID, paused bool) error {
	f.paused = &paused
	return nil
}

func (f *fakeStreamers) SetVolume(id uuid.UUID, volume float64) error {
	f.volume = &volume
	return nil
}

type denyAllLimiter struct{}

func (denyAllLimiter) AllowAction(key string, rate, burst int) (bool, error) { return false, nil }

func privMsg(text string, tags map[string]string) *Message {
	return &Message{
		Tags:    tags,
		Nick:    "viewer1",
		Command: "PRIVMSG",
		Params:  []string{"#streamergal"},
		Text:    text,
	}
}

func TestHandleMessage_SubmitsRequest(t *testing.T) {
	q := &fakeQueue{}
	mg := NewManager(q, &fakeStreamers{}, nil)
	streamerID := uuid.New()

	mg.handleMessage(streamerID, privMsg("!mr https://youtube.com/watch?v=abc", nil))

	if len(q.submitted) != 1 || q.submitted[0] != "https://youtube.com/watch?v=abc" {
		t.Errorf("Expected one submission, got %v", q.submitted)
	}
}

func TestHandleMessage_SubmitRateLimited(t *testing.T) {
	q := &fakeQueue{}
	mg := NewManager(q, &fakeStreamers{}, denyAllLimiter{})

	mg.handleMessage(uuid.New(), privMsg("!mr https://youtube.com/watch?v=abc", nil))

	if len(q.submitted) != 0 {
		t.Errorf("Expected throttled submission, got %v", q.submitted)
	}
}

func TestHandleMessage_OperatorCommandsRequirePrivilege(t *testing.T) {
	q := &fakeQueue{playing: &models.CurrentMedia{ID: uuid.New()}}
	st := &fakeStreamers{}
	mg := NewManager(q, st, nil)
	streamerID := uuid.New()

	// plain viewer: all operator commands ignored
	for _, text := range []string{"!mrpause", "!mrplay", "!mrskip", "!mrvolume 50"} {
		mg.handleMessage(streamerID, privMsg(text, map[string]string{"mod": "0"}))
	}
	if st.paused != nil || st.volume != nil || len(q.skipped) != 0 {
		t.Fatal("Expected unprivileged commands to be ignored")
	}

	// moderator
	modTags := map[string]string{"mod": "1"}
	mg.handleMessage(streamerID, privMsg("!mrpause", modTags))
	if st.paused == nil || !*st.paused {
		t.Error("Expected pause set")
	}
	mg.handleMessage(streamerID, privMsg("!mrplay", modTags))
	if st.paused == nil || *st.paused {
		t.Error("Expected pause cleared")
	}
	mg.handleMessage(streamerID, privMsg("!mrvolume 30", modTags))
	if st.volume == nil || *st.volume != 0.3 {
		t.Errorf("Expected volume 0.3, got %v", st.volume)
	}
	mg.handleMessage(streamerID, privMsg("!mrskip", modTags))
	if len(q.skipped) != 1 || q.skipped[0] != q.playing.ID {
		t.Errorf("Expected the playing item skipped, got %v", q.skipped)
	}
}

func TestHandleMessage_SkipWithEmptyQueue(t *testing.T) {
	q := &fakeQueue{}
	mg := NewManager(q, &fakeStreamers{}, nil)

	mg.handleMessage(uuid.New(), privMsg("!mrskip", map[string]string{"mod": "1"}))

	if len(q.skipped) != 0 {
		t.Errorf("Expected no skip with empty queue, got %v", q.skipped)
	}
}

func TestHandleMessage_InvalidVolumeIgnored(t *testing.T) {
	st := &fakeStreamers{}
	mg := NewManager(&fakeQueue{}, st, nil)

	mg.handleMessage(uuid.New(), privMsg("!mrvolume 9000", map[string]string{"mod": "1"}))

	if st.volume != nil {
		t.Errorf("Expected out-of-range volume ignored, got %v", *st.volume)
	}
}

func TestConnectDisconnect(t *testing.T) {
	mg := NewManager(&fakeQueue{}, &fakeStreamers{}, nil)
	s := &models.Streamer{ID: uuid.New(), Username: "StreamerGal"}

	if mg.Connected(s.ID) {
		t.Fatal("Expected no bot before connect")
	}

	mg.Connect(s)
	if !mg.Connected(s.ID) {
		t.Fatal("Expected bot running after connect")
	}

	// second connect is a no-op
	mg.Connect(s)

	mg.Disconnect(s.ID)
	if mg.Connected(s.ID) {
		t.Fatal("Expected bot stopped after disconnect")
	}
}
