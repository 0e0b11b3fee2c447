package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestMediaRequest_Validate(t *testing.T) {
	streamerID := uuid.New()

	tests := []struct {
		name    string
		req     MediaRequest
		wantErr bool
	}{
		{
			name: "Valid request",
			req: MediaRequest{
				OriginalURL: "https://youtube.com/watch?v=abc",
				RequestedBy: "viewer1",
				StreamerID:  streamerID,
			},
			wantErr: false,
		},
		{
			name: "Empty url",
			req: MediaRequest{
				RequestedBy: "viewer1",
				StreamerID:  streamerID,
			},
			wantErr: true,
		},
		{
			name: "Not a url",
			req: MediaRequest{
				OriginalURL: "not a url",
				RequestedBy: "viewer1",
				StreamerID:  streamerID,
			},
			wantErr: true,
		},
		{
			name: "Missing requester",
			req: MediaRequest{
				OriginalURL: "https://youtube.com/watch?v=abc",
				StreamerID:  streamerID,
			},
			wantErr: true,
		},
		{
			name: "Missing streamer",
			req: MediaRequest{
				OriginalURL: "https://youtube.com/watch?v=abc",
				RequestedBy: "viewer1",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("MediaRequest.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStreamer_Validate(t *testing.T) {
	tests := []struct {
		name    string
		s       Streamer
		wantErr bool
	}{
		{name: "Valid", s: Streamer{Email: "a@b.com", Username: "caster", Volume: 0.5}, wantErr: false},
		{name: "Bad email", s: Streamer{Email: "nope", Username: "caster"}, wantErr: true},
		{name: "Empty username", s: Streamer{Email: "a@b.com"}, wantErr: true},
		{name: "Volume out of range", s: Streamer{Email: "a@b.com", Username: "caster", Volume: 1.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Streamer.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStreamer_Channel(t *testing.T) {
	s := Streamer{Username: "SomeCaster"}
	if got := s.Channel(); got != "somecaster" {
		t.Errorf("Channel() = %q, want %q", got, "somecaster")
	}
}
