package models

// Position is the player-reported playback position register value.
type Position struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Title       string  `json:"title,omitempty"`
}

type ReportPositionRequest struct {
	Token       string  `json:"token" binding:"required"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Title       string  `json:"title"`
}

type SeekRequest struct {
	Time float64 `json:"time" binding:"min=0"`
}

type SetStateRequest struct {
	Token  string `json:"token" binding:"required"`
	Paused *bool  `json:"paused" binding:"required"`
}

type SetVolumeRequest struct {
	Volume *float64 `json:"volume" binding:"required,min=0,max=1"`
}

// PlaybackState is the durable pause/volume pair on the streamer session.
type PlaybackState struct {
	Paused bool    `json:"paused"`
	Volume float64 `json:"volume"`
}
