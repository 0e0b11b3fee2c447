package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cliprelay/backend/internal/models"
)

var (
	// ErrUnsupportedSource means the URL is not on the service whitelist.
	ErrUnsupportedSource = errors.New("video source not supported")
	// ErrUnresolvable means the platform knows the URL but cannot serve it
	// (removed, private, or redirected to a landing page).
	ErrUnresolvable = errors.New("video could not be resolved")
	// ErrUpstreamError means the platform API call itself failed.
	ErrUpstreamError = errors.New("upstream platform error")
)

// Resolver validates submitted URLs against the service whitelist and
// extracts directly playable media URLs on demand. Extraction results are
// short-lived signed URLs and must not be cached across plays.
type Resolver struct {
	client *http.Client

	// API endpoints, overridable in tests
	StreamableAPI string
	TwitchAPI     string
	TikTokAPI     string

	TwitchClientID string
	TwitchToken    string
}

func New(twitchClientID, twitchToken string) *Resolver {
	return &Resolver{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		StreamableAPI:  "https://api.streamable.com",
		TwitchAPI:      "https://api.twitch.tv",
		TikTokAPI:      "https://www.tikwm.com",
		TwitchClientID: twitchClientID,
		TwitchToken:    twitchToken,
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// IsYouTubeURL reports whether the URL is a YouTube watch/shorts link
func IsYouTubeURL(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "youtu.be" {
		return true
	}
	return host == "youtube.com" && (strings.Contains(rawURL, "/watch") || strings.Contains(rawURL, "/shorts"))
}

// IsStreamableURL reports whether the URL points at streamable.com
func IsStreamableURL(rawURL string) bool {
	return hostOf(rawURL) == "streamable.com"
}

// IsTwitchClipURL reports whether the URL points at a Twitch clip
func IsTwitchClipURL(rawURL string) bool {
	host := hostOf(rawURL)
	return host == "clips.twitch.tv" || (host == "twitch.tv" && strings.Contains(rawURL, "/clip/"))
}

// IsTikTokURL reports whether the URL points at a TikTok video, including
// vm.tiktok.com shortened links (validated separately, see Validate)
func IsTikTokURL(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "vm.tiktok.com" {
		return true
	}
	return host == "tiktok.com" && (strings.Contains(rawURL, "/video/") || strings.Contains(rawURL, "/photo/"))
}

// IsNuulsURL reports whether the URL points at nuuls direct media hosting
func IsNuulsURL(rawURL string) bool {
	return hostOf(rawURL) == "i.nuuls.com"
}

// IsSupported checks the URL against the full service whitelist
func (r *Resolver) IsSupported(rawURL string) bool {
	return IsYouTubeURL(rawURL) ||
		IsStreamableURL(rawURL) ||
		IsTwitchClipURL(rawURL) ||
		IsTikTokURL(rawURL) ||
		IsNuulsURL(rawURL)
}

// Kind classifies a whitelisted URL by how the player should handle it
func (r *Resolver) Kind(rawURL string) models.MediaKind {
	if IsYouTubeURL(rawURL) {
		return models.KindYouTube
	}
	return models.KindDirect
}

var tiktokVideoPath = regexp.MustCompile(`/(?:video|photo)/(\d+)`)

const maxRedirectHops = 5

// Validate performs platform-specific submission-time checks. TikTok share
// links redirect through vm.tiktok.com; a link that resolves to the explore
// or landing page rather than a concrete /video/<id> path is rejected here
// instead of failing at play time.
func (r *Resolver) Validate(ctx context.Context, rawURL string) error {
	if hostOf(rawURL) != "vm.tiktok.com" {
		return nil
	}

	client := &http.Client{
		Timeout: r.client.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirectHops {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return ErrUnresolvable
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return ErrUpstreamError
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	if !tiktokVideoPath.MatchString(final) {
		return ErrUnresolvable
	}
	return nil
}
