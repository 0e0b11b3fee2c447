package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Extract resolves a whitelisted URL into a directly playable media URL.
// Platform URLs are short-lived and signed, so this runs at promotion time,
// every time; results must not be reused across plays.
func (r *Resolver) Extract(ctx context.Context, rawURL string) (string, error) {
	switch {
	case IsYouTubeURL(rawURL):
		// the player resolves YouTube itself
		return rawURL, nil
	case IsStreamableURL(rawURL):
		return r.extractStreamable(ctx, rawURL)
	case IsTwitchClipURL(rawURL):
		return r.extractTwitchClip(ctx, rawURL)
	case IsTikTokURL(rawURL):
		return r.extractTikTok(ctx, rawURL)
	case IsNuulsURL(rawURL):
		return r.extractNuuls(ctx, rawURL)
	default:
		return "", ErrUnsupportedSource
	}
}

func (r *Resolver) getJSON(ctx context.Context, rawURL string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamError, err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return ErrUnresolvable
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUpstreamError, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamError, err)
	}
	return nil
}

type streamableFile struct {
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Bitrate int    `json:"bitrate"`
}

type streamableVideo struct {
	Files map[string]streamableFile `json:"files"`
}

func (r *Resolver) extractStreamable(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrUnresolvable
	}
	videoID := strings.Trim(u.Path, "/")
	if i := strings.LastIndex(videoID, "/"); i >= 0 {
		videoID = videoID[i+1:]
	}
	if videoID == "" {
		return "", ErrUnresolvable
	}

	var video streamableVideo
	if err := r.getJSON(ctx, r.StreamableAPI+"/videos/"+videoID, nil, &video); err != nil {
		return "", err
	}

	// prefer the main mp4 rendition, then the highest-resolution variant
	if f, ok := video.Files["mp4"]; ok && f.URL != "" {
		return f.URL, nil
	}
	best := streamableFile{}
	for _, f := range video.Files {
		if f.URL == "" {
			continue
		}
		if f.Height > best.Height || (f.Height == best.Height && f.Bitrate > best.Bitrate) {
			best = f
		}
	}
	if best.URL == "" {
		return "", ErrUnresolvable
	}
	return best.URL, nil
}

var twitchThumbPattern = regexp.MustCompile(`/([^/]+)-preview`)

type twitchClipsResponse struct {
	Data []struct {
		ThumbnailURL string `json:"thumbnail_url"`
		VideoURL     string `json:"video_url"`
	} `json:"data"`
}

func (r *Resolver) extractTwitchClip(ctx context.Context, rawURL string) (string, error) {
	var slug string
	if i := strings.Index(rawURL, "clips.twitch.tv/"); i >= 0 {
		slug = rawURL[i+len("clips.twitch.tv/"):]
	} else if i := strings.Index(rawURL, "/clip/"); i >= 0 {
		slug = rawURL[i+len("/clip/"):]
	}
	if j := strings.IndexAny(slug, "?/"); j >= 0 {
		slug = slug[:j]
	}
	if slug == "" {
		return "", ErrUnresolvable
	}

	headers := map[string]string{"Client-ID": r.TwitchClientID}
	if r.TwitchToken != "" {
		headers["Authorization"] = "Bearer " + r.TwitchToken
	}

	var clips twitchClipsResponse
	if err := r.getJSON(ctx, r.TwitchAPI+"/helix/clips?id="+url.QueryEscape(slug), headers, &clips); err != nil {
		return "", err
	}
	if len(clips.Data) == 0 {
		return "", ErrUnresolvable
	}

	// clip thumbnails and media share an asset id:
	// .../<clip-id>-preview-480x272.jpg -> .../<clip-id>.mp4
	clip := clips.Data[0]
	if m := twitchThumbPattern.FindStringSubmatch(clip.ThumbnailURL); m != nil {
		base := clip.ThumbnailURL[:strings.Index(clip.ThumbnailURL, m[1])]
		return base + m[1] + ".mp4", nil
	}
	if clip.VideoURL != "" {
		return clip.VideoURL, nil
	}
	return "", ErrUnresolvable
}

var nuulsVideoExt = regexp.MustCompile(`(?i)\.(mp4|webm|mov)$`)

// extractNuuls handles nuuls direct media hosting: the submitted URL is the
// playable URL. Links without a recognized video extension get a HEAD request
// to confirm the host serves video rather than an image.
func (r *Resolver) extractNuuls(ctx context.Context, rawURL string) (string, error) {
	if nuulsVideoExt.MatchString(rawURL) {
		return rawURL, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", ErrUnresolvable
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamError, err)
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return "", ErrUnresolvable
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUpstreamError, resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "video/") {
		return "", ErrUnresolvable
	}
	return rawURL, nil
}

type tikTokResponse struct {
	Code int `json:"code"`
	Data struct {
		Play   string `json:"play"`   // no watermark
		WMPlay string `json:"wmplay"` // watermarked
	} `json:"data"`
}

func (r *Resolver) extractTikTok(ctx context.Context, rawURL string) (string, error) {
	var resp tikTokResponse
	if err := r.getJSON(ctx, r.TikTokAPI+"/api/?url="+url.QueryEscape(rawURL), nil, &resp); err != nil {
		return "", err
	}
	if resp.Code != 0 {
		return "", ErrUnresolvable
	}
	// prefer the unwatermarked variant when both are offered
	if resp.Data.Play != "" {
		return resp.Data.Play, nil
	}
	if resp.Data.WMPlay != "" {
		return resp.Data.WMPlay, nil
	}
	return "", ErrUnresolvable
}
