package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
)

var (
	ErrInvalidIdentifier  = types.ErrInvalidIdentifier
	ErrCaptionUnavailable = types.ErrCaptionUnavailable
)

var (
	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	// bare ids without a URL must have the canonical 11-char form
	bareIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// VideoKey normalizes a YouTube URL or bare id into the video id used as the
// cache key. watch, youtu.be, shorts, embed and live forms all map to the
// same key; tracking parameters are ignored.
func VideoKey(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	if bareIDPattern.MatchString(raw) {
		return raw, nil
	}
	if !strings.ContainsAny(raw, "./") {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
	}

	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidIdentifier, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, prefix)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var id string
	switch host {
	case "youtube.com", "youtube-nocookie.com":
		switch {
		case u.Path == "/watch" || u.Path == "/watch/":
			id = u.Query().Get("v")
		case len(segments) >= 2 && isPathForm(segments[0]):
			id = segments[1]
		}
	case "youtu.be":
		if len(segments) >= 1 {
			id = segments[0]
		}
	}

	if id == "" || !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
	}
	return id, nil
}

func isPathForm(seg string) bool {
	switch seg {
	case "shorts", "embed", "live", "v":
		return true
	}
	return false
}

// DeepLink appends a seek parameter for an MM:SS timestamp to videoURL.
func DeepLink(videoURL, timestamp string) (string, error) {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	secs, err := types.ParseTimestamp(timestamp)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(videoURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, videoURL)
	}
	// drop any existing seek; other pairs keep their order
	kept := make([]string, 0, 4)
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		k, _, _ := strings.Cut(pair, "=")
		if name, err := url.QueryUnescape(k); err == nil && name == "t" {
			continue
		}
		kept = append(kept, pair)
	}
	kept = append(kept, url.Values{"t": {fmt.Sprintf("%ds", secs)}}.Encode())
	u.RawQuery = strings.Join(kept, "&")
	u.ForceQuery = false
	return u.String(), nil
}
