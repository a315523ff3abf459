// Package youtubeapi wraps the YouTube Data API for the single purpose of
// resolving video titles so the queue display can show something better than
// a raw watch URL. It needs only an API key, no OAuth.
package youtubeapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// Service resolves YouTube video metadata. The zero value with an empty key
// is disabled: lookups return ErrDisabled.
type Service struct {
	APIKey string

	mu  sync.Mutex
	svc *yt.Service
}

var ErrDisabled = fmt.Errorf("youtube title lookup disabled: no API key")

func New(apiKey string) *Service { return &Service{APIKey: apiKey} }

// Enabled reports whether lookups can run.
func (s *Service) Enabled() bool { return s != nil && s.APIKey != "" }

func (s *Service) service(ctx context.Context) (*yt.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.svc != nil {
		return s.svc, nil
	}
	svc, err := yt.NewService(ctx, option.WithAPIKey(s.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	s.svc = svc
	return svc, nil
}

// VideoTitle fetches the title for a video id.
func (s *Service) VideoTitle(ctx context.Context, videoID string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	if videoID == "" {
		return "", fmt.Errorf("empty video id")
	}
	svc, err := s.service(ctx)
	if err != nil {
		return "", err
	}
	resp, err := svc.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("youtube videos.list: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return "", fmt.Errorf("video %s not found", videoID)
	}
	return resp.Items[0].Snippet.Title, nil
}

// VideoIDFromURL pulls the video id out of a canonical watch URL. Returns
// empty when the URL is not a YouTube watch link.
func VideoIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch host {
	case "youtube.com":
		return u.Query().Get("v")
	case "youtu.be":
		return strings.TrimPrefix(u.Path, "/")
	}
	return ""
}
