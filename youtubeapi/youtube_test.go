package youtubeapi

import (
	"context"
	"errors"
	"testing"
)

func TestVideoIDFromURL(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc123", "abc123"},
		{"https://youtube.com/watch?v=abc123&t=5", "abc123"},
		{"https://youtu.be/abc123", "abc123"},
		{"https://www.twitch.tv/x/clip/y", ""},
		{"not a url", ""},
		{"https://youtube.com/watch", ""},
	}
	for _, tc := range cases {
		if got := VideoIDFromURL(tc.raw); got != tc.want {
			t.Errorf("VideoIDFromURL(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestDisabledWithoutKey(t *testing.T) {
	s := New("")
	if s.Enabled() {
		t.Error("service without key must report disabled")
	}
	if _, err := s.VideoTitle(context.Background(), "abc"); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
	var nilSvc *Service
	if nilSvc.Enabled() {
		t.Error("nil service must report disabled")
	}
}
