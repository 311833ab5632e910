package internal

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want Kind
	}{
		{"https://www.youtube.com/watch?v=xyz", KindSingleYouTube},
		{"https://youtu.be/xyz", KindSingleYouTube},
		{"HTTPS://WWW.YOUTUBE.COM/WATCH?V=XYZ", KindSingleYouTube},
		{"https://www.youtube.com/playlist?list=abc", KindPlaylistYouTube},
		{"https://www.youtube.com/watch?v=xyz&list=abc", KindPlaylistYouTube},
		{"https://music.youtube.com/playlist?LIST=abc", KindPlaylistYouTube},
		{"https://soundcloud.com/artist/track", KindSingleSoundCloud},
		{"https://soundcloud.com/artist/sets/album", KindPlaylistSoundCloud},
		{"https://SoundCloud.com/artist/SETS/album", KindPlaylistSoundCloud},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := Classify(tt.url)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassifyInvalid(t *testing.T) {
	for _, url := range []string{
		"",
		"not-a-url",
		"https://vimeo.com/12345",
		"https://example.com/playlist?list=abc",
		"https://example.com/sets/abc",
	} {
		if _, err := Classify(url); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("%q: expected ErrInvalidURL, got %v", url, err)
		}
	}
}

func TestKindProvider(t *testing.T) {
	tests := []struct {
		kind     Kind
		provider Provider
		playlist bool
	}{
		{KindSingleYouTube, ProviderYouTube, false},
		{KindPlaylistYouTube, ProviderYouTube, true},
		{KindSingleSoundCloud, ProviderSoundCloud, false},
		{KindPlaylistSoundCloud, ProviderSoundCloud, true},
	}

	for _, tt := range tests {
		if got := tt.kind.Provider(); got != tt.provider {
			t.Errorf("%s: expected provider %s, got %s", tt.kind, tt.provider, got)
		}
		if got := tt.kind.IsPlaylist(); got != tt.playlist {
			t.Errorf("%s: expected playlist %v, got %v", tt.kind, tt.playlist, got)
		}
	}
}

func TestNewDownloadRequest(t *testing.T) {
	req, err := NewDownloadRequest("  https://soundcloud.com/a/sets/b \n")
	if err != nil {
		t.Fatal(err)
	}
	if req.URL != "https://soundcloud.com/a/sets/b" {
		t.Errorf("url not trimmed: %q", req.URL)
	}
	if req.Kind != KindPlaylistSoundCloud {
		t.Errorf("unexpected kind %s", req.Kind)
	}
	if req.Id == "" {
		t.Error("expected a request id")
	}

	if _, err := NewDownloadRequest("not-a-url"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", err)
	}
}
