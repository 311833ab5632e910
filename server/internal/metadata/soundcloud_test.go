package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/marcopiovanello/songify/server/internal"
)

type fakeSoundCloud struct {
	tokenHits atomic.Int32
	server    *httptest.Server
}

func newFakeSoundCloud(t *testing.T) *fakeSoundCloud {
	t.Helper()

	f := &fakeSoundCloud{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "secret-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})

	authorized := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "OAuth secret-token" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("GET /resolve", authorized(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("url") {
		case "https://soundcloud.com/artist/song":
			io.WriteString(w, `{"kind":"track","id":11,"title":"Song","permalink_url":"https://soundcloud.com/artist/song","artwork_url":"https://i1.sndcdn.com/artworks-11-large.jpg","duration":215000}`)
		case "https://soundcloud.com/artist/sets/album":
			io.WriteString(w, `{"kind":"playlist","id":99,"title":"Album","tracks":[
				{"kind":"track","id":1,"title":"One","permalink_url":"https://soundcloud.com/artist/one","duration":1000},
				{"kind":"track","id":0},
				{"kind":"track","id":2,"title":"Two","permalink_url":"https://soundcloud.com/artist/two"},
				{"kind":"track","id":3,"title":"Three","permalink_url":"https://soundcloud.com/artist/three"}]}`)
		case "https://soundcloud.com/artist/sets/empty":
			io.WriteString(w, `{"kind":"playlist","id":100,"tracks":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))

	mux.HandleFunc("GET /tracks/{id}/streams", authorized(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "11" {
			w.Write([]byte(`{}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"http_mp3_128_url": f.server.URL + "/media/11",
		})
	}))

	mux.HandleFunc("GET /media/11", authorized(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5")
		io.WriteString(w, "audio")
	}))

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeSoundCloud) client() *SoundCloud {
	return NewSoundCloud(SoundCloudOptions{
		ClientId:     "id",
		ClientSecret: "secret",
		APIURL:       f.server.URL,
		TokenURL:     f.server.URL + "/oauth/token",
	})
}

func TestSoundCloudSingle(t *testing.T) {
	f := newFakeSoundCloud(t)
	sc := f.client()
	ctx := context.Background()

	if err := sc.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	track, err := sc.FetchSingle(ctx, "https://soundcloud.com/artist/song")
	if err != nil {
		t.Fatal(err)
	}

	if track.ID != "11" || track.Title != "Song" || track.Provider != internal.ProviderSoundCloud {
		t.Errorf("unexpected track %+v", track)
	}
	if track.ThumbnailURL != "https://i1.sndcdn.com/artworks-11-t500x500.jpg" {
		t.Errorf("unexpected artwork %q", track.ThumbnailURL)
	}
	if d, ok := track.DurationSeconds(); !ok || d != 215 {
		t.Errorf("expected 215s, got %v %v", d, ok)
	}

	stream, err := sc.OpenStream(ctx, track)
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Body.Close()

	data, _ := io.ReadAll(stream.Body)
	if string(data) != "audio" || stream.Size != 5 {
		t.Errorf("unexpected stream %q size %d", data, stream.Size)
	}
}

func TestSoundCloudPlaylist(t *testing.T) {
	f := newFakeSoundCloud(t)
	sc := f.client()
	ctx := context.Background()

	if err := sc.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	tracks, err := sc.FetchPlaylist(ctx, "https://soundcloud.com/artist/sets/album")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"One", "Two", "Three"}
	if len(tracks) != len(want) {
		t.Fatalf("expected %d tracks, got %d", len(want), len(tracks))
	}
	for i, title := range want {
		if tracks[i].Title != title {
			t.Errorf("track %d: expected %q, got %q", i, title, tracks[i].Title)
		}
	}
	if _, ok := tracks[1].DurationSeconds(); ok {
		t.Error("expected unknown duration for track without one")
	}
}

func TestSoundCloudSessionReused(t *testing.T) {
	f := newFakeSoundCloud(t)
	sc := f.client()
	ctx := context.Background()

	for range 3 {
		if err := sc.Connect(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := sc.FetchSingle(ctx, "https://soundcloud.com/artist/song"); err != nil {
			t.Fatal(err)
		}
	}

	if hits := f.tokenHits.Load(); hits != 1 {
		t.Errorf("expected a single token request, got %d", hits)
	}
}

func TestSoundCloudNotConnected(t *testing.T) {
	f := newFakeSoundCloud(t)

	_, err := f.client().FetchSingle(context.Background(), "https://soundcloud.com/artist/song")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if f.tokenHits.Load() != 0 {
		t.Error("expected no token request before Connect")
	}
}

func TestSoundCloudWrongKind(t *testing.T) {
	f := newFakeSoundCloud(t)
	sc := f.client()
	ctx := context.Background()

	if err := sc.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := sc.FetchSingle(ctx, "https://soundcloud.com/artist/sets/album"); err == nil {
		t.Error("expected an error resolving a playlist as a track")
	}
	if _, err := sc.FetchSingle(ctx, "https://soundcloud.com/artist/missing"); err == nil {
		t.Error("expected an error for a missing resource")
	}
}

func TestSoundCloudNotStreamable(t *testing.T) {
	f := newFakeSoundCloud(t)
	sc := f.client()
	ctx := context.Background()

	if err := sc.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	_, err := sc.OpenStream(ctx, internal.Track{ID: "12"})
	if !errors.Is(err, ErrNotStreamable) {
		t.Errorf("expected ErrNotStreamable, got %v", err)
	}
}

func TestResolverSoundCloudEmptyPlaylist(t *testing.T) {
	f := newFakeSoundCloud(t)
	r := NewResolver(f.client())

	req, err := internal.NewDownloadRequest("https://soundcloud.com/artist/sets/empty")
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = r.Resolve(context.Background(), req)

	var fetchErr *MetadataFetchError
	if !errors.As(err, &fetchErr) || !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected an empty response fetch error, got %v", err)
	}
}
