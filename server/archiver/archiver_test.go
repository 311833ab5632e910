package archiver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marcopiovanello/songify/server/archive"
	"github.com/marcopiovanello/songify/server/internal"
	"github.com/marcopiovanello/songify/server/internal/downloaders"
)

func TestArchiveIsStoredOnClose(t *testing.T) {
	db, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	repo, err := archive.New(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}

	a := New(repo, 4)

	results := []downloaders.Result{
		{Track: internal.Track{ID: "1", Provider: internal.ProviderSoundCloud, Title: "ok"}, Path: "/m/ok.mp3", Size: 10, Outcome: internal.OutcomeCompleted},
		{Track: internal.Track{ID: "2", Provider: internal.ProviderSoundCloud, Title: "ko"}, Outcome: internal.OutcomeFailed, Reason: "boom"},
	}
	for _, r := range results {
		if err := a.Archive(context.Background(), "batch", r); err != nil {
			t.Fatal(err)
		}
	}
	a.Close()
	a.Close()

	entries, err := repo.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	byTitle := map[string]archive.Entry{}
	for _, e := range entries {
		byTitle[e.Title] = e
	}
	if e := byTitle["ko"]; e.Outcome != "failed" || e.Reason != "boom" || e.BatchId != "batch" {
		t.Errorf("unexpected failed entry %+v", e)
	}
	if e := byTitle["ok"]; e.Path != "/m/ok.mp3" || e.Size != 10 || e.Provider != "soundcloud" {
		t.Errorf("unexpected completed entry %+v", e)
	}
}

func TestArchiveAfterClose(t *testing.T) {
	db, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	repo, err := archive.New(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}

	a := New(repo, 0)
	a.Close()

	if err := a.Archive(context.Background(), "b", downloaders.Result{}); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
