package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotableLogger(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "songify.log")

	l, err := NewRotableLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if _, err := l.Write([]byte("before\n")); err != nil {
		t.Fatal(err)
	}
	if err := l.Rotate(); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Write([]byte("after\n")); err != nil {
		t.Fatal(err)
	}

	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(current) != "after\n" {
		t.Errorf("unexpected current log %q", current)
	}

	matches, _ := filepath.Glob(path + ".*")
	if len(matches) != 1 {
		t.Fatalf("expected one rotated file, got %v", matches)
	}
	rotated, _ := os.ReadFile(matches[0])
	if !strings.Contains(string(rotated), "before") {
		t.Errorf("unexpected rotated log %q", rotated)
	}
}

func TestWriteAfterClose(t *testing.T) {
	l, err := NewRotableLogger(filepath.Join(t.TempDir(), "x.log"))
	if err != nil {
		t.Fatal(err)
	}
	l.Close()

	if _, err := l.Write([]byte("x")); err == nil {
		t.Error("expected an error writing to a closed logger")
	}
}
