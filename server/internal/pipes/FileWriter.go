package pipes

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// FileWriter is the sink of a pipeline: it copies everything it is connected
// to into Path.
type FileWriter struct {
	Path string

	written int64
	done    chan error
}

func (f *FileWriter) Name() string { return "file-writer" }

func (f *FileWriter) Connect(ctx context.Context, r io.Reader) (io.Reader, error) {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return nil, err
	}

	file, err := os.Create(f.Path)
	if err != nil {
		return nil, err
	}

	f.done = make(chan error, 1)

	go func() {
		defer close(f.done)

		n, err := io.Copy(file, r)
		f.written = n

		if cerr := file.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			slog.Error("file writer error", slog.String("path", f.Path), slog.Any("err", err))
		}
		f.done <- err
	}()

	return nil, nil
}

func (f *FileWriter) Wait() error {
	if f.done == nil {
		return nil
	}
	err := <-f.done

	if err == nil {
		slog.Info("file written",
			slog.String("path", f.Path),
			slog.String("size", humanize.Bytes(uint64(f.written))),
		)
	}
	return err
}

// Written is the number of bytes stored, valid after Wait.
func (f *FileWriter) Written() int64 { return f.written }
