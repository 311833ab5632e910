package downloaders

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/marcopiovanello/songify/server/internal"
	"github.com/marcopiovanello/songify/server/internal/pipes"
)

// Runner downloads a track and transcodes it to an MP3 file in the batch
// destination directory:
//
//	remote stream -> meter -> transcoder -> file
type Runner struct {
	Opener      StreamOpener
	Paths       *Paths
	BitrateKbps int
	Transcoder  TranscoderFunc
}

// Run never returns an error, a failure is reported in the Result and the
// partially written file is removed.
//
// rep is nil for playlist jobs. Otherwise progress is byte based when the
// stream size is known, duration based when only the track duration is.
func (r *Runner) Run(ctx context.Context, t internal.Track, rep Reporter) Result {
	path := r.Paths.Claim(t.Title)

	log := slog.With(
		slog.String("title", t.Title),
		slog.String("source", t.SourceURL),
	)

	stream, err := r.Opener.OpenStream(ctx, t)
	if err != nil {
		log.Error("failed to open stream", slog.Any("err", err))
		return failed(t, path, fmt.Errorf("failed to open stream: %w", err))
	}
	defer stream.Body.Close()

	var (
		meter      = &pipes.Meter{}
		onProgress func(time.Duration)
	)

	if rep != nil {
		switch total, known := t.DurationSeconds(); {
		case stream.Size > 0:
			meter.OnRead = func(read int64) { rep.Bytes(read, stream.Size) }
		case known:
			var last time.Duration
			onProgress = func(encoded time.Duration) {
				if encoded <= last {
					return
				}
				chunk := encoded - last
				last = encoded
				rep.Elapsed(chunk.Seconds(), total)
			}
		}
	}

	newTranscoder := r.Transcoder
	if newTranscoder == nil {
		newTranscoder = FFmpeg("")
	}

	writer := &pipes.FileWriter{Path: path}

	log.Info("transcoding", slog.String("path", path), slog.Int("bitrate", r.BitrateKbps))

	err = pipes.Run(ctx, stream.Body, meter, newTranscoder(r.BitrateKbps, onProgress), writer)
	if err != nil {
		log.Error("transcode failed", slog.String("path", path), slog.Any("err", err))

		if rerr := os.Remove(path); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			log.Warn("failed to remove partial file", slog.String("path", path), slog.Any("err", rerr))
		}
		return failed(t, path, err)
	}

	return Result{
		Track:   t,
		Path:    path,
		Size:    writer.Written(),
		Outcome: internal.OutcomeCompleted,
	}
}
