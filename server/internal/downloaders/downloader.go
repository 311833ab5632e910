package downloaders

import (
	"context"
	"time"

	"github.com/marcopiovanello/songify/server/internal"
	"github.com/marcopiovanello/songify/server/internal/metadata"
	"github.com/marcopiovanello/songify/server/internal/pipes"
)

// StreamOpener opens the remote byte stream of a track. Every
// metadata.Provider is one.
type StreamOpener interface {
	OpenStream(ctx context.Context, t internal.Track) (*metadata.Stream, error)
}

// Reporter receives the raw progress signals of a single-track job.
type Reporter interface {
	// Bytes is the amount of the source stream read so far out of total.
	Bytes(received, total int64)
	// Elapsed is chunk seconds of newly transcoded audio out of total.
	Elapsed(chunk, total float64)
}

// TranscoderFunc builds the transcoding stage of a job. onProgress receives
// the amount of audio encoded so far and may be ignored.
type TranscoderFunc func(bitrateKbps int, onProgress func(time.Duration)) pipes.Pipe

// FFmpeg is the default TranscoderFunc.
func FFmpeg(path string) TranscoderFunc {
	return func(bitrateKbps int, onProgress func(time.Duration)) pipes.Pipe {
		return &pipes.Transcoder{
			Path:        path,
			BitrateKbps: bitrateKbps,
			OnProgress:  onProgress,
		}
	}
}

// Result is the terminal outcome of a job. A failed job carries a human
// readable reason and never an error: failures stay with the job.
type Result struct {
	Track   internal.Track
	Path    string
	Size    int64
	Outcome internal.Outcome
	Reason  string
}

func (r Result) Failed() bool { return r.Outcome == internal.OutcomeFailed }

func failed(t internal.Track, path string, err error) Result {
	return Result{
		Track:   t,
		Path:    path,
		Outcome: internal.OutcomeFailed,
		Reason:  err.Error(),
	}
}
