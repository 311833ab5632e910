package pipes

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var progressLine = regexp.MustCompile(`^[a-z0-9_]+=`)

// Transcoder re-encodes whatever audio/video stream it is connected to into
// MP3 at BitrateKbps using ffmpeg. OnProgress receives the amount of audio
// encoded so far.
type Transcoder struct {
	Path        string
	BitrateKbps int
	OnProgress  func(encoded time.Duration)

	cmd     *exec.Cmd
	copyErr chan error
	logDone chan struct{}
	lastErr []string
}

func (t *Transcoder) Name() string { return "ffmpeg-transcoder" }

// Available reports whether the ffmpeg executable can be found.
func (t *Transcoder) Available() bool {
	_, err := exec.LookPath(t.binary())
	return err == nil
}

func (t *Transcoder) binary() string {
	if t.Path == "" {
		return "ffmpeg"
	}
	return t.Path
}

func (t *Transcoder) args() []string {
	bitrate := t.BitrateKbps
	if bitrate <= 0 {
		bitrate = 192
	}
	return []string{
		"-hide_banner",
		"-nostats",
		"-loglevel", "error",
		"-progress", "pipe:2",
		"-i", "pipe:0",
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", bitrate),
		"-f", "mp3",
		"pipe:1",
	}
}

func (t *Transcoder) Connect(ctx context.Context, r io.Reader) (io.Reader, error) {
	cmd := exec.CommandContext(ctx, t.binary(), t.args()...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	t.cmd = cmd
	t.copyErr = make(chan error, 1)
	t.logDone = make(chan struct{})

	go t.consumeStderr(stderr)

	go func() {
		defer stdin.Close()
		_, err := io.Copy(stdin, r)
		if err != nil && !errors.Is(err, io.EOF) {
			slog.Error("transcoder stdin error", slog.Any("err", err))
		}
		t.copyErr <- err
	}()

	return stdout, nil
}

// Wait must be called once the stdout reader returned by Connect has been
// drained.
func (t *Transcoder) Wait() error {
	if t.cmd == nil {
		return nil
	}

	<-t.logDone
	copyErr := <-t.copyErr

	if err := t.cmd.Wait(); err != nil {
		if len(t.lastErr) > 0 {
			err = fmt.Errorf("%w: %s", err, strings.Join(t.lastErr, "; "))
		}
		return errors.Join(err, copyErr)
	}

	// ffmpeg happily finishes a truncated input
	if copyErr != nil {
		return fmt.Errorf("reading source stream: %w", copyErr)
	}
	return nil
}

func (t *Transcoder) consumeStderr(r io.Reader) {
	defer close(t.logDone)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if encoded, ok := parseProgress(line); ok {
			if t.OnProgress != nil {
				t.OnProgress(encoded)
			}
			continue
		}
		if progressLine.MatchString(line) {
			continue
		}

		slog.Warn("ffmpeg transcoder", slog.String("log", line))
		t.lastErr = append(t.lastErr, line)
		if len(t.lastErr) > 5 {
			t.lastErr = t.lastErr[1:]
		}
	}
}

// parseProgress extracts the encoded position from an ffmpeg -progress line.
func parseProgress(line string) (time.Duration, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok || key != "out_time_us" {
		return 0, false
	}

	us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return time.Duration(us) * time.Microsecond, true
}
