package pipes

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Pipe is one stage of a streaming pipeline. Connect starts the stage on top
// of r and returns the reader of its output; Wait blocks until the stage is
// done and returns its error.
type Pipe interface {
	Name() string
	Connect(ctx context.Context, r io.Reader) (io.Reader, error)
	Wait() error
}

// Run chains src through pipes and waits for all of them, last stage first.
// The last pipe is expected to be a sink such as a FileWriter.
//
// The first failing stage cancels the context handed to every stage so that
// the others do not block on a reader nobody drains.
func Run(ctx context.Context, src io.Reader, pipes ...Pipe) error {
	if len(pipes) == 0 {
		return errors.New("empty pipeline")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reader := src
	connected := make([]Pipe, 0, len(pipes))

	for _, pipe := range pipes {
		nr, err := pipe.Connect(ctx, reader)
		if err != nil {
			cancel()
			return errors.Join(
				fmt.Errorf("%s: %w", pipe.Name(), err),
				waitAll(connected, cancel),
			)
		}
		connected = append(connected, pipe)
		reader = nr
	}

	return waitAll(connected, cancel)
}

func waitAll(pipes []Pipe, cancel context.CancelFunc) error {
	var errs []error
	for i := len(pipes) - 1; i >= 0; i-- {
		if err := pipes[i].Wait(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pipes[i].Name(), err))
			cancel()
		}
	}
	return errors.Join(errs...)
}
