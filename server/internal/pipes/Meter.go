package pipes

import (
	"context"
	"io"
)

// Meter passes the stream through unchanged and reports the running byte
// count after every read.
type Meter struct {
	OnRead func(read int64)
}

func (m *Meter) Name() string { return "meter" }

func (m *Meter) Connect(ctx context.Context, r io.Reader) (io.Reader, error) {
	return &meteredReader{r: r, onRead: m.OnRead}, nil
}

func (m *Meter) Wait() error { return nil }

type meteredReader struct {
	r      io.Reader
	read   int64
	onRead func(int64)
}

func (m *meteredReader) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	if n > 0 {
		m.read += int64(n)
		if m.onRead != nil {
			m.onRead(m.read)
		}
	}
	return n, err
}
