package rpc

import (
	"log/slog"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/marcopiovanello/songify/server/batch"
	"github.com/marcopiovanello/songify/server/internal"
)

// EventTopic is the bus topic every batch event is published on.
const EventTopic = "batch:event"

const clientBuffer = 256

// Service owns the engine on behalf of every transport: it starts and
// cancels batches and fans their events out to the listeners.
type Service struct {
	engine *batch.Engine
	bus    EventBus.Bus

	mu      sync.RWMutex
	clients map[*listener]struct{}
}

type listener struct {
	ch   chan internal.ProgressEvent
	once sync.Once
}

func (l *listener) close() { l.once.Do(func() { close(l.ch) }) }

func (s *Service) Start(url string) (*batch.Handle, error) {
	h, err := s.engine.StartBatch(url)
	if err != nil {
		return nil, err
	}

	go s.forward(h)
	return h, nil
}

func (s *Service) Cancel() { s.engine.CancelBatch() }

func (s *Service) Current() (internal.BatchSnapshot, bool) { return s.engine.Current() }

// Listen registers a listener receiving every event published from now on.
// The returned function unregisters it and closes the channel. A listener
// that falls behind by more than its buffer is disconnected the same way,
// so it never misses an event without noticing.
func (s *Service) Listen() (<-chan internal.ProgressEvent, func()) {
	l := &listener{ch: make(chan internal.ProgressEvent, clientBuffer)}

	s.mu.Lock()
	s.clients[l] = struct{}{}
	s.mu.Unlock()

	return l.ch, func() { s.remove(l) }
}

func (s *Service) remove(l *listener) {
	s.mu.Lock()
	delete(s.clients, l)
	s.mu.Unlock()

	// no broadcast holds the read lock on a deleted listener
	l.close()
}

// forward drains the batch events, the engine stalls on an undrained batch.
func (s *Service) forward(h *batch.Handle) {
	for e := range h.Events {
		s.bus.Publish(EventTopic, e)
	}
}

func (s *Service) broadcast(e internal.ProgressEvent) {
	var slow []*listener

	s.mu.RLock()
	for l := range s.clients {
		select {
		case l.ch <- e:
		default:
			slow = append(slow, l)
		}
	}
	s.mu.RUnlock()

	for _, l := range slow {
		slog.Warn("listener too slow, disconnecting",
			slog.String("batch", e.BatchId),
			slog.String("type", string(e.Type)),
		)
		s.remove(l)
	}
}
