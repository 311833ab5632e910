package rpc

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/marcopiovanello/songify/server/internal"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1 << 10,
	WriteBufferSize: 1 << 15,
}

// Request is a client message on the websocket.
type Request struct {
	Method string `json:"method"`
	URL    string `json:"url,omitempty"`
}

// Reply answers a Request. Batch events are pushed as plain ProgressEvents
// on the same socket, told apart by their "type" field.
type Reply struct {
	Method string        `json:"method"`
	Id     string        `json:"id,omitempty"`
	Kind   internal.Kind `json:"kind,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func (s *Service) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	events, unsubscribe := s.Listen()
	defer unsubscribe()

	var (
		replies    = make(chan Reply, 8)
		done       = make(chan struct{})
		writerDone = make(chan struct{})
	)

	// single writer
	go func() {
		defer close(writerDone)
		for {
			var msg any

			select {
			case <-done:
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				msg = e
			case reply := <-replies:
				msg = reply
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				slog.Warn("websocket write failed", slog.Any("err", err))
				conn.Close()
				return
			}
		}
	}()

	defer close(done)

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket closed", slog.Any("err", err))
			}
			return
		}

		select {
		case replies <- s.call(req):
		case <-writerDone:
			return
		}
	}
}

func (s *Service) call(req Request) Reply {
	reply := Reply{Method: req.Method}

	switch req.Method {
	case "start":
		h, err := s.Start(req.URL)
		if err != nil {
			reply.Error = err.Error()
			return reply
		}
		reply.Id = h.Id
		reply.Kind = h.Request.Kind
	case "cancel":
		s.Cancel()
	default:
		reply.Error = "unknown method"
	}

	return reply
}
