package rpc

import (
	"github.com/asaskevich/EventBus"
	"github.com/go-chi/chi/v5"
	"github.com/marcopiovanello/songify/server/batch"
	middlewares "github.com/marcopiovanello/songify/server/middleware"
)

// Dependency injection container.
func Container(engine *batch.Engine, bus EventBus.Bus) *Service {
	s := &Service{
		engine:  engine,
		bus:     bus,
		clients: make(map[*listener]struct{}),
	}

	bus.Subscribe(EventTopic, s.broadcast)
	return s
}

func ApplyRouter(s *Service) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig)
		r.Get("/ws", s.WebSocket)
	}
}
