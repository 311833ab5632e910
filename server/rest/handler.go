package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marcopiovanello/songify/server/archive"
	"github.com/marcopiovanello/songify/server/batch"
	"github.com/marcopiovanello/songify/server/config"
	"github.com/marcopiovanello/songify/server/internal"
	"github.com/marcopiovanello/songify/server/internal/kv"
	middlewares "github.com/marcopiovanello/songify/server/middleware"
)

var ErrBatchRunning = errors.New("batch is still running")

type Handler struct {
	service *Service
}

type StartRequest struct {
	URL string `json:"url"`
}

type FreeSpaceResponse struct {
	Path      string `json:"path"`
	Available uint64 `json:"available"`
}

func ApplyRouter(args *ContainerArgs) func(chi.Router) {
	h := ProvideHandler(ProvideService(args))

	return func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig)

		r.Post("/batch", h.Start)
		r.Delete("/batch", h.Cancel)
		r.Get("/batch/current", h.Current)

		r.Get("/batches", h.Batches)
		r.Get("/batches/{id}", h.Batch)
		r.Delete("/batches/{id}", h.DeleteBatch)

		r.Get("/settings", h.Settings)
		r.Put("/settings", h.SaveSettings)

		r.Get("/free-space", h.FreeSpace)

		if args.Archive != nil {
			r.Route("/archive", archive.ApplyRouter(args.Archive))
		}
	}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.service.Start(r.Context(), req.URL)
	switch {
	case errors.Is(err, internal.ErrInvalidURL):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, batch.ErrBatchInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, batch.ErrEngineClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	h.service.Cancel(r.Context())

	if err := json.NewEncoder(w).Encode("ok"); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	snap, ok := h.service.Current(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := json.NewEncoder(w).Encode(snap); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) Batches(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	batches, err := h.service.Batches(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(batches); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	snap, err := h.service.Batch(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, kv.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(snap); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	err := h.service.DeleteBatch(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrBatchRunning):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, kv.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode("ok"); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(h.service.Settings(r.Context())); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req config.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.service.SaveSettings(r.Context(), req)
	if errors.Is(err, config.ErrInvalidSettings) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(updated); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) FreeSpace(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	free, err := h.service.FreeSpace(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	res := FreeSpaceResponse{
		Path:      h.service.conf.DestinationDir(),
		Available: free,
	}
	if err := json.NewEncoder(w).Encode(res); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
