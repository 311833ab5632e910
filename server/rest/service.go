package rest

import (
	"context"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/marcopiovanello/songify/server/config"
	"github.com/marcopiovanello/songify/server/internal"
	"github.com/marcopiovanello/songify/server/internal/kv"
	"github.com/marcopiovanello/songify/server/sys"
)

type Service struct {
	batcher Batcher
	store   *kv.Store
	conf    *config.Config
}

func NewService(batcher Batcher, store *kv.Store, conf *config.Config) *Service {
	return &Service{
		batcher: batcher,
		store:   store,
		conf:    conf,
	}
}

type StartResponse struct {
	Id   string        `json:"id"`
	Kind internal.Kind `json:"kind"`
}

func (s *Service) Start(ctx context.Context, url string) (*StartResponse, error) {
	h, err := s.batcher.Start(url)
	if err != nil {
		return nil, err
	}
	return &StartResponse{Id: h.Id, Kind: h.Request.Kind}, nil
}

func (s *Service) Cancel(ctx context.Context) { s.batcher.Cancel() }

func (s *Service) Current(ctx context.Context) (internal.BatchSnapshot, bool) {
	return s.batcher.Current()
}

func (s *Service) Batches(ctx context.Context) ([]internal.BatchSnapshot, error) {
	return s.store.List()
}

func (s *Service) Batch(ctx context.Context, id string) (*internal.BatchSnapshot, error) {
	return s.store.Get(id)
}

func (s *Service) DeleteBatch(ctx context.Context, id string) error {
	if current, running := s.batcher.Current(); running && current.Id == id {
		return ErrBatchRunning
	}
	return s.store.Delete(id)
}

func (s *Service) Settings(ctx context.Context) config.Settings { return s.conf.Settings() }

// SaveSettings updates and persists the settings. A new download directory
// is created right away so that the next batch does not fail on it.
func (s *Service) SaveSettings(ctx context.Context, settings config.Settings) (config.Settings, error) {
	if settings.DownloadPath != "" {
		if err := os.MkdirAll(settings.DownloadPath, 0o755); err != nil {
			return config.Settings{}, err
		}
	}

	if err := s.conf.UpdateSettings(settings); err != nil {
		return config.Settings{}, err
	}

	updated := s.conf.Settings()
	slog.Info("settings updated",
		slog.String("download_path", updated.DownloadPath),
		slog.Int("batch_size", updated.BatchSize),
		slog.Int("bitrate", updated.BitrateKbps),
	)
	return updated, nil
}

func (s *Service) FreeSpace(ctx context.Context) (uint64, error) {
	free, err := sys.FreeSpace(s.conf.DestinationDir())
	if err != nil {
		return 0, err
	}

	slog.Debug("free space", slog.String("available", humanize.Bytes(free)))
	return free, nil
}
