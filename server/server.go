// a stupid package name...
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/marcopiovanello/songify/server/archive"
	"github.com/marcopiovanello/songify/server/archiver"
	"github.com/marcopiovanello/songify/server/batch"
	"github.com/marcopiovanello/songify/server/config"
	"github.com/marcopiovanello/songify/server/internal/downloaders"
	"github.com/marcopiovanello/songify/server/internal/kv"
	"github.com/marcopiovanello/songify/server/internal/metadata"
	"github.com/marcopiovanello/songify/server/internal/pipes"
	"github.com/marcopiovanello/songify/server/logging"
	"github.com/marcopiovanello/songify/server/openid"
	"github.com/marcopiovanello/songify/server/rest"
	songifyRPC "github.com/marcopiovanello/songify/server/rpc"
	"github.com/marcopiovanello/songify/server/user"

	bolt "go.etcd.io/bbolt"
)

const (
	eventBuffer   = 256
	archiveBuffer = 64
)

type serverConfig struct {
	engine   *batch.Engine
	db       *bolt.DB
	sqlite   *sql.DB
	mdb      *kv.Store
	repo     *archive.Repository
	archiver *archiver.Archiver
	service  *songifyRPC.Service
	logger   *logging.RotableLogger
}

// Run serves until ctx is done, then returns once the running batch is over
// and every store is closed.
func Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conf := config.Instance()

	// ---- LOGGING ---------------------------------------------------
	logWriters := []io.Writer{os.Stdout}

	var fileLogger *logging.RotableLogger

	// file based logging
	if conf.Logging.EnableFileLogging {
		logger, err := logging.NewRotableLogger(conf.Logging.LogPath)
		if err != nil {
			return err
		}
		fileLogger = logger

		go func() {
			ticker := time.NewTicker(time.Hour * 24)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := logger.Rotate(); err != nil {
						slog.Warn("log rotation failed", slog.Any("err", err))
					}
				}
			}
		}()

		logWriters = append(logWriters, logger)
	}

	logger := slog.New(slog.NewTextHandler(io.MultiWriter(logWriters...), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// make the new logger the default one with all the new writers
	slog.SetDefault(logger)
	// ----------------------------------------------------------------

	if err := os.MkdirAll(conf.Paths.LocalDatabasePath, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(conf.DestinationDir(), 0o755); err != nil {
		return err
	}

	boltdb, err := bolt.Open(filepath.Join(conf.Paths.LocalDatabasePath, "bolt.db"), 0600, &bolt.Options{
		Timeout: time.Second * 15,
	})
	if err != nil {
		return err
	}

	mdb, err := kv.NewStore(boltdb)
	if err != nil {
		return err
	}

	if n, err := mdb.Interrupted(); err != nil {
		slog.Warn("failed to mark interrupted batches", slog.Any("err", err))
	} else if n > 0 {
		slog.Info("marked interrupted batches as failed", slog.Int("count", n))
	}

	sqlite, err := archive.Open(filepath.Join(conf.Paths.LocalDatabasePath, "archive.db"))
	if err != nil {
		return err
	}

	repo, err := archive.New(ctx, sqlite)
	if err != nil {
		return err
	}

	arch := archiver.New(repo, archiveBuffer)

	transcoder := &pipes.Transcoder{Path: conf.Paths.FFmpegPath}
	if !transcoder.Available() {
		slog.Warn("ffmpeg not found, every download will fail", slog.String("path", conf.Paths.FFmpegPath))
	}

	resolver := metadata.NewResolver(
		metadata.NewYouTube(nil),
		metadata.NewSoundCloud(metadata.SoundCloudOptions{
			ClientId:     conf.SoundCloud.ClientId,
			ClientSecret: conf.SoundCloud.ClientSecret,
			RateLimit:    conf.SoundCloud.RateLimit,
		}),
	)

	engine := batch.New(ctx, resolver, conf, batch.Options{
		Archiver:    arch,
		Recorder:    mdb,
		Transcoder:  downloaders.FFmpeg(conf.Paths.FFmpegPath),
		EventBuffer: eventBuffer,
	})

	scfg := serverConfig{
		engine:   engine,
		db:       boltdb,
		sqlite:   sqlite,
		mdb:      mdb,
		repo:     repo,
		archiver: arch,
		service:  songifyRPC.Container(engine, EventBus.New()),
		logger:   fileLogger,
	}

	srv := newServer(&scfg)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		gracefulShutdown(ctx, srv, &scfg)
	}()
	defer func() {
		cancel()
		<-shutdownDone
	}()

	var (
		network = "tcp"
		address = fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port)
	)

	// support unix sockets
	if strings.HasPrefix(conf.Server.Host, "/") {
		network = "unix"
		address = conf.Server.Host
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		slog.Error("failed to listen", slog.String("err", err.Error()))
		return err
	}

	slog.Info("songify started",
		slog.String("address", address),
		slog.String("download_path", conf.DestinationDir()),
	)

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		slog.Warn("http server stopped", slog.String("err", err.Error()))
	}

	return nil
}

func newServer(c *serverConfig) *http.Server {
	r := chi.NewRouter()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	r.Use(corsMiddleware.Handler)

	// Authentication routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", user.Login)
		r.Get("/logout", user.Logout)

		r.Route("/openid", func(r chi.Router) {
			r.Get("/login", openid.Login)
			r.Get("/signin", openid.SignIn)
			r.Get("/logout", openid.Logout)
		})
	})

	// RPC handlers
	r.Route("/rpc", songifyRPC.ApplyRouter(c.service))

	// REST API handlers
	r.Route("/api/v1", rest.ApplyRouter(&rest.ContainerArgs{
		Batcher: c.service,
		Store:   c.mdb,
		Archive: c.repo,
		Config:  config.Instance(),
	}))

	return &http.Server{Handler: r}
}

func gracefulShutdown(ctx context.Context, srv *http.Server, cfg *serverConfig) {
	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown", slog.Any("err", err))
	}

	// in-flight transfers are aborted by ctx, partial files removed
	cfg.engine.Shutdown()
	cfg.archiver.Close()
	cfg.sqlite.Close()
	cfg.db.Close()

	if cfg.logger != nil {
		cfg.logger.Close()
	}
}
