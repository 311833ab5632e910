package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/marcopiovanello/songify/server"
	"github.com/marcopiovanello/songify/server/config"
	"github.com/marcopiovanello/songify/server/openid"

	"github.com/spf13/viper"
)

func main() {
	// Parse optional config path from flag
	var configFile string
	flag.StringVar(&configFile, "conf", "./config.yml", "Config file path")
	flag.Parse()

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3033)
	v.SetDefault("paths.download_path", ".")
	v.SetDefault("paths.ffmpeg_path", "ffmpeg")
	v.SetDefault("paths.local_database_path", ".")
	v.SetDefault("downloads.batch_size", config.DefaultBatchSize)
	v.SetDefault("downloads.bitrate", config.DefaultBitrate)
	v.SetDefault("logging.log_path", "songify.log")
	v.SetDefault("logging.enable_file_logging", false)
	v.SetDefault("authentication.require_auth", false)
	v.SetDefault("soundcloud.rate_limit", 0)
	v.SetDefault("openid.use_openid", false)

	// Env binding, e.g. APP_SOUNDCLOUD_CLIENT_ID
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load YAML file if exists
	if err := v.ReadInConfig(); err != nil {
		slog.Debug("using defaults")
	}

	cfg := config.Instance()
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg.SetPath(configFile)

	if cfg.Authentication.RequireAuth && cfg.Authentication.JWTSecret == "" {
		cfg.Authentication.JWTSecret = uuid.NewString()
		slog.Warn("no jwt secret configured, sessions will not survive a restart")
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Configure OpenID if needed
	if err := openid.Configure(ctx); err != nil {
		slog.Error("failed to configure openid", "error", err)
		os.Exit(1)
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"batch_size", cfg.ConcurrencyLimit(),
		"bitrate", cfg.BitrateKbps(),
	)

	if err := server.Run(ctx); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited cleanly")
}
