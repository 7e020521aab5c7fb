package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ytget/yt-bot/internal/config"
	"github.com/ytget/yt-bot/internal/download"
	"github.com/ytget/yt-bot/internal/logger"
	"github.com/ytget/yt-bot/internal/messages"
	"github.com/ytget/yt-bot/internal/metrics"
	"github.com/ytget/yt-bot/internal/platform"
	"github.com/ytget/yt-bot/internal/session"
	"github.com/ytget/yt-bot/internal/stats"
	"github.com/ytget/yt-bot/internal/store"
	"github.com/ytget/yt-bot/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

func serveCMD(cfgPath *string) *cobra.Command {
	var httpAddr string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the metrics server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if httpAddr != "" {
				settings.Set(config.KeyHTTPAddr, httpAddr)
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, settings)
		},
	}
	serve.Flags().StringVar(&httpAddr, "http-addr", "", "metrics listen address, \"off\" disables it")

	return serve
}

func runServe(ctx context.Context, settings *config.Settings) error {
	log, closer, err := logger.New(logger.Config{
		Level:    settings.GetLogLevel(),
		Format:   settings.GetLogFormat(),
		Output:   settings.GetLogOutput(),
		FilePath: settings.GetLogFile(),
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	log.Info().Str("version", version).Str("config", settings.ConfigFile()).Msg("starting")

	executable, err := resolveYtdlp(ctx, settings, log)
	if err != nil {
		return err
	}

	transcoder := platform.DetectTranscoder(settings.GetFFmpegPath(), settings.GetFFprobePath(), settings.GetTranscodeEnabled())
	if !transcoder.Available {
		log.Warn().Msg("ffmpeg/ffprobe not found, audio is delivered in its source container")
	}

	st, err := store.New(settings.GetTempDir(), log)
	if err != nil {
		return err
	}
	defer st.Close()
	if n, err := st.Sweep(); err != nil {
		log.Warn().Err(err).Msg("failed to sweep stale work directories")
	} else if n > 0 {
		log.Info().Int("removed", n).Msg("stale work directories removed")
	}

	prober := platform.NewProbeService(executable, log)
	prober.SetTimeout(settings.GetProbeTimeout())

	fetcher := download.NewService(executable, transcoder, log)
	fetcher.SetTimeout(settings.GetFetchTimeout())
	fetcher.SetAudioOptions(settings.GetAudioFormat(), settings.GetAudioQuality())

	tracker, err := stats.New(ctx, stats.Options{
		Backend:      settings.GetStatsBackend(),
		RedisURL:     settings.GetRedisURL(),
		KeyPrefix:    settings.GetRedisPrefix(),
		LimitPerHour: settings.GetRateLimit(),
	})
	if err != nil {
		return err
	}
	defer tracker.Close()

	api, err := telegram.NewAPI(settings.GetTelegramToken(), settings.GetTelegramTimeout())
	if err != nil {
		return err
	}
	log.Info().Str("bot", api.Self.UserName).Msg("authorized")

	adminIDs, err := settings.GetAdminIDs()
	if err != nil {
		return err
	}
	texts := messages.NewCatalog(settings.GetLanguage())

	transport := telegram.NewTransport(api, log)

	var registry *session.Registry
	m := metrics.New(func() int { return registry.Len() }, st.Live)
	st.SetCleanupHook(m.CleanupHook())

	registry = session.NewRegistry(session.Deps{
		Transport:        transport,
		Prober:           prober,
		Fetcher:          fetcher,
		Store:            st,
		Messages:         texts,
		Tracker:          tracker,
		Observer:         m,
		MaxSizeBytes:     settings.GetMaxFileSizeBytes(),
		RateLimitPerHour: settings.GetRateLimit(),
		Log:              log,
	}, settings.GetIdleHorizon())

	bot := telegram.NewBot(api, registry, telegram.Options{
		Transport:    transport,
		Messages:     texts,
		Tracker:      tracker,
		AdminIDs:     adminIDs,
		MaxSizeBytes: settings.GetMaxFileSizeBytes(),
		Log:          log,
	})

	var srv *metrics.Server
	if addr := settings.GetHTTPAddr(); addr != "" && addr != "off" {
		srv = metrics.NewServer(addr, m, log)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error().Err(err).Msg("http server failed")
			}
		}()
	}

	go registry.Run(ctx, settings.GetJanitorInterval())

	bot.Run(ctx)

	registry.Shutdown()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Err(err).Msg("http server shutdown")
		}
	}

	log.Info().Msg("stopped")
	return nil
}

// resolveYtdlp returns the yt-dlp binary to run, installing it through
// go-ytdlp when configured to
func resolveYtdlp(ctx context.Context, settings *config.Settings, log zerolog.Logger) (string, error) {
	if exe := settings.GetYtdlpExecutable(); exe != "" || !settings.GetYtdlpAutoInstall() {
		return exe, nil
	}

	resolved, err := ytdlp.Install(ctx, &ytdlp.InstallOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	log.Info().Str("executable", resolved.Executable).Str("ytdlp_version", resolved.Version).Msg("yt-dlp ready")
	return resolved.Executable, nil
}
