package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/platform"
)

// yt-dlp selection and output settings
const (
	VideoFormatSelector = "best[ext=mp4]"
	AudioFormatSelector = "bestaudio/best"
	DefaultAudioCodec   = "mp3"
	DefaultAudioQuality = "192"
	OutputTemplateName  = "%(id)s.%(ext)s"
)

// Timing constants
const (
	DefaultFetchTimeout = 600 * time.Second
	KillGracePeriod     = 5 * time.Second
	ProgressInterval    = 2 * time.Second
)

var (
	// ErrFetchTimeout means the fetch deadline elapsed and the tool was killed
	ErrFetchTimeout = errors.New("fetch deadline exceeded")
	// ErrToolFailed means the extraction tool exited with an error
	ErrToolFailed = errors.New("extraction tool failed")
)

// Request is one fully resolved tool invocation
type Request struct {
	Source         string
	Format         model.Format
	Selector       string
	OutputTemplate string
	ExtractAudio   bool
	AudioCodec     string
	AudioQuality   string
	FFmpegLocation string
}

// Runner executes a Request. It must return once ctx is cancelled.
type Runner func(ctx context.Context, req Request) error

// Service handles fetch operations
type Service struct {
	timeout      time.Duration
	transcoder   platform.Transcoder
	audioCodec   string
	audioQuality string
	run          Runner
	log          zerolog.Logger
}

// NewService creates a fetch service backed by the yt-dlp binary. An empty
// executable runs DefaultExecutable from PATH.
func NewService(executable string, transcoder platform.Transcoder, log zerolog.Logger) *Service {
	l := log.With().Str("component", "fetcher").Logger()
	return &Service{
		timeout:      DefaultFetchTimeout,
		transcoder:   transcoder,
		audioCodec:   DefaultAudioCodec,
		audioQuality: DefaultAudioQuality,
		run:          ytdlpRunner(executable, l),
		log:          l,
	}
}

// NewServiceWithRunner creates a fetch service with a custom runner
func NewServiceWithRunner(run Runner, transcoder platform.Transcoder, log zerolog.Logger) *Service {
	return &Service{
		timeout:      DefaultFetchTimeout,
		transcoder:   transcoder,
		audioCodec:   DefaultAudioCodec,
		audioQuality: DefaultAudioQuality,
		run:          run,
		log:          log,
	}
}

// SetTimeout sets the fetch deadline
func (s *Service) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}

// Timeout returns the fetch deadline
func (s *Service) Timeout() time.Duration {
	return s.timeout
}

// SetAudioOptions configures transcoding codec and quality
func (s *Service) SetAudioOptions(codec, quality string) {
	if codec != "" {
		s.audioCodec = codec
	}
	if quality != "" {
		s.audioQuality = quality
	}
}

// BuildRequest resolves the tool invocation for source and format
func (s *Service) BuildRequest(source string, format model.Format, workDir string) Request {
	req := Request{
		Source:         source,
		Format:         format,
		OutputTemplate: filepath.Join(workDir, OutputTemplateName),
	}

	switch format {
	case model.FormatAudio:
		req.Selector = AudioFormatSelector
		// Without ffmpeg the raw audio container is kept as-is
		if s.transcoder.Available {
			req.ExtractAudio = true
			req.AudioCodec = s.audioCodec
			req.AudioQuality = s.audioQuality
			req.FFmpegLocation = s.transcoder.FFmpegPath
		}
	default:
		req.Selector = VideoFormatSelector
	}
	return req
}

// Fetch runs the tool once in its own goroutine and waits for it under the
// deadline. On timeout or cancellation it waits for the tool to exit (bounded
// by KillGracePeriod) so nothing is written after Fetch returns.
func (s *Service) Fetch(ctx context.Context, source string, format model.Format, workDir string) model.FetchOutcome {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := s.BuildRequest(source, format, workDir)
	log := s.log.With().Str("source", source).Str("format", string(format)).Str("work_dir", workDir).Logger()
	log.Info().Bool("extract_audio", req.ExtractAudio).Msg("fetch started")

	started := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- s.run(ctx, req)
	}()

	var runErr error
	select {
	case runErr = <-done:
	case <-ctx.Done():
		select {
		case runErr = <-done:
		case <-time.After(KillGracePeriod):
			log.Error().Msg("tool did not exit after cancellation")
			runErr = ctx.Err()
		}
	}

	elapsed := time.Since(started)
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		log.Warn().Dur("elapsed", elapsed).Msg("fetch deadline exceeded")
		return model.FetchOutcome{Err: ErrFetchTimeout}
	case errors.Is(ctx.Err(), context.Canceled):
		log.Info().Dur("elapsed", elapsed).Msg("fetch cancelled")
		return model.FetchOutcome{Err: fmt.Errorf("fetch abandoned: %w", context.Canceled)}
	case runErr != nil:
		log.Error().Err(runErr).Dur("elapsed", elapsed).Msg("fetch failed")
		return model.FetchOutcome{Err: fmt.Errorf("%w: %v", ErrToolFailed, runErr)}
	}

	files, err := platform.ListArtifacts(workDir)
	if err != nil {
		return model.FetchOutcome{Err: fmt.Errorf("%w: %v", ErrToolFailed, err)}
	}

	outcome := model.FetchOutcome{}
	for _, f := range files {
		// Never hand out anything outside the session directory
		if platform.IsWithinDir(workDir, f) {
			outcome.Files = append(outcome.Files, f)
		}
	}
	if len(outcome.Files) > 0 {
		outcome.ArtifactPath = outcome.Files[0]
		if size, err := platform.FileSize(outcome.ArtifactPath); err == nil {
			outcome.SizeBytes = size
		}
	}

	log.Info().Dur("elapsed", elapsed).Int("files", len(outcome.Files)).Int64("size_bytes", outcome.SizeBytes).Msg("fetch completed")
	return outcome
}
