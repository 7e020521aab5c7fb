package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog"

	"github.com/ytget/yt-bot/internal/model"
)

// Timeout constants
const (
	DefaultProbeTimeout = 60 * time.Second
)

// Network options passed to yt-dlp. Forcing IPv4 avoids hangs on hosts with
// broken IPv6 routes.
const (
	SourceAddressIPv4 = "0.0.0.0"
)

// ProbeErrorKind classifies probe failures
type ProbeErrorKind string

const (
	ProbeTimeout          ProbeErrorKind = "timeout"
	ProbeExtractionFailed ProbeErrorKind = "extraction_failed"
)

// ProbeError is returned by ProbeService.Probe
type ProbeError struct {
	Kind   ProbeErrorKind
	Detail string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("probe %s", e.Kind)
	}
	return fmt.Sprintf("probe %s: %s", e.Kind, e.Detail)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// IsProbeTimeout reports whether err is a probe deadline failure
func IsProbeTimeout(err error) bool {
	var pe *ProbeError
	return errors.As(err, &pe) && pe.Kind == ProbeTimeout
}

// MetadataRunner runs the extraction tool in metadata-only mode and returns
// its raw JSON document.
type MetadataRunner func(ctx context.Context, source string) (string, error)

// probeMetadata is the subset of the yt-dlp info document we consume
type probeMetadata struct {
	ID       string   `json:"id"`
	Title    *string  `json:"title"`
	Duration *float64 `json:"duration"`
}

// ProbeService queries yt-dlp for title and duration without downloading content
type ProbeService struct {
	timeout time.Duration
	run     MetadataRunner
	log     zerolog.Logger
}

// NewProbeService creates a prober backed by the yt-dlp binary. An empty
// executable uses the one resolved by go-ytdlp.
func NewProbeService(executable string, log zerolog.Logger) *ProbeService {
	return &ProbeService{
		timeout: DefaultProbeTimeout,
		run:     ytdlpMetadataRunner(executable),
		log:     log.With().Str("component", "prober").Logger(),
	}
}

// NewProbeServiceWithRunner creates a prober with a custom metadata runner
func NewProbeServiceWithRunner(run MetadataRunner, log zerolog.Logger) *ProbeService {
	return &ProbeService{
		timeout: DefaultProbeTimeout,
		run:     run,
		log:     log,
	}
}

// SetTimeout sets the deadline for probing operations
func (p *ProbeService) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// Timeout returns the configured probe deadline
func (p *ProbeService) Timeout() time.Duration {
	return p.timeout
}

// Probe fetches metadata for source. It never writes to the filesystem.
func (p *ProbeService) Probe(ctx context.Context, source string) (model.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	raw, err := p.run(ctx, source)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			p.log.Warn().Str("source", source).Dur("elapsed", time.Since(started)).Msg("probe deadline exceeded")
			return model.ProbeResult{}, &ProbeError{Kind: ProbeTimeout, Err: context.DeadlineExceeded}
		}
		p.log.Error().Err(err).Str("source", source).Msg("probe failed")
		return model.ProbeResult{}, &ProbeError{Kind: ProbeExtractionFailed, Detail: err.Error(), Err: err}
	}

	result, err := parseProbeMetadata(raw)
	if err != nil {
		p.log.Error().Err(err).Str("source", source).Msg("probe returned malformed metadata")
		return model.ProbeResult{}, &ProbeError{Kind: ProbeExtractionFailed, Detail: err.Error(), Err: err}
	}

	p.log.Debug().
		Str("source", source).
		Str("title", result.Title).
		Int("duration_sec", result.DurationSeconds).
		Msg("probe completed")
	return result, nil
}

// parseProbeMetadata decodes the yt-dlp info JSON and defaults missing fields
func parseProbeMetadata(raw string) (model.ProbeResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.ProbeResult{}, errors.New("empty metadata output")
	}

	// --dump-single-json prints one document; keep the last line in case the
	// tool emitted anything before it.
	if idx := strings.LastIndex(raw, "\n{"); idx >= 0 {
		raw = raw[idx+1:]
	}

	var meta probeMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return model.ProbeResult{}, fmt.Errorf("failed to decode metadata: %w", err)
	}

	result := model.ProbeResult{Title: model.DefaultTitle}
	if meta.Title != nil && strings.TrimSpace(*meta.Title) != "" {
		result.Title = *meta.Title
	}
	if meta.Duration != nil && *meta.Duration > 0 {
		result.DurationSeconds = int(*meta.Duration)
	}
	return result, nil
}

// ytdlpMetadataRunner builds the metadata-only yt-dlp invocation. go-ytdlp
// runs the binary with exec.CommandContext, so cancelling ctx kills it.
func ytdlpMetadataRunner(executable string) MetadataRunner {
	return func(ctx context.Context, source string) (string, error) {
		dl := ytdlp.New().
			SkipDownload().
			DumpSingleJSON().
			NoPlaylist().
			NoWarnings().
			NoCheckCertificates().
			SourceAddress(SourceAddressIPv4)
		if executable != "" {
			dl.SetExecutable(executable)
		}

		res, err := dl.Run(ctx, source)
		if err != nil {
			return "", err
		}
		return res.Stdout, nil
	}
}
