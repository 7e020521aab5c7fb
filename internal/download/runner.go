package download

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultExecutable is run when no yt-dlp binary is configured
const DefaultExecutable = "yt-dlp"

// stderrTailBytes bounds the tool output kept for error messages
const stderrTailBytes = 2048

var progressRe = regexp.MustCompile(`^\[download\]\s+([0-9.]+)%`)

// BuildArgs renders req as yt-dlp command line arguments
func BuildArgs(req Request) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--no-check-certificates",
		"--restrict-filenames",
		"--force-overwrites",
		"--newline",
		"--format", req.Selector,
		"--output", req.OutputTemplate,
	}
	if req.ExtractAudio {
		args = append(args,
			"--extract-audio",
			"--audio-format", req.AudioCodec,
			"--audio-quality", req.AudioQuality,
		)
		if req.FFmpegLocation != "" {
			args = append(args, "--ffmpeg-location", req.FFmpegLocation)
		}
	}
	// The source never parses as a flag
	return append(args, "--", req.Source)
}

// ytdlpRunner runs yt-dlp as the leader of its own process group. Cancelling
// ctx kills the whole group, so ffmpeg and other children die with it.
func ytdlpRunner(executable string, log zerolog.Logger) Runner {
	if executable == "" {
		executable = DefaultExecutable
	}

	return func(ctx context.Context, req Request) error {
		cmd := exec.CommandContext(ctx, executable, BuildArgs(req)...)
		setProcessGroup(cmd)
		cmd.WaitDelay = KillGracePeriod

		stderr := &tailBuffer{limit: stderrTailBytes}
		cmd.Stdout = &progressWriter{
			log:      log.With().Str("source", req.Source).Logger(),
			interval: ProgressInterval,
		}
		cmd.Stderr = stderr

		err := cmd.Run()
		if cmd.Process != nil {
			// Children left behind by a clean exit must not outlive the fetch
			killProcessGroup(cmd)
		}
		if err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("%w: %s", err, msg)
			}
			return err
		}
		return nil
	}
}

// progressWriter logs yt-dlp's --newline progress lines at debug level, at
// most once per interval
type progressWriter struct {
	log      zerolog.Logger
	interval time.Duration

	partial []byte
	last    time.Time
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.line(string(bytes.TrimRight(w.partial[:i], "\r")))
		w.partial = w.partial[i+1:]
	}
	return len(p), nil
}

func (w *progressWriter) line(s string) {
	m := progressRe.FindStringSubmatch(s)
	if m == nil || time.Since(w.last) < w.interval {
		return
	}
	w.last = time.Now()
	w.log.Debug().Str("percent", m[1]).Msg("fetch progress")
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	limit int

	mu  sync.Mutex
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
