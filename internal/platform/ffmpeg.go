package platform

import (
	"os"
	"os/exec"
)

// Executable names and environment overrides for the transcoding toolchain
const (
	FFmpegCommand  = "ffmpeg"
	FFprobeCommand = "ffprobe"
	EnvFFmpegPath  = "FFMPEG_PATH"
	EnvFFprobePath = "FFPROBE_PATH"
)

// Transcoder describes the audio transcoding capability of the environment
type Transcoder struct {
	FFmpegPath  string
	FFprobePath string
	Available   bool
}

// lookPath is swapped in tests
var lookPath = exec.LookPath

// DetectTranscoder resolves ffmpeg and ffprobe from explicit paths, then the
// FFMPEG_PATH/FFPROBE_PATH environment, then PATH. The capability is available
// only when both binaries resolve and enabled is true.
func DetectTranscoder(ffmpegPath, ffprobePath string, enabled bool) Transcoder {
	if !enabled {
		return Transcoder{}
	}

	t := Transcoder{
		FFmpegPath:  resolveTool(ffmpegPath, EnvFFmpegPath, FFmpegCommand),
		FFprobePath: resolveTool(ffprobePath, EnvFFprobePath, FFprobeCommand),
	}
	t.Available = t.FFmpegPath != "" && t.FFprobePath != ""
	return t
}

func resolveTool(explicit, envKey, command string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if p, err := lookPath(command); err == nil {
		return p
	}
	return ""
}
