package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubLookPath(t *testing.T, found map[string]string) {
	t.Helper()
	orig := lookPath
	lookPath = func(name string) (string, error) {
		if p, ok := found[name]; ok {
			return p, nil
		}
		return "", errors.New("not found")
	}
	t.Cleanup(func() { lookPath = orig })
}

func TestDetectTranscoder(t *testing.T) {
	tests := []struct {
		name      string
		found     map[string]string
		env       map[string]string
		ffmpeg    string
		enabled   bool
		available bool
		expected  string
	}{
		{
			name:      "both on PATH",
			found:     map[string]string{"ffmpeg": "/usr/bin/ffmpeg", "ffprobe": "/usr/bin/ffprobe"},
			enabled:   true,
			available: true,
			expected:  "/usr/bin/ffmpeg",
		},
		{
			name:      "ffprobe missing",
			found:     map[string]string{"ffmpeg": "/usr/bin/ffmpeg"},
			enabled:   true,
			available: false,
			expected:  "/usr/bin/ffmpeg",
		},
		{
			name:      "environment override",
			env:       map[string]string{EnvFFmpegPath: "/opt/ffmpeg", EnvFFprobePath: "/opt/ffprobe"},
			enabled:   true,
			available: true,
			expected:  "/opt/ffmpeg",
		},
		{
			name:      "explicit path wins",
			found:     map[string]string{"ffprobe": "/usr/bin/ffprobe"},
			env:       map[string]string{EnvFFmpegPath: "/opt/ffmpeg"},
			ffmpeg:    "/custom/ffmpeg",
			enabled:   true,
			available: true,
			expected:  "/custom/ffmpeg",
		},
		{
			name:      "disabled by config",
			found:     map[string]string{"ffmpeg": "/usr/bin/ffmpeg", "ffprobe": "/usr/bin/ffprobe"},
			enabled:   false,
			available: false,
			expected:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubLookPath(t, tt.found)
			t.Setenv(EnvFFmpegPath, tt.env[EnvFFmpegPath])
			t.Setenv(EnvFFprobePath, tt.env[EnvFFprobePath])

			tr := DetectTranscoder(tt.ffmpeg, "", tt.enabled)
			assert.Equal(t, tt.available, tr.Available)
			assert.Equal(t, tt.expected, tr.FFmpegPath)
		})
	}
}
