// Package delivery decides how a produced artifact is handed to the transport
// and enforces the maximum deliverable size.
package delivery

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/platform"
)

// DefaultMaxSizeBytes is the largest file the transport accepts (50 MB)
const DefaultMaxSizeBytes int64 = 50 * 1024 * 1024

// Extension sets that select a typed delivery
var (
	VideoExtensions = map[string]bool{"mp4": true, "mkv": true, "mov": true, "webm": true}
	AudioExtensions = map[string]bool{"mp3": true}
)

// ErrNoOutput means the fetch succeeded but produced no file
var ErrNoOutput = errors.New("no output file produced")

// OversizeError means the artifact exceeds the deliverable limit
type OversizeError struct {
	Size  int64
	Limit int64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("output is %.1f MB, limit is %.1f MB", model.SizeMB(e.Size), model.SizeMB(e.Limit))
}

// Plan describes one delivery
type Plan struct {
	Kind      model.DeliveryKind
	Path      string
	FileName  string
	SizeBytes int64
}

// sizeOf is swapped in tests
var sizeOf = platform.FileSize

// Classify selects the artifact to deliver and its rendering kind. files must
// be in a stable order; the first entry is used and any others are ignored.
func Classify(files []string, format model.Format, maxSizeBytes int64) (Plan, error) {
	if len(files) == 0 {
		return Plan{}, ErrNoOutput
	}

	path := files[0]
	size, err := sizeOf(path)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to inspect output: %w", err)
	}
	if maxSizeBytes > 0 && size > maxSizeBytes {
		return Plan{}, &OversizeError{Size: size, Limit: maxSizeBytes}
	}

	return Plan{
		Kind:      KindFor(path, format),
		Path:      path,
		FileName:  filepath.Base(path),
		SizeBytes: size,
	}, nil
}

// KindFor pairs the file extension with the requested format. A mismatch,
// such as raw audio left by a missing transcoder, falls back to document.
func KindFor(path string, format model.Format) model.DeliveryKind {
	ext := platform.FileExtension(path)
	switch {
	case format == model.FormatVideo && VideoExtensions[ext]:
		return model.DeliveryVideo
	case format == model.FormatAudio && AudioExtensions[ext]:
		return model.DeliveryAudio
	default:
		return model.DeliveryDocument
	}
}
