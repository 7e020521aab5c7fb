package model

import (
	"fmt"
	"strings"
)

// Defaults for missing probe metadata
const (
	DefaultTitle       = "Unknown"
	TitleTruncateLimit = 50
	TitleEllipsis      = "..."
)

// ProbeResult is the metadata returned by the source prober
type ProbeResult struct {
	Title           string
	DurationSeconds int
}

// GetDisplayTitle returns the title truncated to limit runes, or the default placeholder
func (p ProbeResult) GetDisplayTitle(limit int) string {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return DefaultTitle
	}

	runes := []rune(title)
	if limit > 0 && len(runes) > limit {
		return string(runes[:limit]) + TitleEllipsis
	}
	return title
}

// GetDurationMinutes returns whole minutes of the duration
func (p ProbeResult) GetDurationMinutes() int {
	if p.DurationSeconds <= 0 {
		return 0
	}
	return p.DurationSeconds / 60
}

// GetDurationString returns duration formatted as hh:mm:ss or mm:ss, or "—" if unknown
func (p ProbeResult) GetDurationString() string {
	if p.DurationSeconds <= 0 {
		return "—"
	}

	hours := p.DurationSeconds / 3600
	minutes := (p.DurationSeconds % 3600) / 60
	seconds := p.DurationSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// FetchOutcome is the result of a single fetch attempt. On success Files
// lists every artifact in the work directory in stable order and
// ArtifactPath is the first of them; on failure only Err is set.
type FetchOutcome struct {
	ArtifactPath string
	SizeBytes    int64
	Files        []string
	Err          error
}

// Succeeded reports whether the fetch produced an artifact
func (o FetchOutcome) Succeeded() bool {
	return o.Err == nil
}

// Reason returns the failure reason, empty on success
func (o FetchOutcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// SizeMB converts a byte count into megabytes
func SizeMB(sizeBytes int64) float64 {
	return float64(sizeBytes) / (1024 * 1024)
}
