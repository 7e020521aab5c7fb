// Package stats tracks per-user download statistics and the hourly download
// limit. Two backends exist: an in-process map and Redis.
package stats

import (
	"context"
	"errors"
	"time"

	"github.com/ytget/yt-bot/internal/model"
)

// Rate limit defaults
const (
	DefaultLimitPerHour = 10
	RateWindow          = time.Hour
)

// Backend names
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ErrRateLimited means the identity used up its downloads for the window
var ErrRateLimited = errors.New("download rate limit exceeded")

// Download is one delivered artifact
type Download struct {
	Title     string
	Format    model.Format
	SizeBytes int64
	At        time.Time
}

// UserStats aggregates the downloads of one identity
type UserStats struct {
	Downloads    int
	TotalBytes   int64
	VideoCount   int
	AudioCount   int
	LastDownload time.Time
}

// TotalSizeMB returns the total delivered size in megabytes
func (u UserStats) TotalSizeMB() float64 {
	return model.SizeMB(u.TotalBytes)
}

// FavoriteFormat returns the most used format; ties go to video. Empty when
// nothing was downloaded.
func (u UserStats) FavoriteFormat() model.Format {
	if u.VideoCount == 0 && u.AudioCount == 0 {
		return ""
	}
	if u.VideoCount >= u.AudioCount {
		return model.FormatVideo
	}
	return model.FormatAudio
}

func (u *UserStats) add(d Download) {
	u.Downloads++
	u.TotalBytes += d.SizeBytes
	switch d.Format {
	case model.FormatVideo:
		u.VideoCount++
	case model.FormatAudio:
		u.AudioCount++
	}
	if d.At.After(u.LastDownload) {
		u.LastDownload = d.At
	}
}

// GlobalStats aggregates all identities
type GlobalStats struct {
	Users      int
	Downloads  int
	TotalBytes int64
}

// TotalSizeMB returns the total delivered size in megabytes
func (g GlobalStats) TotalSizeMB() float64 {
	return model.SizeMB(g.TotalBytes)
}

// Tracker is implemented by every statistics backend
type Tracker interface {
	// Allow consumes one slot of the hourly window or returns ErrRateLimited
	Allow(ctx context.Context, identity string) error
	Record(ctx context.Context, identity string, d Download) error
	User(ctx context.Context, identity string) (UserStats, bool, error)
	Global(ctx context.Context) (GlobalStats, error)
	Close() error
}

var (
	_ Tracker = (*MemoryTracker)(nil)
	_ Tracker = (*RedisTracker)(nil)
)
