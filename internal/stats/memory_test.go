package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/yt-bot/internal/model"
)

func TestMemoryTracker_Allow(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker(2)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	require.NoError(t, tr.Allow(ctx, "1"))
	require.NoError(t, tr.Allow(ctx, "1"))
	assert.ErrorIs(t, tr.Allow(ctx, "1"), ErrRateLimited)

	// Other identities have their own window
	assert.NoError(t, tr.Allow(ctx, "2"))

	now = now.Add(RateWindow + time.Second)
	assert.NoError(t, tr.Allow(ctx, "1"))
}

func TestMemoryTracker_ForgetsExpiredWindows(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker(5)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	require.NoError(t, tr.Allow(ctx, "a"))
	require.NoError(t, tr.Allow(ctx, "b"))
	assert.Len(t, tr.window, 2)

	now = now.Add(RateWindow + time.Second)
	require.NoError(t, tr.Allow(ctx, "c"))

	assert.Len(t, tr.window, 1)
	assert.Contains(t, tr.window, "c")
}

func TestMemoryTracker_AllowDisabled(t *testing.T) {
	tr := NewMemoryTracker(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, tr.Allow(context.Background(), "1"))
	}
}

func TestMemoryTracker_RecordAndUser(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker(DefaultLimitPerHour)

	_, ok, err := tr.User(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)

	first := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, tr.Record(ctx, "1", Download{Format: model.FormatAudio, SizeBytes: 1 << 20, At: first}))
	require.NoError(t, tr.Record(ctx, "1", Download{Format: model.FormatAudio, SizeBytes: 1 << 20, At: first.Add(time.Hour)}))
	require.NoError(t, tr.Record(ctx, "1", Download{Format: model.FormatVideo, SizeBytes: 2 << 20, At: first.Add(30 * time.Minute)}))

	u, ok, err := tr.User(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, u.Downloads)
	assert.InDelta(t, 4.0, u.TotalSizeMB(), 0.001)
	assert.Equal(t, model.FormatAudio, u.FavoriteFormat())
	assert.Equal(t, first.Add(time.Hour), u.LastDownload)
}

func TestMemoryTracker_Global(t *testing.T) {
	ctx := context.Background()
	tr := NewMemoryTracker(DefaultLimitPerHour)

	require.NoError(t, tr.Record(ctx, "1", Download{Format: model.FormatVideo, SizeBytes: 100}))
	require.NoError(t, tr.Record(ctx, "2", Download{Format: model.FormatAudio, SizeBytes: 50}))
	require.NoError(t, tr.Record(ctx, "2", Download{Format: model.FormatAudio, SizeBytes: 50}))

	g, err := tr.Global(ctx)
	require.NoError(t, err)
	assert.Equal(t, GlobalStats{Users: 2, Downloads: 3, TotalBytes: 200}, g)
}

func TestFavoriteFormat(t *testing.T) {
	tests := []struct {
		name     string
		stats    UserStats
		expected model.Format
	}{
		{"empty", UserStats{}, ""},
		{"tie prefers video", UserStats{VideoCount: 2, AudioCount: 2}, model.FormatVideo},
		{"audio wins", UserStats{VideoCount: 1, AudioCount: 2}, model.FormatAudio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.stats.FavoriteFormat())
		})
	}
}

func TestNew(t *testing.T) {
	tr, err := New(context.Background(), Options{Backend: BackendMemory, LimitPerHour: 5})
	require.NoError(t, err)
	assert.IsType(t, &MemoryTracker{}, tr)

	_, err = New(context.Background(), Options{Backend: "sqlite"})
	assert.Error(t, err)

	_, err = New(context.Background(), Options{Backend: BackendRedis})
	assert.Error(t, err)
}
