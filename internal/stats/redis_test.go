package stats

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/yt-bot/internal/model"
)

func newRedisTracker(t *testing.T, limit int) *RedisTracker {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	prefix := "ytbot-test-" + uuid.NewString()
	tracker, err := New(ctx, Options{Backend: BackendRedis, RedisURL: url, KeyPrefix: prefix, LimitPerHour: limit})
	require.NoError(t, err)
	tr := tracker.(*RedisTracker)
	require.Equal(t, prefix, tr.prefix)

	t.Cleanup(func() {
		keys, _ := tr.client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			tr.client.Del(ctx, keys...)
		}
		_ = tr.Close()
	})
	return tr
}

func TestRedisTracker_Allow(t *testing.T) {
	ctx := context.Background()
	tr := newRedisTracker(t, 2)
	now := time.Now()
	tr.now = func() time.Time { return now }

	require.NoError(t, tr.Allow(ctx, "1"))
	now = now.Add(time.Millisecond)
	require.NoError(t, tr.Allow(ctx, "1"))
	assert.ErrorIs(t, tr.Allow(ctx, "1"), ErrRateLimited)
	assert.NoError(t, tr.Allow(ctx, "2"))

	now = now.Add(RateWindow + time.Second)
	assert.NoError(t, tr.Allow(ctx, "1"))
}

func TestRedisTracker_AllowSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	first := newRedisTracker(t, 5)
	second := NewRedisTrackerWithClient(first.client, 5)
	second.SetKeyPrefix(first.prefix)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		tr := first
		if i%2 == 1 {
			tr = second
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Allow(ctx, "1") == nil {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), allowed.Load())
}

func TestRedisTracker_RecordUserGlobal(t *testing.T) {
	ctx := context.Background()
	tr := newRedisTracker(t, 0)

	_, ok, err := tr.User(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Unix(1735725600, 0)
	require.NoError(t, tr.Record(ctx, "1", Download{Format: model.FormatVideo, SizeBytes: 300, At: at}))
	require.NoError(t, tr.Record(ctx, "2", Download{Format: model.FormatAudio, SizeBytes: 100, At: at}))

	u, ok, err := tr.User(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, UserStats{Downloads: 1, TotalBytes: 300, VideoCount: 1, LastDownload: at}, u)

	g, err := tr.Global(ctx)
	require.NoError(t, err)
	assert.Equal(t, GlobalStats{Users: 2, Downloads: 2, TotalBytes: 400}, g)
}

func TestParseUserFields(t *testing.T) {
	u := parseUserFields(map[string]string{
		fieldDownloads:  "3",
		fieldTotalBytes: "1048576",
		fieldAudioCount: "3",
		"unknown":       "x",
	})

	assert.Equal(t, 3, u.Downloads)
	assert.Equal(t, int64(1048576), u.TotalBytes)
	assert.Equal(t, model.FormatAudio, u.FavoriteFormat())
	assert.True(t, u.LastDownload.IsZero())
}
