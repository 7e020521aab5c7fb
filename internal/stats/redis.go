package stats

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ytget/yt-bot/internal/model"
)

// Redis key layout
const (
	DefaultKeyPrefix = "ytbot"
	usersSetKey      = "stats:users"
	userHashKey      = "stats:user:%s"
	rateKey          = "ratelimit:%s"
)

// Hash fields of a user record
const (
	fieldDownloads    = "downloads"
	fieldTotalBytes   = "total_bytes"
	fieldVideoCount   = "video_count"
	fieldAudioCount   = "audio_count"
	fieldLastDownload = "last_download"
)

// RedisTracker keeps statistics in Redis so they survive restarts and are
// shared between bot instances
type RedisTracker struct {
	client *redis.Client
	prefix string
	limit  int
	now    func() time.Time
}

// NewRedisTracker connects to redisURL and verifies the connection
func NewRedisTracker(ctx context.Context, redisURL string, limit int) (*RedisTracker, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisTrackerWithClient(client, limit), nil
}

// NewRedisTrackerWithClient wraps an existing client
func NewRedisTrackerWithClient(client *redis.Client, limit int) *RedisTracker {
	return &RedisTracker{
		client: client,
		prefix: DefaultKeyPrefix,
		limit:  limit,
		now:    time.Now,
	}
}

// SetKeyPrefix namespaces every key, e.g. per deployment
func (t *RedisTracker) SetKeyPrefix(prefix string) {
	t.prefix = prefix
}

func (t *RedisTracker) key(format string, args ...any) string {
	return t.prefix + ":" + fmt.Sprintf(format, args...)
}

// allowScript trims the window, checks its size and records the attempt in
// one atomic step, so instances sharing Redis cannot overshoot the limit.
// KEYS[1] window; ARGV cutoff, now, limit, member, ttl seconds.
var allowScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
redis.call('EXPIRE', KEYS[1], ARGV[5])
return 1
`)

// Allow implements Tracker using a sorted set of attempt timestamps
func (t *RedisTracker) Allow(ctx context.Context, identity string) error {
	if t.limit <= 0 {
		return nil
	}

	now := t.now()
	allowed, err := allowScript.Run(ctx, t.client, []string{t.key(rateKey, identity)},
		now.Add(-RateWindow).UnixMilli(),
		now.UnixMilli(),
		t.limit,
		uuid.NewString(),
		int64(RateWindow/time.Second),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to check rate window: %w", err)
	}
	if allowed == 0 {
		return ErrRateLimited
	}
	return nil
}

// Record implements Tracker
func (t *RedisTracker) Record(ctx context.Context, identity string, d Download) error {
	if d.At.IsZero() {
		d.At = t.now()
	}

	key := t.key(userHashKey, identity)
	pipe := t.client.TxPipeline()
	pipe.SAdd(ctx, t.key(usersSetKey), identity)
	pipe.HIncrBy(ctx, key, fieldDownloads, 1)
	pipe.HIncrBy(ctx, key, fieldTotalBytes, d.SizeBytes)
	switch d.Format {
	case model.FormatVideo:
		pipe.HIncrBy(ctx, key, fieldVideoCount, 1)
	case model.FormatAudio:
		pipe.HIncrBy(ctx, key, fieldAudioCount, 1)
	}
	pipe.HSet(ctx, key, fieldLastDownload, d.At.Unix())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// User implements Tracker
func (t *RedisTracker) User(ctx context.Context, identity string) (UserStats, bool, error) {
	fields, err := t.client.HGetAll(ctx, t.key(userHashKey, identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return UserStats{}, false, nil
		}
		return UserStats{}, false, fmt.Errorf("failed to load user stats: %w", err)
	}
	if len(fields) == 0 {
		return UserStats{}, false, nil
	}
	return parseUserFields(fields), true, nil
}

// Global implements Tracker
func (t *RedisTracker) Global(ctx context.Context) (GlobalStats, error) {
	ids, err := t.client.SMembers(ctx, t.key(usersSetKey)).Result()
	if err != nil {
		return GlobalStats{}, fmt.Errorf("failed to list users: %w", err)
	}

	pipe := t.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, pipe.HGetAll(ctx, t.key(userHashKey, id)))
	}
	if len(cmds) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return GlobalStats{}, fmt.Errorf("failed to load user stats: %w", err)
		}
	}

	g := GlobalStats{Users: len(ids)}
	for _, cmd := range cmds {
		u := parseUserFields(cmd.Val())
		g.Downloads += u.Downloads
		g.TotalBytes += u.TotalBytes
	}
	return g, nil
}

// Close implements Tracker
func (t *RedisTracker) Close() error {
	return t.client.Close()
}

func parseUserFields(fields map[string]string) UserStats {
	atoi := func(key string) int64 {
		v, _ := strconv.ParseInt(fields[key], 10, 64)
		return v
	}

	u := UserStats{
		Downloads:  int(atoi(fieldDownloads)),
		TotalBytes: atoi(fieldTotalBytes),
		VideoCount: int(atoi(fieldVideoCount)),
		AudioCount: int(atoi(fieldAudioCount)),
	}
	if ts := atoi(fieldLastDownload); ts > 0 {
		u.LastDownload = time.Unix(ts, 0)
	}
	return u
}
