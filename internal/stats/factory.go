package stats

import (
	"context"
	"fmt"
)

// Options selects and configures a backend
type Options struct {
	Backend      string
	RedisURL     string
	KeyPrefix    string
	LimitPerHour int
}

// New creates the tracker for opts.Backend
func New(ctx context.Context, opts Options) (Tracker, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryTracker(opts.LimitPerHour), nil
	case BackendRedis:
		tr, err := NewRedisTracker(ctx, opts.RedisURL, opts.LimitPerHour)
		if err != nil {
			return nil, err
		}
		if opts.KeyPrefix != "" {
			tr.SetKeyPrefix(opts.KeyPrefix)
		}
		return tr, nil
	default:
		return nil, fmt.Errorf("unknown stats backend %q", opts.Backend)
	}
}
