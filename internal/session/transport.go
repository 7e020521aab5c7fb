package session

import (
	"context"
	"time"

	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/stats"
)

// MessageRef identifies a message previously sent by the bot
type MessageRef struct {
	Chat int64
	ID   int
}

// IsZero reports whether ref points at no message
func (r MessageRef) IsZero() bool {
	return r.ID == 0
}

// Choice is one inline button
type Choice struct {
	Label string
	Tag   string
}

// Transport is the outbound side of the chat platform
type Transport interface {
	SendText(ctx context.Context, chat int64, text string, choices ...Choice) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, choices ...Choice) error
	SendVideo(ctx context.Context, chat int64, path, caption string) error
	SendAudio(ctx context.Context, chat int64, path, caption string) error
	SendDocument(ctx context.Context, chat int64, path, caption string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
}

// Prober fetches source metadata
type Prober interface {
	Probe(ctx context.Context, source string) (model.ProbeResult, error)
}

// Tracker enforces the download limit and records deliveries
type Tracker interface {
	Allow(ctx context.Context, identity string) error
	Record(ctx context.Context, identity string, d stats.Download) error
}

// Observer receives pipeline events for metrics
type Observer interface {
	SessionStarted()
	ProbeFinished(outcome string)
	FetchFinished(outcome string, elapsed time.Duration)
	Delivered(kind model.DeliveryKind)
}

// Outcome labels reported to the Observer
const (
	OutcomeSuccess   = "success"
	OutcomeTimeout   = "timeout"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeLimited   = "rate_limited"
)

type nopObserver struct{}

func (nopObserver) SessionStarted()                     {}
func (nopObserver) ProbeFinished(string)                {}
func (nopObserver) FetchFinished(string, time.Duration) {}
func (nopObserver) Delivered(model.DeliveryKind)        {}

type nopTracker struct{}

func (nopTracker) Allow(context.Context, string) error                 { return nil }
func (nopTracker) Record(context.Context, string, stats.Download) error { return nil }
