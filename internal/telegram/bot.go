package telegram

import (
	"context"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/ytget/yt-bot/internal/messages"
	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/session"
	"github.com/ytget/yt-bot/internal/stats"
)

// Bot commands
const (
	CommandStart      = "start"
	CommandHelp       = "help"
	CommandStats      = "stats"
	CommandAdminStats = "admin_stats"
)

// Polling defaults
const (
	DefaultPollTimeout = 60
	lastDownloadLayout = "2006-01-02 15:04"
)

// Dispatcher receives session events; *session.Registry implements it
type Dispatcher interface {
	Dispatch(ctx context.Context, ev session.Event) error
}

var _ Dispatcher = (*session.Registry)(nil)

// Options configures a Bot
type Options struct {
	// Transport is shared with the sessions; one is created when nil
	Transport    *Transport
	Messages     *messages.Catalog
	Tracker      stats.Tracker
	AdminIDs     []int64
	MaxSizeBytes int64
	PollTimeout  int
	Log          zerolog.Logger
}

// Bot polls updates and turns them into session events. Commands that do
// not touch the session (help and statistics) are answered directly.
type Bot struct {
	api       API
	transport *Transport
	sessions  Dispatcher
	texts     *messages.Catalog
	tracker   stats.Tracker
	admins    map[int64]struct{}
	maxSize   int64
	timeout   int
	log       zerolog.Logger

	wg sync.WaitGroup
}

// NewBot creates a bot dispatching to sessions
func NewBot(api API, sessions Dispatcher, opts Options) *Bot {
	if opts.Messages == nil {
		opts.Messages = messages.NewCatalog(messages.LangEnglish)
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}

	if opts.Transport == nil {
		opts.Transport = NewTransport(api, opts.Log)
	}

	admins := make(map[int64]struct{}, len(opts.AdminIDs))
	for _, id := range opts.AdminIDs {
		admins[id] = struct{}{}
	}

	return &Bot{
		api:       api,
		transport: opts.Transport,
		sessions:  sessions,
		texts:     opts.Messages,
		tracker:   opts.Tracker,
		admins:    admins,
		maxSize:   opts.MaxSizeBytes,
		timeout:   opts.PollTimeout,
		log:       opts.Log.With().Str("component", "bot").Logger(),
	}
}

// Run polls updates until ctx is done, handling each on its own goroutine.
// It returns after every in-flight handler has finished.
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = b.timeout
	updates := b.api.GetUpdatesChan(cfg)

	b.log.Info().Msg("polling started")
	defer func() {
		b.api.StopReceivingUpdates()
		b.wg.Wait()
		b.log.Info().Msg("polling stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, upd)
			}()
		}
	}
}

// HandleUpdate routes one update
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	identity := identityOf(msg.From)
	chat := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case CommandStart:
			b.dispatch(ctx, session.SessionReset{From: identity, Chat: chat})
			return
		case CommandHelp:
			b.reply(ctx, chat, b.helpText())
			return
		case CommandStats:
			b.reply(ctx, chat, b.userStats(ctx, identity))
			return
		case CommandAdminStats:
			b.reply(ctx, chat, b.adminStats(ctx, msg.From.ID))
			return
		}
	}

	if msg.Text == "" {
		b.reply(ctx, chat, b.texts.Text(messages.KeyNotUnderstood))
		return
	}

	b.dispatch(ctx, session.TextSubmission{From: identity, Chat: chat, Text: msg.Text})
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// Stop the client spinner first
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.log.Debug().Err(err).Msg("failed to answer callback")
	}
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return
	}

	chat := q.Message.Chat.ID
	if q.Data == session.HelpChoiceTag {
		b.reply(ctx, chat, b.helpText())
		return
	}

	b.dispatch(ctx, session.ButtonChoice{
		From:    identityOf(q.From),
		Chat:    chat,
		Message: session.MessageRef{Chat: chat, ID: q.Message.MessageID},
		Tag:     q.Data,
	})
}

func (b *Bot) dispatch(ctx context.Context, ev session.Event) {
	// The session replies to the user itself; errors are only logged
	if err := b.sessions.Dispatch(ctx, ev); err != nil {
		b.log.Debug().Err(err).Str("identity", ev.Identity()).Msg("event rejected")
	}
}

func (b *Bot) reply(ctx context.Context, chat int64, text string) {
	if _, err := b.transport.SendText(ctx, chat, text); err != nil {
		b.log.Warn().Err(err).Int64("chat", chat).Msg("failed to reply")
	}
}

func (b *Bot) helpText() string {
	return b.texts.Format(messages.KeyHelp, b.maxSize/(1024*1024))
}

func (b *Bot) userStats(ctx context.Context, identity string) string {
	if b.tracker == nil {
		return b.texts.Text(messages.KeyStatsUnavailable)
	}

	us, ok, err := b.tracker.User(ctx, identity)
	if err != nil {
		b.log.Warn().Err(err).Str("identity", identity).Msg("failed to read user stats")
		return b.texts.Text(messages.KeyStatsUnavailable)
	}
	if !ok || us.Downloads == 0 {
		return b.texts.Text(messages.KeyStatsEmpty)
	}

	favorite := b.texts.Text(messages.KeyStatsUnknownFav)
	switch us.FavoriteFormat() {
	case model.FormatVideo:
		favorite = b.texts.Text(messages.KeyFormatNameVideo)
	case model.FormatAudio:
		favorite = b.texts.Text(messages.KeyFormatNameAudio)
	}

	last := "-"
	if !us.LastDownload.IsZero() {
		last = us.LastDownload.In(time.Local).Format(lastDownloadLayout)
	}

	return b.texts.Format(messages.KeyStatsUser, us.Downloads, us.TotalSizeMB(), favorite, last)
}

func (b *Bot) adminStats(ctx context.Context, userID int64) string {
	if _, ok := b.admins[userID]; !ok {
		return b.texts.Text(messages.KeyAccessDenied)
	}
	if b.tracker == nil {
		return b.texts.Text(messages.KeyStatsUnavailable)
	}

	gs, err := b.tracker.Global(ctx)
	if err != nil {
		b.log.Warn().Err(err).Msg("failed to read global stats")
		return b.texts.Text(messages.KeyStatsUnavailable)
	}
	return b.texts.Format(messages.KeyStatsAdmin, gs.Users, gs.Downloads, gs.TotalSizeMB())
}

func identityOf(u *tgbotapi.User) string {
	return strconv.FormatInt(u.ID, 10)
}
