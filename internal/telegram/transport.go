// Package telegram connects the session registry to the Telegram Bot API
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/ytget/yt-bot/internal/session"
)

// API is the subset of *tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

var (
	_ API               = (*tgbotapi.BotAPI)(nil)
	_ session.Transport = (*Transport)(nil)
)

// Transport implements session.Transport on top of the Bot API. The Bot API
// client is not context aware: a call stops being waited for once ctx is done,
// and the client's HTTP timeout bounds the abandoned request.
type Transport struct {
	api API
	log zerolog.Logger
}

// NewTransport creates a transport for api
func NewTransport(api API, log zerolog.Logger) *Transport {
	return &Transport{api: api, log: log.With().Str("component", "transport").Logger()}
}

// SendText implements session.Transport
func (t *Transport) SendText(ctx context.Context, chat int64, text string, choices ...session.Choice) (session.MessageRef, error) {
	msg := tgbotapi.NewMessage(chat, text)
	if len(choices) > 0 {
		msg.ReplyMarkup = keyboard(choices)
	}

	sent, err := call(ctx, func() (tgbotapi.Message, error) { return t.api.Send(msg) })
	if err != nil {
		return session.MessageRef{}, fmt.Errorf("failed to send message: %w", err)
	}
	return session.MessageRef{Chat: chat, ID: sent.MessageID}, nil
}

// EditText implements session.Transport. Without choices the inline
// keyboard is removed.
func (t *Transport) EditText(ctx context.Context, ref session.MessageRef, text string, choices ...session.Choice) error {
	var edit tgbotapi.EditMessageTextConfig
	if len(choices) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(ref.Chat, ref.ID, text, keyboard(choices))
	} else {
		edit = tgbotapi.NewEditMessageText(ref.Chat, ref.ID, text)
	}

	if _, err := call(ctx, func() (tgbotapi.Message, error) { return t.api.Send(edit) }); err != nil {
		return fmt.Errorf("failed to edit message %d: %w", ref.ID, err)
	}
	return nil
}

// SendVideo implements session.Transport
func (t *Transport) SendVideo(ctx context.Context, chat int64, path, caption string) error {
	video := tgbotapi.NewVideo(chat, tgbotapi.FilePath(path))
	video.Caption = caption
	video.SupportsStreaming = true
	return t.upload(ctx, video, path)
}

// SendAudio implements session.Transport
func (t *Transport) SendAudio(ctx context.Context, chat int64, path, caption string) error {
	audio := tgbotapi.NewAudio(chat, tgbotapi.FilePath(path))
	audio.Caption = caption
	return t.upload(ctx, audio, path)
}

// SendDocument implements session.Transport
func (t *Transport) SendDocument(ctx context.Context, chat int64, path, caption string) error {
	doc := tgbotapi.NewDocument(chat, tgbotapi.FilePath(path))
	doc.Caption = caption
	return t.upload(ctx, doc, path)
}

func (t *Transport) upload(ctx context.Context, c tgbotapi.Chattable, path string) error {
	if _, err := call(ctx, func() (tgbotapi.Message, error) { return t.api.Send(c) }); err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	t.log.Debug().Str("file", path).Msg("file uploaded")
	return nil
}

// DeleteMessage implements session.Transport
func (t *Transport) DeleteMessage(ctx context.Context, ref session.MessageRef) error {
	del := tgbotapi.NewDeleteMessage(ref.Chat, ref.ID)
	if _, err := call(ctx, func() (*tgbotapi.APIResponse, error) { return t.api.Request(del) }); err != nil {
		return fmt.Errorf("failed to delete message %d: %w", ref.ID, err)
	}
	return nil
}

// keyboard lays all choices out on one row
func keyboard(choices []session.Choice) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Tag))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// call runs fn on its own goroutine and returns early with ctx's error
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
