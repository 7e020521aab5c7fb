package telegram

import (
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// pollMargin keeps the HTTP timeout above the long-poll wait
const pollMargin = 30 * time.Second

// NewAPI connects to the Bot API with an HTTP client bounded by timeout, so a
// stalled upload cannot hold a session forever
func NewAPI(token string, timeout time.Duration) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, newHTTPClient(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return api, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if floor := time.Duration(DefaultPollTimeout)*time.Second + pollMargin; timeout < floor {
		timeout = floor
	}
	return &http.Client{Timeout: timeout}
}
