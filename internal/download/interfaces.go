package download

import (
	"context"

	"github.com/ytget/yt-bot/internal/model"
)

// Fetcher defines the interface for the fetch executor.
type Fetcher interface {
	// Fetch runs a single attempt and reports the artifacts written to workDir.
	Fetch(ctx context.Context, source string, format model.Format, workDir string) model.FetchOutcome
}

var _ Fetcher = (*Service)(nil)
