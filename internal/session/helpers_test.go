package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ytget/yt-bot/internal/messages"
	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/store"
)

const (
	testIdentity = "42"
	testChat     = int64(4242)
	testSource   = "https://www.youtube.com/watch?v=abc"
)

type call struct {
	Kind        string
	Chat        int64
	Ref         MessageRef
	Text        string
	Choices     []Choice
	Path        string
	PathExisted bool
}

type fakeTransport struct {
	mu     sync.Mutex
	nextID int
	calls  []call
	// upload, when set, runs before every delivery is recorded
	upload func(ctx context.Context) error
}

func (f *fakeTransport) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeTransport) SendText(_ context.Context, chat int64, text string, choices ...Choice) (MessageRef, error) {
	f.mu.Lock()
	f.nextID++
	ref := MessageRef{Chat: chat, ID: f.nextID}
	f.calls = append(f.calls, call{Kind: "send", Chat: chat, Ref: ref, Text: text, Choices: choices})
	f.mu.Unlock()
	return ref, nil
}

func (f *fakeTransport) EditText(_ context.Context, ref MessageRef, text string, choices ...Choice) error {
	f.record(call{Kind: "edit", Chat: ref.Chat, Ref: ref, Text: text, Choices: choices})
	return nil
}

func (f *fakeTransport) deliverCall(ctx context.Context, kind string, chat int64, path, caption string) error {
	if f.upload != nil {
		if err := f.upload(ctx); err != nil {
			return err
		}
	}
	_, err := os.Stat(path)
	f.record(call{Kind: kind, Chat: chat, Text: caption, Path: path, PathExisted: err == nil})
	return nil
}

func (f *fakeTransport) SendVideo(ctx context.Context, chat int64, path, caption string) error {
	return f.deliverCall(ctx, "video", chat, path, caption)
}

func (f *fakeTransport) SendAudio(ctx context.Context, chat int64, path, caption string) error {
	return f.deliverCall(ctx, "audio", chat, path, caption)
}

func (f *fakeTransport) SendDocument(ctx context.Context, chat int64, path, caption string) error {
	return f.deliverCall(ctx, "document", chat, path, caption)
}

func (f *fakeTransport) DeleteMessage(_ context.Context, ref MessageRef) error {
	f.record(call{Kind: "delete", Chat: ref.Chat, Ref: ref})
	return nil
}

func (f *fakeTransport) all() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeTransport) deliveries() []call {
	var out []call
	for _, c := range f.all() {
		switch c.Kind {
		case "video", "audio", "document":
			out = append(out, c)
		}
	}
	return out
}

// lastText returns the text of the last send or edit
func (f *fakeTransport) lastText() string {
	calls := f.all()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Kind == "send" || calls[i].Kind == "edit" {
			return calls[i].Text
		}
	}
	return ""
}

// lastPrompt returns the last message carrying choices
func (f *fakeTransport) lastPrompt() (call, bool) {
	calls := f.all()
	for i := len(calls) - 1; i >= 0; i-- {
		if len(calls[i].Choices) > 0 {
			return calls[i], true
		}
	}
	return call{}, false
}

type fakeProber struct {
	calls atomic.Int32
	fn    func(ctx context.Context, source string) (model.ProbeResult, error)
}

func (p *fakeProber) Probe(ctx context.Context, source string) (model.ProbeResult, error) {
	p.calls.Add(1)
	if p.fn == nil {
		return model.ProbeResult{Title: "Song X", DurationSeconds: 125}, nil
	}
	return p.fn(ctx, source)
}

type fakeFetcher struct {
	calls   atomic.Int32
	workDir atomic.Value
	fn      func(ctx context.Context, source string, format model.Format, workDir string) model.FetchOutcome
}

func (f *fakeFetcher) Fetch(ctx context.Context, source string, format model.Format, workDir string) model.FetchOutcome {
	f.calls.Add(1)
	f.workDir.Store(workDir)
	return f.fn(ctx, source, format, workDir)
}

func (f *fakeFetcher) lastWorkDir() string {
	v, _ := f.workDir.Load().(string)
	return v
}

// produce returns a fetch func that writes name with size bytes into workDir
func produce(t *testing.T, name string, size int64) func(context.Context, string, model.Format, string) model.FetchOutcome {
	return func(_ context.Context, _ string, _ model.Format, workDir string) model.FetchOutcome {
		path := filepath.Join(workDir, name)
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, f.Truncate(size))
		require.NoError(t, f.Close())
		return model.FetchOutcome{ArtifactPath: path, SizeBytes: size, Files: []string{path}}
	}
}

type harness struct {
	transport *fakeTransport
	prober    *fakeProber
	fetcher   *fakeFetcher
	store     *store.Store
	deps      Deps
	machine   *Machine
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "temp_downloads"), zerolog.Nop())
	require.NoError(t, err)

	h := &harness{
		transport: &fakeTransport{},
		prober:    &fakeProber{},
		fetcher:   &fakeFetcher{},
		store:     st,
	}
	h.deps = Deps{
		Transport: h.transport,
		Prober:    h.prober,
		Fetcher:   h.fetcher,
		Store:     st,
		Messages:  messages.NewCatalog(messages.LangEnglish),
		Log:       zerolog.Nop(),
	}
	h.machine = NewMachine(testIdentity, h.deps)
	return h
}

// rebuild recreates the machine after deps were changed
func (h *harness) rebuild() {
	h.machine = NewMachine(testIdentity, h.deps)
}

func (h *harness) text(key string) string {
	return h.deps.Messages.Text(key)
}

func (h *harness) submit(t *testing.T, text string) error {
	t.Helper()
	return h.machine.Handle(context.Background(), TextSubmission{From: testIdentity, Chat: testChat, Text: text})
}

// choose presses a button on the last prompt
func (h *harness) choose(t *testing.T, tag string) error {
	t.Helper()
	prompt, _ := h.transport.lastPrompt()
	return h.machine.Handle(context.Background(), ButtonChoice{From: testIdentity, Chat: testChat, Message: prompt.Ref, Tag: tag})
}

// assertNoSessionDirs checks the store root holds no session directory
func (h *harness) assertNoSessionDirs(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.store.Root())
	require.NoError(t, err)
	require.Empty(t, entries, "session directories left behind")
	require.Equal(t, 0, h.store.Live())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}
