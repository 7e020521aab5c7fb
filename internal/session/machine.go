package session

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytget/yt-bot/internal/delivery"
	"github.com/ytget/yt-bot/internal/download"
	"github.com/ytget/yt-bot/internal/messages"
	"github.com/ytget/yt-bot/internal/model"
	"github.com/ytget/yt-bot/internal/platform"
	"github.com/ytget/yt-bot/internal/stats"
	"github.com/ytget/yt-bot/internal/store"
)

// HelpChoiceTag is the tag of the help button attached to the welcome message
const HelpChoiceTag = "help_info"

var (
	// ErrBusy is returned when an identity submits input while its previous
	// probe or fetch is still running
	ErrBusy = errors.New("session busy")
	// ErrStaleChoice is returned when a format is chosen but no source is held
	ErrStaleChoice = errors.New("format chosen without a source")
	// ErrUnexpectedInput is returned for input the current state does not accept
	ErrUnexpectedInput = errors.New("input not expected in current state")

	errPanic          = errors.New("session pipeline panicked")
	errDeliveryFailed = errors.New("delivery failed")
)

// Deps are the collaborators shared by all machines
type Deps struct {
	Transport        Transport
	Prober           Prober
	Fetcher          download.Fetcher
	Store            *store.Store
	Messages         *messages.Catalog
	Tracker          Tracker
	Observer         Observer
	MaxSizeBytes     int64
	RateLimitPerHour int
	Log              zerolog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Messages == nil {
		d.Messages = messages.NewCatalog(messages.LangEnglish)
	}
	if d.Tracker == nil {
		d.Tracker = nopTracker{}
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.MaxSizeBytes <= 0 {
		d.MaxSizeBytes = delivery.DefaultMaxSizeBytes
	}
	return d
}

// Machine is the conversation state of one identity. Its mutex guards the
// fields below and is never held while probing, fetching or talking to the
// transport; inFlight and gen serialize operations instead.
type Machine struct {
	identity string
	deps     Deps
	log      zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     model.SessionState
	sourceRef string
	probe     model.ProbeResult
	workDir   *store.WorkDir
	inFlight  bool
	gen       uint64
	cancel    context.CancelFunc
	lastSeen  time.Time
}

// NewMachine creates a machine in AwaitingSource
func NewMachine(identity string, deps Deps) *Machine {
	deps = deps.withDefaults()
	return &Machine{
		identity: identity,
		deps:     deps,
		log:      deps.Log.With().Str("identity", identity).Logger(),
		now:      time.Now,
		state:    model.StateAwaitingSource,
		lastSeen: time.Now(),
	}
}

// Identity returns the identity the machine serves
func (m *Machine) Identity() string {
	return m.identity
}

// State returns the current state
func (m *Machine) State() model.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Source returns the validated source held for the format prompt
func (m *Machine) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sourceRef
}

// WorkDir returns the live work directory, nil outside Fetching
func (m *Machine) WorkDir() *store.WorkDir {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workDir
}

// Busy reports whether a probe or fetch is running
func (m *Machine) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}

// LastSeen returns the time of the last event
func (m *Machine) LastSeen() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeen
}

// Cancel aborts the running operation, if any. Teardown still happens on the
// goroutine that started the operation.
func (m *Machine) Cancel() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (m *Machine) touch() {
	m.mu.Lock()
	m.lastSeen = m.now()
	m.mu.Unlock()
}

// Handle applies ev and blocks until the resulting transition completes,
// including any probe, fetch and delivery it starts. The returned error
// describes the failure already reported to the user; it is for logging.
func (m *Machine) Handle(ctx context.Context, ev Event) error {
	m.touch()

	switch e := ev.(type) {
	case SessionReset:
		return m.reset(ctx, e)
	case TextSubmission:
		return m.submit(ctx, e)
	case ButtonChoice:
		return m.choose(ctx, e)
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
}

// beginLocked marks an operation as running and returns its generation
func (m *Machine) beginLocked(parent context.Context) (uint64, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	m.gen++
	m.inFlight = true
	m.cancel = cancel
	return m.gen, ctx
}

// endLocked finishes operation gen. It returns false when the operation was
// superseded by a reset, in which case the machine state is left alone.
func (m *Machine) endLocked(gen uint64) bool {
	if m.gen != gen {
		return false
	}
	m.inFlight = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	return true
}

func (m *Machine) reset(ctx context.Context, e SessionReset) error {
	m.mu.Lock()
	cancel := m.cancel
	wasInFlight := m.inFlight
	prev := m.state
	m.gen++
	m.inFlight = false
	m.cancel = nil
	m.state = model.StateAwaitingSource
	m.sourceRef = ""
	m.probe = model.ProbeResult{}
	m.workDir = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.log.Info().Str("state", prev.String()).Bool("cancelled", wasInFlight).Msg("session reset")

	m.send(ctx, e.Chat, m.welcomeText(), Choice{Label: m.text(messages.KeyButtonHelp), Tag: HelpChoiceTag})
	return nil
}

func (m *Machine) submit(ctx context.Context, e TextSubmission) error {
	source := platform.NormalizeSource(e.Text)

	m.mu.Lock()
	switch {
	case m.inFlight:
		m.mu.Unlock()
		m.send(ctx, e.Chat, m.text(messages.KeyBusy))
		return ErrBusy
	case m.state != model.StateAwaitingSource:
		m.mu.Unlock()
		m.send(ctx, e.Chat, m.text(messages.KeyNotUnderstood))
		return ErrUnexpectedInput
	case !platform.ValidateSource(source):
		m.mu.Unlock()
		m.send(ctx, e.Chat, m.text(messages.KeyBadLink))
		return platform.ErrInvalidSource
	}
	gen, opCtx := m.beginLocked(ctx)
	m.mu.Unlock()

	m.deps.Observer.SessionStarted()
	log := m.log.With().Str("source", source).Logger()
	status := m.send(ctx, e.Chat, m.text(messages.KeyChecking))

	var result model.ProbeResult
	err := m.protect(func() error {
		var perr error
		result, perr = m.deps.Prober.Probe(opCtx, source)
		return perr
	})
	aborted := opCtx.Err() != nil

	m.mu.Lock()
	current := m.endLocked(gen)
	if current && err == nil && !aborted {
		m.state = model.StateAwaitingFormat
		m.sourceRef = source
		m.probe = result
	}
	m.mu.Unlock()

	switch {
	case !current || aborted:
		m.deps.Observer.ProbeFinished(OutcomeCancelled)
		m.discard(ctx, status)
		return context.Canceled
	case platform.IsProbeTimeout(err):
		m.deps.Observer.ProbeFinished(OutcomeTimeout)
		m.reply(ctx, e.Chat, status, m.text(messages.KeyProbeTimeout))
		return err
	case errors.Is(err, errPanic):
		m.deps.Observer.ProbeFinished(OutcomeFailed)
		m.reply(ctx, e.Chat, status, m.text(messages.KeyInternalError))
		return err
	case err != nil:
		m.deps.Observer.ProbeFinished(OutcomeFailed)
		m.reply(ctx, e.Chat, status, m.text(messages.KeyProbeNotFound))
		return err
	}

	m.deps.Observer.ProbeFinished(OutcomeSuccess)
	log.Info().Str("title", result.Title).Int("duration_sec", result.DurationSeconds).Msg("awaiting format")
	prompt := m.deps.Messages.Format(messages.KeyFormatPrompt,
		result.GetDisplayTitle(model.TitleTruncateLimit), result.GetDurationMinutes())
	m.reply(ctx, e.Chat, status, prompt, m.formatChoices()...)
	return nil
}

func (m *Machine) choose(ctx context.Context, e ButtonChoice) error {
	format, ok := model.ParseFormatChoice(e.Tag)

	m.mu.Lock()
	switch {
	case m.inFlight:
		m.mu.Unlock()
		m.send(ctx, e.Chat, m.text(messages.KeyBusy))
		return ErrBusy
	case !ok || m.state != model.StateAwaitingFormat:
		m.mu.Unlock()
		m.send(ctx, e.Chat, m.text(messages.KeyNotUnderstood))
		return ErrUnexpectedInput
	case m.sourceRef == "":
		m.state = model.StateAwaitingSource
		m.mu.Unlock()
		m.log.Error().Msg("format chosen without a source")
		m.send(ctx, e.Chat, m.text(messages.KeyStaleChoice))
		return ErrStaleChoice
	}
	source, probe := m.sourceRef, m.probe
	gen, opCtx := m.beginLocked(ctx)
	m.mu.Unlock()

	log := m.log.With().Str("source", source).Str("format", string(format)).Logger()
	status := e.Message

	if err := m.deps.Tracker.Allow(ctx, m.identity); err != nil {
		if errors.Is(err, stats.ErrRateLimited) {
			m.mu.Lock()
			m.endLocked(gen)
			m.mu.Unlock()

			m.deps.Observer.FetchFinished(OutcomeLimited, 0)
			log.Info().Msg("rate limited")
			m.reply(ctx, e.Chat, status, m.deps.Messages.Format(messages.KeyRateLimited, m.deps.RateLimitPerHour), m.formatChoices()...)
			return err
		}
		log.Warn().Err(err).Msg("rate limit check failed, allowing")
	}

	wd, err := m.deps.Store.Acquire(m.identity)
	if err != nil {
		m.mu.Lock()
		if m.endLocked(gen) {
			m.state = model.StateAwaitingSource
			m.sourceRef = ""
		}
		m.mu.Unlock()

		log.Error().Err(err).Msg("failed to acquire work dir")
		m.reply(ctx, e.Chat, status, m.text(messages.KeyInternalError))
		return fmt.Errorf("failed to acquire work dir: %w", err)
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		_ = wd.Release()
		return context.Canceled
	}
	m.state = model.StateFetching
	m.workDir = wd
	m.mu.Unlock()

	log.Info().Str("state", model.StateFetching.String()).Str("work_dir", wd.Path()).Msg("fetch pipeline started")
	err = m.protect(func() error {
		return m.pipeline(ctx, opCtx, e.Chat, status, source, probe, format, wd)
	})
	aborted := opCtx.Err() != nil

	// Release logs its own failures
	_ = wd.Release()

	m.mu.Lock()
	current := m.endLocked(gen)
	if current {
		m.state = model.StateAwaitingSource
		m.sourceRef = ""
		m.probe = model.ProbeResult{}
		m.workDir = nil
	}
	m.mu.Unlock()

	switch {
	case err == nil:
		return nil
	case !current || aborted:
		m.discard(ctx, status)
		return context.Canceled
	}

	log.Warn().Err(err).Msg("fetch pipeline failed")
	m.reply(ctx, e.Chat, status, m.describe(err))
	return err
}

// pipeline runs fetch, classification and delivery inside wd
func (m *Machine) pipeline(ctx, opCtx context.Context, chat int64, status MessageRef, source string,
	probe model.ProbeResult, format model.Format, wd *store.WorkDir) error {
	m.edit(ctx, status, m.text(messages.KeyDownloading))

	started := time.Now()
	outcome := m.deps.Fetcher.Fetch(opCtx, source, format, wd.Path())
	m.deps.Observer.FetchFinished(fetchOutcomeLabel(outcome.Err), time.Since(started))
	if outcome.Err != nil {
		return outcome.Err
	}
	if err := opCtx.Err(); err != nil {
		return err
	}

	plan, err := delivery.Classify(outcome.Files, format, m.deps.MaxSizeBytes)
	if err != nil {
		return err
	}

	m.edit(ctx, status, m.text(messages.KeyUploading))
	caption := m.deps.Messages.Format(messages.KeyCaption, m.formatName(format), model.SizeMB(plan.SizeBytes), plan.FileName)
	if err := m.deliver(opCtx, chat, plan, caption); err != nil {
		return fmt.Errorf("%w: %v", errDeliveryFailed, err)
	}
	m.deps.Observer.Delivered(plan.Kind)

	m.log.Info().
		Str("kind", string(plan.Kind)).
		Str("file", plan.FileName).
		Int64("size_bytes", plan.SizeBytes).
		Msg("artifact delivered")

	d := stats.Download{Title: probe.Title, Format: format, SizeBytes: plan.SizeBytes, At: m.now()}
	if err := m.deps.Tracker.Record(ctx, m.identity, d); err != nil {
		m.log.Warn().Err(err).Msg("failed to record download")
	}

	m.discard(ctx, status)
	return nil
}

func (m *Machine) deliver(ctx context.Context, chat int64, plan delivery.Plan, caption string) error {
	switch plan.Kind {
	case model.DeliveryVideo:
		return m.deps.Transport.SendVideo(ctx, chat, plan.Path, caption)
	case model.DeliveryAudio:
		return m.deps.Transport.SendAudio(ctx, chat, plan.Path, caption)
	default:
		return m.deps.Transport.SendDocument(ctx, chat, plan.Path, caption)
	}
}

// protect converts a panic in fn into an error
func (m *Machine) protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("recovered from panic in session pipeline")
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return fn()
}

// describe maps a pipeline error to the user-facing text
func (m *Machine) describe(err error) string {
	var oversize *delivery.OversizeError
	switch {
	case errors.Is(err, download.ErrFetchTimeout):
		return m.text(messages.KeyFetchTimeout)
	case errors.As(err, &oversize):
		return m.deps.Messages.Format(messages.KeyOversize, model.SizeMB(oversize.Size), model.SizeMB(oversize.Limit))
	case errors.Is(err, delivery.ErrNoOutput):
		return m.text(messages.KeyNoOutput)
	case errors.Is(err, download.ErrToolFailed):
		return m.text(messages.KeyFetchFailed)
	default:
		return m.text(messages.KeyInternalError)
	}
}

func fetchOutcomeLabel(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, download.ErrFetchTimeout):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}

func (m *Machine) text(key string) string {
	return m.deps.Messages.Text(key)
}

func (m *Machine) welcomeText() string {
	return m.deps.Messages.Format(messages.KeyWelcome, m.deps.MaxSizeBytes/(1024*1024))
}

func (m *Machine) formatName(format model.Format) string {
	if format == model.FormatAudio {
		return m.text(messages.KeyFormatNameAudio)
	}
	return m.text(messages.KeyFormatNameVideo)
}

func (m *Machine) formatChoices() []Choice {
	return []Choice{
		{Label: m.text(messages.KeyButtonVideo), Tag: model.FormatVideo.ChoiceTag()},
		{Label: m.text(messages.KeyButtonAudio), Tag: model.FormatAudio.ChoiceTag()},
	}
}

// send posts a new message; failures are logged and yield a zero ref
func (m *Machine) send(ctx context.Context, chat int64, text string, choices ...Choice) MessageRef {
	ref, err := m.deps.Transport.SendText(ctx, chat, text, choices...)
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to send message")
		return MessageRef{}
	}
	return ref
}

// edit rewrites a status message in place
func (m *Machine) edit(ctx context.Context, ref MessageRef, text string, choices ...Choice) bool {
	if ref.IsZero() {
		return false
	}
	if err := m.deps.Transport.EditText(ctx, ref, text, choices...); err != nil {
		m.log.Debug().Err(err).Int("message_id", ref.ID).Msg("failed to edit message")
		return false
	}
	return true
}

// reply edits the status message, or sends a new one when that is impossible
func (m *Machine) reply(ctx context.Context, chat int64, ref MessageRef, text string, choices ...Choice) {
	if m.edit(ctx, ref, text, choices...) {
		return
	}
	m.send(ctx, chat, text, choices...)
}

// discard removes a status message that no longer applies
func (m *Machine) discard(ctx context.Context, ref MessageRef) {
	if ref.IsZero() {
		return
	}
	if err := m.deps.Transport.DeleteMessage(ctx, ref); err != nil {
		m.log.Debug().Err(err).Int("message_id", ref.ID).Msg("failed to delete message")
	}
}
