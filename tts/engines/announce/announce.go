// Package announce implements a speech backend that posts announcements
// to the host's screen reader.
package announce

import (
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/tts"
)

// DefaultName is reported when no screen reader can be named.
const DefaultName = "Screen Reader"

// maxSuffix bounds the duplicate-suppression padding.
const maxSuffix = 100

// versioned is implemented by narrators that know their screen reader's
// version.
type versioned interface {
	Version() string
}

// Backend speaks through a host Narrator.
type Backend struct {
	cfg      tts.AnnounceConfig
	state    *tts.StateMachine
	narrator tts.Narrator
	suffix   string
	logger   *log.Logger
}

// New creates an announcement backend.
func New(cfg tts.AnnounceConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		state:  tts.NewStateMachine(),
		logger: log.WithPrefix("announce"),
	}
}

// Name returns the active screen reader's name, or DefaultName.
func (b *Backend) Name() (name string) {
	name = DefaultName
	if b.narrator == nil {
		return name
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Debug("Narrator panicked while naming", "panic", r)
			name = DefaultName
		}
	}()

	if !b.narrator.Enabled() {
		return name
	}
	if services := b.narrator.SpokenFeedbackServices(); len(services) > 0 && services[0] != "" {
		return services[0]
	}
	return name
}

// Kind returns tts.KindAnnouncement.
func (b *Backend) Kind() tts.Kind {
	return tts.KindAnnouncement
}

// Initialize binds to the host narrator. It fails with
// tts.ErrBackendNotAvailable when there is no narrator, accessibility is
// off, or no spoken feedback service is running. It does nothing once
// the backend is ready.
func (b *Backend) Initialize(host tts.Host) error {
	if b.state.Current() == tts.StateReady {
		return nil
	}
	b.state.Transition(tts.StateInitializing)

	if host == nil {
		return b.fail(tts.ErrBackendNotAvailable)
	}

	narrator, err := host.Narrator()
	if err != nil || narrator == nil {
		b.logger.Debug("No narrator", "err", err)
		return b.fail(tts.ErrBackendNotAvailable)
	}

	if err := tts.Guard("availability", func() error { return checkAvailable(narrator) }); err != nil {
		return b.fail(err)
	}

	b.narrator = narrator
	b.state.Transition(tts.StateReady)
	b.logger.Debug("Ready", "narrator", b.Name(), "version", b.Version())
	return nil
}

// Version returns the screen reader's version when the narrator reports
// one, or "".
func (b *Backend) Version() string {
	v, ok := b.narrator.(versioned)
	if !ok {
		return ""
	}
	return v.Version()
}

func (b *Backend) fail(err error) error {
	b.state.Transition(tts.StateFailed)
	return err
}

// checkAvailable reports tts.ErrBackendNotAvailable unless the narrator is
// switched on with at least one spoken feedback service.
func checkAvailable(n tts.Narrator) error {
	if !n.Enabled() {
		return tts.ErrBackendNotAvailable
	}
	if len(n.SpokenFeedbackServices()) == 0 {
		return tts.ErrBackendNotAvailable
	}
	return nil
}

// Speak decodes the request and announces it.
func (b *Backend) Speak(req tts.SpeechRequest) error {
	if b.state.Current() != tts.StateReady {
		return tts.ErrNotInitialized
	}

	if err := tts.Guard("availability", func() error { return checkAvailable(b.narrator) }); err != nil {
		return err
	}

	text, err := tts.DecodeText(req.Text)
	if err != nil {
		return err
	}

	if req.Interrupt {
		if err := b.Stop(); err != nil {
			return err
		}
	}

	if b.cfg.SuppressDuplicates {
		text = b.pad(text)
	}

	err = tts.Guard("announce", func() error { return b.narrator.Announce(text) })
	switch {
	case err == tts.ErrInternal:
		return err
	case err != nil:
		b.logger.Debug("Announce failed", "err", err)
		return tts.ErrSpeakFailure
	}
	return nil
}

// pad appends a growing run of spaces so narrators that ignore repeated
// identical announcements still speak them.
func (b *Backend) pad(text string) string {
	out := text + b.suffix
	b.suffix += " "
	if len(b.suffix) > maxSuffix {
		b.suffix = ""
	}
	return out
}

// Output is Speak.
func (b *Backend) Output(req tts.SpeechRequest) error {
	return b.Speak(req)
}

// Stop interrupts the narrator.
func (b *Backend) Stop() error {
	if b.state.Current() != tts.StateReady {
		return tts.ErrNotInitialized
	}

	if err := tts.Guard("availability", func() error { return checkAvailable(b.narrator) }); err != nil {
		return err
	}

	if err := tts.Guard("interrupt", b.narrator.Interrupt); err != nil {
		b.logger.Debug("Interrupt failed", "err", err)
		return tts.AsBackendError(err, tts.ErrInternal)
	}
	return nil
}

// State returns the initialization state.
func (b *Backend) State() tts.InitState {
	return b.state.Current()
}

