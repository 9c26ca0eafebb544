// Package synth implements a speech backend that drives a host
// speech-synthesis engine.
package synth

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/tts"
	"github.com/dgnsrekt/narrate/tts/engines"
	"github.com/dgnsrekt/narrate/tts/sentence"
	ttssync "github.com/dgnsrekt/narrate/tts/sync"
)

// DefaultName is reported before an engine is bound.
const DefaultName = "Text to Speech"

// Option configures a Backend.
type Option func(*Backend)

// WithInitTimeout overrides the bounded wait for engine readiness.
func WithInitTimeout(d time.Duration) Option {
	return func(b *Backend) {
		b.initTimeout = d
	}
}

// Backend speaks through a host Synthesizer.
type Backend struct {
	cfg         tts.EngineConfig
	initTimeout time.Duration
	sync        *ttssync.Synchronizer
	synth       tts.Synthesizer
	logger      *log.Logger

	// Captured at initialization.
	voices []tts.Voice
	voice  tts.Voice
	rate   float32
	pitch  float32
	volume float32
}

// New creates an engine backend.
func New(cfg tts.EngineConfig, opts ...Option) *Backend {
	b := &Backend{
		cfg:    cfg,
		logger: log.WithPrefix("synth"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.sync = ttssync.NewSynchronizer(b.initTimeout)
	return b
}

// Name returns the bound engine's name, or DefaultName.
func (b *Backend) Name() (name string) {
	name = DefaultName
	if b.synth == nil {
		return name
	}

	defer func() {
		if r := recover(); r != nil {
			name = DefaultName
		}
	}()

	if n := b.synth.Name(); n != "" {
		return n
	}
	return name
}

// Kind returns tts.KindEngine.
func (b *Backend) Kind() tts.Kind {
	return tts.KindEngine
}

// Initialize binds to the host engine and waits, bounded, for it to
// report readiness. It does nothing once the backend is ready.
func (b *Backend) Initialize(host tts.Host) error {
	if b.sync.Ready() {
		return nil
	}

	err := b.sync.Initialize(func(signal func(ok bool)) error {
		if host == nil {
			return tts.ErrBackendNotAvailable
		}
		s, err := host.Synthesizer()
		if err != nil {
			return err
		}
		if s == nil {
			return tts.ErrBackendNotAvailable
		}
		b.synth = s
		return s.Bind(signal)
	})
	if err != nil {
		b.synth = nil
		return err
	}

	if err := tts.Guard("configure", b.configure); err != nil {
		b.logger.Warn("Could not apply engine defaults", "engine", b.Name(), "err", err)
	}
	b.logger.Debug("Ready", "engine", b.Name(), "voices", len(b.voices), "voice", b.voice.ID)
	return nil
}

// configure applies the configured parameters and captures the voices.
func (b *Backend) configure() error {
	b.rate = orNormal(b.cfg.Rate)
	b.pitch = orNormal(b.cfg.Pitch)
	b.volume = b.cfg.Volume

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(b.synth.SetRate(b.rate))
	keep(b.synth.SetPitch(b.pitch))
	keep(b.synth.SetVolume(b.volume))

	b.voices = engines.FilterLocalVoices(b.synth.Voices())
	if v, ok := engines.DefaultVoice(b.voices, b.cfg.Voice, b.cfg.Language); ok {
		if err := b.synth.SetVoice(v.ID); err != nil {
			keep(err)
		} else {
			b.voice = v
		}
	}

	return firstErr
}

// orNormal maps an unset rate or pitch to 1.0. Zero is below their range;
// a volume of zero is a real setting and is not passed through here.
func orNormal(v float32) float32 {
	if v == 0 {
		return 1.0
	}
	return v
}

// Speak decodes the request and queues it, split into segments the engine
// accepts. The first segment flushes the queue when the request
// interrupts; the rest are appended. Segments queued before a failing one
// stay queued.
func (b *Backend) Speak(req tts.SpeechRequest) error {
	if !b.sync.Ready() {
		return tts.ErrNotInitialized
	}

	text, err := tts.DecodeText(req.Text)
	if err != nil {
		return err
	}

	var segments []string
	if err := tts.Guard("split", func() error {
		segments = sentence.Split(text, b.cfg.SoftLimit, b.synth.MaxInputLength())
		return nil
	}); err != nil {
		return err
	}

	for i, segment := range segments {
		mode := tts.QueueAdd
		if i == 0 && req.Interrupt {
			mode = tts.QueueFlush
		}

		err := tts.Guard("speak", func() error { return b.synth.Speak(segment, mode) })
		switch {
		case err == tts.ErrInternal:
			return err
		case err != nil:
			b.logger.Debug("Segment rejected", "segment", i, "of", len(segments), "err", err)
			return tts.ErrSpeakFailure
		}
	}
	return nil
}

// Output is Speak.
func (b *Backend) Output(req tts.SpeechRequest) error {
	return b.Speak(req)
}

// IsSpeaking reports whether the engine is producing speech.
func (b *Backend) IsSpeaking() (bool, error) {
	if !b.sync.Ready() {
		return false, tts.ErrNotInitialized
	}

	var speaking bool
	err := tts.Guard("is_speaking", func() error {
		speaking = b.synth.IsSpeaking()
		return nil
	})
	return speaking, err
}

// Stop halts speech and clears the engine queue.
func (b *Backend) Stop() error {
	if !b.sync.Ready() {
		return tts.ErrNotInitialized
	}

	if err := tts.Guard("stop", b.synth.Stop); err != nil {
		b.logger.Debug("Stop rejected", "err", err)
		return tts.AsBackendError(err, tts.ErrInternal)
	}
	return nil
}

// State returns the initialization state.
func (b *Backend) State() tts.InitState {
	return b.sync.State()
}

// Voices returns the locally usable voices captured at initialization.
func (b *Backend) Voices() ([]tts.Voice, error) {
	if !b.sync.Ready() {
		return nil, tts.ErrNotInitialized
	}
	return append([]tts.Voice(nil), b.voices...), nil
}

// Voice returns the active voice. It fails with tts.ErrInternal when the
// engine has no usable voice.
func (b *Backend) Voice() (tts.Voice, error) {
	if !b.sync.Ready() {
		return tts.Voice{}, tts.ErrNotInitialized
	}
	if b.voice.ID == "" {
		return tts.Voice{}, tts.ErrInternal
	}
	return b.voice, nil
}

// SetVoice selects one of the voices returned by Voices.
func (b *Backend) SetVoice(id string) error {
	if !b.sync.Ready() {
		return tts.ErrNotInitialized
	}

	for _, v := range b.voices {
		if v.ID != id {
			continue
		}
		if err := tts.Guard("set_voice", func() error { return b.synth.SetVoice(id) }); err != nil {
			return tts.AsBackendError(err, tts.ErrInternal)
		}
		b.voice = v
		return nil
	}
	return tts.ErrInternal
}

// Rate returns the speech rate, 1.0 being normal.
func (b *Backend) Rate() (float32, error) {
	return b.get(b.rate)
}

// SetRate sets the speech rate.
func (b *Backend) SetRate(rate float32) error {
	return b.set(&b.rate, rate, tts.MinRate, tts.MaxRate, "set_rate", tts.Synthesizer.SetRate)
}

// Pitch returns the voice pitch, 1.0 being normal.
func (b *Backend) Pitch() (float32, error) {
	return b.get(b.pitch)
}

// SetPitch sets the voice pitch.
func (b *Backend) SetPitch(pitch float32) error {
	return b.set(&b.pitch, pitch, tts.MinPitch, tts.MaxPitch, "set_pitch", tts.Synthesizer.SetPitch)
}

// Volume returns the output volume in [0, 1].
func (b *Backend) Volume() (float32, error) {
	return b.get(b.volume)
}

// SetVolume sets the output volume.
func (b *Backend) SetVolume(volume float32) error {
	return b.set(&b.volume, volume, tts.MinVolume, tts.MaxVolume, "set_volume", tts.Synthesizer.SetVolume)
}

func (b *Backend) get(v float32) (float32, error) {
	if !b.sync.Ready() {
		return 0, tts.ErrNotInitialized
	}
	return v, nil
}

// set validates and applies one voice parameter. Out-of-range values and
// engine rejections fail with tts.ErrInternal.
func (b *Backend) set(field *float32, v, lo, hi float32, op string, apply func(tts.Synthesizer, float32) error) error {
	if !b.sync.Ready() {
		return tts.ErrNotInitialized
	}
	if v < lo || v > hi {
		return tts.ErrInternal
	}
	if err := tts.Guard(op, func() error { return apply(b.synth, v) }); err != nil {
		return tts.AsBackendError(err, tts.ErrInternal)
	}
	*field = v
	return nil
}
