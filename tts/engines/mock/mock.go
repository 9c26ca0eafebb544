// Package mock provides fake host mechanisms for testing speech backends.
package mock

import (
	"errors"
	"sync"
	"time"

	"github.com/dgnsrekt/narrate/tts"
)

// ErrMock is the default error injected by the failure controls.
var ErrMock = errors.New("mock mechanism failure")

// Call records one Speak call on a Synthesizer.
type Call struct {
	Text string
	Mode tts.QueueMode
}

// Synthesizer implements tts.Synthesizer for testing.
type Synthesizer struct {
	mu sync.Mutex

	// Configuration
	name     string
	maxInput int
	voices   []tts.Voice

	// Bind behavior
	bindDelay  time.Duration
	bindReady  bool
	bindErr    error
	neverReady bool
	binds      int

	// Control for testing
	failAt   int
	speakErr error
	stopErr  error
	paramErr error
	panicMsg string

	// State
	speaking  bool
	calls     []Call
	stopCount int
	voice     string
	rate      float32
	pitch     float32
	volume    float32
}

// NewSynthesizer creates a mock engine that becomes ready shortly after
// Bind.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		name:      "Mock Engine",
		maxInput:  4000,
		bindReady: true,
		voices: []tts.Voice{
			{ID: "mock-voice-1", Name: "Mock Voice 1", Language: "en-US", Installed: true},
			{ID: "mock-voice-2", Name: "Mock Voice 2", Language: "en-GB", Installed: true},
			{ID: "mock-voice-3", Name: "Mock Voice 3", Language: "de-DE", Installed: true},
			{ID: "mock-cloud", Name: "Mock Cloud Voice", Language: "en-US", Installed: true, RequiresNetwork: true},
			{ID: "mock-missing", Name: "Mock Missing Voice", Language: "fr-FR"},
		},
	}
}

// Name returns the engine name.
func (s *Synthesizer) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Bind reports readiness from a separate goroutine after the bind delay.
func (s *Synthesizer) Bind(ready func(ok bool)) error {
	s.mu.Lock()
	s.binds++
	err, never, delay, ok := s.bindErr, s.neverReady, s.bindDelay, s.bindReady
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if never {
		return nil
	}

	go func() {
		time.Sleep(delay)
		ready(ok)
	}()
	return nil
}

// Speak records the call, failing on the configured call number.
func (s *Synthesizer) Speak(text string, mode tts.QueueMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.panicMsg != "" {
		panic(s.panicMsg)
	}

	if s.failAt > 0 && len(s.calls)+1 == s.failAt {
		s.failAt = 0
		return s.speakErr
	}

	if mode == tts.QueueFlush {
		s.calls = s.calls[:0]
	}
	s.calls = append(s.calls, Call{Text: text, Mode: mode})
	s.speaking = true
	return nil
}

// Stop clears the queue.
func (s *Synthesizer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCount++
	if s.stopErr != nil {
		return s.stopErr
	}
	s.speaking = false
	return nil
}

// IsSpeaking reports whether anything has been spoken since the last Stop.
func (s *Synthesizer) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// MaxInputLength returns the configured utterance limit.
func (s *Synthesizer) MaxInputLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInput
}

// Voices returns every mock voice, including unusable ones.
func (s *Synthesizer) Voices() []tts.Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tts.Voice(nil), s.voices...)
}

// SetVoice selects a voice by ID.
func (s *Synthesizer) SetVoice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paramErr != nil {
		return s.paramErr
	}
	for _, v := range s.voices {
		if v.ID == id {
			s.voice = id
			return nil
		}
	}
	return ErrMock
}

// SetRate sets the speech rate.
func (s *Synthesizer) SetRate(rate float32) error {
	return s.setParam(&s.rate, rate)
}

// SetPitch sets the voice pitch.
func (s *Synthesizer) SetPitch(pitch float32) error {
	return s.setParam(&s.pitch, pitch)
}

// SetVolume sets the output volume.
func (s *Synthesizer) SetVolume(volume float32) error {
	return s.setParam(&s.volume, volume)
}

func (s *Synthesizer) setParam(field *float32, value float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paramErr != nil {
		return s.paramErr
	}
	*field = value
	return nil
}

// Test control methods

// SetName sets the engine name.
func (s *Synthesizer) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// SetBindDelay sets how long after Bind readiness is reported.
func (s *Synthesizer) SetBindDelay(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindDelay = delay
}

// SetBindResult sets the readiness status Bind reports.
func (s *Synthesizer) SetBindResult(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindReady = ok
}

// SetBindError makes Bind fail synchronously.
func (s *Synthesizer) SetBindError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindErr = err
}

// SetNeverReady makes Bind succeed without ever reporting readiness.
func (s *Synthesizer) SetNeverReady(never bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.neverReady = never
}

// FailSpeakAt makes the nth Speak call (counting from 1) fail with err.
func (s *Synthesizer) FailSpeakAt(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAt = n
	s.speakErr = err
}

// SetStopError makes Stop fail.
func (s *Synthesizer) SetStopError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopErr = err
}

// SetParamError makes every parameter setter fail.
func (s *Synthesizer) SetParamError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paramErr = err
}

// SetPanic makes Speak panic with msg. An empty msg disables it.
func (s *Synthesizer) SetPanic(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panicMsg = msg
}

// SetMaxInputLength sets the utterance limit.
func (s *Synthesizer) SetMaxInputLength(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxInput = n
}

// SetVoices replaces the voice list.
func (s *Synthesizer) SetVoices(voices []tts.Voice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices = voices
}

// Calls returns the queued utterances since the last flush.
func (s *Synthesizer) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// GetBindCount returns the number of Bind calls.
func (s *Synthesizer) GetBindCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binds
}

// GetStopCount returns the number of Stop calls.
func (s *Synthesizer) GetStopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCount
}

// Params returns the current voice, rate, pitch and volume.
func (s *Synthesizer) Params() (voice string, rate, pitch, volume float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice, s.rate, s.pitch, s.volume
}

// Narrator implements tts.Narrator for testing.
type Narrator struct {
	mu sync.Mutex

	enabled  bool
	services []string

	announceErr  error
	interruptErr error
	panicMsg     string

	announced  []string
	interrupts int
}

// NewNarrator creates an enabled mock screen reader.
func NewNarrator() *Narrator {
	return &Narrator{
		enabled:  true,
		services: []string{"Mock Reader"},
	}
}

// Enabled reports whether the accessibility layer is on.
func (n *Narrator) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

// SpokenFeedbackServices returns the configured services.
func (n *Narrator) SpokenFeedbackServices() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.panicMsg != "" {
		panic(n.panicMsg)
	}
	return append([]string(nil), n.services...)
}

// Announce records text.
func (n *Narrator) Announce(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.announceErr != nil {
		return n.announceErr
	}
	n.announced = append(n.announced, text)
	return nil
}

// Interrupt counts interruptions.
func (n *Narrator) Interrupt() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.interrupts++
	return n.interruptErr
}

// SetEnabled switches the accessibility layer on or off.
func (n *Narrator) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// SetServices replaces the spoken feedback services.
func (n *Narrator) SetServices(services ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.services = services
}

// SetAnnounceError makes Announce fail.
func (n *Narrator) SetAnnounceError(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.announceErr = err
}

// SetInterruptError makes Interrupt fail.
func (n *Narrator) SetInterruptError(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.interruptErr = err
}

// SetPanic makes SpokenFeedbackServices panic with msg.
func (n *Narrator) SetPanic(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.panicMsg = msg
}

// Announced returns every announced text in order.
func (n *Narrator) Announced() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.announced...)
}

// GetInterruptCount returns the number of Interrupt calls.
func (n *Narrator) GetInterruptCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.interrupts
}

// Host implements tts.Host with optional mock mechanisms. A nil field
// reports the mechanism as unavailable.
type Host struct {
	Narr  *Narrator
	Synth *Synthesizer
}

// NewHost creates a host offering both mechanisms.
func NewHost() *Host {
	return &Host{Narr: NewNarrator(), Synth: NewSynthesizer()}
}

// Narrator returns the mock narrator.
func (h *Host) Narrator() (tts.Narrator, error) {
	if h.Narr == nil {
		return nil, tts.ErrBackendNotAvailable
	}
	return h.Narr, nil
}

// Synthesizer returns the mock engine.
func (h *Host) Synthesizer() (tts.Synthesizer, error) {
	if h.Synth == nil {
		return nil, tts.ErrBackendNotAvailable
	}
	return h.Synth, nil
}
