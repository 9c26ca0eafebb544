package tts

// Backend is the capability contract every speech backend satisfies.
//
// A backend is owned by a single goroutine. Calls against the same
// instance must be serialized by the caller.
type Backend interface {
	// Name returns a human-readable label for the active mechanism. It has
	// no side effects and degrades to a generic label when the mechanism is
	// unavailable.
	Name() string

	// Kind reports which backend variant this is.
	Kind() Kind

	// Initialize checks the mechanism is present and enabled and binds to
	// it using the given host. It is the only call that may block.
	Initialize(host Host) error

	// Speak decodes and dispatches the request.
	Speak(req SpeechRequest) error

	// Output is Speak under the generic "output a unit of content" name.
	Output(req SpeechRequest) error

	// Stop halts any in-progress speech.
	Stop() error
}

// SpeechMonitor is implemented by backends that can report whether their
// mechanism is currently producing speech.
type SpeechMonitor interface {
	IsSpeaking() (bool, error)
}

// VoiceController is implemented by backends with adjustable voice
// parameters.
type VoiceController interface {
	Voices() ([]Voice, error)
	Voice() (Voice, error)
	SetVoice(id string) error
	Rate() (float32, error)
	SetRate(rate float32) error
	Pitch() (float32, error)
	SetPitch(pitch float32) error
	Volume() (float32, error)
	SetVolume(volume float32) error
}

// Host gives a backend access to the platform's speech mechanisms. It is
// passed to Initialize and retained by the backend.
type Host interface {
	// Narrator returns the host's screen reader announcement service.
	Narrator() (Narrator, error)

	// Synthesizer returns the host's speech-synthesis engine.
	Synthesizer() (Synthesizer, error)
}

// Narrator is a host screen reader that accepts one-shot announcements.
type Narrator interface {
	// Enabled reports whether the accessibility layer is switched on.
	Enabled() bool

	// SpokenFeedbackServices lists the enabled services providing spoken
	// feedback, most relevant first.
	SpokenFeedbackServices() []string

	// Announce posts text to be spoken.
	Announce(text string) error

	// Interrupt silences whatever the narrator is saying.
	Interrupt() error
}

// Synthesizer is a stateful speech engine with a playback queue.
type Synthesizer interface {
	// Name returns the engine's display name.
	Name() string

	// Bind starts the engine. Readiness is reported later, exactly once,
	// by calling ready from any goroutine.
	Bind(ready func(ok bool)) error

	// Speak queues text using the given queue mode.
	Speak(text string, mode QueueMode) error

	// Stop halts speech and clears the queue.
	Stop() error

	// IsSpeaking reports whether the engine is producing speech.
	IsSpeaking() bool

	// MaxInputLength is the longest utterance in characters the engine
	// accepts. Zero or less means no limit.
	MaxInputLength() int

	// Voices lists the engine's voices.
	Voices() []Voice

	SetVoice(id string) error
	SetRate(rate float32) error
	SetPitch(pitch float32) error
	SetVolume(volume float32) error
}

// Kind selects a backend variant at runtime.
type Kind uint8

const (
	// KindAnnouncement posts announcements to a host narrator.
	KindAnnouncement Kind = iota + 1
	// KindEngine drives a speech-synthesis engine.
	KindEngine
)

// String returns the config name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAnnouncement:
		return "announcement"
	case KindEngine:
		return "engine"
	default:
		return "unknown"
	}
}

// ParseKind maps a config name to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "announcement", "announce", "narrator", "screenreader":
		return KindAnnouncement, true
	case "engine", "synth", "tts":
		return KindEngine, true
	default:
		return 0, false
	}
}

// QueueMode controls how a new utterance interacts with queued speech.
type QueueMode uint8

const (
	// QueueAdd appends to the end of the playback queue.
	QueueAdd QueueMode = iota
	// QueueFlush discards queued and playing speech first.
	QueueFlush
)

// String returns the mode name.
func (m QueueMode) String() string {
	if m == QueueFlush {
		return "flush"
	}
	return "add"
}

// SpeechRequest is one call's worth of text. The backend does not retain
// it after dispatch.
type SpeechRequest struct {
	Text      []byte
	Interrupt bool
}

// NewRequest builds a request from a string.
func NewRequest(text string, interrupt bool) SpeechRequest {
	return SpeechRequest{Text: []byte(text), Interrupt: interrupt}
}

// Voice describes one engine voice.
type Voice struct {
	ID              string // Voice identifier
	Name            string // Human-readable name
	Language        string // BCP 47 tag, e.g. "en-US"
	RequiresNetwork bool   // Needs a network connection to synthesize
	Installed       bool   // Voice data is present locally
}
