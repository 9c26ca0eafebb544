package engines

import (
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dgnsrekt/narrate/internal/observability"
	"github.com/dgnsrekt/narrate/tts"
)

// Instrument wraps a backend so every call is logged with a request id and
// recorded in the backend metrics. The wrapper implements
// tts.SpeechMonitor and tts.VoiceController exactly when b does.
func Instrument(b tts.Backend) tts.Backend {
	base := &instrumented{Backend: b, logger: log.WithPrefix("backend")}

	monitor, isMonitor := b.(tts.SpeechMonitor)
	voice, isVoice := b.(tts.VoiceController)
	switch {
	case isMonitor && isVoice:
		return &instrumentedEngine{instrumented: base, SpeechMonitor: monitor, VoiceController: voice}
	case isMonitor:
		return &instrumentedMonitor{instrumented: base, SpeechMonitor: monitor}
	case isVoice:
		return &instrumentedVoice{instrumented: base, VoiceController: voice}
	default:
		return base
	}
}

// Unwrap returns the backend behind an Instrument wrapper, or b itself.
func Unwrap(b tts.Backend) tts.Backend {
	switch w := b.(type) {
	case *instrumented:
		return w.Backend
	case *instrumentedMonitor:
		return w.Backend
	case *instrumentedVoice:
		return w.Backend
	case *instrumentedEngine:
		return w.Backend
	}
	return b
}

type instrumented struct {
	tts.Backend
	logger *log.Logger
}

func (i *instrumented) track(op string, fn func() error, keyvals ...interface{}) error {
	id := uuid.NewString()
	name := i.Backend.Name()
	call := observability.StartCall(name, op)

	i.logger.Debug(op, append([]interface{}{"id", id, "backend", name}, keyvals...)...)
	err := fn()
	call.End(err)
	if err != nil {
		i.logger.Debug(op+" failed", "id", id, "backend", name, "err", observability.Status(err))
	}
	return err
}

func (i *instrumented) Initialize(host tts.Host) error {
	err := i.track("initialize", func() error { return i.Backend.Initialize(host) })
	observability.SetReady(i.Backend.Name(), err == nil)
	return err
}

func (i *instrumented) Speak(req tts.SpeechRequest) error {
	observability.RecordText(i.Backend.Name(), len(req.Text))
	return i.track("speak", func() error { return i.Backend.Speak(req) },
		"bytes", len(req.Text), "interrupt", req.Interrupt)
}

func (i *instrumented) Output(req tts.SpeechRequest) error {
	observability.RecordText(i.Backend.Name(), len(req.Text))
	return i.track("output", func() error { return i.Backend.Output(req) },
		"bytes", len(req.Text), "interrupt", req.Interrupt)
}

func (i *instrumented) Stop() error {
	return i.track("stop", i.Backend.Stop)
}

type instrumentedMonitor struct {
	*instrumented
	tts.SpeechMonitor
}

type instrumentedVoice struct {
	*instrumented
	tts.VoiceController
}

type instrumentedEngine struct {
	*instrumented
	tts.SpeechMonitor
	tts.VoiceController
}
