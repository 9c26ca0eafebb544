package engines

import (
	"testing"

	"github.com/dgnsrekt/narrate/tts"
	"github.com/dgnsrekt/narrate/tts/engines/announce"
	"github.com/dgnsrekt/narrate/tts/engines/mock"
)

type monitorBackend struct {
	stubBackend
	speaking bool
}

func (m *monitorBackend) IsSpeaking() (bool, error) { return m.speaking, nil }

// TestInstrumentForwarding tests that optional interfaces survive wrapping.
func TestInstrumentForwarding(t *testing.T) {
	plain := Instrument(&stubBackend{name: "plain"})
	if _, ok := plain.(tts.SpeechMonitor); ok {
		t.Error("plain backend should not gain SpeechMonitor")
	}
	if _, ok := plain.(tts.VoiceController); ok {
		t.Error("plain backend should not gain VoiceController")
	}

	inner := &monitorBackend{stubBackend: stubBackend{name: "monitor"}, speaking: true}
	wrapped := Instrument(inner)
	m, ok := wrapped.(tts.SpeechMonitor)
	if !ok {
		t.Fatal("wrapped backend lost SpeechMonitor")
	}
	if speaking, err := m.IsSpeaking(); err != nil || !speaking {
		t.Errorf("IsSpeaking() = %v, %v", speaking, err)
	}
	if Unwrap(wrapped) != tts.Backend(inner) {
		t.Error("Unwrap() should return the inner backend")
	}
	if Unwrap(inner) != tts.Backend(inner) {
		t.Error("Unwrap() of an unwrapped backend should return it")
	}
}

// TestInstrumentPassesResults tests that errors and names pass through.
func TestInstrumentPassesResults(t *testing.T) {
	b := Instrument(announce.New(tts.DefaultConfig().Announce))

	if err := b.Speak(tts.NewRequest("hi", false)); err != tts.ErrNotInitialized {
		t.Errorf("Speak() before init = %v, want ErrNotInitialized", err)
	}

	host := mock.NewHost()
	if err := b.Initialize(host); err != nil {
		t.Fatal(err)
	}
	if b.Name() != "Mock Reader" {
		t.Errorf("Name() = %q", b.Name())
	}
	if err := b.Output(tts.NewRequest("hello", true)); err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if err := b.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := b.Speak(tts.SpeechRequest{Text: []byte{0xff}}); err != tts.ErrInvalidText {
		t.Errorf("Speak() invalid = %v, want ErrInvalidText", err)
	}

	if got := host.Narr.Announced(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("Announced() = %q", got)
	}
	if host.Narr.GetInterruptCount() != 2 {
		t.Errorf("interrupts = %d, want 2", host.Narr.GetInterruptCount())
	}
}
