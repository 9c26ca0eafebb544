package speechd

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/narrate/internal/hostexec"
	"github.com/dgnsrekt/narrate/tts"
)

var _ tts.Synthesizer = (*Synthesizer)(nil)

const voiceTable = `NAME                 LANGUAGE VARIANT
english              en       none
english-us           en-US    none
Chinese (Mandarin)   cmn      none
`

const moduleList = `OUTPUT MODULES
espeak-ng
dummy
`

func spdSay(cmd hostexec.Command) ([]byte, error) {
	if len(cmd.Args) == 0 {
		return nil, nil
	}
	switch cmd.Args[0] {
	case "--list-synthesis-voices":
		return []byte(voiceTable), nil
	case "--list-output-modules":
		return []byte(moduleList), nil
	}
	return nil, nil
}

func newTestConfig(t *testing.T, cfg tts.EngineConfig) (*Synthesizer, *hostexec.Fake) {
	t.Helper()
	fake := hostexec.NewFake()
	fake.Handler = spdSay
	return New(cfg, fake), fake
}

func newTest(t *testing.T) (*Synthesizer, *hostexec.Fake) {
	t.Helper()
	return newTestConfig(t, tts.DefaultConfig().Engine)
}

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitReady(t *testing.T, s *Synthesizer) (bool, error) {
	t.Helper()
	result := make(chan bool, 1)
	if err := s.Bind(func(ok bool) { result <- ok }); err != nil {
		return false, err
	}
	select {
	case ok := <-result:
		return ok, nil
	case <-time.After(time.Second):
		t.Fatal("Bind never signalled")
		return false, nil
	}
}

func TestBind(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		s, fake := newTest(t)
		ok, err := waitReady(t, s)
		if err != nil || !ok {
			t.Fatalf("Bind() = %v, %v", ok, err)
		}
		if cmds := fake.Commands(); len(cmds) != 1 || cmds[0].String() != "spd-say --list-output-modules" {
			t.Errorf("Commands() = %v", cmds)
		}
	})

	t.Run("configured module", func(t *testing.T) {
		cfg := tts.DefaultConfig().Engine
		cfg.Module = "espeak-ng"
		s, _ := newTestConfig(t, cfg)
		if ok, err := waitReady(t, s); err != nil || !ok {
			t.Errorf("Bind() = %v, %v", ok, err)
		}
	})

	t.Run("unknown module", func(t *testing.T) {
		cfg := tts.DefaultConfig().Engine
		cfg.Module = "festival"
		s, _ := newTestConfig(t, cfg)
		if ok, err := waitReady(t, s); err != nil || ok {
			t.Errorf("Bind() = %v, %v, want negative signal", ok, err)
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		s, fake := newTest(t)
		fake.Missing["spd-say"] = true
		if _, err := waitReady(t, s); err == nil {
			t.Error("Bind() should fail without spd-say")
		}
	})

	t.Run("server down", func(t *testing.T) {
		s, fake := newTest(t)
		fake.Handler = func(hostexec.Command) ([]byte, error) { return nil, errors.New("exit status 1") }
		ok, err := waitReady(t, s)
		if err != nil || ok {
			t.Errorf("Bind() = %v, %v, want negative signal", ok, err)
		}
	})
}

func TestSpeak(t *testing.T) {
	s, fake := newTest(t)

	if err := s.Speak("-hello", tts.QueueAdd); err != nil {
		t.Fatal(err)
	}
	cmds := fake.Commands()
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %v", cmds)
	}
	got := cmds[0]
	if !got.Background {
		t.Error("speech should run in the background")
	}
	want := "spd-say --rate 0 --pitch 0 --volume 100 --wait -- -hello"
	if got.String() != want {
		t.Errorf("command = %q, want %q", got.String(), want)
	}
	if !s.IsSpeaking() {
		t.Error("IsSpeaking() should be true while spd-say waits")
	}

	fake.Processes()[0].Finish(nil)
	if s.IsSpeaking() {
		t.Error("IsSpeaking() should be false once spd-say exits")
	}
}

// TestSpeakQueue tests that utterances play one at a time, in order.
func TestSpeakQueue(t *testing.T) {
	s, fake := newTest(t)

	for _, text := range []string{"one", "two", "three"} {
		if err := s.Speak(text, tts.QueueAdd); err != nil {
			t.Fatal(err)
		}
	}

	for i, want := range []string{"one", "two", "three"} {
		waitFor(t, "utterance "+want, func() bool { return len(fake.Processes()) == i+1 })

		procs := fake.Processes()
		live := 0
		for _, p := range procs {
			if hostexec.Running(p) {
				live++
			}
		}
		if live != 1 {
			t.Fatalf("%d spd-say processes alive at once, want 1", live)
		}
		cmds := fake.Commands()
		if got := cmds[len(cmds)-1].String(); !strings.HasSuffix(got, "-- "+want) {
			t.Errorf("utterance %d = %q, want %q", i, got, want)
		}
		if !s.IsSpeaking() {
			t.Errorf("IsSpeaking() should be true during %q", want)
		}
		procs[i].Finish(nil)
	}

	waitFor(t, "the queue to drain", func() bool { return !s.IsSpeaking() })
	if n := len(fake.Processes()); n != 3 {
		t.Errorf("started %d processes, want 3", n)
	}
}

// TestStopDrainsQueue tests that Stop drops utterances not yet started.
func TestStopDrainsQueue(t *testing.T) {
	s, fake := newTest(t)

	_ = s.Speak("one", tts.QueueAdd)
	_ = s.Speak("two", tts.QueueAdd)
	_ = s.Speak("three", tts.QueueAdd)

	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	if !fake.Processes()[0].Killed() {
		t.Error("Stop should end the playing utterance")
	}
	if s.IsSpeaking() {
		t.Error("IsSpeaking() should be false after Stop")
	}

	time.Sleep(20 * time.Millisecond)
	if n := len(fake.Processes()); n != 1 {
		t.Errorf("queued utterances started after Stop: %d processes", n)
	}

	// A new utterance starts at once.
	_ = s.Speak("four", tts.QueueAdd)
	if n := len(fake.Processes()); n != 2 {
		t.Fatalf("expected a new process, got %d", n)
	}
}

// TestSpeakFlush tests that flushing cancels queued speech first.
func TestSpeakFlush(t *testing.T) {
	s, fake := newTest(t)

	_ = s.Speak("first", tts.QueueAdd)
	if err := s.Speak("second", tts.QueueFlush); err != nil {
		t.Fatal(err)
	}

	cmds := fake.Commands()
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %v", cmds)
	}
	if cmds[1].String() != "spd-say --cancel" {
		t.Errorf("second command = %q, want cancel", cmds[1].String())
	}
	if !fake.Processes()[0].Killed() {
		t.Error("flush should end the earlier utterance")
	}
	if !strings.HasSuffix(cmds[2].String(), "-- second") {
		t.Errorf("third command = %q", cmds[2].String())
	}
}

func TestSpeakErrors(t *testing.T) {
	s, fake := newTest(t)
	fake.Handler = func(cmd hostexec.Command) ([]byte, error) {
		if cmd.Background {
			return nil, errors.New("cannot start")
		}
		if cmd.Args[0] == "--cancel" {
			return nil, errors.New("cancel failed")
		}
		return nil, nil
	}

	if err := s.Speak("hi", tts.QueueAdd); err == nil {
		t.Error("Speak() should fail when spd-say cannot start")
	}
	if err := s.Speak("hi", tts.QueueFlush); err == nil {
		t.Error("Speak() should fail when cancel fails")
	}
	if err := s.Stop(); err == nil {
		t.Error("Stop() should report cancel failure")
	}
}

// TestParameters tests how voice parameters map onto spd-say flags.
func TestParameters(t *testing.T) {
	cfg := tts.DefaultConfig().Engine
	cfg.Module = "espeak-ng"
	cfg.Language = "en"
	fake := hostexec.NewFake()
	s := New(cfg, fake)

	_ = s.SetRate(4.0)
	_ = s.SetPitch(0.1)
	_ = s.SetVolume(0.5)
	_ = s.SetVoice("english-us")
	if err := s.SetVoice(""); err == nil {
		t.Error("SetVoice(\"\") should fail")
	}

	_ = s.Speak("hi", tts.QueueAdd)
	want := "spd-say --rate 100 --pitch -100 --volume 0 --output-module espeak-ng --language en --synthesis-voice english-us --wait -- hi"
	if got := fake.Commands()[0].String(); got != want {
		t.Errorf("command = %q\nwant      %q", got, want)
	}
	if s.Name() != "Speech Dispatcher (espeak-ng)" {
		t.Errorf("Name() = %q", s.Name())
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		v    float32
		want int
	}{
		{1.0, 0},
		{4.0, 100},
		{0.1, -100},
		{2.5, 50},
		{0.55, -50},
		{10, 100},
	}
	for _, tt := range tests {
		if got := scale(tt.v, tts.MinRate, tts.MaxRate); got != tt.want {
			t.Errorf("scale(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestVoices(t *testing.T) {
	s, fake := newTest(t)

	voices := s.Voices()
	if len(voices) != 3 {
		t.Fatalf("Voices() = %+v", voices)
	}
	if voices[1].ID != "english-us" || voices[1].Language != "en-US" || !voices[1].Installed {
		t.Errorf("voice = %+v", voices[1])
	}
	if voices[2].Name != "Chinese (Mandarin)" || voices[2].Language != "cmn" {
		t.Errorf("voice with spaces = %+v", voices[2])
	}

	_ = s.Voices()
	if n := len(fake.Commands()); n != 1 {
		t.Errorf("voices listed %d times, want 1", n)
	}
	if s.MaxInputLength() != MaxInputLength {
		t.Errorf("MaxInputLength() = %d", s.MaxInputLength())
	}
}

func TestParseModules(t *testing.T) {
	got := ParseModules([]byte(moduleList))
	if len(got) != 2 || got[0] != "espeak-ng" || got[1] != "dummy" {
		t.Errorf("ParseModules() = %q", got)
	}
	if got := ParseModules(nil); len(got) != 0 {
		t.Errorf("ParseModules(nil) = %q", got)
	}
}

func TestParseVoicesEmpty(t *testing.T) {
	if got := ParseVoices(nil); len(got) != 0 {
		t.Errorf("ParseVoices(nil) = %v", got)
	}
	if got := ParseVoices([]byte("NAME LANGUAGE VARIANT\n")); len(got) != 0 {
		t.Errorf("header only = %v", got)
	}
}
