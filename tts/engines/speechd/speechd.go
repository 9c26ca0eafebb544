// Package speechd drives Speech Dispatcher through its spd-say client.
package speechd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/hostexec"
	"github.com/dgnsrekt/narrate/tts"
)

// Name is the engine's display name.
const Name = "Speech Dispatcher"

// MaxInputLength is the longest utterance passed in one spd-say call.
const MaxInputLength = 4000

// Synthesizer implements tts.Synthesizer on top of spd-say. Utterances
// play one at a time: each spd-say --wait process is started only after
// the previous one has exited, so Speech Dispatcher receives them in order.
type Synthesizer struct {
	cfg    tts.EngineConfig
	runner hostexec.Runner
	logger *log.Logger

	mu     sync.Mutex
	voices []tts.Voice
	voice  string
	rate   float32
	pitch  float32
	volume float32

	current hostexec.Process
	pending [][]string
}

// New creates a Synthesizer for cfg.Binary using runner.
func New(cfg tts.EngineConfig, runner hostexec.Runner) *Synthesizer {
	return &Synthesizer{
		cfg:    cfg,
		runner: runner,
		logger: log.WithPrefix("speechd"),
		rate:   1,
		pitch:  1,
		volume: 1,
	}
}

// Name returns "Speech Dispatcher", with the output module when one is
// configured.
func (s *Synthesizer) Name() string {
	if s.cfg.Module != "" {
		return Name + " (" + s.cfg.Module + ")"
	}
	return Name
}

// Bind checks the client is installed and asks the server for its output
// modules in the background. Listing modules needs a server connection,
// so ready reports whether the server answered and, when a module is
// configured, whether it offers that module.
func (s *Synthesizer) Bind(ready func(ok bool)) error {
	if err := s.runner.LookPath(s.cfg.Binary); err != nil {
		return err
	}

	go func() {
		out, err := s.runner.Run(context.Background(), s.cfg.Binary, "--list-output-modules")
		if err != nil {
			s.logger.Debug("Server not reachable", "binary", s.cfg.Binary, "err", err)
			ready(false)
			return
		}

		modules := ParseModules(out)
		s.logger.Debug("Server reachable", "modules", modules)
		if s.cfg.Module != "" && !slices.Contains(modules, s.cfg.Module) {
			s.logger.Warn("Output module not available", "module", s.cfg.Module, "modules", modules)
			ready(false)
			return
		}
		ready(true)
	}()
	return nil
}

// ParseModules reads spd-say's output module list: a header line followed
// by one module per line.
func ParseModules(out []byte) []string {
	modules := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.EqualFold(line, "OUTPUT MODULES") {
			continue
		}
		modules = append(modules, line)
	}
	return modules
}

// Speak says text after any utterance already queued. QueueFlush cancels
// pending speech first.
func (s *Synthesizer) Speak(text string, mode tts.QueueMode) error {
	if mode == tts.QueueFlush {
		if err := s.Stop(); err != nil {
			return err
		}
	}

	args := append(s.speakArgs(), "--wait", "--", text)

	s.mu.Lock()
	defer s.mu.Unlock()
	if hostexec.Running(s.current) || len(s.pending) > 0 {
		s.pending = append(s.pending, args)
		return nil
	}
	return s.startLocked(args)
}

// startLocked starts one utterance and hands the queue on once it exits.
// It must be called with s.mu held.
func (s *Synthesizer) startLocked(args []string) error {
	p, err := s.runner.Start(s.cfg.Binary, args...)
	if err != nil {
		return err
	}
	s.current = p
	go s.advance(p)
	return nil
}

// advance waits for p and starts the next pending utterance. It gives up
// when Stop has replaced p.
func (s *Synthesizer) advance(p hostexec.Process) {
	<-p.Done()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != p {
		return
	}
	if err := p.Err(); err != nil {
		s.logger.Debug("Utterance ended with error", "err", err)
	}
	s.current = nil

	for len(s.pending) > 0 {
		args := s.pending[0]
		s.pending = s.pending[1:]
		if err := s.startLocked(args); err != nil {
			s.logger.Warn("Could not start queued utterance", "err", err)
			continue
		}
		return
	}
}

func (s *Synthesizer) speakArgs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	args := []string{
		"--rate", strconv.Itoa(scale(s.rate, tts.MinRate, tts.MaxRate)),
		"--pitch", strconv.Itoa(scale(s.pitch, tts.MinPitch, tts.MaxPitch)),
		"--volume", strconv.Itoa(volume(s.volume)),
	}
	if s.cfg.Module != "" {
		args = append(args, "--output-module", s.cfg.Module)
	}
	if s.cfg.Language != "" {
		args = append(args, "--language", s.cfg.Language)
	}
	if s.voice != "" {
		args = append(args, "--synthesis-voice", s.voice)
	}
	return args
}

// scale maps v in [lo, hi] with 1.0 as normal onto spd-say's -100..100.
func scale(v, lo, hi float32) int {
	var n float32
	if v >= 1 {
		n = (v - 1) / (hi - 1) * 100
	} else {
		n = (v - 1) / (1 - lo) * 100
	}
	return clamp(int(math.Round(float64(n))))
}

func volume(v float32) int {
	return clamp(int(math.Round(float64(v*200 - 100))))
}

func clamp(n int) int {
	switch {
	case n < -100:
		return -100
	case n > 100:
		return 100
	}
	return n
}

// Stop drops queued utterances, cancels speech from this client and ends
// the waiting process.
func (s *Synthesizer) Stop() error {
	s.mu.Lock()
	p := s.current
	s.current = nil
	s.pending = nil
	s.mu.Unlock()

	if p != nil {
		_ = p.Kill()
	}
	if _, err := s.runner.Run(context.Background(), s.cfg.Binary, "--cancel"); err != nil {
		return err
	}
	return nil
}

// IsSpeaking reports whether an utterance is being spoken or queued.
func (s *Synthesizer) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hostexec.Running(s.current) || len(s.pending) > 0
}

// MaxInputLength returns MaxInputLength.
func (s *Synthesizer) MaxInputLength() int {
	return MaxInputLength
}

// Voices lists the synthesis voices of the configured output module. The
// list is read once.
func (s *Synthesizer) Voices() []tts.Voice {
	s.mu.Lock()
	cached := s.voices
	s.mu.Unlock()
	if cached != nil {
		return cached
	}

	args := []string{"--list-synthesis-voices"}
	if s.cfg.Module != "" {
		args = append(args, "--output-module", s.cfg.Module)
	}
	out, err := s.runner.Run(context.Background(), s.cfg.Binary, args...)
	if err != nil {
		s.logger.Debug("Could not list voices", "err", err)
		return nil
	}

	voices := ParseVoices(out)
	s.mu.Lock()
	s.voices = voices
	s.mu.Unlock()
	return voices
}

// ParseVoices reads spd-say's voice table: a header line followed by
// rows of name, language and variant. Names may contain spaces.
func ParseVoices(out []byte) []tts.Voice {
	voices := []tts.Voice{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[0] == "NAME" {
			continue
		}
		n := len(fields)
		name := strings.Join(fields[:n-2], " ")
		voices = append(voices, tts.Voice{
			ID:        name,
			Name:      name,
			Language:  fields[n-2],
			Installed: true,
		})
	}
	return voices
}

// SetVoice selects the synthesis voice for later utterances.
func (s *Synthesizer) SetVoice(id string) error {
	if id == "" {
		return fmt.Errorf("empty voice id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voice = id
	return nil
}

// SetRate sets the rate for later utterances.
func (s *Synthesizer) SetRate(rate float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	return nil
}

// SetPitch sets the pitch for later utterances.
func (s *Synthesizer) SetPitch(pitch float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pitch = pitch
	return nil
}

// SetVolume sets the volume for later utterances.
func (s *Synthesizer) SetVolume(v float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	return nil
}
