// Package builtin assembles the speech backends and host mechanisms
// available on a Linux desktop.
package builtin

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/hostexec"
	"github.com/dgnsrekt/narrate/tts"
	"github.com/dgnsrekt/narrate/tts/engines"
	"github.com/dgnsrekt/narrate/tts/engines/announce"
	"github.com/dgnsrekt/narrate/tts/engines/orca"
	"github.com/dgnsrekt/narrate/tts/engines/speechd"
	"github.com/dgnsrekt/narrate/tts/engines/synth"
)

// Backend priorities. Screen readers outrank engines so that speech goes
// through the user's own narrator when one is running.
const (
	AnnouncePriority = 100
	EnginePriority   = 90
)

// NewRegistry registers the announcement and engine backends configured
// by cfg. With instrument set, every backend is wrapped with
// engines.Instrument.
func NewRegistry(cfg tts.Config, instrument bool) *engines.Registry {
	wrap := func(b tts.Backend) tts.Backend {
		if instrument {
			return engines.Instrument(b)
		}
		return b
	}

	r := engines.NewRegistry()
	r.Register(engines.Info{
		Kind:     tts.KindAnnouncement,
		Name:     announce.DefaultName,
		Priority: AnnouncePriority,
	}, func() tts.Backend {
		return wrap(announce.New(cfg.Announce))
	})
	r.Register(engines.Info{
		Kind:     tts.KindEngine,
		Name:     synth.DefaultName,
		Priority: EnginePriority,
	}, func() tts.Backend {
		return wrap(synth.New(cfg.Engine, synth.WithInitTimeout(cfg.InitTimeout)))
	})
	return r
}

// Host gives backends the Orca narrator and the Speech Dispatcher engine.
// Each mechanism is created on first use and shared afterwards.
type Host struct {
	cfg    tts.Config
	runner hostexec.Runner

	mu       sync.Mutex
	narrator *orca.Narrator
	synth    *speechd.Synthesizer
}

// NewHost creates a Host running commands through runner. A nil runner
// uses hostexec.New with the engine timeout.
func NewHost(cfg tts.Config, runner hostexec.Runner) *Host {
	if runner == nil {
		runner = hostexec.New(cfg.Engine.Timeout)
	}
	return &Host{cfg: cfg, runner: runner}
}

// Narrator returns the Orca narrator. It fails when gdbus is missing.
func (h *Host) Narrator() (tts.Narrator, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.narrator == nil {
		if err := h.runner.LookPath(orca.Binary); err != nil {
			log.Debug("No narrator client", "err", err)
			return nil, tts.ErrBackendNotAvailable
		}
		h.narrator = orca.New(h.cfg.Announce.DBusDest, h.cfg.Announce.Timeout, h.runner)
	}
	return h.narrator, nil
}

// Synthesizer returns the Speech Dispatcher engine. It fails when the
// configured client binary is missing.
func (h *Host) Synthesizer() (tts.Synthesizer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.synth == nil {
		if err := h.runner.LookPath(h.cfg.Engine.Binary); err != nil {
			log.Debug("No speech engine client", "err", err)
			return nil, tts.ErrBackendNotAvailable
		}
		h.synth = speechd.New(h.cfg.Engine, h.runner)
	}
	return h.synth, nil
}

// Select returns an initialized backend for cfg.Backend: the best
// available one for "auto", otherwise the named backend or the highest
// priority backend of the named kind.
func Select(r *engines.Registry, host tts.Host, choice string) (tts.Backend, error) {
	if choice == "" || choice == tts.BackendAuto {
		return r.AcquireBest(host)
	}

	name := choice
	if kind, ok := tts.ParseKind(choice); ok {
		info, found := r.ByKind(kind)
		if !found {
			return nil, tts.ErrBackendNotAvailable
		}
		name = info.Name
	}

	b, err := r.Acquire(name)
	if err != nil {
		return nil, err
	}
	if err := b.Initialize(host); err != nil {
		return nil, err
	}
	return b, nil
}
