package engines

import (
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"

	"github.com/dgnsrekt/narrate/tts"
)

// Factory builds a fresh, uninitialized backend.
type Factory func() tts.Backend

// Info describes a registered backend.
type Info struct {
	Kind     tts.Kind
	Name     string
	Priority int
}

type entry struct {
	Info
	factory Factory
	cached  tts.Backend
}

// Registry holds backend factories ordered by descending priority and
// caches acquired instances. It is safe for concurrent use; the backends
// it hands out are not.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a backend. Entries with equal priority keep their
// registration order. Registering a name again replaces the old entry and
// drops its cached instance.
func (r *Registry) Register(info Info, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if strings.EqualFold(e.Name, info.Name) {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	r.entries = append(r.entries, &entry{Info: info, factory: factory})
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].Priority > r.entries[j].Priority
	})
}

// List returns the registered backends, highest priority first.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, len(r.entries))
	for i, e := range r.entries {
		infos[i] = e.Info
	}
	return infos
}

// Has reports whether a backend is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Priority returns a backend's priority, or -1 when it is not registered.
func (r *Registry) Priority(name string) int {
	info, ok := r.Lookup(name)
	if !ok {
		return -1
	}
	return info.Priority
}

// Lookup resolves a backend name. Exact matches ignore case; otherwise
// the best fuzzy match is used.
func (r *Registry) Lookup(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e := r.find(name); e != nil {
		return e.Info, true
	}
	return Info{}, false
}

// ByKind returns the highest priority backend of the given kind.
func (r *Registry) ByKind(kind tts.Kind) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Kind == kind {
			return e.Info, true
		}
	}
	return Info{}, false
}

// find must be called with r.mu held.
func (r *Registry) find(name string) *entry {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	for _, e := range r.entries {
		if strings.EqualFold(e.Name, name) {
			return e
		}
	}

	matches := fuzzy.FindFrom(name, entryNames(r.entries))
	if len(matches) == 0 {
		return nil
	}
	return r.entries[matches[0].Index]
}

type entryNames []*entry

func (n entryNames) String(i int) string { return n[i].Name }
func (n entryNames) Len() int            { return len(n) }

// Create builds a new, uninitialized backend by name.
func (r *Registry) Create(name string) (tts.Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e := r.find(name)
	if e == nil {
		return nil, tts.ErrBackendNotAvailable
	}
	return build(e)
}

// Get returns the cached instance for name, if one was acquired.
func (r *Registry) Get(name string) (tts.Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e := r.find(name)
	if e == nil || e.cached == nil {
		return nil, false
	}
	return e.cached, true
}

// Acquire returns the cached instance for name, creating and caching an
// uninitialized one on first use.
func (r *Registry) Acquire(name string) (tts.Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.find(name)
	if e == nil {
		return nil, tts.ErrBackendNotAvailable
	}
	if e.cached != nil {
		return e.cached, nil
	}
	b, err := build(e)
	if err != nil {
		return nil, err
	}
	e.cached = b
	return b, nil
}

// CreateBest creates backends in priority order and returns the first one
// that initializes against host. It fails with tts.ErrBackendNotAvailable
// when none does. Backends initialize without the registry locked.
func (r *Registry) CreateBest(host tts.Host) (tts.Backend, error) {
	for _, e := range r.snapshot() {
		if b := initialize(e, host); b != nil {
			return b, nil
		}
	}
	return nil, tts.ErrBackendNotAvailable
}

// AcquireBest is CreateBest with caching. The first cached instance in
// priority order is returned as is; otherwise the initialized backend is
// cached before it is returned. When another caller caches the same entry
// first, that instance wins.
func (r *Registry) AcquireBest(host tts.Host) (tts.Backend, error) {
	for _, e := range r.snapshot() {
		r.mu.RLock()
		cached := e.cached
		r.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		b := initialize(e, host)
		if b == nil {
			continue
		}

		r.mu.Lock()
		if e.cached == nil {
			e.cached = b
		}
		b = e.cached
		r.mu.Unlock()
		return b, nil
	}
	return nil, tts.ErrBackendNotAvailable
}

func (r *Registry) snapshot() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*entry(nil), r.entries...)
}

// ClearCache forgets every acquired instance.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		e.cached = nil
	}
}

func build(e *entry) (b tts.Backend, err error) {
	err = tts.Guard("factory", func() error {
		b = e.factory()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, tts.ErrBackendNotAvailable
	}
	return b, nil
}

func initialize(e *entry, host tts.Host) tts.Backend {
	b, err := build(e)
	if err != nil {
		log.Debug("Backend factory failed", "backend", e.Name, "err", err)
		return nil
	}
	if err := tts.Guard("initialize", func() error { return b.Initialize(host) }); err != nil {
		log.Debug("Backend unavailable", "backend", e.Name, "err", err)
		return nil
	}
	log.Debug("Selected backend", "backend", e.Name, "priority", e.Priority)
	return b
}
