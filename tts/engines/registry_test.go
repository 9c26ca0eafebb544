package engines

import (
	"testing"
	"time"

	"github.com/dgnsrekt/narrate/tts"
	"github.com/dgnsrekt/narrate/tts/engines/announce"
	"github.com/dgnsrekt/narrate/tts/engines/mock"
)

// stubBackend is a minimal backend whose Initialize result is fixed.
type stubBackend struct {
	name    string
	initErr error
	inits   int
}

func (s *stubBackend) Name() string                       { return s.name }
func (s *stubBackend) Kind() tts.Kind                     { return tts.KindEngine }
func (s *stubBackend) Initialize(tts.Host) error          { s.inits++; return s.initErr }
func (s *stubBackend) Speak(tts.SpeechRequest) error      { return nil }
func (s *stubBackend) Output(req tts.SpeechRequest) error { return s.Speak(req) }
func (s *stubBackend) Stop() error                        { return nil }

func stubFactory(name string, initErr error, built *int) Factory {
	return func() tts.Backend {
		if built != nil {
			*built++
		}
		return &stubBackend{name: name, initErr: initErr}
	}
}

// TestRegistryOrdering tests that entries are listed by descending priority.
func TestRegistryOrdering(t *testing.T) {
	r := NewRegistry()
	r.Register(Info{Kind: tts.KindEngine, Name: "Low", Priority: 10}, stubFactory("Low", nil, nil))
	r.Register(Info{Kind: tts.KindAnnouncement, Name: "High", Priority: 100}, stubFactory("High", nil, nil))
	r.Register(Info{Kind: tts.KindEngine, Name: "Mid", Priority: 50}, stubFactory("Mid", nil, nil))
	r.Register(Info{Kind: tts.KindEngine, Name: "Mid Two", Priority: 50}, stubFactory("Mid Two", nil, nil))

	want := []string{"High", "Mid", "Mid Two", "Low"}
	got := r.List()
	if len(got) != len(want) {
		t.Fatalf("List() returned %d entries, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("List()[%d] = %q, want %q", i, got[i].Name, name)
		}
	}
}

// TestRegistryReplace tests that registering a name twice keeps one entry.
func TestRegistryReplace(t *testing.T) {
	r := NewRegistry()
	r.Register(Info{Name: "Engine", Priority: 10}, stubFactory("old", nil, nil))
	r.Register(Info{Name: "engine", Priority: 20}, stubFactory("new", nil, nil))

	if n := len(r.List()); n != 1 {
		t.Fatalf("List() has %d entries, want 1", n)
	}
	if p := r.Priority("Engine"); p != 20 {
		t.Errorf("Priority() = %d, want 20", p)
	}
	b, err := r.Create("engine")
	if err != nil || b.Name() != "new" {
		t.Errorf("Create() = %v, %v", b, err)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(Info{Kind: tts.KindAnnouncement, Name: "Screen Reader", Priority: 100}, stubFactory("a", nil, nil))
	r.Register(Info{Kind: tts.KindEngine, Name: "Text to Speech", Priority: 90}, stubFactory("b", nil, nil))

	tests := []struct {
		query  string
		want   string
		wantOK bool
	}{
		{"Screen Reader", "Screen Reader", true},
		{"text to speech", "Text to Speech", true},
		{"tts", "Text to Speech", true},
		{"screen", "Screen Reader", true},
		{"  Screen Reader  ", "Screen Reader", true},
		{"braille", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			info, ok := r.Lookup(tt.query)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.query, ok, tt.wantOK)
			}
			if info.Name != tt.want {
				t.Errorf("Lookup(%q) = %q, want %q", tt.query, info.Name, tt.want)
			}
			if r.Has(tt.query) != tt.wantOK {
				t.Errorf("Has(%q) disagrees with Lookup", tt.query)
			}
		})
	}

	if p := r.Priority("braille"); p != -1 {
		t.Errorf("Priority() of unknown = %d, want -1", p)
	}

	info, ok := r.ByKind(tts.KindEngine)
	if !ok || info.Name != "Text to Speech" {
		t.Errorf("ByKind(engine) = %v, %v", info, ok)
	}
}

// TestRegistryCreate tests that Create builds a new instance each call.
func TestRegistryCreate(t *testing.T) {
	built := 0
	r := NewRegistry()
	r.Register(Info{Name: "Stub", Priority: 1}, stubFactory("Stub", nil, &built))

	a, err := r.Create("Stub")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := r.Create("Stub")
	if a == b {
		t.Error("Create() should return distinct instances")
	}
	if built != 2 {
		t.Errorf("factory called %d times, want 2", built)
	}
	if a.(*stubBackend).inits != 0 {
		t.Error("Create() must not initialize")
	}

	if _, err := r.Create("missing"); err != tts.ErrBackendNotAvailable {
		t.Errorf("Create(missing) error = %v, want ErrBackendNotAvailable", err)
	}
}

// TestRegistryFactoryFailures tests nil and panicking factories.
func TestRegistryFactoryFailures(t *testing.T) {
	r := NewRegistry()
	r.Register(Info{Name: "Nil", Priority: 2}, func() tts.Backend { return nil })
	r.Register(Info{Name: "Panics", Priority: 1}, func() tts.Backend { panic("boom") })

	if _, err := r.Create("Nil"); err != tts.ErrBackendNotAvailable {
		t.Errorf("Create(Nil) error = %v, want ErrBackendNotAvailable", err)
	}
	if _, err := r.Create("Panics"); err != tts.ErrInternal {
		t.Errorf("Create(Panics) error = %v, want ErrInternal", err)
	}
	if _, err := r.CreateBest(mock.NewHost()); err != tts.ErrBackendNotAvailable {
		t.Errorf("CreateBest() error = %v, want ErrBackendNotAvailable", err)
	}
}

// TestRegistryAcquire tests caching of acquired instances.
func TestRegistryAcquire(t *testing.T) {
	built := 0
	r := NewRegistry()
	r.Register(Info{Name: "Stub", Priority: 1}, stubFactory("Stub", nil, &built))

	if _, ok := r.Get("Stub"); ok {
		t.Fatal("Get() before Acquire should miss")
	}

	a, err := r.Acquire("Stub")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := r.Acquire("stub")
	if a != b {
		t.Error("Acquire() should return the cached instance")
	}
	if built != 1 {
		t.Errorf("factory called %d times, want 1", built)
	}

	got, ok := r.Get("Stub")
	if !ok || got != a {
		t.Error("Get() should return the acquired instance")
	}

	r.ClearCache()
	if _, ok := r.Get("Stub"); ok {
		t.Error("Get() after ClearCache should miss")
	}
	c, _ := r.Acquire("Stub")
	if c == a {
		t.Error("Acquire() after ClearCache should build a new instance")
	}

	if _, err := r.Acquire("missing"); err != tts.ErrBackendNotAvailable {
		t.Errorf("Acquire(missing) error = %v, want ErrBackendNotAvailable", err)
	}
}

// TestRegistryCreateBest tests falling through to the first backend that
// initializes.
func TestRegistryCreateBest(t *testing.T) {
	r := NewRegistry()
	r.Register(Info{Name: "Broken", Priority: 100}, stubFactory("Broken", tts.ErrBackendNotAvailable, nil))
	r.Register(Info{Name: "Panicky", Priority: 90}, func() tts.Backend {
		return &panicBackend{}
	})
	r.Register(Info{Name: "Works", Priority: 50}, stubFactory("Works", nil, nil))
	r.Register(Info{Name: "Also Works", Priority: 10}, stubFactory("Also Works", nil, nil))

	b, err := r.CreateBest(mock.NewHost())
	if err != nil {
		t.Fatalf("CreateBest() error = %v", err)
	}
	if b.Name() != "Works" {
		t.Errorf("CreateBest() = %q, want Works", b.Name())
	}
	if b.(*stubBackend).inits != 1 {
		t.Error("CreateBest() should return an initialized backend")
	}
	if _, ok := r.Get("Works"); ok {
		t.Error("CreateBest() must not cache")
	}
}

type panicBackend struct{ stubBackend }

func (p *panicBackend) Initialize(tts.Host) error { panic("init exploded") }

// TestRegistryAcquireBest tests that the best backend is cached and reused.
func TestRegistryAcquireBest(t *testing.T) {
	built := 0
	r := NewRegistry()
	r.Register(Info{Name: "Broken", Priority: 100}, stubFactory("Broken", tts.ErrBackendNotAvailable, nil))
	r.Register(Info{Name: "Works", Priority: 50}, stubFactory("Works", nil, &built))

	a, err := r.AcquireBest(mock.NewHost())
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.AcquireBest(mock.NewHost())
	if err != nil {
		t.Fatal(err)
	}
	if a != b || built != 1 {
		t.Errorf("AcquireBest() should reuse the cached backend (built %d)", built)
	}
	if got, ok := r.Get("Works"); !ok || got != a {
		t.Error("AcquireBest() should cache under the backend name")
	}

	empty := NewRegistry()
	if _, err := empty.AcquireBest(mock.NewHost()); err != tts.ErrBackendNotAvailable {
		t.Errorf("AcquireBest() on empty registry = %v, want ErrBackendNotAvailable", err)
	}
}

// blockingBackend holds Initialize until release is closed.
type blockingBackend struct {
	stubBackend
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) Initialize(tts.Host) error {
	close(b.entered)
	<-b.release
	return nil
}

// TestRegistryInitializeUnlocked tests that a slow Initialize does not
// stall other registry calls.
func TestRegistryInitializeUnlocked(t *testing.T) {
	slow := &blockingBackend{
		stubBackend: stubBackend{name: "Slow"},
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	r := NewRegistry()
	r.Register(Info{Name: "Slow", Priority: 100}, func() tts.Backend { return slow })
	r.Register(Info{Name: "Other", Priority: 10}, stubFactory("Other", nil, nil))

	done := make(chan tts.Backend, 1)
	go func() {
		b, _ := r.AcquireBest(mock.NewHost())
		done <- b
	}()
	<-slow.entered

	calls := make(chan struct{})
	go func() {
		_ = r.List()
		_, _ = r.Acquire("Other")
		r.Register(Info{Name: "Late", Priority: 1}, stubFactory("Late", nil, nil))
		close(calls)
	}()
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("registry calls blocked while a backend initialized")
	}

	close(slow.release)
	if b := <-done; b != tts.Backend(slow) {
		t.Errorf("AcquireBest() = %v, want the slow backend", b)
	}
	if got, ok := r.Get("Slow"); !ok || got != tts.Backend(slow) {
		t.Error("AcquireBest() should cache the slow backend")
	}
}

// TestRegistryWithAnnounce tests selection against real backends over a
// mock host.
func TestRegistryWithAnnounce(t *testing.T) {
	cfg := tts.DefaultConfig()
	r := NewRegistry()
	r.Register(Info{Kind: tts.KindAnnouncement, Name: announce.DefaultName, Priority: 100}, func() tts.Backend {
		return announce.New(cfg.Announce)
	})
	r.Register(Info{Kind: tts.KindEngine, Name: "Fallback", Priority: 1}, stubFactory("Fallback", nil, nil))

	host := mock.NewHost()
	b, err := r.CreateBest(host)
	if err != nil {
		t.Fatal(err)
	}
	if b.Kind() != tts.KindAnnouncement {
		t.Errorf("CreateBest() kind = %v, want announcement", b.Kind())
	}

	host.Narr.SetEnabled(false)
	b, err = r.CreateBest(host)
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != "Fallback" {
		t.Errorf("CreateBest() with narrator off = %q, want Fallback", b.Name())
	}
}
