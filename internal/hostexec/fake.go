package hostexec

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrNotFound is returned by Fake.LookPath for missing binaries.
var ErrNotFound = errors.New("binary not found")

// Command records one command run through a Fake.
type Command struct {
	Name       string
	Args       []string
	Background bool
}

// String returns the command line.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Fake is a Runner for tests. Handler decides each command's output; a nil
// Handler succeeds with no output.
type Fake struct {
	mu       sync.Mutex
	Handler  func(cmd Command) ([]byte, error)
	Missing  map[string]bool
	commands []Command
	procs    []*FakeProcess
}

// NewFake creates a Fake with no missing binaries.
func NewFake() *Fake {
	return &Fake{Missing: map[string]bool{}}
}

func (f *Fake) record(cmd Command) ([]byte, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	handler := f.Handler
	f.mu.Unlock()

	if handler == nil {
		return nil, nil
	}
	return handler(cmd)
}

// Run records the command and returns the handler's result.
func (f *Fake) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f.record(Command{Name: name, Args: args})
}

// Start records the command and returns a process that runs until
// finished or killed. A handler error fails the start.
func (f *Fake) Start(name string, args ...string) (Process, error) {
	if _, err := f.record(Command{Name: name, Args: args, Background: true}); err != nil {
		return nil, err
	}
	p := &FakeProcess{done: make(chan struct{})}
	f.mu.Lock()
	f.procs = append(f.procs, p)
	f.mu.Unlock()
	return p, nil
}

// LookPath fails for binaries marked missing.
func (f *Fake) LookPath(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Missing[name] {
		return ErrNotFound
	}
	return nil
}

// Commands returns the recorded commands.
func (f *Fake) Commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.commands...)
}

// Processes returns the started background processes.
func (f *Fake) Processes() []*FakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeProcess(nil), f.procs...)
}

// Reset forgets recorded commands and processes.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = nil
	f.procs = nil
}

// FakeProcess is a background process controlled by the test.
type FakeProcess struct {
	once   sync.Once
	done   chan struct{}
	err    error
	killed bool
}

// Finish ends the process with err.
func (p *FakeProcess) Finish(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// Killed reports whether Kill ended the process.
func (p *FakeProcess) Killed() bool {
	select {
	case <-p.done:
		return p.killed
	default:
		return false
	}
}

func (p *FakeProcess) Done() <-chan struct{} { return p.done }

func (p *FakeProcess) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (p *FakeProcess) Kill() error {
	p.once.Do(func() {
		p.killed = true
		close(p.done)
	})
	return nil
}
