// Package hostexec runs the host programs that front speech mechanisms.
package hostexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds a command when the caller sets no deadline.
const DefaultTimeout = 5 * time.Second

// Runner executes host commands.
type Runner interface {
	// Run executes a command to completion and returns its stdout.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// Start launches a command in the background.
	Start(name string, args ...string) (Process, error)

	// LookPath reports whether a binary is on PATH.
	LookPath(name string) error
}

// Process is a command running in the background.
type Process interface {
	// Done is closed once the process exits.
	Done() <-chan struct{}

	// Err returns the exit error after Done is closed.
	Err() error

	// Kill stops the process.
	Kill() error
}

// Exec runs commands with os/exec.
type Exec struct {
	timeout time.Duration
}

// New creates a Runner whose commands time out after timeout, or
// DefaultTimeout when timeout is not positive.
func New(timeout time.Duration) *Exec {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Exec{timeout: timeout}
}

// Timeout returns the default command timeout.
func (e *Exec) Timeout() time.Duration {
	return e.timeout
}

// Run executes a command to completion. The runner's timeout applies
// unless ctx already carries a deadline.
func (e *Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	err := cmd.Wait()

	if ctx.Err() != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%s timed out", name)
		}
		return nil, fmt.Errorf("%s cancelled: %w", name, ctx.Err())
	}

	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Start launches a command in the background. It is not bound by the
// default timeout; use Kill to end it early.
func (e *Exec) Start(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	p := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	}()
	return p, nil
}

// LookPath checks if a binary exists in PATH.
func (e *Exec) LookPath(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("binary '%s' not found in PATH: %w", name, err)
	}
	return nil
}

type process struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu  sync.Mutex
	err error
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

func (p *process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *process) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	return p.cmd.Process.Kill()
}

// Running reports whether p is non-nil and has not exited.
func Running(p Process) bool {
	if p == nil {
		return false
	}
	select {
	case <-p.Done():
		return false
	default:
		return true
	}
}
