package hostexec

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("Skipping Unix command test on Windows")
	}
}

func TestNew(t *testing.T) {
	if got := New(0).Timeout(); got != DefaultTimeout {
		t.Errorf("Expected default timeout %v, got %v", DefaultTimeout, got)
	}
	if got := New(10 * time.Second).Timeout(); got != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", got)
	}
}

func TestRun(t *testing.T) {
	skipOnWindows(t)
	e := New(5 * time.Second)

	tests := []struct {
		name        string
		command     string
		args        []string
		expectError bool
		want        string
	}{
		{name: "echo", command: "echo", args: []string{"hello"}, want: "hello"},
		{name: "arguments", command: "printf", args: []string{"%s-%s", "a", "b"}, want: "a-b"},
		{name: "nonexistent command", command: "nonexistent_command_xyz", expectError: true},
		{name: "failing command", command: "false", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Run(context.Background(), tt.command, tt.args...)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got := strings.TrimSpace(string(out)); got != tt.want {
				t.Errorf("Output = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRunTimeout tests that the default timeout ends long commands.
func TestRunTimeout(t *testing.T) {
	skipOnWindows(t)
	e := New(100 * time.Millisecond)

	start := time.Now()
	_, err := e.Run(context.Background(), "sleep", "5")
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Expected timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Timeout took too long: %v", elapsed)
	}
}

func TestStart(t *testing.T) {
	skipOnWindows(t)
	e := New(time.Second)

	p, err := e.Start("sleep", "5")
	if err != nil {
		t.Fatal(err)
	}
	if !Running(p) {
		t.Error("process should be running")
	}
	if err := p.Kill(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("process did not exit after Kill")
	}
	if Running(p) {
		t.Error("process should have exited")
	}
	if p.Err() == nil {
		t.Error("a killed process should report its exit error")
	}
	if Running(nil) {
		t.Error("nil process is not running")
	}

	if _, err := e.Start("nonexistent_command_xyz"); err == nil {
		t.Error("Expected start error")
	}
}

func TestLookPath(t *testing.T) {
	skipOnWindows(t)
	e := New(0)
	if err := e.LookPath("sh"); err != nil {
		t.Errorf("LookPath(sh) = %v", err)
	}
	if err := e.LookPath("nonexistent_command_xyz"); err == nil {
		t.Error("Expected error for missing binary")
	}
}

func TestFake(t *testing.T) {
	f := NewFake()
	f.Missing["gone"] = true
	f.Handler = func(cmd Command) ([]byte, error) {
		if cmd.Name == "fail" {
			return nil, errors.New("exit status 1")
		}
		return []byte(cmd.String()), nil
	}

	out, err := f.Run(context.Background(), "say", "-r", "10", "hi")
	if err != nil || string(out) != "say -r 10 hi" {
		t.Errorf("Run() = %q, %v", out, err)
	}
	if _, err := f.Run(context.Background(), "fail"); err == nil {
		t.Error("Expected handler error")
	}
	if err := f.LookPath("gone"); err != ErrNotFound {
		t.Errorf("LookPath(gone) = %v", err)
	}

	p, err := f.Start("say", "--wait")
	if err != nil {
		t.Fatal(err)
	}
	if !Running(p) {
		t.Error("fake process should run until finished")
	}
	exitErr := errors.New("exit status 2")
	f.Processes()[0].Finish(exitErr)
	if Running(p) {
		t.Error("fake process should be done")
	}
	if p.Err() != exitErr {
		t.Errorf("Err() = %v, want %v", p.Err(), exitErr)
	}

	cmds := f.Commands()
	if len(cmds) != 3 || cmds[1].Name != "fail" || !cmds[2].Background {
		t.Errorf("Commands() = %+v", cmds)
	}
	f.Reset()
	if len(f.Commands()) != 0 {
		t.Error("Reset() should clear commands")
	}
}
