// Package orca posts announcements to the Orca screen reader over its
// D-Bus remote controller, using the gdbus client.
package orca

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/internal/hostexec"
)

const (
	// Binary is the D-Bus client used to reach Orca.
	Binary = "gdbus"

	// ServiceName is reported as the spoken feedback service.
	ServiceName = "Orca"

	servicePath   = "/org/gnome/Orca/Service"
	serviceIface  = "org.gnome.Orca.Service"
	speechPath    = "/org/gnome/Orca/Service/SpeechAndVerbosityManager"
	moduleIface   = "org.gnome.Orca.Module"
	interruptName = "InterruptSpeech"

	statusTTL = 2 * time.Second
)

// ErrRejected means Orca answered a call with false.
var ErrRejected = errors.New("orca rejected the request")

// Narrator implements tts.Narrator for Orca.
type Narrator struct {
	dest    string
	timeout time.Duration
	runner  hostexec.Runner
	logger  *log.Logger
	now     func() time.Time

	mu       sync.Mutex
	checkedAt time.Time
	enabled  bool
	version  string
}

// New creates a Narrator for the service at dest.
func New(dest string, timeout time.Duration, runner hostexec.Runner) *Narrator {
	return &Narrator{
		dest:    dest,
		timeout: timeout,
		runner:  runner,
		logger:  log.WithPrefix("orca"),
		now:     time.Now,
	}
}

// Enabled reports whether Orca answers on the session bus. The answer is
// cached briefly.
func (n *Narrator) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.checkedAt.IsZero() && n.now().Sub(n.checkedAt) < statusTTL {
		return n.enabled
	}

	n.enabled = false
	if err := n.runner.LookPath(Binary); err == nil {
		out, err := n.call(servicePath, serviceIface+".GetVersion")
		if err != nil {
			n.logger.Debug("Orca not reachable", "dest", n.dest, "err", err)
		} else {
			n.enabled = true
			n.version = unquote(out)
		}
	}
	n.checkedAt = n.now()
	return n.enabled
}

// Version returns the version Orca reported on the last status check.
func (n *Narrator) Version() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.version
}

// SpokenFeedbackServices returns Orca when it is reachable.
func (n *Narrator) SpokenFeedbackServices() []string {
	if !n.Enabled() {
		return nil
	}
	return []string{ServiceName}
}

// Announce asks Orca to present text.
func (n *Narrator) Announce(text string) error {
	out, err := n.call(servicePath, serviceIface+".PresentMessage", Quote(text))
	if err != nil {
		return err
	}
	return checkTrue(out)
}

// Interrupt silences Orca.
func (n *Narrator) Interrupt() error {
	out, err := n.call(speechPath, moduleIface+".ExecuteCommand", Quote(interruptName), "false")
	if err != nil {
		return err
	}
	return checkTrue(out)
}

func (n *Narrator) call(path, method string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	argv := append([]string{
		"call", "--session",
		"--dest", n.dest,
		"--object-path", path,
		"--method", method,
	}, args...)
	out, err := n.runner.Run(ctx, Binary, argv...)
	return strings.TrimSpace(string(out)), err
}

// checkTrue accepts gdbus replies of the form "(true,)".
func checkTrue(out string) error {
	if strings.Contains(out, "true") {
		return nil
	}
	return ErrRejected
}

// Quote renders s as a GVariant string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// unquote extracts the string from a reply like "('49.1',)".
func unquote(out string) string {
	start := strings.IndexByte(out, '\'')
	end := strings.LastIndexByte(out, '\'')
	if start < 0 || end <= start {
		return ""
	}
	return out[start+1 : end]
}
