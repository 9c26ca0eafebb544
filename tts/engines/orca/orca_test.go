package orca

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/narrate/internal/hostexec"
	"github.com/dgnsrekt/narrate/tts"
)

var _ tts.Narrator = (*Narrator)(nil)

const dest = "org.gnome.Orca.Service"

// orcaFake answers like a running Orca.
func orcaFake() *hostexec.Fake {
	fake := hostexec.NewFake()
	fake.Handler = func(cmd hostexec.Command) ([]byte, error) {
		method := cmd.Args[7]
		switch {
		case strings.HasSuffix(method, ".GetVersion"):
			return []byte("('49.1',)\n"), nil
		default:
			return []byte("(true,)\n"), nil
		}
	}
	return fake
}

func newTest(fake *hostexec.Fake) *Narrator {
	return New(dest, time.Second, fake)
}

func TestEnabled(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		n := newTest(orcaFake())
		if !n.Enabled() {
			t.Fatal("Enabled() should be true")
		}
		if n.Version() != "49.1" {
			t.Errorf("Version() = %q", n.Version())
		}
		if got := n.SpokenFeedbackServices(); len(got) != 1 || got[0] != ServiceName {
			t.Errorf("SpokenFeedbackServices() = %v", got)
		}
	})

	t.Run("not running", func(t *testing.T) {
		fake := hostexec.NewFake()
		fake.Handler = func(hostexec.Command) ([]byte, error) {
			return nil, errors.New("The name is not activatable")
		}
		n := newTest(fake)
		if n.Enabled() {
			t.Error("Enabled() should be false")
		}
		if got := n.SpokenFeedbackServices(); len(got) != 0 {
			t.Errorf("SpokenFeedbackServices() = %v", got)
		}
	})

	t.Run("no gdbus", func(t *testing.T) {
		fake := orcaFake()
		fake.Missing[Binary] = true
		if newTest(fake).Enabled() {
			t.Error("Enabled() should be false without gdbus")
		}
		if len(fake.Commands()) != 0 {
			t.Error("no command should run without gdbus")
		}
	})
}

// TestEnabledCached tests that the status check is reused until it expires.
func TestEnabledCached(t *testing.T) {
	fake := orcaFake()
	n := newTest(fake)
	now := time.Unix(1000, 0)
	n.now = func() time.Time { return now }

	n.Enabled()
	n.Enabled()
	if got := len(fake.Commands()); got != 1 {
		t.Errorf("status check ran %d times, want 1", got)
	}

	now = now.Add(statusTTL)
	n.Enabled()
	if got := len(fake.Commands()); got != 2 {
		t.Errorf("status check ran %d times after expiry, want 2", got)
	}
}

func TestAnnounce(t *testing.T) {
	fake := orcaFake()
	n := newTest(fake)

	if err := n.Announce("it's done"); err != nil {
		t.Fatal(err)
	}
	cmd := fake.Commands()[0]
	want := `gdbus call --session --dest org.gnome.Orca.Service --object-path /org/gnome/Orca/Service --method org.gnome.Orca.Service.PresentMessage 'it\'s done'`
	if cmd.String() != want {
		t.Errorf("command = %q\nwant      %q", cmd.String(), want)
	}
}

func TestInterrupt(t *testing.T) {
	fake := orcaFake()
	n := newTest(fake)

	if err := n.Interrupt(); err != nil {
		t.Fatal(err)
	}
	cmd := fake.Commands()[0].String()
	if !strings.Contains(cmd, speechPath) || !strings.HasSuffix(cmd, "ExecuteCommand 'InterruptSpeech' false") {
		t.Errorf("command = %q", cmd)
	}
}

func TestRejected(t *testing.T) {
	fake := hostexec.NewFake()
	fake.Handler = func(hostexec.Command) ([]byte, error) { return []byte("(false,)"), nil }
	n := newTest(fake)

	if err := n.Announce("hi"); err != ErrRejected {
		t.Errorf("Announce() = %v, want ErrRejected", err)
	}
	if err := n.Interrupt(); err != ErrRejected {
		t.Errorf("Interrupt() = %v, want ErrRejected", err)
	}

	fake.Handler = func(hostexec.Command) ([]byte, error) { return nil, errors.New("timeout") }
	if err := n.Announce("hi"); err == nil || err == ErrRejected {
		t.Errorf("Announce() = %v, want call error", err)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", `'hello'`},
		{"it's", `'it\'s'`},
		{`back\slash`, `'back\\slash'`},
		{"two\nlines", `'two\nlines'`},
		{"tab\there", `'tab\there'`},
		{"héllo 世界", `'héllo 世界'`},
		{"", `''`},
	}
	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
